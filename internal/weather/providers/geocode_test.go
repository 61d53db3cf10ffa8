package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleGeocoder_Geocode(t *testing.T) {
	var got geocoder.Address
	g := NewGoogleGeocoder("key")
	g.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		got = a
		return geocoder.Location{Latitude: 48.8566, Longitude: 2.3522}, nil
	}

	lat, lon, err := g.Geocode(context.Background(), "Paris", "FR")
	require.NoError(t, err)
	assert.InDelta(t, 48.8566, lat, 1e-9)
	assert.InDelta(t, 2.3522, lon, 1e-9)
	assert.Equal(t, "Paris", got.City)
	assert.Equal(t, "FR", got.Country)
	assert.Equal(t, "key", geocoder.ApiKey)
}

func TestGoogleGeocoder_Errors(t *testing.T) {
	_, _, err := NewGoogleGeocoder("").Geocode(context.Background(), "Paris", "FR")
	assert.ErrorIs(t, err, ErrGeocoderKey)

	lookupErr := errors.New("ZERO_RESULTS")
	g := NewGoogleGeocoder("key")
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, lookupErr
	}
	_, _, err = g.Geocode(context.Background(), "Nowhere", "XX")
	assert.ErrorIs(t, err, lookupErr)
}
