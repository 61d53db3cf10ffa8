package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
)

// ErrGeocoderKey is returned when geocoding is attempted without a Google API key.
var ErrGeocoderKey = errors.New("geocoder api key is not configured")

// geocoder.ApiKey is package-global.
var geocoderMu sync.Mutex

// GoogleGeocoder resolves city/country pairs through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey, lookup: geocoder.Geocoding}
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, city, country string) (float64, float64, error) {
	if g.apiKey == "" {
		return 0, 0, ErrGeocoderKey
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)

	go func() {
		geocoderMu.Lock()
		defer geocoderMu.Unlock()
		geocoder.ApiKey = g.apiKey
		loc, err := g.lookup(geocoder.Address{City: city, Country: country})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return 0, 0, fmt.Errorf("geocode %s, %s: %w", city, country, r.err)
		}
		return r.loc.Latitude, r.loc.Longitude, nil
	}
}
