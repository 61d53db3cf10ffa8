package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-forecast/internal/weather"
	"github.com/i474232898/weather-forecast/internal/weather/providers"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.FetchResult(weather.BackendNMI, nil)
	r.FetchResult(weather.BackendNMI, nil)
	r.FetchResult(weather.BackendOWM, fmt.Errorf("fetch: %w", providers.ErrTokenInvalid))
	r.FetchResult(weather.BackendOWM, providers.ErrTooManyCalls)
	r.FetchResult(weather.BackendOWM, errors.New("boom"))
	r.CacheWrite(nil)
	r.CacheWrite(errors.New("disk full"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetches.WithLabelValues("nmi", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("owm", "token_invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("owm", "too_many_calls")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("owm", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheWrites.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheWrites.WithLabelValues("error")))
}

func TestRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)

	_, err = NewRecorder(reg)
	assert.Error(t, err)
}
