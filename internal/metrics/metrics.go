package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/weather-forecast/internal/weather"
	"github.com/i474232898/weather-forecast/internal/weather/providers"
)

// Recorder exports forecast fetch and cache outcomes as Prometheus counters.
// It implements weather.Recorder.
type Recorder struct {
	fetches     *prometheus.CounterVec
	cacheWrites *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_forecast_fetches_total",
				Help: "Forecast fetches by backend and result.",
			},
			[]string{"backend", "result"},
		),
		cacheWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_forecast_cache_writes_total",
				Help: "Forecast cache file writes by result.",
			},
			[]string{"result"},
		),
	}

	for _, c := range []prometheus.Collector{r.fetches, r.cacheWrites} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// FetchResult counts one fetch attempt.
func (r *Recorder) FetchResult(backend weather.Backend, err error) {
	r.fetches.WithLabelValues(string(backend), fetchResult(err)).Inc()
}

// CacheWrite counts one cache write.
func (r *Recorder) CacheWrite(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.cacheWrites.WithLabelValues(result).Inc()
}

func fetchResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, providers.ErrTokenInvalid), errors.Is(err, providers.ErrMissingToken):
		return "token_invalid"
	case errors.Is(err, providers.ErrTooManyCalls):
		return "too_many_calls"
	default:
		return "error"
	}
}
