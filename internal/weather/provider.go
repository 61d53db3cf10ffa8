package weather

import (
	"context"
	"time"
)

// ForecastProvider abstracts an upstream forecast API (met.no, OpenWeatherMap).
type ForecastProvider interface {
	Name() string
	Backend() Backend
	FetchForecast(ctx context.Context, loc Location) (Forecast, error)
}

// SunriseProvider fetches sun and moon data for a range of days.
type SunriseProvider interface {
	FetchSunrise(ctx context.Context, loc Location, req SunriseRequest) ([]Sunrise, error)
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (lat, lon float64, err error)
}

// TimeZoneResolver looks up the IANA time zone at a coordinate.
type TimeZoneResolver interface {
	TimeZone(ctx context.Context, lat, lon float64) (string, error)
}

// Store is the contract the in-memory forecast store must satisfy.
// SaveForecast keeps the newest forecast: it reports false when f is older
// than the latest forecast already held for its location.
type Store interface {
	SaveForecast(f Forecast) bool
	GetLatest(locationID string) (Forecast, error)
	GetRange(locationID string, from, to time.Time) ([]Forecast, error)
	Delete(locationID string)
}

// Cache persists forecasts across restarts.
type Cache interface {
	Write(f Forecast) error
	Load() (map[string]Forecast, error)
	Remove(locationID string) error
}

// Recorder receives fetch and cache outcomes, e.g. for metrics.
type Recorder interface {
	FetchResult(backend Backend, err error)
	CacheWrite(err error)
}

type nopRecorder struct{}

func (nopRecorder) FetchResult(Backend, error) {}
func (nopRecorder) CacheWrite(error)           {}
