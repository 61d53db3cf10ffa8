package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-forecast/internal/weather"
)

var (
	// ErrNotFound is returned when no forecast is available for a given location.
	ErrNotFound = errors.New("no forecast for location")
)

// ForecastHistory holds the forecasts of a location ordered by creation time.
type ForecastHistory struct {
	Forecasts []weather.Forecast
}

// MemoryStore is a concurrency-safe in-memory forecast store. The last entry
// of every history is the newest forecast of that location.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location id, value: history
	data map[string]*ForecastHistory

	// retention configuration
	maxHistory int           // max number of forecasts per location
	maxAge     time.Duration // optional max age for forecasts

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ForecastHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveForecast appends a forecast for its location and enforces retention.
// A forecast created before the newest one held is rejected and false is returned.
func (s *MemoryStore) SaveForecast(f weather.Forecast) bool {
	key := f.LocationID

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &ForecastHistory{}
		s.data[key] = history
	}

	if n := len(history.Forecasts); n > 0 && f.TimeCreated.Before(history.Forecasts[n-1].TimeCreated) {
		return false
	}

	history.Forecasts = append(history.Forecasts, f)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Forecasts) > s.maxHistory {
		over := len(history.Forecasts) - s.maxHistory
		history.Forecasts = history.Forecasts[over:]
	}

	// Enforce retention by age; the newest forecast is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Forecasts)-1; i++ {
			if !history.Forecasts[i].TimeCreated.Before(cutoff) {
				break
			}
		}
		history.Forecasts = history.Forecasts[i:]
	}
	return true
}

// GetLatest returns the most recent forecast for a location.
func (s *MemoryStore) GetLatest(locationID string) (weather.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[locationID]
	if !ok || len(history.Forecasts) == 0 {
		return weather.Forecast{}, ErrNotFound
	}
	return history.Forecasts[len(history.Forecasts)-1], nil
}

// GetRange returns all forecasts for a location created between from and to (inclusive).
// A zero to means no upper bound.
func (s *MemoryStore) GetRange(locationID string, from, to time.Time) ([]weather.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[locationID]
	if !ok || len(history.Forecasts) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.Forecast
	for _, f := range history.Forecasts {
		if f.TimeCreated.Before(from) {
			continue
		}
		if !to.IsZero() && f.TimeCreated.After(to) {
			continue
		}
		result = append(result, f)
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// Delete drops the history of a location.
func (s *MemoryStore) Delete(locationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, locationID)
}

// Len returns the number of locations with a stored forecast.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
