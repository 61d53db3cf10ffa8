package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-forecast/internal/weather"
)

const nmiSample = `{
  "type": "Feature",
  "properties": {
    "meta": {"updated_at": "2026-10-19T09:12:00Z"},
    "timeseries": [
      {
        "time": "2026-10-19T10:00:00Z",
        "data": {
          "instant": {"details": {
            "air_pressure_at_sea_level": 1010.2,
            "air_temperature": 5.0,
            "fog_area_fraction": 0.0,
            "relative_humidity": 80.0,
            "ultraviolet_index_clear_sky": 1.2,
            "wind_from_direction": 90.0,
            "wind_speed": 3.1
          }},
          "next_1_hours": {"summary": {"symbol_code": "cloudy"}, "details": {"precipitation_amount": 0.2}},
          "next_6_hours": {"summary": {"symbol_code": "rain"}, "details": {"air_temperature_max": 8.0, "air_temperature_min": 4.0, "precipitation_amount": 1.0}}
        }
      },
      {
        "time": "2026-10-19T11:00:00Z",
        "data": {
          "instant": {"details": {"air_temperature": 7.0, "relative_humidity": 70.0, "wind_from_direction": 200.0}},
          "next_1_hours": {"summary": {"symbol_code": "rain"}, "details": {"precipitation_amount": 0.5}}
        }
      },
      {
        "time": "2026-10-20T00:00:00Z",
        "data": {
          "instant": {"details": {"air_temperature": 1.0}},
          "next_6_hours": {"summary": {"symbol_code": "clearsky_night"}, "details": {"air_temperature_max": 3.0, "air_temperature_min": -1.0, "precipitation_amount": 2.0}}
        }
      }
    ]
  }
}`

func fastBackoff() BackoffConfig {
	return BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestNMIProvider_FetchForecast(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(nmiSample))
	}))
	defer srv.Close()

	created := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	p := NewNMIProvider(srv.Client(), "test-agent/1.0").WithBaseURL(srv.URL).WithBackoff(fastBackoff())
	p.now = func() time.Time { return created }

	loc := weather.Location{ID: "oslo", Latitude: 59.9139, Longitude: 10.7522, TimeZone: "UTC", Backend: weather.BackendNMI}
	fc, err := p.FetchForecast(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Contains(t, gotQuery, "lat=59.9139")
	assert.Contains(t, gotQuery, "lon=10.7522")

	assert.Equal(t, "oslo", fc.LocationID)
	assert.Equal(t, weather.BackendNMI, fc.Backend)
	assert.True(t, fc.TimeCreated.Equal(created))

	require.Len(t, fc.Hourly, 2)
	first := fc.Hourly[0]
	assert.Equal(t, "cloudy", first.SymbolCode)
	assert.Equal(t, "weather-clouds", first.NeutralWeatherIcon)
	assert.Equal(t, "Cloudy", first.WeatherDescription)
	assert.Equal(t, weather.WindE, first.WindDirection)
	assert.InDelta(t, 5.0, first.Temperature, 1e-9)
	assert.InDelta(t, 0.2, first.PrecipitationAmount, 1e-9)
	assert.InDelta(t, 1.2, first.UVIndex, 1e-9)
	assert.Equal(t, weather.ConditionCloudy, first.Condition)

	second := fc.Hourly[1]
	assert.Equal(t, weather.WindS, second.WindDirection)
	assert.InDelta(t, -1, second.UVIndex, 1e-9, "missing uv is reported as -1")
	assert.InDelta(t, -1, second.Fog, 1e-9)

	require.Len(t, fc.Daily, 2)
	day := fc.Daily[0]
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), day.Date)
	assert.InDelta(t, 8.0, day.MaxTemp, 1e-9)
	assert.InDelta(t, 4.0, day.MinTemp, 1e-9)
	assert.InDelta(t, 0.7, day.Precipitation, 1e-9)
	assert.InDelta(t, 80.0, day.Humidity, 1e-9)
	assert.Equal(t, "weather-showers", day.WeatherIcon)
	assert.Equal(t, "Rain", day.WeatherDescription)
	assert.Equal(t, weather.ConditionRain, day.Condition)

	tail := fc.Daily[1]
	assert.InDelta(t, 3.0, tail.MaxTemp, 1e-9)
	assert.InDelta(t, -1.0, tail.MinTemp, 1e-9)
	assert.InDelta(t, 2.0, tail.Precipitation, 1e-9)
	assert.Equal(t, weather.NoIcon, tail.WeatherIcon)
}

func TestNMIProvider_LocalZone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(nmiSample))
	}))
	defer srv.Close()

	p := NewNMIProvider(srv.Client(), "").WithBaseURL(srv.URL).WithBackoff(fastBackoff())
	loc := weather.Location{ID: "tokyo", Latitude: 35.68, Longitude: 139.69, TimeZone: "Asia/Tokyo"}

	fc, err := p.FetchForecast(context.Background(), loc)
	require.NoError(t, err)

	// 2026-10-20T00:00Z is 09:00 in Tokyo, so every entry falls on the 19th or 20th local.
	require.Len(t, fc.Daily, 2)
	assert.Equal(t, 19, fc.Daily[0].Date.Day())
	assert.Equal(t, "Asia/Tokyo", fc.Hourly[0].Date.Location().String())
}

func TestNMIProvider_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(nmiSample))
	}))
	defer srv.Close()

	p := NewNMIProvider(srv.Client(), "").WithBaseURL(srv.URL).WithBackoff(fastBackoff())
	fc, err := p.FetchForecast(context.Background(), weather.Location{ID: "x", Latitude: 1, Longitude: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.False(t, fc.IsEmpty())
}

func TestNMIProvider_TooManyCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewNMIProvider(srv.Client(), "").WithBaseURL(srv.URL).
		WithBackoff(BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond})
	_, err := p.FetchForecast(context.Background(), weather.Location{ID: "x", Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, ErrTooManyCalls)
}

func TestNMIProvider_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":`))
	}))
	defer srv.Close()

	p := NewNMIProvider(srv.Client(), "").WithBaseURL(srv.URL).WithBackoff(fastBackoff())
	_, err := p.FetchForecast(context.Background(), weather.Location{ID: "x", Latitude: 1, Longitude: 1})
	assert.Error(t, err)
}
