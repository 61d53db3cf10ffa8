package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-forecast/internal/weather"
)

const sunriseSample = `{
  "location": {
    "height": "0",
    "latitude": "59.9139",
    "longitude": "10.7522",
    "time": [
      {
        "date": "2026-10-19",
        "sunrise": {"desc": "LOCAL DIURNAL SUN RISE", "time": "2026-10-19T08:01:00+02:00"},
        "sunset": {"desc": "LOCAL DIURNAL SUN SET", "time": "2026-10-19T17:45:00+02:00"},
        "moonrise": {"time": "2026-10-19T12:10:00+02:00"},
        "moonset": {"time": "2026-10-19T19:30:00+02:00"},
        "solarnoon": {"time": "2026-10-19T12:53:00+02:00", "elevation": "22.41"},
        "solarmidnight": {"time": "2026-10-19T00:53:00+02:00", "elevation": "-34.10"},
        "high_moon": {"time": "2026-10-19T15:40:00+02:00", "elevation": "10.5"},
        "low_moon": {"time": "2026-10-19T03:20:00+02:00", "elevation": "-40.2"},
        "moonposition": {"time": "2026-10-19T00:00:00+02:00", "elevation": "-3.2", "phase": "42.7"}
      },
      {
        "date": "2026-10-20",
        "solarnoon": {"time": "2026-10-20T12:53:00+02:00", "elevation": "-2.0"},
        "moonposition": {"phase": 46.1}
      },
      {
        "date": "2026-10-21"
      }
    ]
  }
}`

func TestNMISunriseProvider_FetchSunrise(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(sunriseSample))
	}))
	defer srv.Close()

	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	p := NewNMISunriseProvider(srv.Client(), "").WithBaseURL(srv.URL).WithBackoff(fastBackoff())
	loc := weather.Location{ID: "oslo", Latitude: 59.9139, Longitude: 10.7522, TimeZone: "Europe/Oslo"}
	req := weather.SunriseRequest{Date: time.Date(2026, 10, 19, 0, 0, 0, 0, oslo), Days: 10}

	days, err := p.FetchSunrise(context.Background(), loc, req)
	require.NoError(t, err)

	assert.Equal(t, "2026-10-19", query.Get("date"))
	assert.Equal(t, "10", query.Get("days"))
	assert.Equal(t, "+02:00", query.Get("offset"))

	require.Len(t, days, 2, "days without sunrise or solar noon are dropped")

	first := days[0]
	assert.True(t, first.SunRise.Equal(time.Date(2026, 10, 19, 6, 1, 0, 0, time.UTC)))
	assert.True(t, first.SunSet.Equal(time.Date(2026, 10, 19, 15, 45, 0, 0, time.UTC)))
	assert.Equal(t, "Europe/Oslo", first.SunRise.Location().String())
	assert.InDelta(t, 22.41, first.SolarNoon.Elevation, 1e-9)
	assert.InDelta(t, -34.10, first.SolarMidnight.Elevation, 1e-9)
	assert.InDelta(t, 10.5, first.HighMoon.Elevation, 1e-9)
	assert.InDelta(t, -40.2, first.LowMoon.Elevation, 1e-9)
	assert.InDelta(t, 42.7, first.MoonPhase, 1e-9)

	polar := days[1]
	assert.True(t, polar.SunRise.IsZero())
	assert.InDelta(t, -2.0, polar.SolarNoon.Elevation, 1e-9)
	assert.InDelta(t, 46.1, polar.MoonPhase, 1e-9)
}

func TestFormatOffset(t *testing.T) {
	cases := map[int]string{
		0:      "+00:00",
		3600:   "+01:00",
		19800:  "+05:30",
		36000:  "+10:00",
		-16200: "-04:30",
		-36000: "-10:00",
	}
	for secs, want := range cases {
		assert.Equal(t, want, FormatOffset(secs), "offset %d", secs)
	}
}
