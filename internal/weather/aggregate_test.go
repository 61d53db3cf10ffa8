package weather

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hour(t time.Time, temp float64, icon string) HourlyForecast {
	return HourlyForecast{
		Date:               t,
		Temperature:        temp,
		NeutralWeatherIcon: icon,
		WeatherDescription: icon,
		Humidity:           50,
		Pressure:           1010,
		UVIndex:            -1,
		Fog:                -1,
	}
}

func TestDayBuilderAggregates(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*3600)
	base := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	b := NewDayBuilder(zone)

	h1 := hour(base.Add(6*time.Hour), 8, "weather-clouds")
	h1.PrecipitationAmount = 0.4
	h1.UVIndex = 1.5
	h2 := hour(base.Add(9*time.Hour), 12, "weather-showers")
	h2.PrecipitationAmount = 1.1
	h2.Humidity = 91
	h3 := hour(base.Add(12*time.Hour), 10, "weather-clear")
	h3.Pressure = 1022

	// 23:00 UTC is already the next local day.
	h4 := hour(base.Add(23*time.Hour), 3, "weather-fog")

	for _, h := range []HourlyForecast{h1, h2, h3, h4} {
		b.AddHour(h)
	}
	b.AddTempRange(base.Add(12*time.Hour), 13.5, 9)
	b.AddPrecipitation(base.Add(15*time.Hour), 0.5)

	days := b.Days()
	require.Len(t, days, 2)

	want := DailyForecast{
		Date:               time.Date(2026, 10, 19, 0, 0, 0, 0, zone),
		MaxTemp:            13.5,
		MinTemp:            8,
		Precipitation:      2.0,
		UVIndex:            1.5,
		Humidity:           91,
		Pressure:           1022,
		WeatherIcon:        "weather-showers",
		WeatherDescription: "weather-showers",
		Condition:          ConditionRain,
	}
	if diff := cmp.Diff(want, days[0], cmp.Comparer(func(a, b float64) bool {
		d := a - b
		return d < 1e-9 && d > -1e-9
	})); diff != "" {
		t.Errorf("first day mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, days[1].Date.Equal(time.Date(2026, 10, 20, 0, 0, 0, 0, zone)))
	assert.Equal(t, 3.0, days[1].MaxTemp)
	assert.Equal(t, 3.0, days[1].MinTemp)
	assert.Equal(t, ConditionFog, days[1].Condition)
}

func TestDayBuilderLaterHourWinsTies(t *testing.T) {
	b := NewDayBuilder(nil)
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	first := hour(base.Add(time.Hour), 0, "weather-clouds")
	first.WeatherDescription = "Cloudy"
	second := hour(base.Add(2*time.Hour), 0, "weather-fog")
	second.WeatherDescription = "Fog"
	b.AddHour(first)
	b.AddHour(second)

	days := b.Days()
	require.Len(t, days, 1)
	assert.Equal(t, "weather-fog", days[0].WeatherIcon)
	assert.Equal(t, "Fog", days[0].WeatherDescription)
}

func TestDayBuilderNeutralisesIcon(t *testing.T) {
	b := NewDayBuilder(time.UTC)
	h := hour(time.Date(2026, 1, 2, 22, 0, 0, 0, time.UTC), 1, "")
	h.WeatherIcon = "weather-storm-night"
	b.AddHour(h)

	assert.Equal(t, "weather-storm", b.Days()[0].WeatherIcon)
}

func TestDayBuilderTempRangeOnly(t *testing.T) {
	b := NewDayBuilder(time.UTC)
	ts := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	b.AddPrecipitation(ts, 3)

	days := b.Days()
	require.Len(t, days, 1)
	assert.Equal(t, 0.0, days[0].MaxTemp, "untouched range is reset")
	assert.Equal(t, 0.0, days[0].MinTemp)
	assert.Equal(t, NoIcon, days[0].WeatherIcon)
	assert.Equal(t, 3.0, days[0].Precipitation)
}

func TestClosestHour(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 20, 0, 0, time.UTC)
	hours := []HourlyForecast{
		{Date: now.Add(-80 * time.Minute)},
		{Date: now.Add(-20 * time.Minute)},
		{Date: now.Add(40 * time.Minute)},
	}

	h, ok := ClosestHour(hours, now)
	require.True(t, ok)
	assert.True(t, h.Date.Equal(now.Add(-20*time.Minute)))

	_, ok = ClosestHour(nil, now)
	assert.False(t, ok)
}

func TestTrimToWindow(t *testing.T) {
	zone, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC is still the previous evening in New York.
	now := time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)
	f := Forecast{
		Hourly: []HourlyForecast{
			{Date: now.Add(-3 * time.Hour)},
			{Date: now.Add(-time.Hour)},
			{Date: now.Add(time.Hour)},
		},
		Daily: []DailyForecast{
			{Date: time.Date(2026, 10, 17, 0, 0, 0, 0, zone)},
			{Date: time.Date(2026, 10, 18, 0, 0, 0, 0, zone)},
			{Date: time.Date(2026, 10, 19, 0, 0, 0, 0, zone)},
		},
		Sunrise: []Sunrise{
			{SunRise: time.Date(2026, 10, 17, 7, 10, 0, 0, zone)},
			{SunRise: time.Date(2026, 10, 18, 7, 11, 0, 0, zone)},
		},
	}

	got := TrimToWindow(f, now, zone)
	assert.Len(t, got.Hourly, 2)
	require.Len(t, got.Daily, 2)
	assert.Equal(t, 18, got.Daily[0].Date.Day())
	assert.Len(t, got.Sunrise, 1)
	assert.Len(t, f.Hourly, 3, "input is not modified")
}

func TestDayBuilderPrefersScatteredShowers(t *testing.T) {
	base := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)
	b := NewDayBuilder(time.UTC)

	for i, code := range []string{"10d", "09d", "03d"} {
		b.AddHour(HourlyForecast{
			Date:               base.Add(time.Duration(i) * 3 * time.Hour),
			SymbolCode:         code,
			WeatherIcon:        OWMRawIcon(code),
			NeutralWeatherIcon: NeutralIcon(OWMRawIcon(code)),
			WeatherDescription: code,
		})
	}

	days := b.Days()
	require.Len(t, days, 1)
	assert.Equal(t, "weather-showers-scattered", days[0].WeatherIcon)
	assert.Equal(t, "10d", days[0].WeatherDescription)
	assert.Equal(t, ConditionRain, days[0].Condition)
}
