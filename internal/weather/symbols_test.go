package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNMISymbol(t *testing.T) {
	tests := []struct {
		code     string
		isDay    bool
		wantIcon string
		wantDesc string
	}{
		{"clearsky_day", true, "weather-clear", "Clear"},
		{"clearsky_night", false, "weather-clear-night", "Clear"},
		{"fair_day", true, "weather-few-clouds", "Partly Sunny"},
		{"fair_night", false, "weather-few-clouds-night", "Light Clouds"},
		{"lightrainshowers_polartwilight", true, "weather-showers-scattered-day", "Light Rain"},
		{"heavysnow", false, "weather-snow", "Heavy Snow"},
		{"rainandthunder", true, "weather-storm-day", "Storm"},
		{"volcanicash", true, NoIcon, ""},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			icon, desc := NMISymbol(tt.isDay, tt.code)
			assert.Equal(t, tt.wantIcon, icon)
			assert.Equal(t, tt.wantDesc, desc)
		})
	}

	assert.Equal(t, "weather-showers", NMINeutralIcon("rain_night"))
	assert.Equal(t, NoIcon, NMINeutralIcon("bogus"))
}

func TestOWMIcon(t *testing.T) {
	assert.Equal(t, "weather-clear", OWMIcon(true, "01n"), "day flag overrides the id's marker")
	assert.Equal(t, "weather-clear-night", OWMIcon(false, "01d"))
	assert.Equal(t, "weather-showers-scattered-night", OWMIcon(false, "10d"))
	assert.Equal(t, NoIcon, OWMIcon(true, "7"))
	assert.Equal(t, NoIcon, OWMIcon(true, "99d"))

	assert.Equal(t, "weather-snow-scattered-night", OWMRawIcon("13n"))
	assert.Equal(t, NoIcon, OWMRawIcon(""))
}

func TestIconRank(t *testing.T) {
	assert.Greater(t, IconRank("weather-storm-night"), IconRank("weather-showers"))
	assert.Greater(t, IconRank("weather-showers-scattered-day"), IconRank("weather-showers-night"))
	assert.Greater(t, IconRank("weather-many-clouds"), IconRank("weather-clouds-night"))
	assert.Equal(t, IconRank("weather-mist"), IconRank("weather-fog"))
	assert.Equal(t, -1, IconRank(NoIcon))
	assert.Equal(t, "weather-showers-scattered", NeutralIcon("weather-showers-scattered-day"))
}

func TestConditionFromIcon(t *testing.T) {
	tests := map[string]Condition{
		"weather-storm-day":        ConditionStorm,
		"weather-freezing-rain":    ConditionSleet,
		"weather-snow-scattered":   ConditionSnow,
		"weather-showers-night":    ConditionRain,
		"weather-fog":              ConditionFog,
		"weather-mist":             ConditionMist,
		"weather-few-clouds-night": ConditionCloudy,
		"weather-clear":            ConditionClear,
		NoIcon:                     ConditionUnknown,
		"":                         ConditionUnknown,
	}
	for icon, want := range tests {
		assert.Equal(t, want, ConditionFromIcon(icon), icon)
	}
}

func TestWindDirectionFromDegrees(t *testing.T) {
	tests := map[float64]WindDirection{
		0:     WindN,
		22.4:  WindN,
		22.5:  WindNE,
		90:    WindE,
		180:   WindS,
		270:   WindW,
		337.5: WindN,
		315:   WindNW,
		-45:   WindNW,
		405:   WindNE,
	}
	for deg, want := range tests {
		assert.Equal(t, want, WindDirectionFromDegrees(deg), "%v degrees", deg)
	}
}
