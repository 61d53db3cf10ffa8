package weather

import (
	"fmt"
	"math"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionSleet   Condition = "sleet"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
	ConditionFog     Condition = "fog"
)

// Backend identifies the upstream forecast API used for a location.
type Backend string

const (
	BackendNMI Backend = "nmi"
	BackendOWM Backend = "owm"
)

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	return b == BackendNMI || b == BackendOWM
}

// WindDirection is an 8-point compass direction the wind blows from.
type WindDirection string

const (
	WindN  WindDirection = "N"
	WindNE WindDirection = "NE"
	WindE  WindDirection = "E"
	WindSE WindDirection = "SE"
	WindS  WindDirection = "S"
	WindSW WindDirection = "SW"
	WindW  WindDirection = "W"
	WindNW WindDirection = "NW"
)

// Location represents a place for which forecasts are tracked.
// Coordinates are required before a forecast can be fetched; City/Country
// are only used to geocode locations configured without them.
type Location struct {
	ID        string  `json:"locationId"`
	Name      string  `json:"locationName"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeZone  string  `json:"timezone,omitempty"`
	Backend   Backend `json:"backend"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return l.ID
}

// Zone returns the location's time zone. Without a known IANA zone it falls
// back to the whole-hour offset nearest to the solar time at its longitude.
func (l Location) Zone() *time.Location {
	if l.TimeZone != "" {
		if z, err := time.LoadLocation(l.TimeZone); err == nil {
			return z
		}
	}
	return solarZone(l.Longitude)
}

func solarZone(lon float64) *time.Location {
	h := int(math.Round(lon / 15))
	if h == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", h), h*3600)
}

// HasCoordinates reports whether the location has been placed on the map.
func (l Location) HasCoordinates() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// HourlyForecast is one normalized forecast step.
// Fog and UVIndex are -1 when the upstream API does not report them.
type HourlyForecast struct {
	Date                time.Time     `json:"date"`
	WeatherDescription  string        `json:"weatherDescription"`
	WeatherIcon         string        `json:"weatherIcon"`
	NeutralWeatherIcon  string        `json:"neutralWeatherIcon"`
	SymbolCode          string        `json:"symbolCode"`
	Temperature         float64       `json:"temperature"`
	Pressure            float64       `json:"pressure"`
	WindDirection       WindDirection `json:"windDirection"`
	WindSpeed           float64       `json:"windSpeed"`
	Humidity            float64       `json:"humidity"`
	Fog                 float64       `json:"fog"`
	UVIndex             float64       `json:"uvIndex"`
	PrecipitationAmount float64       `json:"precipitationAmount"`
	Condition           Condition     `json:"condition"`
}

// DailyForecast aggregates the hours of one local calendar day.
type DailyForecast struct {
	Date               time.Time `json:"date"`
	MaxTemp            float64   `json:"maxTemp"`
	MinTemp            float64   `json:"minTemp"`
	Precipitation      float64   `json:"precipitation"`
	UVIndex            float64   `json:"uvIndex"`
	Humidity           float64   `json:"humidity"`
	Pressure           float64   `json:"pressure"`
	WeatherIcon        string    `json:"weatherIcon"`
	WeatherDescription string    `json:"weatherDescription"`
	Condition          Condition `json:"condition"`
	Sunrise            *Sunrise  `json:"sunrise,omitempty"`
}

// Elevation is a timed solar or lunar elevation in degrees.
type Elevation struct {
	Time      time.Time `json:"time"`
	Elevation float64   `json:"elevation"`
}

// Sunrise holds the sun and moon events of a single day.
type Sunrise struct {
	SunRise       time.Time `json:"sunRise"`
	SunSet        time.Time `json:"sunSet"`
	MoonRise      time.Time `json:"moonRise"`
	MoonSet       time.Time `json:"moonSet"`
	SolarNoon     Elevation `json:"solarNoon"`
	SolarMidnight Elevation `json:"solarMidnight"`
	HighMoon      Elevation `json:"highMoon"`
	LowMoon       Elevation `json:"lowMoon"`
	MoonPhase     float64   `json:"moonPhase"`
}

// Forecast is the normalized forecast of one location as produced by a backend.
// Sunrise may be empty since it comes from a separate API; consumers should
// hide sun and moon data in that case.
type Forecast struct {
	LocationID  string           `json:"locationId"`
	TimeCreated time.Time        `json:"timeCreated"`
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	Backend     Backend          `json:"backend"`
	Hourly      []HourlyForecast `json:"hourlyForecasts"`
	Daily       []DailyForecast  `json:"dailyForecasts"`
	Sunrise     []Sunrise        `json:"sunrise,omitempty"`
}

// IsEmpty reports whether the forecast carries no hourly or no daily data.
func (f Forecast) IsEmpty() bool {
	return len(f.Hourly) == 0 || len(f.Daily) == 0
}

// NewerThan reports whether f was created strictly after other.
func (f Forecast) NewerThan(other Forecast) bool {
	return f.TimeCreated.After(other.TimeCreated)
}
