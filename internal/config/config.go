package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-forecast/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey string
	GoogleAPIKey      string
	GeoNamesUsername  string
	UserAgent         string `validate:"required"`

	DefaultBackend weather.Backend `validate:"oneof=nmi owm"`

	// Locations to track, from LOCATIONS_FILE and WEATHER_LOCATION_CITY/COUNTRY.
	LocationsFile string
	Locations     []weather.Location

	// MinRefreshAge is how long a fresh forecast is served without refetching.
	MinRefreshAge    time.Duration `validate:"gt=0"`
	HTTPTimeout      time.Duration `validate:"gt=0"`
	FetchConcurrency int           `validate:"gte=1"`

	// In-memory store retention.
	StoreMaxHistory int           `validate:"gte=0"` // max number of forecasts per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of forecasts (0 = unlimited)

	CacheDir   string `validate:"required"`
	WatchCache bool

	LogLevel string `validate:"oneof=debug info warn error"`
	Port     string `validate:"required,numeric"`
}

// locationEntry is one location in the YAML locations file.
type locationEntry struct {
	ID        string  `yaml:"id" validate:"omitempty,excludesall=/\\"`
	Name      string  `yaml:"name"`
	City      string  `yaml:"city" validate:"required_without_all=Latitude Longitude"`
	Country   string  `yaml:"country"`
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	TimeZone  string  `yaml:"timezone" validate:"omitempty,timezone"`
	Backend   string  `yaml:"backend" validate:"omitempty,oneof=nmi owm"`
}

type locationsFile struct {
	Locations []locationEntry `yaml:"locations" validate:"dive"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	cfg.GeoNamesUsername = os.Getenv("GEONAMES_USERNAME")
	cfg.UserAgent = getenvDefault("NMI_USER_AGENT", "weather-forecast/1.0 github.com/i474232898/weather-forecast")
	cfg.DefaultBackend = weather.Backend(strings.ToLower(getenvDefault("DEFAULT_BACKEND", string(weather.BackendNMI))))

	var err error
	if cfg.MinRefreshAge, err = getenvDuration("MIN_REFRESH_AGE", weather.DefaultMinRefreshAge); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	cfg.FetchConcurrency = getenvInt("FETCH_CONCURRENCY", 4)

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 48)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 48*time.Hour); err != nil {
		return nil, err
	}

	cfg.CacheDir = getenvDefault("CACHE_DIR", defaultCacheDir())
	cfg.WatchCache = getenvBool("WATCH_CACHE", true)
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.LocationsFile = os.Getenv("LOCATIONS_FILE")
	if cfg.LocationsFile != "" {
		locs, err := LoadLocations(cfg.LocationsFile)
		if err != nil {
			return nil, err
		}
		cfg.Locations = append(cfg.Locations, locs...)
	}

	locs, err := loadEnvLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = append(cfg.Locations, locs...)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadLocations reads and validates a YAML locations file.
func LoadLocations(path string) ([]weather.Location, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}

	var file locationsFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("parse locations file %s: %w", path, err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid locations file %s: %w", path, err)
	}

	locs := make([]weather.Location, 0, len(file.Locations))
	for _, e := range file.Locations {
		id := e.ID
		if id == "" {
			id = stableID(e.City, e.Country, e.Latitude, e.Longitude)
		}
		locs = append(locs, weather.Location{
			ID:        id,
			Name:      e.Name,
			City:      e.City,
			Country:   e.Country,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			TimeZone:  e.TimeZone,
			Backend:   weather.Backend(e.Backend),
		})
	}
	return locs, nil
}

// loadEnvLocations reads the comma separated WEATHER_LOCATION_CITY and
// WEATHER_LOCATION_COUNTRY lists. They are geocoded when added.
func loadEnvLocations() ([]weather.Location, error) {
	city := os.Getenv("WEATHER_LOCATION_CITY")
	country := os.Getenv("WEATHER_LOCATION_COUNTRY")
	if city == "" && country == "" {
		return nil, nil
	}
	cities := strings.Split(city, ",")
	countries := strings.Split(country, ",")
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}
	var locs []weather.Location
	for i := range cities {
		c := strings.TrimSpace(cities[i])
		if c == "" {
			continue
		}
		cc := strings.TrimSpace(countries[i])
		locs = append(locs, weather.Location{
			ID:      stableID(c, cc, 0, 0),
			Name:    c,
			City:    c,
			Country: cc,
		})
	}

	return locs, nil
}

// stableID derives the ID of a configured location from its place name, or
// from its coordinates when it has none. The disk cache is keyed by ID, so it
// must not change between restarts.
func stableID(city, country string, lat, lon float64) string {
	if city != "" {
		if id := slug(city + " " + country); id != "" {
			return id
		}
	}
	ns, ew := "n", "e"
	if lat < 0 {
		ns = "s"
	}
	if lon < 0 {
		ew = "w"
	}
	return slug(fmt.Sprintf("%s%.4f %s%.4f", ns, math.Abs(lat), ew, math.Abs(lon)))
}

// slug lowercases s and joins its runs of letters and digits with dashes.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "weather-forecast")
	}
	return filepath.Join(os.TempDir(), "weather-forecast")
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
