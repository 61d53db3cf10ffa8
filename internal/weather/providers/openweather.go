package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-forecast/internal/weather"
)

const owmForecastURL = "https://api.openweathermap.org/data/2.5/forecast"

// ErrMissingToken is returned when no OpenWeatherMap API key is configured.
var ErrMissingToken = errors.New("openweathermap api key is not configured")

// OpenWeatherProvider implements weather.ForecastProvider for the
// OpenWeatherMap 5 day / 3 hour forecast.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: owmForecastURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("openweather"),
		now:     time.Now,
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

// WithBackoff overrides the retry policy.
func (p *OpenWeatherProvider) WithBackoff(b BackoffConfig) *OpenWeatherProvider {
	p.httpCfg.Backoff = b
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Backend() weather.Backend {
	return weather.BackendOWM
}

type owmItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Pressure float64 `json:"pressure"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Rain struct {
		ThreeHours float64 `json:"3h"`
	} `json:"rain"`
	Snow struct {
		ThreeHours float64 `json:"3h"`
	} `json:"snow"`
}

type owmPayload struct {
	Cod  json.RawMessage `json:"cod"`
	List []owmItem       `json:"list"`
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int    `json:"timezone"`
		Coord    struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
	} `json:"city"`
}

// code returns the status the API reported in the body. OWM sends it as a
// string on success and as a number on some errors.
func (pl owmPayload) code() int {
	raw := strings.Trim(string(pl.Cod), `" `)
	if raw == "" {
		return http.StatusOK
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return http.StatusOK
	}
	return code
}

func (pl owmPayload) err() error {
	switch code := pl.code(); {
	case code == http.StatusUnauthorized:
		return ErrTokenInvalid
	case code == http.StatusTooManyRequests:
		return ErrTooManyCalls
	case code < 200 || code >= 300:
		return fmt.Errorf("%w: cod %d", errUnexpected, code)
	}
	return nil
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, loc weather.Location) (weather.Forecast, error) {
	if p.apiKey == "" {
		return weather.Forecast{}, ErrMissingToken
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
		values.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Forecast{}, err
	}
	defer resp.Body.Close()

	var payload owmPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("decode openweathermap forecast: %w", err)
	}
	if err := payload.err(); err != nil {
		return weather.Forecast{}, err
	}

	return p.normalize(loc, payload), nil
}

// zone prefers the configured IANA zone and falls back to the fixed offset
// reported by the API.
func (p *OpenWeatherProvider) zone(loc weather.Location, payload owmPayload) *time.Location {
	if loc.TimeZone != "" {
		return loc.Zone()
	}
	return time.FixedZone("", payload.City.Timezone)
}

func (p *OpenWeatherProvider) normalize(loc weather.Location, payload owmPayload) weather.Forecast {
	zone := p.zone(loc, payload)
	days := weather.NewDayBuilder(zone)
	hours := make([]weather.HourlyForecast, 0, len(payload.List))

	for _, item := range payload.List {
		ts := time.Unix(item.Dt, 0).In(zone)

		var iconID, desc string
		if len(item.Weather) > 0 {
			iconID = item.Weather[0].Icon
			desc = item.Weather[0].Description
		}
		neutral := weather.NeutralIcon(weather.OWMRawIcon(iconID))

		h := weather.HourlyForecast{
			Date:                ts,
			WeatherDescription:  desc,
			WeatherIcon:         weather.OWMIcon(weather.FallbackIsDayTime(ts, zone), iconID),
			NeutralWeatherIcon:  neutral,
			SymbolCode:          iconID,
			Temperature:         item.Main.Temp,
			Pressure:            item.Main.Pressure,
			WindDirection:       weather.WindDirectionFromDegrees(item.Wind.Deg),
			WindSpeed:           item.Wind.Speed,
			Humidity:            item.Main.Humidity,
			Fog:                 -1,
			UVIndex:             -1,
			PrecipitationAmount: item.Rain.ThreeHours + item.Snow.ThreeHours,
			Condition:           weather.ConditionFromIcon(neutral),
		}
		hours = append(hours, h)
		days.AddHour(h)
		days.AddTempRange(ts, item.Main.TempMax, item.Main.TempMin)
	}

	lat, lon := loc.Latitude, loc.Longitude
	if !loc.HasCoordinates() {
		lat, lon = payload.City.Coord.Lat, payload.City.Coord.Lon
	}

	return weather.Forecast{
		LocationID:  loc.ID,
		TimeCreated: p.now(),
		Latitude:    lat,
		Longitude:   lon,
		Backend:     weather.BackendOWM,
		Hourly:      hours,
		Daily:       days.Days(),
	}
}
