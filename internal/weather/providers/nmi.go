package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-forecast/internal/weather"
)

const (
	nmiForecastURL   = "https://api.met.no/weatherapi/locationforecast/2.0/complete"
	defaultUserAgent = "weather-forecast/1.0 github.com/i474232898/weather-forecast"
)

// NMIProvider implements weather.ForecastProvider for the Norwegian
// Meteorological Institute locationforecast API (api.met.no).
type NMIProvider struct {
	name      string
	baseURL   string
	userAgent string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
	now       func() time.Time
}

// NewNMIProvider creates a provider. met.no requires an identifying User-Agent.
func NewNMIProvider(client *http.Client, userAgent string) *NMIProvider {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &NMIProvider{
		name:      "met.no",
		baseURL:   nmiForecastURL,
		userAgent: userAgent,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("nmi"),
		now:     time.Now,
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *NMIProvider) WithBaseURL(u string) *NMIProvider {
	p.baseURL = u
	return p
}

// WithBackoff overrides the retry policy.
func (p *NMIProvider) WithBackoff(b BackoffConfig) *NMIProvider {
	p.httpCfg.Backoff = b
	return p
}

func (p *NMIProvider) Name() string {
	return p.name
}

func (p *NMIProvider) Backend() weather.Backend {
	return weather.BackendNMI
}

type nmiDetails struct {
	AirPressureAtSeaLevel *float64 `json:"air_pressure_at_sea_level"`
	AirTemperature        *float64 `json:"air_temperature"`
	AirTemperatureMax     *float64 `json:"air_temperature_max"`
	AirTemperatureMin     *float64 `json:"air_temperature_min"`
	FogAreaFraction       *float64 `json:"fog_area_fraction"`
	RelativeHumidity      *float64 `json:"relative_humidity"`
	UltravioletIndex      *float64 `json:"ultraviolet_index_clear_sky"`
	WindFromDirection     *float64 `json:"wind_from_direction"`
	WindSpeed             *float64 `json:"wind_speed"`
	PrecipitationAmount   *float64 `json:"precipitation_amount"`
}

type nmiPeriod struct {
	Summary struct {
		SymbolCode string `json:"symbol_code"`
	} `json:"summary"`
	Details nmiDetails `json:"details"`
}

type nmiPayload struct {
	Properties struct {
		Timeseries []struct {
			Time string `json:"time"`
			Data struct {
				Instant struct {
					Details nmiDetails `json:"details"`
				} `json:"instant"`
				Next1Hours *nmiPeriod `json:"next_1_hours"`
				Next6Hours *nmiPeriod `json:"next_6_hours"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"properties"`
}

func (p *NMIProvider) FetchForecast(ctx context.Context, loc weather.Location) (weather.Forecast, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
		values.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", p.userAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Forecast{}, err
	}
	defer resp.Body.Close()

	var payload nmiPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("decode met.no forecast: %w", err)
	}

	return p.normalize(loc, payload), nil
}

// normalize maps the met.no timeseries onto the common model. Only entries
// with a next_1_hours block become hourly steps; entries further out that only
// carry next_6_hours still contribute temperature range and precipitation to
// their day.
func (p *NMIProvider) normalize(loc weather.Location, payload nmiPayload) weather.Forecast {
	zone := loc.Zone()
	days := weather.NewDayBuilder(zone)
	hours := make([]weather.HourlyForecast, 0, len(payload.Properties.Timeseries))

	for _, entry := range payload.Properties.Timeseries {
		ts, err := time.Parse(time.RFC3339, entry.Time)
		if err != nil {
			continue
		}
		ts = ts.In(zone)
		instant := entry.Data.Instant.Details

		if next := entry.Data.Next1Hours; next != nil {
			symbol := next.Summary.SymbolCode
			icon, desc := weather.NMISymbol(true, symbol)
			neutral := weather.NMINeutralIcon(symbol)

			h := weather.HourlyForecast{
				Date:                ts,
				WeatherDescription:  desc,
				WeatherIcon:         icon,
				NeutralWeatherIcon:  neutral,
				SymbolCode:          symbol,
				Temperature:         value(instant.AirTemperature, 0),
				Pressure:            value(instant.AirPressureAtSeaLevel, 0),
				WindDirection:       weather.WindDirectionFromDegrees(value(instant.WindFromDirection, 0)),
				WindSpeed:           value(instant.WindSpeed, 0),
				Humidity:            value(instant.RelativeHumidity, 0),
				Fog:                 value(instant.FogAreaFraction, -1),
				UVIndex:             value(instant.UltravioletIndex, -1),
				PrecipitationAmount: value(next.Details.PrecipitationAmount, 0),
				Condition:           weather.ConditionFromIcon(neutral),
			}
			hours = append(hours, h)
			days.AddHour(h)
		} else if next := entry.Data.Next6Hours; next != nil {
			days.AddPrecipitation(ts, value(next.Details.PrecipitationAmount, 0))
			if t := instant.AirTemperature; t != nil {
				days.AddTempRange(ts, *t, *t)
			}
		}

		if next := entry.Data.Next6Hours; next != nil && next.Details.AirTemperatureMax != nil && next.Details.AirTemperatureMin != nil {
			days.AddTempRange(ts, *next.Details.AirTemperatureMax, *next.Details.AirTemperatureMin)
		}
	}

	return weather.Forecast{
		LocationID:  loc.ID,
		TimeCreated: p.now(),
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Backend:     weather.BackendNMI,
		Hourly:      hours,
		Daily:       days.Days(),
	}
}

func value(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
