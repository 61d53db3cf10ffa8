package providers

import (
	"bytes"
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

const nmiSunriseURL = "https://api.met.no/weatherapi/sunrise/2.0/.json"

// NMISunriseProvider implements weather.SunriseProvider using the met.no
// sunrise API.
type NMISunriseProvider struct {
	baseURL   string
	userAgent string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewNMISunriseProvider(client *http.Client, userAgent string) *NMISunriseProvider {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &NMISunriseProvider{
		baseURL:   nmiSunriseURL,
		userAgent: userAgent,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("nmi-sunrise"),
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *NMISunriseProvider) WithBaseURL(u string) *NMISunriseProvider {
	p.baseURL = u
	return p
}

// WithBackoff overrides the retry policy.
func (p *NMISunriseProvider) WithBackoff(b BackoffConfig) *NMISunriseProvider {
	p.httpCfg.Backoff = b
	return p
}

// numeric accepts both quoted and bare JSON numbers; the API quotes elevations.
type numeric float64

func (n *numeric) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*n = numeric(v)
	return nil
}

type sunEvent struct {
	Time      string  `json:"time"`
	Elevation numeric `json:"elevation"`
}

type sunriseDay struct {
	Date          string    `json:"date"`
	Sunrise       *sunEvent `json:"sunrise"`
	Sunset        *sunEvent `json:"sunset"`
	Moonrise      *sunEvent `json:"moonrise"`
	Moonset       *sunEvent `json:"moonset"`
	SolarNoon     *sunEvent `json:"solarnoon"`
	SolarMidnight *sunEvent `json:"solarmidnight"`
	HighMoon      *sunEvent `json:"high_moon"`
	LowMoon       *sunEvent `json:"low_moon"`
	MoonPosition  *struct {
		Phase numeric `json:"phase"`
	} `json:"moonposition"`
}

type sunrisePayload struct {
	Location struct {
		Time []sunriseDay `json:"time"`
	} `json:"location"`
}

// FormatOffset renders a UTC offset in seconds as ±HH:MM.
func FormatOffset(secs int) string {
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("%s%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

func (p *NMISunriseProvider) FetchSunrise(ctx context.Context, loc weather.Location, req weather.SunriseRequest) ([]weather.Sunrise, error) {
	zone := loc.Zone()
	date := req.Date.In(zone)
	_, offset := date.Zone()

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
		values.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))
		values.Set("date", date.Format("2006-01-02"))
		values.Set("days", strconv.Itoa(req.Days))
		values.Set("offset", FormatOffset(offset))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("User-Agent", p.userAgent)
		return r, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload sunrisePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode met.no sunrise: %w", err)
	}

	out := make([]weather.Sunrise, 0, len(payload.Location.Time))
	for _, day := range payload.Location.Time {
		s := weather.Sunrise{
			SunRise:       eventTime(day.Sunrise, zone),
			SunSet:        eventTime(day.Sunset, zone),
			MoonRise:      eventTime(day.Moonrise, zone),
			MoonSet:       eventTime(day.Moonset, zone),
			SolarNoon:     elevation(day.SolarNoon, zone),
			SolarMidnight: elevation(day.SolarMidnight, zone),
			HighMoon:      elevation(day.HighMoon, zone),
			LowMoon:       elevation(day.LowMoon, zone),
		}
		if day.MoonPosition != nil {
			s.MoonPhase = float64(day.MoonPosition.Phase)
		}
		// A day without sunrise or solar noon cannot be placed on the calendar.
		if s.SunRise.IsZero() && s.SolarNoon.Time.IsZero() {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func eventTime(e *sunEvent, zone *time.Location) time.Time {
	if e == nil || e.Time == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, e.Time)
	if err != nil {
		return time.Time{}
	}
	return t.In(zone)
}

func elevation(e *sunEvent, zone *time.Location) weather.Elevation {
	if e == nil {
		return weather.Elevation{}
	}
	return weather.Elevation{Time: eventTime(e, zone), Elevation: float64(e.Elevation)}
}
