package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
)

const geoNamesTimeZoneURL = "https://secure.geonames.org/timezoneJSON"

// ErrGeoNamesUser is returned when a time zone lookup is attempted without a GeoNames username.
var ErrGeoNamesUser = errors.New("geonames username is not configured")

// GeoNames answers errors with HTTP 200 and a status object.
const (
	geoNamesAuthError   = 10
	geoNamesDailyLimit  = 18
	geoNamesHourlyLimit = 19
	geoNamesWeeklyLimit = 20
)

// GeoNamesTimeZones implements weather.TimeZoneResolver with the GeoNames
// timezone web service.
type GeoNamesTimeZones struct {
	username string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewGeoNamesTimeZones(client *http.Client, username string) *GeoNamesTimeZones {
	return &GeoNamesTimeZones{
		username: username,
		baseURL:  geoNamesTimeZoneURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("geonames"),
	}
}

// WithBaseURL points the resolver at another endpoint, e.g. a test server.
func (g *GeoNamesTimeZones) WithBaseURL(u string) *GeoNamesTimeZones {
	g.baseURL = u
	return g
}

// WithBackoff overrides the retry policy.
func (g *GeoNamesTimeZones) WithBackoff(b BackoffConfig) *GeoNamesTimeZones {
	g.httpCfg.Backoff = b
	return g
}

type geoNamesTimeZone struct {
	TimezoneID string `json:"timezoneId"`
	Status     *struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	} `json:"status"`
}

func (g *GeoNamesTimeZones) TimeZone(ctx context.Context, lat, lon float64) (string, error) {
	if g.username == "" {
		return "", ErrGeoNamesUser
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
		values.Set("lng", strconv.FormatFloat(lon, 'f', 4, 64))
		values.Set("username", g.username)

		u := fmt.Sprintf("%s?%s", g.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, g.httpCfg, g.circuit, buildRequest)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload geoNamesTimeZone
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode geonames time zone: %w", err)
	}

	if st := payload.Status; st != nil {
		switch st.Value {
		case geoNamesAuthError:
			return "", fmt.Errorf("%w: %s", ErrTokenInvalid, st.Message)
		case geoNamesDailyLimit, geoNamesHourlyLimit, geoNamesWeeklyLimit:
			return "", fmt.Errorf("%w: %s", ErrTooManyCalls, st.Message)
		default:
			return "", fmt.Errorf("geonames time zone: %s (%d)", st.Message, st.Value)
		}
	}
	if payload.TimezoneID == "" {
		return "", fmt.Errorf("geonames time zone: no zone at %.4f,%.4f", lat, lon)
	}
	return payload.TimezoneID, nil
}
