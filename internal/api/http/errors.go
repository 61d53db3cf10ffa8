package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-forecast/internal/store"
	"github.com/i474232898/weather-forecast/internal/weather"
	"github.com/i474232898/weather-forecast/internal/weather/providers"
)

// errorPayload is the error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiError is returned by handlers and rendered by ErrorHandler.
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string {
	return e.message
}

func newAPIError(status int, code, message string) *apiError {
	return &apiError{status: status, code: code, message: message}
}

func badRequest(code, message string) *apiError {
	return newAPIError(fiber.StatusBadRequest, code, message)
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// classify maps domain errors to a status, a machine-readable code and a
// message safe to return to clients.
func classify(err error) (int, string, string) {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		return ae.status, ae.code, ae.message
	case errors.Is(err, weather.ErrUnknownLocation):
		return fiber.StatusNotFound, "LOCATION_NOT_FOUND", "location not found"
	case errors.Is(err, weather.ErrNoForecast), errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound, "FORECAST_NOT_FOUND", "no forecast available"
	case errors.Is(err, weather.ErrDuplicateLocation):
		return fiber.StatusConflict, "LOCATION_EXISTS", "location already exists"
	case errors.Is(err, weather.ErrIndexOutOfRange):
		return fiber.StatusBadRequest, "INDEX_OUT_OF_RANGE", "location index out of range"
	case errors.Is(err, weather.ErrUnknownBackend):
		return fiber.StatusBadRequest, "UNKNOWN_BACKEND", "unknown weather backend"
	case errors.Is(err, weather.ErrNoCoordinates):
		return fiber.StatusBadRequest, "NO_COORDINATES", "location has no coordinates and could not be geocoded"
	case errors.Is(err, weather.ErrGeocode):
		return fiber.StatusBadGateway, "GEOCODE_FAILED", "location could not be geocoded"
	case errors.Is(err, weather.ErrNoProvider):
		return fiber.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "backend is not configured"
	case errors.Is(err, providers.ErrTokenInvalid), errors.Is(err, providers.ErrMissingToken):
		return fiber.StatusBadGateway, "TOKEN_INVALID", "upstream api token invalid"
	case errors.Is(err, providers.ErrTooManyCalls):
		return fiber.StatusServiceUnavailable, "TOO_MANY_CALLS", "upstream api rate limit reached"
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusBadRequest:
			return fe.Code, "BAD_REQUEST", "bad request"
		case fiber.StatusNotFound:
			return fe.Code, "NOT_FOUND", "resource not found"
		case fiber.StatusMethodNotAllowed:
			return fe.Code, "METHOD_NOT_ALLOWED", "method not allowed"
		case fiber.StatusUnprocessableEntity:
			return fe.Code, "UNPROCESSABLE_ENTITY", "unprocessable entity"
		}
		return fe.Code, "ERROR", fe.Message
	}
	return fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
}

// upstream marks an unclassified refresh failure as a gateway error.
func upstream(err error) error {
	if status, _, _ := classify(err); status != fiber.StatusInternalServerError {
		return err
	}
	return newAPIError(fiber.StatusBadGateway, "UPSTREAM_ERROR", "failed to fetch forecast")
}

// ErrorHandler returns a Fiber error handler writing the error envelope.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, code, message := classify(err)
		return writeError(c, status, code, message)
	}
}
