package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/weather"
)

var validate = validator.New()

// Tracker keeps polling jobs in sync with the location registry.
type Tracker interface {
	Track(loc weather.Location) error
	Untrack(id string)
}

type handlers struct {
	service *weather.Service
	tracker Tracker
	logger  *zap.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. tracker may be nil.
func RegisterRoutes(app *fiber.App, service *weather.Service, tracker Tracker, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{service: service, tracker: tracker, logger: logger}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "weather-forecast",
			"locations": len(service.Locations()),
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/locations", h.listLocations)
	v1.Post("/locations", h.addLocation)
	v1.Get("/locations/:id", h.getLocation)
	v1.Delete("/locations/:id", h.removeLocation)
	v1.Put("/locations/:id/backend", h.changeBackend)
	v1.Post("/locations/:id/move", h.moveLocation)
	v1.Post("/locations/:id/refresh", h.refresh)

	v1.Get("/locations/:id/forecast", h.forecast)
	v1.Get("/locations/:id/current", h.current)
	v1.Get("/locations/:id/days", h.days)
	v1.Get("/locations/:id/hours", h.hours)
	v1.Get("/locations/:id/history", h.history)
}

// createLocationRequest is the body of POST /locations. Either coordinates or
// a city must be given.
type createLocationRequest struct {
	ID        string  `json:"locationId" validate:"omitempty,excludesall=/\\"`
	Name      string  `json:"locationName"`
	City      string  `json:"city" validate:"required_without_all=Latitude Longitude"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	TimeZone  string  `json:"timezone" validate:"omitempty,timezone"`
	Backend   string  `json:"backend" validate:"omitempty,oneof=nmi owm"`
	Index     *int    `json:"index" validate:"omitempty,gte=0"`
}

func (r createLocationRequest) toLocation() weather.Location {
	return weather.Location{
		ID:        r.ID,
		Name:      r.Name,
		City:      r.City,
		Country:   r.Country,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		TimeZone:  r.TimeZone,
		Backend:   weather.Backend(r.Backend),
	}
}

type changeBackendRequest struct {
	Backend string `json:"backend" validate:"required,oneof=nmi owm"`
}

type moveLocationRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

func bindBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return badRequest("INVALID_BODY", "request body must be valid JSON")
	}
	if err := validate.Struct(dst); err != nil {
		return badRequest("VALIDATION_FAILED", err.Error())
	}
	return nil
}

func (h *handlers) track(loc weather.Location) {
	if h.tracker == nil {
		return
	}
	if err := h.tracker.Track(loc); err != nil {
		h.logger.Warn("failed to schedule location", zap.String("location", loc.ID), zap.Error(err))
	}
}

func (h *handlers) listLocations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"locations": h.service.Locations()})
}

func (h *handlers) addLocation(c *fiber.Ctx) error {
	var req createLocationRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	var (
		loc weather.Location
		err error
	)
	if req.Index != nil {
		loc, err = h.service.InsertLocation(c.UserContext(), *req.Index, req.toLocation())
	} else {
		loc, err = h.service.AddLocation(c.UserContext(), req.toLocation())
	}
	if err != nil {
		return err
	}

	h.track(loc)
	return c.Status(fiber.StatusCreated).JSON(loc)
}

func (h *handlers) getLocation(c *fiber.Ctx) error {
	loc, err := h.service.Location(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(loc)
}

func (h *handlers) removeLocation(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.RemoveLocation(id); err != nil {
		return err
	}
	if h.tracker != nil {
		h.tracker.Untrack(id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) changeBackend(c *fiber.Ctx) error {
	var req changeBackendRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	loc, err := h.service.ChangeBackend(c.UserContext(), c.Params("id"), weather.Backend(req.Backend))
	if loc.ID == "" {
		return err
	}
	h.track(loc)

	// The switch itself succeeded; a failed refresh leaves the old forecast in place.
	if err != nil {
		h.logger.Warn("refresh after backend change failed", zap.String("location", loc.ID), zap.Error(err))
	}
	return c.JSON(loc)
}

func (h *handlers) moveLocation(c *fiber.Ctx) error {
	var req moveLocationRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	if err := h.service.MoveLocationByID(c.Params("id"), *req.Index); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"locations": h.service.Locations()})
}

func (h *handlers) refresh(c *fiber.Ctx) error {
	fc, err := h.service.Refresh(c.UserContext(), c.Params("id"))
	if err != nil {
		return upstream(err)
	}
	return c.JSON(fc)
}

func (h *handlers) forecast(c *fiber.Ctx) error {
	fc, err := h.service.Forecast(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fc)
}

func (h *handlers) current(c *fiber.Ctx) error {
	hour, err := h.service.Current(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(hour)
}

func (h *handlers) days(c *fiber.Ctx) error {
	days, err := h.service.Days(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"dailyForecasts": days})
}

func (h *handlers) hours(c *fiber.Ctx) error {
	hours, err := h.service.Hours(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"hourlyForecasts": hours})
}

func (h *handlers) history(c *fiber.Ctx) error {
	var q historyQuery
	if err := q.bind(c); err != nil {
		return badRequest("INVALID_RANGE", err.Error())
	}

	id := c.Params("id")
	forecasts, err := h.service.History(id, q.From, q.To)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"locationId": id,
		"from":       q.From,
		"to":         q.To,
		"forecasts":  forecasts,
	})
}

// historyQuery holds the optional from/to bounds of the history endpoint.
type historyQuery struct {
	From time.Time
	To   time.Time
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	if s := c.Query("from"); s != "" {
		from, err := parseTime(s)
		if err != nil {
			return err
		}
		h.From = from
	}
	if s := c.Query("to"); s != "" {
		to, err := parseTime(s)
		if err != nil {
			return err
		}
		h.To = to
	}
	if !h.To.IsZero() && h.To.Before(h.From) {
		return errors.New("to must not be before from")
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
