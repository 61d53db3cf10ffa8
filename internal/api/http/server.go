package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/weather"
)

// Registry is both where collectors are registered and where /metrics reads them.
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Options configures NewApp.
type Options struct {
	Service  *weather.Service
	Tracker  Tracker
	Registry Registry
	Logger   *zap.Logger
}

// NewApp builds the Fiber app with middleware, /metrics and the API routes.
func NewApp(opts Options) (*fiber.App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	prom, err := NewPrometheusMiddleware(reg)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(RequestID())
	app.Use(Logger(logger))
	app.Use(prom.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	RegisterRoutes(app, opts.Service, opts.Tracker, logger)
	return app, nil
}
