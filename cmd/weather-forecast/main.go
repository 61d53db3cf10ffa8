package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/config"
	"github.com/i474232898/weather-forecast/internal/logging"
	"github.com/i474232898/weather-forecast/internal/weather"
	"github.com/i474232898/weather-forecast/internal/weather/providers"
)

var (
	// Global flags
	logLevel string

	cfg    *config.AppConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "weather-forecast",
	Short: "Forecast service for the met.no and OpenWeatherMap backends",
	Long: `weather-forecast polls met.no (NMI) and OpenWeatherMap (OWM) for the configured
locations, normalizes both into one hourly and daily model enriched with sun and
moon data, keeps the newest forecast per location in a disk cache and serves it
over a JSON API.

Run without arguments to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		logger, err = logging.New(level)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default $LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd, fetchCmd, cacheCmd)
}

// newService wires the providers for both backends into a Service.
// cache and recorder may be nil.
func newService(cfg *config.AppConfig, st weather.Store, cache weather.Cache, recorder weather.Recorder) *weather.Service {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	provs := []weather.ForecastProvider{
		providers.NewNMIProvider(client, cfg.UserAgent),
		providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey),
	}

	var geocoder weather.Geocoder
	if cfg.GoogleAPIKey != "" {
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleAPIKey)
	}
	var timeZones weather.TimeZoneResolver
	if cfg.GeoNamesUsername != "" {
		timeZones = providers.NewGeoNamesTimeZones(client, cfg.GeoNamesUsername)
	}

	return weather.NewService(st, cache, provs, providers.NewNMISunriseProvider(client, cfg.UserAgent), weather.Options{
		MinRefreshAge:  cfg.MinRefreshAge,
		DefaultBackend: cfg.DefaultBackend,
		Concurrency:    cfg.FetchConcurrency,
		Geocoder:       geocoder,
		TimeZones:      timeZones,
		Recorder:       recorder,
		Logger:         logger,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
