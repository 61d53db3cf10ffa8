package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-forecast/internal/store"
	"github.com/i474232898/weather-forecast/internal/weather"
)

var (
	fetchLat     float64
	fetchLon     float64
	fetchCity    string
	fetchCountry string
	fetchBackend string
	fetchTZ      string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch one normalized forecast and print it as JSON",
	Long: `Fetches a forecast for a single place from the chosen backend, including the
sunrise window, and prints the normalized result. Nothing is cached.

Example:
  weather-forecast fetch --lat 59.91 --lon 10.75 --tz Europe/Oslo
  weather-forecast fetch --city Paris --country FR --backend owm`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Float64Var(&fetchLat, "lat", 0, "latitude")
	fetchCmd.Flags().Float64Var(&fetchLon, "lon", 0, "longitude")
	fetchCmd.Flags().StringVar(&fetchCity, "city", "", "city to geocode when no coordinates are given (needs GOOGLE_API_KEY)")
	fetchCmd.Flags().StringVar(&fetchCountry, "country", "", "country of --city")
	fetchCmd.Flags().StringVar(&fetchBackend, "backend", "", "nmi or owm (default $DEFAULT_BACKEND)")
	fetchCmd.Flags().StringVar(&fetchTZ, "tz", "", "IANA time zone used to group days (looked up when GEONAMES_USERNAME is set)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	if fetchLat == 0 && fetchLon == 0 && fetchCity == "" {
		return errors.New("either --lat/--lon or --city is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newService(cfg, store.NewMemoryStore(1, 0), nil, nil)
	loc, err := svc.AddLocation(ctx, weather.Location{
		Name:      fetchCity,
		City:      fetchCity,
		Country:   fetchCountry,
		Latitude:  fetchLat,
		Longitude: fetchLon,
		TimeZone:  fetchTZ,
		Backend:   weather.Backend(fetchBackend),
	})
	if err != nil {
		return err
	}

	fc, err := svc.Refresh(ctx, loc.ID)
	if err != nil {
		return fmt.Errorf("fetch forecast: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}
