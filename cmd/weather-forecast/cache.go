package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-forecast/internal/store"
)

// defaultStaleAfter matches the longest polling interval.
const defaultStaleAfter = 90 * time.Minute

var staleAfter time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the forecast cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached forecasts, newest per location",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

func init() {
	cacheListCmd.Flags().DurationVar(&staleAfter, "stale-after", defaultStaleAfter, "age after which a forecast is reported stale")
	cacheCmd.AddCommand(cacheListCmd)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	cache, err := store.NewDiskCache(cfg.CacheDir, logger)
	if err != nil {
		return err
	}
	cached, err := cache.Load()
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(cached))
	for id := range cached {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOCATION\tBACKEND\tCREATED\tHOURS\tDAYS\tSUNRISE\tSTALE")
	for _, id := range ids {
		f := cached[id]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
			id,
			f.Backend,
			f.TimeCreated.Local().Format(time.RFC3339),
			len(f.Hourly),
			len(f.Daily),
			len(f.Sunrise),
			now.Sub(f.TimeCreated) > staleAfter,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "no cached forecasts in %s\n", cache.Dir())
	}
	return nil
}
