package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/weather-forecast/internal/config"
	"github.com/i474232898/weather-forecast/internal/store"
	"github.com/i474232898/weather-forecast/internal/weather"
)

func TestCacheList(t *testing.T) {
	dir := t.TempDir()
	cfg = &config.AppConfig{CacheDir: dir}
	logger = zaptest.NewLogger(t)
	staleAfter = defaultStaleAfter

	cache, err := store.NewDiskCache(dir, logger)
	require.NoError(t, err)
	require.NoError(t, cache.Write(weather.Forecast{
		LocationID:  "oslo",
		Backend:     weather.BackendNMI,
		TimeCreated: time.Now().Add(-10 * time.Minute),
		Hourly:      make([]weather.HourlyForecast, 3),
		Daily:       make([]weather.DailyForecast, 1),
	}))
	require.NoError(t, cache.Write(weather.Forecast{
		LocationID:  "berlin",
		Backend:     weather.BackendOWM,
		TimeCreated: time.Now().Add(-5 * time.Hour),
	}))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runCacheList(cmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "LOCATION"))

	berlin := strings.Fields(lines[1])
	assert.Equal(t, "berlin", berlin[0])
	assert.Equal(t, "owm", berlin[1])
	assert.Equal(t, "true", berlin[len(berlin)-1])

	oslo := strings.Fields(lines[2])
	assert.Equal(t, "oslo", oslo[0])
	assert.Equal(t, []string{"3", "1", "0", "false"}, oslo[3:])
}

func TestCacheListEmpty(t *testing.T) {
	cfg = &config.AppConfig{CacheDir: t.TempDir()}
	logger = zaptest.NewLogger(t)

	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	require.NoError(t, runCacheList(cmd, nil))

	assert.Contains(t, errOut.String(), "no cached forecasts")
}

func TestFetchRequiresPlace(t *testing.T) {
	fetchLat, fetchLon, fetchCity = 0, 0, ""
	err := runFetch(&cobra.Command{}, nil)
	assert.ErrorContains(t, err, "--lat/--lon or --city")
}
