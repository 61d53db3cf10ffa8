package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/weather"
)

// CacheSuffix is appended to the location id to form a cache file name.
const CacheSuffix = ".cache.json"

// ErrInvalidID is returned for location ids that cannot be used as file names.
var ErrInvalidID = errors.New("invalid location id for cache file")

// DiskCache persists the newest forecast of every location as one JSON file
// per location under a single directory.
type DiskCache struct {
	mu     sync.Mutex
	dir    string
	mode   os.FileMode
	logger *zap.Logger
}

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string, logger *zap.Logger) (*DiskCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir, mode: 0o644, logger: logger}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	return c.dir
}

// Path returns the cache file of a location.
func (c *DiskCache) Path(locationID string) (string, error) {
	if locationID == "" || locationID == "." || locationID == ".." ||
		strings.ContainsAny(locationID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, locationID)
	}
	return filepath.Join(c.dir, locationID+CacheSuffix), nil
}

// IsCacheFile reports whether path names a forecast cache file.
func IsCacheFile(path string) bool {
	return strings.HasSuffix(filepath.Base(path), CacheSuffix)
}

// Write replaces the cached forecast of f's location.
func (c *DiskCache) Write(f weather.Forecast) error {
	path, err := c.Path(f.LocationID)
	if err != nil {
		return err
	}
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeFile(path, b, c.mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes a single cache file.
func ReadFile(path string) (weather.Forecast, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return weather.Forecast{}, err
	}
	var f weather.Forecast
	if err := json.Unmarshal(b, &f); err != nil {
		return weather.Forecast{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if f.LocationID == "" {
		return weather.Forecast{}, fmt.Errorf("decode %s: missing location id", path)
	}
	return f, nil
}

// Load reads every cache file and returns the newest forecast per location.
// Unreadable files are logged and skipped.
func (c *DiskCache) Load() (map[string]weather.Forecast, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]weather.Forecast{}, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	out := make(map[string]weather.Forecast, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsCacheFile(e.Name()) {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		f, err := ReadFile(path)
		if err != nil {
			c.logger.Warn("skipping unreadable cache file", zap.String("path", path), zap.Error(err))
			continue
		}
		if have, ok := out[f.LocationID]; ok && !f.NewerThan(have) {
			continue
		}
		out[f.LocationID] = f
	}
	return out, nil
}

// Remove deletes the cached forecast of a location. A missing file is not an error.
func (c *DiskCache) Remove(locationID string) error {
	path, err := c.Path(locationID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// writeFile writes b to path atomically via a temp file and rename.
func writeFile(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
