package store

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/weather"
)

const defaultDebounce = 250 * time.Millisecond

// CacheWatcher watches the cache directory for forecasts written by other
// processes and hands each changed forecast to a callback. It can be started
// again after Stop.
type CacheWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	onChange func(weather.Forecast)
	logger   *zap.Logger

	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewCacheWatcher creates a watcher for dir. onChange runs on the watcher goroutine.
func NewCacheWatcher(dir string, onChange func(weather.Forecast), logger *zap.Logger) (*CacheWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWatcher{
		watcher:     w,
		dir:         dir,
		onChange:    onChange,
		logger:      logger,
		debounceDur: defaultDebounce,
	}, nil
}

// Start begins watching. It does not block.
func (cw *CacheWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.running {
		return nil
	}

	// Stop closes the fsnotify watcher.
	if cw.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		cw.watcher = w
	}
	if err := cw.watcher.Add(cw.dir); err != nil {
		return err
	}

	cw.stopCh = make(chan struct{})
	cw.doneCh = make(chan struct{})
	cw.running = true
	cw.logger.Info("watching forecast cache", zap.String("dir", cw.dir))

	go cw.run(ctx, cw.watcher, cw.stopCh, cw.doneCh)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (cw *CacheWatcher) Stop() {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return
	}
	cw.running = false
	w, stopCh, doneCh := cw.watcher, cw.stopCh, cw.doneCh
	cw.watcher = nil
	cw.mu.Unlock()

	close(stopCh)
	<-doneCh

	if err := w.Close(); err != nil {
		cw.logger.Warn("closing cache watcher", zap.Error(err))
	}
}

func (cw *CacheWatcher) run(ctx context.Context, w *fsnotify.Watcher, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(cw.debounceDur / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			cw.handleEvent(pending, event)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("cache watcher error", zap.Error(err))
		case <-ticker.C:
			cw.flush(pending, time.Now())
		}
	}
}

func (cw *CacheWatcher) handleEvent(pending map[string]time.Time, event fsnotify.Event) {
	if !IsCacheFile(event.Name) {
		return
	}
	// Atomic writes show up as Create (rename target) or Write.
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	pending[event.Name] = time.Now()
}

func (cw *CacheWatcher) flush(pending map[string]time.Time, now time.Time) {
	for path, seen := range pending {
		if now.Sub(seen) < cw.debounceDur {
			continue
		}
		delete(pending, path)

		f, err := ReadFile(path)
		if err != nil {
			cw.logger.Debug("ignoring cache change", zap.String("path", path), zap.Error(err))
			continue
		}
		cw.onChange(f)
	}
}
