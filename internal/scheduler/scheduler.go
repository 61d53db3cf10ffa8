package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/weather"
)

const (
	// OWMInitialDelay postpones the first OpenWeatherMap fetch; its free tier
	// counts calls, and a fresh cache is usually available at startup.
	OWMInitialDelay = 3 * time.Hour
	owmInitialJitter = 30 * time.Minute

	minIntervalMinutes = 60
	maxIntervalMinutes = 90

	defaultFetchTimeout = 30 * time.Second
)

// Refresher is the part of weather.Service the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context, id string) (weather.Forecast, error)
}

// Scheduler keeps one polling job per tracked location.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	logger    *zap.Logger
	timeout   time.Duration

	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

// New creates a new Scheduler.
func New(service Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		logger:    logger,
		timeout:   defaultFetchTimeout,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// firstRun returns when the first fetch of loc should happen, or the zero
// time to run immediately.
func (s *Scheduler) firstRun(loc weather.Location) time.Time {
	if loc.Backend != weather.BackendOWM {
		return time.Time{}
	}
	s.mu.Lock()
	jitter := time.Duration(s.rand.Int63n(int64(owmInitialJitter)))
	s.mu.Unlock()
	return s.now().Add(OWMInitialDelay + jitter)
}

// Track schedules polling for loc, replacing any job it already had.
func (s *Scheduler) Track(loc weather.Location) error {
	s.Untrack(loc.ID)

	job := s.scheduler.EveryRandom(minIntervalMinutes, maxIntervalMinutes).Minutes().
		Tag(loc.ID).
		SingletonMode()
	if at := s.firstRun(loc); !at.IsZero() {
		job = job.StartAt(at)
	}

	id := loc.ID
	_, err := job.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.service.Refresh(ctx, id); err != nil {
			s.logger.Warn("scheduled refresh failed", zap.String("location", id), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.logger.Debug("location scheduled",
		zap.String("location", id),
		zap.String("backend", string(loc.Backend)),
	)
	return nil
}

// Untrack removes the polling job of a location.
func (s *Scheduler) Untrack(id string) {
	if err := s.scheduler.RemoveByTag(id); err != nil && !errors.Is(err, gocron.ErrJobNotFoundWithTag) {
		s.logger.Warn("failed to remove job", zap.String("location", id), zap.Error(err))
	}
}

// Tracked reports whether a location has a polling job.
func (s *Scheduler) Tracked(id string) bool {
	jobs, err := s.scheduler.FindJobsByTag(id)
	return err == nil && len(jobs) > 0
}

// Start schedules every location and starts the underlying scheduler.
func (s *Scheduler) Start(locations []weather.Location) error {
	if len(locations) == 0 {
		s.logger.Info("scheduler: no locations configured; nothing to schedule yet")
	}
	for _, loc := range locations {
		if err := s.Track(loc); err != nil {
			return err
		}
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
