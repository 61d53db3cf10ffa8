package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/weather-forecast/internal/weather"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeRefresher) Refresh(_ context.Context, id string) (weather.Forecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[id]++
	return weather.Forecast{LocationID: id}, nil
}

func (f *fakeRefresher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestScheduler_NMIRunsImmediately(t *testing.T) {
	r := &fakeRefresher{}
	s := New(r, zaptest.NewLogger(t))
	defer s.Stop()

	require.NoError(t, s.Start([]weather.Location{{ID: "oslo", Backend: weather.BackendNMI}}))

	require.Eventually(t, func() bool { return r.count("oslo") == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, s.Tracked("oslo"))
}

func TestScheduler_OWMFirstRunIsDelayed(t *testing.T) {
	r := &fakeRefresher{}
	s := New(r, nil)
	defer s.Stop()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	first := s.firstRun(weather.Location{ID: "berlin", Backend: weather.BackendOWM})
	assert.False(t, first.Before(now.Add(OWMInitialDelay)))
	assert.True(t, first.Before(now.Add(OWMInitialDelay+owmInitialJitter)))
	assert.True(t, s.firstRun(weather.Location{ID: "oslo", Backend: weather.BackendNMI}).IsZero())

	s.now = time.Now
	require.NoError(t, s.Start([]weather.Location{{ID: "berlin", Backend: weather.BackendOWM}}))
	assert.True(t, s.Tracked("berlin"))

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, r.count("berlin"))
}

func TestScheduler_TrackUntrack(t *testing.T) {
	r := &fakeRefresher{}
	s := New(r, nil)
	defer s.Stop()

	require.NoError(t, s.Start(nil))

	loc := weather.Location{ID: "a", Backend: weather.BackendOWM}
	require.NoError(t, s.Track(loc))
	require.NoError(t, s.Track(loc), "tracking twice replaces the job")

	jobs, err := s.scheduler.FindJobsByTag("a")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	s.Untrack("a")
	assert.False(t, s.Tracked("a"))
	s.Untrack("a")
}
