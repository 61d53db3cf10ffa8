package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownLocation   = errors.New("unknown location")
	ErrDuplicateLocation = errors.New("location already exists")
	ErrIndexOutOfRange   = errors.New("location index out of range")
	ErrUnknownBackend    = errors.New("unknown weather backend")
	ErrNoCoordinates     = errors.New("location has no coordinates")
	ErrGeocode           = errors.New("geocoding failed")
	ErrNoProvider        = errors.New("no provider configured for backend")
	ErrNoForecast        = errors.New("no forecast available")
)

const (
	// DefaultMinRefreshAge is how long a non-empty forecast is served without refetching.
	DefaultMinRefreshAge = 5 * time.Minute
	defaultConcurrency   = 4
)

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	MinRefreshAge  time.Duration
	DefaultBackend Backend
	Concurrency    int
	Geocoder       Geocoder
	TimeZones      TimeZoneResolver
	Recorder       Recorder
	Logger         *zap.Logger
	Now            func() time.Time
}

// Service owns the tracked locations and orchestrates providers, the sunrise
// window, the in-memory store and the disk cache.
type Service struct {
	store     Store
	cache     Cache
	providers map[Backend]ForecastProvider
	sunrise   SunriseProvider

	geocoder       Geocoder
	timeZones      TimeZoneResolver
	recorder       Recorder
	logger         *zap.Logger
	now            func() time.Time
	minRefreshAge  time.Duration
	defaultBackend Backend
	concurrency    int

	mu          sync.RWMutex
	locations   []Location
	sunriseData map[string][]Sunrise
}

// NewService creates a new Service. cache and sunrise may be nil.
func NewService(store Store, cache Cache, providers []ForecastProvider, sunrise SunriseProvider, opts Options) *Service {
	s := &Service{
		store:          store,
		cache:          cache,
		providers:      make(map[Backend]ForecastProvider, len(providers)),
		sunrise:        sunrise,
		geocoder:       opts.Geocoder,
		timeZones:      opts.TimeZones,
		recorder:       opts.Recorder,
		logger:         opts.Logger,
		now:            opts.Now,
		minRefreshAge:  opts.MinRefreshAge,
		defaultBackend: opts.DefaultBackend,
		concurrency:    opts.Concurrency,
		sunriseData:    make(map[string][]Sunrise),
	}
	for _, p := range providers {
		s.providers[p.Backend()] = p
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.minRefreshAge <= 0 {
		s.minRefreshAge = DefaultMinRefreshAge
	}
	if !s.defaultBackend.Valid() {
		s.defaultBackend = BackendNMI
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultConcurrency
	}
	return s
}

// AddLocation appends a location to the tracked list.
func (s *Service) AddLocation(ctx context.Context, loc Location) (Location, error) {
	s.mu.RLock()
	n := len(s.locations)
	s.mu.RUnlock()
	return s.InsertLocation(ctx, n, loc)
}

// InsertLocation inserts a location at index. Missing IDs are generated,
// missing backends defaulted, missing coordinates geocoded from City/Country
// and a missing time zone resolved from the coordinates.
func (s *Service) InsertLocation(ctx context.Context, index int, loc Location) (Location, error) {
	loc, err := s.prepare(ctx, loc)
	if err != nil {
		return Location{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index > len(s.locations) {
		return Location{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	for _, l := range s.locations {
		if l.ID == loc.ID {
			return Location{}, fmt.Errorf("%w: %s", ErrDuplicateLocation, loc.ID)
		}
	}

	s.locations = append(s.locations, Location{})
	copy(s.locations[index+1:], s.locations[index:])
	s.locations[index] = loc

	s.logger.Info("location added",
		zap.String("location", loc.ID),
		zap.String("name", loc.Name),
		zap.String("backend", string(loc.Backend)),
	)
	return loc, nil
}

func (s *Service) prepare(ctx context.Context, loc Location) (Location, error) {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	if loc.Backend == "" {
		loc.Backend = s.defaultBackend
	}
	if !loc.Backend.Valid() {
		return Location{}, fmt.Errorf("%w: %q", ErrUnknownBackend, loc.Backend)
	}
	if loc.Name == "" {
		loc.Name = loc.City
	}
	if !loc.HasCoordinates() {
		if loc.City == "" || s.geocoder == nil {
			return Location{}, fmt.Errorf("%w: %s", ErrNoCoordinates, loc.ID)
		}
		lat, lon, err := s.geocoder.Geocode(ctx, loc.City, loc.Country)
		if err != nil {
			return Location{}, fmt.Errorf("%w: %s,%s: %w", ErrGeocode, loc.City, loc.Country, err)
		}
		loc.Latitude, loc.Longitude = lat, lon
	}
	if loc.TimeZone == "" && s.timeZones != nil {
		loc.TimeZone = s.timeZone(ctx, loc)
	}
	return loc, nil
}

// timeZone looks up the IANA zone of a location. It returns "" when the
// lookup fails, leaving Location.Zone to fall back to the longitude offset.
func (s *Service) timeZone(ctx context.Context, loc Location) string {
	name, err := s.timeZones.TimeZone(ctx, loc.Latitude, loc.Longitude)
	if err == nil && name == "" {
		err = errors.New("empty time zone")
	}
	if err == nil {
		_, err = time.LoadLocation(name)
	}
	if err != nil {
		s.logger.Warn("time zone lookup failed; using longitude offset",
			zap.String("location", loc.ID),
			zap.Error(err),
		)
		return ""
	}
	return name
}

// RemoveLocation stops tracking a location and drops its stored and cached forecasts.
func (s *Service) RemoveLocation(id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownLocation, id)
	}
	s.locations = append(s.locations[:idx], s.locations[idx+1:]...)
	delete(s.sunriseData, id)
	s.mu.Unlock()

	s.store.Delete(id)
	if s.cache != nil {
		if err := s.cache.Remove(id); err != nil {
			s.logger.Warn("failed to remove cached forecast", zap.String("location", id), zap.Error(err))
		}
	}
	s.logger.Info("location removed", zap.String("location", id))
	return nil
}

// MoveLocation moves the location at oldIndex to newIndex.
func (s *Service) MoveLocation(oldIndex, newIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move(oldIndex, newIndex)
}

// MoveLocationByID moves the location with the given id to newIndex.
func (s *Service) MoveLocationByID(id string, newIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, id)
	}
	return s.move(idx, newIndex)
}

func (s *Service) move(oldIndex, newIndex int) error {
	n := len(s.locations)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
		return fmt.Errorf("%w: %d -> %d", ErrIndexOutOfRange, oldIndex, newIndex)
	}
	loc := s.locations[oldIndex]
	s.locations = append(s.locations[:oldIndex], s.locations[oldIndex+1:]...)
	s.locations = append(s.locations[:newIndex], append([]Location{loc}, s.locations[newIndex:]...)...)
	return nil
}

// Location returns the tracked location with the given id.
func (s *Service) Location(id string) (Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Location{}, fmt.Errorf("%w: %s", ErrUnknownLocation, id)
	}
	return s.locations[idx], nil
}

// LocationAt returns the location at index.
func (s *Service) LocationAt(index int) (Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.locations) {
		return Location{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return s.locations[index], nil
}

// Locations returns a copy of the tracked locations in display order.
func (s *Service) Locations() []Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Location(nil), s.locations...)
}

func (s *Service) indexOf(id string) int {
	for i, l := range s.locations {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// ChangeBackend switches the location to another backend and refreshes it.
// Sunrise data is kept since it does not depend on the backend.
func (s *Service) ChangeBackend(ctx context.Context, id string, backend Backend) (Location, error) {
	if !backend.Valid() {
		return Location{}, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Location{}, fmt.Errorf("%w: %s", ErrUnknownLocation, id)
	}
	if s.locations[idx].Backend == backend {
		loc := s.locations[idx]
		s.mu.Unlock()
		return loc, nil
	}
	s.locations[idx].Backend = backend
	loc := s.locations[idx]
	s.mu.Unlock()

	s.logger.Info("backend changed", zap.String("location", id), zap.String("backend", string(backend)))
	if _, err := s.refresh(ctx, loc, true); err != nil {
		return loc, err
	}
	return loc, nil
}

// Refresh fetches a new forecast for the location unless a non-empty forecast
// from the same backend is younger than the minimum refresh age.
func (s *Service) Refresh(ctx context.Context, id string) (Forecast, error) {
	loc, err := s.Location(id)
	if err != nil {
		return Forecast{}, err
	}
	return s.refresh(ctx, loc, false)
}

func (s *Service) refresh(ctx context.Context, loc Location, force bool) (Forecast, error) {
	now := s.now()

	if !force {
		if latest, err := s.store.GetLatest(loc.ID); err == nil &&
			!latest.IsEmpty() &&
			latest.Backend == loc.Backend &&
			now.Sub(latest.TimeCreated) < s.minRefreshAge {
			s.logger.Debug("forecast is fresh; skipping fetch", zap.String("location", loc.ID))
			return latest, nil
		}
	}

	provider, ok := s.providers[loc.Backend]
	if !ok {
		return Forecast{}, fmt.Errorf("%w: %s", ErrNoProvider, loc.Backend)
	}

	s.updateSunrise(ctx, loc)

	fc, err := provider.FetchForecast(ctx, loc)
	s.recorder.FetchResult(loc.Backend, err)
	if err != nil {
		// Keep the last good forecast.
		s.logger.Warn("forecast fetch failed",
			zap.String("location", loc.ID),
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)
		return Forecast{}, fmt.Errorf("fetch %s forecast for %s: %w", provider.Name(), loc.ID, err)
	}

	if fc.TimeCreated.IsZero() {
		fc.TimeCreated = now
	}
	fc.LocationID = loc.ID
	fc.Backend = loc.Backend
	fc = ApplySunrise(fc, s.SunriseData(loc.ID), loc.Zone())

	if !s.store.SaveForecast(fc) {
		s.logger.Debug("discarding forecast older than the stored one", zap.String("location", loc.ID))
		return s.store.GetLatest(loc.ID)
	}

	if s.cache != nil {
		err := s.cache.Write(fc)
		s.recorder.CacheWrite(err)
		if err != nil {
			s.logger.Warn("failed to write forecast cache", zap.String("location", loc.ID), zap.Error(err))
		}
	}

	s.logger.Info("forecast updated",
		zap.String("location", loc.ID),
		zap.String("provider", provider.Name()),
		zap.Int("hours", len(fc.Hourly)),
		zap.Int("days", len(fc.Daily)),
	)
	return fc, nil
}

func (s *Service) updateSunrise(ctx context.Context, loc Location) {
	if s.sunrise == nil {
		return
	}
	zone := loc.Zone()
	now := s.now()

	s.mu.Lock()
	have := PopPastDays(s.sunriseData[loc.ID], now, zone)
	s.sunriseData[loc.ID] = have
	s.mu.Unlock()

	req, ok := NextSunriseRequest(have, now, zone)
	if !ok {
		return
	}

	fetched, err := s.sunrise.FetchSunrise(ctx, loc, req)
	if err != nil {
		s.logger.Warn("sunrise fetch failed", zap.String("location", loc.ID), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.sunriseData[loc.ID] = MergeSunrise(s.sunriseData[loc.ID], fetched, zone)
	s.mu.Unlock()
}

// SunriseData returns a copy of the sunrise window held for a location.
func (s *Service) SunriseData(id string) []Sunrise {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Sunrise(nil), s.sunriseData[id]...)
}

// RefreshAll refreshes every tracked location with bounded concurrency.
// Failures do not stop other locations; they are returned joined.
func (s *Service) RefreshAll(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(s.concurrency)

	for _, loc := range s.Locations() {
		loc := loc
		g.Go(func() error {
			if _, err := s.refresh(ctx, loc, false); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Forecast returns the latest forecast of a location trimmed to the window
// of days from today onward.
func (s *Service) Forecast(id string) (Forecast, error) {
	loc, err := s.Location(id)
	if err != nil {
		return Forecast{}, err
	}
	latest, err := s.store.GetLatest(id)
	if err != nil {
		return Forecast{}, fmt.Errorf("%w: %w", ErrNoForecast, err)
	}
	return TrimToWindow(latest, s.now(), loc.Zone()), nil
}

// Current returns the hourly forecast closest to now.
func (s *Service) Current(id string) (HourlyForecast, error) {
	fc, err := s.Forecast(id)
	if err != nil {
		return HourlyForecast{}, err
	}
	h, ok := ClosestHour(fc.Hourly, s.now())
	if !ok {
		return HourlyForecast{}, fmt.Errorf("%w: %s has no hourly data", ErrNoForecast, id)
	}
	return h, nil
}

// Days returns the daily forecasts from today onward.
func (s *Service) Days(id string) ([]DailyForecast, error) {
	fc, err := s.Forecast(id)
	if err != nil {
		return nil, err
	}
	return fc.Daily, nil
}

// Hours returns the hourly forecasts from one hour ago onward.
func (s *Service) Hours(id string) ([]HourlyForecast, error) {
	fc, err := s.Forecast(id)
	if err != nil {
		return nil, err
	}
	return fc.Hourly, nil
}

// History returns the stored forecasts of a location created within [from, to].
func (s *Service) History(id string, from, to time.Time) ([]Forecast, error) {
	if _, err := s.Location(id); err != nil {
		return nil, err
	}
	return s.store.GetRange(id, from, to)
}

// LoadCache seeds the store and sunrise window from the disk cache, keeping
// the newest forecast per tracked location. It returns how many were loaded.
func (s *Service) LoadCache() (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	cached, err := s.cache.Load()
	if err != nil {
		return 0, fmt.Errorf("load forecast cache: %w", err)
	}

	loaded := 0
	for _, loc := range s.Locations() {
		fc, ok := cached[loc.ID]
		if !ok {
			continue
		}
		if s.store.SaveForecast(fc) {
			loaded++
		}
		s.seedSunrise(loc, fc)
	}
	s.logger.Info("forecast cache loaded", zap.Int("files", len(cached)), zap.Int("loaded", loaded))
	return loaded, nil
}

// ApplyCached accepts a forecast read from the cache by another writer. Only
// forecasts strictly newer than the stored one for a tracked location are kept.
func (s *Service) ApplyCached(fc Forecast) bool {
	loc, err := s.Location(fc.LocationID)
	if err != nil {
		return false
	}
	if latest, err := s.store.GetLatest(loc.ID); err == nil && !fc.NewerThan(latest) {
		return false
	}
	if !s.store.SaveForecast(fc) {
		return false
	}
	s.seedSunrise(loc, fc)
	s.logger.Debug("applied cached forecast", zap.String("location", loc.ID))
	return true
}

func (s *Service) seedSunrise(loc Location, fc Forecast) {
	if len(fc.Sunrise) == 0 {
		return
	}
	zone := loc.Zone()
	s.mu.Lock()
	defer s.mu.Unlock()
	have := PopPastDays(s.sunriseData[loc.ID], s.now(), zone)
	s.sunriseData[loc.ID] = MergeSunrise(have, PopPastDays(fc.Sunrise, s.now(), zone), zone)
}
