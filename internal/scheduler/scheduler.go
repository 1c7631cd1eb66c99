package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// Checker evaluates one place for alerts.
type Checker interface {
	Check(ctx context.Context, place weather.Place) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, place weather.Place) error

func (f CheckerFunc) Check(ctx context.Context, place weather.Place) error { return f(ctx, place) }

// PlaceSource returns the places to poll on each run: the current location
// followed by the favorites.
type PlaceSource func() []weather.Place

// Scheduler periodically runs alert checks for the current set of places.
type Scheduler struct {
	scheduler *gocron.Scheduler
	checker   Checker
	places    PlaceSource
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. Intervals under a minute fall back to 10 minutes.
func New(places PlaceSource, interval time.Duration, checker Checker, logger *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		checker:   checker,
		places:    places,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger.Named("scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 10
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce checks every place concurrently, each under its own timeout.
func (s *Scheduler) RunOnce() {
	places := dedupe(s.places())
	if len(places) == 0 {
		s.logger.Debug("no places to check")
		return
	}
	s.logger.Debug("running alert job", zap.Int("places", len(places)))

	var wg sync.WaitGroup
	for _, p := range places {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if err := s.checker.Check(ctx, p); err != nil {
				s.logger.Warn("alert check failed", zap.String("place", p.Coordinate.String()), zap.Error(err))
			}
		}()
	}
	wg.Wait()
	s.logger.Debug("completed alert job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// dedupe drops places that share a rounded coordinate, keeping the first.
func dedupe(in []weather.Place) []weather.Place {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, p := range in {
		k := p.Coordinate.Key(2)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
