// Package alerts raises proximity alerts for rain and snow starting soon.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/store"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

// StoreKey is the store key of the de-dup map.
const StoreKey = "alerts"

// Kind is the precipitation type an alert is about.
type Kind string

const (
	KindRain Kind = "rain"
	KindSnow Kind = "snow"
)

// Alert is a single notification.
type Alert struct {
	Place   weather.Place     `json:"place"`
	Kind    Kind              `json:"kind"`
	Event   weather.RainEvent `json:"event"`
	StartAt time.Time         `json:"startAt"`
	Message string            `json:"message"`
}

// Notifier receives raised alerts.
type Notifier interface {
	Notify(a Alert)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Alert)

func (f NotifierFunc) Notify(a Alert) { f(a) }

type Options struct {
	Horizon         time.Duration
	Cooldown        time.Duration
	RainThresholdMm float64
	SnowThresholdCm float64
	StepMin         int
}

func DefaultOptions() Options {
	return Options{
		Horizon:         2 * time.Hour,
		Cooldown:        3 * time.Hour,
		RainThresholdMm: 0.1,
		SnowThresholdCm: 0.1,
		StepMin:         15,
	}
}

var request = weather.ForecastRequest{
	Minutely15: []string{weather.VarPrecipitation, weather.VarSnowfall},
	Days:       1,
}

// Evaluator checks places for upcoming precipitation and suppresses repeat
// alerts for the same event within the cooldown window.
type Evaluator struct {
	provider weather.ForecastProvider
	store    store.Store
	notifier Notifier
	opts     Options
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	seen map[string]int64
}

// NewEvaluator loads the persisted de-dup map from s.
func NewEvaluator(provider weather.ForecastProvider, s store.Store, n Notifier, opts Options, logger *zap.Logger) (*Evaluator, error) {
	if opts.StepMin <= 0 {
		opts.StepMin = 15
	}
	e := &Evaluator{
		provider: provider,
		store:    s,
		notifier: n,
		opts:     opts,
		logger:   logger.Named("alerts"),
		now:      time.Now,
		seen:     make(map[string]int64),
	}
	if err := s.Get(StoreKey, &e.seen); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load alert history: %w", err)
	}
	if e.seen == nil {
		e.seen = make(map[string]int64)
	}
	return e, nil
}

// Check fetches the 15-minute precipitation forecast for place and raises
// alerts for rain or snow starting within the horizon.
func (e *Evaluator) Check(ctx context.Context, place weather.Place) ([]Alert, error) {
	fc, err := e.provider.PointForecast(ctx, place.Coordinate, request)
	if err != nil {
		return nil, fmt.Errorf("alert forecast %s: %w", place.Coordinate, err)
	}

	now := e.now()
	series := fc.Minutely15
	first := firstSlotFrom(series.Time, now, e.opts.StepMin)

	var raised []Alert
	e.mu.Lock()
	for _, k := range []struct {
		kind      Kind
		variable  string
		threshold float64
	}{
		{KindRain, weather.VarPrecipitation, e.opts.RainThresholdMm},
		{KindSnow, weather.VarSnowfall, e.opts.SnowThresholdCm},
	} {
		vals := series.Values[k.variable]
		if first < 0 || first >= len(vals) {
			continue
		}
		ev, ok := weather.ComputeRainEvent(vals[first:], k.threshold, e.opts.StepMin)
		if !ok || time.Duration(ev.StartMin)*time.Minute > e.opts.Horizon {
			continue
		}

		idx := first + ev.StartMin/e.opts.StepMin
		if idx >= len(series.Time) {
			continue
		}
		startAt := series.Time[idx]
		key := dedupKey(place.Coordinate, k.kind, startAt)
		if last, ok := e.seen[key]; ok && now.Sub(time.Unix(last, 0)) < e.opts.Cooldown {
			continue
		}
		e.seen[key] = now.Unix()

		a := Alert{
			Place:   place,
			Kind:    k.kind,
			Event:   ev,
			StartAt: startAt,
			Message: message(place, k.kind, ev),
		}
		raised = append(raised, a)
	}
	e.pruneLocked(now)
	snapshot := make(map[string]int64, len(e.seen))
	for k, v := range e.seen {
		snapshot[k] = v
	}
	e.mu.Unlock()

	if err := e.store.Set(StoreKey, snapshot); err != nil {
		e.logger.Warn("persisting alert history failed", zap.Error(err))
	}
	for _, a := range raised {
		e.logger.Info("alert raised", zap.String("place", a.Place.Name), zap.String("kind", string(a.Kind)), zap.Time("start", a.StartAt))
		if e.notifier != nil {
			e.notifier.Notify(a)
		}
	}
	return raised, nil
}

// Seen returns how many de-dup entries are held.
func (e *Evaluator) Seen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.seen)
}

func (e *Evaluator) pruneLocked(now time.Time) {
	for k, ts := range e.seen {
		if now.Sub(time.Unix(ts, 0)) >= e.opts.Cooldown {
			delete(e.seen, k)
		}
	}
}

// firstSlotFrom returns the index of the slot containing now, or the first
// later slot.
func firstSlotFrom(times []time.Time, now time.Time, stepMin int) int {
	step := time.Duration(stepMin) * time.Minute
	for i, t := range times {
		if t.Add(step).After(now) {
			return i
		}
	}
	return -1
}

func dedupKey(c weather.Coordinate, kind Kind, start time.Time) string {
	return fmt.Sprintf("%s|%s|%d", c.Key(2), kind, start.Unix())
}

func message(p weather.Place, kind Kind, ev weather.RainEvent) string {
	name := p.Name
	if name == "" {
		name = p.Coordinate.String()
	}
	unit := "mm"
	label := "Rain"
	if kind == KindSnow {
		unit, label = "cm", "Snow"
	}
	when := "now"
	if ev.StartMin > 0 {
		when = fmt.Sprintf("in %d min", ev.StartMin)
	}
	return fmt.Sprintf("%s expected at %s %s (%d min, %.1f %s)", label, name, when, ev.DurationMin, ev.TotalMm, unit)
}
