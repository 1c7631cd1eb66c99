// Package arrows draws wind and rain-direction glyphs over a lattice of the visible map.
package arrows

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/common"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

// Kind selects a glyph layer.
type Kind string

const (
	KindWind Kind = "wind"
	KindRain Kind = "rain"
)

// ErrNoCenter is returned when a layer needs the center wind before one exists.
var ErrNoCenter = errors.New("center wind not sampled yet")

// Glyph is one rendered arrow. Glyphs never capture pointer input.
type Glyph struct {
	At          weather.Coordinate
	RotationDeg float64
	SpeedKmh    float64
	Size        float64
	Color       colorful.Color
	// Fallback marks glyphs drawn from the center wind after a failed sample.
	Fallback bool
}

// Map is the mapping surface glyph layers are attached to.
type Map interface {
	Bounds() weather.Bounds
	AddLayer(l *Layer)
	RemoveLayer(l *Layer)
}

// Sampler provides per-point samples and the shared center wind.
type Sampler interface {
	SampleAt(ctx context.Context, c weather.Coordinate) (weather.WindSample, error)
	Center() (weather.WindSample, bool)
}

// Options sets lattice density and request batching.
type Options struct {
	WindCols, WindRows int
	RainCols, RainRows int
	BatchSize          int
	RainSpeedFloor     float64
}

func DefaultOptions() Options {
	return Options{
		WindCols:       9,
		WindRows:       6,
		RainCols:       7,
		RainRows:       5,
		BatchSize:      8,
		RainSpeedFloor: 10,
	}
}

// Renderer owns at most one live layer per kind.
type Renderer struct {
	m      Map
	s      Sampler
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	layers map[Kind]*Layer
}

func NewRenderer(m Map, s Sampler, opts Options, logger *zap.Logger) *Renderer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	return &Renderer{
		m:      m,
		s:      s,
		opts:   opts,
		logger: logger.Named("arrows"),
		layers: make(map[Kind]*Layer),
	}
}

// Render replaces the layer of the given kind with a freshly computed one
// and returns the number of glyphs drawn. Results that arrive after the
// layer has been replaced or cleared are dropped.
func (r *Renderer) Render(ctx context.Context, kind Kind) (int, error) {
	var cols, rows int
	switch kind {
	case KindWind:
		cols, rows = r.opts.WindCols, r.opts.WindRows
	case KindRain:
		cols, rows = r.opts.RainCols, r.opts.RainRows
	default:
		return 0, fmt.Errorf("unknown glyph layer %q", kind)
	}

	layer := r.replace(kind)
	pts := Lattice(r.m.Bounds().Clip(), cols, rows)

	var err error
	if kind == KindRain {
		err = r.renderRain(layer, pts)
	} else {
		err = r.renderWind(ctx, layer, pts)
	}
	return layer.Len(), err
}

// Clear removes the layer of the given kind from the map. Clearing an absent layer is a no-op.
func (r *Renderer) Clear(kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(kind)
}

// Layer returns the live layer of a kind, or nil.
func (r *Renderer) Layer(kind Kind) *Layer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layers[kind]
}

func (r *Renderer) replace(kind Kind) *Layer {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(kind)
	l := newLayer(kind)
	r.layers[kind] = l
	r.m.AddLayer(l)
	return l
}

func (r *Renderer) removeLocked(kind Kind) {
	old, ok := r.layers[kind]
	if !ok {
		return
	}
	delete(r.layers, kind)
	old.detach()
	r.m.RemoveLayer(old)
}

// renderRain draws the center wind at every lattice point. Rain motion is
// approximated by the wind at the map center.
func (r *Renderer) renderRain(layer *Layer, pts []weather.Coordinate) error {
	center, ok := r.s.Center()
	if !ok {
		return ErrNoCenter
	}
	w := center.WithSpeedFloor(r.opts.RainSpeedFloor)
	for _, p := range pts {
		layer.add(newGlyph(p, w, false))
	}
	return nil
}

type sampleResult struct {
	w   weather.WindSample
	err error
}

// renderWind samples every point in sequential batches; a batch is issued
// only after the previous one has fully settled.
func (r *Renderer) renderWind(ctx context.Context, layer *Layer, pts []weather.Coordinate) error {
	size := r.opts.BatchSize
	for start := 0; start < len(pts); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		if layer.Detached() {
			return nil
		}

		end := start + size
		if end > len(pts) {
			end = len(pts)
		}
		batch := pts[start:end]
		results := make([]sampleResult, len(batch))

		var wg sync.WaitGroup
		for i, p := range batch {
			wg.Add(1)
			go func(i int, p weather.Coordinate) {
				defer wg.Done()
				w, err := r.s.SampleAt(ctx, p)
				results[i] = sampleResult{w: w, err: err}
			}(i, p)
		}
		wg.Wait()

		// A superseded pass must not draw center fallbacks for samples it
		// abandoned.
		if err := ctx.Err(); err != nil {
			return err
		}

		for i, res := range results {
			if res.err == nil {
				layer.add(newGlyph(batch[i], res.w, false))
				continue
			}
			center, ok := r.s.Center()
			if !ok {
				r.logger.Debug("lattice sample failed without center fallback", zap.Stringer("at", batch[i]), zap.Error(res.err))
				continue
			}
			layer.add(newGlyph(batch[i], center, true))
		}
	}
	return nil
}

func newGlyph(at weather.Coordinate, w weather.WindSample, fallback bool) Glyph {
	return Glyph{
		At:          at,
		RotationDeg: w.FlowBearing(),
		SpeedKmh:    w.SpeedKmh,
		Size:        12 + common.Clamp(w.SpeedKmh, 0, 60)/60*12,
		Color:       weather.SpeedColor(w.SpeedKmh),
		Fallback:    fallback,
	}
}
