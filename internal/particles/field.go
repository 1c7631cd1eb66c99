// Package particles renders the center wind as advected particle trails.
package particles

import (
	"math/rand"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/anim"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

// Canvas is the drawing surface owned by the field. Coordinates are backing-store pixels.
type Canvas interface {
	Size() (w, h int)
	// Resize reallocates the backing store for a css size at the given pixel density.
	Resize(cssW, cssH int, pixelRatio float64)
	// Fade paints a translucent rectangle over the whole canvas.
	Fade(bg colorful.Color, alpha float64)
	Line(x0, y0, x1, y1 float64, c colorful.Color)
	Clear()
}

// WindSource provides the shared center wind.
type WindSource interface {
	Center() (weather.WindSample, bool)
}

// Options tunes the particle system.
type Options struct {
	Count int
	// MaxAge is the number of ticks after which a particle respawns.
	MaxAge int
	// Step is the advection distance in css pixels per tick at speed factor 1.
	Step          float64
	FadeAlpha     float64
	Background    colorful.Color
	FrameInterval time.Duration
	Seed          int64
}

func DefaultOptions() Options {
	return Options{
		Count:         650,
		MaxAge:        150,
		Step:          1.5,
		FadeAlpha:     0.08,
		Background:    colorful.Color{R: 0.06, G: 0.07, B: 0.09},
		FrameInterval: time.Second / 30,
		Seed:          time.Now().UnixNano(),
	}
}

// Particle is a point in canvas pixel space.
type Particle struct {
	X, Y float64
	Age  int
}

// Field owns a fixed-size particle pool and its redraw loop.
type Field struct {
	canvas    Canvas
	wind      WindSource
	opts      Options
	logger    *zap.Logger
	newTicker anim.Factory

	mu      sync.Mutex
	rnd     *rand.Rand
	pool    []*Particle
	running bool
	gen     uint64
	ticker  anim.Ticker
	done    chan struct{}
	ratio   float64
}

func NewField(canvas Canvas, wind WindSource, opts Options, logger *zap.Logger) *Field {
	def := DefaultOptions()
	if opts.Count <= 0 {
		opts.Count = def.Count
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = def.MaxAge
	}
	if opts.Step <= 0 {
		opts.Step = def.Step
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = def.FrameInterval
	}
	return &Field{
		canvas:    canvas,
		wind:      wind,
		opts:      opts,
		logger:    logger.Named("particles"),
		newTicker: anim.NewTicker,
		rnd:       rand.New(rand.NewSource(opts.Seed)),
		ratio:     1,
	}
}

// SetTickerFactory replaces the frame clock. It must be called before Start.
func (f *Field) SetTickerFactory(fn anim.Factory) {
	f.mu.Lock()
	f.newTicker = fn
	f.mu.Unlock()
}

// Start (re)initializes the pool and begins the redraw loop.
func (f *Field) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.haltLocked()
	f.seedLocked()
	f.running = true
	f.gen++

	tk := f.newTicker(f.opts.FrameInterval)
	done := make(chan struct{})
	f.ticker = tk
	f.done = done
	go f.loop(f.gen, tk, done)

	f.logger.Debug("particle field started", zap.Int("count", len(f.pool)))
}

// Stop halts the loop, empties the pool and clears the canvas. A redraw
// already in flight observes the change at its next check and draws nothing.
func (f *Field) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.haltLocked()
	f.pool = nil
	f.canvas.Clear()
}

func (f *Field) haltLocked() {
	f.running = false
	f.gen++
	if f.ticker != nil {
		f.ticker.Stop()
		close(f.done)
		f.ticker = nil
		f.done = nil
	}
}

// Running reports whether the loop is active.
func (f *Field) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Len returns the pool size.
func (f *Field) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pool)
}

// Particles returns a copy of the pool.
func (f *Field) Particles() []Particle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Particle, len(f.pool))
	for i, p := range f.pool {
		out[i] = *p
	}
	return out
}

// Resize reallocates the canvas and, when running, reseeds every particle
// for the new dimensions.
func (f *Field) Resize(cssW, cssH int, pixelRatio float64) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.canvas.Resize(cssW, cssH, pixelRatio)
	f.ratio = pixelRatio
	if f.running {
		f.seedLocked()
	}
}

func (f *Field) loop(gen uint64, tk anim.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-tk.C():
			if !f.step(gen) {
				return
			}
		}
	}
}

// Step runs one redraw if the field is running. It reports whether it drew.
func (f *Field) Step() bool {
	f.mu.Lock()
	gen := f.gen
	f.mu.Unlock()
	return f.step(gen)
}

func (f *Field) step(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running || f.gen != gen {
		return false
	}

	f.canvas.Fade(f.opts.Background, f.opts.FadeAlpha)

	w, ok := f.wind.Center()
	if !ok {
		return true
	}

	w2, h2 := f.canvas.Size()
	width, height := float64(w2), float64(h2)
	dx, dy := w.Direction()
	dist := weather.SpeedFactor(w.SpeedKmh) * f.opts.Step * f.ratio
	color := weather.SpeedColor(w.SpeedKmh)

	for _, p := range f.pool {
		nx, ny := p.X+dx*dist, p.Y+dy*dist
		f.canvas.Line(p.X, p.Y, nx, ny, color)
		p.X, p.Y = nx, ny
		p.Age++

		if p.X < 0 || p.Y < 0 || p.X >= width || p.Y >= height || p.Age > f.opts.MaxAge {
			f.respawnLocked(p, 0)
		}
	}
	return true
}

// seedLocked sizes the pool to Count and scatters every particle with a random age.
func (f *Field) seedLocked() {
	if len(f.pool) != f.opts.Count {
		f.pool = make([]*Particle, f.opts.Count)
		for i := range f.pool {
			f.pool[i] = &Particle{}
		}
	}
	for _, p := range f.pool {
		f.respawnLocked(p, f.rnd.Intn(f.opts.MaxAge))
	}
}

func (f *Field) respawnLocked(p *Particle, age int) {
	w, h := f.canvas.Size()
	p.X = f.rnd.Float64() * float64(w)
	p.Y = f.rnd.Float64() * float64(h)
	p.Age = age
}
