// Package viewport keeps the wind visualizations in step with map navigation.
package viewport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/arrows"
	"github.com/i474232898/weather-radar-map/internal/weather"
	"github.com/i474232898/weather-radar-map/internal/wind"
)

// EventKind identifies a map or window event.
type EventKind int

const (
	EventMove EventKind = iota
	EventZoomEnd
	EventResize
)

func (k EventKind) String() string {
	switch k {
	case EventMove:
		return "move"
	case EventZoomEnd:
		return "zoomend"
	case EventResize:
		return "resize"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is delivered by the surface on navigation and resize.
type Event struct {
	Kind       EventKind
	Width      int
	Height     int
	PixelRatio float64
}

// Layer names a toggleable visualization.
type Layer string

const (
	LayerWind      Layer = "wind"
	LayerRain      Layer = "rain"
	LayerParticles Layer = "particles"
)

// Toggles reports which visualizations are enabled.
type Toggles struct {
	Wind      bool `json:"wind"`
	Rain      bool `json:"rain"`
	Particles bool `json:"particles"`
}

// CenterSampler refreshes and exposes the center wind.
type CenterSampler interface {
	RefreshCenter(ctx context.Context, vp wind.Viewport) error
	Center() (weather.WindSample, bool)
}

// ParticleField is the particle trail renderer.
type ParticleField interface {
	Start()
	Stop()
	Resize(cssW, cssH int, pixelRatio float64)
}

// GlyphRenderer renders and clears arrow layers.
type GlyphRenderer interface {
	Render(ctx context.Context, kind arrows.Kind) (int, error)
	Clear(kind arrows.Kind)
}

// Controller re-samples and re-renders after every map event.
type Controller struct {
	viewport wind.Viewport
	sampler  CenterSampler
	field    ParticleField
	glyphs   GlyphRenderer
	logger   *zap.Logger

	// layerMu serializes layer changes so a toggle's state flip and its
	// render or clear are applied in the same order.
	layerMu sync.Mutex

	mu      sync.Mutex
	toggles Toggles
	cancel  context.CancelFunc
	seq     uint64
}

func NewController(vp wind.Viewport, sampler CenterSampler, field ParticleField, glyphs GlyphRenderer, logger *zap.Logger) *Controller {
	return &Controller{
		viewport: vp,
		sampler:  sampler,
		field:    field,
		glyphs:   glyphs,
		logger:   logger.Named("viewport"),
	}
}

// Layers returns the current toggles.
func (c *Controller) Layers() Toggles {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggles
}

// OnExternalEvent handles a map move, zoom end or resize. A newer event
// cancels the pass started by the previous one.
func (c *Controller) OnExternalEvent(ctx context.Context, ev Event) error {
	ctx, seq := c.begin(ctx)
	defer c.end(seq)

	if ev.Kind == EventResize {
		c.field.Resize(ev.Width, ev.Height, ev.PixelRatio)
	}

	if err := c.sampler.RefreshCenter(ctx, c.viewport); err != nil {
		c.logger.Debug("center refresh failed", zap.Stringer("event", ev.Kind), zap.Error(err))
	}

	t := c.Layers()
	if t.Rain {
		if err := c.render(ctx, arrows.KindRain); err != nil {
			return err
		}
	}
	if t.Wind {
		if err := c.render(ctx, arrows.KindWind); err != nil {
			return err
		}
	}
	return nil
}

// SetLayer enables or disables a visualization.
func (c *Controller) SetLayer(ctx context.Context, layer Layer, enabled bool) error {
	c.layerMu.Lock()
	defer c.layerMu.Unlock()
	return c.setLayer(ctx, layer, enabled)
}

func (c *Controller) setLayer(ctx context.Context, layer Layer, enabled bool) error {
	c.mu.Lock()
	switch layer {
	case LayerWind:
		c.toggles.Wind = enabled
	case LayerRain:
		c.toggles.Rain = enabled
	case LayerParticles:
		c.toggles.Particles = enabled
	default:
		c.mu.Unlock()
		return fmt.Errorf("unknown layer %q", layer)
	}
	c.mu.Unlock()

	if layer == LayerParticles {
		if enabled {
			c.ensureCenter(ctx)
			c.field.Start()
		} else {
			c.field.Stop()
		}
		return nil
	}

	kind := arrows.Kind(layer)
	if !enabled {
		c.glyphs.Clear(kind)
		return nil
	}
	c.ensureCenter(ctx)
	return c.render(ctx, kind)
}

// Apply sets every toggle at once.
func (c *Controller) Apply(ctx context.Context, t Toggles) error {
	return errors.Join(
		c.SetLayer(ctx, LayerParticles, t.Particles),
		c.SetLayer(ctx, LayerRain, t.Rain),
		c.SetLayer(ctx, LayerWind, t.Wind),
	)
}

// Toggle flips a visualization and reports its new state. Concurrent
// toggles of the same layer each observe the previous one's result.
func (c *Controller) Toggle(ctx context.Context, layer Layer) (bool, error) {
	c.layerMu.Lock()
	defer c.layerMu.Unlock()

	t := c.Layers()
	var cur bool
	switch layer {
	case LayerWind:
		cur = t.Wind
	case LayerRain:
		cur = t.Rain
	case LayerParticles:
		cur = t.Particles
	}
	return !cur, c.setLayer(ctx, layer, !cur)
}

func (c *Controller) ensureCenter(ctx context.Context) {
	if _, ok := c.sampler.Center(); ok {
		return
	}
	if err := c.sampler.RefreshCenter(ctx, c.viewport); err != nil {
		c.logger.Debug("initial center refresh failed", zap.Error(err))
	}
}

func (c *Controller) render(ctx context.Context, kind arrows.Kind) error {
	n, err := c.glyphs.Render(ctx, kind)
	switch {
	case errors.Is(err, context.Canceled):
		// superseded by a newer event
		return nil
	case errors.Is(err, arrows.ErrNoCenter):
		c.logger.Debug("glyph layer skipped", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	case err != nil:
		return err
	}
	c.logger.Debug("glyph layer rendered", zap.String("kind", string(kind)), zap.Int("glyphs", n))
	return nil
}

func (c *Controller) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	c.cancel = cancel
	return ctx, c.seq
}

func (c *Controller) end(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == seq && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
