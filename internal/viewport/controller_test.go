package viewport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/arrows"
	"github.com/i474232898/weather-radar-map/internal/weather"
	"github.com/i474232898/weather-radar-map/internal/wind"
)

type staticViewport struct{ c weather.Coordinate }

func (v staticViewport) Center() weather.Coordinate { return v.c }

type fakeSampler struct {
	mu        sync.Mutex
	refreshes int
	center    *weather.WindSample
	err       error
}

func (s *fakeSampler) RefreshCenter(_ context.Context, _ wind.Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.err != nil {
		return s.err
	}
	w := weather.NewWindSample(12, 90)
	s.center = &w
	return nil
}

func (s *fakeSampler) Center() (weather.WindSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.center == nil {
		return weather.WindSample{}, false
	}
	return *s.center, true
}

type fakeField struct {
	mu      sync.Mutex
	running bool
	resizes [][3]float64
}

func (f *fakeField) Start() { f.mu.Lock(); f.running = true; f.mu.Unlock() }
func (f *fakeField) Stop()  { f.mu.Lock(); f.running = false; f.mu.Unlock() }
func (f *fakeField) Resize(w, h int, ratio float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes = append(f.resizes, [3]float64{float64(w), float64(h), ratio})
}

type fakeGlyphs struct {
	mu       sync.Mutex
	rendered []arrows.Kind
	cleared  []arrows.Kind
	block    chan struct{}
	err      error
}

func (g *fakeGlyphs) Render(ctx context.Context, kind arrows.Kind) (int, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return 0, g.err
	}
	g.rendered = append(g.rendered, kind)
	return 1, nil
}

func (g *fakeGlyphs) Clear(kind arrows.Kind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleared = append(g.cleared, kind)
}

func (g *fakeGlyphs) clears() []arrows.Kind {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]arrows.Kind(nil), g.cleared...)
}

func (g *fakeGlyphs) renders() []arrows.Kind {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]arrows.Kind(nil), g.rendered...)
}

type harness struct {
	ctl     *Controller
	sampler *fakeSampler
	field   *fakeField
	glyphs  *fakeGlyphs
}

func newHarness() harness {
	h := harness{sampler: &fakeSampler{}, field: &fakeField{}, glyphs: &fakeGlyphs{}}
	h.ctl = NewController(staticViewport{weather.Coordinate{Lat: 45, Lon: 7}}, h.sampler, h.field, h.glyphs, zap.NewNop())
	return h
}

func TestLayersStartDisabled(t *testing.T) {
	h := newHarness()
	assert.Equal(t, Toggles{}, h.ctl.Layers())
}

func TestSetLayerRendersAndClears(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.ctl.SetLayer(ctx, LayerWind, true))
	assert.True(t, h.ctl.Layers().Wind)
	assert.Equal(t, []arrows.Kind{arrows.KindWind}, h.glyphs.renders())
	assert.Equal(t, 1, h.sampler.refreshes, "center fetched before first render")

	require.NoError(t, h.ctl.SetLayer(ctx, LayerWind, false))
	assert.False(t, h.ctl.Layers().Wind)
	assert.Equal(t, []arrows.Kind{arrows.KindWind}, h.glyphs.cleared)
}

func TestSetLayerParticles(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.ctl.SetLayer(ctx, LayerParticles, true))
	assert.True(t, h.field.running)
	require.NoError(t, h.ctl.SetLayer(ctx, LayerParticles, false))
	assert.False(t, h.field.running)
	assert.Empty(t, h.glyphs.renders())
}

func TestSetLayerUnknown(t *testing.T) {
	h := newHarness()
	assert.Error(t, h.ctl.SetLayer(context.Background(), Layer("clouds"), true))
}

func TestToggleFlipsState(t *testing.T) {
	h := newHarness()
	on, err := h.ctl.Toggle(context.Background(), LayerRain)
	require.NoError(t, err)
	assert.True(t, on)
	on, err = h.ctl.Toggle(context.Background(), LayerRain)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestConcurrentTogglesAlternate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	const presses = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[bool]int{}
	for i := 0; i < presses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			on, err := h.ctl.Toggle(ctx, LayerWind)
			assert.NoError(t, err)
			mu.Lock()
			seen[on]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.False(t, h.ctl.Layers().Wind)
	assert.Equal(t, presses/2, seen[true])
	assert.Equal(t, presses/2, seen[false])
	assert.Len(t, h.glyphs.renders(), presses/2)
	assert.Len(t, h.glyphs.clears(), presses/2)
}

func TestEventRefreshesCenterAndRerendersEnabledLayers(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.ctl.Apply(ctx, Toggles{Wind: true, Rain: true}))
	before := len(h.glyphs.renders())
	refreshes := h.sampler.refreshes

	require.NoError(t, h.ctl.OnExternalEvent(ctx, Event{Kind: EventMove}))

	got := h.glyphs.renders()[before:]
	assert.Equal(t, []arrows.Kind{arrows.KindRain, arrows.KindWind}, got)
	assert.Equal(t, refreshes+1, h.sampler.refreshes)
	assert.Empty(t, h.field.resizes)
}

func TestEventSkipsDisabledLayers(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ctl.OnExternalEvent(context.Background(), Event{Kind: EventZoomEnd}))
	assert.Empty(t, h.glyphs.renders())
	assert.Equal(t, 1, h.sampler.refreshes)
}

func TestResizeEventResizesCanvas(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ctl.OnExternalEvent(context.Background(), Event{Kind: EventResize, Width: 80, Height: 24, PixelRatio: 2}))
	require.Len(t, h.field.resizes, 1)
	assert.Equal(t, [3]float64{80, 24, 2}, h.field.resizes[0])
}

func TestCenterRefreshFailureStillRenders(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.ctl.SetLayer(ctx, LayerWind, true))
	h.sampler.err = errors.New("offline")

	require.NoError(t, h.ctl.OnExternalEvent(ctx, Event{Kind: EventMove}))
	assert.Len(t, h.glyphs.renders(), 2)
}

func TestMissingCenterIsNotAnError(t *testing.T) {
	h := newHarness()
	h.glyphs.err = arrows.ErrNoCenter
	assert.NoError(t, h.ctl.SetLayer(context.Background(), LayerRain, true))
}

func TestNewerEventCancelsPreviousPass(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.ctl.toggles.Wind = true
	h.glyphs.block = make(chan struct{})

	first := make(chan error, 1)
	go func() { first <- h.ctl.OnExternalEvent(ctx, Event{Kind: EventMove}) }()

	require.Eventually(t, func() bool {
		h.ctl.mu.Lock()
		defer h.ctl.mu.Unlock()
		return h.ctl.seq == 1
	}, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- h.ctl.OnExternalEvent(ctx, Event{Kind: EventMove}) }()

	select {
	case err := <-first:
		assert.NoError(t, err, "superseded pass ends quietly")
	case <-time.After(time.Second):
		t.Fatal("first pass was not canceled")
	}

	close(h.glyphs.block)
	require.NoError(t, <-second)
	assert.Equal(t, []arrows.Kind{arrows.KindWind}, h.glyphs.renders())
}
