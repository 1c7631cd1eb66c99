package particles

import (
	"sync"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/anim"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

type fakeCanvas struct {
	mu     sync.Mutex
	w, h   int
	lines  int
	fades  int
	clears int
	last   colorful.Color
}

func (c *fakeCanvas) Size() (int, int) { return c.w, c.h }

func (c *fakeCanvas) Resize(cssW, cssH int, ratio float64) {
	c.w, c.h = int(float64(cssW)*ratio), int(float64(cssH)*ratio)
}

func (c *fakeCanvas) Fade(colorful.Color, float64) {
	c.mu.Lock()
	c.fades++
	c.mu.Unlock()
}

func (c *fakeCanvas) Line(_, _, _, _ float64, col colorful.Color) {
	c.mu.Lock()
	c.lines++
	c.last = col
	c.mu.Unlock()
}

func (c *fakeCanvas) Clear() {
	c.mu.Lock()
	c.clears++
	c.mu.Unlock()
}

func (c *fakeCanvas) counts() (lines, fades, clears int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines, c.fades, c.clears
}

type staticWind struct {
	w  weather.WindSample
	ok bool
}

func (s staticWind) Center() (weather.WindSample, bool) { return s.w, s.ok }

func newTestField(w weather.WindSample, opts Options) (*Field, *fakeCanvas, *anim.ManualFactory) {
	canvas := &fakeCanvas{w: 400, h: 300}
	opts.Seed = 7
	f := NewField(canvas, staticWind{w: w, ok: true}, opts, zap.NewNop())
	factory := &anim.ManualFactory{}
	f.SetTickerFactory(factory.New)
	return f, canvas, factory
}

func TestPoolSizeIsInvariant(t *testing.T) {
	f, canvas, _ := newTestField(weather.NewWindSample(80, 270), DefaultOptions())
	f.Start()
	defer f.Stop()

	require.Equal(t, 650, f.Len())
	for i := 0; i < 500; i++ {
		require.True(t, f.Step())
		require.Equal(t, 650, f.Len())
	}

	for _, p := range f.Particles() {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, 400.0)
		assert.LessOrEqual(t, p.Age, 150)
	}

	lines, fades, _ := canvas.counts()
	assert.Equal(t, 500*650, lines)
	assert.Equal(t, 500, fades)
}

func TestInitialAgesAreDesynchronized(t *testing.T) {
	f, _, _ := newTestField(weather.NewWindSample(10, 0), DefaultOptions())
	f.Start()
	defer f.Stop()

	ages := map[int]bool{}
	for _, p := range f.Particles() {
		ages[p.Age] = true
	}
	assert.Greater(t, len(ages), 20)
}

func TestAdvectionFollowsFlow(t *testing.T) {
	opts := DefaultOptions()
	opts.Count = 1
	opts.MaxAge = 1000
	// From the west at 25 km/h: flow east, speed factor 1.
	f, canvas, _ := newTestField(weather.NewWindSample(25, 270), opts)
	f.Start()
	defer f.Stop()

	f.mu.Lock()
	f.pool[0].X, f.pool[0].Y, f.pool[0].Age = 100, 100, 0
	f.mu.Unlock()

	require.True(t, f.Step())
	p := f.Particles()[0]
	assert.InDelta(t, 101.5, p.X, 1e-9)
	assert.InDelta(t, 100.0, p.Y, 1e-9)
	assert.Equal(t, 1, p.Age)
	assert.Equal(t, weather.SpeedColor(25), canvas.last)
}

func TestCalmWindStillMoves(t *testing.T) {
	opts := DefaultOptions()
	opts.Count = 1
	opts.MaxAge = 1000
	f, _, _ := newTestField(weather.NewWindSample(0, 0), opts)
	f.Start()
	defer f.Stop()

	f.mu.Lock()
	f.pool[0].X, f.pool[0].Y = 50, 50
	f.mu.Unlock()

	f.Step()
	// Factor floor 0.2 times step 1.5, southward.
	assert.InDelta(t, 50.3, f.Particles()[0].Y, 1e-9)
}

func TestRespawnReusesIdentity(t *testing.T) {
	opts := DefaultOptions()
	opts.Count = 1
	f, _, _ := newTestField(weather.NewWindSample(200, 270), opts)
	f.Start()
	defer f.Stop()

	f.mu.Lock()
	orig := f.pool[0]
	orig.X, orig.Y, orig.Age = 399.9, 10, 3
	f.mu.Unlock()

	f.Step()

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Same(t, orig, f.pool[0])
	assert.Equal(t, 0, orig.Age)
	assert.Less(t, orig.X, 400.0)
}

func TestOldAgeRespawns(t *testing.T) {
	opts := DefaultOptions()
	opts.Count = 1
	opts.MaxAge = 5
	f, _, _ := newTestField(weather.NewWindSample(0, 0), opts)
	f.Start()
	defer f.Stop()

	f.mu.Lock()
	f.pool[0].X, f.pool[0].Y, f.pool[0].Age = 10, 10, 5
	f.mu.Unlock()

	f.Step()
	assert.Equal(t, 0, f.Particles()[0].Age)
}

func TestStopHaltsLoopAndClears(t *testing.T) {
	f, canvas, factory := newTestField(weather.NewWindSample(10, 90), DefaultOptions())
	f.Start()
	tk := factory.Last()

	require.True(t, tk.Tick(time.Second))
	require.Eventually(t, func() bool { _, fades, _ := canvas.counts(); return fades == 1 }, time.Second, time.Millisecond)

	f.Stop()
	assert.True(t, tk.Stopped())
	assert.False(t, f.Running())
	assert.Equal(t, 0, f.Len())
	_, _, clears := canvas.counts()
	assert.Equal(t, 1, clears)

	assert.False(t, f.Step())
	tk.Tick(20 * time.Millisecond)
	_, fades, _ := canvas.counts()
	assert.Equal(t, 1, fades)
}

func TestStaleLoopCannotDrawAfterRestart(t *testing.T) {
	f, _, _ := newTestField(weather.NewWindSample(10, 90), DefaultOptions())
	f.Start()

	f.mu.Lock()
	oldGen := f.gen
	f.mu.Unlock()

	f.Stop()
	f.Start()
	defer f.Stop()

	assert.False(t, f.step(oldGen))
	assert.True(t, f.Step())
}

func TestResizeReseedsWhileRunning(t *testing.T) {
	f, canvas, _ := newTestField(weather.NewWindSample(10, 90), DefaultOptions())
	f.Start()
	defer f.Stop()

	f.Resize(50, 40, 2)
	assert.Equal(t, 100, canvas.w)
	assert.Equal(t, 80, canvas.h)
	assert.Equal(t, 650, f.Len())
	for _, p := range f.Particles() {
		assert.Less(t, p.X, 100.0)
		assert.Less(t, p.Y, 80.0)
	}
}

func TestResizeWhileStoppedOnlyResizes(t *testing.T) {
	f, canvas, _ := newTestField(weather.NewWindSample(10, 90), DefaultOptions())

	f.Resize(20, 10, 1)
	assert.Equal(t, 20, canvas.w)
	assert.Equal(t, 0, f.Len())
}

func TestNoCenterWindOnlyFades(t *testing.T) {
	canvas := &fakeCanvas{w: 100, h: 100}
	f := NewField(canvas, staticWind{}, DefaultOptions(), zap.NewNop())
	factory := &anim.ManualFactory{}
	f.SetTickerFactory(factory.New)
	f.Start()
	defer f.Stop()

	require.True(t, f.Step())
	lines, fades, _ := canvas.counts()
	assert.Equal(t, 0, lines)
	assert.Equal(t, 1, fades)
}
