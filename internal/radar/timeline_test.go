package radar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/anim"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

type fakeSource struct {
	catalog weather.RadarCatalog
	err     error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Catalog(context.Context) (weather.RadarCatalog, error) {
	return f.catalog, f.err
}

type recorder struct {
	mu       sync.Mutex
	source   TileSource
	label    string
	status   string
	scrubber [3]int
	sets     int
}

func (r *recorder) SetSource(src TileSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source = src
	r.sets++
}

func (r *recorder) SetTimeLabel(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.label = label
}

func (r *recorder) SetScrubber(min, max, value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrubber = [3]int{min, max, value}
}

func (r *recorder) SetStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *recorder) snapshot() recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorder{source: r.source, label: r.label, status: r.status, scrubber: r.scrubber, sets: r.sets}
}

func catalog(past, nowcast int) weather.RadarCatalog {
	cat := weather.RadarCatalog{Host: "https://tiles.example"}
	base := int64(1717236000)
	for i := 0; i < past; i++ {
		cat.Past = append(cat.Past, weather.RadarFrame{Time: base + int64(i)*600, Path: fmt.Sprintf("/v2/radar/p%d", i)})
	}
	for i := 0; i < nowcast; i++ {
		cat.Nowcast = append(cat.Nowcast, weather.RadarFrame{Time: base + int64(past+i)*600, Path: fmt.Sprintf("/v2/radar/n%d", i)})
	}
	return cat
}

func newTestTimeline(src *fakeSource, opts Options) (*Timeline, *recorder, *anim.ManualFactory) {
	rec := &recorder{}
	f := &anim.ManualFactory{}
	opts.Location = time.UTC
	tl := NewTimeline(src, rec, rec, opts, zap.NewNop())
	tl.SetTickerFactory(f.New)
	return tl, rec, f
}

func TestLoadStartsAtEndOfPast(t *testing.T) {
	tl, rec, _ := newTestTimeline(&fakeSource{catalog: catalog(10, 2)}, DefaultOptions())

	status := tl.Load(context.Background())

	assert.Equal(t, "12 radar frames", status)
	assert.Equal(t, Cursor{FrameIndex: 9, Playing: false, Frames: 12}, tl.Cursor())

	got := rec.snapshot()
	assert.Equal(t, [3]int{0, 11, 9}, got.scrubber)
	assert.Equal(t, "https://tiles.example/v2/radar/p9/256/{z}/{x}/{y}/2/1_1.png", got.source.URLTemplate)
	assert.Equal(t, TransparentTile, got.source.ErrorTileURL)
	assert.Equal(t, 7, got.source.MaxNativeZoom)
}

func TestLoadWithoutNowcast(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeNowcast = false
	opts.TileSize = 512
	tl, rec, _ := newTestTimeline(&fakeSource{catalog: catalog(10, 2)}, opts)

	tl.Load(context.Background())

	assert.Len(t, tl.Frames(), 10)
	assert.Equal(t, 9, tl.Cursor().FrameIndex)
	assert.Equal(t, [3]int{0, 9, 9}, rec.snapshot().scrubber)
	assert.Contains(t, rec.snapshot().source.URLTemplate, "/512/{z}/{x}/{y}/")
}

func TestLoadFailureKeepsFrames(t *testing.T) {
	src := &fakeSource{catalog: catalog(3, 0)}
	tl, rec, _ := newTestTimeline(src, DefaultOptions())
	tl.Load(context.Background())

	src.err = errors.New("connection refused")
	status := tl.Load(context.Background())

	assert.Equal(t, "radar unavailable", status)
	assert.Equal(t, "radar unavailable", rec.snapshot().status)
	assert.Len(t, tl.Frames(), 3)
	assert.Equal(t, 2, tl.Cursor().FrameIndex)
}

func TestLoadEmptyCatalog(t *testing.T) {
	src := &fakeSource{catalog: catalog(2, 0)}
	tl, _, _ := newTestTimeline(src, DefaultOptions())
	tl.Load(context.Background())

	src.catalog = weather.RadarCatalog{}
	assert.Equal(t, "no radar frames available", tl.Load(context.Background()))
	assert.Len(t, tl.Frames(), 2)
}

func TestShow(t *testing.T) {
	tl, rec, _ := newTestTimeline(&fakeSource{catalog: catalog(5, 0)}, DefaultOptions())
	tl.Load(context.Background())

	for i, f := range tl.Frames() {
		require.True(t, tl.Show(i))
		got := rec.snapshot()
		assert.Equal(t, DefaultOptions().URLTemplate("https://tiles.example", f), got.source.URLTemplate)
		assert.Equal(t, time.Unix(f.Time, 0).UTC().Format("Mon 15:04"), got.label)
		assert.Equal(t, i, tl.Cursor().FrameIndex)
	}

	before := rec.snapshot()
	assert.False(t, tl.Show(-1))
	assert.False(t, tl.Show(5))
	after := rec.snapshot()
	assert.Equal(t, before.sets, after.sets)
	assert.Equal(t, before.source, after.source)
	assert.Equal(t, 4, tl.Cursor().FrameIndex)
}

func TestShowOnEmptyTimelineIsInert(t *testing.T) {
	tl, rec, _ := newTestTimeline(&fakeSource{}, DefaultOptions())

	assert.False(t, tl.Show(0))
	assert.False(t, tl.Scrub(0))
	assert.Equal(t, 0, rec.snapshot().sets)
}

func TestPlaybackAdvancesAndWraps(t *testing.T) {
	tl, _, f := newTestTimeline(&fakeSource{catalog: catalog(10, 2)}, DefaultOptions())
	tl.Load(context.Background())

	tl.Play()
	tl.Play()
	require.Equal(t, 1, f.Created())
	assert.True(t, tl.Cursor().Playing)

	tk := f.Last()
	for _, want := range []int{10, 11, 0, 1} {
		require.True(t, tk.Tick(time.Second))
		require.Eventually(t, func() bool { return tl.Cursor().FrameIndex == want },
			time.Second, time.Millisecond, "want frame %d", want)
	}

	tl.Pause()
	assert.True(t, tk.Stopped())
	assert.False(t, tl.Cursor().Playing)

	tk.Tick(20 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, tl.Cursor().FrameIndex)

	tl.Play()
	assert.Equal(t, 2, f.Created())
	require.True(t, f.Last().Tick(time.Second))
	require.Eventually(t, func() bool { return tl.Cursor().FrameIndex == 2 }, time.Second, time.Millisecond)
	tl.Pause()
}

func TestScrubKeepsPlayingState(t *testing.T) {
	tl, rec, _ := newTestTimeline(&fakeSource{catalog: catalog(6, 0)}, DefaultOptions())
	tl.Load(context.Background())

	tl.Play()
	require.True(t, tl.Scrub(1))
	assert.True(t, tl.Cursor().Playing)
	assert.Equal(t, [3]int{0, 5, 1}, rec.snapshot().scrubber)
	tl.Pause()

	require.True(t, tl.Scrub(3))
	assert.False(t, tl.Cursor().Playing)
	assert.Equal(t, 3, tl.Cursor().FrameIndex)
}

func TestToggle(t *testing.T) {
	tl, _, _ := newTestTimeline(&fakeSource{catalog: catalog(2, 0)}, DefaultOptions())
	tl.Load(context.Background())

	assert.True(t, tl.Toggle())
	assert.False(t, tl.Toggle())
	assert.False(t, tl.Cursor().Playing)
}
