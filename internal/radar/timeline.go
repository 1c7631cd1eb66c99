package radar

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/anim"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

// TileLayer is the map's radar tile attachment point.
type TileLayer interface {
	SetSource(src TileSource)
}

// View receives the timeline's user-visible state: time label, scrubber and status line.
type View interface {
	SetTimeLabel(label string)
	SetScrubber(min, max, value int)
	SetStatus(status string)
}

// Cursor is the timeline position.
type Cursor struct {
	FrameIndex int  `json:"frameIndex"`
	Playing    bool `json:"playing"`
	Frames     int  `json:"frames"`
}

// Timeline owns the ordered radar frames and drives playback over them.
type Timeline struct {
	source    weather.RadarSource
	layer     TileLayer
	view      View
	opts      Options
	logger    *zap.Logger
	newTicker anim.Factory

	mu     sync.Mutex
	host   string
	frames []weather.RadarFrame
	index  int
	ticker anim.Ticker
	stop   chan struct{}
}

// NewTimeline creates an empty, paused timeline.
func NewTimeline(source weather.RadarSource, layer TileLayer, view View, opts Options, logger *zap.Logger) *Timeline {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	return &Timeline{
		source:    source,
		layer:     layer,
		view:      view,
		opts:      opts,
		logger:    logger.Named("radar"),
		newTicker: anim.NewTicker,
	}
}

// SetTickerFactory replaces the playback clock. It must be called before Play.
func (t *Timeline) SetTickerFactory(f anim.Factory) {
	t.mu.Lock()
	t.newTicker = f
	t.mu.Unlock()
}

// Load fetches the frame catalog and replaces the frame list. Playback is
// positioned at the newest past frame. Failures leave the previous frames in
// place; the returned status describes the outcome either way.
func (t *Timeline) Load(ctx context.Context) string {
	cat, err := t.source.Catalog(ctx)
	if err != nil {
		t.logger.Warn("radar catalog fetch failed", zap.String("source", t.source.Name()), zap.Error(err))
		return t.report("radar unavailable")
	}

	frames := make([]weather.RadarFrame, 0, len(cat.Past)+len(cat.Nowcast))
	frames = append(frames, cat.Past...)
	if t.opts.IncludeNowcast {
		frames = append(frames, cat.Nowcast...)
	}
	if len(frames) == 0 {
		return t.report("no radar frames available")
	}

	t.mu.Lock()
	t.host = cat.Host
	t.frames = frames
	t.index = len(cat.Past) - 1
	if t.index < 0 {
		t.index = 0
	}
	t.view.SetScrubber(0, len(frames)-1, t.index)
	t.showLocked(t.index)
	t.mu.Unlock()

	t.logger.Debug("radar catalog loaded",
		zap.Int("past", len(cat.Past)),
		zap.Int("nowcast", len(cat.Nowcast)),
		zap.Int("frames", len(frames)))
	return t.report(fmt.Sprintf("%d radar frames", len(frames)))
}

func (t *Timeline) report(status string) string {
	t.view.SetStatus(status)
	return status
}

// Show displays frame i. Out-of-range indexes are ignored.
func (t *Timeline) Show(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.showLocked(i)
}

func (t *Timeline) showLocked(i int) bool {
	if i < 0 || i >= len(t.frames) {
		return false
	}
	t.index = i
	f := t.frames[i]
	t.layer.SetSource(t.opts.Source(t.host, f))
	t.view.SetTimeLabel(t.opts.TimeLabel(f))
	return true
}

// Scrub jumps to frame i without touching the playing state.
func (t *Timeline) Scrub(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.showLocked(i) {
		return false
	}
	t.view.SetScrubber(0, len(t.frames)-1, i)
	return true
}

// Play starts advancing one frame per interval. Calling it while playing is a no-op.
func (t *Timeline) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ticker != nil {
		return
	}

	tk := t.newTicker(t.opts.Interval)
	stop := make(chan struct{})
	t.ticker = tk
	t.stop = stop

	go t.run(tk, stop)
}

// Pause stops playback immediately.
func (t *Timeline) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	close(t.stop)
	t.ticker = nil
	t.stop = nil
}

// Toggle flips between playing and paused and reports the new state.
func (t *Timeline) Toggle() bool {
	if t.Cursor().Playing {
		t.Pause()
		return false
	}
	t.Play()
	return true
}

func (t *Timeline) run(tk anim.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-tk.C():
			t.advance(stop)
		}
	}
}

func (t *Timeline) advance(stop chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// A tick racing a Pause (or a Pause/Play pair) belongs to a dead loop.
	if t.stop != stop || len(t.frames) == 0 {
		return
	}
	next := (t.index + 1) % len(t.frames)
	t.showLocked(next)
	t.view.SetScrubber(0, len(t.frames)-1, next)
}

// Cursor returns the current position and playing state.
func (t *Timeline) Cursor() Cursor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Cursor{FrameIndex: t.index, Playing: t.ticker != nil, Frames: len(t.frames)}
}

// Frames returns a copy of the frame list.
func (t *Timeline) Frames() []weather.RadarFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]weather.RadarFrame(nil), t.frames...)
}
