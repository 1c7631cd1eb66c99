package terminal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/alerts"
	"github.com/i474232898/weather-radar-map/internal/arrows"
	"github.com/i474232898/weather-radar-map/internal/radar"
	"github.com/i474232898/weather-radar-map/internal/viewport"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

// Timeline is the radar playback the UI drives.
type Timeline interface {
	Toggle() bool
	Scrub(i int) bool
	Cursor() radar.Cursor
}

// Layers is the viewport controller the UI reports navigation to.
type Layers interface {
	Toggle(ctx context.Context, layer viewport.Layer) (bool, error)
	Layers() viewport.Toggles
	OnExternalEvent(ctx context.Context, ev viewport.Event) error
}

// ConditionsSource reports the current weather at the map center.
type ConditionsSource interface {
	Conditions() (weather.Conditions, bool)
}

// Theme is the surface palette.
type Theme struct {
	Background colorful.Color
	Foreground colorful.Color
}

var Themes = map[string]Theme{
	"dark": {
		Background: colorful.Color{R: 0.06, G: 0.07, B: 0.09},
		Foreground: colorful.Color{R: 0.85, G: 0.87, B: 0.9},
	},
	"light": {
		Background: colorful.Color{R: 0.93, G: 0.94, B: 0.95},
		Foreground: colorful.Color{R: 0.12, G: 0.13, B: 0.16},
	},
}

type Options struct {
	Background    colorful.Color
	Foreground    colorful.Color
	PixelRatio    float64
	FrameInterval time.Duration
	ToastTTL      time.Duration
	PanCols       int
	PanRows       int
}

func DefaultOptions() Options {
	return Options{
		Background:    Themes["dark"].Background,
		Foreground:    Themes["dark"].Foreground,
		PixelRatio:    2,
		FrameInterval: time.Second / 30,
		ToastTTL:      6 * time.Second,
		PanCols:       4,
		PanRows:       2,
	}
}

type toast struct {
	msg     string
	expires time.Time
}

// UI owns the screen and translates keys into map, timeline and layer actions.
type UI struct {
	screen   tcell.Screen
	view     *MapView
	canvas   *Canvas
	timeline Timeline
	layers   Layers
	opts     Options
	logger   *zap.Logger
	now      func() time.Time

	onSearch   func(q string)
	onFavorite func(c weather.Coordinate)
	conditions ConditionsSource
	radar      *RadarOverlay

	mu        sync.Mutex
	toasts    []toast
	searching bool
	query     []rune
	results   []weather.Place
	selected  int
}

func New(screen tcell.Screen, view *MapView, canvas *Canvas, timeline Timeline, layers Layers, opts Options, logger *zap.Logger) *UI {
	return &UI{
		screen:     screen,
		view:       view,
		canvas:     canvas,
		timeline:   timeline,
		layers:     layers,
		opts:       opts,
		logger:     logger.Named("terminal"),
		now:        time.Now,
		onSearch:   func(string) {},
		onFavorite: func(weather.Coordinate) {},
	}
}

// OnSearch sets the handler called with the query text after each edit.
func (u *UI) OnSearch(fn func(q string)) { u.onSearch = fn }

// OnFavorite sets the handler for the save-favorite key.
func (u *UI) OnFavorite(fn func(c weather.Coordinate)) { u.onFavorite = fn }

// SetConditions sets where the status line reads current conditions from.
func (u *UI) SetConditions(src ConditionsSource) { u.conditions = src }

// SetRadar sets the overlay that shades cells with the shown radar frame.
func (u *UI) SetRadar(o *RadarOverlay) { u.radar = o }

// Toast shows a transient message.
func (u *UI) Toast(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.toasts = append(u.toasts, toast{msg: msg, expires: u.now().Add(u.opts.ToastTTL)})
	if len(u.toasts) > 4 {
		u.toasts = u.toasts[len(u.toasts)-4:]
	}
}

// Notify shows an alert as a toast.
func (u *UI) Notify(a alerts.Alert) {
	u.Toast(a.Message)
}

// SetResults replaces the search results. No places hides the panel.
func (u *UI) SetResults(places []weather.Place) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.results = places
	u.selected = 0
}

// Run processes input and redraws until ctx ends or the user quits.
func (u *UI) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := u.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	u.resize(ctx)

	ticker := time.NewTicker(u.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok || !u.handle(ctx, ev) {
				return nil
			}
		case <-ticker.C:
			if u.radar != nil {
				u.radar.Sync(ctx, u.view)
			}
			u.Draw()
		}
	}
}

// handle applies one event and reports whether to keep running.
func (u *UI) handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		u.screen.Sync()
		u.resize(ctx)
	case *tcell.EventKey:
		if u.isSearching() {
			u.handleSearchKey(ctx, ev)
			return true
		}
		return u.handleKey(ctx, ev)
	}
	return true
}

func (u *UI) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		u.pan(ctx, -u.opts.PanCols, 0)
	case tcell.KeyRight:
		u.pan(ctx, u.opts.PanCols, 0)
	case tcell.KeyUp:
		u.pan(ctx, 0, -u.opts.PanRows)
	case tcell.KeyDown:
		u.pan(ctx, 0, u.opts.PanRows)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'h':
			u.pan(ctx, -u.opts.PanCols, 0)
		case 'l':
			u.pan(ctx, u.opts.PanCols, 0)
		case 'k':
			u.pan(ctx, 0, -u.opts.PanRows)
		case 'j':
			u.pan(ctx, 0, u.opts.PanRows)
		case '+', '=':
			u.zoom(ctx, 1)
		case '-':
			u.zoom(ctx, -1)
		case ' ':
			u.timeline.Toggle()
		case ',':
			u.scrub(-1)
		case '.':
			u.scrub(1)
		case 'w':
			u.toggle(ctx, viewport.LayerWind)
		case 'r':
			u.toggle(ctx, viewport.LayerRain)
		case 'p':
			u.toggle(ctx, viewport.LayerParticles)
		case '/':
			u.mu.Lock()
			u.searching = true
			u.query = u.query[:0]
			u.mu.Unlock()
		case 'f':
			u.onFavorite(u.view.Center())
		}
	}
	return true
}

func (u *UI) handleSearchKey(ctx context.Context, ev *tcell.EventKey) {
	u.mu.Lock()
	switch ev.Key() {
	case tcell.KeyEscape:
		u.searching = false
		u.results = nil
		u.query = u.query[:0]
	case tcell.KeyEnter:
		if len(u.results) > 0 {
			p := u.results[u.selected]
			u.searching = false
			u.results = nil
			u.query = u.query[:0]
			u.mu.Unlock()
			u.onSearch("")
			u.view.SetCenter(p.Coordinate)
			u.Toast(p.Name)
			u.dispatch(ctx, viewport.EventMove)
			return
		}
		u.mu.Unlock()
		return
	case tcell.KeyUp:
		if u.selected > 0 {
			u.selected--
		}
		u.mu.Unlock()
		return
	case tcell.KeyDown:
		if u.selected < len(u.results)-1 {
			u.selected++
		}
		u.mu.Unlock()
		return
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(u.query) > 0 {
			u.query = u.query[:len(u.query)-1]
		}
	case tcell.KeyRune:
		u.query = append(u.query, ev.Rune())
	default:
		u.mu.Unlock()
		return
	}
	q := string(u.query)
	u.mu.Unlock()
	u.onSearch(q)
}

func (u *UI) isSearching() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.searching
}

func (u *UI) pan(ctx context.Context, dCols, dRows int) {
	u.view.Pan(dCols, dRows)
	u.dispatch(ctx, viewport.EventMove)
}

func (u *UI) zoom(ctx context.Context, delta int) {
	if u.view.ZoomBy(delta) {
		u.dispatch(ctx, viewport.EventZoomEnd)
	}
}

func (u *UI) scrub(delta int) {
	cur := u.timeline.Cursor()
	if cur.Frames == 0 {
		return
	}
	u.timeline.Scrub(((cur.FrameIndex+delta)%cur.Frames + cur.Frames) % cur.Frames)
}

func (u *UI) toggle(ctx context.Context, layer viewport.Layer) {
	go func() {
		on, err := u.layers.Toggle(ctx, layer)
		if err != nil {
			u.logger.Warn("layer toggle failed", zap.String("layer", string(layer)), zap.Error(err))
			u.Toast(fmt.Sprintf("%s layer: %v", layer, err))
			return
		}
		u.logger.Debug("layer toggled", zap.String("layer", string(layer)), zap.Bool("enabled", on))
	}()
}

func (u *UI) resize(ctx context.Context) {
	w, h := u.screen.Size()
	rows := max(h-2, 1)
	u.view.SetSize(w, rows)
	go func() {
		ev := viewport.Event{Kind: viewport.EventResize, Width: w, Height: rows, PixelRatio: u.opts.PixelRatio}
		if err := u.layers.OnExternalEvent(ctx, ev); err != nil {
			u.logger.Warn("resize sync failed", zap.Error(err))
		}
	}()
}

func (u *UI) dispatch(ctx context.Context, kind viewport.EventKind) {
	go func() {
		if err := u.layers.OnExternalEvent(ctx, viewport.Event{Kind: kind}); err != nil {
			u.logger.Warn("viewport sync failed", zap.Stringer("event", kind), zap.Error(err))
		}
	}()
}

// Draw renders one frame.
func (u *UI) Draw() {
	bg := tcell.StyleDefault.Background(tcellColor(u.opts.Background))
	fg := bg.Foreground(tcellColor(u.opts.Foreground))
	u.screen.Fill(' ', bg)

	w, h := u.screen.Size()
	cols, rows := u.view.Size()

	cells := u.drawRadar(bg, cols, rows)
	u.drawParticles(cells, cols, rows)
	u.drawGlyphs(cells)
	if cols > 0 && rows > 0 {
		u.screen.SetContent(cols/2, 1+rows/2, '+', nil, fg)
	}
	u.drawTopBar(fg, w)
	u.drawStatus(fg, w, h-1)
	u.drawToasts(fg, w)
	u.drawSearch(fg, w)
	u.screen.Show()
}

// cellStyles holds the background style of every map cell, so layers drawn
// above the radar keep its shading.
type cellStyles struct {
	base  tcell.Style
	cols  int
	cells []tcell.Style
}

func (c cellStyles) at(col, row int) tcell.Style {
	i := row*c.cols + col
	if c.cells == nil || col < 0 || col >= c.cols || i < 0 || i >= len(c.cells) {
		return c.base
	}
	return c.cells[i]
}

// drawRadar shades the map area with the radar frame and returns the
// resulting cell backgrounds.
func (u *UI) drawRadar(bg tcell.Style, cols, rows int) cellStyles {
	out := cellStyles{base: bg, cols: cols}
	if u.radar == nil {
		return out
	}
	g, _ := u.view.radarState()
	frame := u.radar.frameFor(g)
	if len(frame) != cols*rows {
		return out
	}

	out.cells = make([]tcell.Style, len(frame))
	for i, c := range frame {
		if c.alpha < 0.02 {
			out.cells[i] = bg
			continue
		}
		shade := u.opts.Background.BlendRgb(c.color, c.alpha)
		out.cells[i] = bg.Background(tcellColor(shade))
		u.screen.SetContent(i%cols, 1+i/cols, ' ', nil, out.cells[i])
	}
	return out
}

func (u *UI) drawParticles(cells cellStyles, cols, rows int) {
	if !u.layers.Layers().Particles {
		return
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c, strength := u.canvas.Cell(col, row)
			if strength < 0.08 {
				continue
			}
			r := '·'
			if strength > 0.4 {
				r = '•'
			}
			u.screen.SetContent(col, row+1, r, nil, cells.at(col, row).Foreground(tcellColor(c)))
		}
	}
}

func (u *UI) drawGlyphs(cells cellStyles) {
	for _, l := range u.view.Layers() {
		for _, g := range l.Glyphs() {
			col, row, ok := u.view.Project(g.At)
			if !ok {
				continue
			}
			style := cells.at(col, row).Foreground(tcellColor(g.Color))
			if g.Fallback {
				style = style.Dim(true)
			}
			u.screen.SetContent(col, row+1, arrowRune(l.Kind(), g.RotationDeg), nil, style)
		}
	}
}

func (u *UI) drawTopBar(style tcell.Style, w int) {
	label, s, status := u.view.Radar()
	cur := u.timeline.Cursor()

	state := "||"
	if cur.Playing {
		state = "> "
	}
	bar := fmt.Sprintf("%s %s %s %d/%d  %s", state, label, scrubberBar(s, 12), s.Value, s.Max, status)
	drawText(u.screen, 0, 0, w, style.Reverse(true), padRight(bar, w))
}

func (u *UI) drawStatus(style tcell.Style, w, y int) {
	t := u.layers.Layers()
	c := u.view.Center()
	line := fmt.Sprintf("%s%s z%d  [w]ind:%s [r]ain:%s [p]articles:%s  [/]search [f]av [q]uit",
		u.conditionsText(), c, u.view.Zoom(), onOff(t.Wind), onOff(t.Rain), onOff(t.Particles))
	drawText(u.screen, 0, y, w, style.Reverse(true), padRight(line, w))
}

func (u *UI) conditionsText() string {
	if u.conditions == nil {
		return ""
	}
	c, ok := u.conditions.Conditions()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.0f°C (feels %.0f°C) %s  ", c.TemperatureC, c.ApparentC, c.Condition)
}

func (u *UI) drawToasts(style tcell.Style, w int) {
	now := u.now()
	u.mu.Lock()
	live := u.toasts[:0]
	for _, t := range u.toasts {
		if now.Before(t.expires) {
			live = append(live, t)
		}
	}
	u.toasts = live
	msgs := make([]string, len(live))
	for i, t := range live {
		msgs[i] = t.msg
	}
	u.mu.Unlock()

	for i, m := range msgs {
		m = " " + m + " "
		x := max(w-len([]rune(m)), 0)
		drawText(u.screen, x, 1+i, w, style.Bold(true).Reverse(true), m)
	}
}

func (u *UI) drawSearch(style tcell.Style, w int) {
	u.mu.Lock()
	searching := u.searching
	q := string(u.query)
	results := append([]weather.Place(nil), u.results...)
	sel := u.selected
	u.mu.Unlock()

	if !searching {
		return
	}
	drawText(u.screen, 0, 1, w, style.Underline(true), padRight("/"+q+"_", min(w, 40)))
	for i, p := range results {
		st := style
		if i == sel {
			st = st.Reverse(true)
		}
		drawText(u.screen, 0, 2+i, w, st, padRight(p.Name, min(w, 40)))
	}
}

func scrubberBar(s Scrubber, width int) string {
	if s.Max <= s.Min {
		return "[" + strings.Repeat("·", width) + "]"
	}
	pos := (s.Value - s.Min) * (width - 1) / (s.Max - s.Min)
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < width; i++ {
		switch {
		case i == pos:
			b.WriteRune('●')
		case i < pos:
			b.WriteRune('━')
		default:
			b.WriteRune('─')
		}
	}
	b.WriteByte(']')
	return b.String()
}

func drawText(s tcell.Screen, x, y, maxX int, style tcell.Style, text string) {
	for _, r := range text {
		if x >= maxX {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func padRight(s string, w int) string {
	n := len([]rune(s))
	if n >= w {
		return s
	}
	return s + strings.Repeat(" ", w-n)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

var _ arrows.Map = (*MapView)(nil)
var _ radar.TileLayer = (*MapView)(nil)
var _ radar.View = (*MapView)(nil)
var _ alerts.Notifier = (*UI)(nil)
