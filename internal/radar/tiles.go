package radar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// TransparentTile is served in place of tiles the imagery host has no data for.
const TransparentTile = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// DefaultTileHost is used when the catalog does not name one.
const DefaultTileHost = "https://tilecache.rainviewer.com"

// Options configures frame selection and tile rendering.
type Options struct {
	TileSize       int
	IncludeNowcast bool
	Opacity        float64
	ColorScheme    int
	TileOptions    string
	// MaxNativeZoom is the highest zoom the host serves; deeper zooms upscale it.
	MaxNativeZoom int
	MaxZoom       int
	Interval      time.Duration
	Location      *time.Location
}

// DefaultOptions mirrors the public RainViewer setup.
func DefaultOptions() Options {
	return Options{
		TileSize:       256,
		IncludeNowcast: true,
		Opacity:        0.7,
		ColorScheme:    2,
		TileOptions:    "1_1",
		MaxNativeZoom:  7,
		MaxZoom:        12,
		Interval:       700 * time.Millisecond,
		Location:       time.Local,
	}
}

// TileSource is what the tile layer needs to display one frame.
type TileSource struct {
	URLTemplate   string  `json:"urlTemplate"`
	Opacity       float64 `json:"opacity"`
	TileSize      int     `json:"tileSize"`
	MaxNativeZoom int     `json:"maxNativeZoom"`
	MaxZoom       int     `json:"maxZoom"`
	ErrorTileURL  string  `json:"errorTileUrl"`
}

// Empty reports whether no frame has been shown yet.
func (s TileSource) Empty() bool {
	return s.URLTemplate == ""
}

// NativeZoom is the zoom tiles are requested at for a map zoom; deeper map
// zooms upscale the deepest native tile.
func (s TileSource) NativeZoom(z int) int {
	if s.MaxNativeZoom > 0 && z > s.MaxNativeZoom {
		return s.MaxNativeZoom
	}
	return max(z, 0)
}

// URL expands the template for one tile.
func (s TileSource) URL(z, x, y int) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(s.URLTemplate)
}

// URLTemplate substitutes a frame's path into the tile URL template.
func (o Options) URLTemplate(host string, f weather.RadarFrame) string {
	if host == "" {
		host = DefaultTileHost
	}
	path := f.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s%s/%d/{z}/{x}/{y}/%d/%s.png",
		strings.TrimSuffix(host, "/"), path, o.TileSize, o.ColorScheme, o.TileOptions)
}

// Source builds the tile source for a frame.
func (o Options) Source(host string, f weather.RadarFrame) TileSource {
	return TileSource{
		URLTemplate:   o.URLTemplate(host, f),
		Opacity:       o.Opacity,
		TileSize:      o.TileSize,
		MaxNativeZoom: o.MaxNativeZoom,
		MaxZoom:       o.MaxZoom,
		ErrorTileURL:  TransparentTile,
	}
}

// TimeLabel formats a frame timestamp for the time label.
func (o Options) TimeLabel(f weather.RadarFrame) string {
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	return f.Timestamp().In(loc).Format("Mon 15:04")
}
