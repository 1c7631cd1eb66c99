// Package terminal is the tcell map surface: a pannable equirectangular view
// with glyph layers, a particle canvas, the radar status bar and toasts.
package terminal

import (
	"math"
	"sync"

	"github.com/i474232898/weather-radar-map/internal/arrows"
	"github.com/i474232898/weather-radar-map/internal/common"
	"github.com/i474232898/weather-radar-map/internal/radar"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

const (
	// CellWidthPx is the nominal css width of one terminal cell.
	CellWidthPx = 8

	// colsPerTile is how many columns one slippy-map tile spans.
	colsPerTile = 32

	// cellAspect is the height/width ratio of a terminal cell.
	cellAspect = 2.0

	maxLat = weather.MaxLat
)

// Scrubber is the timeline slider state.
type Scrubber struct {
	Min, Max, Value int
}

// MapView is the navigable map. It implements the glyph renderer's map, the
// radar timeline's tile layer and view, and the wind sampler's viewport.
type MapView struct {
	mu sync.RWMutex

	center  weather.Coordinate
	zoom    int
	minZoom int
	maxZoom int
	cols    int
	rows    int

	layers    []*arrows.Layer
	tiles     radar.TileSource
	timeLabel string
	scrubber  Scrubber
	status    string
}

func NewMapView(center weather.Coordinate, zoom, minZoom, maxZoom int) *MapView {
	v := &MapView{
		center:  center,
		minZoom: minZoom,
		maxZoom: maxZoom,
		cols:    80,
		rows:    22,
	}
	v.zoom = v.clampZoom(zoom)
	return v
}

// SetSize sets the map area in cells.
func (v *MapView) SetSize(cols, rows int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cols, v.rows = max(cols, 1), max(rows, 1)
}

func (v *MapView) Size() (cols, rows int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cols, v.rows
}

func (v *MapView) Center() weather.Coordinate {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.center
}

func (v *MapView) Zoom() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

// SetCenter recenters the view.
func (v *MapView) SetCenter(c weather.Coordinate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.center = clampCoordinate(c)
}

// Pan moves the center by whole cells.
func (v *MapView) Pan(dCols, dRows int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	dLon, dLat := v.stepLocked()
	v.center = clampCoordinate(weather.Coordinate{
		Lat: v.center.Lat - float64(dRows)*dLat,
		Lon: v.center.Lon + float64(dCols)*dLon,
	})
}

// ZoomBy changes the zoom level and reports whether it changed.
func (v *MapView) ZoomBy(delta int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	z := v.clampZoom(v.zoom + delta)
	if z == v.zoom {
		return false
	}
	v.zoom = z
	return true
}

// Bounds returns the visible extent clipped to valid coordinates. At low
// zoom the screen can show more than the world; the overflow is not sampled.
func (v *MapView) Bounds() weather.Bounds {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.boundsLocked().Clip()
}

// Project maps a coordinate to a cell, reporting whether it is visible.
func (v *MapView) Project(c weather.Coordinate) (col, row int, ok bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.geometryLocked().project(c)
}

func (v *MapView) AddLayer(l *arrows.Layer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.layers = append(v.layers, l)
}

func (v *MapView) RemoveLayer(l *arrows.Layer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, x := range v.layers {
		if x == l {
			v.layers = append(v.layers[:i:i], v.layers[i+1:]...)
			return
		}
	}
}

// Layers returns the attached glyph layers.
func (v *MapView) Layers() []*arrows.Layer {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]*arrows.Layer(nil), v.layers...)
}

func (v *MapView) SetSource(src radar.TileSource) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tiles = src
}

// Tiles returns the current radar tile source.
func (v *MapView) Tiles() radar.TileSource {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.tiles
}

// TimeLabel is the shown radar frame's time.
func (v *MapView) TimeLabel() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.timeLabel
}

func (v *MapView) SetTimeLabel(label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeLabel = label
}

func (v *MapView) SetScrubber(lo, hi, value int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrubber = Scrubber{Min: lo, Max: hi, Value: value}
}

func (v *MapView) SetStatus(status string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = status
}

// Radar returns the time label, scrubber and status for drawing.
func (v *MapView) Radar() (label string, s Scrubber, status string) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.timeLabel, v.scrubber, v.status
}

// radarState snapshots the geometry together with the shown radar frame.
func (v *MapView) radarState() (geometry, radar.TileSource) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.geometryLocked(), v.tiles
}

func (v *MapView) geometryLocked() geometry {
	return geometry{center: v.center, zoom: v.zoom, cols: v.cols, rows: v.rows}
}

func (v *MapView) stepLocked() (dLon, dLat float64) {
	return v.geometryLocked().step()
}

func (v *MapView) boundsLocked() weather.Bounds {
	return v.geometryLocked().bounds()
}

// geometry is one layout of the map area: which coordinates each cell shows.
type geometry struct {
	center     weather.Coordinate
	zoom       int
	cols, rows int
}

// step returns degrees per column and per row.
func (g geometry) step() (dLon, dLat float64) {
	dLon = 360 / math.Exp2(float64(g.zoom)) / colsPerTile
	return dLon, dLon * cellAspect
}

// bounds is the raw screen extent, which may overflow the world.
func (g geometry) bounds() weather.Bounds {
	dLon, dLat := g.step()
	halfW := float64(g.cols) / 2 * dLon
	halfH := float64(g.rows) / 2 * dLat
	return weather.Bounds{
		South: g.center.Lat - halfH,
		West:  g.center.Lon - halfW,
		North: g.center.Lat + halfH,
		East:  g.center.Lon + halfW,
	}
}

func (g geometry) project(c weather.Coordinate) (col, row int, ok bool) {
	b := g.bounds()
	dLon, dLat := g.step()
	col = int(math.Floor((c.Lon - b.West) / dLon))
	row = int(math.Floor((b.North - c.Lat) / dLat))
	return col, row, col >= 0 && col < g.cols && row >= 0 && row < g.rows
}

// cell returns the coordinate at the middle of a cell.
func (g geometry) cell(col, row int) weather.Coordinate {
	b := g.bounds()
	dLon, dLat := g.step()
	return weather.Coordinate{
		Lat: b.North - (float64(row)+0.5)*dLat,
		Lon: b.West + (float64(col)+0.5)*dLon,
	}
}

func (v *MapView) clampZoom(z int) int {
	return int(common.Clamp(float64(z), float64(v.minZoom), float64(v.maxZoom)))
}

func clampCoordinate(c weather.Coordinate) weather.Coordinate {
	lon := math.Mod(c.Lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return weather.Coordinate{
		Lat: common.Clamp(c.Lat, -maxLat, maxLat),
		Lon: lon - 180,
	}
}
