package terminal

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/radar"
	"github.com/i474232898/weather-radar-map/internal/weather"
	"github.com/i474232898/weather-radar-map/internal/weather/providers"
)

// TileFetcher downloads one decoded radar tile.
type TileFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

const (
	maxCachedTiles   = 128
	tileFetchWorkers = 4
)

// radarCell is the radar colour shown behind one cell; alpha already carries
// the layer opacity.
type radarCell struct {
	color colorful.Color
	alpha float64
}

type radarFrame struct {
	geom  geometry
	cells []radarCell
}

// RadarOverlay shades map cells with the shown radar frame. Each cell takes
// the tile pixel under its center at the frame's native zoom.
type RadarOverlay struct {
	fetch  TileFetcher
	logger *zap.Logger

	mu        sync.Mutex
	cache     map[string]image.Image
	order     []string
	current   *radarFrame
	requested bool
	wantGeom  geometry
	wantTiles string
	cancel    context.CancelFunc
}

func NewRadarOverlay(fetch TileFetcher, logger *zap.Logger) *RadarOverlay {
	return &RadarOverlay{
		fetch:  fetch,
		logger: logger.Named("radar-overlay"),
		cache:  make(map[string]image.Image),
	}
}

// Sync rebuilds the overlay in the background when the view or the shown
// frame changed since the last call. A newer rebuild cancels an older one.
func (o *RadarOverlay) Sync(ctx context.Context, v *MapView) {
	g, src := v.radarState()

	o.mu.Lock()
	if o.requested && g == o.wantGeom && src.URLTemplate == o.wantTiles {
		o.mu.Unlock()
		return
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.requested = true
	o.wantGeom, o.wantTiles = g, src.URLTemplate
	if src.Empty() {
		o.cancel = nil
		o.current = nil
		o.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	go o.build(ctx, g, src)
}

// frameFor returns the built cells when they match the geometry on screen.
// A frame built for another layout would shade the wrong places.
func (o *RadarOverlay) frameFor(g geometry) []radarCell {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil || o.current.geom != g {
		return nil
	}
	return o.current.cells
}

type tileRef struct {
	url    string
	px, py int
}

func (o *RadarOverlay) build(ctx context.Context, g geometry, src radar.TileSource) {
	z := src.NativeZoom(g.zoom)
	size := src.TileSize
	if size <= 0 {
		size = 256
	}

	refs := make([]*tileRef, g.cols*g.rows)
	var urls []string
	seen := make(map[string]bool)
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			ref, ok := tileAt(g.cell(col, row), z, size, src)
			if !ok {
				continue
			}
			refs[row*g.cols+col] = ref
			if !seen[ref.url] {
				seen[ref.url] = true
				urls = append(urls, ref.url)
			}
		}
	}

	tiles := o.tiles(ctx, urls)
	if ctx.Err() != nil {
		return
	}

	frame := &radarFrame{geom: g, cells: make([]radarCell, len(refs))}
	for i, ref := range refs {
		if ref == nil {
			continue
		}
		img := tiles[ref.url]
		if img == nil {
			continue
		}
		frame.cells[i] = samplePixel(img, ref.px, ref.py, size, src.Opacity)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.wantGeom == g && o.wantTiles == src.URLTemplate {
		o.current = frame
	}
	o.logger.Debug("radar overlay built", zap.Int("zoom", z), zap.Int("tiles", len(urls)))
}

// tileAt locates the tile and pixel under a coordinate in web mercator.
func tileAt(c weather.Coordinate, z, size int, src radar.TileSource) (*tileRef, bool) {
	if c.Lat > weather.MaxLat || c.Lat < -weather.MaxLat {
		return nil, false
	}
	n := float64(int(1) << z)
	lat := c.Lat * math.Pi / 180
	fx := (c.Lon + 180) / 360 * n
	fy := (1 - math.Log(math.Tan(lat)+1/math.Cos(lat))/math.Pi) / 2 * n

	tx := int(math.Floor(fx))
	ty := int(math.Floor(fy))
	px := int((fx - math.Floor(fx)) * float64(size))
	py := int((fy - math.Floor(fy)) * float64(size))

	tiles := int(n)
	tx = ((tx % tiles) + tiles) % tiles
	ty = min(max(ty, 0), tiles-1)
	return &tileRef{
		url: src.URL(z, tx, ty),
		px:  min(px, size-1),
		py:  min(py, size-1),
	}, true
}

// samplePixel reads one tile pixel, scaling for tiles served at another size.
func samplePixel(img image.Image, px, py, size int, opacity float64) radarCell {
	b := img.Bounds()
	if b.Empty() {
		return radarCell{}
	}
	x := b.Min.X + px*b.Dx()/size
	y := b.Min.Y + py*b.Dy()/size
	r, g, bl, a := img.At(x, y).RGBA()
	if a == 0 {
		return radarCell{}
	}
	fa := float64(a)
	return radarCell{
		color: colorful.Color{R: float64(r) / fa, G: float64(g) / fa, B: float64(bl) / fa},
		alpha: fa / 0xffff * opacity,
	}
}

// tiles fetches the missing tiles with a few workers. Tiles the host has no
// data for are cached as transparent; other failures are retried next build.
func (o *RadarOverlay) tiles(ctx context.Context, urls []string) map[string]image.Image {
	out := make(map[string]image.Image, len(urls))
	var missing []string

	o.mu.Lock()
	for _, u := range urls {
		if img, ok := o.cache[u]; ok {
			out[u] = img
		} else {
			missing = append(missing, u)
		}
	}
	o.mu.Unlock()

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, tileFetchWorkers)
	for _, u := range missing {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			img, err := o.fetch.Fetch(ctx, u)
			switch {
			case err == nil:
			case errors.Is(err, providers.ErrNoTile):
				img = nil
			default:
				if ctx.Err() == nil {
					o.logger.Debug("radar tile fetch failed", zap.String("url", u), zap.Error(err))
				}
				return
			}

			mu.Lock()
			out[u] = img
			mu.Unlock()
			o.store(u, img)
		}(u)
	}
	wg.Wait()
	return out
}

func (o *RadarOverlay) store(url string, img image.Image) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.cache[url]; ok {
		return
	}
	o.cache[url] = img
	o.order = append(o.order, url)
	if len(o.order) > maxCachedTiles {
		delete(o.cache, o.order[0])
		o.order = o.order[1:]
	}
}
