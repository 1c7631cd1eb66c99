package terminal

import (
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Canvas is the particle trail surface. Each terminal cell is backed by
// ratio×ratio pixels; a cell shows the brightest of its pixels.
type Canvas struct {
	mu    sync.RWMutex
	bg    colorful.Color
	cols  int
	rows  int
	ratio int
	w, h  int
	px    []colorful.Color
}

func NewCanvas(bg colorful.Color) *Canvas {
	return &Canvas{bg: bg, ratio: 1}
}

// Size returns the backing store size in pixels.
func (c *Canvas) Size() (w, h int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.w, c.h
}

// Resize reallocates the backing store. It is a no-op when nothing changed.
func (c *Canvas) Resize(cssW, cssH int, pixelRatio float64) {
	ratio := max(int(math.Round(pixelRatio)), 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cssW == c.cols && cssH == c.rows && ratio == c.ratio && c.px != nil {
		return
	}
	c.cols, c.rows, c.ratio = max(cssW, 0), max(cssH, 0), ratio
	c.w, c.h = c.cols*ratio, c.rows*ratio
	c.px = make([]colorful.Color, c.w*c.h)
	c.fillLocked()
}

// Fade blends every pixel toward bg by alpha.
func (c *Canvas) Fade(bg colorful.Color, alpha float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.px {
		c.px[i] = p.BlendRgb(bg, alpha)
	}
}

// Line draws a one-pixel Bresenham segment clipped to the canvas.
func (c *Canvas) Line(x0, y0, x1, y1 float64, col colorful.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ax, ay := int(math.Floor(x0)), int(math.Floor(y0))
	bx, by := int(math.Floor(x1)), int(math.Floor(y1))
	dx := abs(bx - ax)
	dy := -abs(by - ay)
	sx, sy := 1, 1
	if ax > bx {
		sx = -1
	}
	if ay > by {
		sy = -1
	}
	e := dx + dy
	for {
		c.setLocked(ax, ay, col)
		if ax == bx && ay == by {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			ax += sx
		}
		if e2 <= dx {
			e += dx
			ay += sy
		}
	}
}

// Clear resets every pixel to the background.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fillLocked()
}

// Pixel returns one backing pixel.
func (c *Canvas) Pixel(x, y int) (colorful.Color, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return colorful.Color{}, false
	}
	return c.px[y*c.w+x], true
}

// Cell returns the brightest pixel of a cell and how far it stands out from
// the background, in [0,1].
func (c *Canvas) Cell(col, row int) (colorful.Color, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return c.bg, 0
	}
	best, bestD := c.bg, 0.0
	for y := row * c.ratio; y < (row+1)*c.ratio; y++ {
		for x := col * c.ratio; x < (col+1)*c.ratio; x++ {
			p := c.px[y*c.w+x]
			if d := p.DistanceRgb(c.bg); d > bestD {
				best, bestD = p, d
			}
		}
	}
	// Distance between black and white in RGB space.
	return best, math.Min(bestD/math.Sqrt(3), 1)
}

func (c *Canvas) setLocked(x, y int, col colorful.Color) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.px[y*c.w+x] = col
}

func (c *Canvas) fillLocked() {
	for i := range c.px {
		c.px[i] = c.bg
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
