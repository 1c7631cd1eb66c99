package terminal

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/i474232898/weather-radar-map/internal/arrows"
	"github.com/i474232898/weather-radar-map/internal/common"
)

var (
	windRunes = [8]rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}
	rainRunes = [8]rune{'⇡', '⇗', '⇢', '⇘', '⇣', '⇙', '⇠', '⇖'}
)

// arrowRune picks the closest of eight compass arrows for a screen rotation
// (0 = up, clockwise).
func arrowRune(kind arrows.Kind, rotationDeg float64) rune {
	idx := int(math.Round(common.NormalizeDegrees(rotationDeg)/45)) % 8
	if kind == arrows.KindRain {
		return rainRunes[idx]
	}
	return windRunes[idx]
}

func tcellColor(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
