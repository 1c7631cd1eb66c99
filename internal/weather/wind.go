package weather

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/i474232898/weather-radar-map/internal/common"
)

// WindSample is a wind vector at a point. FlowU/FlowV point toward where the
// air is moving: FlowU is the eastward (screen x) component, FlowV the
// northward (screen up) component, both scaled by speed.
type WindSample struct {
	SpeedKmh         float64 `json:"speedKmh"`
	SourceBearingDeg float64 `json:"sourceBearingDeg"`
	FlowU            float64 `json:"flowU"`
	FlowV            float64 `json:"flowV"`
}

// NewWindSample derives flow components from a meteorological (source) bearing.
func NewWindSample(speedKmh, sourceBearingDeg float64) WindSample {
	if speedKmh < 0 || math.IsNaN(speedKmh) {
		speedKmh = 0
	}
	src := common.NormalizeDegrees(sourceBearingDeg)
	rad := common.Radians(FlowBearing(src))
	return WindSample{
		SpeedKmh:         speedKmh,
		SourceBearingDeg: src,
		FlowU:            speedKmh * math.Sin(rad),
		FlowV:            speedKmh * math.Cos(rad),
	}
}

// FlowBearing returns the bearing the air moves toward.
func FlowBearing(sourceBearingDeg float64) float64 {
	return common.NormalizeDegrees(sourceBearingDeg + 180)
}

// FlowBearing returns the bearing the air moves toward.
func (w WindSample) FlowBearing() float64 {
	return FlowBearing(w.SourceBearingDeg)
}

// Direction returns the unit flow vector in screen space (x right, y down).
// It stays defined in calm air, where FlowU/FlowV collapse to zero.
func (w WindSample) Direction() (dx, dy float64) {
	rad := common.Radians(w.FlowBearing())
	return math.Sin(rad), -math.Cos(rad)
}

// WithSpeedFloor returns the sample with its speed raised to at least floor.
func (w WindSample) WithSpeedFloor(floor float64) WindSample {
	if w.SpeedKmh >= floor {
		return w
	}
	return NewWindSample(floor, w.SourceBearingDeg)
}

// SpeedFactor scales per-tick particle advection: speed/25 clamped to [0.2, 2.6].
func SpeedFactor(speedKmh float64) float64 {
	return common.Clamp(speedKmh/25, 0.2, 2.6)
}

type speedBand struct {
	below float64
	color colorful.Color
}

var speedBands = []speedBand{
	{5, rgb(0x8e, 0xca, 0xe6)},
	{15, rgb(0x48, 0xca, 0xe4)},
	{25, rgb(0x52, 0xb7, 0x88)},
	{40, rgb(0xff, 0xd1, 0x66)},
	{60, rgb(0xf4, 0xa2, 0x61)},
	{math.Inf(1), rgb(0xe6, 0x39, 0x46)},
}

// SpeedColor maps a wind speed to its fixed colour band.
func SpeedColor(speedKmh float64) colorful.Color {
	for _, b := range speedBands {
		if speedKmh < b.below {
			return b.color
		}
	}
	return speedBands[len(speedBands)-1].color
}

func rgb(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}
