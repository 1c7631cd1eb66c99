package arrows

import (
	"gonum.org/v1/gonum/floats"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// Lattice returns cols×rows points evenly spread over b, each at the center
// of its cell, ordered row by row from north-west.
func Lattice(b weather.Bounds, cols, rows int) []weather.Coordinate {
	if cols <= 0 || rows <= 0 || b.Empty() {
		return nil
	}

	dLon := (b.East - b.West) / float64(cols)
	dLat := (b.North - b.South) / float64(rows)
	lons := span(cols, b.West+dLon/2, b.East-dLon/2)
	lats := span(rows, b.North-dLat/2, b.South+dLat/2)

	pts := make([]weather.Coordinate, 0, cols*rows)
	for _, lat := range lats {
		for _, lon := range lons {
			pts = append(pts, weather.Coordinate{Lat: lat, Lon: lon})
		}
	}
	return pts
}

func span(n int, from, to float64) []float64 {
	if n == 1 {
		return []float64{from}
	}
	return floats.Span(make([]float64, n), from, to)
}
