package weather

import (
	"math"

	"github.com/i474232898/weather-radar-map/internal/common"
)

const earthRadiusM = 6371009.0

// PlaceName picks a best-effort place name from a reverse lookup result.
func PlaceName(a Address) string {
	for _, name := range []string{a.City, a.Town, a.Village, a.Municipality, a.County} {
		if name != "" {
			return name
		}
	}
	return a.DisplayName
}

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(a, b Coordinate) float64 {
	lat1, lat2 := common.Radians(a.Lat), common.Radians(b.Lat)
	dLat := lat2 - lat1
	dLon := common.Radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}
