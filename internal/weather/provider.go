package weather

import (
	"context"
)

// ForecastProvider abstracts a point forecast source (e.g. Open-Meteo).
type ForecastProvider interface {
	Name() string
	PointForecast(ctx context.Context, c Coordinate, req ForecastRequest) (PointForecast, error)
}

// RadarSource abstracts the radar frame catalog host (e.g. RainViewer).
type RadarSource interface {
	Name() string
	Catalog(ctx context.Context) (RadarCatalog, error)
}

// Geocoder abstracts forward and reverse geocoding.
type Geocoder interface {
	Name() string
	Search(ctx context.Context, query string) ([]Place, error)
	Reverse(ctx context.Context, c Coordinate) (Address, error)
}

// Locator resolves the device's approximate position.
type Locator interface {
	Locate(ctx context.Context) (Coordinate, error)
}
