package providers

import (
	"context"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// RainViewerCatalogURL is the public radar frame catalog.
const RainViewerCatalogURL = "https://api.rainviewer.com/public/weather-maps.json"

// RainViewerSource implements weather.RadarSource for the RainViewer public catalog.
type RainViewerSource struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewRainViewerSource creates the source. baseURL is the full catalog URL;
// empty selects the public one.
func NewRainViewerSource(client *http.Client, baseURL string) *RainViewerSource {
	if baseURL == "" {
		baseURL = RainViewerCatalogURL
	}
	return &RainViewerSource{
		name:    "rainviewer",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("rainviewer"),
	}
}

func (s *RainViewerSource) Name() string {
	return s.name
}

func (s *RainViewerSource) Catalog(ctx context.Context) (weather.RadarCatalog, error) {
	var payload struct {
		Host  string `json:"host"`
		Radar struct {
			Past    []weather.RadarFrame `json:"past"`
			Nowcast []weather.RadarFrame `json:"nowcast"`
		} `json:"radar"`
	}
	if err := getJSON(ctx, s.httpCfg, s.circuit, getRequest(s.baseURL), &payload); err != nil {
		return weather.RadarCatalog{}, err
	}

	return weather.RadarCatalog{
		Host:    payload.Host,
		Past:    payload.Radar.Past,
		Nowcast: payload.Radar.Nowcast,
	}, nil
}
