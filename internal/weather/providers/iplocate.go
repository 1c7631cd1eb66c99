package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// IPLocator implements weather.Locator using an ip-api.com compatible endpoint.
type IPLocator struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewIPLocator(client *http.Client, baseURL string) *IPLocator {
	if baseURL == "" {
		baseURL = "http://ip-api.com/json/?fields=status,message,lat,lon"
	}
	return &IPLocator{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			// One shot: the caller falls back to a default location.
			Backoff: BackoffConfig{MaxRetries: 0, InitialInterval: DefaultBackoff.InitialInterval},
		},
		circuit: newCircuitBreaker("iplocate"),
	}
}

func (l *IPLocator) Locate(ctx context.Context) (weather.Coordinate, error) {
	var payload struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := getJSON(ctx, l.httpCfg, l.circuit, getRequest(l.baseURL), &payload); err != nil {
		return weather.Coordinate{}, err
	}
	if payload.Status != "success" {
		return weather.Coordinate{}, fmt.Errorf("locate failed: %s", payload.Message)
	}
	return weather.Coordinate{Lat: payload.Lat, Lon: payload.Lon}, nil
}
