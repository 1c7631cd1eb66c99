package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// NominatimGeocoder implements weather.Geocoder against an OpenStreetMap Nominatim instance.
// Requests are rate limited; the public instance allows one request per second.
type NominatimGeocoder struct {
	name    string
	baseURL string
	limit   int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewNominatimGeocoder(client *http.Client, baseURL, userAgent string, rps float64) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if rps <= 0 {
		rps = 1
	}
	return &NominatimGeocoder{
		name:    "nominatim",
		baseURL: baseURL,
		limit:   5,
		httpCfg: HTTPClientConfig{
			Client:    client,
			Backoff:   DefaultBackoff,
			UserAgent: userAgent,
		},
		circuit: newCircuitBreaker("nominatim"),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (g *NominatimGeocoder) Name() string {
	return g.name
}

// Search returns ranked candidates for a free-text query.
func (g *NominatimGeocoder) Search(ctx context.Context, query string) ([]weather.Place, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	values := url.Values{}
	values.Set("format", "json")
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(g.limit))

	var payload []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	u := fmt.Sprintf("%s/search?%s", g.baseURL, values.Encode())
	if err := getJSON(ctx, g.httpCfg, g.circuit, getRequest(u), &payload); err != nil {
		return nil, err
	}

	places := make([]weather.Place, 0, len(payload))
	for _, p := range payload {
		lat, err := strconv.ParseFloat(p.Lat, 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(p.Lon, 64)
		if err != nil {
			continue
		}
		places = append(places, weather.Place{
			Name:       p.DisplayName,
			Coordinate: weather.Coordinate{Lat: lat, Lon: lon},
		})
	}
	return places, nil
}

// Reverse returns the address structure for a coordinate.
func (g *NominatimGeocoder) Reverse(ctx context.Context, c weather.Coordinate) (weather.Address, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return weather.Address{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	values := url.Values{}
	values.Set("format", "json")
	values.Set("lat", fmt.Sprintf("%f", c.Lat))
	values.Set("lon", fmt.Sprintf("%f", c.Lon))
	values.Set("zoom", "10")

	var payload struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
		Address     struct {
			City         string `json:"city"`
			Town         string `json:"town"`
			Village      string `json:"village"`
			Municipality string `json:"municipality"`
			County       string `json:"county"`
			Country      string `json:"country"`
		} `json:"address"`
	}
	u := fmt.Sprintf("%s/reverse?%s", g.baseURL, values.Encode())
	if err := getJSON(ctx, g.httpCfg, g.circuit, getRequest(u), &payload); err != nil {
		return weather.Address{}, err
	}
	if payload.Error != "" {
		return weather.Address{}, fmt.Errorf("nominatim: %s", payload.Error)
	}

	return weather.Address{
		DisplayName:  payload.DisplayName,
		City:         payload.Address.City,
		Town:         payload.Address.Town,
		Village:      payload.Address.Village,
		Municipality: payload.Address.Municipality,
		County:       payload.Address.County,
		Country:      payload.Address.Country,
	}, nil
}
