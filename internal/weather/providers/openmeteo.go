package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoForecastURL is the public point forecast endpoint.
const OpenMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements weather.ForecastProvider for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates the provider. baseURL is the full forecast
// endpoint; empty selects the public one.
func NewOpenMeteoProvider(client *http.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = OpenMeteoForecastURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) PointForecast(ctx context.Context, c weather.Coordinate, req weather.ForecastRequest) (weather.PointForecast, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", c.Lat))
	values.Set("longitude", fmt.Sprintf("%f", c.Lon))
	values.Set("timezone", "auto")
	if len(req.Current) > 0 {
		values.Set("current", strings.Join(req.Current, ","))
	}
	if len(req.Hourly) > 0 {
		values.Set("hourly", strings.Join(req.Hourly, ","))
	}
	if len(req.Minutely15) > 0 {
		values.Set("minutely_15", strings.Join(req.Minutely15, ","))
	}
	if req.Days > 0 {
		values.Set("forecast_days", fmt.Sprintf("%d", req.Days))
	}

	var payload struct {
		Latitude         float64                    `json:"latitude"`
		Longitude        float64                    `json:"longitude"`
		Timezone         string                     `json:"timezone"`
		UTCOffsetSeconds int                        `json:"utc_offset_seconds"`
		Current          map[string]json.RawMessage `json:"current"`
		Hourly           map[string]json.RawMessage `json:"hourly"`
		Minutely15       map[string]json.RawMessage `json:"minutely_15"`
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, getRequest(u), &payload); err != nil {
		return weather.PointForecast{}, err
	}

	loc := time.FixedZone(payload.Timezone, payload.UTCOffsetSeconds)

	hourly, err := decodeSeries(payload.Hourly, loc)
	if err != nil {
		return weather.PointForecast{}, fmt.Errorf("hourly: %w", err)
	}
	minutely, err := decodeSeries(payload.Minutely15, loc)
	if err != nil {
		return weather.PointForecast{}, fmt.Errorf("minutely_15: %w", err)
	}

	return weather.PointForecast{
		Coordinate: weather.Coordinate{Lat: payload.Latitude, Lon: payload.Longitude},
		Timezone:   payload.Timezone,
		Current:    decodeCurrent(payload.Current),
		Hourly:     hourly,
		Minutely15: minutely,
	}, nil
}

// decodeSeries turns Open-Meteo's parallel arrays into a weather.Series.
// Null entries become zero.
func decodeSeries(raw map[string]json.RawMessage, loc *time.Location) (weather.Series, error) {
	s := weather.Series{Values: make(map[string][]float64)}
	if len(raw) == 0 {
		return s, nil
	}

	var stamps []string
	if t, ok := raw["time"]; ok {
		if err := json.Unmarshal(t, &stamps); err != nil {
			return s, fmt.Errorf("%w: time: %v", errMalformed, err)
		}
	}
	for _, st := range stamps {
		ts, err := time.ParseInLocation(openMeteoTimeLayout, st, loc)
		if err != nil {
			return s, fmt.Errorf("%w: time %q", errMalformed, st)
		}
		s.Time = append(s.Time, ts)
	}

	for name, msg := range raw {
		if name == "time" {
			continue
		}
		var vals []*float64
		if err := json.Unmarshal(msg, &vals); err != nil {
			return s, fmt.Errorf("%w: %s: %v", errMalformed, name, err)
		}
		out := make([]float64, len(vals))
		for i, v := range vals {
			if v != nil {
				out[i] = *v
			}
		}
		s.Values[canonicalVar(name)] = out
	}
	return s, nil
}

func decodeCurrent(raw map[string]json.RawMessage) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for name, msg := range raw {
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			// time and other non-numeric fields
			continue
		}
		out[canonicalVar(name)] = v
	}
	return out
}

// canonicalVar folds the legacy weathercode spelling into weather_code.
func canonicalVar(name string) string {
	if name == "weathercode" {
		return weather.VarWeatherCode
	}
	return name
}
