// Package wind samples the wind vector field and keeps the shared center wind.
package wind

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// ErrNoData is returned when the forecast carries no usable wind entry.
var ErrNoData = errors.New("no wind data in forecast")

// Viewport exposes the current map center.
type Viewport interface {
	Center() weather.Coordinate
}

var windRequest = weather.ForecastRequest{
	Hourly: []string{weather.VarWindSpeed, weather.VarWindDirection},
	Days:   1,
}

// centerRequest also carries the current conditions shown in the status line.
var centerRequest = weather.ForecastRequest{
	Current: []string{weather.VarTemperature, weather.VarApparentTemperature, weather.VarWeatherCode},
	Hourly:  windRequest.Hourly,
	Days:    1,
}

// Sampler turns point forecasts into wind samples. It is the only writer of
// the center wind.
type Sampler struct {
	provider weather.ForecastProvider
	logger   *zap.Logger

	mu         sync.RWMutex
	center     weather.WindSample
	hasCenter  bool
	at         weather.Coordinate
	conditions weather.Conditions
	hasConds   bool
}

func NewSampler(provider weather.ForecastProvider, logger *zap.Logger) *Sampler {
	return &Sampler{
		provider: provider,
		logger:   logger.Named("wind"),
	}
}

// SampleAt returns the wind at a point from the first hourly forecast entry.
func (s *Sampler) SampleAt(ctx context.Context, c weather.Coordinate) (weather.WindSample, error) {
	fc, err := s.provider.PointForecast(ctx, c, windRequest)
	if err != nil {
		return weather.WindSample{}, fmt.Errorf("sample %s: %w", c, err)
	}
	return windFrom(fc, c)
}

func windFrom(fc weather.PointForecast, c weather.Coordinate) (weather.WindSample, error) {
	speed, ok := fc.Hourly.Value(weather.VarWindSpeed, 0)
	if !ok {
		return weather.WindSample{}, fmt.Errorf("sample %s: %w", c, ErrNoData)
	}
	dir, ok := fc.Hourly.Value(weather.VarWindDirection, 0)
	if !ok {
		return weather.WindSample{}, fmt.Errorf("sample %s: %w", c, ErrNoData)
	}
	return weather.NewWindSample(speed, dir), nil
}

// RefreshCenter samples at the viewport center and publishes the result as
// the center wind. On failure the previous center wind stays in effect.
func (s *Sampler) RefreshCenter(ctx context.Context, vp Viewport) error {
	c := vp.Center()
	fc, err := s.provider.PointForecast(ctx, c, centerRequest)
	if err == nil {
		var w weather.WindSample
		if w, err = windFrom(fc, c); err == nil {
			conds, hasConds := weather.CurrentConditions(fc)

			s.mu.Lock()
			s.center = w
			s.hasCenter = true
			s.at = c
			if hasConds {
				s.conditions, s.hasConds = conds, true
			}
			s.mu.Unlock()
			return nil
		}
	} else {
		err = fmt.Errorf("sample %s: %w", c, err)
	}
	s.logger.Debug("center wind refresh failed; keeping last value", zap.Error(err))
	return err
}

// Center returns the shared center wind and whether one has been sampled yet.
func (s *Sampler) Center() (weather.WindSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.center, s.hasCenter
}

// CenterAt returns where the center wind was last sampled.
func (s *Sampler) CenterAt() weather.Coordinate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.at
}

// Conditions returns the current weather last seen at the center.
func (s *Sampler) Conditions() (weather.Conditions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conditions, s.hasConds
}
