// Package app holds client startup helpers.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

// StartSource reports where the start location came from.
type StartSource string

const (
	SourceLocated  StartSource = "located"
	SourceFallback StartSource = "fallback"
)

// ResolveStart asks the locator once, bounded by timeout. Denial, timeout or
// any other error yields fallback.
func ResolveStart(ctx context.Context, locator weather.Locator, timeout time.Duration, fallback weather.Coordinate, logger *zap.Logger) (weather.Coordinate, StartSource) {
	if locator == nil {
		return fallback, SourceFallback
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		c   weather.Coordinate
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := locator.Locate(ctx)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			logger.Info("location lookup failed; using default", zap.Error(r.err))
			return fallback, SourceFallback
		}
		if !valid(r.c) {
			logger.Info("location lookup returned an invalid coordinate; using default", zap.Stringer("coordinate", r.c))
			return fallback, SourceFallback
		}
		return r.c, SourceLocated
	case <-ctx.Done():
		logger.Info("location lookup timed out; using default", zap.Duration("timeout", timeout))
		return fallback, SourceFallback
	}
}

func valid(c weather.Coordinate) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180 && !(c.Lat == 0 && c.Lon == 0)
}
