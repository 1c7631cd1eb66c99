package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-radar-map/internal/api/http"
	"github.com/i474232898/weather-radar-map/internal/alerts"
	"github.com/i474232898/weather-radar-map/internal/app"
	"github.com/i474232898/weather-radar-map/internal/arrows"
	"github.com/i474232898/weather-radar-map/internal/config"
	"github.com/i474232898/weather-radar-map/internal/favorites"
	"github.com/i474232898/weather-radar-map/internal/particles"
	"github.com/i474232898/weather-radar-map/internal/radar"
	"github.com/i474232898/weather-radar-map/internal/scheduler"
	"github.com/i474232898/weather-radar-map/internal/search"
	"github.com/i474232898/weather-radar-map/internal/store"
	"github.com/i474232898/weather-radar-map/internal/terminal"
	"github.com/i474232898/weather-radar-map/internal/viewport"
	"github.com/i474232898/weather-radar-map/internal/weather"
	"github.com/i474232898/weather-radar-map/internal/weather/providers"
	"github.com/i474232898/weather-radar-map/internal/wind"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Error("client stopped with error", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Providers with resilience (backoff + circuit breaker).
	forecast := providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoURL)
	radarSource := providers.NewRainViewerSource(httpClient, cfg.RainViewerURL)
	var geocoder weather.Geocoder = providers.NewNominatimGeocoder(httpClient, cfg.NominatimURL, cfg.UserAgent, 1)
	if cfg.GoogleGeocoderAPIKey != "" {
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey)
	}
	logger.Info("providers configured",
		zap.String("forecast", forecast.Name()),
		zap.String("radar", radarSource.Name()),
		zap.String("geocoder", geocoder.Name()))

	st, err := store.OpenFileStore(cfg.StateFile)
	if err != nil {
		return err
	}
	favs, err := favorites.Load(st, logger)
	if err != nil {
		return err
	}

	start, source := app.ResolveStart(ctx, providers.NewIPLocator(httpClient, cfg.GeolocateURL), cfg.GeolocateTimeout, cfg.DefaultLocation, logger)
	logger.Info("start location resolved", zap.Stringer("coordinate", start), zap.String("source", string(source)))

	theme := terminal.Themes[cfg.Theme]
	view := terminal.NewMapView(start, cfg.InitialZoom, 2, cfg.RadarMaxZoom)
	canvas := terminal.NewCanvas(theme.Background)

	// Wind visualizations share the center sample.
	sampler := wind.NewSampler(forecast, logger)
	popts := particles.DefaultOptions()
	popts.Count = cfg.ParticleCount
	popts.Step /= terminal.CellWidthPx
	popts.Background = theme.Background
	field := particles.NewField(canvas, sampler, popts, logger)
	renderer := arrows.NewRenderer(view, sampler, arrows.DefaultOptions(), logger)
	controller := viewport.NewController(view, sampler, field, renderer, logger)

	ropts := radar.DefaultOptions()
	ropts.TileSize = cfg.RadarTileSize
	ropts.Opacity = cfg.RadarOpacity
	ropts.ColorScheme = cfg.RadarColorScheme
	ropts.IncludeNowcast = cfg.RadarIncludeNowcast
	ropts.Interval = cfg.RadarInterval
	ropts.MaxNativeZoom = cfg.RadarMaxNativeZoom
	ropts.MaxZoom = cfg.RadarMaxZoom
	timeline := radar.NewTimeline(radarSource, view, view, ropts, logger)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	uopts := terminal.DefaultOptions()
	uopts.Background = theme.Background
	uopts.Foreground = theme.Foreground
	uopts.PixelRatio = cfg.PixelRatio
	ui := terminal.New(screen, view, canvas, timeline, controller, uopts, logger)
	ui.SetConditions(sampler)
	ui.SetRadar(terminal.NewRadarOverlay(providers.NewTileClient(httpClient, cfg.UserAgent), logger))
	if source == app.SourceFallback {
		ui.Toast("location unavailable; showing default")
	}

	searcher := search.New(geocoder, func(r search.Result) {
		switch {
		case r.Err != nil:
			ui.Toast("search failed")
		case r.Searched && len(r.Places) == 0:
			ui.Toast("no places found for " + r.Query)
		}
		ui.SetResults(r.Places)
	}, search.DefaultOptions(), logger)
	defer searcher.Close()
	ui.OnSearch(searcher.Query)
	ui.OnFavorite(func(c weather.Coordinate) {
		go saveFavorite(ctx, geocoder, favs, ui, c, logger)
	})

	aopts := alerts.DefaultOptions()
	aopts.Cooldown = cfg.AlertCooldown
	aopts.Horizon = cfg.AlertHorizon
	aopts.RainThresholdMm = cfg.AlertThresholdMm
	evaluator, err := alerts.NewEvaluator(forecast, st, ui, aopts, logger)
	if err != nil {
		return err
	}
	places := func() []weather.Place {
		here := weather.Place{Name: "current view", Coordinate: view.Center()}
		return append([]weather.Place{here}, favs.Places()...)
	}
	sched := scheduler.New(places, cfg.AlertInterval, scheduler.CheckerFunc(func(ctx context.Context, p weather.Place) error {
		_, err := evaluator.Check(ctx, p)
		return err
	}), logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	go func() {
		status := timeline.Load(ctx)
		logger.Info("radar loaded", zap.String("status", status))
	}()
	go func() {
		err := controller.Apply(ctx, viewport.Toggles{
			Wind:      cfg.EnableWind,
			Rain:      cfg.EnableRain,
			Particles: cfg.EnableParticles,
		})
		if err != nil {
			logger.Warn("initial layers failed", zap.Error(err))
		}
	}()
	defer field.Stop()
	defer timeline.Pause()

	if cfg.ControlAddr != "" {
		api := httpapi.NewApp(httpapi.Deps{
			Radar:     timeline,
			Layers:    controller,
			Favorites: favs,
			Search:    searcher,
			Map:       view,
		}, logger)
		go func() {
			if err := api.Listen(cfg.ControlAddr); err != nil {
				logger.Warn("control API stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := api.ShutdownWithContext(shutdownCtx); err != nil {
				logger.Warn("control API shutdown", zap.Error(err))
			}
		}()
		logger.Info("control API listening", zap.String("addr", cfg.ControlAddr))
	}

	return ui.Run(ctx)
}

func saveFavorite(ctx context.Context, g weather.Geocoder, favs *favorites.List, ui *terminal.UI, c weather.Coordinate, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var name string
	if addr, err := g.Reverse(ctx, c); err != nil {
		logger.Debug("reverse lookup failed", zap.Error(err))
	} else {
		name = weather.PlaceName(addr)
	}

	fav, err := favs.Add(name, c)
	switch {
	case errors.Is(err, favorites.ErrDuplicate):
		ui.Toast("already saved nearby")
	case err != nil:
		logger.Warn("saving favorite failed", zap.Error(err))
		ui.Toast("could not save favorite")
	default:
		ui.Toast("saved " + fav.Name)
	}
}

func newLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.OutputPaths = []string{cfg.LogFile}
	zcfg.ErrorOutputPaths = []string{cfg.LogFile}
	return zcfg.Build()
}
