package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-radar-map/internal/weather"
)

type AppConfig struct {
	HTTPTimeout time.Duration `validate:"gt=0"`
	UserAgent   string        `validate:"required"`

	// Startup location.
	DefaultLocation  weather.Coordinate
	DefaultLat       float64       `validate:"gte=-90,lte=90"`
	DefaultLon       float64       `validate:"gte=-180,lte=180"`
	GeolocateTimeout time.Duration `validate:"gt=0"`
	GeolocateURL     string        `validate:"omitempty,url"`

	// Radar.
	RadarTileSize       int     `validate:"oneof=256 512"`
	RadarOpacity        float64 `validate:"gte=0,lte=1"`
	RadarColorScheme    int     `validate:"gte=0,lte=8"`
	RadarIncludeNowcast bool
	RadarInterval       time.Duration `validate:"gte=100ms"`
	RadarMaxNativeZoom  int           `validate:"gte=1,lte=12"`
	RadarMaxZoom        int           `validate:"gtefield=RadarMaxNativeZoom,lte=18"`

	// Visualizations.
	InitialZoom     int     `validate:"gte=2,lte=18"`
	ParticleCount   int     `validate:"gte=1,lte=5000"`
	Theme           string  `validate:"oneof=dark light"`
	PixelRatio      float64 `validate:"gte=1,lte=4"`
	EnableWind      bool
	EnableRain      bool
	EnableParticles bool

	// Alerts.
	AlertInterval    time.Duration `validate:"gte=1m"`
	AlertCooldown    time.Duration `validate:"gt=0"`
	AlertHorizon     time.Duration `validate:"gt=0"`
	AlertThresholdMm float64       `validate:"gt=0"`

	// Persistence and control surface.
	StateFile   string `validate:"required"`
	ControlAddr string `validate:"omitempty,hostname_port"`

	// Providers.
	GoogleGeocoderAPIKey string
	NominatimURL         string `validate:"url"`
	OpenMeteoURL         string `validate:"url"`
	RainViewerURL        string `validate:"url"`

	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string
}

var validate = validator.New()

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults, then validates it.
func Load() (*AppConfig, error) {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.UserAgent = getenvDefault("USER_AGENT", "weather-radar-map/1.0 (+https://github.com/i474232898/weather-radar-map)")

	cfg.DefaultLat = getenvFloat("DEFAULT_LAT", 51.5074)
	cfg.DefaultLon = getenvFloat("DEFAULT_LON", -0.1278)
	cfg.DefaultLocation = weather.Coordinate{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon}
	if cfg.GeolocateTimeout, err = getenvDuration("GEOLOCATE_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}
	cfg.GeolocateURL = os.Getenv("GEOLOCATE_URL")

	cfg.RadarTileSize = getenvInt("RADAR_TILE_SIZE", 256)
	cfg.RadarOpacity = getenvFloat("RADAR_OPACITY", 0.7)
	cfg.RadarColorScheme = getenvInt("RADAR_COLOR_SCHEME", 2)
	cfg.RadarIncludeNowcast = getenvBool("RADAR_INCLUDE_NOWCAST", true)
	if cfg.RadarInterval, err = getenvDuration("RADAR_INTERVAL", 700*time.Millisecond); err != nil {
		return nil, err
	}
	cfg.RadarMaxNativeZoom = getenvInt("RADAR_MAX_NATIVE_ZOOM", 7)
	cfg.RadarMaxZoom = getenvInt("RADAR_MAX_ZOOM", 12)

	cfg.InitialZoom = getenvInt("INITIAL_ZOOM", 6)
	cfg.ParticleCount = getenvInt("PARTICLE_COUNT", 650)
	cfg.Theme = strings.ToLower(getenvDefault("THEME", "dark"))
	cfg.PixelRatio = getenvFloat("PIXEL_RATIO", 2)
	cfg.EnableWind = getenvBool("ENABLE_WIND", true)
	cfg.EnableRain = getenvBool("ENABLE_RAIN", false)
	cfg.EnableParticles = getenvBool("ENABLE_PARTICLES", true)

	if cfg.AlertInterval, err = getenvDuration("ALERT_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AlertCooldown, err = getenvDuration("ALERT_COOLDOWN", 3*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AlertHorizon, err = getenvDuration("ALERT_HORIZON", 2*time.Hour); err != nil {
		return nil, err
	}
	cfg.AlertThresholdMm = getenvFloat("ALERT_THRESHOLD_MM", 0.1)

	cfg.StateFile = getenvDefault("STATE_FILE", defaultStateFile())
	cfg.ControlAddr = os.Getenv("CONTROL_ADDR")

	cfg.GoogleGeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")
	cfg.NominatimURL = getenvDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	cfg.OpenMeteoURL = getenvDefault("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast")
	cfg.RainViewerURL = getenvDefault("RAINVIEWER_URL", "https://api.rainviewer.com/public/weather-maps.json")

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFile = getenvDefault("LOG_FILE", "weather-radar-map.log")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.ControlAddr != "" && !loopback(cfg.ControlAddr) {
		return nil, fmt.Errorf("invalid CONTROL_ADDR %q: control API only binds to loopback", cfg.ControlAddr)
	}
	return cfg, nil
}

func loopback(addr string) bool {
	host := addr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		host = addr[:i]
	}
	host = strings.Trim(host, "[]")
	return host == "localhost" || host == "::1" || strings.HasPrefix(host, "127.")
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "weather-radar-map.yaml"
	}
	return dir + string(os.PathSeparator) + "weather-radar-map" + string(os.PathSeparator) + "state.yaml"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
