package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STATE_FILE", "/tmp/state.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.RadarTileSize)
	assert.Equal(t, 700*time.Millisecond, cfg.RadarInterval)
	assert.True(t, cfg.RadarIncludeNowcast)
	assert.Equal(t, 650, cfg.ParticleCount)
	assert.Equal(t, "dark", cfg.Theme)
	assert.Equal(t, 10*time.Minute, cfg.AlertInterval)
	assert.InDelta(t, 51.5074, cfg.DefaultLocation.Lat, 1e-9)
	assert.Empty(t, cfg.ControlAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RADAR_TILE_SIZE", "512")
	t.Setenv("RADAR_INTERVAL", "1s")
	t.Setenv("THEME", "Light")
	t.Setenv("DEFAULT_LAT", "59.91")
	t.Setenv("DEFAULT_LON", "10.75")
	t.Setenv("CONTROL_ADDR", "127.0.0.1:8787")
	t.Setenv("ENABLE_RAIN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.RadarTileSize)
	assert.Equal(t, time.Second, cfg.RadarInterval)
	assert.Equal(t, "light", cfg.Theme)
	assert.InDelta(t, 10.75, cfg.DefaultLocation.Lon, 1e-9)
	assert.True(t, cfg.EnableRain)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"RADAR_TILE_SIZE": "300",
		"RADAR_OPACITY":   "1.5",
		"THEME":           "solarized",
		"DEFAULT_LAT":     "91",
		"RADAR_INTERVAL":  "soon",
		"CONTROL_ADDR":    "0.0.0.0:8787",
		"ALERT_INTERVAL":  "10s",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoopback(t *testing.T) {
	assert.True(t, loopback("127.0.0.1:8080"))
	assert.True(t, loopback("localhost:8080"))
	assert.True(t, loopback("[::1]:8080"))
	assert.False(t, loopback(":8080"))
	assert.False(t, loopback("192.168.1.2:8080"))
}
