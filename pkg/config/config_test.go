package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50000, cfg.Chart.Capacity)
	assert.Equal(t, 0.43, cfg.Chart.BarWidth)
	assert.Equal(t, 500*time.Microsecond, cfg.Cursor.DebounceWindow)
	assert.Equal(t, 60, cfg.Cursor.RateLimit)
	assert.Equal(t, 2, cfg.Cursor.Digits)
	assert.Equal(t, []string{"BTCUSDT"}, cfg.Chart.Symbols)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	t.Run("bar width out of range", func(t *testing.T) {
		c := *cfg
		c.Chart.BarWidth = 0.7
		assert.Error(t, c.Validate())

		c.Chart.BarWidth = 0
		assert.Error(t, c.Validate())
	})

	t.Run("non-positive capacity", func(t *testing.T) {
		c := *cfg
		c.Chart.Capacity = 0
		assert.Error(t, c.Validate())
	})

	t.Run("non-positive rate limit", func(t *testing.T) {
		c := *cfg
		c.Cursor.RateLimit = 0
		assert.Error(t, c.Validate())
	})
}

func TestAddrHelpers(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9090
	cfg.Redis.Host = "redis"
	cfg.Redis.Port = 6379

	assert.Equal(t, "127.0.0.1:9090", cfg.GetServerAddr())
	assert.Equal(t, "redis:6379", cfg.GetRedisAddr())
}
