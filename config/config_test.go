package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.PoolCoreSize)
	assert.Equal(t, 64, cfg.PoolMaxSize)
	assert.Equal(t, 60*time.Second, cfg.PoolKeepAlive)
	assert.False(t, cfg.PoolPerTask)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Second, cfg.ShutdownGraceDelay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_POOL_CORE_SIZE", "2")
	t.Setenv("SERVICE_POOL_MAX_SIZE", "4")
	t.Setenv("SERVICE_POOL_KEEP_ALIVE", "250ms")
	t.Setenv("SERVICE_POOL_PER_TASK", "true")
	t.Setenv("SERVICE_SHUTDOWN_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.PoolCoreSize)
	assert.Equal(t, 4, cfg.PoolMaxSize)
	assert.Equal(t, 250*time.Millisecond, cfg.PoolKeepAlive)
	assert.True(t, cfg.PoolPerTask)
	assert.Equal(t, 750*time.Millisecond, cfg.ShutdownTimeout)
}

func TestLoad_RejectsMaxBelowCore(t *testing.T) {
	t.Setenv("SERVICE_POOL_CORE_SIZE", "16")
	t.Setenv("SERVICE_POOL_MAX_SIZE", "4")

	_, err := Load()
	assert.ErrorContains(t, err, "SERVICE_POOL_MAX_SIZE")
}

func TestLoad_RejectsNonPositiveShutdownTimeout(t *testing.T) {
	t.Setenv("SERVICE_SHUTDOWN_TIMEOUT", "0s")

	_, err := Load()
	assert.ErrorContains(t, err, "SERVICE_SHUTDOWN_TIMEOUT")
}

func TestDefault_MatchesLoadDefaults(t *testing.T) {
	loaded, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), loaded)
}
