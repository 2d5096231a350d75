package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8787", c.RemoteBaseURL)
	assert.Equal(t, "medkeep.db", c.DatabasePath)
	assert.Equal(t, 5*time.Minute, c.SyncInterval)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8787", cfg.RemoteBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
}
