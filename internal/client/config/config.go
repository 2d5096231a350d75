// Package config assembles runtime settings for the medkeep client from
// defaults, an optional JSON file and command-line flags. Later sources take
// precedence over earlier ones.
package config

import "time"

// Config holds runtime settings for the medkeep client.
//
// Fields:
//   - RemoteBaseURL: base URL of the backend REST endpoint.
//   - DatabasePath: path of the local sqlite file.
//   - SyncInterval: how often a background incremental pull runs.
//   - RequestTimeout: per-request timeout of the HTTP client.
type Config struct {
	RemoteBaseURL  string
	DatabasePath   string
	SyncInterval   time.Duration
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RemoteBaseURL = "http://127.0.0.1:8787"
	c.DatabasePath = "medkeep.db"
	c.SyncInterval = 5 * time.Minute
	c.RequestTimeout = 15 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
