// Package config assembles the client's runtime settings from defaults, an
// optional JSON file, and environment variables, in that order of
// precedence.
package config

import "time"

// Config holds runtime settings for a client embedding the sync engine.
//
// Units: the intervals are time.Duration values (e.g., 3*time.Second).
type Config struct {
	// ServerURL is the base URL of the remote vault service.
	ServerURL string
	// DatabasePath is the SQLite DSN of the local store.
	DatabasePath string
	// OnlineCheckInterval is how often the connectivity monitor probes the
	// service.
	OnlineCheckInterval time.Duration
	// SettleDelay is the pause between a reconnect and the queue drain it
	// triggers.
	SettleDelay time.Duration
	// StopOnFirstError halts a drain at the first failed action instead of
	// continuing past it.
	StopOnFirstError bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabasePath = "keepsafe.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SettleDelay = 2 * time.Second
	c.StopOnFirstError = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if configured) and the environment. Later sources take precedence
// over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	return cfg
}
