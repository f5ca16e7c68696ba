package config

import (
	"os"
	"strconv"
)

// parseEnv overlays cfg with KEEPSAFE_* environment variables. Environment
// wins over both defaults and the JSON file.
func parseEnv(cfg *Config) {
	if v := os.Getenv("KEEPSAFE_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("KEEPSAFE_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("KEEPSAFE_ONLINE_CHECK_INTERVAL"); v != "" {
		cfg.OnlineCheckInterval = mustDuration(v)
	}
	if v := os.Getenv("KEEPSAFE_SETTLE_DELAY"); v != "" {
		cfg.SettleDelay = mustDuration(v)
	}
	if v := os.Getenv("KEEPSAFE_STOP_ON_FIRST_ERROR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		cfg.StopOnFirstError = b
	}
}
