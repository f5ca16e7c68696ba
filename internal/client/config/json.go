package config

import (
	"encoding/json"
	"os"
	"time"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals are
// given as strings understood by time.ParseDuration ("3s", "500ms").
type jsonConfig struct {
	ServerURL           string `json:"server_url"`
	DatabasePath        string `json:"database_path"`
	OnlineCheckInterval string `json:"online_check_interval"`
	SettleDelay         string `json:"settle_delay"`
	StopOnFirstError    *bool  `json:"stop_on_first_error"`
}

// parseJson overlays cfg with values from the JSON file named by the
// KEEPSAFE_CONFIG environment variable. With no file configured it returns
// without touching cfg. Read or unmarshal errors panic; configuration is
// resolved once at startup and a broken file should stop the process.
func parseJson(cfg *Config) {
	path := os.Getenv("KEEPSAFE_CONFIG")
	if path == "" {
		return
	}

	var jc jsonConfig

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.OnlineCheckInterval != "" {
		cfg.OnlineCheckInterval = mustDuration(jc.OnlineCheckInterval)
	}
	if jc.SettleDelay != "" {
		cfg.SettleDelay = mustDuration(jc.SettleDelay)
	}
	if jc.StopOnFirstError != nil {
		cfg.StopOnFirstError = *jc.StopOnFirstError
	}
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}
