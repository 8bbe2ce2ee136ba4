// Package config loads the daemon configuration from a TOML file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/craftd/craftd/internal/logger"
)

// Config is the top-level daemon configuration.
type Config struct {
	// Listen is the HTTP API address, e.g. "127.0.0.1:7420".
	Listen string `mapstructure:"listen"`
	// BasePath prefixes all API routes, e.g. "/api".
	BasePath string `mapstructure:"base_path"`
	// DataDir holds one directory per server instance.
	DataDir string `mapstructure:"data_dir"`
	// JavaPath is the process-wide default Java executable, used when an
	// instance has none configured or its configured one fails validation.
	JavaPath string `mapstructure:"java_path"`
	// StopCommand is written to a server's console for a graceful stop.
	StopCommand string `mapstructure:"stop_command"`
	// GracePeriod bounds a graceful stop before escalation to a kill.
	GracePeriod time.Duration `mapstructure:"grace_period"`
	// JavaProbeTimeout bounds the "-version" validation subprocess.
	JavaProbeTimeout time.Duration `mapstructure:"java_probe_timeout"`
	// ReadyPhrases overrides the console phrases that signal boot
	// completion; empty keeps the built-in defaults.
	ReadyPhrases []string `mapstructure:"ready_phrases"`
	// HistoryDSN optionally enables a lifecycle history sink
	// (sqlite/postgres/clickhouse DSN).
	HistoryDSN string `mapstructure:"history_dsn"`
	// MetricsListen optionally serves Prometheus metrics on its own
	// address; empty mounts /metrics on the API listener.
	MetricsListen string `mapstructure:"metrics_listen"`

	Log logger.Config `mapstructure:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:           "127.0.0.1:7420",
		BasePath:         "/api",
		DataDir:          "./servers",
		JavaPath:         "java",
		StopCommand:      "stop",
		GracePeriod:      30 * time.Second,
		JavaProbeTimeout: 10 * time.Second,
	}
}

// Load reads the TOML file at path and merges it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		return cfg, fmt.Errorf("config %s: data_dir must not be empty", path)
	}
	return cfg, nil
}
