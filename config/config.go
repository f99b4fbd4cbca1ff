// Package config loads client settings from defaults, an optional YAML file,
// and MUSICBOX_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// ServerURL is the websocket endpoint, e.g. ws://host:8080/ws.
	ServerURL string `mapstructure:"server_url"`
	// HTTPBaseURL is the base for one-shot /api fetches.
	HTTPBaseURL string `mapstructure:"http_base_url"`
	// DBPath is the sqlite file for the state snapshot cache.
	DBPath string `mapstructure:"db_path"`

	ReconnectMin   time.Duration `mapstructure:"reconnect_min"`
	ReconnectMax   time.Duration `mapstructure:"reconnect_max"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration, merging the file at path (when given) and the
// environment over built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("server_url", "ws://127.0.0.1:8080/ws")
	v.SetDefault("http_base_url", "http://127.0.0.1:8080")
	v.SetDefault("db_path", "musicbox.db")
	v.SetDefault("reconnect_min", 250*time.Millisecond)
	v.SetDefault("reconnect_max", 8*time.Second)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("MUSICBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ReconnectMin > cfg.ReconnectMax {
		return nil, fmt.Errorf("reconnect_min %s exceeds reconnect_max %s", cfg.ReconnectMin, cfg.ReconnectMax)
	}
	return &cfg, nil
}
