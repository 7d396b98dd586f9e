// Package config loads CareerHelper client configuration from defaults, an
// optional YAML file and CAREERHELPER_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the client configuration.
type Config struct {
	GatewayURL string `mapstructure:"gateway_url"`
	AuthToken  string `mapstructure:"auth_token"`
	UserID     string `mapstructure:"user_id"`
	DataDir    string `mapstructure:"data_dir"`

	ListenAddr string `mapstructure:"listen_addr"` // dev gateway server
	WSAddr     string `mapstructure:"ws_addr"`     // websocket push endpoint

	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	SyncInterval  time.Duration `mapstructure:"sync_interval"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("gateway_url", "http://localhost:8080")
	v.SetDefault("auth_token", "")
	v.SetDefault("user_id", "")
	v.SetDefault("data_dir", ".careerhelper")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("ws_addr", ":8090")
	v.SetDefault("probe_interval", 30*time.Second)
	v.SetDefault("sync_interval", 15*time.Minute)
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("CAREERHELPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
