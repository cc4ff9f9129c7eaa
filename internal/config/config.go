// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Feed   FeedConfig   `mapstructure:"feed"`
	View   ViewConfig   `mapstructure:"view"`
	Server ServerConfig `mapstructure:"server"`
	Alert  AlertConfig  `mapstructure:"alert"`
	TUI    TUIConfig    `mapstructure:"tui"`
}

type FeedConfig struct {
	URL              string          `mapstructure:"url"`
	HandshakeTimeout time.Duration   `mapstructure:"handshake_timeout"`
	PongWait         time.Duration   `mapstructure:"pong_wait"`
	ReadLimit        int64           `mapstructure:"read_limit"`
	Reconnect        ReconnectConfig `mapstructure:"reconnect"`
}

type ReconnectConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

type ViewConfig struct {
	HistorySize   int    `mapstructure:"history_size"`
	LogSize       int    `mapstructure:"log_size"`
	AlertPolicy   string `mapstructure:"alert_policy"` // "edge" or "every"
	LabelLayout   string `mapstructure:"label_layout"`
	LogTimeLayout string `mapstructure:"log_time_layout"`
}

type ServerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type AlertConfig struct {
	Bell    bool   `mapstructure:"bell"`
	Command string `mapstructure:"command"`
}

type TUIConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

const envPrefix = "MEDITRACK"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// LoadConfig reads config.yaml from path. A missing file is not an error:
// defaults and environment overrides still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.url", "ws://127.0.0.1:8000/ws")
	v.SetDefault("feed.handshake_timeout", "10s")
	v.SetDefault("feed.pong_wait", "60s")
	v.SetDefault("feed.read_limit", 4096)
	v.SetDefault("feed.reconnect.enabled", true)
	v.SetDefault("feed.reconnect.min_delay", "1s")
	v.SetDefault("feed.reconnect.max_delay", "30s")

	v.SetDefault("view.history_size", 21)
	v.SetDefault("view.log_size", 16)
	v.SetDefault("view.alert_policy", "edge")
	v.SetDefault("view.label_layout", "04:05")
	v.SetDefault("view.log_time_layout", "15:04:05")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8081")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("alert.bell", true)
	v.SetDefault("alert.command", "")

	v.SetDefault("tui.enabled", true)
}
