// Package config loads go-roulette configuration from defaults, an optional
// roulette.{yaml,toml,json} file and ROULETTE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/teslashibe/go-roulette/pkg/session"
	"github.com/teslashibe/go-roulette/pkg/sink"
	"github.com/teslashibe/go-roulette/pkg/source"
	"github.com/teslashibe/go-roulette/pkg/tracking"
	"github.com/teslashibe/go-roulette/pkg/web"
)

const (
	configName = "roulette"
	envPrefix  = "ROULETTE"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// ForwardConfig points the websocket forwarder at a remote collector.
type ForwardConfig struct {
	Enabled         bool   `mapstructure:"enabled" json:"enabled"`
	URL             string `mapstructure:"url" json:"url"`
	PredictionsOnly bool   `mapstructure:"predictions_only" json:"predictions_only"`
}

// DiscoveryConfig controls the mDNS advert of the dashboard.
type DiscoveryConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Instance string `mapstructure:"instance" json:"instance"` // defaults to <hostname>-roulette
}

// Config is the complete application configuration.
type Config struct {
	LogLevel       string           `mapstructure:"log_level" json:"log_level"`
	TrackingPreset string           `mapstructure:"tracking_preset" json:"tracking_preset,omitempty"` // overrides the session history and smoothing keys
	Session        session.Config   `mapstructure:"session" json:"session"`
	Source         source.Config    `mapstructure:"source" json:"source"`
	Web            web.Config       `mapstructure:"web" json:"web"`
	Redis          sink.RedisConfig `mapstructure:"redis" json:"redis"`
	Forward        ForwardConfig    `mapstructure:"forward" json:"forward"`
	Discovery      DiscoveryConfig  `mapstructure:"discovery" json:"discovery"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LogLevel:  "info",
		Session:   session.DefaultConfig(),
		Source:    source.DefaultConfig(),
		Web:       web.DefaultConfig(),
		Redis:     sink.DefaultRedisConfig(),
		Discovery: DiscoveryConfig{Enabled: true},
	}
}

// Load reads configuration with a fresh viper instance. An empty path
// searches ./ and $HOME/.config/roulette; a missing file there is not an
// error, a missing explicit path is.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-provided viper instance, so flags bound to it
// take precedence over file and environment values.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	if err := setDefaults(v, Default()); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.TrackingPreset != "" {
		tc, err := tracking.Preset(cfg.TrackingPreset)
		if err != nil {
			return Config{}, fmt.Errorf("%w: tracking_preset: %v", ErrInvalid, err)
		}
		cfg.Session = cfg.Session.WithTracking(tc)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every leaf key so environment variables can override
// keys that no config file mentions.
func setDefaults(v *viper.Viper, cfg Config) error {
	sections := map[string]any{
		"session":   cfg.Session,
		"source":    cfg.Source,
		"web":       cfg.Web,
		"redis":     cfg.Redis,
		"forward":   cfg.Forward,
		"discovery": cfg.Discovery,
	}
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("tracking_preset", cfg.TrackingPreset)
	for name, section := range sections {
		var m map[string]any
		if err := mapstructure.Decode(section, &m); err != nil {
			return fmt.Errorf("encode %s defaults: %w", name, err)
		}
		for k, val := range m {
			v.SetDefault(name+"."+k, val)
		}
	}
	return nil
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var problems []string

	if err := c.Session.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	for _, p := range c.Source.Validate() {
		problems = append(problems, "source: "+p)
	}
	if c.Web.Enabled && c.Web.Addr == "" {
		problems = append(problems, "web: addr is required when enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		problems = append(problems, "redis: addr is required when enabled")
	}
	if c.Forward.Enabled && !strings.HasPrefix(c.Forward.URL, "ws://") && !strings.HasPrefix(c.Forward.URL, "wss://") {
		problems = append(problems, fmt.Sprintf("forward: url must be ws:// or wss://, got %q", c.Forward.URL))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}
