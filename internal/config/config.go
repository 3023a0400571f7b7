// Package config loads the engine configuration from defaults, an
// optional YAML file and LAZYSEARCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/hailam/lazysearch/internal/storage"
	"github.com/hailam/lazysearch/internal/tablebase"
)

type Config struct {
	HashMB       int           `mapstructure:"hash-mb"`
	Threads      int           `mapstructure:"threads"`
	MultiPV      int           `mapstructure:"multipv"`
	MoveOverhead time.Duration `mapstructure:"move-overhead"`
	Ponder       bool          `mapstructure:"ponder"`

	SyzygyProbeLimit int    `mapstructure:"syzygy-probe-limit"`
	SyzygyProbeDepth int    `mapstructure:"syzygy-probe-depth"`
	Syzygy50MoveRule bool   `mapstructure:"syzygy-50-move-rule"`
	UseLichessTB     bool   `mapstructure:"use-lichess-tb"`
	LichessURL       string `mapstructure:"lichess-url"`

	DataDir  string `mapstructure:"data-dir"`
	LogLevel string `mapstructure:"log-level"`
	Persist  bool   `mapstructure:"persist"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hash-mb", 16)
	v.SetDefault("threads", 1)
	v.SetDefault("multipv", 1)
	v.SetDefault("move-overhead", 10*time.Millisecond)
	v.SetDefault("ponder", false)
	v.SetDefault("syzygy-probe-limit", 7)
	v.SetDefault("syzygy-probe-depth", 1)
	v.SetDefault("syzygy-50-move-rule", true)
	v.SetDefault("use-lichess-tb", false)
	v.SetDefault("lichess-url", tablebase.DefaultLichessURL)
	v.SetDefault("data-dir", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("persist", true)
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration. An explicit path must exist; without one
// lazysearch.yaml is looked up in the working and data directories.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("lazysearch")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("lazysearch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := storage.GetDataDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.HashMB < 1:
		return fmt.Errorf("hash-mb must be positive, got %d", c.HashMB)
	case c.Threads < 1:
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	case c.MultiPV < 1:
		return fmt.Errorf("multipv must be positive, got %d", c.MultiPV)
	case c.MoveOverhead < 0:
		return fmt.Errorf("move-overhead must not be negative, got %s", c.MoveOverhead)
	case c.SyzygyProbeLimit < 0 || c.SyzygyProbeLimit > 7:
		return fmt.Errorf("syzygy-probe-limit must be within 0-7, got %d", c.SyzygyProbeLimit)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	return nil
}

// Level is the configured zerolog level.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Tablebase builds the configured tablebase prober.
func (c *Config) Tablebase() tablebase.Prober {
	if !c.UseLichessTB {
		return tablebase.NoopProber{}
	}
	return tablebase.NewCachedProber(tablebase.NewLichessProber(tablebase.WithBaseURL(c.LichessURL)), 100000)
}

// ApplyStored overrides the configuration with options saved by an
// earlier session.
func (c *Config) ApplyStored(o *storage.EngineOptions) {
	c.HashMB = o.HashMB
	c.Threads = o.Threads
	c.MultiPV = o.MultiPV
	c.MoveOverhead = time.Duration(o.MoveOverheadMs) * time.Millisecond
	c.Ponder = o.Ponder
	c.SyzygyProbeLimit = o.SyzygyProbeLimit
	c.UseLichessTB = o.UseLichessTB
}

// Stored returns the options worth keeping across sessions.
func (c *Config) Stored() *storage.EngineOptions {
	return &storage.EngineOptions{
		HashMB:           c.HashMB,
		Threads:          c.Threads,
		MultiPV:          c.MultiPV,
		MoveOverheadMs:   int(c.MoveOverhead / time.Millisecond),
		Ponder:           c.Ponder,
		SyzygyProbeLimit: c.SyzygyProbeLimit,
		UseLichessTB:     c.UseLichessTB,
	}
}
