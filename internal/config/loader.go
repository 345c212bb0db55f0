package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk layout. Unset fields keep their current value.
type fileConfig struct {
	Scheduler struct {
		FlushDelay string `toml:"flush_delay" yaml:"flush_delay"`
		YieldDelay string `toml:"yield_delay" yaml:"yield_delay"`
	} `toml:"scheduler" yaml:"scheduler"`

	Logging struct {
		Level  string `toml:"level" yaml:"level"`
		Prefix string `toml:"prefix" yaml:"prefix"`
	} `toml:"logging" yaml:"logging"`

	Dispatcher struct {
		Metrics          *bool `toml:"metrics" yaml:"metrics"`
		RecoverFromPanic *bool `toml:"recover_from_panic" yaml:"recover_from_panic"`
	} `toml:"dispatcher" yaml:"dispatcher"`
}

// Load reads settings from path on top of Default().
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // File doesn't exist, not an error
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = parseTOML(path, data, &fc)
	case ".yaml", ".yml":
		err = parseYAML(path, data, &fc)
	default:
		return cfg, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return cfg, err
	}

	return fc.apply(path, cfg)
}

func parseTOML(path string, data []byte, fc *fileConfig) error {
	if err := toml.Unmarshal(data, fc); err != nil {
		perr := &ParseError{Path: path, Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

func parseYAML(path string, data []byte, fc *fileConfig) error {
	if err := yaml.Unmarshal(data, fc); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

func (fc *fileConfig) apply(path string, cfg Config) (Config, error) {
	var err error
	if cfg.FlushDelay, err = duration(path, "scheduler.flush_delay", fc.Scheduler.FlushDelay, cfg.FlushDelay); err != nil {
		return cfg, err
	}
	if cfg.YieldDelay, err = duration(path, "scheduler.yield_delay", fc.Scheduler.YieldDelay, cfg.YieldDelay); err != nil {
		return cfg, err
	}
	if fc.Logging.Level != "" {
		cfg.LogLevel = fc.Logging.Level
	}
	if fc.Logging.Prefix != "" {
		cfg.LogPrefix = fc.Logging.Prefix
	}
	if fc.Dispatcher.Metrics != nil {
		cfg.EnableMetrics = *fc.Dispatcher.Metrics
	}
	if fc.Dispatcher.RecoverFromPanic != nil {
		cfg.RecoverFromPanic = *fc.Dispatcher.RecoverFromPanic
	}
	return cfg, nil
}

func duration(path, key, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, &ParseError{Path: path, Key: key, Err: err}
	}
	return d, nil
}

// envConfig maps KEYFRAME_* variables onto Config.
type envConfig struct {
	FlushDelay       time.Duration `env:"KEYFRAME_FLUSH_DELAY"`
	YieldDelay       time.Duration `env:"KEYFRAME_YIELD_DELAY"`
	LogLevel         string        `env:"KEYFRAME_LOG_LEVEL"`
	LogPrefix        string        `env:"KEYFRAME_LOG_PREFIX"`
	EnableMetrics    bool          `env:"KEYFRAME_METRICS"`
	RecoverFromPanic bool          `env:"KEYFRAME_RECOVER_FROM_PANIC"`
}

// ApplyEnv overlays KEYFRAME_* environment variables on cfg.
// Variables that are not set leave the current value unchanged.
func ApplyEnv(cfg Config) (Config, error) {
	raw := envConfig(cfg)
	if err := env.Parse(&raw); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return Config(raw), nil
}
