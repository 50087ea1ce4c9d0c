// Package config loads planner settings from defaults, an optional config
// file, PLANNER_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. PLANNER_DB.
const EnvPrefix = "PLANNER"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full planner configuration.
type Config struct {
	DBPath      string         `mapstructure:"db"`
	Verbose     bool           `mapstructure:"verbose"`
	MetricsAddr string         `mapstructure:"metrics_addr"`
	Solver      SolverConfig   `mapstructure:"solver"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Sessions    SessionsConfig `mapstructure:"sessions"`
}

// SolverConfig tunes the LP solve.
type SolverConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	Epsilon      float64       `mapstructure:"epsilon"`
	Tolerance    float64       `mapstructure:"tolerance"`
	ScarceWeight float64       `mapstructure:"scarce_weight"`
}

// CacheConfig controls the solve result cache.
type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	Cleanup time.Duration `mapstructure:"cleanup"`
}

// SessionsConfig bounds the session registry.
type SessionsConfig struct {
	Max int `mapstructure:"max"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", "production.db")
	v.SetDefault("verbose", false)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("solver.timeout", 5*time.Second)
	v.SetDefault("solver.epsilon", 1e-6)
	v.SetDefault("solver.tolerance", 1e-9)
	v.SetDefault("solver.scarce_weight", 10.0)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.cleanup", 20*time.Minute)
	v.SetDefault("sessions.max", 256)
}

// Default returns the configuration with no overrides applied.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return cfg
}

// Load reads configuration into v and decodes it. configFile may be empty.
// Flags should already be bound to v with BindPFlag.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.DBPath == "":
		return fmt.Errorf("%w: db path is empty", ErrInvalidConfig)
	case c.Solver.Timeout <= 0:
		return fmt.Errorf("%w: solver.timeout must be positive", ErrInvalidConfig)
	case c.Solver.Epsilon <= 0:
		return fmt.Errorf("%w: solver.epsilon must be positive", ErrInvalidConfig)
	case c.Solver.Tolerance <= 0:
		return fmt.Errorf("%w: solver.tolerance must be positive", ErrInvalidConfig)
	case c.Solver.ScarceWeight < 1:
		return fmt.Errorf("%w: solver.scarce_weight must be at least 1", ErrInvalidConfig)
	case c.Cache.TTL < 0:
		return fmt.Errorf("%w: cache.ttl must not be negative", ErrInvalidConfig)
	case c.Sessions.Max <= 0:
		return fmt.Errorf("%w: sessions.max must be positive", ErrInvalidConfig)
	}
	return nil
}
