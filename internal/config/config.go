// Package config loads the xenocpu YAML configuration. Every field has a
// default, so running without a config file is supported.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Stress    StressConfig    `yaml:"stress"`
	Benchmark BenchmarkConfig `yaml:"benchmark"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedIPs     []string `yaml:"allowed_ips"`
	RateLimit      float64  `yaml:"rate_limit"` // requests per second per IP
	RateBurst      int      `yaml:"rate_burst"`
}

type AuthConfig struct {
	SecretKey    string        `yaml:"secret_key"`
	TokenExpiry  time.Duration `yaml:"token_expiry"`
	RequireToken bool          `yaml:"require_token"` // guard mutating endpoints
}

type StressConfig struct {
	BufferElements int           `yaml:"buffer_elements"` // float64s per worker buffer
	PauseInterval  time.Duration `yaml:"pause_interval"`
	DefaultThreads int           `yaml:"default_threads"`
}

type BenchmarkConfig struct {
	SingleCoreLimit    int           `yaml:"single_core_limit"`
	MultiCoreLimit     int           `yaml:"multi_core_limit"`
	WarmupIterations   int           `yaml:"warmup_iterations"`
	Cooldown           time.Duration `yaml:"cooldown"`
	SingleCoreTrialGap time.Duration `yaml:"single_core_trial_gap"`
	MultiCoreTrialGap  time.Duration `yaml:"multi_core_trial_gap"`
	DefaultRuns        int           `yaml:"default_runs"`
}

type HardwareConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	DefaultMHz     int           `yaml:"default_mhz"`
	SysfsRoot      string        `yaml:"sysfs_root"`
	NameCapacity   int           `yaml:"name_capacity"`
}

type HistoryConfig struct {
	Interval  time.Duration `yaml:"interval"`
	MaxPoints int           `yaml:"max_points"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      "localhost:8080",
			RateLimit: 100,
			RateBurst: 200,
		},
		Auth: AuthConfig{
			TokenExpiry: 90 * 24 * time.Hour,
		},
		Stress: StressConfig{
			BufferElements: 128 * 1024, // 1 MiB of float64 per buffer
			PauseInterval:  100 * time.Millisecond,
			DefaultThreads: 4,
		},
		Benchmark: BenchmarkConfig{
			SingleCoreLimit:    100000,
			MultiCoreLimit:     5000000,
			WarmupIterations:   100000,
			Cooldown:           50 * time.Millisecond,
			SingleCoreTrialGap: 10 * time.Millisecond,
			MultiCoreTrialGap:  100 * time.Millisecond,
			DefaultRuns:        3,
		},
		Hardware: HardwareConfig{
			SampleInterval: 100 * time.Millisecond,
			CacheTTL:       time.Second,
			DefaultMHz:     2400,
			SysfsRoot:      "/sys",
			NameCapacity:   256,
		},
		History: HistoryConfig{
			Interval:  time.Second,
			MaxPoints: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Stress.BufferElements < 2 {
		errs = append(errs, errors.New("stress.buffer_elements must be at least 2"))
	}
	if c.Stress.PauseInterval <= 0 {
		errs = append(errs, errors.New("stress.pause_interval must be positive"))
	}
	if c.Stress.DefaultThreads < 1 {
		errs = append(errs, errors.New("stress.default_threads must be at least 1"))
	}
	if c.Benchmark.SingleCoreLimit < 2 || c.Benchmark.MultiCoreLimit < 2 {
		errs = append(errs, errors.New("benchmark limits must be at least 2"))
	}
	if c.Hardware.SampleInterval <= 0 {
		errs = append(errs, errors.New("hardware.sample_interval must be positive"))
	}
	if c.Hardware.CacheTTL <= 0 {
		errs = append(errs, errors.New("hardware.cache_ttl must be positive"))
	}
	if c.Hardware.DefaultMHz <= 0 {
		errs = append(errs, errors.New("hardware.default_mhz must be positive"))
	}
	if c.Hardware.NameCapacity <= 0 {
		errs = append(errs, errors.New("hardware.name_capacity must be positive"))
	}
	if c.History.Interval <= 0 || c.History.MaxPoints < 1 {
		errs = append(errs, errors.New("history.interval and history.max_points must be positive"))
	}
	return errors.Join(errs...)
}
