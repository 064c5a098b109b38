// ============================================================================
// Fractor Configuration - YAML loading with FRACTOR_* env overrides
// ============================================================================
//
// Package: internal/config
// File: config.go
// Function: Pool/queue/cache configuration loading, per spec.md §6's
// "Environment variables consumed by the core" and SPEC_FULL.md's AMBIENT
// STACK section.
//
// Modeled on a YAML-tagged Config struct with one section per subsystem and
// a loadConfig helper built on gopkg.in/yaml.v3 Unmarshal over a file read.
// FRACTOR_DEBUG, FRACTOR_LOG_LEVEL, FRACTOR_LOG_OUTPUT, and FRACTOR_TRACE are
// read directly with os.Getenv rather than a third-party env library (see
// DESIGN.md).
//
// ============================================================================

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PoolConfig describes one homogeneous worker pool (spec.md §4.5
// "pool configurations {worker_class, num_workers}").
type PoolConfig struct {
	WorkerClass string `yaml:"worker_class"`
	NumWorkers  int    `yaml:"num_workers"`
}

// QueueConfig configures FIFO vs. priority dispatch and optional aging
// (spec.md §4.4).
type QueueConfig struct {
	Priority       bool          `yaml:"priority"`
	AgingThreshold time.Duration `yaml:"aging_threshold"`
}

// CacheConfig configures the result cache (spec.md §4.8).
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// PersistenceConfig names the on-disk location for the default JSON
// persister (spec.md §6).
type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig configures the Prometheus HTTP exposition endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// WorkSourceConfig names a remote internal/grpcsource peer a continuous-mode
// Supervisor polls for new Work via spec.md §3's WorkCallbacks (see
// SPEC_FULL.md's DOMAIN STACK section). Ignored outside continuous mode.
type WorkSourceConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Address     string        `yaml:"address"`
	MaxItems    int           `yaml:"max_items"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// Config is the full YAML configuration document a Fractor process loads:
// pool sizing, queue discipline, cache, persistence, and metrics.
type Config struct {
	Pools []PoolConfig `yaml:"pools"`

	ContinuousMode bool `yaml:"continuous_mode"`

	Queue       QueueConfig       `yaml:"queue"`
	Cache       CacheConfig       `yaml:"cache"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	WorkSource  WorkSourceConfig  `yaml:"work_source"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SampleInterval  time.Duration `yaml:"sample_interval"`

	Debug bool `yaml:"debug"`
}

// Default returns a Config with a starting set of defaults (10s shutdown
// timeout, 1s sample interval, metrics on :9090, a 10000-entry cache limit,
// one four-worker "default" pool), so a caller can start from Default() and
// override only what it needs. Of these, the Supervisor itself falls back
// only to the 10s shutdown timeout when the field is left zero.
func Default() Config {
	return Config{
		Pools:           []PoolConfig{{WorkerClass: "default", NumWorkers: 4}},
		ShutdownTimeout: 10 * time.Second,
		SampleInterval:  time.Second,
		Metrics:         MetricsConfig{Enabled: true, Port: 9090},
		Cache:           CacheConfig{MaxEntries: 10000},
	}
}

// Load reads and parses a YAML config file at path, then applies
// ApplyEnvOverrides.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(cfg.Pools) == 0 {
		return Config{}, fmt.Errorf("config: %s declares no pools", path)
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides layers the FRACTOR_* environment variables spec.md §6
// names on top of whatever Load or Default produced. FRACTOR_DEBUG accepts
// "1" or "true" (case-insensitive); FRACTOR_LOG_LEVEL and FRACTOR_LOG_OUTPUT
// are read back out by the logger setup in internal/cliapp (configureLogging)
// rather than stored here, since Config only carries dispatch-relevant
// settings.
func (c *Config) ApplyEnvOverrides() {
	if v, ok := os.LookupEnv("FRACTOR_DEBUG"); ok {
		c.Debug = isTruthy(v)
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// LogLevel resolves FRACTOR_LOG_LEVEL (spec.md §6), defaulting to "INFO".
func LogLevel() string {
	if v, ok := os.LookupEnv("FRACTOR_LOG_LEVEL"); ok && v != "" {
		return strings.ToUpper(v)
	}
	return "INFO"
}

// LogOutput resolves FRACTOR_LOG_OUTPUT (spec.md §6: "stdout|stderr|PATH"),
// defaulting to "stderr".
func LogOutput() string {
	if v, ok := os.LookupEnv("FRACTOR_LOG_OUTPUT"); ok && v != "" {
		return v
	}
	return "stderr"
}

// TraceEnabled resolves FRACTOR_TRACE (spec.md §6: "1 enables the execution
// tracer").
func TraceEnabled() bool {
	v, ok := os.LookupEnv("FRACTOR_TRACE")
	return ok && isTruthy(v)
}
