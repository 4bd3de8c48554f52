// Package config provides unified configuration loading for graphweave:
// defaults, overridden by a YAML file, overridden by environment variables.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("GRAPHWEAVE").
//	    Load()
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/graphweave/graphweave/store"
)

// Config is the full graphweave configuration.
type Config struct {
	Server  ServerConfig      `yaml:"server"`
	Redis   store.RedisConfig `yaml:"redis"`
	Log     LogConfig         `yaml:"log"`
	Metrics MetricsConfig     `yaml:"metrics"`
	Engine  EngineConfig      `yaml:"engine"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Encoding is json or console.
	Encoding string `yaml:"encoding"`
}

// MetricsConfig configures Prometheus metric registration.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// EngineConfig configures engine defaults.
type EngineConfig struct {
	// DefaultModel is used when a run request does not select a model.
	DefaultModel string `yaml:"default_model"`
	// CacheEnabled turns the completion cache on.
	CacheEnabled bool `yaml:"cache_enabled"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: store.DefaultRedisConfig(),
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "graphweave",
		},
		Engine: EngineConfig{
			DefaultModel: "stub",
		},
	}
}

// Loader assembles a Config from defaults, an optional YAML file, and
// environment variables, in that priority order.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with no file and the GRAPHWEAVE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "GRAPHWEAVE"}
}

// WithConfigPath sets the YAML file to load. A missing file is an error; an
// empty path skips the file stage.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load produces the effective configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", l.configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", l.configPath, err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides individual fields from the environment.
func (l *Loader) applyEnv(cfg *Config) {
	l.envString("SERVER_ADDR", &cfg.Server.Addr)
	l.envString("REDIS_ADDR", &cfg.Redis.Addr)
	l.envString("REDIS_PASSWORD", &cfg.Redis.Password)
	l.envInt("REDIS_DB", &cfg.Redis.DB)
	l.envString("LOG_LEVEL", &cfg.Log.Level)
	l.envString("LOG_ENCODING", &cfg.Log.Encoding)
	l.envBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	l.envString("METRICS_NAMESPACE", &cfg.Metrics.Namespace)
	l.envString("ENGINE_DEFAULT_MODEL", &cfg.Engine.DefaultModel)
	l.envBool("ENGINE_CACHE_ENABLED", &cfg.Engine.CacheEnabled)
}

func (l *Loader) envString(key string, dst *string) {
	if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
		*dst = v
	}
}

func (l *Loader) envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (l *Loader) envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log encoding %q", c.Log.Encoding)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr cannot be empty")
	}
	return nil
}
