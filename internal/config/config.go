package config

import (
	"fmt"
	"time"

	"github.com/soltixdb/chamberview/internal/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig            `mapstructure:"server"`
	Auth    AuthConfig              `mapstructure:"auth"`
	Engine  EngineConfig            `mapstructure:"engine"`
	Sensors map[string]SensorConfig `mapstructure:"sensors"`
	Cache   CacheConfig             `mapstructure:"cache"`
	Logging LoggingConfig           `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"` // Max request body in bytes
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// EngineConfig tunes the downsampling engine
type EngineConfig struct {
	Timezone        string `mapstructure:"timezone"`         // Calendar bucketing zone (e.g., "Asia/Tokyo", "+09:00", "UTC")
	IndexMode       string `mapstructure:"index_mode"`       // legacy, uniform
	DefaultStrategy string `mapstructure:"default_strategy"` // fixed-count, calendar-aligned
	MaxWorkers      int    `mapstructure:"max_workers"`      // Series aggregated concurrently per request
	MaxPoints       int    `mapstructure:"max_points"`       // Upper bound for caller supplied point counts
	MaxSeries       int    `mapstructure:"max_series"`       // Upper bound for series per request
}

// SensorConfig describes a sensor type
type SensorConfig struct {
	Unit    string   `mapstructure:"unit"`
	Ceiling *float64 `mapstructure:"ceiling"` // Readings above this are clamped before averaging
}

// CacheConfig represents memo cache configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // memory (default), redis, none
	TTL  time.Duration `mapstructure:"ttl"`

	// Memory-specific options
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// Redis-specific options
	URL      string `mapstructure:"url"`      // e.g., redis://localhost:6379/0
	Password string `mapstructure:"password"` // Optional authentication
	RedisDB  int    `mapstructure:"redis_db"` // Used when URL is not a redis:// URL
	Prefix   string `mapstructure:"prefix"`   // Key prefix (default: "chamberview")
	Compress bool   `mapstructure:"compress"` // Snappy-compress cached payloads
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, RFC3339Nano, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	for name, sensor := range c.Sensors {
		if err := sensor.Validate(); err != nil {
			return fmt.Errorf("sensors.%s config: %w", name, err)
		}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("read_timeout and write_timeout cannot be negative")
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates auth configuration
func (c *AuthConfig) Validate() error {
	if c.Enabled && len(c.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys is required when auth is enabled")
	}
	return nil
}

// Validate validates engine configuration
func (c *EngineConfig) Validate() error {
	if c.Timezone != "" {
		if _, err := c.location(); err != nil {
			return err
		}
	}

	switch c.IndexMode {
	case "", "legacy", "uniform":
	default:
		return fmt.Errorf("engine.index_mode must be 'legacy' or 'uniform'")
	}

	switch c.DefaultStrategy {
	case "", "fixed-count", "calendar-aligned":
	default:
		return fmt.Errorf("engine.default_strategy must be 'fixed-count' or 'calendar-aligned'")
	}

	if c.MaxWorkers < 1 {
		return fmt.Errorf("engine.max_workers must be at least 1")
	}

	if c.MaxPoints < 1 {
		return fmt.Errorf("engine.max_points must be at least 1")
	}

	if c.MaxSeries < 1 {
		return fmt.Errorf("engine.max_series must be at least 1")
	}

	return nil
}

// Validate validates a sensor type
func (c *SensorConfig) Validate() error {
	// Chambers reading below zero need zero or negative ceilings
	if c.Ceiling != nil && !utils.IsFinite(*c.Ceiling) {
		return fmt.Errorf("ceiling must be a finite number")
	}
	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "", "memory", "none":
	case "redis":
		if c.URL == "" {
			return fmt.Errorf("cache.url is required for redis cache")
		}
	default:
		return fmt.Errorf("cache.type must be one of: memory, redis, none")
	}

	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
