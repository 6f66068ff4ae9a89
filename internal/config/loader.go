package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/soltixdb/chamberview/internal/utils"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")                // Current directory
		v.AddConfigPath("./configs")        // Project configs directory
		v.AddConfigPath("./config")         // Alternative config directory
		v.AddConfigPath("/etc/chamberview") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides, e.g. CHAMBERVIEW_ENGINE_TIMEZONE
	v.SetEnvPrefix("CHAMBERVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.http_port", def.Server.HTTPPort)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout.String())
	v.SetDefault("server.body_limit", def.Server.BodyLimit)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_keys", []string{})

	// Engine defaults
	v.SetDefault("engine.timezone", def.Engine.Timezone)
	v.SetDefault("engine.index_mode", def.Engine.IndexMode)
	v.SetDefault("engine.default_strategy", def.Engine.DefaultStrategy)
	v.SetDefault("engine.max_workers", def.Engine.MaxWorkers)
	v.SetDefault("engine.max_points", def.Engine.MaxPoints)
	v.SetDefault("engine.max_series", def.Engine.MaxSeries)

	// Sensor defaults
	sensors := make(map[string]interface{}, len(def.Sensors))
	for name, s := range def.Sensors {
		entry := map[string]interface{}{"unit": s.Unit}
		if s.Ceiling != nil {
			entry["ceiling"] = *s.Ceiling
		}
		sensors[name] = entry
	}
	v.SetDefault("sensors", sensors)

	// Cache defaults
	v.SetDefault("cache.type", def.Cache.Type)
	v.SetDefault("cache.ttl", def.Cache.TTL.String())
	v.SetDefault("cache.cleanup_interval", def.Cache.CleanupInterval.String())
	v.SetDefault("cache.url", def.Cache.URL)
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.prefix", def.Cache.Prefix)
	v.SetDefault("cache.compress", def.Cache.Compress)

	// Logging defaults
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output_path", def.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5580,
			ReadTimeout:  utils.DefaultRequestTimeout,
			WriteTimeout: utils.DefaultRequestTimeout,
			BodyLimit:    16 * 1024 * 1024,
		},
		Engine: EngineConfig{
			Timezone:        "UTC",
			IndexMode:       "legacy",
			DefaultStrategy: "fixed-count",
			MaxWorkers:      utils.DefaultMaxWorkers,
			MaxPoints:       utils.DefaultMaxPoints,
			MaxSeries:       256,
		},
		Sensors: map[string]SensorConfig{
			"temperature": {Unit: "°C", Ceiling: utils.Float64Ptr(500)},
			"humidity":    {Unit: "%", Ceiling: utils.Float64Ptr(100)},
			"pressure":    {Unit: "kPa", Ceiling: utils.Float64Ptr(500)},
			"co2":         {Unit: "ppm", Ceiling: utils.Float64Ptr(10000)},
		},
		Cache: CacheConfig{
			Type:            string(utils.CacheTypeMemory),
			TTL:             utils.DefaultCacheTTL,
			CleanupInterval: time.Minute,
			URL:             "redis://localhost:6379/0",
			Prefix:          "chamberview",
			Compress:        true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
