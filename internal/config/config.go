package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete portal server configuration.
//
// Sources, highest precedence first:
//  1. Environment variables (PORTAL_*, e.g. PORTAL_SERVER_PORT)
//  2. Configuration file (YAML)
//  3. Defaults from ApplyDefaults
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Visibility VisibilityConfig `mapstructure:"visibility"`
	Signal     SignalConfig     `mapstructure:"signal"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	Environment     string        `mapstructure:"environment" validate:"required,oneof=dev test prod"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	// Dir enables a timestamped log file next to stdout when set
	Dir      string `mapstructure:"dir"`
	MaxFiles int    `mapstructure:"max_files" validate:"gte=1"`
}

// DatabaseConfig selects the relational store
type DatabaseConfig struct {
	// Type is postgres, or memory for an ephemeral in-process store
	Type        string `mapstructure:"type" validate:"required,oneof=postgres memory"`
	URL         string `mapstructure:"url" validate:"required_if=Type postgres"`
	TablePrefix string `mapstructure:"table_prefix"`
	MaxConns    int32  `mapstructure:"max_conns" validate:"gt=0"`
	MinConns    int32  `mapstructure:"min_conns" validate:"gte=0,ltefield=MaxConns"`
}

// StorageConfig selects the physical mirror. Only the section matching Type is read.
type StorageConfig struct {
	Type  string         `mapstructure:"type" validate:"required,oneof=local memory s3"`
	Local map[string]any `mapstructure:"local"`
	S3    map[string]any `mapstructure:"s3"`
}

// AuthConfig points at the identity provider's signing keys
type AuthConfig struct {
	JWKSURL string `mapstructure:"jwks_url" validate:"required,url"`
}

// VisibilityConfig tunes the visibility resolver
type VisibilityConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	MaxAncestorHops int           `mapstructure:"max_ancestor_hops" validate:"gt=0"`
}

// SignalConfig selects the change counter backend
type SignalConfig struct {
	Type   string         `mapstructure:"type" validate:"required,oneof=badger memory noop"`
	Badger map[string]any `mapstructure:"badger"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// envKeys are bound explicitly so environment variables work without a config file
var envKeys = []string{
	"server.port", "server.environment", "server.cors_origins", "server.shutdown_timeout",
	"logging.level", "logging.dir", "logging.max_files",
	"database.type", "database.url", "database.table_prefix", "database.max_conns", "database.min_conns",
	"storage.type", "storage.local.root",
	"storage.s3.region", "storage.s3.bucket", "storage.s3.key_prefix", "storage.s3.endpoint",
	"storage.s3.access_key_id", "storage.s3.secret_access_key", "storage.s3.max_retries",
	"auth.jwks_url",
	"visibility.cache_ttl", "visibility.max_ancestor_hops",
	"signal.type", "signal.badger.path",
	"metrics.enabled",
}

// Load reads configuration from an optional file and the environment,
// applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values. Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "dev"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		if cfg.Server.Environment == "dev" {
			cfg.Logging.Level = "debug"
		}
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.MaxFiles == 0 {
		cfg.Logging.MaxFiles = 10
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.TablePrefix == "" {
		cfg.Database.TablePrefix = tablePrefix(cfg.Server.Environment)
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 25
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 5
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.Local == nil {
		cfg.Storage.Local = make(map[string]any)
	}
	if _, ok := cfg.Storage.Local["root"]; !ok {
		cfg.Storage.Local["root"] = "./data/documents"
	}
	if cfg.Storage.S3 == nil {
		cfg.Storage.S3 = make(map[string]any)
	}

	if cfg.Visibility.CacheTTL == 0 {
		cfg.Visibility.CacheTTL = 5 * time.Second
	}
	if cfg.Visibility.MaxAncestorHops == 0 {
		cfg.Visibility.MaxAncestorHops = 64
	}

	if cfg.Signal.Type == "" {
		cfg.Signal.Type = "badger"
	}
	if cfg.Signal.Badger == nil {
		cfg.Signal.Badger = make(map[string]any)
	}
}

// tablePrefix derives the table prefix from the environment
func tablePrefix(env string) string {
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}
