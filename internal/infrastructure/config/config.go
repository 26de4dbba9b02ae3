package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete Redquill Core configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig          `yaml:"cors"`
}

// ServerTimeoutConfig contains HTTP server timeouts in seconds.
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	// Path is the filesystem path to the SQLite database file.
	Path string `yaml:"path"`

	// WALMode enables Write-Ahead Logging for concurrent reads during writes.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int `yaml:"busy_timeout"`
}

// AuthConfig contains token issuance settings.
//
// There is deliberately no process-wide signing secret here: session tokens
// are signed with per-device secrets held in the database. LegacySharedSecret
// exists only so tokens minted by pre-device deployments keep verifying
// during migration.
type AuthConfig struct {
	// TokenTTLDays is the session token lifetime in days.
	TokenTTLDays int `yaml:"token_ttl_days"`

	// DefaultDeviceName is used when a client omits its device name.
	DefaultDeviceName string `yaml:"default_device_name"`

	// DefaultDeviceType is used when a client omits its device type.
	DefaultDeviceType string `yaml:"default_device_type"`

	// LegacySharedSecret, when set, enables verification of old tokens signed
	// with a single process-wide secret. Migration-only; leave empty on new
	// installs. Deprecated in favour of per-device secrets.
	LegacySharedSecret string `yaml:"legacy_shared_secret"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern REDQUILL_SECTION_KEY, for example
// REDQUILL_DATABASE_PATH or REDQUILL_SERVER_PORT.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/redquill.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Auth: AuthConfig{
			TokenTTLDays:      7,
			DefaultDeviceName: "Web Browser",
			DefaultDeviceType: "web",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies REDQUILL_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REDQUILL_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REDQUILL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REDQUILL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	// Secrets belong in the environment, never in the config file
	if v := os.Getenv("REDQUILL_LEGACY_SHARED_SECRET"); v != "" {
		cfg.Auth.LegacySharedSecret = v
	}
}

// minLegacySecretLength guards against trivially brute-forceable shared
// secrets during migration. Per-device secrets are generated server-side and
// are always 256-bit, so no equivalent check is needed for them.
const minLegacySecretLength = 32

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if c.Auth.TokenTTLDays < 1 {
		errs = append(errs, "auth.token_ttl_days must be at least 1")
	}

	if s := c.Auth.LegacySharedSecret; s != "" && len(s) < minLegacySecretLength {
		errs = append(errs, "auth.legacy_shared_secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetTokenTTL returns the session token lifetime as a Duration.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLDays) * 24 * time.Hour
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}
