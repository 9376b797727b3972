package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" (default) or "postgres"
	DSN    string `yaml:"dsn"`    // SQLite file path or Postgres connection string
}

// HTTPConfig contains REST server settings.
type HTTPConfig struct {
	Address     string   `yaml:"address"`      // e.g. ":8080"
	CORSOrigins []string `yaml:"cors_origins"` // allowed browser origins
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string `yaml:"address"` // gRPC server listen address (e.g., ":50051"); empty disables gRPC
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"` // JWT signing secret
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminUsername string        `yaml:"admin_username"` // optional admin seeded at startup
	AdminPassword string        `yaml:"admin_password"`
}

// LogConfig selects the zap preset.
type LogConfig struct {
	Mode     string `yaml:"mode"` // "prod" or "dev"
	HashSalt string `yaml:"hash_salt"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"` // OTLP/HTTP endpoint; empty means stdout
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	Environment string  `yaml:"environment"`
}

// Load loads configuration from an optional YAML file (CONFIG_FILE) and
// environment variables, which take precedence. JWT_SECRET is required.
func Load() (*Config, error) {
	cfg, err := load("")
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load("dev-secret-change-me")
}

func load(defaultSecret string) (*Config, error) {
	cfg := defaults(defaultSecret)
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults(secret string) *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "app.db"},
		HTTP: HTTPConfig{
			Address:     ":8080",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		GRPC:    GRPCConfig{Address: ":50051"},
		Auth:    AuthConfig{JWTSecret: secret, TokenTTL: 24 * time.Hour},
		Log:     LogConfig{Mode: "dev"},
		Tracing: TracingConfig{ServiceName: "shop-backend", SampleRatio: 0.1},
	}
}

// mergeFile overlays values present in the YAML file onto cfg.
func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_PATH", c.Database.DSN)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.HTTP.Address = getEnv("HTTP_ADDRESS", c.HTTP.Address)
	if v := getEnv("CORS_ORIGINS", ""); v != "" {
		c.HTTP.CORSOrigins = splitList(v)
	}
	c.GRPC.Address = getEnv("GRPC_ADDRESS", c.GRPC.Address)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	ttl, err := getEnvDuration("JWT_TTL", c.Auth.TokenTTL)
	if err != nil {
		return err
	}
	c.Auth.TokenTTL = ttl
	c.Auth.AdminUsername = getEnv("ADMIN_USERNAME", c.Auth.AdminUsername)
	c.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", c.Auth.AdminPassword)
	c.Log.Mode = getEnv("LOG_MODE", c.Log.Mode)
	c.Log.HashSalt = getEnv("LOG_HASH_SALT", c.Log.HashSalt)
	enabled, err := getEnvBool("OTEL_ENABLED", c.Tracing.Enabled)
	if err != nil {
		return err
	}
	c.Tracing.Enabled = enabled
	c.Tracing.ServiceName = getEnv("SERVICE_NAME", c.Tracing.ServiceName)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
	insecure, err := getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", c.Tracing.Insecure)
	if err != nil {
		return err
	}
	c.Tracing.Insecure = insecure
	ratio, err := getEnvFloat("OTEL_SAMPLER_RATIO", c.Tracing.SampleRatio)
	if err != nil {
		return err
	}
	c.Tracing.SampleRatio = ratio
	c.Tracing.Environment = getEnv("ENVIRONMENT", c.Tracing.Environment)
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("HTTP_ADDRESS must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if (c.Auth.AdminUsername == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLER_RATIO must be within [0,1]")
	}
	return nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("15m") or plain seconds ("900").
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean for %s: %q", key, value)
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number for %s: %w", key, err)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	dsn := c.Database.DSN
	if strings.Contains(dsn, "@") || strings.Contains(dsn, "password=") {
		dsn = "*** (masked) ***"
	}
	return fmt.Sprintf("Config{DB: %s %s, HTTP: %s, gRPC: %s, Auth: *** (masked) ***}",
		c.Database.Driver, dsn, c.HTTP.Address, c.GRPC.Address)
}
