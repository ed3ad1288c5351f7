package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultInvalidationChannel is the Redis channel carrying mapping cache invalidations.
const DefaultInvalidationChannel = "unify:mapping-invalidations"

// Config holds all configuration for ekaya-unify.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr        string        `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port            string        `yaml:"port" env:"PORT" env-default:"3480"`
	Env             string        `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
	Version         string        `yaml:"-"` // Set at load time, not from config

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Mapping  MappingConfig  `yaml:"mapping"`
}

// AuthConfig controls bearer-token checks on the account routes. With no
// endpoints and verification not skipped, the routes are unauthenticated.
type AuthConfig struct {
	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// SkipVerification parses tokens without checking signatures. Local development only.
	SkipVerification bool `yaml:"skip_verification" env:"AUTH_SKIP_VERIFICATION"`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_unify"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis configuration. Redis is optional: with an empty
// host the mapping cache is invalidated locally only.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// MappingConfig controls how field mappings are loaded and cached.
// Boolean flags must default to false: cleanenv applies env-default to zero values.
type MappingConfig struct {
	// SkipSeed disables writing the embedded root mapping into an empty store.
	SkipSeed bool `yaml:"skip_seed" env:"MAPPING_SKIP_SEED"`
	// DisableCache bypasses the resolved-mapping cache.
	DisableCache bool `yaml:"disable_cache" env:"MAPPING_DISABLE_CACHE"`
	// InvalidationChannel is the Redis pub/sub channel for cache invalidations.
	InvalidationChannel string `yaml:"invalidation_channel" env:"MAPPING_INVALIDATION_CHANNEL" env-default:"unify:mapping-invalidations"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Environment variables override YAML values. Secrets (PGPASSWORD,
// REDIS_PASSWORD) must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit config path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.applyDockerHosts(IsRunningInDocker())
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port %q is not a number", c.Port)
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.max_connections must be positive")
	}
	if c.Redis.Enabled() && c.Mapping.InvalidationChannel == "" {
		return fmt.Errorf("mapping.invalidation_channel is required when redis is configured")
	}
	if c.Auth.SkipVerification && c.Env == "production" {
		return fmt.Errorf("auth.skip_verification is not allowed in production")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}

func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		issuer, jwksURL, ok := strings.Cut(pair, "=")
		if ok {
			endpoints[strings.TrimSpace(issuer)] = strings.TrimSpace(jwksURL)
		}
	}
	return endpoints
}

// Enabled reports whether account routes require a bearer token.
func (c *AuthConfig) Enabled() bool {
	return len(c.JWKSEndpoints) > 0 || c.SkipVerification
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Enabled reports whether Redis is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
