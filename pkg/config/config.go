// Package config provides unified configuration for the molmute service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (MOLMUTE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the molmute service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Generation    GenerationConfig    `yaml:"generation"`
	Validator     ValidatorConfig     `yaml:"validator"`
	Schema        SchemaConfig        `yaml:"schema"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`            // default: 8080
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // default: 30s
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // default: 180s
	MaxBodySize    int64         `yaml:"max_body_size"`   // default: 1 MB
	AllowedOrigins []string      `yaml:"allowed_origins"` // CORS; empty disables CORS headers
}

// GenerationConfig holds generation backend settings.
type GenerationConfig struct {
	BackendURL string        `yaml:"backend_url"`  // required
	APIKey     string        `yaml:"api_key"`      // optional
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Model      string        `yaml:"model"`        // required
	Timeout    time.Duration `yaml:"timeout"`      // default: 120s
}

// ValidatorConfig holds structure validator settings. An empty base URL
// disables structure validation entirely.
type ValidatorConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"` // default: 30s
}

// SchemaConfig selects the analysis schema variant.
type SchemaConfig struct {
	Variant string `yaml:"variant"` // "basic" or "extended", default: "basic"
}

// StorageConfig holds analysis persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory", or "postgres", default: "none"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`     // "none", "apikey", or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // API key entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject     string `yaml:"subject" json:"subject"`
	TenantID    string `yaml:"tenant_id" json:"tenant_id"`
	ServiceTier string `yaml:"service_tier" json:"service_tier"`
}

// JWTConfig holds JWT validation settings for type=jwt.
type JWTConfig struct {
	JWKSURL  string `yaml:"jwks_url"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// RateLimitConfig holds in-process rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"` // default: 60
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 180 * time.Second,
			MaxBodySize:  1 << 20,
		},
		Generation: GenerationConfig{
			Timeout: 120 * time.Second,
		},
		Validator: ValidatorConfig{
			Timeout: 30 * time.Second,
		},
		Schema: SchemaConfig{
			Variant: "basic",
		},
		Storage: StorageConfig{
			Type:    "none",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
