package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// minimal env for a loadable config; tests layer on top of this.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MOLMUTE_BACKEND_URL", "http://localhost:8000")
	t.Setenv("MOLMUTE_MODEL", "test-model")
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodySize != 1<<20 {
		t.Errorf("max_body_size = %d", cfg.Server.MaxBodySize)
	}
	if cfg.Generation.Timeout != 120*time.Second {
		t.Errorf("generation timeout = %v", cfg.Generation.Timeout)
	}
	if cfg.Schema.Variant != "basic" {
		t.Errorf("variant = %q", cfg.Schema.Variant)
	}
	if cfg.Storage.Type != "none" {
		t.Errorf("storage type = %q", cfg.Storage.Type)
	}
	if cfg.Auth.Type != "none" {
		t.Errorf("auth type = %q", cfg.Auth.Type)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("metrics = %+v", cfg.Observability.Metrics)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
generation:
  backend_url: http://backend:8000
  model: file-model
  timeout: 60s
validator:
  base_url: http://validator:8010
schema:
  variant: extended
storage:
  type: memory
  max_size: 500
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Generation.BackendURL != "http://backend:8000" {
		t.Errorf("backend_url = %q", cfg.Generation.BackendURL)
	}
	if cfg.Generation.Timeout != 60*time.Second {
		t.Errorf("timeout = %v", cfg.Generation.Timeout)
	}
	if cfg.Validator.BaseURL != "http://validator:8010" {
		t.Errorf("validator url = %q", cfg.Validator.BaseURL)
	}
	if cfg.Schema.Variant != "extended" {
		t.Errorf("variant = %q", cfg.Schema.Variant)
	}
	if cfg.Storage.Type != "memory" || cfg.Storage.MaxSize != 500 {
		t.Errorf("storage = %+v", cfg.Storage)
	}

	// Unset file fields keep their defaults.
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("read_timeout = %v, want default", cfg.Server.ReadTimeout)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
generation:
  backend_url: http://from-file:8000
  model: file-model
`)

	t.Setenv("MOLMUTE_BACKEND_URL", "http://from-env:8000")
	t.Setenv("MOLMUTE_PORT", "7070")
	t.Setenv("MOLMUTE_SCHEMA_VARIANT", "extended")
	t.Setenv("MOLMUTE_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Generation.BackendURL != "http://from-env:8000" {
		t.Errorf("backend_url = %q, env should win over file", cfg.Generation.BackendURL)
	}
	if cfg.Generation.Model != "file-model" {
		t.Errorf("model = %q, file value should survive", cfg.Generation.Model)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Schema.Variant != "extended" {
		t.Errorf("variant = %q", cfg.Schema.Variant)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("allowed_origins = %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("explicit missing config file should fail")
	}
}

func TestFileReferences(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "api_key")
	if err := os.WriteFile(keyFile, []byte("  secret-from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	dsnFile := filepath.Join(dir, "dsn")
	if err := os.WriteFile(dsnFile, []byte("postgres://u:p@db/molmute\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	path := writeConfigFile(t, `
generation:
  backend_url: http://backend:8000
  model: m
  api_key_file: `+keyFile+`
storage:
  type: postgres
  postgres:
    dsn_file: `+dsnFile+`
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Generation.APIKey != "secret-from-file" {
		t.Errorf("api_key = %q, want trimmed file content", cfg.Generation.APIKey)
	}
	if cfg.Storage.Postgres.DSN != "postgres://u:p@db/molmute" {
		t.Errorf("dsn = %q", cfg.Storage.Postgres.DSN)
	}
}

func TestExplicitValueWinsOverFileReference(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "api_key")
	if err := os.WriteFile(keyFile, []byte("from-file"), 0o600); err != nil {
		t.Fatal(err)
	}

	path := writeConfigFile(t, `
generation:
  backend_url: http://backend:8000
  model: m
  api_key: direct-value
  api_key_file: `+keyFile+`
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.APIKey != "direct-value" {
		t.Errorf("api_key = %q, direct value should win", cfg.Generation.APIKey)
	}
}

func TestAPIKeysFromEnvJSON(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MOLMUTE_AUTH_TYPE", "apikey")
	t.Setenv("MOLMUTE_API_KEYS", `[{"key":"k1","subject":"svc-a","tenant_id":"t1","service_tier":"pro"}]`)

	path := writeConfigFile(t, `
generation:
  backend_url: http://backend:8000
  model: m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Auth.Type != "apikey" {
		t.Errorf("auth type = %q", cfg.Auth.Type)
	}
	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0].Subject != "svc-a" || cfg.Auth.APIKeys[0].TenantID != "t1" {
		t.Errorf("api_keys = %+v", cfg.Auth.APIKeys)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "missing backend url",
			mutate:  func(c *Config) { c.Generation.BackendURL = "" },
			wantSub: "generation.backend_url",
		},
		{
			name:    "missing model",
			mutate:  func(c *Config) { c.Generation.Model = "" },
			wantSub: "generation.model",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantSub: "server.port",
		},
		{
			name:    "bad variant",
			mutate:  func(c *Config) { c.Schema.Variant = "quantum" },
			wantSub: "schema.variant",
		},
		{
			name:    "bad storage type",
			mutate:  func(c *Config) { c.Storage.Type = "redis" },
			wantSub: "storage.type",
		},
		{
			name: "postgres without dsn",
			mutate: func(c *Config) {
				c.Storage.Type = "postgres"
				c.Storage.Postgres.DSN = ""
			},
			wantSub: "storage.postgres.dsn",
		},
		{
			name:    "apikey without keys",
			mutate:  func(c *Config) { c.Auth.Type = "apikey" },
			wantSub: "auth.api_keys",
		},
		{
			name:    "jwt without jwks url",
			mutate:  func(c *Config) { c.Auth.Type = "jwt" },
			wantSub: "auth.jwt.jwks_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Generation.BackendURL = "http://backend:8000"
			cfg.Generation.Model = "m"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q missing %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	cfg := Defaults()
	// backend_url and model both missing.
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "generation.backend_url") || !strings.Contains(msg, "generation.model") {
		t.Errorf("error %q should report every failure", msg)
	}
}
