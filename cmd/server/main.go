// Command server runs the molmute mutation analysis service.
//
// Configuration is loaded from a YAML file (MOLMUTE_CONFIG, ./config.yaml,
// or /etc/molmute/config.yaml) with MOLMUTE_* environment overrides:
//
//	MOLMUTE_BACKEND_URL     - generation backend URL (required)
//	MOLMUTE_MODEL           - model name (required)
//	MOLMUTE_SCHEMA_VARIANT  - "basic" or "extended" (default: "basic")
//	MOLMUTE_VALIDATOR_URL   - structure validator URL (empty disables validation)
//	MOLMUTE_PORT            - listen port (default: 8080)
//	MOLMUTE_STORAGE         - storage type: "none", "memory", or "postgres" (default: "none")
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/molmute/molmute/pkg/auth"
	"github.com/molmute/molmute/pkg/auth/apikey"
	"github.com/molmute/molmute/pkg/auth/jwt"
	"github.com/molmute/molmute/pkg/auth/noop"
	"github.com/molmute/molmute/pkg/config"
	"github.com/molmute/molmute/pkg/debug"
	"github.com/molmute/molmute/pkg/engine"
	"github.com/molmute/molmute/pkg/observability"
	"github.com/molmute/molmute/pkg/provider/openaicompat"
	"github.com/molmute/molmute/pkg/schema"
	"github.com/molmute/molmute/pkg/storage/memory"
	"github.com/molmute/molmute/pkg/storage/postgres"
	"github.com/molmute/molmute/pkg/transport"
	transporthttp "github.com/molmute/molmute/pkg/transport/http"
	"github.com/molmute/molmute/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	debug.Init("", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Generation client.
	prov, err := openaicompat.New(openaicompat.Config{
		BaseURL: cfg.Generation.BackendURL,
		APIKey:  cfg.Generation.APIKey,
		Model:   cfg.Generation.Model,
		Timeout: cfg.Generation.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating generation client: %w", err)
	}
	defer prov.Close()

	// Optional structure validator.
	var vc validator.Client
	if cfg.Validator.BaseURL != "" {
		vc, err = validator.New(validator.Config{
			BaseURL: cfg.Validator.BaseURL,
			Timeout: cfg.Validator.Timeout,
		})
		if err != nil {
			return fmt.Errorf("creating validator client: %w", err)
		}
		slog.Info("structure validation enabled", "url", cfg.Validator.BaseURL)
	}

	// Optional store.
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	// Engine.
	eng, err := engine.New(prov, vc, store, engine.Config{
		Variant: schema.Variant(cfg.Schema.Variant),
		Model:   cfg.Generation.Model,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithLogger(slog.Default()),
		transporthttp.WithRoute("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok\n"))
		})),
		transporthttp.WithRoute("GET /readyz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store != nil {
				if err := store.HealthCheck(r.Context()); err != nil {
					http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
					return
				}
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok\n"))
		})),
		transporthttp.WithOuterMiddleware(func(next http.Handler) http.Handler {
			return buildHTTPMiddleware(cfg, next)
		}),
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transporthttp.WithRoute("GET "+cfg.Observability.Metrics.Path, promhttp.Handler()))
	}

	srv := transporthttp.NewServer(eng, store, opts...)

	slog.Info("server starting",
		"port", cfg.Server.Port,
		"backend", cfg.Generation.BackendURL,
		"model", cfg.Generation.Model,
		"variant", cfg.Schema.Variant,
		"storage", cfg.Storage.Type,
	)
	return srv.ListenAndServe()
}

// buildStore creates the configured analysis store, or nil for type "none".
func buildStore(ctx context.Context, cfg *config.Config) (transport.AnalysisStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.Storage.MaxSize)
		return memory.New(cfg.Storage.MaxSize), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		slog.Info("storage enabled", "type", "postgres")
		return store, nil
	default:
		slog.Info("storage disabled")
		return nil, nil
	}
}

// buildHTTPMiddleware layers auth, metrics, and CORS around the mux.
func buildHTTPMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	handler := next

	var limiter auth.RateLimiter
	if cfg.Auth.RateLimit.Enabled {
		limiter = auth.NewInProcessLimiter(nil, cfg.Auth.RateLimit.RequestsPerMinute)
	}
	handler = auth.Middleware(buildAuthChain(cfg), limiter, auth.DefaultBypassEndpoints)(handler)

	if cfg.Observability.Metrics.Enabled {
		handler = observability.MetricsMiddleware(handler)
	}

	if len(cfg.Server.AllowedOrigins) > 0 {
		handler = transporthttp.CORSMiddleware(cfg.Server.AllowedOrigins)(handler)
	}

	return handler
}

// buildAuthChain constructs the authenticator chain. With auth disabled the
// noop authenticator still runs so every request carries an identity.
func buildAuthChain(cfg *config.Config) *auth.Chain {
	switch cfg.Auth.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject:     k.Subject,
					ServiceTier: k.ServiceTier,
					Metadata:    map[string]string{"tenant_id": k.TenantID},
				},
			})
		}
		return &auth.Chain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.Deny,
		}
	case "jwt":
		return &auth.Chain{
			Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
				JWKSURL:  cfg.Auth.JWT.JWKSURL,
				Issuer:   cfg.Auth.JWT.Issuer,
				Audience: cfg.Auth.JWT.Audience,
			})},
			DefaultDecision: auth.Deny,
		}
	default:
		return &auth.Chain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Allow,
		}
	}
}
