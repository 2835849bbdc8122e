package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/molmute/molmute/pkg/api"
	"github.com/molmute/molmute/pkg/debug"
	"github.com/molmute/molmute/pkg/observability"
	"github.com/molmute/molmute/pkg/provider"
	"github.com/molmute/molmute/pkg/schema"
	"github.com/molmute/molmute/pkg/transport"
	"github.com/molmute/molmute/pkg/validator"
)

// Engine orchestrates mutation analysis between the transport layer, the
// generation backend, and the structure validator. It implements
// transport.Analyzer.
//
// Each request runs one fixed pipeline: validate input, call the
// generation backend exactly once, parse the structured output, then
// (extended variant only) validate the proposed identifier with at most
// one validator call, and assemble the terminal response.
type Engine struct {
	provider  provider.Provider
	validator validator.Client // nil when structure validation is not wired in
	store     transport.AnalysisStore
	cfg       Config

	schemaJSON json.RawMessage
	validation api.ValidationConfig
}

// Ensure Engine implements transport.Analyzer at compile time.
var _ transport.Analyzer = (*Engine)(nil)

// New creates a new Engine. The provider must not be nil. The validator
// and store can be nil; without a validator the extended variant skips
// structure validation, and without a store outcomes are not persisted.
func New(p provider.Provider, v validator.Client, store transport.AnalysisStore, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	if !cfg.Variant.Valid() {
		return nil, fmt.Errorf("engine: unknown schema variant %q", cfg.Variant)
	}

	schemaJSON, err := schema.MarshalSchema(cfg.Variant)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal analysis schema: %w", err)
	}

	return &Engine{
		provider:   p,
		validator:  v,
		store:      store,
		cfg:        cfg,
		schemaJSON: schemaJSON,
		validation: api.DefaultValidationConfig(),
	}, nil
}

// Analyze runs the full analysis pipeline for one request. A structurally
// invalid identifier yields a rejected response, not an error; errors are
// reserved for bad input and backend failures.
func (e *Engine) Analyze(ctx context.Context, req *api.MutationRequest) (*api.AnalysisResponse, error) {
	// Step 1: input validation. Invalid input never reaches a backend.
	if err := api.ValidateRequest(req, e.validation); err != nil {
		return nil, err
	}

	// Step 2: one generation call.
	raw, err := e.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	// Step 3: parse and re-validate against the schema variant.
	result, err := ParseAnalysis(raw, e.cfg.Variant)
	if err != nil {
		return nil, err
	}

	// Steps 4 and 5: structure validation and assembly.
	resp := e.reconcile(ctx, result)

	observability.AnalysesTotal.WithLabelValues(string(resp.Status), string(e.cfg.Variant)).Inc()

	if e.store != nil {
		if saveErr := e.store.SaveAnalysis(ctx, resp); saveErr != nil {
			// Persistence is best-effort; the caller still gets the outcome.
			slog.Warn("failed to persist analysis", "id", resp.ID, "error", saveErr)
		}
	}

	return resp, nil
}

func (e *Engine) generate(ctx context.Context, req *api.MutationRequest) (string, error) {
	start := time.Now()
	raw, err := e.provider.Generate(ctx, req, e.schemaJSON)

	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.GenerationRequestsTotal.WithLabelValues(e.provider.Name(), e.cfg.Model, status).Inc()
	observability.GenerationLatency.WithLabelValues(e.provider.Name(), e.cfg.Model).Observe(time.Since(start).Seconds())

	return raw, err
}

// reconcile decides the terminal shape of the response. In the basic
// variant, or when no validator is configured, the analysis is returned
// as-is. In the extended variant the proposed mutated identifier is
// checked, and a negative verdict turns the response into a rejection
// that still carries the proposed structures for diagnostics.
func (e *Engine) reconcile(ctx context.Context, result *api.AnalysisResult) *api.AnalysisResponse {
	resp := &api.AnalysisResponse{
		ID:        api.NewAnalysisID(),
		Object:    "analysis",
		Status:    api.AnalysisStatusCompleted,
		Model:     e.cfg.Model,
		CreatedAt: time.Now().Unix(),
		Analysis:  result,
	}

	if e.cfg.Variant != schema.VariantExtended || e.validator == nil {
		return resp
	}

	var candidate string
	if result.Structures != nil {
		candidate = result.Structures.MutatedIdentifierGuess
	}

	verdict := e.validator.ValidateIdentifier(ctx, candidate)
	observability.StructureValidationsTotal.WithLabelValues(validationOutcome(verdict)).Inc()
	debug.Log("engine", "structure validation verdict",
		"valid", verdict.Valid, "error", verdict.Error)

	if verdict.Valid {
		resp.CanonicalIdentifier = verdict.CanonicalIdentifier
		return resp
	}

	// Rejected: surface the proposed structures and the validator's error
	// at the top level, and strip structures from the analysis body so the
	// rejected guess is not presented as part of the trusted content.
	resp.Status = api.AnalysisStatusRejected
	resp.RDKitError = verdict.Error
	resp.Structures = result.Structures
	result.Structures = nil

	return resp
}

func validationOutcome(v api.StructureValidation) string {
	switch {
	case v.Valid:
		return "valid"
	case v.Error == validator.ErrServiceError:
		return "error"
	default:
		return "invalid"
	}
}
