// Package validator wraps the external cheminformatics service that checks
// whether a proposed molecular identifier string is chemically well-formed.
//
// Structure validation is advisory: the client never fails outward. A
// transport failure, non-2xx status, or undecodable body degrades to a
// valid=false result so an unavailable validator cannot abort the request.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/molmute/molmute/pkg/api"
	"github.com/molmute/molmute/pkg/debug"
)

// ErrNoIdentifier is the error text returned when no candidate was supplied.
const ErrNoIdentifier = "No identifier provided"

// ErrServiceError is the error text returned when the validator backend
// could not be reached or answered unusably.
const ErrServiceError = "validator service error"

// Client checks candidate identifiers against a structure validator.
type Client interface {
	// ValidateIdentifier checks one candidate identifier. It never returns
	// an error: failures are folded into the StructureValidation result.
	ValidateIdentifier(ctx context.Context, candidate string) api.StructureValidation
}

// Config holds configuration for the HTTP validator client.
type Config struct {
	// BaseURL is the validator service URL (e.g. "http://localhost:8010").
	BaseURL string

	// Timeout for individual HTTP requests. Defaults to 30s.
	Timeout time.Duration
}

// HTTPClient is a Client backed by an RDKit-style validation service
// exposing POST /v1/validate.
type HTTPClient struct {
	cfg    Config
	client *http.Client
}

var _ Client = (*HTTPClient)(nil)

// New creates a validator client with the given configuration.
func New(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("validator: BaseURL is required")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// validateRequest is the request body for /v1/validate.
type validateRequest struct {
	Identifier string `json:"identifier"`
}

// ValidateIdentifier checks one candidate identifier against the backend.
// A blank candidate short-circuits without a network call.
func (c *HTTPClient) ValidateIdentifier(ctx context.Context, candidate string) api.StructureValidation {
	if strings.TrimSpace(candidate) == "" {
		return api.StructureValidation{Valid: false, Error: ErrNoIdentifier}
	}

	body, err := json.Marshal(validateRequest{Identifier: candidate})
	if err != nil {
		return api.StructureValidation{Valid: false, Error: ErrServiceError}
	}

	url := c.cfg.BaseURL + "/v1/validate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return api.StructureValidation{Valid: false, Error: ErrServiceError}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	debug.Log("validator", "validation request", "url", url, "candidate", debug.Truncate(candidate, 80))

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		debug.Log("validator", "validation transport failure", "error", err.Error())
		return api.StructureValidation{Valid: false, Error: ErrServiceError}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		debug.Log("validator", "validation backend error", "status", httpResp.StatusCode)
		return api.StructureValidation{Valid: false, Error: ErrServiceError}
	}

	var result api.StructureValidation
	if err := json.NewDecoder(httpResp.Body).Decode(&result); err != nil {
		return api.StructureValidation{Valid: false, Error: ErrServiceError}
	}

	return result
}
