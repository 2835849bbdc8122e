package api

import (
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxFieldLength int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxFieldLength: 4096,
	}
}

// ValidateRequest checks a MutationRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request
// is valid. A failing request must never reach a backend.
func ValidateRequest(req *MutationRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.BaseMolecule) == "" {
		return NewInvalidRequestError("base_molecule", "base_molecule is required")
	}

	if strings.TrimSpace(req.Mutation) == "" {
		return NewInvalidRequestError("mutation", "mutation is required")
	}

	if cfg.MaxFieldLength > 0 {
		if len(req.BaseMolecule) > cfg.MaxFieldLength {
			return NewInvalidRequestError("base_molecule",
				fmt.Sprintf("base_molecule exceeds maximum of %d bytes", cfg.MaxFieldLength))
		}
		if len(req.Mutation) > cfg.MaxFieldLength {
			return NewInvalidRequestError("mutation",
				fmt.Sprintf("mutation exceeds maximum of %d bytes", cfg.MaxFieldLength))
		}
		if len(req.Question) > cfg.MaxFieldLength {
			return NewInvalidRequestError("question",
				fmt.Sprintf("question exceeds maximum of %d bytes", cfg.MaxFieldLength))
		}
	}

	return nil
}
