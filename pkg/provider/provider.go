// Package provider defines the generation backend contract. A Provider
// issues exactly one structured-generation call per mutation request,
// attaching the analysis schema as a strict output constraint, and returns
// the backend's raw textual payload. The payload is guaranteed
// schema-conformant by contract with the backend, not by runtime
// enforcement here; classification of bad payloads is the parser's job.
package provider

import (
	"context"
	"encoding/json"

	"github.com/molmute/molmute/pkg/api"
)

// Instructions is the fixed system prompt sent with every generation call.
// The request payload and schema are passed through verbatim; no per-request
// prompt shaping happens in this module.
const Instructions = "You are a chemistry tutor analyzing molecular mutations. " +
	"Given a base molecule and a described structural change, explain how the " +
	"mutation affects reactivity, acidity/basicity, sterics, electronics, and " +
	"reaction mechanisms. Respond with a single JSON object conforming exactly " +
	"to the provided schema. Do not include any text outside the JSON object."

// Provider issues structured-generation calls against a backend.
type Provider interface {
	// Name returns the provider identifier for logging and metrics.
	Name() string

	// Generate performs one synchronous generation call carrying the fixed
	// instructions, the serialized request, and the schema as a strict
	// output constraint. It returns the backend's raw text. No retries are
	// performed; transport, auth, and rate-limit failures surface as
	// *api.APIError with the backend's diagnostic message preserved.
	Generate(ctx context.Context, req *api.MutationRequest, schema json.RawMessage) (string, error)

	// Close releases provider resources.
	Close() error
}

// UserPayload serializes a MutationRequest into the user-message body sent
// to the generation backend.
func UserPayload(req *api.MutationRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
