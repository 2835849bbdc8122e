package api

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAPIErrorMessage(t *testing.T) {
	err := NewInvalidRequestError("base_molecule", "base_molecule is required")

	msg := err.Error()
	if !strings.Contains(msg, "invalid_request") {
		t.Errorf("message %q missing error type", msg)
	}
	if !strings.Contains(msg, "base_molecule") {
		t.Errorf("message %q missing param", msg)
	}
}

func TestAPIErrorAsError(t *testing.T) {
	var err error = NewBackendFailureError("backend server error (status 502)")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("APIError should unwrap via errors.As")
	}
	if apiErr.Type != ErrorTypeBackendFailure {
		t.Errorf("type = %q, want %q", apiErr.Type, ErrorTypeBackendFailure)
	}
}

func TestMalformedOutputCodes(t *testing.T) {
	empty := NewMalformedOutputError(CodeEmptyResponse, "no content returned")
	badJSON := NewMalformedOutputError(CodeInvalidJSON, "unexpected token")

	if empty.Type != badJSON.Type {
		t.Error("both malformed-output cases should share one error type")
	}
	if empty.Code == badJSON.Code {
		t.Error("empty and invalid-JSON cases must be distinguishable by code")
	}
}

func TestErrorResponseSerialization(t *testing.T) {
	body, err := json.Marshal(ErrorResponse{Error: NewSchemaViolationError("summary", "missing required field 'summary'")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Error struct {
			Type    string `json:"type"`
			Param   string `json:"param"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Error.Type != "schema_violation" {
		t.Errorf("type = %q, want schema_violation", decoded.Error.Type)
	}
	if decoded.Error.Param != "summary" {
		t.Errorf("param = %q, want summary", decoded.Error.Param)
	}
}
