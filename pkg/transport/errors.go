package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/molmute/molmute/pkg/api"
)

// HTTPStatusFromError maps an error to the HTTP status code that should
// be reported to the client.
func HTTPStatusFromError(err error) int {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case api.ErrorTypeBackendFailure, api.ErrorTypeMalformedOutput,
		api.ErrorTypeSchemaViolation, api.ErrorTypeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes err as a JSON error body with an explicit
// status code. Non-API errors are wrapped as generic server errors so
// internal detail does not leak to clients.
func WriteErrorResponse(w http.ResponseWriter, err error, status int) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = api.NewServerError("internal server error")
	}
	writeErrorBody(w, apiErr, status)
}

// WriteAPIError writes an APIError as a JSON response body, deriving the
// status code from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	writeErrorBody(w, apiErr, HTTPStatusFromError(apiErr))
}

func writeErrorBody(w http.ResponseWriter, apiErr *api.APIError, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr}); encErr != nil {
		slog.Error("failed to encode error response", "error", encErr)
	}
}
