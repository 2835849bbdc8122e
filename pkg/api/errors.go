package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeBackendFailure  ErrorType = "backend_failure"
	ErrorTypeMalformedOutput ErrorType = "malformed_output"
	ErrorTypeSchemaViolation ErrorType = "schema_violation"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
)

// Error codes distinguishing sub-cases within an error type.
const (
	// CodeEmptyResponse marks a generation backend that returned no content,
	// as opposed to content that failed to deserialize.
	CodeEmptyResponse = "empty_response"

	// CodeInvalidJSON marks a generation payload that was present but not
	// valid JSON.
	CodeInvalidJSON = "invalid_json"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level
// error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
// The request never reached a backend.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewBackendFailureError creates an APIError for generation backend
// transport, auth, or rate-limit failures. The backend's diagnostic
// message is preserved verbatim.
func NewBackendFailureError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeBackendFailure,
		Message: message,
	}
}

// NewMalformedOutputError creates an APIError for empty or non-JSON
// generation responses. The code distinguishes the two cases.
func NewMalformedOutputError(code, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeMalformedOutput,
		Code:    code,
		Message: message,
	}
}

// NewSchemaViolationError creates an APIError for a generation response
// that deserialized cleanly but does not conform to the analysis schema.
func NewSchemaViolationError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeSchemaViolation,
		Param:   param,
		Message: message,
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
	}
}
