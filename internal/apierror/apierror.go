// Package apierror provides the error response envelope for the API.
// All errors returned to clients go through this package to ensure
// consistency and to prevent leaking internal details (stack traces, SQL
// errors, etc.). The error taxonomy itself lives in internal/apperr.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}
