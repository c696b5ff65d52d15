package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeNoData             = "NO_DATA"
	CodeUnknownMetric      = "UNKNOWN_METRIC"
	CodeUnknownCountry     = "UNKNOWN_COUNTRY"
	CodeInvalidPeriod      = "INVALID_PERIOD"
	CodeInvalidBins        = "INVALID_BINS"
	CodeOperationNotFound  = "OPERATION_NOT_FOUND"
	CodeOperationRunning   = "OPERATION_RUNNING"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeOperationFailed    = "OPERATION_FAILED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")

	// 404 Not Found
	ErrNotFound          = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrNoData            = New(http.StatusNotFound, CodeNoData, "No cleaned data available; run the clean command first")
	ErrOperationNotFound = New(http.StatusNotFound, CodeOperationNotFound, "Operation not found")

	// 409 Conflict
	ErrOperationRunning = New(http.StatusConflict, CodeOperationRunning, "An operation is already running")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")

	// 500 Internal Server Error
	ErrInternalServer  = New(http.StatusInternalServerError, CodeInternal, "Internal server error")
	ErrOperationFailed = New(http.StatusInternalServerError, CodeOperationFailed, "Operation execution failed")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation creates a validation error for one field
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", []ValidationError{{
		Field:   field,
		Message: message,
	}})
}

// NewValidationErrors creates a validation error for several fields
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", errs)
}

// BadQuery creates a 400 error for a rejected query value
func BadQuery(code, param string, err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, code, err.Error(), []ValidationError{{
		Field:   param,
		Message: err.Error(),
	}})
}

// ErrOperationExecution reports a failed run; result is the final run state
func ErrOperationExecution(err error, result interface{}) *APIError {
	return NewWithDetails(http.StatusInternalServerError, CodeOperationFailed, err.Error(), result)
}
