// Package apierr implements the structured API error shape used across the
// §6 REST surface, adapted from internal/api/errors.go's APIError with the
// domain machine-code catalog (DB_*, TRANS_*, CFG_*, PROVIDER_*) per §6's
// taxonomy: "{error, code, timestamp, request_id, context?, troubleshooting?}".
package apierr

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sublarr/subctl/internal/api/middleware"
	"github.com/sublarr/subctl/internal/log"
)

// APIError is the structured error response body (§6).
type APIError struct {
	Message         string `json:"error"`
	Code            string `json:"code"`
	Timestamp       string `json:"timestamp"`
	RequestID       string `json:"request_id"`
	Context         any    `json:"context,omitempty"`
	Troubleshooting string `json:"troubleshooting,omitempty"`

	status int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string { return e.Message }

// Catalog entries. Each carries the HTTP status for its class (§6: "Errors
// carry machine codes ... and HTTP status per class").
var (
	ErrDBUnavailable = &APIError{Code: "DB_UNAVAILABLE", Message: "the persistence layer is unreachable", status: http.StatusServiceUnavailable}
	ErrDBConstraint  = &APIError{Code: "DB_CONSTRAINT_VIOLATION", Message: "the write violated a database constraint", status: http.StatusConflict}
	ErrDBIntegrity   = &APIError{Code: "DB_INTEGRITY", Message: "a stored record failed an integrity check", status: http.StatusInternalServerError}

	ErrTransUnavailable  = &APIError{Code: "TRANS_BACKEND_UNAVAILABLE", Message: "the translate backend is unreachable", status: http.StatusServiceUnavailable}
	ErrTransFailed       = &APIError{Code: "TRANS_FAILED", Message: "translation failed", status: http.StatusBadGateway}
	ErrTransUnsupported  = &APIError{Code: "TRANS_LANGUAGE_UNSUPPORTED", Message: "the requested language pair is not supported", status: http.StatusUnprocessableEntity}

	ErrCfgInvalid  = &APIError{Code: "CFG_INVALID", Message: "configuration failed validation", status: http.StatusBadRequest}
	ErrCfgMissing  = &APIError{Code: "CFG_MISSING_REQUIRED", Message: "a required setting is missing", status: http.StatusBadRequest}

	ErrProviderNotFound  = &APIError{Code: "PROVIDER_NOT_FOUND", Message: "unknown provider name", status: http.StatusNotFound}
	ErrProviderNoResult  = &APIError{Code: "PROVIDER_NO_RESULT", Message: "no provider returned a usable candidate", status: http.StatusNotFound}
	ErrProviderRateLimit = &APIError{Code: "PROVIDER_RATE_LIMITED", Message: "the provider's rate limit is currently exhausted", status: http.StatusTooManyRequests}
	ErrProviderCircuitOpen = &APIError{Code: "PROVIDER_CIRCUIT_OPEN", Message: "the provider's circuit breaker is open", status: http.StatusServiceUnavailable}

	ErrNotFound        = &APIError{Code: "NOT_FOUND", Message: "resource not found", status: http.StatusNotFound}
	ErrInvalidInput    = &APIError{Code: "INVALID_INPUT", Message: "invalid input parameters", status: http.StatusBadRequest}
	ErrUnauthorized    = &APIError{Code: "UNAUTHORIZED", Message: "authentication required", status: http.StatusUnauthorized}
	ErrInternal        = &APIError{Code: "INTERNAL_ERROR", Message: "an internal error occurred", status: http.StatusInternalServerError}
	ErrInvalidState    = &APIError{Code: "INVALID_STATE", Message: "the resource's current state does not allow this operation", status: http.StatusConflict}
)

// Respond writes a structured error response, filling timestamp and request
// id from r's context.
func Respond(w http.ResponseWriter, r *http.Request, apiErr *APIError, context ...any) {
	resp := &APIError{
		Message:   apiErr.Message,
		Code:      apiErr.Code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	if len(context) > 0 {
		resp.Context = context[0]
	}
	if traceID, _ := middleware.ExtractTraceContext(r); traceID != "" {
		resp.Troubleshooting = "trace_id=" + traceID
	}

	status := apiErr.status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, resp.Message, status)
	}
}

// Status returns apiErr's HTTP status, for callers that need it outside of
// Respond (e.g. translating a client library's error into a test assertion).
func Status(apiErr *APIError) int {
	if apiErr.status == 0 {
		return http.StatusInternalServerError
	}
	return apiErr.status
}
