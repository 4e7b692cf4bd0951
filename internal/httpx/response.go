// Package httpx writes the JSON responses of the API. Error responses carry
// a short stable code (the Code* constants for the shared ones) plus optional
// per-field details, so clients switch on the code rather than on prose.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Error codes shared across handlers. Domain-specific codes
// (entreprise_not_found, invalid_credentials, ...) stay local to their
// handler.
const (
	CodeInvalidJSON      = "invalid_json"
	CodeValidationFailed = "validation_failed"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeInternalError    = "internal_error"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes payload with the given status. A nil payload encodes as null.
// Encoding failures degrade to a plain 500 rather than a truncated body.
func JSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// JSONError writes an ErrorResponse with the given code and optional details.
func JSONError(w http.ResponseWriter, status int, code string, details any) {
	JSON(w, status, ErrorResponse{Error: code, Details: details})
}
