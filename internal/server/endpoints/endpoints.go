// Package endpoints defines the HTTP API surface. Each endpoint pairs a
// route with a CLI command that calls it.
package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/papertrail/papertrail/internal/anthropic"
	"github.com/papertrail/papertrail/internal/api"
	"github.com/papertrail/papertrail/internal/service"
)

// Config carries endpoint construction settings.
type Config struct {
	// MaxFileBytes caps multipart uploads.
	MaxFileBytes int64
}

// All returns every endpoint in registration order.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&ValidateKeyEndpoint{},
		&UploadPaperEndpoint{MaxFileBytes: cfg.MaxFileBytes},
		&StreamClaimEndpoint{},
		&VerifyClaimEndpoint{MaxFileBytes: cfg.MaxFileBytes},
		&SuggestCitationsEndpoint{},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusForError maps service failures onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, anthropic.ErrInvalidKey):
		return http.StatusUnauthorized
	case errors.Is(err, anthropic.ErrUpstream), errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
