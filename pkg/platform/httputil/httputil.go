// Package httputil centralizes JSON response writing and the mapping from
// domain error codes to HTTP statuses, so handlers never hand-roll either.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "kyra/pkg/domain-errors"
)

// WriteJSON writes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps a domain error onto an HTTP response. Internal errors omit
// the description so storage details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	response := errorResponse{Error: string(code)}
	if status < http.StatusInternalServerError {
		response.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, response)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidState, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Decode parses a JSON request body. On failure it writes the 400 response
// itself and reports false.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var payload T
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "request body rejected", "path", r.URL.Path, "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "request body is not valid JSON"))
		var zero T
		return zero, false
	}
	return payload, true
}
