package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"equilo/internal/auth"
	"equilo/internal/core"
	applog "equilo/internal/log"
	"equilo/internal/service"
	"equilo/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// respondError maps domain errors onto the HTTP taxonomy: validation to
// 422, unknown ids to 404, uniqueness violations to 409, auth failures
// to 401/403. Anything unrecognized is a 500 with a generic body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errMalformedBody):
		writeError(w, http.StatusBadRequest, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrConflict), errors.Is(err, service.ErrInviteClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(
			r.Context(), "Request failed", err, applog.ComponentHTTP, strings.ToLower(r.Method),
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptySplits),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword):
		return true
	}
	// Length-limit errors from core Validate methods.
	return strings.Contains(err.Error(), "too long")
}
