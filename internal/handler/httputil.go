package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/matcher"
	"github.com/matthewbaird/parentref/internal/types"
	"github.com/matthewbaird/parentref/internal/widget"
)

// AuditInfo holds audit metadata extracted from request headers.
type AuditInfo struct {
	Actor         string
	Source        string
	CorrelationID string
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error  string                 `json:"error"`
	Code   string                 `json:"code"`
	Errors types.ValidationErrors `json:"errors,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseLimit reads a positive "limit" query parameter capped at max.
func parseLimit(r *http.Request, def, max int) int {
	n := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			n = p
		}
	}
	if n > max {
		n = max
	}
	return n
}

// errorToHTTP maps pipeline errors to HTTP responses.
func errorToHTTP(w http.ResponseWriter, err error) {
	var verrs types.ValidationErrors
	var cerr *types.ConfigError
	switch {
	case errors.Is(err, types.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "ACCESS_DENIED", "access denied")
	case errors.Is(err, form.ErrContextExpired):
		writeError(w, http.StatusNotFound, "BUILD_EXPIRED", err.Error())
	case errors.Is(err, widget.ErrUnknownForm):
		writeError(w, http.StatusNotFound, "UNKNOWN_FORM", err.Error())
	case errors.Is(err, matcher.ErrPathMismatch):
		writeError(w, http.StatusBadRequest, "PATH_MISMATCH", err.Error())
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Code: "VALIDATION_ERROR", Errors: verrs})
	case errors.As(err, &cerr):
		log.Printf("configuration error: %v", err)
		writeError(w, http.StatusInternalServerError, "CONFIG_ERROR", cerr.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// parseAuditContext extracts audit metadata from request headers. X-Actor is
// optional here since lookups and form builds are anonymous; the source
// defaults to "user" and must be one of the recorded sources.
func parseAuditContext(w http.ResponseWriter, r *http.Request) (AuditInfo, bool) {
	info := AuditInfo{
		Actor:  r.Header.Get("X-Actor"),
		Source: r.Header.Get("X-Source"),
	}
	switch info.Source {
	case "":
		info.Source = types.SourceUser
	case types.SourceUser, types.SourceAgent, types.SourceImport, types.SourceSystem:
	default:
		writeError(w, http.StatusBadRequest, "INVALID_SOURCE", "unknown X-Source: "+info.Source)
		return AuditInfo{}, false
	}
	info.CorrelationID = r.Header.Get("X-Correlation-ID")
	if info.CorrelationID == "" {
		info.CorrelationID = uuid.NewString()
	}
	return info, true
}
