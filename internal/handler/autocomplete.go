package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/matthewbaird/parentref/internal/widget"
)

// AutocompleteHandler serves the parent-scoped lookup route.
type AutocompleteHandler struct {
	ac *widget.Autocompleter
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(ac *widget.Autocompleter) *AutocompleteHandler {
	return &AutocompleteHandler{ac: ac}
}

// HandleAutocomplete returns the suggestions for ?q= as a JSON array.
// GET /entity_autocomplete_by_parent/{target_type}/{handler}/{token}[/{parent}]
func (h *AutocompleteHandler) HandleAutocomplete(w http.ResponseWriter, r *http.Request) {
	parent := chi.URLParam(r, "parent")
	if r.URL.RawPath != "" {
		// chi routes on the raw path when one is set, leaving params escaped.
		if p, err := url.PathUnescape(parent); err == nil {
			parent = p
		}
	}
	req := widget.LookupRequest{
		TargetType: chi.URLParam(r, "target_type"),
		Handler:    chi.URLParam(r, "handler"),
		Token:      chi.URLParam(r, "token"),
		Parents:    parent,
		Query:      r.URL.Query().Get("q"),
	}
	matches, err := h.ac.Lookup(r.Context(), req)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}
