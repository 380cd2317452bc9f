package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/matthewbaird/parentref/internal/config"
	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/widget"
)

// FormHandler implements the build, refresh and submit routes.
type FormHandler struct {
	defs      *config.Config
	builder   *widget.Builder
	submitter *widget.Submitter
}

// NewFormHandler creates a new FormHandler.
func NewFormHandler(defs *config.Config, builder *widget.Builder, submitter *widget.Submitter) *FormHandler {
	return &FormHandler{defs: defs, builder: builder, submitter: submitter}
}

type formSummary struct {
	ID     string   `json:"id"`
	Fields []string `json:"fields"`
}

// ListForms returns the configured forms.
// GET /v1/forms
func (h *FormHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	out := make([]formSummary, 0, len(h.defs.Forms))
	for _, id := range h.defs.FormIDs() {
		s := formSummary{ID: id, Fields: []string{}}
		for _, f := range h.defs.Forms[id].Fields {
			s.Fields = append(s.Fields, f.Name)
		}
		out = append(out, s)
	}
	writeJSON(w, http.StatusOK, out)
}

type buildRequest struct {
	Values    url.Values          `json:"values"`
	Submitted map[string][]string `json:"submitted,omitempty"`
	Defaults  map[string][]string `json:"defaults,omitempty"`
}

// BuildForm renders a form's reference widgets.
// POST /v1/forms/{form_id}/builds
func (h *FormHandler) BuildForm(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
	}
	b, err := h.builder.Build(r.Context(), chi.URLParam(r, "form_id"), form.NewInput(req.Values, req.Submitted), req.Defaults)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

type refreshRequest struct {
	Values    url.Values          `json:"values"`
	Submitted map[string][]string `json:"submitted,omitempty"`
}

// RefreshBuild re-renders the parent-scoped fields after a parent change.
// POST /v1/builds/{build_id}/refresh
func (h *FormHandler) RefreshBuild(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	fields, err := h.builder.Refresh(r.Context(), chi.URLParam(r, "build_id"), form.NewInput(req.Values, req.Submitted))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if fields == nil {
		fields = []widget.RefreshedField{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

// SubmitBuild validates a posted form. A rejected submission is answered
// with 422 and the full result so every field's errors are shown together.
// POST /v1/builds/{build_id}/submit
func (h *FormHandler) SubmitBuild(w http.ResponseWriter, r *http.Request) {
	audit, ok := parseAuditContext(w, r)
	if !ok {
		return
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	res, err := h.submitter.Submit(r.Context(), widget.Submission{
		BuildID:   chi.URLParam(r, "build_id"),
		Values:    req.Values,
		Submitted: req.Submitted,
		Creator:   audit.Actor,
		Source:    audit.Source,
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if !res.Accepted() {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
