package handler

import (
	"net/http"
	"time"

	"github.com/matthewbaird/parentref/internal/event"
)

// EventHandler exposes the recent domain events.
type EventHandler struct {
	log *event.Log
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(log *event.Log) *EventHandler {
	return &EventHandler{log: log}
}

type eventView struct {
	ID         string            `json:"id"`
	EventType  string            `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Summary    string            `json:"summary"`
	Entities   []event.EntityRef `json:"entities"`
	Payload    any               `json:"payload,omitempty"`
}

// ListEvents returns recent events, newest first.
// GET /v1/events?type=&limit=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events := h.log.Recent(r.URL.Query().Get("type"), parseLimit(r, 50, 500))
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{
			ID:         e.ID,
			EventType:  e.EventType,
			OccurredAt: e.OccurredAt,
			Summary:    e.Summary,
			Entities:   e.AffectedEntities,
			Payload:    e.Payload,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
