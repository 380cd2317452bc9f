// Package event defines the domain events raised by the submit pipeline.
// Events are published after the writes they describe have committed.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeRecordsCreated     = "records_created"
	TypeSubmissionAccepted = "submission_accepted"
	TypeSubmissionRejected = "submission_rejected"
)

// EntityRef points at one record or form build an event touches.
type EntityRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "context"
}

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string
	EventType        string
	OccurredAt       time.Time
	AffectedEntities []EntityRef
	Summary          string
	Payload          json.RawMessage
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// RecordsCreatedPayload describes records autocreated for one field.
type RecordsCreatedPayload struct {
	BuildID    string   `json:"build_id"`
	FormID     string   `json:"form_id"`
	Field      string   `json:"field"`
	TargetType string   `json:"target_type"`
	IDs        []string `json:"ids"`
	Parents    []string `json:"parents"`
}

func NewRecordsCreated(p RecordsCreatedPayload) DomainEvent {
	refs := []EntityRef{{EntityType: "form_build", EntityID: p.BuildID, Role: "context"}}
	for _, id := range p.IDs {
		refs = append(refs, EntityRef{EntityType: p.TargetType, EntityID: id, Role: "subject"})
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeRecordsCreated,
		OccurredAt:       time.Now(),
		AffectedEntities: refs,
		Summary:          fmt.Sprintf("Created %d %s records for %s.%s", len(p.IDs), p.TargetType, p.FormID, p.Field),
		Payload:          mustJSON(p),
	}
}

// SubmissionPayload describes the outcome of one form submission.
type SubmissionPayload struct {
	BuildID  string   `json:"build_id"`
	FormID   string   `json:"form_id"`
	Source   string   `json:"source"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages,omitempty"`
}

func NewSubmissionAccepted(p SubmissionPayload) DomainEvent {
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeSubmissionAccepted,
		OccurredAt:       time.Now(),
		AffectedEntities: []EntityRef{{EntityType: "form_build", EntityID: p.BuildID, Role: "subject"}},
		Summary:          fmt.Sprintf("Form %s accepted", p.FormID),
		Payload:          mustJSON(p),
	}
}

func NewSubmissionRejected(p SubmissionPayload) DomainEvent {
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeSubmissionRejected,
		OccurredAt:       time.Now(),
		AffectedEntities: []EntityRef{{EntityType: "form_build", EntityID: p.BuildID, Role: "subject"}},
		Summary:          fmt.Sprintf("Form %s rejected with %d errors", p.FormID, p.Errors),
		Payload:          mustJSON(p),
	}
}
