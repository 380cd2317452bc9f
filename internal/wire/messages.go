// Package wire defines the WebSocket protocol for streaming lookups. A
// client keeps one connection open while the user types and sends one
// "autocomplete" message per keystroke batch.
package wire

import (
	"encoding/json"
	"net/url"

	"github.com/matthewbaird/parentref/internal/matcher"
	"github.com/matthewbaird/parentref/internal/widget"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "autocomplete", "refresh", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// AutocompleteData is the payload for "autocomplete" messages: the lookup
// route's segments plus the typed text.
type AutocompleteData = widget.LookupRequest

// RefreshData is the payload for "refresh" messages.
type RefreshData struct {
	BuildID   string              `json:"build_id"`
	Values    url.Values          `json:"values"`
	Submitted map[string][]string `json:"submitted,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "ready", "completions", "refreshed", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// ReadyData is sent once the connection is accepted.
type ReadyData struct {
	ConnectionID string `json:"connection_id"`
}

// CompletionsData carries autocomplete suggestions.
type CompletionsData struct {
	Items []matcher.Suggestion `json:"items"`
}

// RefreshedData carries the widgets to replace after a parent change.
type RefreshedData struct {
	Fields []widget.RefreshedField `json:"fields"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
