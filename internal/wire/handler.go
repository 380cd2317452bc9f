package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/matcher"
	"github.com/matthewbaird/parentref/internal/types"
	"github.com/matthewbaird/parentref/internal/widget"
)

// Handler manages WebSocket lookup connections.
type Handler struct {
	autocomplete *widget.Autocompleter
	builder      *widget.Builder
	origins      []string
}

// NewHandler creates a WebSocket handler. origins restricts the accepted
// Origin hosts; nil accepts any.
func NewHandler(ac *widget.Autocompleter, builder *widget.Builder, origins []string) *Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{autocomplete: ac, builder: builder, origins: origins}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		log.Printf("wire: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	h.send(ctx, conn, ServerMessage{
		Type: "ready",
		Data: ReadyData{ConnectionID: uuid.NewString()},
	})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("wire: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}

		switch msg.Type {
		case "autocomplete":
			h.handleAutocomplete(ctx, conn, msg)
		case "refresh":
			h.handleRefresh(ctx, conn, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleAutocomplete(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var data AutocompleteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid autocomplete data")
		return
	}

	items, err := h.autocomplete.Lookup(ctx, data)
	if err != nil {
		code, message := errorCode(err)
		h.sendError(ctx, conn, msg.ID, code, message)
		return
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "completions",
		RequestID: msg.ID,
		Data:      CompletionsData{Items: items},
	})
}

func (h *Handler) handleRefresh(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var data RefreshData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.BuildID == "" {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid refresh data")
		return
	}

	fields, err := h.builder.Refresh(ctx, data.BuildID, form.NewInput(data.Values, data.Submitted))
	if err != nil {
		code, message := errorCode(err)
		h.sendError(ctx, conn, msg.ID, code, message)
		return
	}
	if fields == nil {
		fields = []widget.RefreshedField{}
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "refreshed",
		RequestID: msg.ID,
		Data:      RefreshedData{Fields: fields},
	})
}

// errorCode maps a pipeline error to a protocol error. Internal failures are
// logged and reported without detail.
func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, types.ErrAccessDenied):
		return "access_denied", "access denied"
	case errors.Is(err, matcher.ErrPathMismatch):
		return "path_mismatch", err.Error()
	case errors.Is(err, form.ErrContextExpired):
		return "build_expired", err.Error()
	}
	log.Printf("wire: %v", err)
	return "internal_error", "internal error"
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("wire: write error: %v", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
