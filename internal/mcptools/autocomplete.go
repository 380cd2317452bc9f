package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/matcher"
	"github.com/matthewbaird/parentref/internal/types"
	"github.com/matthewbaird/parentref/internal/widget"
)

// AutocompleteTool handles the autocomplete_by_parent MCP tool.
type AutocompleteTool struct {
	ac *widget.Autocompleter
}

// NewAutocompleteTool creates an AutocompleteTool.
func NewAutocompleteTool(ac *widget.Autocompleter) *AutocompleteTool {
	return &AutocompleteTool{ac: ac}
}

// Definition returns the MCP tool definition for autocomplete_by_parent.
func (t *AutocompleteTool) Definition() mcp.Tool {
	return mcp.NewTool("autocomplete_by_parent",
		mcp.WithDescription(
			"Suggest records for a reference field, restricted to the parents currently selected in the form. "+
				"Use the target_type, handler, token and parent path of a widget returned by build_form.",
		),
		mcp.WithString("target_type",
			mcp.Required(),
			mcp.Description("Record type the field references (e.g. 'term')"),
		),
		mcp.WithString("token",
			mcp.Required(),
			mcp.Description("settings_token of the widget"),
		),
		mcp.WithString("handler",
			mcp.Description("Selection handler (default: "+lookup.HandlerParentFieldReference+")"),
		),
		mcp.WithString("parents",
			mcp.Description("Parent path joined with '-', one position per parent field; 'all' leaves a position unconstrained"),
		),
		mcp.WithString("q",
			mcp.Description("Typed text; for tag fields only the last comma-separated tag is matched"),
		),
	)
}

// Handle processes the autocomplete_by_parent tool call.
func (t *AutocompleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetType, err := req.RequireString("target_type")
	if err != nil {
		return mcp.NewToolResultError("'target_type' is required"), nil
	}
	token, err := req.RequireString("token")
	if err != nil {
		return mcp.NewToolResultError("'token' is required"), nil
	}

	items, err := t.ac.Lookup(ctx, widget.LookupRequest{
		TargetType: targetType,
		Handler:    req.GetString("handler", lookup.HandlerParentFieldReference),
		Token:      token,
		Parents:    req.GetString("parents", ""),
		Query:      req.GetString("q", ""),
	})
	switch {
	case errors.Is(err, types.ErrAccessDenied):
		return mcp.NewToolResultError("access denied: the token does not match this target type and handler"), nil
	case errors.Is(err, matcher.ErrPathMismatch):
		return mcp.NewToolResultError(err.Error()), nil
	case err != nil:
		return nil, fmt.Errorf("autocomplete: %w", err)
	}

	if len(items) == 0 {
		return mcp.NewToolResultStructured(map[string]any{"items": items}, "No matching records in scope."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d records (submit the value verbatim):\n", len(items))
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it.Value)
	}
	return mcp.NewToolResultStructured(map[string]any{"items": items}, b.String()), nil
}
