package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/types"
	"github.com/matthewbaird/parentref/internal/widget"
)

// BuildFormTool handles the build_form MCP tool.
type BuildFormTool struct {
	builder *widget.Builder
}

// NewBuildFormTool creates a BuildFormTool.
func NewBuildFormTool(builder *widget.Builder) *BuildFormTool {
	return &BuildFormTool{builder: builder}
}

// Definition returns the MCP tool definition for build_form.
func (t *BuildFormTool) Definition() mcp.Tool {
	return mcp.NewTool("build_form",
		mcp.WithDescription(
			"Open a form and get its reference widgets. Each widget carries the token and parent path "+
				"autocomplete_by_parent needs. Pass the parent values already chosen so lookups are scoped to them.",
		),
		mcp.WithString("form_id",
			mcp.Required(),
			mcp.Description("Configured form id (e.g. 'address')"),
		),
		mcp.WithObject("values",
			mcp.Description("Current form input by field name, e.g. {\"country\": \"US\"}"),
		),
	)
}

// Handle processes the build_form tool call.
func (t *BuildFormTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formID, err := req.RequireString("form_id")
	if err != nil {
		return mcp.NewToolResultError("'form_id' is required"), nil
	}
	b, err := t.builder.Build(ctx, formID, form.NewInput(valuesArg(req, "values"), nil), nil)
	if errors.Is(err, widget.ErrUnknownForm) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown form %q", formID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("build_form: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Form %s opened as build %s.\n", b.FormID, b.BuildID)
	for _, w := range b.Widgets {
		fmt.Fprintf(&sb, "- %s: target_type=%s handler=%s token=%s parents=%s tags=%t\n",
			w.Field, w.TargetType, w.Handler, w.Token, strings.Join(w.ParentPath, "-"), w.Tags)
	}
	return mcp.NewToolResultStructured(b, sb.String()), nil
}

// SubmitFormTool handles the submit_form MCP tool.
type SubmitFormTool struct {
	submitter *widget.Submitter
}

// NewSubmitFormTool creates a SubmitFormTool.
func NewSubmitFormTool(submitter *widget.Submitter) *SubmitFormTool {
	return &SubmitFormTool{submitter: submitter}
}

// Definition returns the MCP tool definition for submit_form.
func (t *SubmitFormTool) Definition() mcp.Tool {
	return mcp.NewTool("submit_form",
		mcp.WithDescription(
			"Submit a form opened with build_form. Reference fields take 'label (id)' values from "+
				"autocomplete_by_parent, or plain labels when the field may create records.",
		),
		mcp.WithString("build_id",
			mcp.Required(),
			mcp.Description("build_id returned by build_form"),
		),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description("Field values by name, parents included"),
		),
		mcp.WithString("actor",
			mcp.Description("Who the created records are attributed to"),
		),
	)
}

// Handle processes the submit_form tool call.
func (t *SubmitFormTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buildID, err := req.RequireString("build_id")
	if err != nil {
		return mcp.NewToolResultError("'build_id' is required"), nil
	}
	res, err := t.submitter.Submit(ctx, widget.Submission{
		BuildID: buildID,
		Values:  valuesArg(req, "values"),
		Creator: req.GetString("actor", ""),
		Source:  types.SourceAgent,
	})
	if errors.Is(err, form.ErrContextExpired) {
		return mcp.NewToolResultError("the build has expired; call build_form again"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("submit_form: %w", err)
	}

	if !res.Accepted() {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Submission rejected (%d errors):\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Fprintf(&sb, "- %s\n", e.Error())
		}
		r := mcp.NewToolResultStructured(res, sb.String())
		r.IsError = true
		return r, nil
	}

	var sb strings.Builder
	sb.WriteString("Submission accepted.\n")
	for field, ids := range res.Created {
		fmt.Fprintf(&sb, "- created %s: %s\n", field, strings.Join(ids, ", "))
	}
	return mcp.NewToolResultStructured(res, sb.String()), nil
}
