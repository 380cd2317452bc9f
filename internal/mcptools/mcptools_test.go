package mcptools

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/parentref/internal/config"
	"github.com/matthewbaird/parentref/internal/constraint"
	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/matcher"
	"github.com/matthewbaird/parentref/internal/parentpath"
	"github.com/matthewbaird/parentref/internal/reference"
	"github.com/matthewbaird/parentref/internal/settings"
	"github.com/matthewbaird/parentref/internal/types"
	"github.com/matthewbaird/parentref/internal/widget"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

const definitions = `
forms: address: fields: [{
	name: "city"
	selection: {
		target_type:        "term"
		parent_field_names: ["country"]
		auto_create:        true
		target_bundles:     ["city"]
	}
}]
`

type tools struct {
	autocomplete *AutocompleteTool
	build        *BuildFormTool
	submit       *SubmitFormTool
	records      *lookup.MemoryRecords
}

func newTools(t *testing.T) tools {
	t.Helper()
	defs, err := config.Load([]byte(definitions), "definitions.cue")
	require.NoError(t, err)

	records := lookup.NewMemoryRecords(
		types.Record{ID: "1", TargetType: "term", Bundle: "city", Label: "Springfield", Parent: "US"},
		types.Record{ID: "2", TargetType: "term", Bundle: "city", Label: "Springdale", Parent: "CA"},
	)
	reg := lookup.NewRegistry()
	reg.Register(lookup.HandlerParentFieldReference, records.Factory())
	signer, err := settings.NewSigner([]byte("mcp-secret"))
	require.NoError(t, err)
	verifier := settings.NewVerifier(signer, settings.NewMemoryStore())
	m := matcher.New(reg, matcher.DefaultConfig())
	forms := form.NewManager(time.Hour, time.Hour)
	resolver := parentpath.NewResolver(nil)

	return tools{
		autocomplete: NewAutocompleteTool(widget.NewAutocompleter(verifier, m)),
		build:        NewBuildFormTool(widget.NewBuilder(defs, forms, verifier, resolver, m)),
		submit:       NewSubmitFormTool(widget.NewSubmitter(defs, forms, resolver, reference.NewValidator(reg), constraint.NewRegistry(), records)),
		records:      records,
	}
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func buildAddress(t *testing.T, tt tools, country string) *widget.Build {
	t.Helper()
	res, err := tt.build.Handle(context.Background(), makeReq(map[string]any{
		"form_id": "address",
		"values":  map[string]any{"country": country},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))
	b, ok := res.StructuredContent.(*widget.Build)
	require.True(t, ok)
	return b
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestDefinitions(t *testing.T) {
	tt := newTools(t)

	def := tt.autocomplete.Definition()
	assert.Equal(t, "autocomplete_by_parent", def.Name)
	assert.ElementsMatch(t, []string{"target_type", "token"}, def.InputSchema.Required)
	for _, p := range []string{"handler", "parents", "q"} {
		assert.Contains(t, def.InputSchema.Properties, p)
	}

	assert.Equal(t, "build_form", tt.build.Definition().Name)
	assert.Equal(t, []string{"form_id"}, tt.build.Definition().InputSchema.Required)
	assert.ElementsMatch(t, []string{"build_id", "values"}, tt.submit.Definition().InputSchema.Required)
}

func TestNew_RegistersTools(t *testing.T) {
	s := New(nil, nil, nil)
	registered := s.ListTools()
	for _, name := range []string{"autocomplete_by_parent", "build_form", "submit_form"} {
		assert.Contains(t, registered, name)
	}
}

// ─── autocomplete_by_parent ──────────────────────────────────────────────────

func TestAutocompleteTool_ScopedToParents(t *testing.T) {
	tt := newTools(t)
	b := buildAddress(t, tt, "US")
	w := b.Widgets[0]

	res, err := tt.autocomplete.Handle(context.Background(), makeReq(map[string]any{
		"target_type": w.TargetType,
		"token":       w.Token,
		"parents":     "US",
		"q":           "spr",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(res), "Springfield (1)")
	assert.NotContains(t, resultText(res), "Springdale")
}

func TestAutocompleteTool_Errors(t *testing.T) {
	tt := newTools(t)
	w := buildAddress(t, tt, "US").Widgets[0]
	ctx := context.Background()

	res, err := tt.autocomplete.Handle(ctx, makeReq(map[string]any{"token": w.Token}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tt.autocomplete.Handle(ctx, makeReq(map[string]any{
		"target_type": "node",
		"token":       w.Token,
		"parents":     "US",
		"q":           "spr",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "access denied")

	res, err = tt.autocomplete.Handle(ctx, makeReq(map[string]any{
		"target_type": "term",
		"token":       w.Token,
		"q":           "spr",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "a missing parent position is a path mismatch")
}

// ─── build_form / submit_form ────────────────────────────────────────────────

func TestBuildFormTool_UnknownForm(t *testing.T) {
	tt := newTools(t)
	res, err := tt.build.Handle(context.Background(), makeReq(map[string]any{"form_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSubmitFormTool_CreatesUnderParent(t *testing.T) {
	tt := newTools(t)
	b := buildAddress(t, tt, "US")
	ctx := context.Background()

	res, err := tt.submit.Handle(ctx, makeReq(map[string]any{
		"build_id": b.BuildID,
		"values":   map[string]any{"country": "US", "city": "Shelbyville"},
		"actor":    "agent-7",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), "created city: 3")

	parents, err := tt.records.Parents(ctx, "term", []string{"3"})
	require.NoError(t, err)
	assert.Equal(t, "US", parents["3"])
}

func TestSubmitFormTool_RejectsOtherParent(t *testing.T) {
	tt := newTools(t)
	b := buildAddress(t, tt, "US")

	res, err := tt.submit.Handle(context.Background(), makeReq(map[string]any{
		"build_id": b.BuildID,
		"values":   map[string]any{"country": "US", "city": "Springdale (2)"},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "Submission rejected")

	res, err = tt.submit.Handle(context.Background(), makeReq(map[string]any{
		"build_id": "expired",
		"values":   map[string]any{},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "expired")
}

func TestValuesArg(t *testing.T) {
	req := makeReq(map[string]any{"values": map[string]any{
		"country": "US",
		"tags":    []any{"a", "b"},
		"n":       float64(3),
		"none":    nil,
	}})
	v := valuesArg(req, "values")
	assert.Equal(t, "US", v.Get("country"))
	assert.Equal(t, []string{"a", "b"}, v["tags"])
	assert.Equal(t, "3", v.Get("n"))
	assert.NotContains(t, v, "none")
	assert.Empty(t, valuesArg(makeReq(nil), "values"))
}
