package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/matthewbaird/parentref/internal/widget"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// New creates the MCP server with every tool registered.
func New(ac *widget.Autocompleter, builder *widget.Builder, submitter *widget.Submitter) *server.MCPServer {
	s := server.NewMCPServer(
		"parentref",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	autocomplete := NewAutocompleteTool(ac)
	s.AddTool(autocomplete.Definition(), autocomplete.Handle)

	build := NewBuildFormTool(builder)
	s.AddTool(build.Definition(), build.Handle)

	submit := NewSubmitFormTool(submitter)
	s.AddTool(submit.Definition(), submit.Handle)

	return s
}

const instructions = `Reference fields here are scoped by parent fields: a city field only offers
cities of the selected country. Call build_form with the parent values first,
look up candidates with autocomplete_by_parent using the returned widget, then
submit_form with the chosen "label (id)" values.`
