// Package mcptools exposes parent-scoped lookups and the form pipeline as MCP
// tools so agents can fill reference fields the same way the browser does.
//
// Each tool follows the same shape:
//   - a struct with its dependency injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
package mcptools

import (
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
)

// valuesArg reads an object argument of field name to string or string list
// into url.Values. Missing or malformed arguments give empty values.
func valuesArg(req mcp.CallToolRequest, key string) url.Values {
	out := url.Values{}
	obj, ok := req.GetArguments()[key].(map[string]any)
	if !ok {
		return out
	}
	for name, v := range obj {
		switch t := v.(type) {
		case string:
			out.Add(name, t)
		case []any:
			for _, item := range t {
				out.Add(name, fmt.Sprint(item))
			}
		case nil:
		default:
			out.Add(name, fmt.Sprint(t))
		}
	}
	return out
}
