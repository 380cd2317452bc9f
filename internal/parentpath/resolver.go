// Package parentpath resolves the ordered parent arguments that scope an
// autocomplete lookup from the current values of a form.
//
// Resolution is a flat scan over the declared parent field names. It runs
// independently when the widget is built (and its lookup URL rendered) and
// again server-side when the form is submitted.
package parentpath

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/parentref/internal/form"
	"github.com/matthewbaird/parentref/internal/types"
)

// Separator joins path positions in lookup URLs.
const Separator = "-"

// FieldValueSource supplies form values by field name.
type FieldValueSource interface {
	// LiveInput returns non-empty raw user input for name.
	LiveInput(name string) (string, bool)
	// SubmittedValue returns the previously validated value for name.
	SubmittedValue(name string) ([]string, bool)
}

// Entry is one resolved position of the path.
type Entry struct {
	Field string
	Value string
}

// AlterContext is handed to every alterer.
type AlterContext struct {
	Settings   types.SelectionSettings
	Values     FieldValueSource
	Submission *form.Context // nil outside a form build
}

// Resolver turns declared parent field names into a parent path.
type Resolver struct {
	hooks *Hooks
}

// NewResolver creates a resolver. hooks may be nil.
func NewResolver(hooks *Hooks) *Resolver {
	if hooks == nil {
		hooks = NewHooks()
	}
	return &Resolver{hooks: hooks}
}

// Resolve returns one value per distinct declared parent field, in
// declaration order. For each field the live input wins, then the first
// element of the submitted value, then types.AllParents. Registered alterers
// run afterwards and may rewrite values but not fields or their order.
func (r *Resolver) Resolve(s types.SelectionSettings, values FieldValueSource, sub *form.Context) ([]string, error) {
	names := FieldNames(s.ParentFieldNames)
	entries := make([]Entry, len(names))
	for i, name := range names {
		entries[i] = Entry{Field: name, Value: resolveOne(name, values)}
	}

	ac := AlterContext{Settings: s, Values: values, Submission: sub}
	for _, name := range r.hooks.Names() {
		if err := r.hooks.alterer(name).AlterParentPath(entries, ac); err != nil {
			return nil, fmt.Errorf("parent path alterer %q: %w", name, err)
		}
		for i, e := range entries {
			if e.Field != names[i] {
				return nil, &types.ConfigError{
					Component: "parent path alterer " + name,
					Message:   fmt.Sprintf("position %d moved from %q to %q", i, names[i], e.Field),
				}
			}
		}
	}

	path := make([]string, len(entries))
	for i, e := range entries {
		path[i] = e.Value
	}
	return path, nil
}

func resolveOne(name string, values FieldValueSource) string {
	if values == nil {
		return types.AllParents
	}
	if v, ok := values.LiveInput(name); ok && v != "" {
		return v
	}
	if v, ok := values.SubmittedValue(name); ok && len(v) > 0 && v[0] != "" {
		return v[0]
	}
	return types.AllParents
}

// FieldNames trims the declared names and drops blanks and repeats, keeping
// the first occurrence.
func FieldNames(declared []string) []string {
	out := make([]string, 0, len(declared))
	seen := make(map[string]bool, len(declared))
	for _, n := range declared {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Parent values are free text, so a separator inside a value is escaped
// as "~1" and the escape character itself as "~0". Both are unreserved in
// URL paths, so a joined path survives as one segment.
var (
	escapeValue   = strings.NewReplacer("~", "~0", Separator, "~1")
	unescapeValue = strings.NewReplacer("~1", Separator, "~0", "~")
)

// Join renders a path for the lookup URL.
func Join(path []string) string {
	escaped := make([]string, len(path))
	for i, v := range path {
		escaped[i] = escapeValue.Replace(v)
	}
	return strings.Join(escaped, Separator)
}

// Split parses a path from the lookup URL. An empty argument yields an empty
// path.
func Split(arg string) []string {
	if arg == "" {
		return nil
	}
	path := strings.Split(arg, Separator)
	for i, v := range path {
		path[i] = unescapeValue.Replace(v)
	}
	return path
}
