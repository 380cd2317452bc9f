// Package constraint provides the submit-time integrity checks applied to
// reference fields. Constraints are declared by id with a JSON definition and
// resolved through a Registry built at startup.
package constraint

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/matthewbaird/parentref/internal/types"
)

// Constraint ids.
const (
	IDValidReference       = "ValidReference"
	IDValidParentReference = "ValidParentReference"
)

// ParentReader loads the stored parent of referenced records. Ids that do not
// exist are absent from the returned map.
type ParentReader interface {
	Parents(ctx context.Context, targetType string, ids []string) (map[string]string, error)
}

// Options is what a constraint factory receives: the field's target type, the
// reader it checks against, and its declared definition.
type Options struct {
	TargetType string
	Reader     ParentReader
	Definition json.RawMessage
}

// Constraint checks the resolved values of one field.
type Constraint interface {
	ID() string
	Validate(ctx context.Context, values []types.ReferenceValue) (types.ValidationErrors, error)
}

// Factory builds a constraint from its options.
type Factory func(opts Options) (Constraint, error)

// Registry maps constraint ids to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in constraints.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories[IDValidReference] = newValidReference
	r.factories[IDValidParentReference] = newValidParentReference
	return r
}

// Register adds a factory. Registering an id twice is a ConfigError.
func (r *Registry) Register(id string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[id]; ok {
		return &types.ConfigError{Component: "constraint registry", Message: fmt.Sprintf("constraint %q already registered", id)}
	}
	r.factories[id] = f
	return nil
}

// IDs returns the registered constraint ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Build constructs the constraint registered under id.
func (r *Registry) Build(id string, opts Options) (Constraint, error) {
	r.mu.RLock()
	f, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &types.ConfigError{Component: "constraint registry", Message: fmt.Sprintf("unknown constraint %q", id)}
	}
	if opts.Reader == nil {
		return nil, &types.ConfigError{Component: "constraint " + id, Message: "no parent reader configured"}
	}
	return f(opts)
}

// Set is the constraint list of one field.
type Set []Constraint

// Validate runs every constraint and returns all of their errors together,
// tagged with field.
func (s Set) Validate(ctx context.Context, field string, values []types.ReferenceValue) (types.ValidationErrors, error) {
	var errs types.ValidationErrors
	for _, c := range s {
		e, err := c.Validate(ctx, values)
		if err != nil {
			return nil, fmt.Errorf("constraint %s: %w", c.ID(), err)
		}
		errs = append(errs, e...)
	}
	return errs.WithField(field), nil
}

// Field types.
const (
	FieldTypeEntityReference       = "entity_reference"
	FieldTypeParentEntityReference = "parent_entity_reference"
)

// FieldConstraints returns the constraint ids that apply to a field of
// fieldType. A parent reference field drops the generic ValidReference check;
// ValidParentReference takes its place.
func FieldConstraints(fieldType string, declared []string) []string {
	out := make([]string, 0, len(declared))
	for _, id := range declared {
		if fieldType == FieldTypeParentEntityReference && id == IDValidReference {
			continue
		}
		out = append(out, id)
	}
	return out
}
