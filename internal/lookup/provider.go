// Package lookup defines the filtered-query contract the autocomplete core
// delegates to, and the registry mapping selection handler ids to providers.
package lookup

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/matthewbaird/parentref/internal/types"
)

// HandlerParentFieldReference is the selection handler scoped by parent
// field values.
const HandlerParentFieldReference = "parent_field_reference"

// MatchMode selects how typed text is compared with labels.
type MatchMode string

const (
	MatchContains   MatchMode = "CONTAINS"
	MatchStartsWith MatchMode = "STARTS_WITH"
	MatchEquals     MatchMode = "="
	MatchEqualsFold MatchMode = "=~" // equality ignoring case
)

// Provider executes scoped queries for one SelectionSettings. The parent path
// is always a mandatory filter argument.
type Provider interface {
	// Search returns candidates in scope whose label matches text, ordered by
	// label. limit <= 0 means no limit.
	Search(ctx context.Context, path []string, text string, mode MatchMode, limit int) ([]types.Candidate, error)

	// ValidateIDs returns the subset of ids that exist and are in scope.
	ValidateIDs(ctx context.Context, ids []string, path []string) ([]string, error)

	// ValidateNewBatches returns the positions (flattened across batches) of
	// the drafts that may be created.
	ValidateNewBatches(ctx context.Context, batches [][]types.Draft) ([]int, error)
}

// Labeler is implemented by providers that can render existing references
// back to labels.
type Labeler interface {
	Labels(ctx context.Context, targetType string, ids []string) (map[string]string, error)
}

// Factory builds a provider bound to one set of settings.
type Factory func(s types.SelectionSettings) (Provider, error)

// Registry maps selection handler ids to provider factories. It is built
// once at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for handlerID, replacing any previous one.
func (r *Registry) Register(handlerID string, f Factory) {
	r.mu.Lock()
	r.factories[handlerID] = f
	r.mu.Unlock()
}

// Handlers returns the registered handler ids, sorted.
func (r *Registry) Handlers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Provider returns a provider for s, or a ConfigError when its handler id is
// unknown.
func (r *Registry) Provider(s types.SelectionSettings) (Provider, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	f, ok := r.factories[s.HandlerID]
	r.mu.RUnlock()
	if !ok {
		return nil, &types.ConfigError{Component: "selection handler", Message: fmt.Sprintf("unknown selection handler %q", s.HandlerID)}
	}
	p, err := f(s)
	if err != nil {
		return nil, fmt.Errorf("building %s provider: %w", s.HandlerID, err)
	}
	return p, nil
}
