// Package matcher turns typed text into scoped autocomplete suggestions and
// resolves free text back to record ids.
//
// Text matching itself belongs to the lookup provider; this package lower-cases
// input, insists on the parent path filter, and shapes the output into
// "label (id)" tokens that the reference validator can parse back.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/parentpath"
	"github.com/matthewbaird/parentref/internal/types"
)

// ErrPathMismatch is returned when a lookup's parent path does not have one
// position per declared parent field.
var ErrPathMismatch = errors.New("parent path does not match declared parent fields")

// labelMatchLimit bounds the exact-label search; more than five hits is
// reported as "many" rather than listed.
const labelMatchLimit = 6

// Suggestion is one autocomplete row.
type Suggestion struct {
	ID    string `json:"-"`
	Value string `json:"value"` // tag-encoded "label (id)" token
	Label string `json:"label"` // HTML-escaped label for display
}

// Config tunes suggestion lookups.
type Config struct {
	Mode  lookup.MatchMode
	Limit int
}

// DefaultConfig matches labels containing the typed text, ten at a time.
func DefaultConfig() Config {
	return Config{Mode: lookup.MatchContains, Limit: 10}
}

// Matcher resolves suggestions through the provider registered for each
// selection handler.
type Matcher struct {
	registry *lookup.Registry
	cfg      Config
}

// New creates a matcher over registry.
func New(registry *lookup.Registry, cfg Config) *Matcher {
	if cfg.Mode == "" {
		cfg.Mode = lookup.MatchContains
	}
	return &Matcher{registry: registry, cfg: cfg}
}

// Provider returns the provider for s.
func (m *Matcher) Provider(s types.SelectionSettings) (lookup.Provider, error) {
	return m.registry.Provider(s)
}

// GetMatches returns the suggestions in scope of path for typed. Empty input
// or no hits give an empty, non-nil slice.
func (m *Matcher) GetMatches(ctx context.Context, targetType, handlerID string, s types.SelectionSettings, typed string, path []string) ([]Suggestion, error) {
	s.TargetType = targetType
	s.HandlerID = handlerID

	if want := len(parentpath.FieldNames(s.ParentFieldNames)); len(path) != want {
		return nil, fmt.Errorf("%w: got %d positions, want %d", ErrPathMismatch, len(path), want)
	}

	typed = strings.ToLower(strings.TrimSpace(typed))
	if typed == "" {
		return []Suggestion{}, nil
	}

	p, err := m.registry.Provider(s)
	if err != nil {
		return nil, err
	}
	if path == nil {
		path = []string{}
	}
	candidates, err := p.Search(ctx, path, typed, m.cfg.Mode, m.cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", targetType, err)
	}

	out := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Suggest(c))
	}
	return out, nil
}

// Suggest shapes one candidate for the client.
func Suggest(c types.Candidate) Suggestion {
	return Suggestion{
		ID:    c.ID,
		Value: EncodeTag(Render(c.Label, c.ID)),
		Label: html.EscapeString(c.Label),
	}
}

// MatchByLabel looks for the single record in scope whose label equals input,
// ignoring case when the settings ask for it. When strict is false an absent
// or ambiguous match returns "" and no error so the caller can autocreate;
// when strict it returns a types.ValidationError describing the problem.
func MatchByLabel(ctx context.Context, p lookup.Provider, s types.SelectionSettings, input string, path []string, strict bool) (string, error) {
	mode := lookup.MatchEquals
	if s.AutoCreateIgnoreCase {
		mode = lookup.MatchEqualsFold
	}
	candidates, err := p.Search(ctx, path, input, mode, labelMatchLimit)
	if err != nil {
		return "", fmt.Errorf("matching %q: %w", input, err)
	}

	var exact []types.Candidate
	for _, c := range candidates {
		if c.Label == input || (s.AutoCreateIgnoreCase && strings.EqualFold(c.Label, input)) {
			exact = append(exact, c)
		}
	}
	if len(exact) == 1 {
		return exact[0].ID, nil
	}
	if !strict {
		return "", nil
	}

	verr := types.ValidationError{Token: input}
	switch {
	case len(exact) == 0:
		verr.Message = fmt.Sprintf("There are no entities matching \"%s\".", input)
	case len(exact) >= labelMatchLimit:
		verr.Message = fmt.Sprintf("Many entities are called %s. Specify the one you want by appending the id in parentheses, like \"%s\".",
			input, Render(input, exact[0].ID))
	default:
		rendered := make([]string, len(exact))
		for i, c := range exact {
			rendered[i] = Render(c.Label, c.ID)
		}
		verr.Message = fmt.Sprintf("Multiple entities match this reference; \"%s\". Specify the one you want by appending the id in parentheses, like \"%s\".",
			strings.Join(rendered, `", "`), Render(input, exact[0].ID))
	}
	return "", verr
}

// LabelsFor renders existing references as the tokens a widget shows as its
// default value. Ids without a stored label are skipped.
func (m *Matcher) LabelsFor(ctx context.Context, s types.SelectionSettings, ids []string) ([]string, error) {
	p, err := m.registry.Provider(s)
	if err != nil {
		return nil, err
	}
	labeler, ok := p.(lookup.Labeler)
	if !ok {
		return nil, &types.ConfigError{Component: "selection handler", Message: fmt.Sprintf("%s cannot render labels", s.HandlerID)}
	}
	labels, err := labeler.Labels(ctx, s.TargetType, ids)
	if err != nil {
		return nil, fmt.Errorf("loading labels: %w", err)
	}
	var out []string
	for _, id := range ids {
		if l, ok := labels[id]; ok {
			out = append(out, Render(l, id))
		}
	}
	return out, nil
}
