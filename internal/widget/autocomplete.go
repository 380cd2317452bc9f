package widget

import (
	"context"

	"github.com/matthewbaird/parentref/internal/matcher"
	"github.com/matthewbaird/parentref/internal/parentpath"
	"github.com/matthewbaird/parentref/internal/settings"
)

// LookupRequest is one autocomplete call as it arrives on the lookup route.
type LookupRequest struct {
	TargetType string `json:"target_type"`
	Handler    string `json:"handler"`
	Token      string `json:"token"`
	Parents    string `json:"parents,omitempty"` // "-" joined path segment
	Query      string `json:"q"`
}

// Autocompleter serves lookup requests for every transport.
type Autocompleter struct {
	verifier *settings.Verifier
	matcher  *matcher.Matcher
}

// NewAutocompleter creates an autocompleter.
func NewAutocompleter(verifier *settings.Verifier, m *matcher.Matcher) *Autocompleter {
	return &Autocompleter{verifier: verifier, matcher: m}
}

// Lookup verifies the token before anything else, then matches the last tag
// of the query within the requested parents. A bad token yields
// types.ErrAccessDenied and no suggestions.
func (a *Autocompleter) Lookup(ctx context.Context, req LookupRequest) ([]matcher.Suggestion, error) {
	s, err := a.verifier.Verify(ctx, req.TargetType, req.Handler, req.Token)
	if err != nil {
		return nil, err
	}
	return a.matcher.GetMatches(ctx, req.TargetType, req.Handler, s, LastTag(req.Query), parentpath.Split(req.Parents))
}

// LastTag returns the tag being typed: the last one of a tags input.
func LastTag(q string) string {
	tags := matcher.ExplodeTags(q)
	if len(tags) == 0 {
		return ""
	}
	return tags[len(tags)-1]
}
