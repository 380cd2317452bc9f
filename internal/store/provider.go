package store

import (
	"context"

	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/types"
)

// Factory returns a lookup.Factory whose providers query this store.
func (s *Store) Factory() lookup.Factory {
	return func(settings types.SelectionSettings) (lookup.Provider, error) {
		return &Provider{store: s, settings: settings}, nil
	}
}

// Provider implements lookup.Provider and lookup.Labeler over the records
// table for one set of selection settings.
type Provider struct {
	store    *Store
	settings types.SelectionSettings
}

func (p *Provider) scope(path []string) Scope {
	return Scope{TargetType: p.settings.TargetType, Bundles: p.settings.TargetBundles, Path: path}
}

func (p *Provider) Search(ctx context.Context, path []string, text string, mode lookup.MatchMode, limit int) ([]types.Candidate, error) {
	records, err := p.store.Search(ctx, p.scope(path), text, mode, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Candidate, len(records))
	for i, r := range records {
		out[i] = types.Candidate{ID: r.ID, Label: r.Label}
	}
	return out, nil
}

func (p *Provider) ValidateIDs(ctx context.Context, ids []string, path []string) ([]string, error) {
	records, err := p.store.Find(ctx, p.scope(path), ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(records))
	for _, r := range records {
		found[r.ID] = true
	}
	var valid []string
	for _, id := range ids {
		if found[id] {
			valid = append(valid, id)
		}
	}
	return valid, nil
}

// ValidateNewBatches accepts drafts filed under a creatable bundle with a
// non-empty label.
func (p *Provider) ValidateNewBatches(_ context.Context, batches [][]types.Draft) ([]int, error) {
	var valid []int
	pos := 0
	for _, batch := range batches {
		for _, d := range batch {
			if d.Label != "" && p.settings.BundleAllowed(d.Bundle) {
				valid = append(valid, pos)
			}
			pos++
		}
	}
	return valid, nil
}

func (p *Provider) Labels(ctx context.Context, targetType string, ids []string) (map[string]string, error) {
	return p.store.Labels(ctx, targetType, ids)
}
