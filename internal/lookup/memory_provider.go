package lookup

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/matthewbaird/parentref/internal/types"
)

// MemoryRecords is an in-memory record set for demos and tests.
type MemoryRecords struct {
	mu      sync.RWMutex
	records []types.Record
}

// NewMemoryRecords creates a record set holding records.
func NewMemoryRecords(records ...types.Record) *MemoryRecords {
	return &MemoryRecords{records: append([]types.Record(nil), records...)}
}

// Add appends records.
func (m *MemoryRecords) Add(records ...types.Record) {
	m.mu.Lock()
	m.records = append(m.records, records...)
	m.mu.Unlock()
}

// CreateRecords stores one record per draft under the draft's parent and
// returns the assigned ids. Ids continue after the highest numeric id held.
func (m *MemoryRecords) CreateRecords(_ context.Context, targetType string, drafts []types.Draft, _ types.Audit) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 0
	for _, r := range m.records {
		if n, err := strconv.Atoi(r.ID); err == nil && n > next {
			next = n
		}
	}
	ids := make([]string, len(drafts))
	for i, d := range drafts {
		next++
		ids[i] = strconv.Itoa(next)
		m.records = append(m.records, types.Record{
			ID:         ids[i],
			TargetType: targetType,
			Bundle:     d.Bundle,
			Label:      d.Label,
			Parent:     d.Parent(),
		})
	}
	return ids, nil
}

// Parents returns the stored parent of every known id of targetType.
func (m *MemoryRecords) Parents(_ context.Context, targetType string, ids []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(ids))
	for _, r := range m.records {
		if r.TargetType == targetType && contains(ids, r.ID) {
			out[r.ID] = r.Parent
		}
	}
	return out, nil
}

// Labels returns the label of every known id of targetType.
func (m *MemoryRecords) Labels(_ context.Context, targetType string, ids []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(ids))
	for _, r := range m.records {
		if r.TargetType == targetType && contains(ids, r.ID) {
			out[r.ID] = r.Label
		}
	}
	return out, nil
}

// Factory returns a lookup.Factory serving settings from this record set.
func (m *MemoryRecords) Factory() Factory {
	return func(s types.SelectionSettings) (Provider, error) {
		return &MemoryProvider{records: m, settings: s}, nil
	}
}

// MemoryProvider implements Provider over MemoryRecords.
type MemoryProvider struct {
	records  *MemoryRecords
	settings types.SelectionSettings
}

func (p *MemoryProvider) Search(_ context.Context, path []string, text string, mode MatchMode, limit int) ([]types.Candidate, error) {
	p.records.mu.RLock()
	defer p.records.mu.RUnlock()

	var matched []types.Candidate
	for _, r := range p.records.records {
		if !p.inScope(r, path) {
			continue
		}
		if !labelMatches(r.Label, text, mode) {
			continue
		}
		matched = append(matched, types.Candidate{ID: r.ID, Label: r.Label})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Label < matched[j].Label
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (p *MemoryProvider) ValidateIDs(_ context.Context, ids []string, path []string) ([]string, error) {
	p.records.mu.RLock()
	defer p.records.mu.RUnlock()

	var valid []string
	for _, id := range ids {
		for _, r := range p.records.records {
			if r.ID == id && p.inScope(r, path) {
				valid = append(valid, id)
				break
			}
		}
	}
	return valid, nil
}

func (p *MemoryProvider) ValidateNewBatches(_ context.Context, batches [][]types.Draft) ([]int, error) {
	var valid []int
	pos := 0
	for _, batch := range batches {
		for _, d := range batch {
			if p.settings.BundleAllowed(d.Bundle) {
				valid = append(valid, pos)
			}
			pos++
		}
	}
	return valid, nil
}

func (p *MemoryProvider) Labels(ctx context.Context, targetType string, ids []string) (map[string]string, error) {
	return p.records.Labels(ctx, targetType, ids)
}

func (p *MemoryProvider) inScope(r types.Record, path []string) bool {
	return r.TargetType == p.settings.TargetType &&
		p.settings.BundleAllowed(r.Bundle) &&
		types.PathContains(path, r.Parent)
}

func labelMatches(label, text string, mode MatchMode) bool {
	switch mode {
	case MatchEquals:
		return label == text
	case MatchEqualsFold:
		return strings.EqualFold(label, text)
	case MatchStartsWith:
		return strings.HasPrefix(strings.ToLower(label), strings.ToLower(text))
	default:
		return strings.Contains(strings.ToLower(label), strings.ToLower(text))
	}
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
