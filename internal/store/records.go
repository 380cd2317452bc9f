package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/types"
)

type recordRow struct {
	ID         int64  `sql:"id"`
	TargetType string `sql:"target_type"`
	Bundle     string `sql:"bundle"`
	Label      string `sql:"label"`
	Parent     string `sql:"parent"`
}

func (r recordRow) record() types.Record {
	return types.Record{
		ID:         strconv.FormatInt(r.ID, 10),
		TargetType: r.TargetType,
		Bundle:     r.Bundle,
		Label:      r.Label,
		Parent:     r.Parent,
	}
}

var recordColumns = []string{"id", "target_type", "bundle", "label", "parent"}

// Scope narrows a record query to one selection's visible records.
type Scope struct {
	TargetType string
	Bundles    []string // empty means any bundle
	Path       []string
}

func (sc Scope) predicate() *entsql.Predicate {
	preds := []*entsql.Predicate{entsql.EQ("target_type", sc.TargetType)}
	if len(sc.Bundles) > 0 {
		preds = append(preds, entsql.In("bundle", anys(sc.Bundles)...))
	}
	if values, ok := types.PathConstrained(sc.Path); ok {
		preds = append(preds, entsql.In("parent", anys(values)...))
	}
	return entsql.And(preds...)
}

// Search returns the records in scope whose label matches text.
func (s *Store) Search(ctx context.Context, sc Scope, text string, mode lookup.MatchMode, limit int) ([]types.Record, error) {
	var match *entsql.Predicate
	switch mode {
	case lookup.MatchEquals:
		match = entsql.EQ("label", text)
	case lookup.MatchEqualsFold:
		match = entsql.EqualFold("label", text)
	case lookup.MatchStartsWith:
		match = entsql.HasPrefixFold("label", text)
	default:
		match = entsql.ContainsFold("label", text)
	}

	q := s.builder().Select(recordColumns...).
		From(entsql.Table(recordsTable)).
		Where(entsql.And(sc.predicate(), match)).
		OrderBy("label", "id")
	if limit > 0 {
		q.Limit(limit)
	}

	var rows []recordRow
	if err := s.query(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}
	out := make([]types.Record, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

// Find returns the records in scope among ids. Ids that are not numeric are
// ignored since they cannot exist.
func (s *Store) Find(ctx context.Context, sc Scope, ids []string) ([]types.Record, error) {
	nums := numericIDs(ids)
	if len(nums) == 0 {
		return nil, nil
	}
	q := s.builder().Select(recordColumns...).
		From(entsql.Table(recordsTable)).
		Where(entsql.And(sc.predicate(), entsql.In("id", nums...)))

	var rows []recordRow
	if err := s.query(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	out := make([]types.Record, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

// Parents returns the stored parent of every existing id of targetType.
func (s *Store) Parents(ctx context.Context, targetType string, ids []string) (map[string]string, error) {
	records, err := s.Find(ctx, Scope{TargetType: targetType}, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.ID] = r.Parent
	}
	return out, nil
}

// Labels returns the label of every existing id of targetType.
func (s *Store) Labels(ctx context.Context, targetType string, ids []string) (map[string]string, error) {
	records, err := s.Find(ctx, Scope{TargetType: targetType}, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.ID] = r.Label
	}
	return out, nil
}

// CreateRecords inserts one record per draft, stored under the draft's
// parent, inside a single transaction. It returns the new ids in draft order.
func (s *Store) CreateRecords(ctx context.Context, targetType string, drafts []types.Draft, audit types.Audit) ([]string, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	if audit.Source == "" {
		audit.Source = types.SourceUser
	}

	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	now := time.Now()
	ids := make([]string, 0, len(drafts))
	for _, d := range drafts {
		creator := d.Creator
		if creator == "" {
			creator = types.SourceSystem
		}
		var correlation any
		if audit.CorrelationID != "" {
			correlation = audit.CorrelationID
		}
		query, args := s.builder().Insert(recordsTable).
			Columns("created_at", "created_by", "source", "correlation_id", "target_type", "bundle", "label", "parent").
			Values(now, creator, audit.Source, correlation, targetType, d.Bundle, d.Label, d.Parent()).
			Query()

		var res entsql.Result
		if err := tx.Exec(ctx, query, args, &res); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("creating %s %q: %w", targetType, d.Label, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("reading id of %q: %w", d.Label, err)
		}
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing records: %w", err)
	}
	return ids, nil
}

// Seed inserts fixture records as imports. Record ids are assigned by the
// database; the ids on the input are ignored.
func (s *Store) Seed(ctx context.Context, records []types.Record) error {
	byType := make(map[string][]types.Draft)
	var order []string
	for _, r := range records {
		if _, ok := byType[r.TargetType]; !ok {
			order = append(order, r.TargetType)
		}
		bundle := r.Bundle
		if bundle == "" {
			bundle = r.TargetType
		}
		var path []string
		if r.Parent != "" {
			path = []string{r.Parent}
		}
		byType[r.TargetType] = append(byType[r.TargetType], types.Draft{
			Bundle:     bundle,
			Label:      r.Label,
			ParentPath: path,
		})
	}
	for _, tt := range order {
		if _, err := s.CreateRecords(ctx, tt, byType[tt], types.Audit{Source: types.SourceImport}); err != nil {
			return fmt.Errorf("seeding %s: %w", tt, err)
		}
	}
	return nil
}

func numericIDs(ids []string) []any {
	var out []any
	for _, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func anys(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
