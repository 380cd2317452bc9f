package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/parentref/internal/settings"
	"github.com/matthewbaird/parentref/internal/types"
)

// Settings adapts the store to settings.Store.
type Settings struct {
	store *Store
}

// Settings returns the selection settings table as a settings.Store.
func (s *Store) Settings() *Settings {
	return &Settings{store: s}
}

var _ settings.Store = (*Settings)(nil)

// Get loads the settings issued under token.
func (ss *Settings) Get(ctx context.Context, token string) (types.SelectionSettings, error) {
	q := ss.store.builder().Select("settings").
		From(entsql.Table(settingsTable)).
		Where(entsql.EQ("token", token)).
		Limit(1)

	var blobs []string
	if err := ss.store.query(ctx, q, &blobs); err != nil {
		return types.SelectionSettings{}, fmt.Errorf("loading settings: %w", err)
	}
	if len(blobs) == 0 {
		return types.SelectionSettings{}, settings.ErrNotFound
	}
	var out types.SelectionSettings
	if err := json.Unmarshal([]byte(blobs[0]), &out); err != nil {
		return types.SelectionSettings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return out, nil
}

// Put stores s under token, replacing what was there.
func (ss *Settings) Put(ctx context.Context, token string, s types.SelectionSettings) error {
	blob, err := s.Canonical()
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	q := ss.store.builder().Insert(settingsTable).
		Columns("created_at", "created_by", "source", "token", "target_type", "handler_id", "settings").
		Values(time.Now(), types.SourceSystem, types.SourceSystem, token, s.TargetType, s.HandlerID, string(blob)).
		OnConflict(
			entsql.ConflictColumns("token"),
			entsql.ResolveWithNewValues(),
		)
	if _, err := ss.store.exec(ctx, q); err != nil {
		return fmt.Errorf("storing settings: %w", err)
	}
	return nil
}

// Delete removes the settings issued under token.
func (ss *Settings) Delete(ctx context.Context, token string) error {
	q := ss.store.builder().Delete(settingsTable).Where(entsql.EQ("token", token))
	if _, err := ss.store.exec(ctx, q); err != nil {
		return fmt.Errorf("deleting settings: %w", err)
	}
	return nil
}
