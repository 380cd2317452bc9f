// Package store persists referenceable records and issued selection settings
// in SQLite. The table layout comes from the ent schema definitions and every
// statement is built with the ent SQL builder.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	_ "modernc.org/sqlite"
)

// DefaultDSN is used when no DATABASE_URL is configured.
const DefaultDSN = "file:parentref.db?_pragma=foreign_keys(1)"

// Store wraps the ent SQL driver.
type Store struct {
	drv *entsql.Driver
}

// Open connects to the SQLite database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Enable foreign keys explicitly; the migration refuses to run without.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{drv: entsql.OpenDB(dialect.SQLite, db)}
	if err := s.migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}
	log.Println("store: database migrated successfully")
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	ts, err := tables()
	if err != nil {
		return err
	}
	m, err := schema.NewMigrate(s.drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, ts...)
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

func (s *Store) query(ctx context.Context, q querier, v any) error {
	query, args := q.Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	return entsql.ScanSlice(&rows, v)
}

func (s *Store) exec(ctx context.Context, q querier) (sql.Result, error) {
	query, args := q.Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

type querier interface {
	Query() (string, []any)
}
