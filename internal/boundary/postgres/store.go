// Package postgres is a database-backed boundary.Store for deployments that
// keep operational state in PostgreSQL instead of dot-files inside the data
// tree. One row per batch-files root.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"batcharchive/internal/boundary"
	"batcharchive/internal/model"
)

// Store implements boundary.Store on database/sql. Strictly persistence, no
// run policy here.
type Store struct {
	db *sql.DB
}

// NewStore creates a PostgreSQL boundary store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ boundary.Store = (*Store)(nil)

// Read fetches the boundary row for root. A missing row means no prior run.
func (s *Store) Read(ctx context.Context, root string) (model.BatchDate, bool, error) {
	const q = `SELECT boundary::text FROM archive_runs WHERE root_path = $1`

	var raw string
	if err := s.db.QueryRowContext(ctx, q, root).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BatchDate{}, false, nil
		}
		return model.BatchDate{}, false, fmt.Errorf("read boundary row: %w", err)
	}

	d, err := model.ParseBatchDate(raw)
	if err != nil {
		return model.BatchDate{}, false, fmt.Errorf("corrupt boundary row for %s: %w", root, err)
	}
	return d, true, nil
}

// Write upserts the boundary row for root.
func (s *Store) Write(ctx context.Context, root string, d model.BatchDate) error {
	const q = `
		INSERT INTO archive_runs (root_path, boundary, updated_at)
		VALUES ($1, $2::date, now())
		ON CONFLICT (root_path)
		DO UPDATE SET boundary = EXCLUDED.boundary, updated_at = now()
	`
	if _, err := s.db.ExecContext(ctx, q, root, d.String()); err != nil {
		return fmt.Errorf("write boundary row: %w", err)
	}
	return nil
}
