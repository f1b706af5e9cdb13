package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sboruta/tracker/pkg/models"
)

// Cursor returns the persisted sync watermark for a table. A table that has
// never completed a cycle reports 0, which makes the first download a full
// fetch. Cursors live in the store rather than process memory so a restart
// resumes from the last successful cycle instead of re-fetching everything.
func (s *Store) Cursor(ctx context.Context, table models.Table) (int64, error) {
	row := s.conn.QueryRow(ctx, `SELECT synced_at FROM sync_cursors WHERE table_name = ?`, table.Name)
	var ts int64
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("cursor %s: %w", table.Name, err)
	}
	return ts, nil
}

// SetCursor persists the table's sync watermark.
func (s *Store) SetCursor(ctx context.Context, table models.Table, ts int64) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO sync_cursors (table_name, synced_at) VALUES (?, ?)
		ON CONFLICT(table_name) DO UPDATE SET synced_at = excluded.synced_at`, table.Name, ts)
	if err != nil {
		return fmt.Errorf("set cursor %s: %w", table.Name, err)
	}
	return nil
}
