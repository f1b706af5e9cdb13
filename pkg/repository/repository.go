package repository

import (
	"context"

	"github.com/sboruta/tracker/pkg/models"
)

// Store contracts for the synchronized tables. These are the public
// interfaces the sync machinery depends on; concrete implementations live
// under internal/ (SQLite on the agent, Postgres on the central store).

// RowStore is the minimal surface the conflict resolver needs. Both sides
// of the sync protocol implement it, so incoming rows are applied through
// exactly the same algorithm on the agent and on the central store.
type RowStore interface {
	// GetByID returns the row with the given id, or (nil, nil) when absent.
	GetByID(ctx context.Context, table models.Table, id string) (models.Row, error)

	// GetByKey returns the row whose natural key column equals key, or
	// (nil, nil) when absent. Only valid for tables with a natural key.
	GetByKey(ctx context.Context, table models.Table, key string) (models.Row, error)

	// Put writes the row verbatim (insert or whole-row overwrite). It never
	// touches last_modified; the caller owns the timestamp.
	Put(ctx context.Context, table models.Table, row models.Row) error

	// Rekey changes a row's id from oldID to newID and re-points every
	// referencing column listed in the table metadata. Referencing rows get
	// a fresh last_modified so the re-pointing itself propagates on the
	// next sync cycle.
	Rekey(ctx context.Context, table models.Table, oldID, newID string) error
}

// LocalStore is the agent's embedded store: RowStore plus the
// change-tracking operations the capture path and the sync engine use.
type LocalStore interface {
	RowStore

	// UpsertLocal writes a row produced by the capture path and stamps
	// last_modified with the current time, marking the row dirty.
	UpsertLocal(ctx context.Context, table models.Table, row models.Row) error

	// ListDirty returns rows with last_modified strictly after since.
	ListDirty(ctx context.Context, table models.Table, since int64) ([]models.Row, error)

	// List returns rows matching keep, tombstones included. A nil keep
	// returns every row.
	List(ctx context.Context, table models.Table, keep func(models.Row) bool) ([]models.Row, error)

	// Cursor returns the table's persisted sync watermark (0 when the
	// table has never completed a cycle).
	Cursor(ctx context.Context, table models.Table) (int64, error)

	// SetCursor persists the table's sync watermark.
	SetCursor(ctx context.Context, table models.Table, ts int64) error
}

// CentralStore is the authoritative multi-tenant store behind the sync
// endpoint.
type CentralStore interface {
	RowStore

	// ListChangedSince returns rows with last_modified strictly after
	// since, optionally scoped to one employee for tables that carry an
	// employee_id column.
	ListChangedSince(ctx context.Context, table models.Table, since int64, employeeID string) ([]models.Row, error)
}
