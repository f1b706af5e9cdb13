package sqlite

import (
	"database/sql"
	"time"

	"log/slog"

	"github.com/sboruta/tracker/internal/db"
	"github.com/sboruta/tracker/pkg/repository"
)

// Store implements the agent's local store over the internal DB wrapper.
// It owns the on-disk representation; the capture path writes through
// UpsertLocal and the sync engine reads/merges through the RowStore surface.
type Store struct {
	conn   *db.DB
	logger *slog.Logger
}

var _ repository.LocalStore = (*Store)(nil)

func New(conn *db.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

func nullableInt(v sql.NullInt64) *int64 {
	if v.Valid {
		return &v.Int64
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
