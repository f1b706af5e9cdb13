package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sboruta/tracker/pkg/models"
)

func selectCols(table models.Table) (string, error) {
	switch table.Name {
	case models.Companies.Name:
		return companyCols, nil
	case models.Employees.Name:
		return employeeCols, nil
	case models.Sessions.Name:
		return sessionCols, nil
	case models.Screenshots.Name:
		return screenshotCols, nil
	case models.ActivityLogs.Name:
		return activityLogCols, nil
	}
	return "", fmt.Errorf("unknown table %q", table.Name)
}

func scanRow(table models.Table, sc scanner) (models.Row, error) {
	switch table.Name {
	case models.Companies.Name:
		return scanCompany(sc)
	case models.Employees.Name:
		return scanEmployee(sc)
	case models.Sessions.Name:
		return scanSession(sc)
	case models.Screenshots.Name:
		return scanScreenshot(sc)
	case models.ActivityLogs.Name:
		return scanActivityLog(sc)
	}
	return nil, fmt.Errorf("unknown table %q", table.Name)
}

// GetByID returns the row with the given id, tombstones included, or
// (nil, nil) when no such row exists.
func (s *Store) GetByID(ctx context.Context, table models.Table, id string) (models.Row, error) {
	cols, err := selectCols(table)
	if err != nil {
		return nil, err
	}
	row := s.conn.QueryRow(ctx, `SELECT `+cols+` FROM `+table.Name+` WHERE id = ?`, id)
	r, err := scanRow(table, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", table.Name, id, err)
	}
	return r, nil
}

// GetByKey returns the row whose natural key equals key, or (nil, nil).
func (s *Store) GetByKey(ctx context.Context, table models.Table, key string) (models.Row, error) {
	if table.NaturalKey == "" {
		return nil, fmt.Errorf("table %q has no natural key", table.Name)
	}
	cols, err := selectCols(table)
	if err != nil {
		return nil, err
	}
	row := s.conn.QueryRow(ctx, `SELECT `+cols+` FROM `+table.Name+` WHERE `+table.NaturalKey+` = ?`, key)
	r, err := scanRow(table, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", table.Name, table.NaturalKey, err)
	}
	return r, nil
}

// Put writes the row verbatim. The caller owns last_modified; Put is the
// write the conflict resolver uses to apply remote rows without advancing
// the local clock.
func (s *Store) Put(ctx context.Context, table models.Table, row models.Row) error {
	var err error
	switch r := row.(type) {
	case *models.Company:
		err = s.putCompany(ctx, r)
	case *models.Employee:
		err = s.putEmployee(ctx, r)
	case *models.Session:
		err = s.putSession(ctx, r)
	case *models.Screenshot:
		err = s.putScreenshot(ctx, r)
	case *models.ActivityLog:
		err = s.putActivityLog(ctx, r)
	default:
		err = fmt.Errorf("unsupported row type %T", row)
	}
	if err != nil {
		return fmt.Errorf("put %s %s: %w", table.Name, row.RowID(), err)
	}
	return nil
}

// UpsertLocal is the capture-path write: it stamps last_modified with the
// current clock so the row becomes dirty and is picked up by the next sync
// cycle.
func (s *Store) UpsertLocal(ctx context.Context, table models.Table, row models.Row) error {
	row.SetLastModified(now())
	return s.Put(ctx, table, row)
}

// ListDirty returns rows modified strictly after since, oldest first.
func (s *Store) ListDirty(ctx context.Context, table models.Table, since int64) ([]models.Row, error) {
	cols, err := selectCols(table)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryRows(ctx, `SELECT `+cols+` FROM `+table.Name+` WHERE last_modified > ? ORDER BY last_modified ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("list dirty %s: %w", table.Name, err)
	}
	defer rows.Close()

	var out []models.Row
	for rows.Next() {
		r, err := scanRow(table, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// List returns every row matching keep (all rows when keep is nil).
func (s *Store) List(ctx context.Context, table models.Table, keep func(models.Row) bool) ([]models.Row, error) {
	cols, err := selectCols(table)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryRows(ctx, `SELECT `+cols+` FROM `+table.Name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table.Name, err)
	}
	defer rows.Close()

	var out []models.Row
	for rows.Next() {
		r, err := scanRow(table, rows)
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

// Rekey re-points a row's id and every referencing column. The referencing
// rows get a fresh last_modified so the re-pointing propagates to the other
// side on the next cycle; the keyed row itself keeps its timestamp, since
// the resolver decides immediately afterwards whether the incoming row
// overwrites it.
func (s *Store) Rekey(ctx context.Context, table models.Table, oldID, newID string) error {
	if _, err := s.conn.Exec(ctx, `UPDATE `+table.Name+` SET id = ? WHERE id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("rekey %s %s -> %s: %w", table.Name, oldID, newID, err)
	}
	ts := now()
	for refTable, col := range table.References {
		if _, err := s.conn.Exec(ctx, `UPDATE `+refTable+` SET `+col+` = ?, last_modified = ? WHERE `+col+` = ?`, newID, ts, oldID); err != nil {
			return fmt.Errorf("repoint %s.%s %s -> %s: %w", refTable, col, oldID, newID, err)
		}
	}
	return nil
}
