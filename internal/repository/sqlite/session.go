package sqlite

import (
	"context"
	"database/sql"

	"github.com/sboruta/tracker/pkg/models"
)

const sessionCols = `id, employee_id, start_time, end_time, total_duration_minutes, last_modified, deleted_at`

func (s *Store) putSession(ctx context.Context, sess *models.Session) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO sessions (`+sessionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET employee_id=excluded.employee_id,
			start_time=excluded.start_time, end_time=excluded.end_time,
			total_duration_minutes=excluded.total_duration_minutes,
			last_modified=excluded.last_modified, deleted_at=excluded.deleted_at`,
		sess.ID, sess.EmployeeID, sess.StartTime, sess.EndTime, sess.TotalDurationMinutes, sess.Modified, sess.DeletedAt)
	return err
}

func scanSession(sc scanner) (*models.Session, error) {
	var sess models.Session
	var end, total, deleted sql.NullInt64
	if err := sc.Scan(&sess.ID, &sess.EmployeeID, &sess.StartTime, &end, &total, &sess.Modified, &deleted); err != nil {
		return nil, err
	}
	sess.EndTime = nullableInt(end)
	sess.TotalDurationMinutes = nullableInt(total)
	sess.DeletedAt = nullableInt(deleted)
	return &sess, nil
}

// OpenSession returns the employee's open session row, or nil when tracking
// is stopped.
func (s *Store) OpenSession(ctx context.Context, employeeID string) (*models.Session, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+sessionCols+` FROM sessions
		WHERE employee_id = ? AND end_time IS NULL AND deleted_at IS NULL
		ORDER BY start_time DESC LIMIT 1`, employeeID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}
