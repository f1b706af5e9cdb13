package sqlite

import (
	"context"
	"database/sql"

	"github.com/sboruta/tracker/pkg/models"
)

const activityLogCols = `id, session_id, employee_id, click_count, key_count, mouse_percent, keyboard_percent, overall_percent, captured_at, last_modified, deleted_at`

func (s *Store) putActivityLog(ctx context.Context, a *models.ActivityLog) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO activity_logs (`+activityLogCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET session_id=excluded.session_id,
			employee_id=excluded.employee_id, click_count=excluded.click_count,
			key_count=excluded.key_count, mouse_percent=excluded.mouse_percent,
			keyboard_percent=excluded.keyboard_percent, overall_percent=excluded.overall_percent,
			captured_at=excluded.captured_at,
			last_modified=excluded.last_modified, deleted_at=excluded.deleted_at`,
		a.ID, a.SessionID, a.EmployeeID, a.ClickCount, a.KeyCount, a.MousePercent,
		a.KeyboardPercent, a.OverallPercent, a.CapturedAt, a.Modified, a.DeletedAt)
	return err
}

func scanActivityLog(sc scanner) (*models.ActivityLog, error) {
	var a models.ActivityLog
	var deleted sql.NullInt64
	if err := sc.Scan(&a.ID, &a.SessionID, &a.EmployeeID, &a.ClickCount, &a.KeyCount,
		&a.MousePercent, &a.KeyboardPercent, &a.OverallPercent, &a.CapturedAt, &a.Modified, &deleted); err != nil {
		return nil, err
	}
	a.DeletedAt = nullableInt(deleted)
	return &a, nil
}
