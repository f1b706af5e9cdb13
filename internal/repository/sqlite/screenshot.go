package sqlite

import (
	"context"
	"database/sql"

	"github.com/sboruta/tracker/pkg/models"
)

const screenshotCols = `id, session_id, employee_id, image_path, captured_at, last_modified, deleted_at`

func (s *Store) putScreenshot(ctx context.Context, sh *models.Screenshot) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO screenshots (`+screenshotCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET session_id=excluded.session_id,
			employee_id=excluded.employee_id, image_path=excluded.image_path,
			captured_at=excluded.captured_at,
			last_modified=excluded.last_modified, deleted_at=excluded.deleted_at`,
		sh.ID, sh.SessionID, sh.EmployeeID, sh.ImagePath, sh.CapturedAt, sh.Modified, sh.DeletedAt)
	return err
}

func scanScreenshot(sc scanner) (*models.Screenshot, error) {
	var sh models.Screenshot
	var deleted sql.NullInt64
	if err := sc.Scan(&sh.ID, &sh.SessionID, &sh.EmployeeID, &sh.ImagePath, &sh.CapturedAt, &sh.Modified, &deleted); err != nil {
		return nil, err
	}
	sh.DeletedAt = nullableInt(deleted)
	return &sh, nil
}
