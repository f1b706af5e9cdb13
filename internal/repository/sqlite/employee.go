package sqlite

import (
	"context"
	"database/sql"

	"github.com/sboruta/tracker/pkg/models"
)

const employeeCols = `id, name, email, password_hash, company_id, role, is_active, last_modified, deleted_at`

func (s *Store) putEmployee(ctx context.Context, e *models.Employee) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO employees (`+employeeCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email,
			password_hash=excluded.password_hash, company_id=excluded.company_id,
			role=excluded.role, is_active=excluded.is_active,
			last_modified=excluded.last_modified, deleted_at=excluded.deleted_at`,
		e.ID, e.Name, e.Email, e.PasswordHash, e.CompanyID, e.Role, e.IsActive, e.Modified, e.DeletedAt)
	return err
}

func scanEmployee(sc scanner) (*models.Employee, error) {
	var e models.Employee
	var name, hash, companyID, role sql.NullString
	var deleted sql.NullInt64
	if err := sc.Scan(&e.ID, &name, &e.Email, &hash, &companyID, &role, &e.IsActive, &e.Modified, &deleted); err != nil {
		return nil, err
	}
	e.Name = name.String
	e.PasswordHash = hash.String
	e.CompanyID = companyID.String
	e.Role = role.String
	e.DeletedAt = nullableInt(deleted)
	return &e, nil
}

// EmployeeByEmail looks an employee up by its natural key. Used by the
// capture path to bind an identity without a round-trip to the central store.
func (s *Store) EmployeeByEmail(ctx context.Context, email string) (*models.Employee, error) {
	row, err := s.GetByKey(ctx, models.Employees, email)
	if err != nil || row == nil {
		return nil, err
	}
	return row.(*models.Employee), nil
}
