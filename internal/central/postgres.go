// Package central implements the authoritative multi-tenant store behind
// the sync endpoint, backed by PostgreSQL.
package central

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sboruta/tracker/internal/central/migrations"
	"github.com/sboruta/tracker/pkg/models"
	"github.com/sboruta/tracker/pkg/repository"
)

const (
	companyCols     = `id, name, domain, last_modified, deleted_at`
	employeeCols    = `id, name, email, password_hash, company_id, role, is_active, last_modified, deleted_at`
	sessionCols     = `id, employee_id, start_time, end_time, total_duration_minutes, last_modified, deleted_at`
	screenshotCols  = `id, session_id, employee_id, image_path, captured_at, last_modified, deleted_at`
	activityLogCols = `id, session_id, employee_id, click_count, key_count, mouse_percent, keyboard_percent, overall_percent, captured_at, last_modified, deleted_at`
)

// Store is the Postgres-backed central store. It satisfies the same row
// store contract as the agent's embedded store, so incoming rows from any
// agent are applied through the identical conflict resolution path.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ repository.CentralStore = (*Store)(nil)

// Open connects with the pgx stdlib driver and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// RunMigrations applies the embedded goose scripts.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func now() int64 {
	return time.Now().UnixMilli()
}

type scanner interface {
	Scan(dest ...any) error
}

func nullableInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

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

func (s *Store) GetByID(ctx context.Context, table models.Table, id string) (models.Row, error) {
	cols, err := selectCols(table)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+cols+` FROM `+table.Name+` WHERE id = $1`, id)
	r, err := scanRow(table, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", table.Name, id, err)
	}
	return r, nil
}

func (s *Store) GetByKey(ctx context.Context, table models.Table, key string) (models.Row, error) {
	if table.NaturalKey == "" {
		return nil, fmt.Errorf("table %q has no natural key", table.Name)
	}
	cols, err := selectCols(table)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+cols+` FROM `+table.Name+` WHERE `+table.NaturalKey+` = $1`, key)
	r, err := scanRow(table, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", table.Name, table.NaturalKey, err)
	}
	return r, nil
}

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

// Upsert is the control-plane write (admin provisioning): it stamps
// last_modified so the change propagates to agents on their next download.
func (s *Store) Upsert(ctx context.Context, table models.Table, row models.Row) error {
	row.SetLastModified(now())
	return s.Put(ctx, table, row)
}

// ListChangedSince returns rows modified strictly after since, oldest
// first, filtered to one employee when the table carries an employee_id
// column and employeeID is non-empty.
func (s *Store) ListChangedSince(ctx context.Context, table models.Table, since int64, employeeID string) ([]models.Row, error) {
	cols, err := selectCols(table)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + cols + ` FROM ` + table.Name + ` WHERE last_modified > $1`
	args := []any{since}
	if table.EmployeeScoped && employeeID != "" {
		query += ` AND employee_id = $2`
		args = append(args, employeeID)
	}
	query += ` ORDER BY last_modified ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list changed %s: %w", table.Name, err)
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

// ListByCompany returns the company's employees, tombstones excluded.
func (s *Store) ListByCompany(ctx context.Context, companyID string) ([]*models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+employeeCols+` FROM employees
		WHERE company_id = $1 AND deleted_at IS NULL ORDER BY email ASC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list employees for %s: %w", companyID, err)
	}
	defer rows.Close()

	var out []*models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListCompanies returns all live companies.
func (s *Store) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+companyCols+` FROM companies
		WHERE deleted_at IS NULL ORDER BY domain ASC`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []*models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EmployeeByEmail looks an employee up by its natural key for sign-in.
func (s *Store) EmployeeByEmail(ctx context.Context, email string) (*models.Employee, error) {
	row, err := s.GetByKey(ctx, models.Employees, email)
	if err != nil || row == nil {
		return nil, err
	}
	return row.(*models.Employee), nil
}

// Rekey changes a row's id and re-points every referencing column listed
// in the table metadata, stamping the referencing rows so the re-pointing
// reaches all agents on their next download.
func (s *Store) Rekey(ctx context.Context, table models.Table, oldID, newID string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE `+table.Name+` SET id = $1 WHERE id = $2`, newID, oldID); err != nil {
		return fmt.Errorf("rekey %s %s -> %s: %w", table.Name, oldID, newID, err)
	}
	ts := now()
	for refTable, col := range table.References {
		if _, err := s.db.ExecContext(ctx, `UPDATE `+refTable+` SET `+col+` = $1, last_modified = $2 WHERE `+col+` = $3`, newID, ts, oldID); err != nil {
			return fmt.Errorf("repoint %s.%s %s -> %s: %w", refTable, col, oldID, newID, err)
		}
	}
	return nil
}

func (s *Store) putCompany(ctx context.Context, c *models.Company) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO companies (`+companyCols+`) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name=excluded.name, domain=excluded.domain,
			last_modified=excluded.last_modified, deleted_at=excluded.deleted_at`,
		c.ID, c.Name, c.Domain, c.Modified, c.DeletedAt)
	return err
}

func scanCompany(sc scanner) (*models.Company, error) {
	var c models.Company
	var deleted sql.NullInt64
	if err := sc.Scan(&c.ID, &c.Name, &c.Domain, &c.Modified, &deleted); err != nil {
		return nil, err
	}
	c.DeletedAt = nullableInt(deleted)
	return &c, nil
}

func (s *Store) putEmployee(ctx context.Context, e *models.Employee) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO employees (`+employeeCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET name=excluded.name, email=excluded.email,
			password_hash=excluded.password_hash, company_id=excluded.company_id,
			role=excluded.role, is_active=excluded.is_active,
			last_modified=excluded.last_modified, deleted_at=excluded.deleted_at`,
		e.ID, e.Name, e.Email, e.PasswordHash, e.CompanyID, e.Role, e.IsActive, e.Modified, e.DeletedAt)
	return err
}

func scanEmployee(sc scanner) (*models.Employee, error) {
	var e models.Employee
	var deleted sql.NullInt64
	if err := sc.Scan(&e.ID, &e.Name, &e.Email, &e.PasswordHash, &e.CompanyID, &e.Role, &e.IsActive, &e.Modified, &deleted); err != nil {
		return nil, err
	}
	e.DeletedAt = nullableInt(deleted)
	return &e, nil
}

func (s *Store) putSession(ctx context.Context, sess *models.Session) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (`+sessionCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET employee_id=excluded.employee_id,
			start_time=excluded.start_time, end_time=excluded.end_time,
			total_duration_minutes=excluded.total_duration_minutes,
			last_modified=excluded.last_modified, deleted_at=excluded.deleted_at`,
		sess.ID, sess.EmployeeID, sess.StartTime, sess.EndTime, sess.TotalDurationMinutes, sess.Modified, sess.DeletedAt)
	return err
}

func scanSession(sc scanner) (*models.Session, error) {
	var s models.Session
	var end, dur, deleted sql.NullInt64
	if err := sc.Scan(&s.ID, &s.EmployeeID, &s.StartTime, &end, &dur, &s.Modified, &deleted); err != nil {
		return nil, err
	}
	s.EndTime = nullableInt(end)
	s.TotalDurationMinutes = nullableInt(dur)
	s.DeletedAt = nullableInt(deleted)
	return &s, nil
}

func (s *Store) putScreenshot(ctx context.Context, sh *models.Screenshot) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO screenshots (`+screenshotCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET session_id=excluded.session_id,
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

func (s *Store) putActivityLog(ctx context.Context, a *models.ActivityLog) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO activity_logs (`+activityLogCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET session_id=excluded.session_id,
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
