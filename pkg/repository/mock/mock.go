// Package mock provides an in-memory store double for handler tests.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sboruta/tracker/internal/central"
	"github.com/sboruta/tracker/pkg/models"
)

// Store keeps every table in a map and implements the central store
// surfaces the API handlers depend on.
type Store struct {
	mu     sync.Mutex
	rows   map[string]map[string]models.Row
	admins map[string]*central.Admin

	// PutErr, when set, fails every write. Tests use it to exercise the
	// handlers' error paths.
	PutErr error
}

func NewStore() *Store {
	return &Store{
		rows:   make(map[string]map[string]models.Row),
		admins: make(map[string]*central.Admin),
	}
}

func (s *Store) tableRows(table models.Table) map[string]models.Row {
	m, ok := s.rows[table.Name]
	if !ok {
		m = make(map[string]models.Row)
		s.rows[table.Name] = m
	}
	return m
}

func (s *Store) GetByID(ctx context.Context, table models.Table, id string) (models.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.tableRows(table)[id]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (s *Store) GetByKey(ctx context.Context, table models.Table, key string) (models.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.tableRows(table) {
		if table.KeyOf != nil && table.KeyOf(r) == key {
			return r, nil
		}
	}
	return nil, nil
}

func (s *Store) Put(ctx context.Context, table models.Table, row models.Row) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableRows(table)[row.RowID()] = row
	return nil
}

func (s *Store) Upsert(ctx context.Context, table models.Table, row models.Row) error {
	row.SetLastModified(time.Now().UnixMilli())
	return s.Put(ctx, table, row)
}

func (s *Store) Rekey(ctx context.Context, table models.Table, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tableRows(table)
	if r, ok := rows[oldID]; ok {
		delete(rows, oldID)
		r.SetRowID(newID)
		rows[newID] = r
	}

	ts := time.Now().UnixMilli()
	for refTable, col := range table.References {
		for _, r := range s.rows[refTable] {
			repoint(r, col, oldID, newID, ts)
		}
	}
	return nil
}

func repoint(row models.Row, col, oldID, newID string, ts int64) {
	switch r := row.(type) {
	case *models.Employee:
		if col == "company_id" && r.CompanyID == oldID {
			r.CompanyID = newID
			r.Modified = ts
		}
	case *models.Session:
		if col == "employee_id" && r.EmployeeID == oldID {
			r.EmployeeID = newID
			r.Modified = ts
		}
	case *models.Screenshot:
		if col == "employee_id" && r.EmployeeID == oldID {
			r.EmployeeID = newID
			r.Modified = ts
		}
		if col == "session_id" && r.SessionID == oldID {
			r.SessionID = newID
			r.Modified = ts
		}
	case *models.ActivityLog:
		if col == "employee_id" && r.EmployeeID == oldID {
			r.EmployeeID = newID
			r.Modified = ts
		}
		if col == "session_id" && r.SessionID == oldID {
			r.SessionID = newID
			r.Modified = ts
		}
	}
}

func employeeIDOf(row models.Row) string {
	switch r := row.(type) {
	case *models.Session:
		return r.EmployeeID
	case *models.Screenshot:
		return r.EmployeeID
	case *models.ActivityLog:
		return r.EmployeeID
	}
	return ""
}

func (s *Store) ListChangedSince(ctx context.Context, table models.Table, since int64, employeeID string) ([]models.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Row
	for _, r := range s.tableRows(table) {
		if r.LastModified() <= since {
			continue
		}
		if table.EmployeeScoped && employeeID != "" && employeeIDOf(r) != employeeID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastModified() < out[j].LastModified() })
	return out, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Company
	for _, r := range s.tableRows(models.Companies) {
		if c := r.(*models.Company); !c.Deleted() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (s *Store) ListByCompany(ctx context.Context, companyID string) ([]*models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Employee
	for _, r := range s.tableRows(models.Employees) {
		if e := r.(*models.Employee); e.CompanyID == companyID && !e.Deleted() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) EmployeeByEmail(ctx context.Context, email string) (*models.Employee, error) {
	row, err := s.GetByKey(ctx, models.Employees, email)
	if err != nil || row == nil {
		return nil, err
	}
	return row.(*models.Employee), nil
}

func (s *Store) CreateAdmin(ctx context.Context, a *central.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.admins {
		if existing.Email == a.Email {
			return central.ErrDuplicateEmail
		}
	}
	s.admins[a.ID] = a
	return nil
}

func (s *Store) AdminByEmail(ctx context.Context, email string) (*central.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}
