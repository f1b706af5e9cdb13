package models

// Synchronized entities. Every table that takes part in agent/central
// synchronization shares the same bookkeeping shape: an opaque UUID id,
// a last_modified timestamp in Unix milliseconds that strictly advances on
// every local write, and a nullable deleted_at tombstone marker. Rows are
// never physically removed while syncing; deletions propagate as tombstones.

// Row is the common surface the sync machinery needs from any entity.
type Row interface {
	RowID() string
	SetRowID(id string)
	LastModified() int64
	SetLastModified(ts int64)
	Deleted() bool
}

type Company struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Domain    string `json:"domain" db:"domain"`
	Modified  int64  `json:"last_modified" db:"last_modified"`
	DeletedAt *int64 `json:"deleted_at,omitempty" db:"deleted_at"`
}

type Employee struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"password_hash,omitempty" db:"password_hash"`
	CompanyID    string `json:"company_id" db:"company_id"`
	Role         string `json:"role,omitempty" db:"role"`
	IsActive     bool   `json:"is_active" db:"is_active"`
	Modified     int64  `json:"last_modified" db:"last_modified"`
	DeletedAt    *int64 `json:"deleted_at,omitempty" db:"deleted_at"`
}

type Session struct {
	ID                   string `json:"id" db:"id"`
	EmployeeID           string `json:"employee_id" db:"employee_id"`
	StartTime            int64  `json:"start_time" db:"start_time"`
	EndTime              *int64 `json:"end_time,omitempty" db:"end_time"`
	TotalDurationMinutes *int64 `json:"total_duration_minutes,omitempty" db:"total_duration_minutes"`
	Modified             int64  `json:"last_modified" db:"last_modified"`
	DeletedAt            *int64 `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool { return s.EndTime == nil }

type Screenshot struct {
	ID         string `json:"id" db:"id"`
	SessionID  string `json:"session_id" db:"session_id"`
	EmployeeID string `json:"employee_id" db:"employee_id"`
	ImagePath  string `json:"image_path" db:"image_path"`
	CapturedAt int64  `json:"captured_at" db:"captured_at"`
	Modified   int64  `json:"last_modified" db:"last_modified"`
	DeletedAt  *int64 `json:"deleted_at,omitempty" db:"deleted_at"`
}

type ActivityLog struct {
	ID              string  `json:"id" db:"id"`
	SessionID       string  `json:"session_id" db:"session_id"`
	EmployeeID      string  `json:"employee_id" db:"employee_id"`
	ClickCount      int64   `json:"click_count" db:"click_count"`
	KeyCount        int64   `json:"key_count" db:"key_count"`
	MousePercent    float64 `json:"mouse_percent" db:"mouse_percent"`
	KeyboardPercent float64 `json:"keyboard_percent" db:"keyboard_percent"`
	OverallPercent  float64 `json:"overall_percent" db:"overall_percent"`
	CapturedAt      int64   `json:"captured_at" db:"captured_at"`
	Modified        int64   `json:"last_modified" db:"last_modified"`
	DeletedAt       *int64  `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (c *Company) RowID() string            { return c.ID }
func (c *Company) SetRowID(id string)       { c.ID = id }
func (c *Company) LastModified() int64      { return c.Modified }
func (c *Company) SetLastModified(ts int64) { c.Modified = ts }
func (c *Company) Deleted() bool            { return c.DeletedAt != nil }

func (e *Employee) RowID() string            { return e.ID }
func (e *Employee) SetRowID(id string)       { e.ID = id }
func (e *Employee) LastModified() int64      { return e.Modified }
func (e *Employee) SetLastModified(ts int64) { e.Modified = ts }
func (e *Employee) Deleted() bool            { return e.DeletedAt != nil }

func (s *Session) RowID() string            { return s.ID }
func (s *Session) SetRowID(id string)       { s.ID = id }
func (s *Session) LastModified() int64      { return s.Modified }
func (s *Session) SetLastModified(ts int64) { s.Modified = ts }
func (s *Session) Deleted() bool            { return s.DeletedAt != nil }

func (s *Screenshot) RowID() string            { return s.ID }
func (s *Screenshot) SetRowID(id string)       { s.ID = id }
func (s *Screenshot) LastModified() int64      { return s.Modified }
func (s *Screenshot) SetLastModified(ts int64) { s.Modified = ts }
func (s *Screenshot) Deleted() bool            { return s.DeletedAt != nil }

func (a *ActivityLog) RowID() string            { return a.ID }
func (a *ActivityLog) SetRowID(id string)       { a.ID = id }
func (a *ActivityLog) LastModified() int64      { return a.Modified }
func (a *ActivityLog) SetLastModified(ts int64) { a.Modified = ts }
func (a *ActivityLog) Deleted() bool            { return a.DeletedAt != nil }
