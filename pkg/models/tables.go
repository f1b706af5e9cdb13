package models

// Table describes one synchronized logical table: its wire name, whether it
// carries a natural business key, whether downloads can be scoped to a single
// employee, and which other tables hold references to its id (needed when an
// identity merge re-keys a row).
type Table struct {
	// Name is the wire and storage name of the table.
	Name string

	// NaturalKey is the column holding the business-unique key ("" when the
	// table is matched by id only).
	NaturalKey string

	// EmployeeScoped marks tables with an employee_id column; downloads for
	// these may be filtered to the bound employee.
	EmployeeScoped bool

	// References maps referencing table name to the column in that table
	// that points at this table's id.
	References map[string]string

	// New returns a zero value of the table's row type for decoding.
	New func() Row

	// KeyOf extracts the natural key value from a row. Nil when NaturalKey
	// is empty.
	KeyOf func(Row) string
}

var (
	Companies = Table{
		Name:       "companies",
		NaturalKey: "domain",
		References: map[string]string{"employees": "company_id"},
		New:        func() Row { return &Company{} },
		KeyOf:      func(r Row) string { return r.(*Company).Domain },
	}

	Employees = Table{
		Name:       "employees",
		NaturalKey: "email",
		References: map[string]string{
			"sessions":      "employee_id",
			"screenshots":   "employee_id",
			"activity_logs": "employee_id",
		},
		New:   func() Row { return &Employee{} },
		KeyOf: func(r Row) string { return r.(*Employee).Email },
	}

	Sessions = Table{
		Name:           "sessions",
		EmployeeScoped: true,
		References: map[string]string{
			"screenshots":   "session_id",
			"activity_logs": "session_id",
		},
		New: func() Row { return &Session{} },
	}

	Screenshots = Table{
		Name:           "screenshots",
		EmployeeScoped: true,
		New:            func() Row { return &Screenshot{} },
	}

	ActivityLogs = Table{
		Name:           "activity_logs",
		EmployeeScoped: true,
		New:            func() Row { return &ActivityLog{} },
	}
)

// SyncOrder lists all synchronized tables in foreign-key dependency order.
// Companies must land before employees, employees before sessions, and
// sessions before their capture artifacts.
var SyncOrder = []Table{Companies, Employees, Sessions, Screenshots, ActivityLogs}

// TableByName resolves a wire table name against the allow-list.
func TableByName(name string) (Table, bool) {
	for _, t := range SyncOrder {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
