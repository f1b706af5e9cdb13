package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/sboruta/tracker/api"
	"github.com/sboruta/tracker/pkg/models"
	"github.com/sboruta/tracker/pkg/repository/mock"
)

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	return &buf
}

func TestCreateCompany(t *testing.T) {
	store := mock.NewStore()
	h := api.NewProvisionHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/companies",
		jsonBody(t, map[string]string{"name": "Acme", "domain": "acme.test"}))
	w := httptest.NewRecorder()
	h.CreateCompany(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}

	var created models.Company
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal company: %v", err)
	}
	if created.ID == "" || created.Modified == 0 {
		t.Fatalf("expected id and last_modified to be set, got %+v", created)
	}

	// same domain again conflicts
	req = httptest.NewRequest(http.MethodPost, "/v1/companies",
		jsonBody(t, map[string]string{"name": "Other", "domain": "acme.test"}))
	w = httptest.NewRecorder()
	h.CreateCompany(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", w.Code)
	}
}

func TestCreateAndListEmployees(t *testing.T) {
	store := mock.NewStore()
	h := api.NewProvisionHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/employees", jsonBody(t, map[string]string{
		"name": "Bob", "email": "bob@acme.test", "password": "s3cret", "company_id": "co-1",
	}))
	w := httptest.NewRecorder()
	h.CreateEmployee(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password_hash")) {
		t.Fatal("response must not leak the password hash")
	}

	stored, err := store.EmployeeByEmail(context.Background(), "bob@acme.test")
	if err != nil || stored == nil {
		t.Fatalf("employee not stored: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "s3cret" {
		t.Fatal("password must be stored hashed")
	}
	if !stored.IsActive {
		t.Fatal("new employee should be active")
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/employees?company_id=co-1", nil)
	w = httptest.NewRecorder()
	h.ListEmployees(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var resp struct {
		Employees []models.Employee `json:"employees"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(resp.Employees) != 1 || resp.Employees[0].Email != "bob@acme.test" {
		t.Fatalf("unexpected employee list: %+v", resp.Employees)
	}
}

func TestDeactivateEmployee(t *testing.T) {
	store := mock.NewStore()
	h := api.NewProvisionHandler(store)
	ctx := context.Background()

	store.Put(ctx, models.Employees, &models.Employee{
		ID: "emp-1", Email: "bob@acme.test", CompanyID: "co-1", IsActive: true, Modified: 100,
	})

	req := httptest.NewRequest(http.MethodDelete, "/v1/employees/emp-1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "emp-1"})
	w := httptest.NewRecorder()
	h.DeactivateEmployee(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", w.Code)
	}

	row, _ := store.GetByID(ctx, models.Employees, "emp-1")
	emp := row.(*models.Employee)
	if !emp.Deleted() || emp.IsActive {
		t.Fatalf("expected a tombstoned inactive employee, got %+v", emp)
	}
	if emp.Modified <= 100 {
		t.Fatal("tombstone must advance last_modified so it syncs out")
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/employees/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "ghost"})
	w = httptest.NewRecorder()
	h.DeactivateEmployee(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}
