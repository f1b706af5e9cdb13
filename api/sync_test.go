package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sboruta/tracker/api"
	"github.com/sboruta/tracker/internal/syncer"
	"github.com/sboruta/tracker/pkg/models"
	"github.com/sboruta/tracker/pkg/repository/mock"
)

func newSyncHandler(t *testing.T, store *mock.Store, presigner api.PresignService) *api.SyncHandler {
	t.Helper()
	validator, err := api.NewRowValidator()
	if err != nil {
		t.Fatalf("compile row schemas: %v", err)
	}
	return api.NewSyncHandler(store, syncer.NewResolver(nil), validator, presigner)
}

func uploadBody(t *testing.T, table string, rows ...any) *bytes.Buffer {
	t.Helper()
	changes := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal row: %v", err)
		}
		changes = append(changes, b)
	}
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]any{"table": table, "changes": changes})
	return &buf
}

func TestUploadUnknownTableRejected(t *testing.T) {
	h := newSyncHandler(t, mock.NewStore(), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/sync/upload", uploadBody(t, "payroll"))
	w := httptest.NewRecorder()
	h.Upload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestUploadAppliesValidAndSkipsInvalid(t *testing.T) {
	store := mock.NewStore()
	h := newSyncHandler(t, store, nil)

	valid := models.Employee{ID: "e1", Email: "a@x.com", Modified: 100}
	invalid := map[string]any{"id": 123, "email": "b@x.com"} // id must be a string

	req := httptest.NewRequest(http.MethodPost, "/v1/sync/upload", uploadBody(t, "employees", valid, invalid))
	w := httptest.NewRecorder()
	h.Upload(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status  string `json:"status"`
		Applied int    `json:"applied"`
		Skipped int    `json:"skipped"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Applied != 1 || resp.Skipped != 1 {
		t.Fatalf("expected applied=1 skipped=1, got %+v", resp)
	}

	row, err := store.GetByID(context.Background(), models.Employees, "e1")
	if err != nil || row == nil {
		t.Fatalf("expected the valid row to be stored, got row=%v err=%v", row, err)
	}
}

func TestUploadStaleRowDoesNotOverwrite(t *testing.T) {
	store := mock.NewStore()
	h := newSyncHandler(t, store, nil)

	newer := models.Employee{ID: "e1", Email: "a@x.com", Name: "new", Modified: 200}
	older := models.Employee{ID: "e1", Email: "a@x.com", Name: "old", Modified: 100}

	for _, row := range []models.Employee{newer, older} {
		req := httptest.NewRequest(http.MethodPost, "/v1/sync/upload", uploadBody(t, "employees", row))
		w := httptest.NewRecorder()
		h.Upload(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", w.Code)
		}
	}

	row, err := store.GetByID(context.Background(), models.Employees, "e1")
	if err != nil || row == nil {
		t.Fatalf("row missing: %v", err)
	}
	if got := row.(*models.Employee).Name; got != "new" {
		t.Fatalf("stale upload overwrote newer row: name=%q", got)
	}
}

func TestUploadIdentityMergeOnNaturalKey(t *testing.T) {
	store := mock.NewStore()
	h := newSyncHandler(t, store, nil)

	stored := &models.Employee{ID: "e-old", Email: "a@x.com", Modified: 100}
	store.Put(context.Background(), models.Employees, stored)
	session := &models.Session{ID: "s1", EmployeeID: "e-old", StartTime: 1, Modified: 100}
	store.Put(context.Background(), models.Sessions, session)

	incoming := models.Employee{ID: "e-new", Email: "a@x.com", Name: "merged", Modified: 200}
	req := httptest.NewRequest(http.MethodPost, "/v1/sync/upload", uploadBody(t, "employees", incoming))
	w := httptest.NewRecorder()
	h.Upload(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}

	ctx := context.Background()
	if row, _ := store.GetByID(ctx, models.Employees, "e-old"); row != nil {
		t.Fatal("old identity should have been re-keyed away")
	}
	row, _ := store.GetByID(ctx, models.Employees, "e-new")
	if row == nil || row.(*models.Employee).Name != "merged" {
		t.Fatalf("expected merged row under the newer id, got %v", row)
	}
	sess, _ := store.GetByID(ctx, models.Sessions, "s1")
	if sess.(*models.Session).EmployeeID != "e-new" {
		t.Fatalf("session not re-pointed, employee_id=%q", sess.(*models.Session).EmployeeID)
	}
}

func TestDownloadCompaniesIgnoreCursorAndScope(t *testing.T) {
	store := mock.NewStore()
	h := newSyncHandler(t, store, nil)

	store.Put(context.Background(), models.Companies, &models.Company{ID: "c1", Domain: "x.test", Modified: 50})

	req := httptest.NewRequest(http.MethodGet, "/v1/sync/download?table=companies&since=999999&employee_id=emp-1", nil)
	w := httptest.NewRecorder()
	h.Download(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var resp struct {
		Changes []json.RawMessage `json:"changes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Changes) != 1 {
		t.Fatalf("companies must download in full regardless of cursor, got %d rows", len(resp.Changes))
	}
}

func TestDownloadEmployeeScopedAndIncremental(t *testing.T) {
	store := mock.NewStore()
	h := newSyncHandler(t, store, nil)
	ctx := context.Background()

	store.Put(ctx, models.Sessions, &models.Session{ID: "s1", EmployeeID: "emp-1", StartTime: 1, Modified: 100})
	store.Put(ctx, models.Sessions, &models.Session{ID: "s2", EmployeeID: "emp-2", StartTime: 1, Modified: 150})
	store.Put(ctx, models.Sessions, &models.Session{ID: "s3", EmployeeID: "emp-1", StartTime: 1, Modified: 50})

	req := httptest.NewRequest(http.MethodGet, "/v1/sync/download?table=sessions&since=60&employee_id=emp-1", nil)
	w := httptest.NewRecorder()
	h.Download(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var resp struct {
		Changes []models.Session `json:"changes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Changes) != 1 || resp.Changes[0].ID != "s1" {
		t.Fatalf("expected only s1 (emp-1, modified after 60), got %+v", resp.Changes)
	}
}

type fakePresigner struct {
	lastEmployee string
	err          error
}

func (f *fakePresigner) PresignPut(ctx context.Context, employeeID string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.lastEmployee = employeeID
	return "screenshots/" + employeeID + "/shot.png", "https://storage.test/put", nil
}

func TestPresignScreenshot(t *testing.T) {
	presigner := &fakePresigner{}
	h := newSyncHandler(t, mock.NewStore(), presigner)

	req := httptest.NewRequest(http.MethodPost, "/v1/screenshots/presign", nil)
	req = req.WithContext(context.WithValue(req.Context(), api.CtxEmployeeID, "emp-1"))
	w := httptest.NewRecorder()
	h.PresignScreenshot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var resp struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Key == "" || resp.URL == "" {
		t.Fatalf("expected key and url, got %+v", resp)
	}
	if presigner.lastEmployee != "emp-1" {
		t.Fatalf("presign not scoped to token employee, got %q", presigner.lastEmployee)
	}
}

func TestPresignScreenshotWithoutEmployeeToken(t *testing.T) {
	h := newSyncHandler(t, mock.NewStore(), &fakePresigner{})

	req := httptest.NewRequest(http.MethodPost, "/v1/screenshots/presign", nil)
	w := httptest.NewRecorder()
	h.PresignScreenshot(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
}

func TestPresignScreenshotFailure(t *testing.T) {
	h := newSyncHandler(t, mock.NewStore(), &fakePresigner{err: fmt.Errorf("bucket gone")})

	req := httptest.NewRequest(http.MethodPost, "/v1/screenshots/presign", nil)
	req = req.WithContext(context.WithValue(req.Context(), api.CtxEmployeeID, "emp-1"))
	w := httptest.NewRecorder()
	h.PresignScreenshot(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
}
