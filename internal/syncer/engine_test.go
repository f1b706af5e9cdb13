package syncer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sboruta/tracker/internal/repository/sqlite"
	"github.com/sboruta/tracker/internal/syncer"
	"github.com/sboruta/tracker/pkg/models"
)

// fakeCentral is a minimal sync endpoint: it records uploads and serves
// canned downloads, with per-table upload failure injection.
type fakeCentral struct {
	mu         sync.Mutex
	uploads    map[string][]json.RawMessage
	downloads  map[string][]json.RawMessage
	failUpload map[string]bool
	lastQuery  map[string]map[string]string
}

func newFakeCentral() *fakeCentral {
	return &fakeCentral{
		uploads:    make(map[string][]json.RawMessage),
		downloads:  make(map[string][]json.RawMessage),
		failUpload: make(map[string]bool),
		lastQuery:  make(map[string]map[string]string),
	}
}

func (f *fakeCentral) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sync/upload", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Table   string            `json:"table"`
			Changes []json.RawMessage `json:"changes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failUpload[req.Table] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		f.uploads[req.Table] = append(f.uploads[req.Table], req.Changes...)
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/v1/sync/download", func(w http.ResponseWriter, r *http.Request) {
		table := r.URL.Query().Get("table")
		f.mu.Lock()
		f.lastQuery[table] = map[string]string{
			"since":       r.URL.Query().Get("since"),
			"employee_id": r.URL.Query().Get("employee_id"),
		}
		changes := f.downloads[table]
		f.mu.Unlock()
		if changes == nil {
			changes = []json.RawMessage{}
		}
		json.NewEncoder(w).Encode(map[string]any{"changes": changes})
	})
	return mux
}

func (f *fakeCentral) uploaded(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads[table])
}

func newEngine(t *testing.T, central *fakeCentral, employeeID string) (*syncer.Engine, *sqlite.Store) {
	t.Helper()
	srv := httptest.NewServer(central.handler())
	t.Cleanup(srv.Close)

	store := newStore(t)
	client := syncer.NewClient(srv.URL, "test-token", nil)
	engine := syncer.NewEngine(store, client, syncer.NewResolver(nil), employeeID, nil)
	return engine, store
}

func TestSyncTableUploadsDirtyAndAdvancesCursor(t *testing.T) {
	central := newFakeCentral()
	engine, store := newEngine(t, central, "e1")
	ctx := context.Background()

	sess := &models.Session{ID: "s1", EmployeeID: "e1", StartTime: 100}
	require.NoError(t, store.UpsertLocal(ctx, models.Sessions, sess))

	require.NoError(t, engine.SyncTable(ctx, models.Sessions))

	assert.Equal(t, 1, central.uploaded("sessions"))

	cursor, err := store.Cursor(ctx, models.Sessions)
	require.NoError(t, err)
	assert.Greater(t, cursor, int64(0), "cursor must advance after a successful cycle")

	// second cycle has nothing dirty; upload is skipped entirely
	require.NoError(t, engine.SyncTable(ctx, models.Sessions))
	assert.Equal(t, 1, central.uploaded("sessions"))
}

func TestCompaniesAlwaysDownloadInFull(t *testing.T) {
	central := newFakeCentral()
	engine, store := newEngine(t, central, "e1")
	ctx := context.Background()

	// pretend an earlier cycle completed long ago
	require.NoError(t, store.SetCursor(ctx, models.Companies, 99999))

	require.NoError(t, engine.SyncTable(ctx, models.Companies))

	q := central.lastQuery["companies"]
	require.NotNil(t, q)
	assert.Equal(t, "0", q["since"], "companies must be requested unscoped from zero")
	assert.Equal(t, "", q["employee_id"])
}

func TestEmployeeScopedDownload(t *testing.T) {
	central := newFakeCentral()
	engine, _ := newEngine(t, central, "emp-42")
	ctx := context.Background()

	require.NoError(t, engine.SyncTable(ctx, models.Screenshots))

	q := central.lastQuery["screenshots"]
	require.NotNil(t, q)
	assert.Equal(t, "emp-42", q["employee_id"])
}

func TestDownloadedRowsApplyThroughResolver(t *testing.T) {
	central := newFakeCentral()
	engine, store := newEngine(t, central, "e1")
	ctx := context.Background()

	remote, _ := json.Marshal(&models.Company{ID: "c1", Name: "Acme", Domain: "acme.test", Modified: 500})
	central.downloads["companies"] = []json.RawMessage{remote}

	require.NoError(t, engine.SyncTable(ctx, models.Companies))

	got, err := store.GetByID(ctx, models.Companies, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(500), got.LastModified())
}

func TestMalformedDownloadedRowSkippedNotFatal(t *testing.T) {
	central := newFakeCentral()
	engine, store := newEngine(t, central, "e1")
	ctx := context.Background()

	good, _ := json.Marshal(&models.Company{ID: "c-good", Name: "Good", Domain: "good.test", Modified: 10})
	central.downloads["companies"] = []json.RawMessage{
		json.RawMessage(`{"id": 12}`), // wrong type for id
		good,
	}

	require.NoError(t, engine.SyncTable(ctx, models.Companies))

	got, err := store.GetByID(ctx, models.Companies, "c-good")
	require.NoError(t, err)
	assert.NotNil(t, got, "good row must land even when a sibling is malformed")
}

func TestPerTableFailureIsolation(t *testing.T) {
	central := newFakeCentral()
	central.failUpload["sessions"] = true
	engine, store := newEngine(t, central, "e1")
	ctx := context.Background()

	require.NoError(t, store.UpsertLocal(ctx, models.Employees, &models.Employee{ID: "e1", Email: "a@x.com"}))
	require.NoError(t, store.UpsertLocal(ctx, models.Sessions, &models.Session{ID: "s1", EmployeeID: "e1", StartTime: 1}))
	require.NoError(t, store.UpsertLocal(ctx, models.Screenshots, &models.Screenshot{ID: "sc1", SessionID: "s1", EmployeeID: "e1", ImagePath: "k/a.png", CapturedAt: 1}))

	engine.SyncAll(ctx)

	// employees before and screenshots after the failing table both completed
	assert.Equal(t, 1, central.uploaded("employees"))
	assert.Equal(t, 1, central.uploaded("screenshots"))
	assert.Equal(t, 0, central.uploaded("sessions"))

	// the failed table keeps its cursor so the next cycle retries the window
	sessCursor, err := store.Cursor(ctx, models.Sessions)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sessCursor)

	shotCursor, err := store.Cursor(ctx, models.Screenshots)
	require.NoError(t, err)
	assert.Greater(t, shotCursor, int64(0))
}
