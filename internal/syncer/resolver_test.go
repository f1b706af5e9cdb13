package syncer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrations "github.com/sboruta/tracker/db"
	dbpkg "github.com/sboruta/tracker/internal/db"
	"github.com/sboruta/tracker/internal/repository/sqlite"
	"github.com/sboruta/tracker/internal/syncer"
	"github.com/sboruta/tracker/pkg/models"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, dbpkg.Migrate(ctx, d, migrations.Migrations))
	return sqlite.New(d, nil)
}

func TestLastWriterWinsEitherOrder(t *testing.T) {
	older := &models.Company{ID: "c1", Name: "old", Domain: "x.test", Modified: 100}
	newer := &models.Company{ID: "c1", Name: "new", Domain: "x.test", Modified: 200}

	for name, order := range map[string][]*models.Company{
		"old-then-new": {older, newer},
		"new-then-old": {newer, older},
	} {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			r := syncer.NewResolver(nil)
			ctx := context.Background()

			for _, row := range order {
				c := *row // apply a copy; rows are mutated by merges
				require.NoError(t, r.Apply(ctx, store, models.Companies, &c))
			}

			got, err := store.GetByID(ctx, models.Companies, "c1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "new", got.(*models.Company).Name)
			assert.Equal(t, int64(200), got.LastModified())
		})
	}
}

func TestEqualTimestampDiscardedSilently(t *testing.T) {
	store := newStore(t)
	r := syncer.NewResolver(nil)
	ctx := context.Background()

	first := &models.Company{ID: "c1", Name: "first", Domain: "x.test", Modified: 100}
	require.NoError(t, r.Apply(ctx, store, models.Companies, first))

	same := &models.Company{ID: "c1", Name: "second", Domain: "x.test", Modified: 100}
	require.NoError(t, r.Apply(ctx, store, models.Companies, same))

	got, err := store.GetByID(ctx, models.Companies, "c1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.(*models.Company).Name, "equal timestamps must keep the stored row")
}

func TestIdempotentReapply(t *testing.T) {
	store := newStore(t)
	r := syncer.NewResolver(nil)
	ctx := context.Background()

	row := &models.Session{ID: "s1", EmployeeID: "e1", StartTime: 50, Modified: 100}
	require.NoError(t, r.Apply(ctx, store, models.Sessions, row))
	require.NoError(t, r.Apply(ctx, store, models.Sessions, row))

	all, err := store.List(ctx, models.Sessions, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, int64(100), all[0].LastModified())
}

func TestTombstoneMonotonicity(t *testing.T) {
	store := newStore(t)
	r := syncer.NewResolver(nil)
	ctx := context.Background()

	deletedAt := int64(180)
	tombstone := &models.Session{ID: "s1", EmployeeID: "e1", StartTime: 50, Modified: 200, DeletedAt: &deletedAt}
	require.NoError(t, r.Apply(ctx, store, models.Sessions, tombstone))

	// an older live write must not resurrect the row
	live := &models.Session{ID: "s1", EmployeeID: "e1", StartTime: 50, Modified: 150}
	require.NoError(t, r.Apply(ctx, store, models.Sessions, live))

	got, err := store.GetByID(ctx, models.Sessions, "s1")
	require.NoError(t, err)
	assert.True(t, got.Deleted(), "tombstone overwritten by older live row")

	// a newer live write may
	revived := &models.Session{ID: "s1", EmployeeID: "e1", StartTime: 50, Modified: 300}
	require.NoError(t, r.Apply(ctx, store, models.Sessions, revived))
	got, err = store.GetByID(ctx, models.Sessions, "s1")
	require.NoError(t, err)
	assert.False(t, got.Deleted())
}

func TestNaturalKeyIdentityMerge(t *testing.T) {
	store := newStore(t)
	r := syncer.NewResolver(nil)
	ctx := context.Background()

	// the same person created locally under one id, with a session
	local := &models.Employee{ID: "E2", Email: "a@x.com", Name: "local copy", Modified: 90}
	require.NoError(t, store.Put(ctx, models.Employees, local))
	sess := &models.Session{ID: "s1", EmployeeID: "E2", StartTime: 10, Modified: 90}
	require.NoError(t, store.Put(ctx, models.Sessions, sess))

	// the central store's copy arrives under a different id, newer
	remote := &models.Employee{ID: "E1", Email: "a@x.com", Name: "central copy", Modified: 100}
	require.NoError(t, r.Apply(ctx, store, models.Employees, remote))

	// one logical employee remains, keyed by the incoming id
	all, err := store.List(ctx, models.Employees, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "E1", all[0].RowID())
	assert.Equal(t, "central copy", all[0].(*models.Employee).Name)

	// and the session follows the merged identity
	got, err := store.GetByID(ctx, models.Sessions, "s1")
	require.NoError(t, err)
	assert.Equal(t, "E1", got.(*models.Session).EmployeeID)
}

func TestNaturalKeyMergeKeepsNewerStoredIdentity(t *testing.T) {
	store := newStore(t)
	r := syncer.NewResolver(nil)
	ctx := context.Background()

	local := &models.Employee{ID: "E2", Email: "a@x.com", Name: "newer local", Modified: 200}
	require.NoError(t, store.Put(ctx, models.Employees, local))

	remote := &models.Employee{ID: "E1", Email: "a@x.com", Name: "older central", Modified: 100}
	require.NoError(t, r.Apply(ctx, store, models.Employees, remote))

	// the older duplicate is discarded wholesale; the stored identity wins
	all, err := store.List(ctx, models.Employees, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "E2", all[0].RowID())
	assert.Equal(t, "newer local", all[0].(*models.Employee).Name)
}

// Whole-row last-writer-wins means concurrent edits to different fields of
// the same row do not merge: the losing side's change disappears entirely.
// This is the documented trade-off of the policy, not a defect.
func TestWholeRowOverwriteDropsLosingSidesFieldEdit(t *testing.T) {
	store := newStore(t)
	r := syncer.NewResolver(nil)
	ctx := context.Background()

	base := &models.Employee{ID: "e1", Email: "p@x.com", Name: "base", Role: "worker", Modified: 100}
	require.NoError(t, store.Put(ctx, models.Employees, base))

	// side A renamed at t=150, side B changed the role at t=160
	renamed := &models.Employee{ID: "e1", Email: "p@x.com", Name: "renamed", Role: "worker", Modified: 150}
	repromoted := &models.Employee{ID: "e1", Email: "p@x.com", Name: "base", Role: "manager", Modified: 160}

	require.NoError(t, r.Apply(ctx, store, models.Employees, renamed))
	require.NoError(t, r.Apply(ctx, store, models.Employees, repromoted))

	got, err := store.GetByID(ctx, models.Employees, "e1")
	require.NoError(t, err)
	e := got.(*models.Employee)
	assert.Equal(t, "manager", e.Role)
	assert.Equal(t, "base", e.Name, "the rename lost the whole-row race and is gone")
}
