package syncer

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/sboruta/tracker/pkg/models"
	"github.com/sboruta/tracker/pkg/repository"
)

// Engine drives the per-table sync protocol: upload dirty rows, download
// remote changes, apply them through the resolver, then advance the cursor.
type Engine struct {
	store      repository.LocalStore
	client     *Client
	resolver   *Resolver
	artifacts  *ArtifactUploader
	employeeID string
	logger     *slog.Logger
	now        func() time.Time
}

func NewEngine(store repository.LocalStore, client *Client, resolver *Resolver, employeeID string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		client:     client,
		resolver:   resolver,
		employeeID: employeeID,
		logger:     logger,
		now:        time.Now,
	}
}

// SetArtifactUploader enables screenshot file upload during the screenshots
// table cycle. Optional; without it rows sync with their local image paths.
func (e *Engine) SetArtifactUploader(u *ArtifactUploader) { e.artifacts = u }

// SetNow overrides the engine clock. Tests use it to drive cursor math
// deterministically.
func (e *Engine) SetNow(now func() time.Time) { e.now = now }

// SyncTable runs one full upload+download cycle for a single table. The
// cursor advances to the cycle start time only after both directions
// succeed; a failure leaves the cursor untouched so the next cycle retries
// the same window. Clock skew can re-fetch rows that already applied, which
// is safe because apply is idempotent.
func (e *Engine) SyncTable(ctx context.Context, table models.Table) error {
	cursor, err := e.store.Cursor(ctx, table)
	if err != nil {
		return err
	}
	started := e.now().UTC().UnixMilli()

	dirty, err := e.store.ListDirty(ctx, table, cursor)
	if err != nil {
		return err
	}

	if table.Name == models.Screenshots.Name && e.artifacts != nil {
		// Push image files to object storage first so uploaded rows carry
		// storage keys instead of paths on this machine. Rewritten rows are
		// re-read below to pick up the new paths.
		if err := e.artifacts.UploadPending(ctx, dirty); err != nil {
			return fmt.Errorf("screenshot artifacts: %w", err)
		}
		if dirty, err = e.store.ListDirty(ctx, table, cursor); err != nil {
			return err
		}
	}

	if len(dirty) > 0 {
		if err := e.client.Upload(ctx, table, dirty); err != nil {
			return err
		}
	}

	// Companies download in full every cycle: every other table's foreign
	// keys depend on company rows being present locally, so referential
	// integrity wins over incremental efficiency for this one table.
	since := cursor
	scope := ""
	if table.Name == models.Companies.Name {
		since = 0
	} else if table.EmployeeScoped {
		scope = e.employeeID
	}

	incoming, err := e.client.Download(ctx, table, since, scope)
	if err != nil {
		return err
	}

	for _, row := range incoming {
		if err := e.resolver.Apply(ctx, e.store, table, row); err != nil {
			// one unappliable row must not abort the batch
			e.logger.Warn("skipping row",
				slog.String("table", table.Name),
				slog.String("id", row.RowID()),
				slog.Any("err", err),
			)
		}
	}

	if err := e.store.SetCursor(ctx, table, started); err != nil {
		return err
	}

	e.logger.Info("table synced",
		slog.String("table", table.Name),
		slog.Int("uploaded", len(dirty)),
		slog.Int("downloaded", len(incoming)),
	)
	return nil
}

// SyncAll runs every table in foreign-key order. A failing table is logged
// and skipped; the remaining tables still run, and the failed table is
// retried implicitly on the next cycle.
func (e *Engine) SyncAll(ctx context.Context) {
	for _, table := range models.SyncOrder {
		if err := e.SyncTable(ctx, table); err != nil {
			e.logger.Error("table sync failed",
				slog.String("table", table.Name),
				slog.Any("err", err),
			)
		}
	}
}
