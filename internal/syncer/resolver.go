package syncer

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/sboruta/tracker/pkg/models"
	"github.com/sboruta/tracker/pkg/repository"
)

// Decision is the outcome of comparing an incoming row against the stored one.
type Decision int

const (
	// Keep discards the incoming row; the stored row is as new or newer.
	Keep Decision = iota
	// Overwrite replaces the stored row wholesale with the incoming one.
	Overwrite
)

// Policy decides whether an incoming row overwrites the stored row.
// existing is nil when no row with the incoming id exists yet.
type Policy interface {
	Resolve(existing, incoming models.Row) Decision
}

// LastWriterWins applies whole-row last-writer-wins: the incoming row lands
// only when it is strictly newer. Equal timestamps keep the stored row, so
// re-applying an already-synced batch is a no-op. Tombstones follow the same
// rule, so an older write can never resurrect a newer tombstone.
type LastWriterWins struct{}

func (LastWriterWins) Resolve(existing, incoming models.Row) Decision {
	if existing == nil || existing.LastModified() < incoming.LastModified() {
		return Overwrite
	}
	return Keep
}

// Resolver applies incoming rows (from either sync direction) to a row
// store. Tables with a natural key get an identity-merge pre-pass: when the
// same logical entity was created independently on two sides under
// different generated ids, the stored row is re-keyed to the incoming id
// before the timestamp comparison runs.
type Resolver struct {
	policies map[string]Policy
	logger   *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{policies: make(map[string]Policy), logger: logger}
}

// SetPolicy overrides the conflict policy for one table. Tables without an
// override use LastWriterWins.
func (r *Resolver) SetPolicy(table models.Table, p Policy) {
	r.policies[table.Name] = p
}

func (r *Resolver) policy(table models.Table) Policy {
	if p, ok := r.policies[table.Name]; ok {
		return p
	}
	return LastWriterWins{}
}

// Apply runs the conflict algorithm for one incoming row. It is used both
// by the agent (applying downloaded rows to the local store) and by the
// central sync endpoint (applying uploaded rows), so both sides converge on
// identical state.
func (r *Resolver) Apply(ctx context.Context, store repository.RowStore, table models.Table, incoming models.Row) error {
	if incoming.RowID() == "" {
		return fmt.Errorf("apply %s: row without id", table.Name)
	}

	if table.NaturalKey != "" && table.KeyOf != nil {
		key := table.KeyOf(incoming)
		if key != "" {
			existing, err := store.GetByKey(ctx, table, key)
			if err != nil {
				return fmt.Errorf("apply %s: lookup by %s: %w", table.Name, table.NaturalKey, err)
			}
			if existing != nil && existing.RowID() != incoming.RowID() {
				// Same logical entity created on two sides under different
				// ids. The identity with the later modification becomes
				// canonical: when the incoming row wins the timestamp
				// comparison the stored row is re-keyed to the incoming id
				// (dragging every reference along); when the stored row is
				// newer the incoming duplicate is discarded and its
				// references converge once the re-keyed rows sync back.
				if r.policy(table).Resolve(existing, incoming) == Keep {
					return nil
				}
				if err := store.Rekey(ctx, table, existing.RowID(), incoming.RowID()); err != nil {
					return fmt.Errorf("apply %s: identity merge: %w", table.Name, err)
				}
				r.logger.Info("identity merge",
					slog.String("table", table.Name),
					slog.String("key", key),
					slog.String("from", existing.RowID()),
					slog.String("to", incoming.RowID()),
				)
			}
		}
	}

	existing, err := store.GetByID(ctx, table, incoming.RowID())
	if err != nil {
		return fmt.Errorf("apply %s: lookup %s: %w", table.Name, incoming.RowID(), err)
	}

	if r.policy(table).Resolve(existing, incoming) == Keep {
		return nil
	}
	if err := store.Put(ctx, table, incoming); err != nil {
		return fmt.Errorf("apply %s: %w", table.Name, err)
	}
	return nil
}
