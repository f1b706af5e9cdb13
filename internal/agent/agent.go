// Package agent wires the capture and sync machinery into the offline-first
// desktop process: a local SQLite store, the capture session state machine,
// idle detection, the hourly screenshot planner, and the periodic sync
// scheduler.
package agent

import (
	"context"
	"fmt"
	"os"
	"time"

	"log/slog"

	migrations "github.com/sboruta/tracker/db"
	"github.com/sboruta/tracker/internal/capture"
	"github.com/sboruta/tracker/internal/config"
	"github.com/sboruta/tracker/internal/db"
	"github.com/sboruta/tracker/internal/repository/sqlite"
	"github.com/sboruta/tracker/internal/syncer"
)

type Agent struct {
	cfg    *config.AgentConfig
	state  *State
	logger *slog.Logger

	conn      *db.DB
	store     *sqlite.Store
	machine   *capture.Machine
	idle      *capture.IdleWatcher
	planner   *capture.Planner
	engine    *syncer.Engine
	scheduler *syncer.Scheduler
}

// New opens the local store, runs its migrations and wires every
// component. A store that cannot be opened or migrated is fatal; the agent
// has nothing to fall back on without its local database.
func New(ctx context.Context, cfg *config.AgentConfig, state *State, probe capture.IdleProbe, grab capture.Grabber, logger *slog.Logger) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !state.Authenticated() {
		return nil, capture.ErrNotAuthenticated
	}

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	conn, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.Migrate(ctx, conn, migrations.Migrations); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	store := sqlite.New(conn, logger)

	machine := capture.NewMachine(store, logger)
	machine.BindIdentity(state.EmployeeID)
	machine.OnResumeRequired(func() {
		logger.Warn("session paused after inactivity; resume required")
	})

	client := syncer.NewClient(cfg.ServerURL, state.Token, logger)
	resolver := syncer.NewResolver(logger)
	engine := syncer.NewEngine(store, client, resolver, state.EmployeeID, logger)
	engine.SetArtifactUploader(syncer.NewArtifactUploader(store, client, logger))

	a := &Agent{
		cfg:       cfg,
		state:     state,
		logger:    logger,
		conn:      conn,
		store:     store,
		machine:   machine,
		engine:    engine,
		scheduler: syncer.NewScheduler(cfg.SyncInterval, engine.SyncAll, logger),
		idle:      capture.NewIdleWatcher(probe, machine.HandleIdle, logger),
		planner:   capture.NewPlanner(machine, grab, logger),
	}
	return a, nil
}

// Run starts tracking and blocks until ctx is canceled, then closes the
// open session and flushes one final sync cycle.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.machine.Start(ctx); err != nil {
		return err
	}

	a.scheduler.Start(ctx)
	a.idle.Start(ctx)
	a.planner.Start(ctx)

	a.logger.Info("agent running",
		"employee_id", a.state.EmployeeID,
		"sync_interval", a.cfg.SyncInterval.String(),
	)

	<-ctx.Done()
	a.logger.Info("shutting down")

	a.planner.Stop()
	a.idle.Stop()
	a.scheduler.Stop()

	// close the session and push it out before the process exits
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.machine.Stop(shutdownCtx); err != nil {
		a.logger.Error("failed to close session", "error", err)
	}
	a.engine.SyncAll(shutdownCtx)

	return a.conn.Close()
}

// SyncOnce drives a single sync cycle over every table.
func (a *Agent) SyncOnce(ctx context.Context) {
	a.engine.SyncAll(ctx)
}

// Machine exposes the capture state machine to the CLI surface.
func (a *Agent) Machine() *capture.Machine { return a.machine }

// Close releases the local store without a final sync.
func (a *Agent) Close() error { return a.conn.Close() }
