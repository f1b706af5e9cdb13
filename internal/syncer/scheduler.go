package syncer

import (
	"context"
	"sync"
	"time"

	"log/slog"
)

// Scheduler runs a cycle function on a fixed period and on demand. Failures
// inside the cycle are the cycle's own business (the engine isolates them
// per table); the scheduler only guarantees the next tick still happens.
type Scheduler struct {
	interval time.Duration
	run      func(context.Context)
	logger   *slog.Logger
	trigger  chan struct{}
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(interval time.Duration, run func(context.Context), logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		run:      run,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Start launches the scheduling loop. The first cycle runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop signals the loop to exit and waits for the in-flight cycle.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// Trigger requests an immediate cycle (e.g. on explicit operator request).
// A trigger while a request is already pending is coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.run(ctx)

	for {
		select {
		case <-s.stop:
			s.logger.Info("sync scheduler stopping")
			return
		case <-ctx.Done():
			s.logger.Info("context canceled, sync scheduler exiting")
			return
		case <-ticker.C:
			s.run(ctx)
		case <-s.trigger:
			s.run(ctx)
		}
	}
}
