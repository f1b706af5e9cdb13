package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IdleProbe reports how long the system input devices have been quiet.
// The OS-specific implementation lives in the agent binary.
type IdleProbe func() (time.Duration, error)

// IdleWatcher polls an IdleProbe about once per second and forwards each
// reading to a sink. It only emits readings; reacting to them is the
// state machine's job.
type IdleWatcher struct {
	probe  IdleProbe
	sink   func(time.Duration)
	period time.Duration
	logger *slog.Logger
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func NewIdleWatcher(probe IdleProbe, sink func(time.Duration), logger *slog.Logger) *IdleWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdleWatcher{
		probe:  probe,
		sink:   sink,
		period: time.Second,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// SetPeriod overrides the polling period. Tests shorten it.
func (w *IdleWatcher) SetPeriod(d time.Duration) {
	if d > 0 {
		w.period = d
	}
}

func (w *IdleWatcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)
}

func (w *IdleWatcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *IdleWatcher) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.period)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			idle, err := w.probe()
			if err != nil {
				w.logger.Warn("idle probe failed", "error", err)
				continue
			}
			w.sink(idle)
		}
	}
}
