package capture

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// CapturesPerHour is how many screenshot/activity captures are scheduled
// within every hour of a working session.
const CapturesPerHour = 6

// PlanMinutes picks n distinct minute offsets within an hour, uniformly at
// random, sorted ascending. The randomization keeps capture times
// unpredictable to the person being tracked.
func PlanMinutes(rng *rand.Rand, n int) []int {
	if n > 60 {
		n = 60
	}
	minutes := rng.Perm(60)[:n]
	sort.Ints(minutes)
	return minutes
}

// Grabber acquires one screenshot and returns the local file path it was
// written to. It is an opaque OS capability supplied by the agent binary.
type Grabber func(ctx context.Context) (string, error)

// Planner drives the hourly capture schedule: at each planned minute it
// grabs a screenshot and hands it to the machine, which decides whether
// the current state allows a capture at all.
type Planner struct {
	machine *Machine
	grab    Grabber
	logger  *slog.Logger
	now     func() time.Time
	rng     *rand.Rand
	perHour int
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewPlanner(machine *Machine, grab Grabber, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		machine: machine,
		grab:    grab,
		logger:  logger,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		perHour: CapturesPerHour,
		stop:    make(chan struct{}),
	}
}

func (p *Planner) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx)
}

func (p *Planner) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *Planner) loop(ctx context.Context) {
	defer p.wg.Done()

	for {
		hourStart := p.now().Truncate(time.Hour)
		minutes := PlanMinutes(p.rng, p.perHour)
		p.logger.Debug("capture minutes planned", "hour", hourStart, "minutes", minutes)

		for _, m := range minutes {
			at := hourStart.Add(time.Duration(m) * time.Minute)
			// the first iteration starts mid-hour; skip offsets already past
			if at.Before(p.now()) {
				continue
			}
			if !p.waitUntil(ctx, at) {
				return
			}
			p.capture(ctx)
		}

		if !p.waitUntil(ctx, hourStart.Add(time.Hour)) {
			return
		}
	}
}

// waitUntil blocks until the wall-clock time at, returning false when the
// planner is stopped or the context is canceled.
func (p *Planner) waitUntil(ctx context.Context, at time.Time) bool {
	d := at.Sub(p.now())
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Planner) capture(ctx context.Context) {
	if p.machine.State() != StateWorking {
		return
	}
	path, err := p.grab(ctx)
	if err != nil {
		// keep the activity row even when the screen grab fails
		p.logger.Warn("screenshot grab failed", "error", err)
		path = ""
	}
	if err := p.machine.Capture(ctx, path); err != nil {
		p.logger.Error("capture persist failed", "error", err)
	}
}
