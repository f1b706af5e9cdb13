package capture_test

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sboruta/tracker/internal/capture"
)

func TestPlanMinutesDistinctAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		minutes := capture.PlanMinutes(rng, capture.CapturesPerHour)
		require.Len(t, minutes, capture.CapturesPerHour)

		seen := make(map[int]bool)
		prev := -1
		for _, m := range minutes {
			assert.GreaterOrEqual(t, m, 0)
			assert.Less(t, m, 60)
			assert.False(t, seen[m], "minute offsets must not repeat")
			assert.Greater(t, m, prev, "offsets are sorted ascending")
			seen[m] = true
			prev = m
		}
	}
}

func TestPlanMinutesVariesAcrossHours(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	a := capture.PlanMinutes(rng, capture.CapturesPerHour)
	b := capture.PlanMinutes(rng, capture.CapturesPerHour)
	assert.NotEqual(t, a, b)
}

func TestIdleWatcherEmitsReadings(t *testing.T) {
	defer goleak.VerifyNone(t)

	var idle atomic.Int64
	probe := func() (time.Duration, error) {
		return time.Duration(idle.Load()) * time.Second, nil
	}

	var last atomic.Int64
	w := capture.NewIdleWatcher(probe, func(d time.Duration) {
		last.Store(int64(d / time.Second))
	}, nil)
	w.SetPeriod(time.Millisecond)

	w.Start(context.Background())

	idle.Store(700)
	assert.Eventually(t, func() bool { return last.Load() == 700 }, time.Second, time.Millisecond)

	w.Stop()
}
