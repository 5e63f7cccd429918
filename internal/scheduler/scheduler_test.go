package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestScheduler_EveryRunsPeriodically(t *testing.T) {
	s := New(testLogger())
	defer s.Stop()

	var count atomic.Int32
	s.Every(1, 20*time.Millisecond, func() { count.Add(1) })

	assert.Eventually(t, func() bool { return count.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_CancelStopsTask(t *testing.T) {
	s := New(testLogger())
	defer s.Stop()

	var count atomic.Int32
	s.Every(1, 15*time.Millisecond, func() { count.Add(1) })
	assert.Eventually(t, func() bool { return count.Load() >= 1 }, time.Second, 5*time.Millisecond)

	s.Cancel(1)
	after := count.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, count.Load(), "no further runs after cancel")
}

func TestScheduler_CancelIdempotent(t *testing.T) {
	s := New(testLogger())
	defer s.Stop()

	assert.NotPanics(t, func() {
		s.Cancel(999)
		s.Cancel(999)
	})
}

func TestScheduler_IsScheduledAndRunning(t *testing.T) {
	s := New(testLogger())
	defer s.Stop()

	assert.False(t, s.IsScheduled(1))
	s.Every(1, time.Hour, func() {})
	assert.True(t, s.IsScheduled(1))
	assert.Contains(t, s.Running(), int64(1))

	s.Cancel(1)
	assert.False(t, s.IsScheduled(1))
	assert.NotContains(t, s.Running(), int64(1))
}

func TestScheduler_EveryReplacesExisting(t *testing.T) {
	s := New(testLogger())
	defer s.Stop()

	var firstCount, secondCount atomic.Int32
	s.Every(1, 10*time.Millisecond, func() { firstCount.Add(1) })
	time.Sleep(15 * time.Millisecond)
	s.Every(1, 10*time.Millisecond, func() { secondCount.Add(1) })

	assert.Eventually(t, func() bool { return secondCount.Load() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, s.Running(), 1)
}

func TestScheduler_PanicRecoveredTaskContinues(t *testing.T) {
	s := New(testLogger())
	defer s.Stop()

	var count atomic.Int32
	s.Every(1, 15*time.Millisecond, func() {
		count.Add(1)
		panic("boom")
	})

	assert.Eventually(t, func() bool { return count.Load() >= 2 }, time.Second, 5*time.Millisecond)
}
