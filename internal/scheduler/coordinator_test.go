package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegister_ValidatesInput tests the registration guards
func TestRegister_ValidatesInput(t *testing.T) {
	coordinator := NewCoordinator(20*time.Millisecond, 2, time.Second, nil)
	noop := func(ctx context.Context) error { return nil }

	_, err := coordinator.Register("", time.Second, noop)
	assert.Error(t, err)

	_, err = coordinator.Register("cycle", 0, noop)
	assert.Error(t, err)

	_, err = coordinator.Register("cycle", time.Second, nil)
	assert.Error(t, err)

	id, err := coordinator.Register("cycle", time.Second, noop)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = coordinator.Register("cycle", time.Second, noop)
	assert.Error(t, err, "duplicate names must be rejected")
}

// TestStart_TwiceIsAnError tests the lifecycle guards
func TestStart_TwiceIsAnError(t *testing.T) {
	coordinator := NewCoordinator(20*time.Millisecond, 2, time.Second, nil)

	require.NoError(t, coordinator.Start())
	assert.Error(t, coordinator.Start())

	coordinator.Stop()
	coordinator.Stop() // stopping a stopped coordinator is a no-op

	assert.False(t, coordinator.Stats().Started)
}

// TestDispatch_OperationNeverOverlapsItself tests that one operation is never
// dispatched while a previous run is still in flight
func TestDispatch_OperationNeverOverlapsItself(t *testing.T) {
	coordinator := NewCoordinator(10*time.Millisecond, 3, time.Second, nil)

	var inFlight, maxInFlight, runs int64
	_, err := coordinator.Register("slow-cycle", time.Millisecond, func(ctx context.Context) error {
		current := atomic.AddInt64(&inFlight, 1)
		for {
			observed := atomic.LoadInt64(&maxInFlight)
			if current <= observed || atomic.CompareAndSwapInt64(&maxInFlight, observed, current) {
				break
			}
		}
		time.Sleep(40 * time.Millisecond)
		atomic.AddInt64(&runs, 1)
		atomic.AddInt64(&inFlight, -1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, coordinator.Start())
	time.Sleep(300 * time.Millisecond)
	coordinator.Stop()

	assert.Equal(t, int64(1), atomic.LoadInt64(&maxInFlight))
	assert.GreaterOrEqual(t, atomic.LoadInt64(&runs), int64(2))
}

// TestDispatch_RespectsConcurrencyCap tests the global concurrency budget
func TestDispatch_RespectsConcurrencyCap(t *testing.T) {
	coordinator := NewCoordinator(10*time.Millisecond, 2, time.Second, nil)

	var inFlight, maxInFlight int64
	handler := func(ctx context.Context) error {
		current := atomic.AddInt64(&inFlight, 1)
		for {
			observed := atomic.LoadInt64(&maxInFlight)
			if current <= observed || atomic.CompareAndSwapInt64(&maxInFlight, observed, current) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil
	}

	for i := 0; i < 4; i++ {
		_, err := coordinator.Register(fmt.Sprintf("op-%d", i), time.Millisecond, handler)
		require.NoError(t, err)
	}

	require.NoError(t, coordinator.Start())
	time.Sleep(250 * time.Millisecond)
	coordinator.Stop()

	assert.LessOrEqual(t, atomic.LoadInt64(&maxInFlight), int64(2))
	assert.Greater(t, coordinator.Stats().TotalExecutions, uint64(0))
}

// TestRun_FailingOperationIsRecorded tests that handler errors are captured
// without stopping the coordinator
func TestRun_FailingOperationIsRecorded(t *testing.T) {
	coordinator := NewCoordinator(10*time.Millisecond, 2, time.Second, nil)

	var healthyRuns int64
	_, err := coordinator.Register("failing", time.Millisecond, func(ctx context.Context) error {
		return fmt.Errorf("collaborator down")
	})
	require.NoError(t, err)
	_, err = coordinator.Register("healthy", time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&healthyRuns, 1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, coordinator.Start())
	time.Sleep(150 * time.Millisecond)
	coordinator.Stop()

	stats := coordinator.Stats()
	assert.Greater(t, stats.TotalErrors, uint64(0))
	assert.Greater(t, atomic.LoadInt64(&healthyRuns), int64(0))

	for _, op := range stats.Operations {
		if op.Name == "failing" {
			assert.Contains(t, op.LastError, "collaborator down")
		}
	}
}

// TestRun_PanickingOperationIsContained tests the per-operation panic boundary
func TestRun_PanickingOperationIsContained(t *testing.T) {
	coordinator := NewCoordinator(10*time.Millisecond, 2, time.Second, nil)

	_, err := coordinator.Register("panicky", time.Millisecond, func(ctx context.Context) error {
		panic("boom")
	})
	require.NoError(t, err)

	require.NoError(t, coordinator.Start())
	time.Sleep(100 * time.Millisecond)
	coordinator.Stop()

	stats := coordinator.Stats()
	assert.Greater(t, stats.TotalErrors, uint64(0))
	require.Len(t, stats.Operations, 1)
	assert.Contains(t, stats.Operations[0].LastError, "panicked")
}

// TestRun_TimeoutIsRecorded tests the per-operation timeout race
func TestRun_TimeoutIsRecorded(t *testing.T) {
	coordinator := NewCoordinator(10*time.Millisecond, 2, 50*time.Millisecond, nil)

	_, err := coordinator.Register("hung", time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(time.Second)
		return ctx.Err()
	})
	require.NoError(t, err)

	require.NoError(t, coordinator.Start())
	time.Sleep(200 * time.Millisecond)
	coordinator.Stop()

	stats := coordinator.Stats()
	assert.Greater(t, stats.TotalErrors, uint64(0))
	require.Len(t, stats.Operations, 1)
	assert.Contains(t, stats.Operations[0].LastError, "timed out")
}

// TestSetInterval_ChangesSchedule tests interval updates on a live operation
func TestSetInterval_ChangesSchedule(t *testing.T) {
	coordinator := NewCoordinator(20*time.Millisecond, 2, time.Second, nil)

	id, err := coordinator.Register("cycle", time.Hour, func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	assert.Error(t, coordinator.SetInterval(id, 0))
	assert.Error(t, coordinator.SetInterval("missing", time.Second))
	require.NoError(t, coordinator.SetInterval(id, 10*time.Millisecond))

	require.NoError(t, coordinator.Start())
	time.Sleep(150 * time.Millisecond)
	coordinator.Stop()

	stats := coordinator.Stats()
	require.Len(t, stats.Operations, 1)
	assert.Greater(t, stats.Operations[0].ExecutionCount, uint64(0))
	assert.Equal(t, 10*time.Millisecond, stats.Operations[0].Interval)
}

// TestStats_OperationsSortedByName tests the snapshot ordering
func TestStats_OperationsSortedByName(t *testing.T) {
	coordinator := NewCoordinator(time.Second, 2, time.Second, nil)
	noop := func(ctx context.Context) error { return nil }

	for _, name := range []string{"cleanup", "assessment", "monitoring"} {
		_, err := coordinator.Register(name, time.Minute, noop)
		require.NoError(t, err)
	}

	stats := coordinator.Stats()
	require.Len(t, stats.Operations, 3)
	assert.Equal(t, "assessment", stats.Operations[0].Name)
	assert.Equal(t, "cleanup", stats.Operations[1].Name)
	assert.Equal(t, "monitoring", stats.Operations[2].Name)
}
