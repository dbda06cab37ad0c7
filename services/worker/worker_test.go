package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"sjsage522/promoradar/pkg/errors"

	"github.com/stretchr/testify/assert"
)

// MockRunner implements CycleRunner for testing
type MockRunner struct {
	mu    sync.Mutex
	calls int
	err   error
	ran   chan struct{}
}

var _ CycleRunner = (*MockRunner)(nil)

func NewMockRunner() *MockRunner {
	return &MockRunner{ran: make(chan struct{}, 16)}
}

func (m *MockRunner) RunCycle(context.Context) (int, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	m.mu.Unlock()
	m.ran <- struct{}{}
	if err != nil {
		return 0, err
	}
	return 3, nil
}

func (m *MockRunner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitForCycle(t *testing.T, m *MockRunner) {
	t.Helper()
	select {
	case <-m.ran:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a cycle")
	}
}

// TestWorkerRunsImmediately tests that the first cycle does not wait for the interval
func TestWorkerRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewMockRunner()
	w := NewWorker(runner, time.Hour, true)

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	waitForCycle(t, runner)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Worker did not stop after cancel")
	}
	assert.Equal(t, 1, runner.Calls())
}

// TestWorkerInterval tests that ticks run further cycles
func TestWorkerInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := NewMockRunner()
	w := NewWorker(runner, 20*time.Millisecond, false)

	go w.Start(ctx)

	for i := 0; i < 3; i++ {
		waitForCycle(t, runner)
	}
	assert.GreaterOrEqual(t, runner.Calls(), 3)
}

// TestWorkerTrigger tests the manual refresh
func TestWorkerTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := NewMockRunner()
	w := NewWorker(runner, time.Hour, false)

	go w.Start(ctx)
	waitForCycle(t, runner)

	assert.True(t, w.Trigger())
	waitForCycle(t, runner)
	assert.Equal(t, 2, runner.Calls())
}

// TestWorkerTriggerCoalesces tests that pending triggers collapse into one
func TestWorkerTriggerCoalesces(t *testing.T) {
	w := NewWorker(NewMockRunner(), time.Hour, false)

	assert.True(t, w.Trigger())
	assert.False(t, w.Trigger())
}

// TestWorkerWithError tests that a failed cycle does not stop the worker
func TestWorkerWithError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := NewMockRunner()
	runner.err = errors.NewPersistence("failed to write snapshot", nil)
	w := NewWorker(runner, time.Hour, false)

	go w.Start(ctx)
	waitForCycle(t, runner)

	w.Trigger()
	waitForCycle(t, runner)
	assert.Equal(t, 2, runner.Calls())
}

// TestWorkerSkipsAfterShutdown tests that no cycle starts once ctx is done
func TestWorkerSkipsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewMockRunner()
	w := NewWorker(runner, time.Hour, false)

	w.Start(ctx)
	assert.Zero(t, runner.Calls())
}
