package worker

// ============================================================================
// Worker Runtime Test File
// Purpose: Verify task execution, timeout isolation, worker error handling,
//          and poison-pill shutdown.
// ============================================================================

import (
	"errors"
	"testing"
	"time"

	"github.com/mrafferty/forkmap/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func double(args []any) (any, error) {
	x := args[0].(int)
	return x * 2, nil
}

func failing(args []any) (any, error) {
	return nil, errors.New("boom")
}

func sleeper(args []any) (any, error) {
	time.Sleep(args[0].(time.Duration))
	return "done", nil
}

// TestWorkerExecutesTask verifies a single successful invocation.
func TestWorkerExecutesTask(t *testing.T) {
	in := make(chan Msg)
	out := make(chan task.Result, 1)

	h := Spawn(double, Config{}, in, out)
	in <- Msg{Task: task.Task{ID: 1, Args: []any{21}}}

	result := <-out
	assert.Equal(t, uint64(1), result.TaskID)
	require.True(t, result.Value.IsOk())
	assert.Equal(t, 42, result.Value.Value)
	assert.Equal(t, h.ID, result.Origin)

	h.Poison()
	h.Wait()
}

// TestWorkerErrorContinues verifies that a WorkerError is delivered as a
// value and the worker keeps serving subsequent tasks.
func TestWorkerErrorContinues(t *testing.T) {
	in := make(chan Msg)
	out := make(chan task.Result, 2)

	h := Spawn(failing, Config{}, in, out)
	in <- Msg{Task: task.Task{ID: 1}}
	first := <-out
	require.True(t, first.Value.IsWorkerError())
	assert.ErrorContains(t, first.Value.Err, "boom")

	in <- Msg{Task: task.Task{ID: 2, Args: []any{}}}
	second := <-out
	assert.True(t, second.Value.IsWorkerError())

	h.Poison()
	h.Wait()
}

// TestWorkerTimeoutExitsAfterResult verifies the worker emits a Timeout
// outcome and then terminates rather than continuing to serve tasks.
func TestWorkerTimeoutExitsAfterResult(t *testing.T) {
	in := make(chan Msg)
	out := make(chan task.Result, 1)

	h := Spawn(sleeper, Config{Timeout: 20 * time.Millisecond}, in, out)
	in <- Msg{Task: task.Task{ID: 7, Args: []any{200 * time.Millisecond}}}

	result := <-out
	assert.True(t, result.Value.IsTimeout())
	assert.Equal(t, uint64(7), result.TaskID)

	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after timeout")
	}
}

// TestWorkerUnboundedTimeoutWaitsForever verifies timeout <= 0 means the
// worker will wait out a slow task rather than report a spurious timeout.
func TestWorkerUnboundedTimeoutWaitsForever(t *testing.T) {
	in := make(chan Msg)
	out := make(chan task.Result, 1)

	h := Spawn(sleeper, Config{}, in, out)
	in <- Msg{Task: task.Task{ID: 1, Args: []any{30 * time.Millisecond}}}

	result := <-out
	require.True(t, result.Value.IsOk())
	assert.Equal(t, "done", result.Value.Value)

	h.Poison()
	h.Wait()
}

// TestWorkerPoisonTerminates verifies the poison channel stops the worker
// without requiring a task to be in flight.
func TestWorkerPoisonTerminates(t *testing.T) {
	in := make(chan Msg)
	out := make(chan task.Result, 1)

	h := Spawn(double, Config{}, in, out)
	h.Poison()

	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not terminate on poison")
	}
}

// TestWorkerPanicBecomesWorkerError verifies a panicking worker function
// is recovered and reported as a WorkerError instead of crashing the pool.
func TestWorkerPanicBecomesWorkerError(t *testing.T) {
	panics := func(args []any) (any, error) {
		panic("kaboom")
	}

	in := make(chan Msg)
	out := make(chan task.Result, 1)

	h := Spawn(panics, Config{}, in, out)
	in <- Msg{Task: task.Task{ID: 1}}

	result := <-out
	assert.True(t, result.Value.IsWorkerError())
	assert.ErrorContains(t, result.Value.Err, "kaboom")

	h.Poison()
	h.Wait()
}
