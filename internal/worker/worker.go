// ============================================================================
// forkmap Worker Runtime - Task Execution Unit
// ============================================================================
//
// Package: internal/worker
// File: worker.go
// Function: One long-lived goroutine per worker. Consumes Msg values off
//            the shared input channel, runs the user function under a
//            per-task timeout, and emits a Result on the shared output
//            channel.
//
// Execution Model:
//   1. Block on the input channel or the poison channel.
//   2. If poisoned: terminate, closing done as the worker's
//      acknowledgement (see note below).
//   3. Otherwise run the timeout isolator around f(args).
//   4. Wrap the outcome:
//        - normal return  -> Result{Ok(value)}
//        - timeout        -> Result{Timeout}; worker exits afterward
//        - f returned err -> Result{WorkerError}; worker continues
//   5. Emit the result, go to 1.
//
// Acknowledgement:
//   A worker's shutdown acknowledgement could be routed back through the
//   same output channel as ordinary Results, but that would force every
//   consumer of that channel to filter out a non-Result value. Go's
//   channels are monomorphic, and splitting the channel into a tagged
//   union buys nothing a dedicated signal doesn't: Handle.done (closed
//   right before the goroutine returns) is that signal. The pool's Stop
//   still joins each worker before replacing or reaping it; it just does
//   so via Handle.Wait/Handle.Done instead of filtering a value off the
//   result channel.
//
// Timeout Isolation:
//   f runs on a helper goroutine; the worker goroutine waits on it with a
//   deadline timer. If the deadline wins, the helper is abandoned (there
//   is no safe way to kill arbitrary running Go code) — its channel send
//   is buffered so the orphaned goroutine never blocks forever.
//
// ============================================================================

package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mrafferty/forkmap/pkg/task"
)

var log = slog.Default()

// Handle is the pool's view of a running worker: the channels it needs to
// signal the worker to die, and wait for it to do so.
type Handle struct {
	ID     task.WorkerID
	poison chan struct{}
	done   chan struct{}
}

// Poison asks the worker to terminate after its current (or next) message.
// Idempotent: calling it twice is safe.
func (h *Handle) Poison() {
	select {
	case <-h.poison:
	default:
		close(h.poison)
	}
}

// Wait blocks until the worker goroutine has returned. This is the
// worker's shutdown acknowledgement: the pool joins on it before
// removing the worker from its registry, so a replacement is never
// spawned while its predecessor might still be running.
func (h *Handle) Wait() {
	<-h.done
}

// Done returns the channel that closes when the worker goroutine has
// returned, for callers that need to select against it alongside a
// deadline rather than block unconditionally on Wait.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// isolatedResult is what the helper goroutine reports back to the worker
// goroutine for one invocation of f.
type isolatedResult struct {
	value any
	err   error
}

// Spawn starts a new worker goroutine reading from in and writing to out,
// and returns a Handle the pool uses to manage its lifecycle.
func Spawn(fn Func, cfg Config, in <-chan Msg, out chan<- task.Result) *Handle {
	h := &Handle{
		ID:     task.NewWorkerID(),
		poison: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go h.run(fn, cfg, in, out)
	return h
}

func (h *Handle) run(fn Func, cfg Config, in <-chan Msg, out chan<- task.Result) {
	defer close(h.done)
	log.Debug("worker spawned", slog.String("worker", h.ID.String()))

	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}

			result := h.execute(fn, cfg, msg.Task)
			out <- result

			if result.Value.IsTimeout() {
				log.Warn("worker exiting after timeout",
					slog.String("worker", h.ID.String()), slog.Uint64("task", msg.Task.ID))
				return
			}

		case <-h.poison:
			log.Debug("worker received poison", slog.String("worker", h.ID.String()))
			return
		}
	}
}

// execute runs fn(task.Args) through the timeout isolator and wraps the
// outcome as a Result.
func (h *Handle) execute(fn Func, cfg Config, t task.Task) task.Result {
	outcome := h.isolate(fn, cfg.Timeout, t.Args)
	return task.Result{TaskID: t.ID, Value: outcome, Origin: h.ID}
}

// isolate runs one invocation of fn on a helper goroutine, joining with a
// deadline. It distinguishes completion (including a panic or returned
// error, both folded into WorkerError) from timeout. timeout <= 0 means
// wait forever.
func (h *Handle) isolate(fn Func, timeout time.Duration, args []any) task.Outcome {
	resultCh := make(chan isolatedResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- isolatedResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(args)
		resultCh <- isolatedResult{value: v, err: err}
	}()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case r := <-resultCh:
		if r.err != nil {
			return task.Outcome{Kind: task.KindWorkerError, Err: r.err}
		}
		return task.Outcome{Kind: task.KindOk, Value: r.value}
	case <-deadline:
		return task.Outcome{Kind: task.KindTimeout}
	}
}
