// ============================================================================
// forkmap Dispatcher loop (C6)
// ============================================================================
//
// Package: pkg/pool
// File: dispatch.go
//
// Implements the pull-driven dispatcher loop as a single step function
// called lazily by Stream.Next: one external pull advances the loop
// until at least one outcome is ready to yield, or the stream is
// exhausted, or an infrastructure error aborts it. The loop folds three
// logical phases (feeding new tasks, draining results while still
// feeding, and draining to finish once the source is exhausted) into
// one step(), since which phase applies falls out of whether a task is
// pending and whether the source is exhausted rather than needing
// separate code paths.
//
// ============================================================================

package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/mrafferty/forkmap/internal/source"
	"github.com/mrafferty/forkmap/pkg/task"
)

// dispatcher holds the per-map-call state: the in-flight table, the
// waiting-result buffer, and the lazily-pulled next task.
type dispatcher struct {
	pool *Pool
	ctx  context.Context
	src  *source.Source

	ordered bool

	inflight  *inflightTable
	waiting   map[uint64]task.Result
	pending   *task.Task
	exhausted bool

	sentAt   map[uint64]time.Time
	outQueue []task.Outcome
	err      error
}

func newDispatcher(ctx context.Context, p *Pool, it source.Iterable, ordered bool) *dispatcher {
	return &dispatcher{
		pool:     p,
		ctx:      ctx,
		ordered:  ordered,
		src:      source.New(it),
		inflight: newInflightTable(),
		waiting:  make(map[uint64]task.Result),
		sentAt:   make(map[uint64]time.Time),
	}
}

// finished reports whether the dispatcher has nothing left to do: the
// source is exhausted, nothing is pending, and nothing is in flight.
func (d *dispatcher) finished() bool {
	return d.exhausted && d.pending == nil && d.inflight.Len() == 0
}

// next pops one outcome from the output queue, advancing the loop as
// needed to produce it. Returns ok=false once finished() with no error.
func (d *dispatcher) next() (task.Outcome, bool, error) {
	for len(d.outQueue) == 0 {
		if d.err != nil {
			return task.Outcome{}, false, d.err
		}
		if d.finished() {
			return task.Outcome{}, false, nil
		}
		if err := d.step(); err != nil {
			d.err = err
			return task.Outcome{}, false, err
		}
	}

	out := d.outQueue[0]
	d.outQueue = d.outQueue[1:]
	return out, true, nil
}

// step performs one iteration of the dispatcher loop: pull if there is
// no pending task, try a non-blocking send, and fall back to a blocking
// drain when the input channel is full or there is nothing left to
// send.
func (d *dispatcher) step() error {
	if d.pending == nil && !d.exhausted {
		t, ok, err := d.src.Pull()
		if err != nil {
			d.exhausted = true
			return err
		}
		if !ok {
			d.exhausted = true
		} else {
			d.pending = &t
		}
	}

	if d.pending != nil {
		if d.pool.trySend(*d.pending) {
			d.inflight.Add(*d.pending)
			d.sentAt[d.pending.ID] = time.Now()
			d.pending = nil
			d.pool.metrics.SetInFlight(d.inflight.Len())
			return nil
		}
		return d.drainOnce()
	}

	// Draining-to-finish: nothing left to pull or send, but tasks are
	// still in flight.
	return d.drainOnce()
}

// drainOnce performs one blocking receive on the output channel, then
// greedily drains any further results immediately available, folding
// each into the waiting-result buffer (or triggering worker replacement
// on timeout), and finally advances outQueue via readyToYield.
func (d *dispatcher) drainOnce() error {
	select {
	case r, ok := <-d.pool.outCh:
		if !ok {
			return fmt.Errorf("%w: output channel closed unexpectedly", task.ErrPoolFailure)
		}
		if err := d.handleResult(r); err != nil {
			return err
		}
	case <-d.ctx.Done():
		return d.ctx.Err()
	}

	for {
		select {
		case r, ok := <-d.pool.outCh:
			if !ok {
				return fmt.Errorf("%w: output channel closed unexpectedly", task.ErrPoolFailure)
			}
			if err := d.handleResult(r); err != nil {
				return err
			}
		default:
			d.readyToYield()
			d.pool.metrics.SetInFlight(d.inflight.Len())
			return nil
		}
	}
}

// handleResult folds one Result into the waiting-result buffer,
// replacing the originating worker on timeout, and records latency.
func (d *dispatcher) handleResult(r task.Result) error {
	if sentAt, ok := d.sentAt[r.TaskID]; ok {
		d.pool.metrics.RecordResult(r.Value.Kind.String(), time.Since(sentAt).Seconds())
		delete(d.sentAt, r.TaskID)
	}

	if r.Value.IsTimeout() {
		d.pool.replaceWorker(r.Origin)
	}

	if d.pool.opts.FailFast && r.Value.IsWorkerError() {
		return fmt.Errorf("%w: task %d: %v", task.ErrPoolFailure, r.TaskID, r.Value.Err)
	}

	d.waiting[r.TaskID] = r
	d.pool.metrics.SetInFlight(d.inflight.Len())
	return nil
}

// readyToYield moves every result ready for delivery from the waiting
// buffer onto outQueue, per this map call's ordering mode.
func (d *dispatcher) readyToYield() {
	if d.ordered {
		for {
			front, ok := d.inflight.Front()
			if !ok {
				break
			}
			r, ok := d.waiting[front.ID]
			if !ok {
				break
			}
			delete(d.waiting, front.ID)
			d.inflight.PopFront()
			d.outQueue = append(d.outQueue, r.Value)
		}
		return
	}

	for id, r := range d.waiting {
		delete(d.waiting, id)
		d.inflight.Remove(id)
		d.outQueue = append(d.outQueue, r.Value)
	}
}
