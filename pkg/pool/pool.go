// ============================================================================
// forkmap Pool - the parallel map dispatcher (C5)
// ============================================================================
//
// Package: pkg/pool
// File: pool.go
//
// Pool owns the worker goroutines, the bounded input channel (capacity
// equal to pool size, the core flow-control primitive: a full channel
// means every worker is busy and results must be drained before more
// tasks go out), the output channel, and the registry of worker
// handles. Lifecycle mirrors the teacher's worker_pool.go state machine
// (Unstarted -> Started -> Stopped), guarded by a single mutex so
// concurrent misuse fails with ErrConcurrentMisuse rather than
// corrupting the in-flight bookkeeping.
//
// ============================================================================

package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrafferty/forkmap/internal/metrics"
	"github.com/mrafferty/forkmap/internal/worker"
	"github.com/mrafferty/forkmap/pkg/task"
)

var log = slog.Default()

// ErrInvalidOption is returned by New when the resolved options fail
// validation (pool size < 1, negative durations, ...).
var ErrInvalidOption = errors.New("forkmap: invalid option")

// Func is the user-supplied worker function executed by every worker in
// the pool. It is assumed pure and CPU-bound.
type Func = worker.Func

type state int

const (
	stateUnstarted state = iota
	stateStarted
	stateStopped
)

// Pool runs fn across a fixed set of worker goroutines and dispatches
// IMap calls over them. The zero value is not usable; construct with New.
type Pool struct {
	fn   Func
	opts options

	mu          sync.Mutex
	st          state
	mapInFlight bool

	inCh    chan worker.Msg
	outCh   chan task.Result
	workers map[task.WorkerID]*worker.Handle

	metrics *metrics.Collector
}

// New constructs a Pool bound to fn with the given options applied over
// the defaults (PoolSize = runtime.NumCPU(), unbounded timeout, 2s stop
// grace period). Delivery order is chosen per call by IMap or
// IMapUnordered.
func New(fn Func, opts ...Option) (*Pool, error) {
	resolved, err := resolveOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Pool{
		fn:      fn,
		opts:    resolved,
		metrics: metrics.NewCollector(),
	}, nil
}

// Registry exposes the Pool's private Prometheus registry, for mounting
// under promhttp.HandlerFor by a caller that wants /metrics exposition.
func (p *Pool) Registry() *prometheus.Registry {
	return p.metrics.Registry()
}

// Start spawns the worker pool and allocates the input/output channels.
// Fails with task.ErrAlreadyStarted if called twice without an
// intervening Stop.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.st == stateStarted {
		return task.ErrAlreadyStarted
	}

	p.inCh = make(chan worker.Msg, p.opts.PoolSize)
	p.outCh = make(chan task.Result, p.opts.PoolSize)
	p.workers = make(map[task.WorkerID]*worker.Handle, p.opts.PoolSize)

	cfg := worker.Config{Timeout: p.opts.Timeout}
	for i := 0; i < p.opts.PoolSize; i++ {
		h := worker.Spawn(p.fn, cfg, p.inCh, p.outCh)
		p.workers[h.ID] = h
	}

	p.metrics.SetPoolSize(p.opts.PoolSize)
	p.st = stateStarted
	log.Info("pool started", slog.Int("pool_size", p.opts.PoolSize))
	return nil
}

// Stop poisons every worker and waits up to StopGracePeriod for each to
// acknowledge. A worker that has not exited by then is logged and
// dropped from the registry; its goroutine is not terminated and keeps
// running until its current task returns. Any in-flight tasks are
// discarded; Stop aborts rather than waiting out whatever is still
// running. Fails with task.ErrNotStarted if the pool was never started.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.st != stateStarted {
		return task.ErrNotStarted
	}

	for _, h := range p.workers {
		h.Poison()
	}

	deadline := time.Now().Add(p.opts.StopGracePeriod)
	for id, h := range p.workers {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			select {
			case <-h.Done():
			default:
				log.Warn("worker did not acknowledge before grace period", slog.String("worker", id.String()))
			}
			continue
		}
		select {
		case <-h.Done():
		case <-ctx.Done():
			log.Warn("stop context cancelled while waiting for worker", slog.String("worker", id.String()))
		case <-time.After(remaining):
			log.Warn("worker did not acknowledge within grace period", slog.String("worker", id.String()))
		}
	}

	p.workers = nil
	p.inCh = nil
	p.outCh = nil
	p.st = stateStopped
	log.Info("pool stopped")
	return nil
}

// replaceWorker joins the worker that reported origin (it has already
// exited itself, per worker.run's post-timeout self-termination) and
// spawns a fresh one in its place, restoring the registry to full size
// before the next task is sent.
func (p *Pool) replaceWorker(origin task.WorkerID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.workers[origin]; ok {
		h.Wait()
		delete(p.workers, origin)
	}

	cfg := worker.Config{Timeout: p.opts.Timeout}
	h := worker.Spawn(p.fn, cfg, p.inCh, p.outCh)
	p.workers[h.ID] = h
	p.metrics.RecordReplacement()
	log.Warn("worker replaced after timeout",
		slog.String("predecessor", origin.String()), slog.String("replacement", h.ID.String()))
}

// beginMap claims the pool's single map slot, failing with
// task.ErrConcurrentMisuse if another IMap is already in flight, or
// task.ErrNotStarted if the pool hasn't been started.
func (p *Pool) beginMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.st != stateStarted {
		return task.ErrNotStarted
	}
	if p.mapInFlight {
		return fmt.Errorf("%w: a map is already in flight on this pool", task.ErrConcurrentMisuse)
	}
	p.mapInFlight = true
	return nil
}

// endMap releases the pool's map slot.
func (p *Pool) endMap() {
	p.mu.Lock()
	p.mapInFlight = false
	p.mu.Unlock()
}

// trySend attempts a non-blocking send of t onto the input channel,
// reporting whether it succeeded. A failed send means every worker is
// busy (the channel's capacity equals pool size), so the caller should
// drain results before injecting more tasks.
func (p *Pool) trySend(t task.Task) bool {
	select {
	case p.inCh <- worker.Msg{Task: t}:
		p.metrics.RecordSend()
		return true
	default:
		return false
	}
}
