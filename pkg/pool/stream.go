// ============================================================================
// forkmap Stream - the lazy pull-driven output of an IMap call
// ============================================================================
//
// Package: pkg/pool
// File: stream.go
//
// Exposes the dispatcher loop two ways: a Next()-based pull iterator for
// callers that need explicit ok/error returns per step, and an
// iter.Seq[task.Outcome] for range-over-func consumption
// (`for out := range stream.Seq() { ... }`).
//
// ============================================================================

package pool

import (
	"context"
	"iter"
	"sync"

	"github.com/mrafferty/forkmap/internal/source"
	"github.com/mrafferty/forkmap/pkg/task"
)

// Stream is the lazy output of one Pool.IMap call. The zero value is not
// usable; obtain one from Pool.IMap.
type Stream struct {
	pool *Pool
	d    *dispatcher

	closeOnce sync.Once
}

// IMap runs fn over it and returns a lazy Stream of outcomes, one per
// input, in input order: an outcome is only yielded once every input
// before it has also completed. The pool must already be Started.
// Fails with task.ErrConcurrentMisuse if another map is already in
// flight on this pool.
//
// Callers must fully drain the returned Stream or call Stream.Close, or
// the pool's single map slot remains claimed.
func (p *Pool) IMap(ctx context.Context, it source.Iterable) (*Stream, error) {
	return p.newMap(ctx, it, true)
}

// IMapUnordered is IMap's completion-ordered counterpart: outcomes are
// yielded as soon as they're ready, regardless of input order. A single
// running Pool can serve IMap and IMapUnordered calls interchangeably
// across separate (non-overlapping) map calls.
func (p *Pool) IMapUnordered(ctx context.Context, it source.Iterable) (*Stream, error) {
	return p.newMap(ctx, it, false)
}

func (p *Pool) newMap(ctx context.Context, it source.Iterable, ordered bool) (*Stream, error) {
	if err := p.beginMap(); err != nil {
		return nil, err
	}
	return &Stream{pool: p, d: newDispatcher(ctx, p, it, ordered)}, nil
}

// Next pulls the next outcome. ok is false once the stream is
// exhausted; a non-nil error means an infrastructure failure
// (task.ErrPoolFailure, task.ErrMalformedInput) aborted the map, and no
// further outcomes will be produced.
func (s *Stream) Next() (task.Outcome, bool, error) {
	out, ok, err := s.d.next()
	if !ok || err != nil {
		s.Close()
	}
	return out, ok, err
}

// Close releases this stream's claim on the pool's map slot. Idempotent;
// safe to call after the stream is already exhausted, and safe to defer
// unconditionally by a caller that may abandon the stream early.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.pool.endMap()
	})
}

// Seq adapts the Stream to a standard iter.Seq[task.Outcome] for
// range-over-func consumption. Any infrastructure error stops iteration
// early; inspect Err() afterward to distinguish "exhausted normally"
// from "aborted by error".
func (s *Stream) Seq() iter.Seq[task.Outcome] {
	return func(yield func(task.Outcome) bool) {
		defer s.Close()
		for {
			out, ok, err := s.d.next()
			if err != nil {
				s.d.err = err
				return
			}
			if !ok {
				return
			}
			if !yield(out) {
				return
			}
		}
	}
}

// Err returns the infrastructure error (if any) that ended the stream.
// Worker-level failures (WorkerError, Timeout) are not errors: they are
// delivered as Outcome values and never set Err.
func (s *Stream) Err() error {
	return s.d.err
}
