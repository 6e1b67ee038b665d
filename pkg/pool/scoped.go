// ============================================================================
// forkmap WithPool - scoped start + map + stop
// ============================================================================
//
// Package: pkg/pool
// File: scoped.go
//
// Grounded on buckshot.contexts.distributed: `with distributed(f) as
// pool: results = list(pool.imap(xs))` starts the pool on __enter__ and
// guarantees stop on __exit__, including on an exception propagating out
// of the caller's consumption of the results. WithPool collapses that
// into a single call that always runs the pool's Stop before returning,
// whatever happened during the map.
//
// ============================================================================

package pool

import (
	"context"

	"github.com/mrafferty/forkmap/internal/source"
	"github.com/mrafferty/forkmap/pkg/task"
)

// WithPool starts a fresh Pool bound to fn, maps it eagerly over it
// (collecting every outcome into a slice), and guarantees the pool is
// stopped before returning, even if the map is aborted by an
// infrastructure error partway through.
func WithPool(ctx context.Context, fn Func, it source.Iterable, opts ...Option) ([]task.Outcome, error) {
	p, err := New(fn, opts...)
	if err != nil {
		return nil, err
	}

	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	defer p.Stop(ctx)

	stream, err := p.IMap(ctx, it)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var out []task.Outcome
	for {
		o, ok, err := stream.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, o)
	}
}
