// ============================================================================
// forkmap Bind - decorator-equivalent higher-order wrapper
// ============================================================================
//
// Package: pkg/pool
// File: bind.go
//
// Grounded on buckshot.decorators.distribute: a decorator that closes
// over a Pool configuration and turns a plain function into one that, on
// first call, spins up the pool and hands back a lazy sequence of
// results, matching "list(harmonic_sum(values))" in scripts/demo.py.
// Go has no decorator syntax or module-level mutable capture to lean on,
// so Bind returns an explicit value instead: a *BoundFunc owning one
// Pool, started once via sync.Once and never stopped implicitly. The
// caller closes it explicitly, mirroring the rest of this package's "no
// finalizers" stance on goroutine and channel lifetimes.
//
// ============================================================================

package pool

import (
	"context"
	"sync"

	"github.com/mrafferty/forkmap/internal/source"
)

// BoundFunc is a worker function bound to a Pool configuration. The pool
// is started lazily on the first Call and stays running across
// subsequent calls until Close.
type BoundFunc struct {
	pool *Pool

	once     sync.Once
	startErr error
}

// Bind constructs a BoundFunc for fn with the given options. The
// underlying Pool is not started until the first Call.
func Bind(fn Func, opts ...Option) (*BoundFunc, error) {
	p, err := New(fn, opts...)
	if err != nil {
		return nil, err
	}
	return &BoundFunc{pool: p}, nil
}

// Call maps the bound function over it, starting the underlying pool on
// the first call. Subsequent calls reuse the already-running pool.
func (b *BoundFunc) Call(ctx context.Context, it source.Iterable) (*Stream, error) {
	b.once.Do(func() {
		b.startErr = b.pool.Start(ctx)
	})
	if b.startErr != nil {
		return nil, b.startErr
	}
	return b.pool.IMap(ctx, it)
}

// Close stops the underlying pool. Call exactly once, after the caller
// is done issuing Call invocations.
func (b *BoundFunc) Close(ctx context.Context) error {
	return b.pool.Stop(ctx)
}
