package pool

// ============================================================================
// Pool configuration - functional options + struct-tag validation
// ============================================================================
//
// Package: pkg/pool
// File: options.go
//
// Mirrors the validator wrapper pattern from Jkenyut-nvx-go-helper: an
// internal struct carries `validate:"..."` tags, and a single
// internal/validate.Struct call surfaces every violation at once instead
// of ad hoc range checks scattered through New.
//
// ============================================================================

import (
	"fmt"
	"runtime"
	"time"

	"github.com/mrafferty/forkmap/internal/validate"
)

// options holds a Pool's fully-resolved configuration. Ordering is not
// part of this struct: it is a per-call choice between IMap and
// IMapUnordered, not a property fixed for the Pool's lifetime.
type options struct {
	PoolSize        int           `validate:"gte=1"`
	Timeout         time.Duration `validate:"gte=0"`
	FailFast        bool
	StopGracePeriod time.Duration `validate:"gte=0"`
}

func defaultOptions() options {
	return options{
		PoolSize:        runtime.NumCPU(),
		Timeout:         0,
		FailFast:        false,
		StopGracePeriod: 2 * time.Second,
	}
}

// Option configures a Pool at construction time.
type Option func(*options)

// WithPoolSize sets the number of worker goroutines. Defaults to
// runtime.NumCPU().
func WithPoolSize(n int) Option {
	return func(o *options) { o.PoolSize = n }
}

// WithTimeout sets the per-task wall-clock deadline. Zero (the default)
// means unbounded.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.Timeout = d }
}

// WithFailFast makes a WorkerError outcome abort the in-flight map with
// ErrPoolFailure-wrapping error, instead of the default deliver-as-value
// policy.
func WithFailFast(enabled bool) Option {
	return func(o *options) { o.FailFast = enabled }
}

// WithStopGracePeriod bounds how long Stop waits for worker
// acknowledgements before dropping the workers that have not exited.
// Defaults to 2s.
func WithStopGracePeriod(d time.Duration) Option {
	return func(o *options) { o.StopGracePeriod = d }
}

func resolveOptions(opts ...Option) (options, error) {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	if err := validate.Struct(o); err != nil {
		return options{}, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	return o, nil
}
