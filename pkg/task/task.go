// ============================================================================
// forkmap Task/Result - Core Envelope Types
// ============================================================================
//
// Package: pkg/task
// File: task.go
// Purpose: Numeric-id-tagged envelopes for dispatcher input args and output
//          values, plus the sentinel error taxonomy shared across the module.
//
// Design Pattern:
//   Task and Result are plain value types crossing only goroutine boundaries
//   (never process boundaries), so no serialization tags are required. The
//   outcome of a task is encoded as a tagged union (Outcome) rather than a
//   Go error, because WorkerError and Timeout are data the caller inspects,
//   not failures that abort the map (see Outcome.Kind).
//
// ============================================================================

// Package task defines the envelope types exchanged between a dispatcher
// pool and its workers.
package task

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// WorkerID uniquely identifies one incarnation of a worker. A fresh id is
// minted every time a worker is spawned, including on timeout replacement,
// so a predecessor's id can never be confused with its replacement's.
type WorkerID = uuid.UUID

// NewWorkerID mints a fresh worker identity.
func NewWorkerID() WorkerID {
	return uuid.New()
}

// Task is one invocation request: a dense, monotonically increasing id
// assigned by the task source, plus the positional arguments for the
// worker function.
type Task struct {
	ID   uint64
	Args []any
}

// Kind tags the variant carried by an Outcome.
type Kind int

const (
	// KindOk means the worker function returned normally.
	KindOk Kind = iota
	// KindTimeout means the worker function exceeded its deadline. The
	// worker that produced it is terminated and replaced by the pool.
	KindTimeout
	// KindWorkerError means the worker function panicked or returned an
	// error. The worker that produced it continues running.
	KindWorkerError
)

func (k Kind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindTimeout:
		return "timeout"
	case KindWorkerError:
		return "worker_error"
	default:
		return "unknown"
	}
}

// Outcome is the tagged union of a task's result: exactly one of Value
// (KindOk), nothing but the tag (KindTimeout), or Err (KindWorkerError) is
// meaningful, selected by Kind.
type Outcome struct {
	Kind  Kind
	Value any
	Err   error
}

// IsOk reports whether the outcome is a successful return value.
func (o Outcome) IsOk() bool { return o.Kind == KindOk }

// IsTimeout reports whether the worker function exceeded its deadline.
func (o Outcome) IsTimeout() bool { return o.Kind == KindTimeout }

// IsWorkerError reports whether the worker function raised.
func (o Outcome) IsWorkerError() bool { return o.Kind == KindWorkerError }

func (o Outcome) String() string {
	switch o.Kind {
	case KindOk:
		return fmt.Sprintf("Ok(%v)", o.Value)
	case KindTimeout:
		return "Timeout"
	case KindWorkerError:
		return fmt.Sprintf("WorkerError(%v)", o.Err)
	default:
		return "Outcome(?)"
	}
}

// Result is the outcome envelope for one task, keyed by task id and tagged
// with the worker that produced it (for diagnostics and for worker
// replacement on timeout).
type Result struct {
	TaskID uint64
	Value  Outcome
	Origin WorkerID
}

// Acknowledge names a worker's reply to a poison message. No Acknowledge
// value is sent by the worker runtime: a worker acknowledges by closing
// its Handle's done channel as its goroutine returns.
type Acknowledge struct {
	Origin WorkerID
}

// Error taxonomy. WorkerError and Timeout are carried as Outcome values
// on the output stream, never returned as errors; the remainder are
// raised and abort the in-flight map.
var (
	// ErrMalformedInput is surfaced from the next pull when the input
	// iterable itself fails.
	ErrMalformedInput = errors.New("forkmap: malformed input")
	// ErrPoolFailure is raised when a worker dies without emitting a
	// result for its in-flight task.
	ErrPoolFailure = errors.New("forkmap: worker pool failure")
	// ErrConcurrentMisuse is raised when a map call overlaps another map
	// call on the same pool. Lifecycle misuse is reported by
	// ErrAlreadyStarted and ErrNotStarted instead.
	ErrConcurrentMisuse = errors.New("forkmap: concurrent misuse")
	// ErrAlreadyStarted is raised by Start on an already-started pool.
	ErrAlreadyStarted = errors.New("forkmap: pool already started")
	// ErrNotStarted is raised by Stop (or a map call) on a pool that was
	// never started.
	ErrNotStarted = errors.New("forkmap: pool not started")
)
