// ============================================================================
// forkmap Task Source - Input Normalisation and Id Assignment
// ============================================================================
//
// Package: internal/source
// File: source.go
// Function: Lazily pulls argument tuples from the caller's iterable and
//            tags each one with a dense, monotonically increasing Task id.
//
// Design:
//   The Python original (buckshot.tasks.TaskIterator) wraps a generic
//   Python iterable and normalises bare scalars to 1-tuples. Go has no
//   untyped iterable protocol, so the caller-facing shape is an Iterable
//   interface with a single Next method; FromArgs and FromValues adapt
//   slices of tuples and slices of scalars to it respectively.
//
// ============================================================================

// Package source implements the dispatcher's lazy, id-assigning input
// stream (component C2 of the design).
package source

import (
	"fmt"

	"github.com/mrafferty/forkmap/pkg/task"
)

// Iterable is a lazy producer of argument tuples. Next returns the next
// element's positional arguments, or ok=false when the stream is
// exhausted. A non-nil error means the underlying source itself failed;
// it surfaces from the next pull as task.ErrMalformedInput and the stream
// must not be pulled again afterward.
type Iterable interface {
	Next() (args []any, ok bool, err error)
}

// sliceIterable adapts a pre-built slice of argument tuples.
type sliceIterable struct {
	items [][]any
	pos   int
}

// FromArgs wraps a slice of pre-built argument tuples (the multi-arg case).
func FromArgs(items [][]any) Iterable {
	return &sliceIterable{items: items}
}

func (s *sliceIterable) Next() ([]any, bool, error) {
	if s.pos >= len(s.items) {
		return nil, false, nil
	}
	args := s.items[s.pos]
	s.pos++
	return args, true, nil
}

// scalarIterable adapts a slice of bare values (the single-arg case),
// normalising each element x to the 1-tuple (x,).
type scalarIterable struct {
	items []any
	pos   int
}

// FromValues wraps a slice of bare scalar values, normalising each one to
// a 1-tuple before it reaches the worker function.
func FromValues(items []any) Iterable {
	return &scalarIterable{items: items}
}

func (s *scalarIterable) Next() ([]any, bool, error) {
	if s.pos >= len(s.items) {
		return nil, false, nil
	}
	v := s.items[s.pos]
	s.pos++
	return []any{v}, true, nil
}

// Source assigns dense, monotonically increasing task ids starting at 0
// to whatever Iterable it wraps. It is finite, not restartable, and lazy:
// one Pull yields exactly one Task.
type Source struct {
	iter   Iterable
	nextID uint64
	failed bool
}

// New wraps an Iterable in an id-assigning Source.
func New(iter Iterable) *Source {
	return &Source{iter: iter}
}

// Pull returns the next Task, or ok=false when the input is exhausted.
// The pull on which the underlying iterable fails returns its error
// wrapped in task.ErrMalformedInput; every subsequent Pull returns
// task.ErrMalformedInput itself, without the underlying cause.
func (s *Source) Pull() (task.Task, bool, error) {
	if s.failed {
		return task.Task{}, false, task.ErrMalformedInput
	}

	args, ok, err := s.iter.Next()
	if err != nil {
		s.failed = true
		return task.Task{}, false, fmt.Errorf("%w: %v", task.ErrMalformedInput, err)
	}
	if !ok {
		return task.Task{}, false, nil
	}

	t := task.Task{ID: s.nextID, Args: args}
	s.nextID++
	return t, true, nil
}
