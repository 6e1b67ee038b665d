package pool

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/mrafferty/forkmap/internal/source"
	"github.com/mrafferty/forkmap/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(args []any) (any, error) {
	x := args[0].(int)
	return x * x, nil
}

func drain(t *testing.T, s *Stream) []task.Outcome {
	t.Helper()
	var out []task.Outcome
	for {
		o, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, o)
	}
}

func TestIMapOrderedIdentity(t *testing.T) {
	p, err := New(square, WithPoolSize(4))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	values := []any{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	stream, err := p.IMap(ctx, source.FromValues(values))
	require.NoError(t, err)

	out := drain(t, stream)
	require.Len(t, out, 10)

	want := []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}
	for i, o := range out {
		require.True(t, o.IsOk())
		assert.Equal(t, want[i], o.Value)
	}
}

func TestIMapUnorderedPermutation(t *testing.T) {
	p, err := New(square, WithPoolSize(4))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	values := []any{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	stream, err := p.IMapUnordered(ctx, source.FromValues(values))
	require.NoError(t, err)

	out := drain(t, stream)
	require.Len(t, out, 10)

	got := make([]int, len(out))
	for i, o := range out {
		require.True(t, o.IsOk())
		got[i] = o.Value.(int)
	}
	sort.Ints(got)
	assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, got)
}

func TestIMapTupleArgs(t *testing.T) {
	fn := func(args []any) (any, error) {
		a := args[0].(float64)
		b := args[1].(int)
		return [2]any{a, b * b}, nil
	}

	p, err := New(fn, WithPoolSize(2))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	in := [][]any{{0.1, 1}, {0.2, 2}, {0.3, 3}}
	stream, err := p.IMap(ctx, source.FromArgs(in))
	require.NoError(t, err)

	out := drain(t, stream)
	require.Len(t, out, 3)
	assert.Equal(t, [2]any{0.1, 1}, out[0].Value)
	assert.Equal(t, [2]any{0.2, 4}, out[1].Value)
	assert.Equal(t, [2]any{0.3, 9}, out[2].Value)
}

func TestIMapTimeout(t *testing.T) {
	sleepReturn := func(args []any) (any, error) {
		n := args[0].(int)
		time.Sleep(time.Duration(n) * 10 * time.Millisecond)
		return n, nil
	}

	p, err := New(sleepReturn, WithPoolSize(2), WithTimeout(150*time.Millisecond))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	// 1 (10ms) completes; 25 (250ms) exceeds the 150ms deadline.
	values := []any{1, 25, 1, 25, 1, 25}
	stream, err := p.IMap(ctx, source.FromValues(values))
	require.NoError(t, err)

	out := drain(t, stream)
	require.Len(t, out, 6)

	for i, o := range out {
		if values[i].(int) == 1 {
			require.True(t, o.IsOk(), "index %d", i)
			assert.Equal(t, 1, o.Value)
		} else {
			assert.True(t, o.IsTimeout(), "index %d", i)
		}
	}

	// Registry returns to full size after replacement.
	assert.Len(t, p.workers, 2)
}

func TestIMapWorkerError(t *testing.T) {
	divide := func(args []any) (any, error) {
		x := args[0].(int)
		if x == 0 {
			return nil, errors.New("division by zero")
		}
		return 2.0 / float64(x), nil
	}

	p, err := New(divide, WithPoolSize(2))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	stream, err := p.IMap(ctx, source.FromValues([]any{2, 0, 4}))
	require.NoError(t, err)

	out := drain(t, stream)
	require.Len(t, out, 3)
	assert.True(t, out[0].IsOk())
	assert.Equal(t, 1.0, out[0].Value)
	assert.True(t, out[1].IsWorkerError())
	assert.ErrorContains(t, out[1].Err, "division")
	assert.True(t, out[2].IsOk())
	assert.Equal(t, 0.5, out[2].Value)
}

func TestIMapEmptyInput(t *testing.T) {
	p, err := New(square, WithPoolSize(3))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))

	stream, err := p.IMap(ctx, source.FromValues(nil))
	require.NoError(t, err)

	out := drain(t, stream)
	assert.Empty(t, out)

	assert.NoError(t, p.Stop(ctx))
}

// Idempotence of stop / lifecycle errors.
func TestPoolLifecycleErrors(t *testing.T) {
	p, err := New(square)
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, p.Stop(ctx), task.ErrNotStarted)

	require.NoError(t, p.Start(ctx))
	assert.ErrorIs(t, p.Start(ctx), task.ErrAlreadyStarted)

	require.NoError(t, p.Stop(ctx))
	assert.ErrorIs(t, p.Stop(ctx), task.ErrNotStarted)
}

// A single running Pool must be able to serve both IMap and
// IMapUnordered across separate, non-overlapping calls.
func TestPoolServesBothOrderingsAcrossCalls(t *testing.T) {
	p, err := New(square, WithPoolSize(4))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	ordered, err := p.IMap(ctx, source.FromValues([]any{0, 1, 2, 3}))
	require.NoError(t, err)
	orderedOut := drain(t, ordered)
	require.Len(t, orderedOut, 4)
	for i, o := range orderedOut {
		require.True(t, o.IsOk())
		assert.Equal(t, i*i, o.Value)
	}

	unordered, err := p.IMapUnordered(ctx, source.FromValues([]any{0, 1, 2, 3}))
	require.NoError(t, err)
	unorderedOut := drain(t, unordered)
	require.Len(t, unorderedOut, 4)

	got := make([]int, len(unorderedOut))
	for i, o := range unorderedOut {
		require.True(t, o.IsOk())
		got[i] = o.Value.(int)
	}
	sort.Ints(got)
	assert.Equal(t, []int{0, 1, 4, 9}, got)
}

// Concurrent misuse: overlapping IMap calls on the same pool are rejected.
func TestIMapConcurrentMisuse(t *testing.T) {
	p, err := New(square, WithPoolSize(2))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	first, err := p.IMap(ctx, source.FromValues([]any{1, 2, 3}))
	require.NoError(t, err)
	defer first.Close()

	_, err = p.IMap(ctx, source.FromValues([]any{1}))
	assert.ErrorIs(t, err, task.ErrConcurrentMisuse)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := New(square, WithPoolSize(0))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestIMapAccounting(t *testing.T) {
	p, err := New(square, WithPoolSize(3))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	defer p.Stop(ctx)

	values := make([]any, 37)
	for i := range values {
		values[i] = i
	}

	stream, err := p.IMap(ctx, source.FromValues(values))
	require.NoError(t, err)

	out := drain(t, stream)
	assert.Len(t, out, len(values))
}
