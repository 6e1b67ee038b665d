package source

import (
	"errors"
	"testing"

	"github.com/mrafferty/forkmap/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValuesNormalizesScalarsToOneTuples(t *testing.T) {
	s := New(FromValues([]any{10, 20, 30}))

	for i, want := range []int{10, 20, 30} {
		tk, ok, err := s.Pull()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(i), tk.ID)
		assert.Equal(t, []any{want}, tk.Args)
	}

	_, ok, err := s.Pull()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFromArgsPreservesTuples(t *testing.T) {
	s := New(FromArgs([][]any{{1, "a"}, {2, "b"}}))

	tk, ok, err := s.Pull()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []any{1, "a"}, tk.Args)

	tk, ok, err = s.Pull()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []any{2, "b"}, tk.Args)
	assert.Equal(t, uint64(1), tk.ID)
}

func TestSourceAssignsDenseMonotonicIds(t *testing.T) {
	s := New(FromValues([]any{"a", "b", "c", "d"}))

	var ids []uint64
	for {
		tk, ok, err := s.Pull()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, tk.ID)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3}, ids)
}

type failingIterable struct{ pulled bool }

func (f *failingIterable) Next() ([]any, bool, error) {
	if f.pulled {
		return nil, false, nil
	}
	f.pulled = true
	return nil, false, errors.New("boom")
}

func TestSourceSurfacesMalformedInput(t *testing.T) {
	s := New(&failingIterable{})

	_, ok, err := s.Pull()
	assert.False(t, ok)
	assert.ErrorIs(t, err, task.ErrMalformedInput)

	// subsequent pulls keep failing the same way.
	_, ok, err = s.Pull()
	assert.False(t, ok)
	assert.ErrorIs(t, err, task.ErrMalformedInput)
}

func TestSourceEmptyInput(t *testing.T) {
	s := New(FromValues(nil))

	_, ok, err := s.Pull()
	assert.NoError(t, err)
	assert.False(t, ok)
}
