package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindlab/internal/value"
)

func TestSweep_ReclaimsUnreachable(t *testing.T) {
	s := New()
	kept := newSequence(t, s, 1)
	dropped := newSequence(t, s, 2)

	reclaimed := s.Sweep([]value.Handle{kept})
	assert.Equal(t, 1, reclaimed)
	assert.True(t, s.Contains(kept))
	assert.False(t, s.Contains(dropped))

	_, err := s.Len(dropped)
	assert.True(t, value.IsInvalidHandle(err))
}

func TestSweep_FollowsNestedHandles(t *testing.T) {
	s := New()
	inner := newSequence(t, s, 10, 20)
	outer, err := s.NewRecord(F("buffer", inner))
	require.NoError(t, err)

	reclaimed := s.Sweep([]value.Handle{outer})
	assert.Equal(t, 0, reclaimed, "inner is reachable through outer")
	assert.True(t, s.Contains(inner))
}

func TestSweep_Cycles(t *testing.T) {
	s := New()
	a, err := s.NewRecord()
	require.NoError(t, err)
	b, err := s.NewRecord(F("peer", a))
	require.NoError(t, err)
	require.NoError(t, s.SetField(a, "peer", b))
	require.NoError(t, s.SetField(a, "self", a))

	assert.Equal(t, 0, s.Sweep([]value.Handle{a}))
	assert.Equal(t, 2, s.Live())

	// An unreachable cycle is still garbage
	assert.Equal(t, 2, s.Sweep(nil))
	assert.Equal(t, 0, s.Live())
}

func TestReachable(t *testing.T) {
	s := New()
	inner := newSequence(t, s)
	outer, err := s.NewSequence(inner)
	require.NoError(t, err)
	stray := newSequence(t, s)

	marked := s.Reachable([]value.Handle{outer, value.Handle(500)})
	assert.True(t, marked[outer])
	assert.True(t, marked[inner])
	assert.False(t, marked[stray])
	assert.False(t, marked[value.Handle(500)], "dead roots are ignored")
	assert.Equal(t, 3, s.Live(), "Reachable never reclaims")
}

func TestRelease(t *testing.T) {
	s := New()
	kept := newSequence(t, s, 1)
	scratch := newSequence(t, s, 2)

	assert.Equal(t, 1, s.Release(scratch, scratch, value.Handle(999)))
	assert.Equal(t, 1, s.Live())
	assert.True(t, s.Contains(kept))
	assert.False(t, s.Contains(scratch))
	assert.Equal(t, 0, s.Release())
}
