package testutil_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindlab/internal/env"
	"github.com/roach88/bindlab/internal/heap"
	"github.com/roach88/bindlab/internal/seq"
	"github.com/roach88/bindlab/internal/testutil"
	"github.com/roach88/bindlab/internal/value"
)

var _ seq.Source = (*testutil.DeterministicClock)(nil)

// stampRun drives a short aliasing session on clock and returns the seq of
// every emitted event.
func stampRun(t *testing.T, clock seq.Source) []int64 {
	t.Helper()
	rec := &env.Recorder{}
	e := env.New(heap.New(), env.WithSink(rec), env.WithClock(clock))

	e.Note("aliasing")
	h, err := e.Store().NewSequence(value.Number(1))
	require.NoError(t, err)
	require.NoError(t, e.Declare("a", h))
	require.NoError(t, e.Declare("b", h))
	_, err = e.Append("b", value.Number(2))
	require.NoError(t, err)
	require.NoError(t, e.Print("a"))

	var stamps []int64
	for _, ev := range rec.Events() {
		stamps = append(stamps, ev.Seq)
	}
	return stamps
}

func TestDeterministicClock_StampsEventsFromOne(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	stamps := stampRun(t, clock)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, stamps)
	assert.Equal(t, int64(5), clock.Current())
}

func TestDeterministicClock_ResetReplaysStamps(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	first := stampRun(t, clock)

	clock.Reset()
	assert.Zero(t, clock.Current())
	assert.Equal(t, first, stampRun(t, clock))
}

func TestDeterministicClock_SeparateClocksAgree(t *testing.T) {
	assert.Equal(t,
		stampRun(t, testutil.NewDeterministicClock()),
		stampRun(t, testutil.NewDeterministicClock()))
}

func TestDeterministicClock_ResumesAfterRecordedPosition(t *testing.T) {
	clock := testutil.NewDeterministicClockAt(40)
	assert.Equal(t, []int64{41, 42, 43, 44, 45}, stampRun(t, clock))
}

func TestDeterministicClock_SharedAcrossEnvironments(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	store := heap.New()
	const sessions = 8
	const notes = 50

	recs := make([]*env.Recorder, sessions)
	var wg sync.WaitGroup
	for i := range recs {
		recs[i] = &env.Recorder{}
		e := env.New(store, env.WithSink(recs[i]), env.WithClock(clock))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < notes; j++ {
				e.Note("tick")
			}
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool, sessions*notes)
	for _, rec := range recs {
		var last int64
		for _, ev := range rec.Events() {
			require.False(t, seen[ev.Seq], "seq %d stamped twice", ev.Seq)
			seen[ev.Seq] = true
			assert.Greater(t, ev.Seq, last, "stamps within one environment increase")
			last = ev.Seq
		}
	}
	assert.Len(t, seen, sessions*notes)
	assert.Equal(t, int64(sessions*notes), clock.Current())
}
