package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindlab/internal/env"
	"github.com/roach88/bindlab/internal/heap"
	"github.com/roach88/bindlab/internal/testutil"
	"github.com/roach88/bindlab/internal/value"
)

func newTestRunner(t *testing.T) (*Runner, *env.Recorder) {
	t.Helper()
	rec := &env.Recorder{}
	e := env.New(heap.New(), env.WithSink(rec), env.WithClock(testutil.NewDeterministicClock()))
	return NewRunner(e), rec
}

func mustParseSteps(t *testing.T, src string) []Step {
	t.Helper()
	s, err := ParseScenario([]byte("name: steps\nsteps:\n" + src))
	require.NoError(t, err)
	return s.Steps
}

func TestRunner_ReadReturnsDisplay(t *testing.T) {
	r, _ := newTestRunner(t)
	steps := mustParseSteps(t, `
  - declare: cfg
    value: {mode: auto, gains: [1, 2]}
  - read: cfg
  - read: cfg
    field: gains
  - read: cfg
    field: mode
    expect: auto
`)
	_, err := r.Exec(steps[0])
	require.NoError(t, err)

	out, err := r.Exec(steps[1])
	require.NoError(t, err)
	assert.Equal(t, "{ mode: 'auto', gains: [ 1, 2 ] }", out)

	out, err = r.Exec(steps[2])
	require.NoError(t, err)
	assert.Equal(t, "[ 1, 2 ]", out)

	_, err = r.Exec(steps[3])
	require.NoError(t, err)
}

func TestRunner_ReadExpectMismatch(t *testing.T) {
	r, _ := newTestRunner(t)
	steps := mustParseSteps(t, `
  - declare: n
    value: 1
  - read: n
    expect: 2
`)
	_, err := r.Exec(steps[0])
	require.NoError(t, err)
	_, err = r.Exec(steps[1])
	assert.ErrorContains(t, err, "expected 2, got 1")
}

func TestRunner_ExpectedError(t *testing.T) {
	r, rec := newTestRunner(t)
	steps := mustParseSteps(t, `
  - read: ghost
    error: UNBOUND_NAME
  - read: ghost
    error: WRONG_KIND
  - declare: ok
    value: 1
    error: UNBOUND_NAME
`)

	out, err := r.Exec(steps[0])
	require.NoError(t, err)
	assert.Equal(t, "UNBOUND_NAME", out)
	assert.Equal(t, "read ghost failed with UNBOUND_NAME\n", rec.Transcript())

	_, err = r.Exec(steps[1])
	require.Error(t, err)
	assert.True(t, value.IsUnboundName(err), "mismatch wraps the actual error")

	_, err = r.Exec(steps[2])
	assert.ErrorContains(t, err, "but declare succeeded")
}

func TestRunner_AppendAndCompare(t *testing.T) {
	r, rec := newTestRunner(t)
	steps := mustParseSteps(t, `
  - declare: a
    value: []
  - declare: b
    value: !ref a
  - append: b
    value: x
  - compare: [a, b]
  - collect: true
`)
	var outs []string
	for _, s := range steps {
		out, err := r.Exec(s)
		require.NoError(t, err)
		outs = append(outs, out)
	}
	assert.Equal(t, []string{"", "", "1", "true", "0"}, outs)
	assert.Contains(t, rec.Transcript(), "a === b: true\n")
}

func TestRunner_SetIndexAndField(t *testing.T) {
	r, _ := newTestRunner(t)
	steps := mustParseSteps(t, `
  - declare: buf
    value: [1, 2]
  - set: buf
    index: 1
    value: 5
  - declare: rec
    value: {}
  - set: rec
    field: k
    from: buf
  - read: rec
    field: k
    expect: [1, 5]
`)
	for _, s := range steps {
		_, err := r.Exec(s)
		require.NoError(t, err, s.Describe())
	}
}

func TestRunner_ExpectKeepsKindsDistinct(t *testing.T) {
	r, _ := newTestRunner(t)
	steps := mustParseSteps(t, `
  - declare: a
    value: {k: null, xs: [null]}
  - read: a
    expect: {k: !undefined, xs: [!undefined]}
  - read: a
    expect: {k: null, xs: [!undefined]}
  - read: a
    expect: {xs: [null], k: null}
  - read: a
    expect: {k: null, xs: [null]}
`)
	_, err := r.Exec(steps[0])
	require.NoError(t, err)

	_, err = r.Exec(steps[1])
	assert.ErrorContains(t, err, "expected { k: undefined, xs: [ undefined ] }, got { k: null, xs: [ null ] }")
	_, err = r.Exec(steps[2])
	assert.Error(t, err, "nested undefined must not match null")
	_, err = r.Exec(steps[3])
	assert.Error(t, err, "key order is part of a record's contents")
	_, err = r.Exec(steps[4])
	assert.NoError(t, err)
}

func TestRunner_ExpectShapeAndLength(t *testing.T) {
	r, _ := newTestRunner(t)
	steps := mustParseSteps(t, `
  - declare: buf
    value: [1, 2]
  - read: buf
    expect: {"0": 1, "1": 2}
  - read: buf
    expect: [1, 2, 3]
  - read: buf
    expect: 2
`)
	_, err := r.Exec(steps[0])
	require.NoError(t, err)
	for _, s := range steps[1:] {
		_, err := r.Exec(s)
		assert.Error(t, err)
	}
}

func TestRunner_ExpectNaN(t *testing.T) {
	r, _ := newTestRunner(t)
	steps := mustParseSteps(t, `
  - declare: samples
    value: [.nan, 1]
  - read: samples
    expect: [.nan, 1]
  - read: samples
    index: 0
    expect: .nan
`)
	for _, s := range steps {
		_, err := r.Exec(s)
		require.NoError(t, err, s.Describe())
	}
}

func TestRunner_FailedWriteReleasesLiteral(t *testing.T) {
	r, _ := newTestRunner(t)
	steps := mustParseSteps(t, `
  - declare: cfg
    value: {mode: auto}
  - append: cfg
    value: [1, 2]
    error: WRONG_KIND
  - declare: cfg
    value: [9, [10]]
    error: DUPLICATE_BINDING
  - assign: ghost
    value: {nested: [1]}
    error: UNBOUND_NAME
  - set: cfg
    field: gains
    value: {kept: [1], bad: !ref ghost}
    error: UNBOUND_NAME
`)
	store := r.Env().Store()
	for _, s := range steps {
		_, err := r.Exec(s)
		require.NoError(t, err, s.Describe())
		assert.Equal(t, 1, store.Live(), "after %s", s.Describe())
	}

	n, err := r.Env().Len("cfg")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunner_SetFieldIndexKeyOnSequence(t *testing.T) {
	r, _ := newTestRunner(t)
	steps := mustParseSteps(t, `
  - declare: buf
    value: [1, 2]
  - set: buf
    field: "1"
    value: 5
  - set: buf
    field: "5"
    value: 1
    error: OUT_OF_RANGE
  - read: buf
    expect: [1, 5]
`)
	for _, s := range steps {
		_, err := r.Exec(s)
		require.NoError(t, err, s.Describe())
	}
}
