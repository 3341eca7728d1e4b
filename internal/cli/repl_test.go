package cli

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindlab/internal/value"
)

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return NewSession(buf, slog.New(slog.NewTextHandler(io.Discard, nil))), buf
}

func evalAll(t *testing.T, s *Session, lines ...string) {
	t.Helper()
	for _, line := range lines {
		quit, err := s.Eval(line)
		require.NoError(t, err, "line %q", line)
		require.False(t, quit)
	}
}

func TestSession_SharedBuffer(t *testing.T) {
	s, buf := newTestSession(t)

	evalAll(t, s,
		"let command_buffer = [10, 20, 30]",
		"let logger_view = command_buffer",
		"command_buffer.push(40)",
		"print logger_view",
		"command_buffer === logger_view",
	)

	want := strings.Join([]string{
		"let command_buffer = [ 10, 20, 30 ]",
		"let logger_view = [ 10, 20, 30 ]",
		"command_buffer.push(40) returned 4",
		"logger_view: [ 10, 20, 30, 40 ]",
		"command_buffer === logger_view: true",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestSession_PrimitiveCopy(t *testing.T) {
	s, _ := newTestSession(t)

	evalAll(t, s, "let a = 5", "let b = a", "b = 6")

	a, err := s.Env().Read("a")
	require.NoError(t, err)
	assert.Equal(t, value.Number(5), a)
}

func TestSession_ReadPrintsValue(t *testing.T) {
	s, buf := newTestSession(t)
	evalAll(t, s, "let obj = {mode: 'auto'}")
	buf.Reset()

	evalAll(t, s, "obj.mode", "obj.missing")
	assert.Equal(t, "'auto'\nundefined\n", buf.String())
}

func TestSession_Scopes(t *testing.T) {
	s, buf := newTestSession(t)

	evalAll(t, s, "let x = 1", "{", "let x = [1]", "}", "x")
	assert.Contains(t, buf.String(), "{ scope 1")
	assert.Contains(t, buf.String(), "} scope 0")
	assert.True(t, strings.HasSuffix(buf.String(), "\n1\n"))
}

func TestSession_ErrorsKeepSessionUsable(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.Eval("ghost = 1")
	require.Error(t, err)
	assert.True(t, value.IsUnboundName(err))

	_, err = s.Eval("let = = =")
	require.Error(t, err)

	evalAll(t, s, "let ok = 1")
	v, err := s.Env().Read("ok")
	require.NoError(t, err)
	assert.Equal(t, value.Number(1), v)
}

func TestSession_Commands(t *testing.T) {
	s, buf := newTestSession(t)
	evalAll(t, s, "let a = [1]", "let b = a", "let n = 'x'")
	buf.Reset()

	evalAll(t, s, ":typeof a")
	assert.Equal(t, "object\n", buf.String())

	buf.Reset()
	evalAll(t, s, ":aliases a")
	assert.Equal(t, "b\n", buf.String())

	buf.Reset()
	evalAll(t, s, ":names")
	assert.Equal(t, "a = [ 1 ]\nb = [ 1 ]\nn = 'x'\n", buf.String())

	buf.Reset()
	evalAll(t, s, ":live")
	assert.Equal(t, "1\n", buf.String())

	buf.Reset()
	evalAll(t, s, ":help")
	assert.Contains(t, buf.String(), ":quit")

	_, err := s.Eval(":typeof")
	require.Error(t, err)
	_, err = s.Eval(":bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	quit, err := s.Eval(":quit")
	require.NoError(t, err)
	assert.True(t, quit)
}
