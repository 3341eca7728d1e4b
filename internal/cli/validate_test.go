package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cueScenario = `name: "cue_alias"
steps: [
	{declare: "a", value: [1, 2]},
	{declare: "b", from: "a"},
	{print: "b"},
]
`

func executeValidate(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	cmd := NewValidateCommand(&RootOptions{Format: format})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestValidateCommand_Valid(t *testing.T) {
	dir := t.TempDir()
	yamlFile := writeScenario(t, dir, "alias.yaml", aliasScenario)
	cueFile := writeScenario(t, dir, "alias.cue", cueScenario)

	buf, err := executeValidate(t, "text", yamlFile, cueFile)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ "+yamlFile+" (alias_demo)")
	assert.Contains(t, buf.String(), "✓ "+cueFile+" (cue_alias)")
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	good := writeScenario(t, dir, "alias.yaml", aliasScenario)
	bad := writeScenario(t, dir, "bad.yaml", "name: Bad-Name\nsteps:\n  - print: a\n")

	buf, err := executeValidate(t, "text", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ "+bad)
	assert.Contains(t, buf.String(), "lower_snake_case")
}

func TestValidateCommand_CUEPosition(t *testing.T) {
	dir := t.TempDir()
	bad := writeScenario(t, dir, "bad.cue", "name: \"cue_bad\"\nsteps: [{bogus: 1}]\n")

	buf, err := executeValidate(t, "json", bad)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeLoadFailed, resp.Error.Code)
	require.Len(t, resp.Data.Files, 1)
	assert.False(t, resp.Data.Files[0].Valid)
	assert.NotEmpty(t, resp.Data.Files[0].Error)
}
