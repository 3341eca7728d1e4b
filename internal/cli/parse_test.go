package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bindlab/internal/harness"
)

func TestParseLine_Kinds(t *testing.T) {
	tests := []struct {
		line   string
		kind   string
		target string
	}{
		{"let a = [1, 2]", harness.StepDeclare, "a"},
		{"const limits = {max: 3};", harness.StepConst, "limits"},
		{"a = 3", harness.StepAssign, "a"},
		{"a.push(4)", harness.StepAppend, "a"},
		{"a.mode = 'auto'", harness.StepSet, "a"},
		{"a[0] = 9", harness.StepSet, "a"},
		{`a["two words"] = 1`, harness.StepSet, "a"},
		{"print a", harness.StepPrint, "a"},
		{"a", harness.StepRead, "a"},
		{"a.mode", harness.StepRead, "a"},
		{"a[2]", harness.StepRead, "a"},
		{"a === b", harness.StepCompare, ""},
		{"{", harness.StepScope, ""},
		{"}", harness.StepScope, ""},
		{"collect", harness.StepCollect, ""},
		{"# aliasing", harness.StepNote, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			step, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, step.Kind())
			assert.Equal(t, tt.target, step.Target())
		})
	}
}

func TestParseLine_Selectors(t *testing.T) {
	step, err := ParseLine("obj.range_m = 25")
	require.NoError(t, err)
	assert.Equal(t, "range_m", step.Field)
	assert.Nil(t, step.Index)

	step, err = ParseLine("buf[-1]")
	require.NoError(t, err)
	require.NotNil(t, step.Index)
	assert.Equal(t, -1, *step.Index)

	step, err = ParseLine(`obj["x.y"] = true`)
	require.NoError(t, err)
	assert.Equal(t, "x.y", step.Field)
	assert.Equal(t, "true", step.Value.Value)
}

func TestParseLine_OperandNameIsFrom(t *testing.T) {
	step, err := ParseLine("let b = a")
	require.NoError(t, err)
	assert.Equal(t, "a", step.From)
	assert.Zero(t, step.Value.Kind)

	step, err = ParseLine("other.push(a)")
	require.NoError(t, err)
	assert.Equal(t, "a", step.From)
}

func TestParseLine_OperandLiterals(t *testing.T) {
	tests := []struct {
		line string
		kind yaml.Kind
		tag  string
	}{
		{"let n = 1.5", yaml.ScalarNode, "!!float"},
		{"let s = 'a b'", yaml.ScalarNode, "!!str"},
		{"let t = true", yaml.ScalarNode, "!!bool"},
		{"let z = null", yaml.ScalarNode, "!!null"},
		{"let u = undefined", yaml.ScalarNode, harness.TagUndefined},
		{"let q = [1, [2]]", yaml.SequenceNode, "!!seq"},
		{"let r = {k: v}", yaml.MappingNode, "!!map"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			step, err := ParseLine(tt.line)
			require.NoError(t, err)
			require.NotZero(t, step.Value.Kind)
			assert.Empty(t, step.From)
			assert.Equal(t, tt.kind, step.Value.Kind)
			if tt.tag == harness.TagUndefined {
				assert.Equal(t, tt.tag, step.Value.Tag)
			} else {
				assert.Equal(t, tt.tag, step.Value.ShortTag())
			}
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"", "empty input"},
		{"#", "empty note"},
		{"a == b", "unsupported operator"},
		{"let a = [1, 2", "invalid literal"},
		{`a[""] = 1`, "empty key"},
		{"1 + 2", "cannot parse"},
		{"a.push(1, 2)", "push takes one argument"},
		{"a.push([1], {k: 2})", "push takes one argument"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLine_PushSingleAggregateArgument(t *testing.T) {
	step, err := ParseLine("a.push([1, 2])")
	require.NoError(t, err)
	assert.Equal(t, "a", step.Append)
	assert.Equal(t, yaml.SequenceNode, step.Value.Kind)
	assert.Len(t, step.Value.Content, 2)

	step, err = ParseLine("a.push({x: 1, y: 2})")
	require.NoError(t, err)
	assert.Equal(t, yaml.MappingNode, step.Value.Kind)

	step, err = ParseLine(`a.push("x, y")`)
	require.NoError(t, err)
	assert.Equal(t, "x, y", step.Value.Value)

	step, err = ParseLine("a.push('it''s, fine')")
	require.NoError(t, err)
	assert.Equal(t, "it's, fine", step.Value.Value)
}
