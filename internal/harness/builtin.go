package harness

import (
	"embed"
	"fmt"
	"path"
)

//go:embed scenarios/*.yaml scenarios/*.cue
var builtinFS embed.FS

// builtinOrder is the order demonstrations run in.
var builtinOrder = []string{
	"primitive_copy",
	"record_alias",
	"shared_command_buffer",
	"rebind_keeps_alias",
	"failed_mutations",
	"const_bindings",
	"block_scope",
	"typeof_table",
}

// BuiltinNames lists the embedded demonstrations in run order.
func BuiltinNames() []string {
	out := make([]string, len(builtinOrder))
	copy(out, builtinOrder)
	return out
}

// Builtin loads one embedded demonstration by name.
func Builtin(name string) (*Scenario, error) {
	for _, ext := range []string{".yaml", ".cue"} {
		file := path.Join("scenarios", name+ext)
		data, err := builtinFS.ReadFile(file)
		if err != nil {
			continue
		}
		if ext == ".cue" {
			return ParseCUEScenario(data, file)
		}
		return ParseScenario(data)
	}
	return nil, fmt.Errorf("unknown demonstration %q", name)
}

// Builtins loads every embedded demonstration in run order.
func Builtins() ([]*Scenario, error) {
	out := make([]*Scenario, 0, len(builtinOrder))
	for _, name := range builtinOrder {
		s, err := Builtin(name)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", name, err)
		}
		out = append(out, s)
	}
	return out, nil
}
