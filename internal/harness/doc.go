// Package harness runs scripted demonstrations of binding semantics.
//
// # Scenario Format
//
// Scenarios are YAML (or CUE, see ParseCUEScenario) documents:
//
//	name: shared_command_buffer
//	description: "Appends through either alias land in one sequence"
//	steps:
//	  - declare: command_buffer
//	    value: [10, 20, 30]
//	  - declare: logger_view
//	    from: command_buffer
//	  - append: command_buffer
//	    value: 40
//	  - print: logger_view
//	  - read: ghost
//	    error: UNBOUND_NAME
//	assertions:
//	  - type: same_reference
//	    names: [command_buffer, logger_view]
//	  - type: value_equals
//	    name: logger_view
//	    expect: [10, 20, 30, 40]
//
// A step whose error field is set must fail with that code; the failure is
// noted in the transcript and the run continues.
//
// # Assertion Types
//
//   - same_reference: every listed binding holds the first one's aggregate
//   - distinct_reference: no two listed bindings hold the same aggregate
//   - value_equals: structural equality with a literal
//   - type_of: the typeof label of a binding
//   - unbound: the name is not visible
//   - length: number of fields or elements
//   - live_aggregates: store size after the last step
//
// # Deterministic Runs
//
// Run uses a testutil.DeterministicClock by default, so the transcript of a
// scenario is byte-identical across runs and can be compared against a
// golden file with RunWithGolden.
package harness
