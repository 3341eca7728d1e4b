// Package env implements the binding environment: named bindings in a chain
// of scopes, with copy-or-share assignment semantics.
//
// # Assignment semantics
//
// Declare and Assign store a copy of a primitive and the handle itself for an
// aggregate. Consequently:
//
//   - Rebinding a name that held a primitive never affects any other binding.
//   - Two bindings holding one handle see each other's mutations immediately.
//   - Rebinding one alias to something else leaves the aggregate and every
//     other alias untouched.
//
// No operation coerces between kinds.
//
// # Scopes
//
// The environment starts with a global scope. PushScope opens a nested scope
// whose bindings may shadow outer ones; PopScope ends it and its bindings cease
// to exist. Aggregates are reclaimed only by Collect, which sweeps the store
// from the handles of every live binding.
//
// # Events
//
// Every successful declaration, assignment, mutation, print, scope change,
// note, and collection is emitted to the configured Sink with a sequence
// number from the configured seq.Source. Reads and identity queries emit
// nothing.
package env
