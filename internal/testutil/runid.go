package testutil

import (
	"fmt"
	"sync/atomic"
)

// DefaultRunID is returned by a FixedRunIDGenerator built with an empty id.
const DefaultRunID = "test-run-default"

// FixedRunIDGenerator returns the same run id on every call, so repeated
// runs of one scenario produce identical event ids and journal rows.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator returns a generator for id, or DefaultRunID when id is empty.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

// SequentialRunIDGenerator returns "<prefix>-1", "<prefix>-2", ... for tests
// that record several runs into one journal.
type SequentialRunIDGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialRunIDGenerator creates a generator with the given prefix.
func NewSequentialRunIDGenerator(prefix string) *SequentialRunIDGenerator {
	return &SequentialRunIDGenerator{prefix: prefix}
}

// Generate returns the next id in sequence.
func (g *SequentialRunIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
