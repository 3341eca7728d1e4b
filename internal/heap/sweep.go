package heap

import (
	"github.com/roach88/bindlab/internal/value"
)

// children returns the handles held directly by agg. Caller holds agg.mu.
func (agg *aggregate) children() []value.Handle {
	var out []value.Handle
	if agg.shape == ShapeRecord {
		for _, k := range agg.keys {
			if h, ok := agg.fields[k].(value.Handle); ok {
				out = append(out, h)
			}
		}
		return out
	}
	for _, e := range agg.elems {
		if h, ok := e.(value.Handle); ok {
			out = append(out, h)
		}
	}
	return out
}

// Reachable returns the set of live handles reachable from roots,
// following handles nested inside aggregates. Cycles are visited once.
func (s *Store) Reachable(roots []value.Handle) map[value.Handle]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markLocked(roots)
}

func (s *Store) markLocked(roots []value.Handle) map[value.Handle]bool {
	marked := make(map[value.Handle]bool, len(roots))
	stack := append([]value.Handle(nil), roots...)

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if marked[h] {
			continue
		}
		agg, ok := s.aggs[h]
		if !ok {
			continue
		}
		marked[h] = true

		agg.mu.Lock()
		kids := agg.children()
		agg.mu.Unlock()

		for _, k := range kids {
			if !marked[k] {
				stack = append(stack, k)
			}
		}
	}
	return marked
}

// Release drops the given aggregates regardless of reachability and returns
// how many were live. It undoes allocations made for an operation that then
// failed; callers must not release a handle anything still refers to.
func (s *Store) Release(handles ...value.Handle) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := 0
	for _, h := range handles {
		if _, ok := s.aggs[h]; ok {
			delete(s.aggs, h)
			released++
		}
	}
	if released > 0 {
		s.logger.Debug("aggregates released", "released", released, "live", len(s.aggs))
	}
	return released
}

// Sweep reclaims every aggregate not reachable from roots and returns the
// number reclaimed. Roots that are not live are ignored.
func (s *Store) Sweep(roots []value.Handle) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := s.markLocked(roots)

	reclaimed := 0
	for h := range s.aggs {
		if !marked[h] {
			delete(s.aggs, h)
			reclaimed++
		}
	}

	s.logger.Debug("sweep complete", "roots", len(roots), "live", len(s.aggs), "reclaimed", reclaimed)
	return reclaimed
}
