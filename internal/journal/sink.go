package journal

import (
	"context"
	"sync"

	"github.com/roach88/bindlab/internal/env"
)

// Sink writes environment events into a journal run.
//
// env.Sink has no error return, so the first write failure is kept and
// reported by Err; later events are dropped.
type Sink struct {
	ctx   context.Context
	j     *Journal
	runID string

	mu  sync.Mutex
	err error
}

// NewSink returns a sink appending to run runID. The run must have been begun.
func NewSink(ctx context.Context, j *Journal, runID string) *Sink {
	return &Sink{ctx: ctx, j: j, runID: runID}
}

func (s *Sink) Emit(ev env.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if err := s.j.Append(s.ctx, EntryFromEvent(s.runID, ev)); err != nil {
		s.err = err
		s.j.logger.Error("journal append failed", "run_id", s.runID, "seq", ev.Seq, "error", err)
	}
}

// Err returns the first append failure, if any.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
