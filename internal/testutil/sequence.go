// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

import "sync"

// Sequence hands out increasing numbers starting at 1.
//
// Trace events are numbered from a Sequence instead of wall-clock time, so
// two runs of the same scenario produce identical output.
type Sequence struct {
	mu  sync.Mutex
	seq int64
}

// NewSequence returns a Sequence whose first Next is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next advances the sequence and returns the new value. Safe for concurrent use.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Current returns the last value handed out, or 0.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset starts the sequence over.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}
