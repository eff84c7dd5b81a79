package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers for one stream.
// The first number issued is 1; 0 means "nothing sent yet".
//
// Only the owning loop advances it. Reads from other goroutines
// (stats, health) are safe.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose last issued value is start.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Peek returns the number the next call to Next will issue.
func (s *Sequencer) Peek() uint64 {
	return s.last.Load() + 1
}

// Next issues the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
