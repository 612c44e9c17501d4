package sequence

import "sync/atomic"

// Sequencer generates strictly monotonic sequence numbers. The environment
// stamps message arrivals with them so that deliveries with equal receive
// times replay in a reproducible order, and the transport uses them for
// exactly-once dedup.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer that continues from start; pass the last restored
// value when resuming from a snapshot, zero on a fresh run.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset sets the sequencer; only used when restoring state.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
