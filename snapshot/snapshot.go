package snapshot

import (
	"time"

	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/simulation"
)

// Snapshot captures enough state to resume a run: the organizer's phase and
// quote set, the publisher sequence, and every resting order. Output series
// already published through the outbox are not repeated here.
type Snapshot struct {
	Version int
	RunID   string
	Created time.Time
	Seq     uint64

	Now    simulation.TimePoint
	State  int
	Traded []market.Quote

	Orders []OrderEntry
}

// OrderEntry is one resting order flattened for gob encoding.
type OrderEntry struct {
	Owner    uint64
	Property uint64
	Side     int
	Price    int64
	Qty      int64
}

const Version = 1
