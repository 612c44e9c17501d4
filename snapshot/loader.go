package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

// Load restores state from dir into the given market agents. A missing
// snapshot is not an error; the run simply starts fresh.
func Load(
	dir string,
	organizer *market.Organizer,
	auction *market.Auction,
) (Snapshot, error) {
	f, err := os.Open(filepath.Join(dir, "snapshot.bin"))
	if err != nil {
		return Snapshot{Version: Version}, nil // snapshot optional
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	if s.Version != Version {
		return Snapshot{}, fmt.Errorf("snapshot: unsupported version %d", s.Version)
	}

	if organizer != nil {
		organizer.Restore(market.State(s.State), s.Traded)
	}

	if auction != nil {
		for _, e := range s.Orders {
			book := auction.Book(simulation.PropertyID(e.Property))
			if book == nil {
				continue
			}
			if _, err := book.Insert(&orderbook.Order{
				Owner:    simulation.AgentID(e.Owner),
				Property: simulation.PropertyID(e.Property),
				Side:     orderbook.Side(e.Side),
				Price:    orderbook.Price(e.Price),
				Quantity: orderbook.Quantity(e.Qty),
			}); err != nil {
				return Snapshot{}, fmt.Errorf("snapshot: restore order: %w", err)
			}
		}
	}

	return s, nil
}
