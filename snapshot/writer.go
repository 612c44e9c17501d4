package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

type Writer struct {
	Dir   string
	RunID string
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, RunID: uuid.NewString()}
}

// Write persists the organizer phase, any resting auction orders, and the
// publisher sequence. The file is written whole and then renamed so a crash
// mid-write leaves the previous snapshot intact.
func (w *Writer) Write(
	seq uint64,
	now simulation.TimePoint,
	organizer *market.Organizer,
	auction *market.Auction,
) error {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return err
	}

	s := Snapshot{
		Version: Version,
		RunID:   w.RunID,
		Created: time.Now(),
		Seq:     seq,
		Now:     now,
	}

	if organizer != nil {
		s.State = int(organizer.State())
		s.Traded = organizer.Quotes()
	}

	if auction != nil {
		for _, property := range auction.Properties() {
			book := auction.Book(property)
			for _, side := range []orderbook.Side{orderbook.Bid, orderbook.Ask} {
				book.Walk(side, func(lvl *orderbook.PriceLevel) bool {
					for o := lvl.Head(); o != nil; o = o.Next() {
						s.Orders = append(s.Orders, OrderEntry{
							Owner:    uint64(o.Owner),
							Property: uint64(o.Property),
							Side:     int(o.Side),
							Price:    int64(o.Price),
							Qty:      int64(o.Quantity),
						})
					}
					return true
				})
			}
		}
	}

	path := filepath.Join(w.Dir, "snapshot.bin")
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(&s); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
