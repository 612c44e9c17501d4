package orderbook

import (
	"github.com/maartenscholl/esl/domain/simulation"
)

// Book is the resting-order state for one property: a continuous double
// auction with price-time priority. The book is exclusively owned by its
// market organizer; nothing here locks because no concurrent writer exists
// by contract.
//
// Insert never matches. Callers watch the crossed return and decide when to
// settle, which lets batch-arrival callers enqueue a whole interval of
// orders before matching.
type Book struct {
	property simulation.PropertyID
	bids     *rbTree
	asks     *rbTree

	// arrivals stamps insertion order, the tie-break authority among
	// equal prices. Strictly monotonic, so two resting orders can never
	// share a stamp.
	arrivals uint64
}

// New creates an empty book for one property.
func New(property simulation.PropertyID) *Book {
	return &Book{
		property: property,
		bids:     newRBTree(),
		asks:     newRBTree(),
	}
}

// Property returns the property this book trades.
func (b *Book) Property() simulation.PropertyID { return b.property }

// Insert adds an order to its side of the book and reports whether the book
// is crossed afterwards (best bid >= best ask), signaling the caller to
// match. Orders with non-positive price or quantity, orders for another
// property, and orders already resting fail with ErrInvalidOrder.
func (b *Book) Insert(o *Order) (bool, error) {
	if err := o.validate(); err != nil {
		return false, err
	}
	if o.Property != b.property || o.Resting() {
		return false, ErrInvalidOrder
	}

	b.arrivals++
	o.arrival = b.arrivals
	b.side(o.Side).Upsert(o.Price).enqueue(o)
	return b.Crossed(), nil
}

// Erase removes an exact resting order from its side. Erasing an order that
// is not in the book (never inserted, already erased, or fully filled)
// fails with ErrOrderNotFound.
func (b *Book) Erase(o *Order) error {
	if o == nil || !o.Resting() {
		return ErrOrderNotFound
	}
	tree := b.side(o.Side)
	level := tree.Find(o.Price)
	if level == nil {
		return ErrOrderNotFound
	}
	for n := level.head; n != nil; n = n.next {
		if n == o {
			b.remove(tree, level, n)
			return nil
		}
	}
	return ErrOrderNotFound
}

// Best returns the order with price-time priority on a side: the highest
// bid or the lowest ask, earliest arrival first among equals. Fails with
// ErrEmptyBookSide when the side has no orders.
func (b *Book) Best(side Side) (*Order, error) {
	var level *PriceLevel
	if side == Bid {
		level = b.bids.Max()
	} else {
		level = b.asks.Min()
	}
	if level == nil || level.head == nil {
		return nil, ErrEmptyBookSide
	}
	return level.head, nil
}

// Spread returns best ask price minus best bid price. Callers must ensure
// both sides are non-empty; otherwise ErrEmptyBookSide.
func (b *Book) Spread() (Price, error) {
	bestBid, err := b.Best(Bid)
	if err != nil {
		return 0, err
	}
	bestAsk, err := b.Best(Ask)
	if err != nil {
		return 0, err
	}
	return bestAsk.Price - bestBid.Price, nil
}

// Crossed reports whether the best bid price is at or above the best ask
// price. A crossed book is transient: it only exists between an insert and
// the matching that settles it.
func (b *Book) Crossed() bool {
	bestBid := b.bids.Max()
	bestAsk := b.asks.Min()
	return bestBid != nil && bestAsk != nil && bestBid.Price >= bestAsk.Price
}

// Match executes a single crossing trade between two specific resting
// orders. It is the sole place execution happens and never looks at the
// rest of the book. The executed quantity is the minimum of the two; the
// trade prints at the earlier-arrived order's price (time priority names
// the resting price). A fully filled order leaves the book; the side with
// remaining quantity stays resting with its quantity reduced, keeping its
// queue position.
func (b *Book) Match(bid, ask *Order) (Trade, error) {
	if bid == nil || ask == nil || bid.Side != Bid || ask.Side != Ask {
		return Trade{}, ErrInvalidOrder
	}
	if bid.Property != b.property || ask.Property != b.property {
		return Trade{}, ErrInvalidOrder
	}
	if bid.Price < ask.Price {
		return Trade{}, ErrNotCrossed
	}

	executed := bid.Quantity
	if ask.Quantity < executed {
		executed = ask.Quantity
	}

	price := bid.Price
	if ask.arrival != 0 && (bid.arrival == 0 || ask.arrival < bid.arrival) {
		price = ask.Price
	}

	b.fill(bid, executed)
	b.fill(ask, executed)

	return Trade{
		Property: b.property,
		Price:    price,
		Quantity: executed,
		Buyer:    bid.Owner,
		Seller:   ask.Owner,
	}, nil
}

// MatchQueue is the batch entry point: it inserts each queued order in turn
// and, whenever the book becomes crossed, matches best bid against best ask
// until the book is uncrossed. Invalid orders are rejected individually and
// returned; they never abort the rest of the queue. On return the book is
// not crossed.
func (b *Book) MatchQueue(queue []*Order) (trades []Trade, rejected []*Order) {
	for _, o := range queue {
		crossed, err := b.Insert(o)
		if err != nil {
			rejected = append(rejected, o)
			continue
		}
		for crossed {
			bestBid, err := b.Best(Bid)
			if err != nil {
				break
			}
			bestAsk, err := b.Best(Ask)
			if err != nil {
				break
			}
			trade, err := b.Match(bestBid, bestAsk)
			if err != nil {
				break
			}
			trades = append(trades, trade)
			crossed = b.Crossed()
		}
	}
	return trades, rejected
}

// Walk visits the levels of one side in priority order: descending prices
// for bids, ascending for asks.
func (b *Book) Walk(side Side, fn func(*PriceLevel) bool) {
	if side == Bid {
		b.bids.Descend(fn)
	} else {
		b.asks.Ascend(fn)
	}
}

// Levels returns up to depth aggregated levels of one side in priority
// order. Used by reporting surfaces; the returned values are copies.
func (b *Book) Levels(side Side, depth int) []PriceLevel {
	out := make([]PriceLevel, 0, depth)
	b.Walk(side, func(l *PriceLevel) bool {
		out = append(out, PriceLevel{Price: l.Price, TotalQty: l.TotalQty, Count: l.Count})
		return depth <= 0 || len(out) < depth
	})
	return out
}

// Size returns the number of resting orders on a side.
func (b *Book) Size(side Side) int {
	n := 0
	b.Walk(side, func(l *PriceLevel) bool {
		n += l.Count
		return true
	})
	return n
}

func (b *Book) side(s Side) *rbTree {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// fill reduces an order by the executed quantity, erasing it when fully
// filled. Orders passed to Match are resting by contract of MatchQueue, but
// fill tolerates detached orders so Match can be used standalone.
func (b *Book) fill(o *Order, executed Quantity) {
	tree := b.side(o.Side)
	var level *PriceLevel
	if o.Resting() {
		level = tree.Find(o.Price)
	}
	if level != nil {
		level.reduce(executed)
	}
	o.Quantity -= executed
	if level != nil && o.Quantity <= 0 {
		b.remove(tree, level, o)
	}
}

func (b *Book) remove(tree *rbTree, level *PriceLevel, o *Order) {
	level.unlink(o)
	o.arrival = 0
	if level.head == nil {
		tree.Delete(level.Price)
	}
}
