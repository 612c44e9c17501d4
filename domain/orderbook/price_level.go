package orderbook

import "fmt"

// PriceLevel holds the FIFO queue of resting orders at one price. Head is
// the earliest arrival and therefore first in time priority.
type PriceLevel struct {
	Price    Price
	TotalQty Quantity
	Count    int

	head *Order
	tail *Order
}

// Head returns the order with time priority at this level.
func (p *PriceLevel) Head() *Order { return p.head }

// Next returns the order queued behind o at the same level.
func (o *Order) Next() *Order { return o.next }

func (p *PriceLevel) enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty += o.Quantity
	p.Count++
}

func (p *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	p.TotalQty -= o.Quantity
	p.Count--
	if p.TotalQty < 0 {
		p.TotalQty = 0
	}
}

// reduce lowers the level's aggregate after a partial fill of o by qty.
func (p *PriceLevel) reduce(qty Quantity) {
	p.TotalQty -= qty
	if p.TotalQty < 0 {
		p.TotalQty = 0
	}
}

func (p *PriceLevel) String() string {
	return fmt.Sprintf("level %d: %d orders, qty %d", p.Price, p.Count, p.TotalQty)
}
