package orderbook

import (
	"errors"
	"fmt"

	"github.com/maartenscholl/esl/domain/simulation"
)

// Price is a fixed-precision amount in hundredths of the market's
// denomination currency. Arithmetic on int64 hundredths cannot silently
// lose precision the way floating point would.
type Price int64

// Quantity is an amount of a fungible property. Orders with non-positive
// quantity are rejected.
type Quantity int64

// Side of an order.
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

var (
	// ErrInvalidOrder reports an order with a non-positive price or
	// quantity. Rejected orders are skipped, never fatal.
	ErrInvalidOrder = errors.New("orderbook: invalid order")

	// ErrOrderNotFound reports an erase of an order that is not resting
	// in the book. Cancel-after-fill races make this an expected,
	// reportable condition.
	ErrOrderNotFound = errors.New("orderbook: order not found")

	// ErrEmptyBookSide reports a query against a side with no resting
	// orders.
	ErrEmptyBookSide = errors.New("orderbook: empty book side")

	// ErrNotCrossed reports a match attempt between a bid and ask that
	// do not cross.
	ErrNotCrossed = errors.New("orderbook: orders do not cross")
)

// Order is one resting or incoming instruction to trade. Side, owner and
// property are fixed at creation; price and quantity only change through a
// partial fill. Once inserted the order is owned by the book until it is
// erased or fully filled.
type Order struct {
	Owner    simulation.AgentID
	Property simulation.PropertyID
	Side     Side
	Price    Price
	Quantity Quantity

	// arrival is the insertion stamp that decides time priority among
	// equal prices. Zero means the order is not resting.
	arrival uint64

	next *Order
	prev *Order
}

// Arrival exposes the insertion stamp; zero for orders not in a book.
func (o *Order) Arrival() uint64 { return o.arrival }

// Resting reports whether the order currently rests in a book.
func (o *Order) Resting() bool { return o.arrival != 0 }

func (o *Order) validate() error {
	if o == nil || o.Quantity <= 0 || o.Price <= 0 {
		return ErrInvalidOrder
	}
	return nil
}

func (o *Order) String() string {
	return fmt.Sprintf("%s %d@%d %s %s", o.Side, o.Quantity, o.Price, o.Property, o.Owner)
}

// Trade is one executed crossing between a bid and an ask.
type Trade struct {
	Property simulation.PropertyID
	Price    Price
	Quantity Quantity
	Buyer    simulation.AgentID
	Seller   simulation.AgentID
}
