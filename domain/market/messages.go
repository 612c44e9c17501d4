package market

import (
	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

// Quote is a proposed price for one property. Quotes are ephemeral: they
// are broadcast to participants and never rest in a book.
type Quote struct {
	Property simulation.PropertyID `json:"property"`
	Price    orderbook.Price       `json:"price"`
}

// OrderMessage carries one participant's trading instruction to a market
// organizer. At most one order per sender per property counts per clearing
// interval; a later message overwrites an earlier one.
type OrderMessage struct {
	interaction.Header
	Side     orderbook.Side
	Property simulation.PropertyID
	Price    orderbook.Price
	Quantity orderbook.Quantity
}

// QuoteMessage carries the organizer's current prices for every traded
// property, broadcast to all participants at the start of a quoting phase.
type QuoteMessage struct {
	interaction.Header
	Quotes []Quote
}
