package market

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

// TradeRecord is one executed trade in the auction's append-only output.
type TradeRecord struct {
	ID    string
	Time  simulation.TimePoint
	Trade orderbook.Trade
}

// Auction is the continuous double auction market organizer: order messages
// accumulate over a step and settle through the order book's batch matcher.
// It implements the same Schedulable capability as the periodic clearing
// Organizer; the two are interchangeable behind the agent interface.
type Auction struct {
	id           simulation.MarketID
	properties   []simulation.PropertyID
	books        map[simulation.PropertyID]*orderbook.Book
	participants []simulation.AgentID

	dispatcher *interaction.Dispatcher
	outbox     interaction.Outbox

	pending  map[simulation.PropertyID][]*orderbook.Order
	trades   []TradeRecord
	last     map[simulation.PropertyID]orderbook.Price
	rejected uint64
}

// NewAuction creates a continuous double auction over the given properties.
func NewAuction(
	id simulation.MarketID,
	properties []simulation.PropertyID,
	participants []simulation.AgentID,
	outbox interaction.Outbox,
) *Auction {
	a := &Auction{
		id:           id,
		properties:   append([]simulation.PropertyID(nil), properties...),
		books:        make(map[simulation.PropertyID]*orderbook.Book, len(properties)),
		participants: append([]simulation.AgentID(nil), participants...),
		dispatcher:   interaction.NewDispatcher(),
		outbox:       outbox,
		pending:      make(map[simulation.PropertyID][]*orderbook.Order),
		last:         make(map[simulation.PropertyID]orderbook.Price),
	}
	for _, p := range a.properties {
		a.books[p] = orderbook.New(p)
	}
	a.dispatcher.Register(interaction.CodeOrder, 0,
		"enqueue order for continuous matching", a.enqueueOrder)
	return a
}

// ID returns the auction's agent identity.
func (a *Auction) ID() simulation.AgentID { return a.id.Agent() }

// Describe returns a friendly description mentioning the identifier.
func (a *Auction) Describe() string {
	return fmt.Sprintf("continuous double auction %s", a.id)
}

// Book exposes the resting-order state for one traded property, or nil if
// the property is not traded here.
func (a *Auction) Book(p simulation.PropertyID) *orderbook.Book {
	return a.books[p]
}

// Properties lists the traded properties in construction order.
func (a *Auction) Properties() []simulation.PropertyID {
	return append([]simulation.PropertyID(nil), a.properties...)
}

// Trades exposes the owned append-only trade log.
func (a *Auction) Trades() []TradeRecord { return a.trades }

// Rejected returns how many malformed orders were dropped.
func (a *Auction) Rejected() uint64 { return a.rejected }

// Deliver routes one inbound message through the handler registry.
func (a *Auction) Deliver(msg interaction.Message, step simulation.TimeInterval, rng *rand.Rand) simulation.TimePoint {
	wake, _ := a.dispatcher.Dispatch(msg, step, rng)
	return wake
}

// Act settles each book's accumulated orders and broadcasts the resulting
// last-trade prices as quotes.
func (a *Auction) Act(step simulation.TimeInterval, _ *rand.Rand) simulation.TimePoint {
	var quotes []Quote
	for _, property := range a.properties {
		queue := a.pending[property]
		if len(queue) == 0 {
			continue
		}
		delete(a.pending, property)

		trades, rejected := a.books[property].MatchQueue(queue)
		a.rejected += uint64(len(rejected))
		for _, t := range trades {
			a.trades = append(a.trades, TradeRecord{
				ID:    uuid.NewString(),
				Time:  step.Lower,
				Trade: t,
			})
			a.last[property] = t.Price
		}
		if price, ok := a.last[property]; ok {
			quotes = append(quotes, Quote{Property: property, Price: price})
		}
	}
	if len(quotes) > 0 {
		for _, p := range a.participants {
			a.outbox.Send(QuoteMessage{
				Header: interaction.NewHeader(interaction.CodeQuote,
					a.ID(), p, step.Lower, step.Lower),
				Quotes: quotes,
			})
		}
	}
	return step.Upper
}

// enqueueOrder converts an order message into a book order. Orders for
// untraded properties are ignored; validation happens inside the batch
// matcher so one bad order never blocks the queue.
func (a *Auction) enqueueOrder(msg interaction.Message, step simulation.TimeInterval, _ *rand.Rand) simulation.TimePoint {
	om, ok := msg.(OrderMessage)
	if !ok {
		return step.Upper
	}
	if _, traded := a.books[om.Property]; !traded {
		return step.Upper
	}
	a.pending[om.Property] = append(a.pending[om.Property], &orderbook.Order{
		Owner:    om.Sender,
		Property: om.Property,
		Side:     om.Side,
		Price:    om.Price,
		Quantity: om.Quantity,
	})
	return step.Upper
}
