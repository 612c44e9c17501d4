package main

import (
	"fmt"
	"math/rand"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

// trader is a zero-intelligence participant: on every quote broadcast it
// submits one order per quoted property at a uniformly perturbed price.
// It exists to drive the market agents in the demo run.
type trader struct {
	id     simulation.AgentID
	outbox interaction.Outbox

	dispatcher *interaction.Dispatcher

	// noise is the half-width of the price perturbation in basis points.
	noise  int64
	maxQty int64
}

func newTrader(id simulation.AgentID, outbox interaction.Outbox, noise, maxQty int64) *trader {
	t := &trader{
		id:         id,
		outbox:     outbox,
		dispatcher: interaction.NewDispatcher(),
		noise:      noise,
		maxQty:     maxQty,
	}
	t.dispatcher.Register(interaction.CodeQuote, 0,
		"respond to quotes with random orders", t.onQuote)
	return t
}

func (t *trader) ID() simulation.AgentID { return t.id }

func (t *trader) Describe() string {
	return fmt.Sprintf("zero intelligence trader %s", t.id)
}

func (t *trader) Deliver(msg interaction.Message, step simulation.TimeInterval, rng *rand.Rand) simulation.TimePoint {
	wake, _ := t.dispatcher.Dispatch(msg, step, rng)
	return wake
}

// Act is a no-op; the trader only reacts to quotes.
func (t *trader) Act(step simulation.TimeInterval, _ *rand.Rand) simulation.TimePoint {
	return step.Upper
}

func (t *trader) onQuote(msg interaction.Message, step simulation.TimeInterval, rng *rand.Rand) simulation.TimePoint {
	qm, ok := msg.(market.QuoteMessage)
	if !ok {
		return step.Upper
	}

	for _, q := range qm.Quotes {
		side := orderbook.Bid
		if rng.Intn(2) == 1 {
			side = orderbook.Ask
		}

		// Perturb the quoted price by up to +-noise basis points.
		bps := rng.Int63n(2*t.noise+1) - t.noise
		price := int64(q.Price) + int64(q.Price)*bps/10_000
		if price < 1 {
			price = 1
		}

		t.outbox.Send(market.OrderMessage{
			Header: interaction.NewHeader(interaction.CodeOrder,
				t.id, qm.Sender, step.Lower, step.Lower+1),
			Side:     side,
			Property: q.Property,
			Price:    orderbook.Price(price),
			Quantity: orderbook.Quantity(1 + rng.Int63n(t.maxQty)),
		})
	}
	return step.Upper
}
