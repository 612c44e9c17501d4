package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

type captureOutbox struct {
	msgs []interaction.Message
}

func (c *captureOutbox) Send(msg interaction.Message) {
	c.msgs = append(c.msgs, msg)
}

const (
	testMarket   = simulation.MarketID(1)
	testGood     = simulation.PropertyID(11)
	testTraderA  = simulation.AgentID(100)
	testTraderB  = simulation.AgentID(101)
	initialPrice = orderbook.Price(10000)
)

func newTestOrganizer(out *captureOutbox) *Organizer {
	return NewOrganizer(
		testMarket,
		[]Quote{{Property: testGood, Price: initialPrice}},
		[]simulation.AgentID{testTraderA, testTraderB},
		LinearImpact(0.001),
		out,
	)
}

func order(sender simulation.AgentID, side orderbook.Side, qty int64, received simulation.TimePoint) OrderMessage {
	return OrderMessage{
		Header: interaction.NewHeader(interaction.CodeOrder,
			sender, testMarket.Agent(), received, received),
		Side:     side,
		Property: testGood,
		Price:    initialPrice,
		Quantity: orderbook.Quantity(qty),
	}
}

func TestOrganizerAlternatesPhases(t *testing.T) {
	out := &captureOutbox{}
	m := newTestOrganizer(out)

	assert.Equal(t, SendingQuotes, m.State())

	wake := m.Act(simulation.TimeInterval{Lower: 0, Upper: 1}, nil)
	assert.Equal(t, simulation.TimePoint(1), wake)
	assert.Equal(t, ClearingMarket, m.State())

	m.Act(simulation.TimeInterval{Lower: 1, Upper: 2}, nil)
	assert.Equal(t, SendingQuotes, m.State())
}

func TestOrganizerBroadcastsQuotesToAllParticipants(t *testing.T) {
	out := &captureOutbox{}
	m := newTestOrganizer(out)

	m.Act(simulation.TimeInterval{Lower: 5, Upper: 6}, nil)

	require.Len(t, out.msgs, 2)
	recipients := map[simulation.AgentID]bool{}
	for _, msg := range out.msgs {
		qm, ok := msg.(QuoteMessage)
		require.True(t, ok)
		assert.Equal(t, interaction.CodeQuote, qm.Code)
		assert.Equal(t, m.ID(), qm.Sender)
		assert.Equal(t, simulation.TimePoint(5), qm.Sent)
		require.Len(t, qm.Quotes, 1)
		assert.Equal(t, initialPrice, qm.Quotes[0].Price)
		recipients[qm.Recipient] = true
	}
	assert.True(t, recipients[testTraderA])
	assert.True(t, recipients[testTraderB])
}

func TestOrganizerClearsWithLinearImpact(t *testing.T) {
	out := &captureOutbox{}
	m := newTestOrganizer(out)

	step := simulation.TimeInterval{Lower: 0, Upper: 1}
	m.Act(step, nil) // quotes out, now clearing

	m.Deliver(order(testTraderA, orderbook.Bid, 10, 1), simulation.TimeInterval{Lower: 1, Upper: 2}, nil)
	m.Deliver(order(testTraderB, orderbook.Ask, 4, 1), simulation.TimeInterval{Lower: 1, Upper: 2}, nil)

	m.Act(simulation.TimeInterval{Lower: 2, Upper: 3}, nil)

	// Net flow +6 and k = 0.001 scale the price by 1.006.
	quotes := m.Quotes()
	require.Len(t, quotes, 1)
	assert.Equal(t, orderbook.Price(10060), quotes[0].Price)

	prices := m.ClearingPrices()
	require.Len(t, prices, 1)
	assert.Equal(t, simulation.TimePoint(2), prices[0].Time)
	assert.Equal(t, []orderbook.Price{10060}, prices[0].Prices)

	volumes := m.Volumes()
	require.Len(t, volumes, 1)
	assert.Equal(t, []Quantity{4}, volumes[0].Volumes)
}

func TestOrganizerBalancedFlowKeepsPrice(t *testing.T) {
	out := &captureOutbox{}
	m := newTestOrganizer(out)

	m.Act(simulation.TimeInterval{Lower: 0, Upper: 1}, nil)
	m.Deliver(order(testTraderA, orderbook.Bid, 5, 1), simulation.TimeInterval{Lower: 1, Upper: 2}, nil)
	m.Deliver(order(testTraderB, orderbook.Ask, 5, 1), simulation.TimeInterval{Lower: 1, Upper: 2}, nil)
	m.Act(simulation.TimeInterval{Lower: 2, Upper: 3}, nil)

	quotes := m.Quotes()
	require.Len(t, quotes, 1)
	assert.Equal(t, initialPrice, quotes[0].Price)
	assert.Equal(t, []Quantity{5}, m.Volumes()[0].Volumes)
}

func TestOrganizerUnseenPropertyKeepsPriceWithZeroVolume(t *testing.T) {
	out := &captureOutbox{}
	m := newTestOrganizer(out)

	m.Act(simulation.TimeInterval{Lower: 0, Upper: 1}, nil)
	m.Act(simulation.TimeInterval{Lower: 1, Upper: 2}, nil)

	assert.Equal(t, initialPrice, m.Quotes()[0].Price)
	assert.Equal(t, []Quantity{0}, m.Volumes()[0].Volumes)
}

func TestOrganizerLaterOrderOverwritesEarlier(t *testing.T) {
	out := &captureOutbox{}
	m := newTestOrganizer(out)

	m.Act(simulation.TimeInterval{Lower: 0, Upper: 1}, nil)
	step := simulation.TimeInterval{Lower: 1, Upper: 2}
	m.Deliver(order(testTraderA, orderbook.Bid, 100, 1), step, nil)
	m.Deliver(order(testTraderA, orderbook.Bid, 10, 1), step, nil)
	m.Deliver(order(testTraderB, orderbook.Ask, 4, 1), step, nil)
	m.Act(simulation.TimeInterval{Lower: 2, Upper: 3}, nil)

	// Only the overwriting order counts: net flow +6, not +96.
	assert.Equal(t, orderbook.Price(10060), m.Quotes()[0].Price)
}

func TestOrganizerRejectsMalformedOrders(t *testing.T) {
	out := &captureOutbox{}
	m := newTestOrganizer(out)

	m.Act(simulation.TimeInterval{Lower: 0, Upper: 1}, nil)
	step := simulation.TimeInterval{Lower: 1, Upper: 2}

	bad := order(testTraderA, orderbook.Bid, 0, 1)
	m.Deliver(bad, step, nil)

	negative := order(testTraderB, orderbook.Ask, 5, 1)
	negative.Price = -1
	m.Deliver(negative, step, nil)

	m.Act(simulation.TimeInterval{Lower: 2, Upper: 3}, nil)

	assert.Equal(t, uint64(2), m.Rejected())
	assert.Equal(t, initialPrice, m.Quotes()[0].Price)
}

func TestOrganizerIgnoresUntradedProperty(t *testing.T) {
	out := &captureOutbox{}
	m := newTestOrganizer(out)

	m.Act(simulation.TimeInterval{Lower: 0, Upper: 1}, nil)
	step := simulation.TimeInterval{Lower: 1, Upper: 2}

	other := order(testTraderA, orderbook.Bid, 10, 1)
	other.Property = testGood + 1
	m.Deliver(other, step, nil)
	m.Act(simulation.TimeInterval{Lower: 2, Upper: 3}, nil)

	assert.Equal(t, initialPrice, m.Quotes()[0].Price)
	assert.Zero(t, m.Rejected())
}

func TestOrganizerRestore(t *testing.T) {
	out := &captureOutbox{}
	m := newTestOrganizer(out)

	m.Restore(ClearingMarket, []Quote{{Property: testGood, Price: 777}})
	assert.Equal(t, ClearingMarket, m.State())
	assert.Equal(t, orderbook.Price(777), m.Quotes()[0].Price)
}

func TestScalePriceGuardsBadMultipliers(t *testing.T) {
	assert.Equal(t, orderbook.Price(100), scalePrice(100, -1))
	assert.Equal(t, orderbook.Price(100), scalePrice(100, 0))
	assert.Equal(t, orderbook.Price(101), scalePrice(100, 1.006))
	assert.Equal(t, orderbook.Price(50), scalePrice(100, 0.5))
}
