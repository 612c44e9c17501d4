package market

import (
	"fmt"
	"math/rand"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

// State is the organizer phase. Exactly one state is active per organizer
// per step; the machine has no terminal state.
type State uint8

const (
	// SendingQuotes broadcasts current prices to every participant.
	SendingQuotes State = iota
	// ClearingMarket collects the interval's orders and clears them.
	ClearingMarket
)

func (s State) String() string {
	if s == SendingQuotes {
		return "sending_quotes"
	}
	return "clearing_market"
}

// PriceRecord is one appended clearing-price entry: the prices of all
// traded properties at one clearing event, in traded-property order.
type PriceRecord struct {
	Time   simulation.TimePoint `json:"time"`
	Prices []orderbook.Price    `json:"prices"`
}

// VolumeRecord is one appended traded-volume entry, aligned with PriceRecord.
type VolumeRecord struct {
	Time    simulation.TimePoint `json:"time"`
	Volumes []orderbook.Quantity `json:"volumes"`
}

// Organizer is the periodic clearing market: a stateful agent alternating
// between broadcasting quotes and clearing the orders accumulated since the
// last broadcast through a price-impact rule.
//
// The organizer exclusively owns its accumulated order map; no other
// component mutates it, so clearing runs without locks.
type Organizer struct {
	id           simulation.MarketID
	state        State
	traded       []Quote
	index        map[simulation.PropertyID]int
	participants []simulation.AgentID
	impact       Impact

	dispatcher *interaction.Dispatcher
	outbox     interaction.Outbox

	// orders maps participant -> property -> the order counted for the
	// current interval. Later arrivals from the same sender for the same
	// property overwrite earlier ones.
	orders map[simulation.AgentID]map[simulation.PropertyID]OrderMessage

	prices   []PriceRecord
	volumes  []VolumeRecord
	rejected uint64
}

// NewOrganizer creates a periodic clearing market quoting the given traded
// properties to the given participants. The handler registry is built here,
// once; it is not mutated afterwards.
func NewOrganizer(
	id simulation.MarketID,
	traded []Quote,
	participants []simulation.AgentID,
	impact Impact,
	outbox interaction.Outbox,
) *Organizer {
	m := &Organizer{
		id:           id,
		state:        SendingQuotes,
		traded:       append([]Quote(nil), traded...),
		index:        make(map[simulation.PropertyID]int, len(traded)),
		participants: append([]simulation.AgentID(nil), participants...),
		impact:       impact,
		dispatcher:   interaction.NewDispatcher(),
		outbox:       outbox,
		orders:       make(map[simulation.AgentID]map[simulation.PropertyID]OrderMessage),
	}
	for i, q := range m.traded {
		m.index[q.Property] = i
	}
	m.dispatcher.Register(interaction.CodeOrder, 0,
		"accumulate order for periodic clearing", m.collectOrder)
	return m
}

// ID returns the organizer's agent identity.
func (m *Organizer) ID() simulation.AgentID { return m.id.Agent() }

// Describe returns a friendly description mentioning the identifier.
func (m *Organizer) Describe() string {
	return fmt.Sprintf("impact function market %s", m.id)
}

// State returns the active phase.
func (m *Organizer) State() State { return m.state }

// Quotes returns the current quoted price per traded property.
func (m *Organizer) Quotes() []Quote {
	return append([]Quote(nil), m.traded...)
}

// ClearingPrices exposes the owned append-only clearing price series.
func (m *Organizer) ClearingPrices() []PriceRecord { return m.prices }

// Volumes exposes the owned append-only traded volume series.
func (m *Organizer) Volumes() []VolumeRecord { return m.volumes }

// Rejected returns how many malformed orders were excluded from clearing.
func (m *Organizer) Rejected() uint64 { return m.rejected }

// Deliver routes one inbound message through the handler registry.
func (m *Organizer) Deliver(msg interaction.Message, step simulation.TimeInterval, rng *rand.Rand) simulation.TimePoint {
	wake, _ := m.dispatcher.Dispatch(msg, step, rng)
	return wake
}

// Act advances the two-state machine by one activation.
func (m *Organizer) Act(step simulation.TimeInterval, rng *rand.Rand) simulation.TimePoint {
	switch m.state {
	case SendingQuotes:
		m.broadcastQuotes(step)
		m.state = ClearingMarket
	case ClearingMarket:
		m.clearMarket(step)
		m.state = SendingQuotes
	}
	return step.Upper
}

// Restore resets the organizer to a snapshotted phase and quote set.
func (m *Organizer) Restore(state State, traded []Quote) {
	m.state = state
	m.traded = append([]Quote(nil), traded...)
	m.index = make(map[simulation.PropertyID]int, len(traded))
	for i, q := range m.traded {
		m.index[q.Property] = i
	}
	m.orders = make(map[simulation.AgentID]map[simulation.PropertyID]OrderMessage)
}

// collectOrder stores an inbound order for the current interval. Orders for
// properties this market does not trade are ignored: late or misaddressed
// orders are expected in an open message system.
func (m *Organizer) collectOrder(msg interaction.Message, step simulation.TimeInterval, _ *rand.Rand) simulation.TimePoint {
	om, ok := msg.(OrderMessage)
	if !ok {
		return step.Upper
	}
	if _, traded := m.index[om.Property]; !traded {
		return step.Upper
	}
	byProperty, ok := m.orders[om.Sender]
	if !ok {
		byProperty = make(map[simulation.PropertyID]OrderMessage)
		m.orders[om.Sender] = byProperty
	}
	byProperty[om.Property] = om
	return step.Upper
}

// broadcastQuotes sends the current price of every traded property to every
// registered participant.
func (m *Organizer) broadcastQuotes(step simulation.TimeInterval) {
	quotes := m.Quotes()
	for _, p := range m.participants {
		m.outbox.Send(QuoteMessage{
			Header: interaction.NewHeader(interaction.CodeQuote,
				m.ID(), p, step.Lower, step.Lower),
			Quotes: quotes,
		})
	}
}

// clearMarket computes clearing prices and executed volumes for every
// traded property from the accumulated orders, appends them to the output
// series, and reinitializes the interval state.
func (m *Organizer) clearMarket(step simulation.TimeInterval) {
	type flow struct {
		buy, sell Quantity
		netFlow   int64
		seen      bool
	}
	flows := make([]flow, len(m.traded))

	for _, byProperty := range m.orders {
		for property, om := range byProperty {
			i := m.index[property]
			if om.Quantity <= 0 || om.Price <= 0 {
				// Malformed orders are rejected individually; they
				// never abort clearing for the rest of the set.
				m.rejected++
				continue
			}
			flows[i].seen = true
			if om.Side == orderbook.Bid {
				flows[i].buy += om.Quantity
				flows[i].netFlow += int64(om.Quantity)
			} else {
				flows[i].sell += om.Quantity
				flows[i].netFlow -= int64(om.Quantity)
			}
		}
	}

	prices := make([]orderbook.Price, len(m.traded))
	volumes := make([]Quantity, len(m.traded))
	for i := range m.traded {
		if flows[i].seen {
			m.traded[i].Price = scalePrice(m.traded[i].Price, m.impact(flows[i].netFlow))
			volumes[i] = minQuantity(flows[i].buy, flows[i].sell)
		}
		// A property with no incoming orders keeps its previous price
		// and records zero volume.
		prices[i] = m.traded[i].Price
	}

	m.prices = append(m.prices, PriceRecord{Time: step.Lower, Prices: prices})
	m.volumes = append(m.volumes, VolumeRecord{Time: step.Lower, Volumes: volumes})
	m.orders = make(map[simulation.AgentID]map[simulation.PropertyID]OrderMessage)
}

// Quantity aliases the book's quantity for the clearing aggregates.
type Quantity = orderbook.Quantity

func minQuantity(a, b Quantity) Quantity {
	if a < b {
		return a
	}
	return b
}
