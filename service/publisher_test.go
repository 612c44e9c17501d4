package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
	"github.com/maartenscholl/esl/infra/outbox"
)

type discardOutbox struct{}

func (discardOutbox) Send(interaction.Message) {}

func TestPublisherStoresClearingEvents(t *testing.T) {
	ob, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	defer ob.Close()

	property := simulation.PropertyID(1)
	trader := simulation.AgentID(100)
	organizer := market.NewOrganizer(
		simulation.MarketID(1),
		[]market.Quote{{Property: property, Price: 10000}},
		[]simulation.AgentID{trader},
		market.LinearImpact(0.001),
		discardOutbox{},
	)

	p := NewPublisher(simulation.MarketID(1), organizer, ob, nil, 0, nil)

	// Nothing cleared yet.
	require.NoError(t, p.Flush(context.Background()))
	assert.Zero(t, p.Seq())

	// One full quote-clear cycle with net buy flow.
	organizer.Act(simulation.TimeInterval{Lower: 0, Upper: 1}, nil)
	organizer.Deliver(market.OrderMessage{
		Header: interaction.NewHeader(interaction.CodeOrder,
			trader, organizer.ID(), 1, 1),
		Side:     orderbook.Bid,
		Property: property,
		Price:    10000,
		Quantity: 10,
	}, simulation.TimeInterval{Lower: 1, Upper: 2}, nil)
	organizer.Act(simulation.TimeInterval{Lower: 2, Upper: 3}, nil)

	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, uint64(1), p.Seq())

	rec, err := ob.Get(1)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateNew, rec.State)
	assert.EqualValues(t, 2, rec.Time)

	var event ClearingEvent
	require.NoError(t, json.Unmarshal(rec.Payload, &event))
	assert.Equal(t, simulation.PropertyID(1), event.Property)
	assert.Equal(t, orderbook.Price(10100), event.Price)
	assert.Equal(t, orderbook.Quantity(0), event.Volume)

	// A second flush without new clearings writes nothing.
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, uint64(1), p.Seq())
}

func TestPublisherResumesFromSnapshotSequence(t *testing.T) {
	ob, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	defer ob.Close()

	// A record from the previous run that must survive the resumed one.
	require.NoError(t, ob.Put(42, 1, []byte("earlier run")))

	property := simulation.PropertyID(1)
	trader := simulation.AgentID(100)
	organizer := market.NewOrganizer(
		simulation.MarketID(1),
		[]market.Quote{{Property: property, Price: 10000}},
		[]simulation.AgentID{trader},
		market.LinearImpact(0.001),
		discardOutbox{},
	)

	p := NewPublisher(simulation.MarketID(1), organizer, ob, nil, 42, nil)

	organizer.Act(simulation.TimeInterval{Lower: 0, Upper: 1}, nil)
	organizer.Deliver(market.OrderMessage{
		Header: interaction.NewHeader(interaction.CodeOrder,
			trader, organizer.ID(), 1, 1),
		Side:     orderbook.Bid,
		Property: property,
		Price:    10000,
		Quantity: 10,
	}, simulation.TimeInterval{Lower: 1, Upper: 2}, nil)
	organizer.Act(simulation.TimeInterval{Lower: 2, Upper: 3}, nil)

	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, uint64(43), p.Seq())

	// The resumed run appends after the restored sequence instead of
	// overwriting the earlier record.
	prior, err := ob.Get(42)
	require.NoError(t, err)
	assert.Equal(t, []byte("earlier run"), prior.Payload)

	rec, err := ob.Get(43)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateNew, rec.State)
}
