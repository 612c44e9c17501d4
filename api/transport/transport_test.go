package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

type captureSink struct {
	msgs []interaction.Message
}

func (c *captureSink) Send(msg interaction.Message) {
	c.msgs = append(c.msgs, msg)
}

func testEnvelope(t *testing.T, seq uint64) *interaction.Envelope {
	t.Helper()
	om := market.OrderMessage{
		Header: interaction.NewHeader(interaction.CodeOrder,
			simulation.AgentID(3), simulation.AgentID(1), 5, 6),
		Side:     orderbook.Bid,
		Property: 11,
		Price:    10000,
		Quantity: 4,
	}
	payload, err := market.MarshalPayload(om)
	require.NoError(t, err)
	return &interaction.Envelope{Header: om.Header, Seq: seq, Payload: payload}
}

func TestCodecEnvelopeRoundTrip(t *testing.T) {
	c := codec{}
	in := testEnvelope(t, 9)

	data, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(interaction.Envelope)
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, in, out)
}

func TestCodecAckRoundTrip(t *testing.T) {
	c := codec{}

	for _, in := range []*Ack{
		{Seq: 1, Accepted: true},
		{Seq: 2, Accepted: false},
	} {
		data, err := c.Marshal(in)
		require.NoError(t, err)

		out := new(Ack)
		require.NoError(t, c.Unmarshal(data, out))
		assert.Equal(t, in, out)
	}
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	c := codec{}
	_, err := c.Marshal("nope")
	assert.Error(t, err)
	assert.Error(t, c.Unmarshal(nil, &struct{}{}))
}

func TestServerDeliversDecodedMessage(t *testing.T) {
	sink := &captureSink{}
	s := NewServer(sink, nil)

	ack, err := s.Deliver(context.Background(), testEnvelope(t, 1))
	require.NoError(t, err)
	assert.True(t, ack.Accepted)

	require.Len(t, sink.msgs, 1)
	om, ok := sink.msgs[0].(market.OrderMessage)
	require.True(t, ok)
	assert.Equal(t, orderbook.Quantity(4), om.Quantity)
	assert.Equal(t, simulation.TimePoint(6), om.Received)
}

func TestServerDedupsBySequence(t *testing.T) {
	sink := &captureSink{}
	s := NewServer(sink, nil)

	_, err := s.Deliver(context.Background(), testEnvelope(t, 1))
	require.NoError(t, err)

	ack, err := s.Deliver(context.Background(), testEnvelope(t, 1))
	require.NoError(t, err)
	assert.False(t, ack.Accepted)
	assert.Len(t, sink.msgs, 1)

	ack, err = s.Deliver(context.Background(), testEnvelope(t, 2))
	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	assert.Len(t, sink.msgs, 2)
}

func TestServerDedupStateStaysBounded(t *testing.T) {
	sink := &captureSink{}
	s := NewServer(sink, nil)

	for seq := uint64(1); seq <= 100; seq++ {
		ack, err := s.Deliver(context.Background(), testEnvelope(t, seq))
		require.NoError(t, err)
		require.True(t, ack.Accepted)
	}

	// Consecutive sequences compact into the floor; nothing lingers.
	s.mu.Lock()
	assert.Equal(t, uint64(100), s.floor)
	assert.Empty(t, s.seen)
	s.mu.Unlock()

	// Sequences at or below the floor stay duplicates.
	ack, err := s.Deliver(context.Background(), testEnvelope(t, 50))
	require.NoError(t, err)
	assert.False(t, ack.Accepted)
	assert.Len(t, sink.msgs, 100)
}

func TestServerDedupHandlesOutOfOrderArrival(t *testing.T) {
	sink := &captureSink{}
	s := NewServer(sink, nil)

	// 2 arrives ahead of 1: accepted, held above the gap.
	ack, err := s.Deliver(context.Background(), testEnvelope(t, 2))
	require.NoError(t, err)
	assert.True(t, ack.Accepted)

	ack, err = s.Deliver(context.Background(), testEnvelope(t, 2))
	require.NoError(t, err)
	assert.False(t, ack.Accepted)

	// Closing the gap folds both into the floor.
	ack, err = s.Deliver(context.Background(), testEnvelope(t, 1))
	require.NoError(t, err)
	assert.True(t, ack.Accepted)

	s.mu.Lock()
	assert.Equal(t, uint64(2), s.floor)
	assert.Empty(t, s.seen)
	s.mu.Unlock()
}

func TestServerRejectsUndecodablePayload(t *testing.T) {
	sink := &captureSink{}
	s := NewServer(sink, nil)

	env := testEnvelope(t, 1)
	env.Header.Code = interaction.MessageCode(12345)

	_, err := s.Deliver(context.Background(), env)
	assert.Error(t, err)
	assert.Empty(t, sink.msgs)
}
