package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/orderbook"
)

func TestOrderMessagePayloadRoundTrip(t *testing.T) {
	in := OrderMessage{
		Header: interaction.NewHeader(interaction.CodeOrder,
			testTraderA, testMarket.Agent(), 3, 4),
		Side:     orderbook.Ask,
		Property: testGood,
		Price:    10060,
		Quantity: 7,
	}

	payload, err := MarshalPayload(in)
	require.NoError(t, err)

	msg, err := UnmarshalMessage(in.Header, payload)
	require.NoError(t, err)
	assert.Equal(t, in, msg)
}

func TestQuoteMessagePayloadRoundTrip(t *testing.T) {
	in := QuoteMessage{
		Header: interaction.NewHeader(interaction.CodeQuote,
			testMarket.Agent(), testTraderB, 3, 3),
		Quotes: []Quote{
			{Property: testGood, Price: 10000},
			{Property: testGood + 1, Price: 250},
		},
	}

	payload, err := MarshalPayload(in)
	require.NoError(t, err)

	msg, err := UnmarshalMessage(in.Header, payload)
	require.NoError(t, err)
	assert.Equal(t, in, msg)
}

func TestMarshalRejectsUnknownMessage(t *testing.T) {
	_, err := MarshalPayload(interaction.Header{Code: 12345})
	assert.ErrorIs(t, err, interaction.ErrInvalidMessageCode)
}

func TestUnmarshalRejectsUnknownCode(t *testing.T) {
	_, err := UnmarshalMessage(interaction.Header{Code: 12345}, nil)
	assert.ErrorIs(t, err, interaction.ErrInvalidMessageCode)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	h := interaction.Header{Code: interaction.CodeOrder}
	_, err := UnmarshalMessage(h, []byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
