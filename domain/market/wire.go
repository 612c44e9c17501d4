package market

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
)

// Payload codecs for the market message types. The envelope in
// domain/interaction carries the header; these encode only the body, so a
// transport moves (header, payload) pairs without knowing message shapes.

const (
	orderFieldSide     = 1
	orderFieldProperty = 2
	orderFieldPrice    = 3
	orderFieldQuantity = 4

	quoteFieldEntry = 1

	quoteEntryProperty = 1
	quoteEntryPrice    = 2
)

// MarshalPayload encodes the body of a market message.
func MarshalPayload(msg interaction.Message) ([]byte, error) {
	switch m := msg.(type) {
	case OrderMessage:
		b := make([]byte, 0, 32)
		b = protowire.AppendTag(b, orderFieldSide, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Side))
		b = protowire.AppendTag(b, orderFieldProperty, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Property))
		b = protowire.AppendTag(b, orderFieldPrice, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Price))
		b = protowire.AppendTag(b, orderFieldQuantity, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Quantity))
		return b, nil
	case QuoteMessage:
		b := make([]byte, 0, 16*len(m.Quotes))
		for _, q := range m.Quotes {
			entry := make([]byte, 0, 16)
			entry = protowire.AppendTag(entry, quoteEntryProperty, protowire.VarintType)
			entry = protowire.AppendVarint(entry, uint64(q.Property))
			entry = protowire.AppendTag(entry, quoteEntryPrice, protowire.VarintType)
			entry = protowire.AppendVarint(entry, uint64(q.Price))
			b = protowire.AppendTag(b, quoteFieldEntry, protowire.BytesType)
			b = protowire.AppendBytes(b, entry)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("market: unsupported message %#x: %w",
			uint64(msg.MessageHeader().Code), interaction.ErrInvalidMessageCode)
	}
}

// UnmarshalMessage decodes a payload into the message type named by the
// header's code.
func UnmarshalMessage(h interaction.Header, payload []byte) (interaction.Message, error) {
	switch h.Code {
	case interaction.CodeOrder:
		m := OrderMessage{Header: h}
		for len(payload) > 0 {
			num, typ, n := protowire.ConsumeTag(payload)
			if n < 0 || typ != protowire.VarintType {
				return nil, interaction.ErrCorruptEnvelope
			}
			payload = payload[n:]
			v, n := protowire.ConsumeVarint(payload)
			if n < 0 {
				return nil, interaction.ErrCorruptEnvelope
			}
			payload = payload[n:]
			switch num {
			case orderFieldSide:
				m.Side = orderbook.Side(v)
			case orderFieldProperty:
				m.Property = simulation.PropertyID(v)
			case orderFieldPrice:
				m.Price = orderbook.Price(v)
			case orderFieldQuantity:
				m.Quantity = orderbook.Quantity(v)
			}
		}
		return m, nil
	case interaction.CodeQuote:
		m := QuoteMessage{Header: h}
		for len(payload) > 0 {
			num, typ, n := protowire.ConsumeTag(payload)
			if n < 0 || typ != protowire.BytesType || num != quoteFieldEntry {
				return nil, interaction.ErrCorruptEnvelope
			}
			payload = payload[n:]
			entry, n := protowire.ConsumeBytes(payload)
			if n < 0 {
				return nil, interaction.ErrCorruptEnvelope
			}
			payload = payload[n:]

			var q Quote
			for len(entry) > 0 {
				num, typ, n := protowire.ConsumeTag(entry)
				if n < 0 || typ != protowire.VarintType {
					return nil, interaction.ErrCorruptEnvelope
				}
				entry = entry[n:]
				v, n := protowire.ConsumeVarint(entry)
				if n < 0 {
					return nil, interaction.ErrCorruptEnvelope
				}
				entry = entry[n:]
				switch num {
				case quoteEntryProperty:
					q.Property = simulation.PropertyID(v)
				case quoteEntryPrice:
					q.Price = orderbook.Price(v)
				}
			}
			m.Quotes = append(m.Quotes, q)
		}
		return m, nil
	default:
		return nil, interaction.ErrInvalidMessageCode
	}
}
