// Package kafka publishes the market-data quote feed. Quotes are ephemeral
// by contract, so the feed is fire-and-forget: a dropped quote is replaced
// by the next broadcast.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/simulation"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// quoteEvent is the published JSON shape of one quoting phase.
type quoteEvent struct {
	Market simulation.MarketID  `json:"market"`
	Time   simulation.TimePoint `json:"time"`
	Quotes []market.Quote       `json:"quotes"`
}

// PublishQuotes emits the organizer's current quotes, keyed by market so a
// partitioned topic preserves per-market ordering.
func (p *Producer) PublishQuotes(
	ctx context.Context,
	id simulation.MarketID,
	at simulation.TimePoint,
	quotes []market.Quote,
) error {
	value, err := json.Marshal(quoteEvent{Market: id, Time: at, Quotes: quotes})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", uint64(id))),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
