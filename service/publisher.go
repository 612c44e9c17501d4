package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/domain/orderbook"
	"github.com/maartenscholl/esl/domain/simulation"
	"github.com/maartenscholl/esl/infra/kafka"
	"github.com/maartenscholl/esl/infra/outbox"
	"github.com/maartenscholl/esl/infra/sequence"
)

// ClearingEvent is the published shape of one property's clearing result.
type ClearingEvent struct {
	Market   simulation.MarketID   `json:"market"`
	Time     simulation.TimePoint  `json:"time"`
	Property simulation.PropertyID `json:"property"`
	Price    orderbook.Price       `json:"price"`
	Volume   orderbook.Quantity    `json:"volume"`
}

// Publisher drains an organizer's output series into the durable outbox
// (for the broadcaster to deliver downstream) and mirrors quotes onto the
// fire-and-forget market-data feed. The organizer owns the series; the
// publisher only remembers how far it has read.
type Publisher struct {
	organizer *market.Organizer
	id        simulation.MarketID
	outbox    *outbox.Outbox
	feed      *kafka.Producer
	seq       *sequence.Sequencer
	read      int
	log       *logrus.Entry
}

// NewPublisher wires an organizer to the outbox and, optionally, a quote
// feed. Either sink may be nil; the publisher skips what it does not have.
// startSeq is the last outbox sequence issued by a previous run, zero on a
// fresh one; resuming from it keeps restored runs from overwriting earlier
// outbox records.
func NewPublisher(
	id simulation.MarketID,
	organizer *market.Organizer,
	ob *outbox.Outbox,
	feed *kafka.Producer,
	startSeq uint64,
	log *logrus.Logger,
) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{
		organizer: organizer,
		id:        id,
		outbox:    ob,
		feed:      feed,
		seq:       sequence.New(startSeq),
		log:       log.WithField("component", "publisher"),
	}
}

// Seq returns the last outbox sequence the publisher issued.
func (p *Publisher) Seq() uint64 { return p.seq.Current() }

// Flush publishes clearing records appended since the previous call.
func (p *Publisher) Flush(ctx context.Context) error {
	prices := p.organizer.ClearingPrices()
	volumes := p.organizer.Volumes()
	quotes := p.organizer.Quotes()

	for ; p.read < len(prices) && p.read < len(volumes); p.read++ {
		if err := p.store(prices[p.read], volumes[p.read], quotes); err != nil {
			return err
		}
		clearingsPublished.Inc()
	}

	if p.feed != nil && len(prices) > 0 {
		at := prices[len(prices)-1].Time
		if err := p.feed.PublishQuotes(ctx, p.id, at, quotes); err != nil {
			// The quote feed is best-effort; keep the durable path alive.
			p.log.WithError(err).Warn("quote feed publish failed")
		}
	}
	return nil
}

func (p *Publisher) store(pr market.PriceRecord, vr market.VolumeRecord, quotes []market.Quote) error {
	if p.outbox == nil {
		return nil
	}
	for i, q := range quotes {
		if i >= len(pr.Prices) || i >= len(vr.Volumes) {
			break
		}
		event := ClearingEvent{
			Market:   p.id,
			Time:     pr.Time,
			Property: q.Property,
			Price:    pr.Prices[i],
			Volume:   vr.Volumes[i],
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("publisher: encode clearing event: %w", err)
		}
		if err := p.outbox.Put(p.seq.Next(), pr.Time, payload); err != nil {
			return fmt.Errorf("publisher: store clearing event: %w", err)
		}
	}
	return nil
}
