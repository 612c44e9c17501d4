// Package broadcaster drains the durable outbox to Kafka. Records transition
// NEW -> SENT before the publish attempt and SENT -> ACKED after the broker
// confirms, so a crash between the two is replayed rather than lost.
package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/maartenscholl/esl/infra/outbox"
)

type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *logrus.Entry
}

func New(
	ob *outbox.Outbox,
	brokers []string,
	topic string,
	log *logrus.Logger,
) (*Broadcaster, error) {

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: 250 * time.Millisecond,
		log:      log.WithField("component", "broadcaster"),
	}, nil
}

// Start launches the drain loop. It stops when ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.WithField("topic", b.topic).Info("started")

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				b.drainOnce()
				b.replaySent()
			}
		}
	}()
}

// drainOnce publishes every NEW record, marking it SENT before the attempt.
func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanByState(outbox.StateNew, func(rec outbox.Record) error {
		return b.publish(rec)
	})
	if err != nil {
		b.log.WithError(err).Warn("outbox drain failed")
	}
}

// replaySent retries records stuck in SENT from an earlier crash. SENT
// records may already be on the broker; downstream consumers dedupe by Seq.
func (b *Broadcaster) replaySent() {
	err := b.outbox.ScanByState(outbox.StateSent, func(rec outbox.Record) error {
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(keyFor(rec.Seq)),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			return nil // retry next tick
		}
		return b.outbox.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.WithError(err).Warn("outbox replay failed")
	}
}

func (b *Broadcaster) publish(rec outbox.Record) error {
	if err := b.outbox.MarkSent(rec.Seq); err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(keyFor(rec.Seq)),
		Value: sarama.ByteEncoder(rec.Payload),
	}

	if _, _, err := b.producer.SendMessage(msg); err != nil {
		b.log.WithError(err).WithField("seq", rec.Seq).Warn("publish failed")
		return nil // stays SENT, replayed next tick
	}

	return b.outbox.MarkAcked(rec.Seq)
}

func keyFor(seq uint64) string {
	return "clearing-" + strconv.FormatUint(seq, 10)
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
