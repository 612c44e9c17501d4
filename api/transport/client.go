package transport

import (
	"context"

	"google.golang.org/grpc"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/market"
	"github.com/maartenscholl/esl/infra/sequence"
)

// Client sends messages to a remote environment. Each message is wrapped in
// an envelope stamped with a fresh transport sequence so the far side can
// dedup retries.
type Client struct {
	conn *grpc.ClientConn
	seq  *sequence.Sequencer
}

func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, seq: sequence.New(0)}
}

// Send encodes and delivers one message. The returned Ack reports whether
// the far side accepted it as new.
func (c *Client) Send(ctx context.Context, msg interaction.Message) (*Ack, error) {
	payload, err := market.MarshalPayload(msg)
	if err != nil {
		return nil, err
	}
	env := &interaction.Envelope{
		Header:  msg.MessageHeader(),
		Seq:     c.seq.Next(),
		Payload: payload,
	}

	out := new(Ack)
	err = c.conn.Invoke(ctx, fullMethodDeliver, env, out, grpc.ForceCodec(codec{}))
	if err != nil {
		return nil, err
	}
	return out, nil
}
