package transport

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/maartenscholl/esl/domain/interaction"
)

// Ack is the receiver's reply to a delivered envelope. Accepted is false
// when the sequence number was already seen.
type Ack struct {
	Seq      uint64
	Accepted bool
}

const (
	ackFieldSeq      = 1
	ackFieldAccepted = 2
)

// CodecName is registered with grpc so both ends agree on the envelope
// framing instead of protobuf message descriptors.
const CodecName = "esl-envelope"

// codec marshals the two wire types this service moves. The envelope frame
// already carries a length and checksum, so grpc's payload is the frame
// verbatim.
type codec struct{}

func (codec) Name() string { return CodecName }

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *interaction.Envelope:
		return interaction.EncodeEnvelope(m), nil
	case *Ack:
		b := make([]byte, 0, 16)
		b = protowire.AppendTag(b, ackFieldSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, m.Seq)
		b = protowire.AppendTag(b, ackFieldAccepted, protowire.VarintType)
		if m.Accepted {
			b = protowire.AppendVarint(b, 1)
		} else {
			b = protowire.AppendVarint(b, 0)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("transport: cannot marshal %T", v)
	}
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *interaction.Envelope:
		decoded, err := interaction.DecodeEnvelope(data)
		if err != nil {
			return err
		}
		*m = *decoded
		return nil
	case *Ack:
		for len(data) > 0 {
			num, typ, n := protowire.ConsumeTag(data)
			if n < 0 || typ != protowire.VarintType {
				return interaction.ErrCorruptEnvelope
			}
			data = data[n:]
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return interaction.ErrCorruptEnvelope
			}
			data = data[n:]
			switch num {
			case ackFieldSeq:
				m.Seq = val
			case ackFieldAccepted:
				m.Accepted = val != 0
			}
		}
		return nil
	default:
		return fmt.Errorf("transport: cannot unmarshal into %T", v)
	}
}
