package interaction

import (
	"errors"
	"hash/crc32"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/maartenscholl/esl/domain/simulation"
)

// Envelope is the fixed-layout record a header travels in when messages
// cross execution contexts: the header fields, a transport sequence number
// for exactly-once delivery, and the opaque message payload. Transports must
// preserve every field value exactly.
type Envelope struct {
	Header  Header
	Seq     uint64
	Payload []byte
}

// ErrCorruptEnvelope reports a frame that fails length or checksum
// validation.
var ErrCorruptEnvelope = errors.New("interaction: corrupt envelope")

// Wire field numbers for the envelope record.
const (
	fieldCode      = 1
	fieldSender    = 2
	fieldRecipient = 3
	fieldSent      = 4
	fieldReceived  = 5
	fieldSeq       = 6
	fieldPayload   = 7
)

// EncodeEnvelope serializes an envelope into a self-checking frame:
// an 8 byte prefix of little-endian body length and CRC32, then the
// protowire-encoded body.
func EncodeEnvelope(e *Envelope) []byte {
	body := make([]byte, 0, 64+len(e.Payload))
	body = protowire.AppendTag(body, fieldCode, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(e.Header.Code))
	body = protowire.AppendTag(body, fieldSender, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(e.Header.Sender))
	body = protowire.AppendTag(body, fieldRecipient, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(e.Header.Recipient))
	body = protowire.AppendTag(body, fieldSent, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(e.Header.Sent))
	body = protowire.AppendTag(body, fieldReceived, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(e.Header.Received))
	body = protowire.AppendTag(body, fieldSeq, protowire.VarintType)
	body = protowire.AppendVarint(body, e.Seq)
	body = protowire.AppendTag(body, fieldPayload, protowire.BytesType)
	body = protowire.AppendBytes(body, e.Payload)

	frame := make([]byte, 8, 8+len(body))
	putUint32LE(frame[:4], uint32(len(body)))
	putUint32LE(frame[4:], crc32.ChecksumIEEE(body))
	return append(frame, body...)
}

// DecodeEnvelope parses a frame produced by EncodeEnvelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	if len(data) < 8 {
		return nil, ErrCorruptEnvelope
	}
	n := readUint32LE(data[:4])
	body := data[8:]
	if uint32(len(body)) != n {
		return nil, ErrCorruptEnvelope
	}
	if readUint32LE(data[4:8]) != crc32.ChecksumIEEE(body) {
		return nil, ErrCorruptEnvelope
	}

	var e Envelope
	for len(body) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(body)
		if tagLen < 0 {
			return nil, ErrCorruptEnvelope
		}
		body = body[tagLen:]

		switch {
		case typ == protowire.VarintType:
			v, vLen := protowire.ConsumeVarint(body)
			if vLen < 0 {
				return nil, ErrCorruptEnvelope
			}
			body = body[vLen:]
			switch num {
			case fieldCode:
				e.Header.Code = MessageCode(v)
			case fieldSender:
				e.Header.Sender = simulation.AgentID(v)
			case fieldRecipient:
				e.Header.Recipient = simulation.AgentID(v)
			case fieldSent:
				e.Header.Sent = simulation.TimePoint(v)
			case fieldReceived:
				e.Header.Received = simulation.TimePoint(v)
			case fieldSeq:
				e.Seq = v
			}
		case typ == protowire.BytesType && num == fieldPayload:
			v, vLen := protowire.ConsumeBytes(body)
			if vLen < 0 {
				return nil, ErrCorruptEnvelope
			}
			body = body[vLen:]
			e.Payload = append([]byte(nil), v...)
		default:
			skip := protowire.ConsumeFieldValue(num, typ, body)
			if skip < 0 {
				return nil, ErrCorruptEnvelope
			}
			body = body[skip:]
		}
	}
	if e.Header.Received < e.Header.Sent {
		return nil, ErrCorruptEnvelope
	}
	return &e, nil
}

func putUint32LE(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

func readUint32LE(buf []byte) uint32 {
	return uint32(buf[0]) |
		uint32(buf[1])<<8 |
		uint32(buf[2])<<16 |
		uint32(buf[3])<<24
}
