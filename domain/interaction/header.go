package interaction

import (
	"fmt"

	"github.com/maartenscholl/esl/domain/simulation"
)

// Header is the envelope every inter-agent message carries. It is a value
// type: it is copied along the delivery path and nothing retains a mutable
// alias to it after the message has been sent.
type Header struct {
	Code      MessageCode
	Sender    simulation.AgentID
	Recipient simulation.AgentID

	// Sent is the time point at which the message leaves the sender.
	// A message is not removed from the sender's outbound queue before
	// the clock has reached this point.
	Sent simulation.TimePoint

	// Received is the earliest time point at which the recipient may see
	// the message. It may lie arbitrarily far in the future: the message
	// is queued immediately but stays invisible until due.
	Received simulation.TimePoint
}

// NewHeader builds a header for a message sent at sent and receivable no
// earlier than received.
func NewHeader(code MessageCode, sender, recipient simulation.AgentID, sent, received simulation.TimePoint) Header {
	if received < sent {
		received = sent
	}
	return Header{
		Code:      code,
		Sender:    sender,
		Recipient: recipient,
		Sent:      sent,
		Received:  received,
	}
}

func (h Header) String() string {
	return fmt.Sprintf("message %#x %s->%s sent=%d received=%d",
		uint64(h.Code), h.Sender, h.Recipient, h.Sent, h.Received)
}

// Message is anything that travels between agents under a header.
type Message interface {
	MessageHeader() Header
}

// MessageHeader lets Header satisfy Message when a bare envelope is enough.
func (h Header) MessageHeader() Header { return h }
