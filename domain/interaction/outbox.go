package interaction

// Outbox accepts outbound messages from an agent. Implementations must be
// safe for concurrent senders; the message becomes visible to its recipient
// per the header's Sent/Received contract.
type Outbox interface {
	Send(msg Message)
}
