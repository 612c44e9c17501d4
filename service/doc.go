// Package service orchestrates the simulation core: agents, message
// delivery, the discrete clock, and the connection from the domain to the
// outbound infrastructure (outbox, quote feed).
//
// It is the only place messages move between agents; domain packages never
// touch transport or persistence.
package service
