package simulation

import "fmt"

// Identities are opaque handles, one namespace per entity kind. The distinct
// types keep identifiers of different kinds from ever being compared; within
// a kind they are comparable, hashable and totally ordered.

// AgentID identifies an agent participating in the simulation.
type AgentID uint64

// PropertyID identifies a tradeable property (an asset).
type PropertyID uint64

// MarketID identifies a market organizer.
type MarketID uint64

func (id AgentID) String() string    { return fmt.Sprintf("agent-%d", uint64(id)) }
func (id PropertyID) String() string { return fmt.Sprintf("property-%d", uint64(id)) }
func (id MarketID) String() string   { return fmt.Sprintf("market-%d", uint64(id)) }

// Agent returns the agent identity of a market organizer. Every market is
// itself an agent: it receives order messages and sends quotes.
func (id MarketID) Agent() AgentID { return AgentID(id) }
