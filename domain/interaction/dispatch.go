package interaction

import (
	"math/rand"
	"sort"

	"github.com/maartenscholl/esl/domain/simulation"
)

// Handler consumes one message during the given activation step and returns
// the next time point at which the owning agent wants to be woken. Handlers
// run to completion; they are not required to be reentrant.
type Handler func(msg Message, step simulation.TimeInterval, rng *rand.Rand) simulation.TimePoint

type registration struct {
	priority    int
	description string
	fn          Handler
}

// Dispatcher maps message codes to ordered handler lists for one agent.
// It is built once at agent construction and not mutated afterwards, so
// delivery needs no locking.
type Dispatcher struct {
	handlers map[MessageCode][]registration
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[MessageCode][]registration)}
}

// Register adds a handler for code. Handlers fire in ascending priority;
// registration order breaks ties.
func (d *Dispatcher) Register(code MessageCode, priority int, description string, fn Handler) {
	list := append(d.handlers[code], registration{
		priority:    priority,
		description: description,
		fn:          fn,
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].priority < list[j].priority
	})
	d.handlers[code] = list
}

// Dispatch invokes every handler registered for the message's code in
// priority order and returns the minimum of their requested wake times.
// A message whose code has no handlers is silently ignored: agents only
// react to types they opted into. The second return reports whether any
// handler ran.
func (d *Dispatcher) Dispatch(msg Message, step simulation.TimeInterval, rng *rand.Rand) (simulation.TimePoint, bool) {
	list, ok := d.handlers[msg.MessageHeader().Code]
	if !ok || len(list) == 0 {
		return step.Upper, false
	}
	next := simulation.TimePoint(0)
	for i, reg := range list {
		wake := reg.fn(msg, step, rng)
		if i == 0 || wake < next {
			next = wake
		}
	}
	return next, true
}

// Descriptions returns the registered handler descriptions for a code, in
// invocation order. Used for agent introspection and logging.
func (d *Dispatcher) Descriptions(code MessageCode) []string {
	list := d.handlers[code]
	out := make([]string, 0, len(list))
	for _, reg := range list {
		out = append(out, reg.description)
	}
	return out
}
