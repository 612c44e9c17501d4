package service

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/simulation"
	"github.com/maartenscholl/esl/infra/sequence"
)

// Agent is one schedulable participant with an identity and a message
// entry point. Market organizers and trading agents both satisfy it.
type Agent interface {
	simulation.Schedulable
	ID() simulation.AgentID
	Deliver(msg interaction.Message, step simulation.TimeInterval, rng *rand.Rand) simulation.TimePoint
	Describe() string
}

type inboxEntry struct {
	msg interaction.Message
	seq uint64
}

// mailbox is an agent's inbox. Senders are concurrent; the agent is the
// single reader, and only during its own activation.
type mailbox struct {
	mu      sync.Mutex
	entries []inboxEntry
}

func (mb *mailbox) put(e inboxEntry) {
	mb.mu.Lock()
	mb.entries = append(mb.entries, e)
	mb.mu.Unlock()
}

// takeDue removes and returns the entries receivable at or before now,
// ordered by (received time, arrival sequence).
func (mb *mailbox) takeDue(now simulation.TimePoint) []inboxEntry {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	var due, rest []inboxEntry
	for _, e := range mb.entries {
		if e.msg.MessageHeader().Received <= now {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	mb.entries = rest
	sort.SliceStable(due, func(i, j int) bool {
		hi, hj := due[i].msg.MessageHeader(), due[j].msg.MessageHeader()
		if hi.Received != hj.Received {
			return hi.Received < hj.Received
		}
		return due[i].seq < due[j].seq
	})
	return due
}

type slot struct {
	agent    Agent
	inbox    mailbox
	nextWake simulation.TimePoint
	rng      *rand.Rand
}

// Environment advances the global discrete clock and moves messages
// between agents. It implements interaction.Outbox: messages stay in the
// outbound queue until their Sent time has been reached by the clock, and
// reach a recipient's view no earlier than their Received time.
type Environment struct {
	seed   int64
	agents map[simulation.AgentID]*slot
	order  []simulation.AgentID

	mu       sync.Mutex
	outbound []interaction.Message

	seq *sequence.Sequencer
	now simulation.TimePoint
	log *logrus.Entry
}

// NewEnvironment creates an empty environment. The seed derives each
// agent's private randomness source, so runs are reproducible.
func NewEnvironment(seed int64, log *logrus.Logger) *Environment {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Environment{
		seed:   seed,
		agents: make(map[simulation.AgentID]*slot),
		seq:    sequence.New(0),
		log:    log.WithField("component", "environment"),
	}
}

// Register adds an agent, scheduled for immediate activation.
func (e *Environment) Register(a Agent) {
	id := a.ID()
	e.agents[id] = &slot{
		agent: a,
		rng:   rand.New(rand.NewSource(e.seed ^ int64(id))),
	}
	e.order = append(e.order, id)
	agentsRegistered.Inc()
	e.log.WithField("agent", id).Debug(a.Describe())
}

// Now returns the current clock value.
func (e *Environment) Now() simulation.TimePoint { return e.now }

// Send queues an outbound message. Safe for concurrent senders; the
// message is not moved out of the queue before its Sent time.
func (e *Environment) Send(msg interaction.Message) {
	e.mu.Lock()
	e.outbound = append(e.outbound, msg)
	e.mu.Unlock()
	messagesSent.Inc()
}

// Step runs one activation round for the interval [step.Lower, step.Upper):
// due outbound messages move to inboxes, then every agent with due mail or
// an expired wake time runs to completion. Agents activate in parallel;
// each owns its inbox slice for the duration, and sends land back through
// the locked outbound queue.
func (e *Environment) Step(step simulation.TimeInterval) {
	e.flushOutbound(step.Lower)

	var wg sync.WaitGroup
	for _, id := range e.order {
		s := e.agents[id]
		due := s.inbox.takeDue(step.Lower)
		if len(due) == 0 && s.nextWake > step.Lower {
			continue
		}
		wg.Add(1)
		go func(s *slot, due []inboxEntry) {
			defer wg.Done()
			e.activate(s, due, step)
		}(s, due)
	}
	wg.Wait()

	e.now = step.Upper
	stepsTotal.Inc()
}

// Run advances the clock by steps intervals of width dt, stopping early if
// the context is cancelled.
func (e *Environment) Run(ctx context.Context, steps int, dt simulation.TimePoint) {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			e.log.WithField("step", i).Info("run cancelled")
			return
		default:
		}
		e.Step(simulation.TimeInterval{Lower: e.now, Upper: e.now + dt})
	}
}

func (e *Environment) activate(s *slot, due []inboxEntry, step simulation.TimeInterval) {
	// The next activation is the minimum over all handler results and any
	// still-pending wake time. A wake at or before step.Lower is consumed
	// by running Act below and drops out of the minimum.
	next := s.nextWake
	woken := s.nextWake > step.Lower

	for _, entry := range due {
		wake := s.agent.Deliver(entry.msg, step, s.rng)
		messagesDelivered.Inc()
		if !woken || wake < next {
			next = wake
			woken = true
		}
	}

	if s.nextWake <= step.Lower {
		wake := s.agent.Act(step, s.rng)
		if !woken || wake < next {
			next = wake
			woken = true
		}
	}

	// One activation per step: a wake time inside the current interval
	// still means "next step".
	if next < step.Upper {
		next = step.Upper
	}
	s.nextWake = next
}

// flushOutbound moves messages whose Sent time has elapsed into recipient
// inboxes, stamped with an arrival sequence for reproducible tie-breaks
// among equal receive times.
func (e *Environment) flushOutbound(now simulation.TimePoint) {
	e.mu.Lock()
	var held []interaction.Message
	pending := e.outbound
	e.outbound = nil
	e.mu.Unlock()

	for _, msg := range pending {
		h := msg.MessageHeader()
		if h.Sent > now {
			held = append(held, msg)
			continue
		}
		s, ok := e.agents[h.Recipient]
		if !ok {
			e.log.WithFields(logrus.Fields{
				"recipient": h.Recipient,
				"code":      h.Code,
			}).Warn("dropping message for unknown recipient")
			continue
		}
		s.inbox.put(inboxEntry{msg: msg, seq: e.seq.Next()})
	}

	if len(held) > 0 {
		e.mu.Lock()
		e.outbound = append(held, e.outbound...)
		e.mu.Unlock()
	}
}
