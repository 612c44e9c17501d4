// Package outbox persists clearing records awaiting publication. Records
// move through NEW -> SENT -> ACKED so the broadcaster can resume after a
// crash without dropping or duplicating a downstream publish.
package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/maartenscholl/esl/domain/simulation"
)

// State of an outbox record.
type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// Record is one durable clearing record plus its publication bookkeeping.
type Record struct {
	Seq         uint64
	Time        simulation.TimePoint
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

var errRecordLength = errors.New("outbox: invalid record length")

const recordHeaderLen = 1 + 4 + 8 + 8

// binary encoding: [state:1][retries:4][lastAttempt:8][time:8][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, recordHeaderLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint64(buf[13:21], uint64(r.Time))
	copy(buf[recordHeaderLen:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < recordHeaderLen {
		return Record{}, errRecordLength
	}
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Time:        simulation.TimePoint(binary.BigEndian.Uint64(b[13:21])),
		Payload:     append([]byte(nil), b[recordHeaderLen:]...),
	}, nil
}

// Outbox is a pebble-backed durable queue of clearing records.
type Outbox struct {
	db *pebble.DB
}

// Open opens (or creates) the outbox database in dir.
func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // durability is the point
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: open %s: %w", dir, err)
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put stores a new clearing record in state NEW.
func (o *Outbox) Put(seq uint64, at simulation.TimePoint, payload []byte) error {
	rec := Record{Seq: seq, Time: at, State: StateNew, Payload: payload}
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// MarkSent transitions a record to SENT and bumps its attempt bookkeeping.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.transition(seq, StateSent)
}

// MarkAcked transitions a record to ACKED once the publish is confirmed.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.transition(seq, StateAcked)
}

// Delete removes a record (cleanup of ACKED entries).
func (o *Outbox) Delete(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

// Get returns the record for a sequence number.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decodeRecord(seq, val)
}

func (o *Outbox) transition(seq uint64, state State) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries++
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// ScanByState iterates all records in the given state in sequence order.
func (o *Outbox) ScanByState(state State, fn func(rec Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("clearing/"),
		UpperBound: []byte("clearing/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("clearing/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("clearing/"))), "%d", &seq)
	return seq, err
}
