package transport

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/maartenscholl/esl/domain/interaction"
	"github.com/maartenscholl/esl/domain/market"
)

// Server receives envelopes over gRPC and forwards the decoded messages to
// a local sink, typically an environment's send queue. Duplicate sequence
// numbers from a retrying sender are acknowledged but not redelivered.
//
// Senders issue sequences monotonically, so dedup state compacts to a
// high-water mark; the seen set only holds sequences that arrived ahead of
// a gap and stays small instead of growing for the life of the process.
type Server struct {
	sink interaction.Outbox
	log  *logrus.Entry

	mu    sync.Mutex
	floor uint64
	seen  map[uint64]struct{}
}

func NewServer(sink interaction.Outbox, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		sink: sink,
		log:  log.WithField("component", "transport"),
		seen: make(map[uint64]struct{}),
	}
}

// Register attaches the service to a grpc server.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&serviceDesc, s)
}

// Deliver decodes one envelope and hands the message to the sink. Exactly
// once: dedup by transport sequence, ack either way so the sender can stop
// retrying.
func (s *Server) Deliver(_ context.Context, env *interaction.Envelope) (*Ack, error) {
	if !s.accept(env.Seq) {
		return &Ack{Seq: env.Seq, Accepted: false}, nil
	}

	msg, err := market.UnmarshalMessage(env.Header, env.Payload)
	if err != nil {
		s.log.WithError(err).WithField("code", env.Header.Code).
			Warn("undeliverable envelope")
		return nil, status.Errorf(codes.InvalidArgument, "decode envelope: %v", err)
	}

	s.sink.Send(msg)
	return &Ack{Seq: env.Seq, Accepted: true}, nil
}

// accept records seq as seen and reports whether it is new. Consecutive
// sequences fold into the floor immediately; only out-of-order arrivals
// occupy the seen set until the gap below them closes.
func (s *Server) accept(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.floor {
		return false
	}
	if _, dup := s.seen[seq]; dup {
		return false
	}
	s.seen[seq] = struct{}{}

	for {
		if _, ok := s.seen[s.floor+1]; !ok {
			break
		}
		s.floor++
		delete(s.seen, s.floor)
	}
	return true
}

// ServerOptions returns the grpc options a host server needs for this
// service's codec.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(codec{})}
}
