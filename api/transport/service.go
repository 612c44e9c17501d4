package transport

import (
	"context"

	"google.golang.org/grpc"

	"github.com/maartenscholl/esl/domain/interaction"
)

// TransportServer receives envelopes from remote environments.
type TransportServer interface {
	Deliver(ctx context.Context, env *interaction.Envelope) (*Ack, error)
}

const fullMethodDeliver = "/esl.Transport/Deliver"

func deliverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(interaction.Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransportServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fullMethodDeliver,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransportServer).Deliver(ctx, req.(*interaction.Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc is written by hand; the envelope codec replaces generated
// protobuf types.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "esl.Transport",
	HandlerType: (*TransportServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Deliver",
			Handler:    deliverHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "esl/transport",
}
