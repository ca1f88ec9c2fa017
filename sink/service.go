package sink

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// serviceName is the gRPC service path patchkernel's render-frame sink
// streams over. There is no .proto file behind it — structpb.Struct is
// used directly as the wire message on both RPCs, so the ServiceDesc
// below is hand-written rather than protoc-generated, the same shape
// protoc-gen-go-grpc would emit for two server-streaming RPCs.
const serviceName = "patchkernel.sink.Sink"

// sinkServer is the interface Server (server.go) implements and the
// stream handlers below dispatch into; split out so a test can supply a fake without the
// rest of the gRPC plumbing.
type sinkServer interface {
	StreamFrames(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error
	StreamEvents(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

func frameStreamHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(sinkServer).StreamFrames(req, &genericServerStream{stream})
}

func eventStreamHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(sinkServer).StreamEvents(req, &genericServerStream{stream})
}

// genericServerStream adapts grpc.ServerStream to the typed
// ServerStreamingServer[structpb.Struct] interface a handwritten RPC
// method signature expects, the same adapter protoc-gen-go-grpc emits per
// method.
type genericServerStream struct {
	grpc.ServerStream
}

func (g *genericServerStream) Send(m *structpb.Struct) error { return g.ServerStream.SendMsg(m) }

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*sinkServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamFrames",
			Handler:       frameStreamHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "StreamEvents",
			Handler:       eventStreamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "patchkernel/sink.proto",
}

// dialStream opens one server-streaming RPC against cc, sending req as
// the sole client message and returning the receive-only stream.
func dialStream(ctx context.Context, cc grpc.ClientConnInterface, method string, req *structpb.Struct) (grpc.ServerStreamingClient[structpb.Struct], error) {
	desc := &grpc.StreamDesc{StreamName: method, ServerStreams: true}
	stream, err := cc.NewStream(ctx, desc, "/"+serviceName+"/"+method)
	if err != nil {
		return nil, err
	}
	cs := &genericClientStream{stream}
	if err := cs.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return cs, nil
}

type genericClientStream struct {
	grpc.ClientStream
}

func (g *genericClientStream) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := g.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
