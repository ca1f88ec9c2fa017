package sink

import (
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/valuestore"
)

// Server fans out render.Frame/Event values produced in-process to every
// connected remote stream (spec §6 "external sink"). It is the
// grpc.ServiceDesc's HandlerType implementation.
type Server struct {
	mu          sync.Mutex
	frameConns  map[chan *structpb.Struct]struct{}
	eventConns  map[chan *structpb.Struct]struct{}
}

func NewServer() *Server {
	return &Server{
		frameConns: make(map[chan *structpb.Struct]struct{}),
		eventConns: make(map[chan *structpb.Struct]struct{}),
	}
}

// Register attaches Server to a grpc.Server under this package's
// ServiceDesc.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

// Publish hands one assembled frame to every currently connected stream
// (the player calls this as its Sink, spec §6). A slow or absent
// collaborator never blocks frame production: each connection's channel
// is buffered and a full channel simply drops the frame for that
// connection, matching the "events, emitted synchronously after state
// commits" ordering guarantee for the producer side only.
func (s *Server) Publish(frame render.Frame, view valuestore.View) {
	msg, err := frameToStruct(frame, view)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.frameConns {
		select {
		case ch <- msg:
		default:
		}
	}
}

// PushEvent broadcasts a lifecycle event to every connected stream (spec
// §6's CompileStarted/CompileFinished/ProgramSwapped/FrameProduced).
func (s *Server) PushEvent(e Event) {
	msg, err := eventToStruct(e)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.eventConns {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (s *Server) StreamFrames(_ *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ch := make(chan *structpb.Struct, 8)
	s.mu.Lock()
	s.frameConns[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.frameConns, ch)
		s.mu.Unlock()
	}()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

func (s *Server) StreamEvents(_ *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ch := make(chan *structpb.Struct, 32)
	s.mu.Lock()
	s.eventConns[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.eventConns, ch)
		s.mu.Unlock()
	}()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}
