package sink

import (
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/valuestore"
)

// FrameHandler receives one decoded frame off the wire. The companion
// valuestore.View wraps a synthetic store populated only with the slots
// the frame's passes reference — exactly what a remote rasterizer needs
// (spec §6), nothing more.
type FrameHandler func(render.Frame, valuestore.View)

// EventHandler receives one lifecycle event off the wire.
type EventHandler func(Event)

// Client connects to a Server, reconnecting with exponential backoff
// whenever the stream drops (SPEC_FULL.md §11: cenkalti/backoff wired
// into this package's reconnect loop).
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// RunFrames streams frames until ctx is cancelled, calling onFrame for
// each one and reconnecting transparently on any stream error.
func (c *Client) RunFrames(ctx context.Context, onFrame FrameHandler) error {
	return c.run(ctx, "StreamFrames", func(msg *structpb.Struct) error {
		frame, err := structToFrame(msg)
		if err != nil {
			return nil // malformed envelope: skip, don't tear down the stream
		}
		onFrame(frame, structToView(msg))
		return nil
	})
}

// RunEvents streams lifecycle events until ctx is cancelled.
func (c *Client) RunEvents(ctx context.Context, onEvent EventHandler) error {
	return c.run(ctx, "StreamEvents", func(msg *structpb.Struct) error {
		onEvent(structToEvent(msg))
		return nil
	})
}

func (c *Client) run(ctx context.Context, method string, handle func(*structpb.Struct) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry forever; the caller's ctx is the only way out

	for {
		err := c.streamOnce(ctx, method, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			bo.Reset()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, method string, handle func(*structpb.Struct) error) error {
	stream, err := dialStream(ctx, c.cc, method, &structpb.Struct{})
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handle(msg); err != nil {
			return err
		}
	}
}
