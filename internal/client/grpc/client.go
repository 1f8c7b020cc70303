// Package grpcclient implements the shared client over a single gRPC
// bidirectional session stream. Commands and queries are correlated by
// request id; events and the session handshake arrive as server-pushed
// frames on the same stream.
package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/baymaxhuang/atomix/internal/client"
	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/future"
	"github.com/baymaxhuang/atomix/pkg/log"
)

// ErrClosed fails pending and new submissions once the session is gone.
var ErrClosed = errors.New("grpcclient: session closed")

var connectDesc = &grpc.StreamDesc{
	StreamName:    "Connect",
	ClientStreams: true,
	ServerStreams: true,
}

// Options configures Dial.
type Options struct {
	Target      string
	DialOptions []grpc.DialOption
	Logger      log.Logger
}

type session struct {
	id uint64
}

func (s session) ID() uint64 { return s.id }

// Client is a shared client over one gRPC session stream.
type Client struct {
	conn    *grpc.ClientConn
	ownConn bool
	stream  grpc.ClientStream
	cancel  context.CancelFunc
	log     log.Logger

	sendMu sync.Mutex

	mu            sync.Mutex
	sess          session
	state         client.State
	nextRequest   uint64
	nextListener  uint64
	pending       map[uint64]*future.Future[[]byte]
	eventHandlers map[string]map[uint64]func(protocol.InstanceEvent)
	stateHandlers map[uint64]func(client.State)
}

// Dial connects to target and establishes a session.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	dialOpts := append(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		opts.DialOptions...,
	)
	conn, err := grpc.NewClient(opts.Target, dialOpts...)
	if err != nil {
		return nil, err
	}
	c, err := Connect(ctx, conn, opts.Logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.ownConn = true
	return c, nil
}

// Connect establishes a session over an existing connection. The connection
// stays owned by the caller.
func Connect(ctx context.Context, conn *grpc.ClientConn, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Nop()
	}
	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := conn.NewStream(streamCtx, connectDesc, protocol.SessionConnectMethod, grpc.ForceCodec(protocol.Codec{}))
	if err != nil {
		cancel()
		return nil, err
	}

	// The server's first frame carries the session id.
	hello := make(chan protocol.SessionFrame, 1)
	helloErr := make(chan error, 1)
	go func() {
		var frame protocol.SessionFrame
		if err := stream.RecvMsg(&frame); err != nil {
			helloErr <- err
			return
		}
		hello <- frame
	}()

	var frame protocol.SessionFrame
	select {
	case frame = <-hello:
	case err := <-helloErr:
		cancel()
		return nil, err
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
	if frame.Session == 0 {
		cancel()
		return nil, fmt.Errorf("grpcclient: handshake frame missing session id")
	}

	c := &Client{
		conn:          conn,
		stream:        stream,
		cancel:        cancel,
		log:           logger.With(log.Component("client"), log.Uint64("session", frame.Session)),
		sess:          session{id: frame.Session},
		state:         client.StateConnected,
		pending:       map[uint64]*future.Future[[]byte]{},
		eventHandlers: map[string]map[uint64]func(protocol.InstanceEvent){},
		stateHandlers: map[uint64]func(client.State){},
	}
	c.log.Debug("session established")
	go c.recvLoop()
	return c, nil
}

func (c *Client) recvLoop() {
	for {
		var frame protocol.SessionFrame
		if err := c.stream.RecvMsg(&frame); err != nil {
			c.teardown(err)
			return
		}
		switch {
		case frame.Response != nil:
			c.dispatchResponse(*frame.Response)
		case frame.Event != nil:
			c.dispatchEvent(*frame.Event)
		}
	}
}

func (c *Client) dispatchResponse(resp protocol.SessionResponse) {
	c.mu.Lock()
	f, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := resp.Err(); err != nil {
		f.Fail(err)
		return
	}
	f.Complete(resp.Result)
}

func (c *Client) dispatchEvent(event protocol.InstanceEvent) {
	c.mu.Lock()
	handlers := make([]func(protocol.InstanceEvent), 0, len(c.eventHandlers[event.Event]))
	for _, h := range c.eventHandlers[event.Event] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(event)
	}
}

// teardown fails all pending requests and moves the client to closed.
func (c *Client) teardown(cause error) {
	c.mu.Lock()
	if c.state == client.StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = client.StateClosed
	pending := c.pending
	c.pending = map[uint64]*future.Future[[]byte]{}
	handlers := make([]func(client.State), 0, len(c.stateHandlers))
	for _, h := range c.stateHandlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	c.log.Debug("session torn down", log.Err(cause))
	for _, f := range pending {
		f.Fail(ErrClosed)
	}
	for _, h := range handlers {
		h(client.StateClosed)
	}
}

func (c *Client) send(req protocol.SessionRequest) *future.Future[[]byte] {
	f := future.New[[]byte]()

	c.mu.Lock()
	if c.state == client.StateClosed {
		c.mu.Unlock()
		f.Fail(ErrClosed)
		return f
	}
	c.nextRequest++
	req.ID = c.nextRequest
	c.pending[req.ID] = f
	c.mu.Unlock()

	c.sendMu.Lock()
	err := c.stream.SendMsg(&req)
	c.sendMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		f.Fail(err)
	}
	return f
}

// Submit sends a resource-tagged command.
func (c *Client) Submit(cmd protocol.InstanceCommand) *future.Future[[]byte] {
	return c.send(protocol.SessionRequest{
		Type:     protocol.RequestCommand,
		Resource: cmd.Resource,
		Op:       cmd.Command.Op,
		Input:    cmd.Command.Input,
	})
}

// SubmitQuery sends a resource-tagged query.
func (c *Client) SubmitQuery(q protocol.InstanceQuery) *future.Future[[]byte] {
	return c.send(protocol.SessionRequest{
		Type:        protocol.RequestQuery,
		Resource:    q.Resource,
		Op:          q.Query.Op,
		Input:       q.Query.Input,
		Consistency: q.Query.Consistency,
	})
}

type registration struct {
	close func()
}

func (r registration) Close() { r.close() }

// OnEvent registers a handler for the named event stream.
func (c *Client) OnEvent(event string, handler func(protocol.InstanceEvent)) client.Listener {
	c.mu.Lock()
	c.nextListener++
	id := c.nextListener
	if c.eventHandlers[event] == nil {
		c.eventHandlers[event] = map[uint64]func(protocol.InstanceEvent){}
	}
	c.eventHandlers[event][id] = handler
	c.mu.Unlock()

	return registration{close: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.eventHandlers[event], id)
		if len(c.eventHandlers[event]) == 0 {
			delete(c.eventHandlers, event)
		}
	}}
}

// OnStateChange registers a handler for connection state changes.
func (c *Client) OnStateChange(handler func(client.State)) client.Listener {
	c.mu.Lock()
	c.nextListener++
	id := c.nextListener
	c.stateHandlers[id] = handler
	c.mu.Unlock()

	return registration{close: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.stateHandlers, id)
	}}
}

// Session returns the established session.
func (c *Client) Session() client.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// State returns the connection state.
func (c *Client) State() client.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOpen reports whether the session is serving.
func (c *Client) IsOpen() bool { return c.State() == client.StateConnected }

// IsClosed reports whether the session is gone.
func (c *Client) IsClosed() bool { return c.State() == client.StateClosed }

// Close tears the session down.
func (c *Client) Close() error {
	c.teardown(nil)
	c.cancel()
	if c.ownConn {
		return c.conn.Close()
	}
	return nil
}
