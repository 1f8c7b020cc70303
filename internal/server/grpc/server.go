package grpcserver

import (
	"context"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/baymaxhuang/atomix/internal/config"
	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/id"
	"github.com/baymaxhuang/atomix/pkg/log"
)

func init() {
	encoding.RegisterCodec(protocol.Codec{})
}

// Server owns the gRPC server instance and the node behind it.
type Server struct {
	node *Node
	grpc *grpc.Server
	lis  net.Listener
	log  log.Logger
	ids  *id.Generator

	mu       sync.Mutex
	sessions map[uint64]*sessionConn
}

// New constructs a server over cfg and registers the session service.
func New(cfg config.Config, registry *Registry, logger log.Logger, opts ...grpc.ServerOption) (*Server, error) {
	if logger == nil {
		logger = log.Nop()
	}
	node, err := NewNode(cfg, registry, logger)
	if err != nil {
		return nil, err
	}
	s := &Server{
		node:     node,
		grpc:     grpc.NewServer(opts...),
		log:      logger.With(log.Component("server")),
		ids:      id.NewGenerator(),
		sessions: make(map[uint64]*sessionConn),
	}
	node.SetPublisher(s.broadcast)
	s.grpc.RegisterService(&grpc.ServiceDesc{
		ServiceName: protocol.SessionServiceName,
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    "Connect",
			Handler:       connectHandler,
			ServerStreams: true,
			ClientStreams: true,
		}},
	}, s)
	return s, nil
}

// Open opens the node, replaying any persisted log, before the server starts
// accepting sessions.
func (s *Server) Open() error {
	return s.node.Open()
}

// Node exposes the hosted node.
func (s *Server) Node() *Node { return s.node }

// ListenAndServe opens the node, binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.Open(); err != nil {
		return err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		if cerr := s.node.Close(); cerr != nil {
			s.log.Warn("node close failed", log.Err(cerr))
		}
		return err
	}
	s.lis = l
	s.log.Info("serving", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

// Serve serves sessions on an existing listener until Close. The node must
// have been opened.
func (s *Server) Serve(l net.Listener) error {
	s.lis = l
	return s.grpc.Serve(l)
}

// Close stops the server, closes the listener and shuts the node down.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
	if err := s.node.Close(); err != nil {
		s.log.Warn("node close failed", log.Err(err))
	}
}

// broadcast fans an event out to every attached session. Instances filter by
// resource id on their side of the stream.
func (s *Server) broadcast(ev protocol.InstanceEvent) {
	s.mu.Lock()
	conns := make([]*sessionConn, 0, len(s.sessions))
	for _, c := range s.sessions {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	frame := protocol.SessionFrame{Event: &ev}
	for _, c := range conns {
		if err := c.send(frame); err != nil {
			s.log.Debug("event send failed",
				log.Uint64("session", c.id), log.Err(err))
		}
	}
}

func (s *Server) register(c *sessionConn) {
	s.mu.Lock()
	s.sessions[c.id] = c
	s.mu.Unlock()
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
