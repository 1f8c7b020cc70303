package grpcserver

import (
	"errors"
	"io"
	"sync"

	"google.golang.org/grpc"

	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/log"
)

// sessionConn is one attached client session. Sends are serialized; responses
// and events interleave on the same stream.
type sessionConn struct {
	id     uint64
	stream grpc.ServerStream
	sendMu sync.Mutex
}

func (c *sessionConn) send(frame protocol.SessionFrame) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.stream.SendMsg(&frame)
}

// connectHandler serves one session stream: it assigns a session id, sends it
// as the first frame, then answers requests until the client goes away.
func connectHandler(srv any, stream grpc.ServerStream) error {
	s := srv.(*Server)
	conn := &sessionConn{id: uint64(s.ids.Next()), stream: stream}
	if err := conn.send(protocol.SessionFrame{Session: conn.id}); err != nil {
		return err
	}
	s.register(conn)
	defer s.unregister(conn.id)
	logger := s.log.With(log.Uint64("session", conn.id))
	logger.Debug("session attached")
	defer logger.Debug("session detached")

	for {
		var req protocol.SessionRequest
		if err := stream.RecvMsg(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		reqID := req.ID
		s.node.Handle(conn.id, req).Then(func(result []byte, err error) {
			resp := buildResponse(reqID, result, err)
			if err := conn.send(protocol.SessionFrame{Response: &resp}); err != nil {
				logger.Debug("response send failed", log.Err(err))
			}
		})
	}
}

// buildResponse maps a request outcome onto the wire. Domain errors keep
// their code; anything else is reported as internal.
func buildResponse(id uint64, result []byte, err error) protocol.SessionResponse {
	if err == nil {
		return protocol.SessionResponse{ID: id, Status: protocol.StatusOK, Result: result}
	}
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return protocol.SessionResponse{
			ID:      id,
			Status:  protocol.StatusError,
			Code:    perr.Code,
			Message: perr.Message,
		}
	}
	return protocol.SessionResponse{
		ID:      id,
		Status:  protocol.StatusError,
		Code:    protocol.CodeInternal,
		Message: err.Error(),
	}
}
