// Package client defines the shared client consumed by the instance layer:
// one physical session per process/cluster connection, carrying tagged
// commands and queries for every resource bound to it plus the inbound event
// stream they demultiplex.
package client

import (
	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/future"
)

// State is the connection state of a shared client.
type State int

const (
	// StateConnected means the session is established and serving.
	StateConnected State = iota
	// StateSuspended means the session is temporarily unreachable.
	StateSuspended
	// StateClosed means the session is gone.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateSuspended:
		return "suspended"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Listener is a registration token; Close deregisters exactly one listener.
type Listener interface {
	Close()
}

// Session identifies a logical client-to-cluster connection. Commands and
// queries submitted through one session are ordered.
type Session interface {
	ID() uint64
}

// Client is the shared session multiplexed by resource instances.
type Client interface {
	// Submit sends a resource-tagged command. Resource 0 addresses the
	// manager state machine.
	Submit(cmd protocol.InstanceCommand) *future.Future[[]byte]
	// SubmitQuery sends a resource-tagged query.
	SubmitQuery(q protocol.InstanceQuery) *future.Future[[]byte]

	// OnEvent registers a handler for the named event stream. Events for all
	// resources on this session are delivered; resource scoping is the
	// caller's concern.
	OnEvent(event string, handler func(protocol.InstanceEvent)) Listener
	// OnStateChange registers a handler invoked on connection state changes.
	OnStateChange(handler func(State)) Listener

	Session() Session
	State() State
	IsOpen() bool
	IsClosed() bool

	// Close tears the physical session down.
	Close() error
}
