package grpcserver

import (
	"fmt"
	"sync"
)

// Publisher pushes a named event with a payload to every session attached to
// the publishing resource.
type Publisher func(event string, payload []byte)

// StateMachine is a replicated resource type. Apply handles both committed
// commands and local reads; it must be deterministic for commands since the
// same sequence is re-applied on recovery. The session id identifies the
// submitting session and is logged with each command so session-scoped state
// replays consistently.
type StateMachine interface {
	Apply(session uint64, op string, input []byte) ([]byte, error)
}

// SessionReleaser is implemented by state machines that hold per-session
// state. ReleaseSession runs when a session closes its binding to the
// resource, through the same log as every other command.
type SessionReleaser interface {
	ReleaseSession(session uint64)
}

// Factory builds a state machine instance wired to its event publisher.
type Factory func(publish Publisher) StateMachine

// Registry maps resource type names to state machine factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds typ to factory, replacing any prior binding.
func (r *Registry) Register(typ string, factory Factory) {
	r.mu.Lock()
	r.factories[typ] = factory
	r.mu.Unlock()
}

// New builds a state machine of the given type.
func (r *Registry) New(typ string, publish Publisher) (StateMachine, error) {
	r.mu.RLock()
	factory, ok := r.factories[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown resource type %q", typ)
	}
	return factory(publish), nil
}
