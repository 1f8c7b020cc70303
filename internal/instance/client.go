package instance

import (
	"sync"

	"github.com/baymaxhuang/atomix/internal/client"
	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/future"
	"github.com/baymaxhuang/atomix/pkg/log"
)

// Client binds one resource to a shared session. Commands and queries are
// tagged with the resource id before submission; inbound events are filtered
// down to this resource. Many Clients share one physical session.
type Client struct {
	shared  client.Client
	factory *Factory
	logger  log.Logger

	mu       sync.Mutex
	resource uint64
	session  *Session
	closed   bool
	nextID   uint64
	events   map[string]*eventGroup
	states   map[uint64]func(client.State)
	upstream client.Listener
}

func newClient(shared client.Client, factory *Factory, resource uint64, logger log.Logger) *Client {
	c := &Client{
		shared:   shared,
		factory:  factory,
		logger:   logger,
		resource: resource,
		session:  &Session{resource: resource, shared: shared.Session()},
		events:   make(map[string]*eventGroup),
		states:   make(map[uint64]func(client.State)),
	}
	// Relay shared session state to this instance's listeners as long as the
	// instance is open; after Close the instance reports closed regardless of
	// the shared session.
	c.upstream = shared.OnStateChange(func(s client.State) {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		handlers := make([]func(client.State), 0, len(c.states))
		for _, h := range c.states {
			handlers = append(handlers, h)
		}
		c.mu.Unlock()
		for _, h := range handlers {
			h(s)
		}
	})
	return c
}

// Reset retags the instance after its resource id changed, which happens when
// a deleted resource is re-created under the same name.
func (c *Client) Reset(resource uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resource = resource
	c.session = &Session{resource: resource, shared: c.shared.Session()}
}

// Session returns this instance's resource-scoped session view.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Submit sends cmd tagged with this resource. Delete commands additionally
// trigger the resource-removal control command once the delete itself has
// committed; the returned future then carries a nil result. A failure of the
// removal after a committed delete surfaces as *PartialDeleteError.
func (c *Client) Submit(cmd protocol.Command) *future.Future[[]byte] {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return future.Failed[[]byte](ErrNotOpen)
	}
	resource := c.resource
	c.mu.Unlock()

	if cmd.Kind == protocol.KindDelete {
		return c.submitDelete(resource, cmd)
	}
	return c.shared.Submit(protocol.InstanceCommand{Resource: resource, Command: cmd})
}

func (c *Client) submitDelete(resource uint64, cmd protocol.Command) *future.Future[[]byte] {
	result := future.New[[]byte]()
	c.shared.Submit(protocol.InstanceCommand{Resource: resource, Command: cmd}).Then(func(_ []byte, err error) {
		if err != nil {
			result.Fail(err)
			return
		}
		removal := protocol.InstanceCommand{Command: protocol.DeleteResourceCommand(resource)}
		c.shared.Submit(removal).Then(func(_ []byte, err error) {
			if err != nil {
				result.Fail(&PartialDeleteError{Resource: resource, Err: err})
				return
			}
			c.factory.remove(resource)
			result.Complete(nil)
		})
	})
	return result
}

// SubmitQuery sends q tagged with this resource.
func (c *Client) SubmitQuery(q protocol.Query) *future.Future[[]byte] {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return future.Failed[[]byte](ErrNotOpen)
	}
	resource := c.resource
	c.mu.Unlock()
	return c.shared.SubmitQuery(protocol.InstanceQuery{Resource: resource, Query: q})
}

// OnEvent registers handler for the named event stream, scoped to this
// resource. The first listener for a name opens one upstream subscription;
// the last listener to close tears it down.
func (c *Client) OnEvent(event string, handler func(payload []byte)) client.Listener {
	return c.onEvent(event, handler, eventFilter{})
}

// OnEventWhere is OnEvent gated by a filter expression evaluated against each
// matching event. An empty expression matches everything.
func (c *Client) OnEventWhere(event, expr string, handler func(payload []byte)) (client.Listener, error) {
	filter, err := newEventFilter(expr)
	if err != nil {
		return nil, err
	}
	return c.onEvent(event, handler, filter), nil
}

func (c *Client) onEvent(event string, handler func(payload []byte), filter eventFilter) client.Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		// A registration racing past Close must not re-open an upstream
		// subscription on a detached instance.
		return listenerFunc(func() {})
	}
	group, ok := c.events[event]
	if !ok {
		group = &eventGroup{listeners: make(map[uint64]func([]byte))}
		c.events[event] = group
		group.upstream = c.shared.OnEvent(event, func(msg protocol.InstanceEvent) {
			c.dispatchEvent(event, msg)
		})
	}
	c.nextID++
	id := c.nextID
	if filter.enabled {
		inner := handler
		group.listeners[id] = func(payload []byte) {
			if filter.Eval(event, c.resourceID(), payload) {
				inner(payload)
			}
		}
	} else {
		group.listeners[id] = handler
	}
	return &eventRegistration{client: c, event: event, id: id}
}

func (c *Client) resourceID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resource
}

func (c *Client) dispatchEvent(event string, msg protocol.InstanceEvent) {
	c.mu.Lock()
	if msg.Resource != c.resource {
		c.mu.Unlock()
		return
	}
	group, ok := c.events[event]
	if !ok {
		c.mu.Unlock()
		return
	}
	handlers := make([]func([]byte), 0, len(group.listeners))
	for _, h := range group.listeners {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(msg.Payload)
	}
}

// unregister drops one listener. When it was the group's last, the upstream
// subscription is closed outside the lock after the group has already been
// removed from the map, so a racing OnEvent opens a fresh subscription rather
// than joining a dying one.
func (c *Client) unregister(event string, id uint64) {
	c.mu.Lock()
	group, ok := c.events[event]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(group.listeners, id)
	var upstream client.Listener
	if len(group.listeners) == 0 {
		delete(c.events, event)
		upstream = group.upstream
	}
	c.mu.Unlock()
	if upstream != nil {
		upstream.Close()
	}
}

// OnStateChange registers handler for session state transitions as seen by
// this instance. After Close the instance delivers a final closed state and
// nothing further.
func (c *Client) OnStateChange(handler func(client.State)) client.Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return listenerFunc(func() {})
	}
	c.nextID++
	id := c.nextID
	c.states[id] = handler
	cl := c
	return listenerFunc(func() {
		cl.mu.Lock()
		delete(cl.states, id)
		cl.mu.Unlock()
	})
}

// State reports the session state as seen by this instance: the shared
// session's state while open, closed after Close regardless of the shared
// session.
func (c *Client) State() client.State {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return client.StateClosed
	}
	return c.shared.State()
}

// IsOpen reports whether this instance can still submit operations.
func (c *Client) IsOpen() bool {
	return c.State() == client.StateConnected
}

// IsClosed reports whether this instance has been closed.
func (c *Client) IsClosed() bool {
	return c.State() == client.StateClosed
}

// Close releases this instance's server-side resource state and detaches it
// from the factory. The instance transitions to closed even when the release
// command fails; the returned future carries that failure.
func (c *Client) Close() *future.Future[struct{}] {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return future.Completed(struct{}{})
	}
	resource := c.resource
	c.mu.Unlock()

	release := protocol.InstanceCommand{Command: protocol.CloseResourceCommand(resource)}
	result := future.New[struct{}]()
	c.shared.Submit(release).Then(func(_ []byte, err error) {
		c.finishClose(resource)
		if err != nil {
			c.logger.Warn("resource close command failed",
				log.Uint64("resource", resource), log.Err(err))
			result.Fail(err)
			return
		}
		result.Complete(struct{}{})
	})
	return result
}

func (c *Client) finishClose(resource uint64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	handlers := make([]func(client.State), 0, len(c.states))
	for _, h := range c.states {
		handlers = append(handlers, h)
	}
	groups := c.events
	c.events = make(map[string]*eventGroup)
	c.states = make(map[uint64]func(client.State))
	upstream := c.upstream
	c.upstream = nil
	c.mu.Unlock()

	if upstream != nil {
		upstream.Close()
	}
	for _, g := range groups {
		if g.upstream != nil {
			g.upstream.Close()
		}
	}
	for _, h := range handlers {
		h(client.StateClosed)
	}
	c.factory.remove(resource)
}

type listenerFunc func()

func (f listenerFunc) Close() { f() }
