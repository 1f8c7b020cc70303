package grpcserver

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/baymaxhuang/atomix/internal/cluster"
	"github.com/baymaxhuang/atomix/internal/config"
	"github.com/baymaxhuang/atomix/internal/engine"
	"github.com/baymaxhuang/atomix/internal/engine/local"
	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/internal/resource"
	"github.com/baymaxhuang/atomix/pkg/future"
	"github.com/baymaxhuang/atomix/pkg/log"
)

// managerResource is the reserved resource id of the manager state machine.
const managerResource uint64 = 0

// resourceKey encodes a resource id as the engine's 8-byte key.
func resourceKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

// applyEntry is the logged form of one state machine operation. The session
// id is logged so session-scoped state replays the same way it was built.
type applyEntry struct {
	Session uint64          `json:"session,omitempty"`
	Op      string          `json:"op"`
	Input   json.RawMessage `json:"input,omitempty"`
}

// binding records a live resource's identity in the manager state.
type binding struct {
	ID   uint64 `json:"id"`
	Type string `json:"type"`
}

// Node hosts the resource group: the manager state machine plus one state
// machine per live resource, all applied through a single engine log keyed by
// resource id.
type Node struct {
	ctx      *resource.Context
	registry *Registry
	log      log.Logger
	publish  func(protocol.InstanceEvent)

	mu       sync.Mutex
	nextID   uint64
	byName   map[string]binding
	byID     map[uint64]string
	machines map[uint64]StateMachine
}

// NewNode builds a node over the local engine. The commit handler is
// registered before Open so recovery replays through it.
func NewNode(cfg config.Config, registry *Registry, logger log.Logger) (*Node, error) {
	if logger == nil {
		logger = log.Nop()
	}
	n := &Node{
		registry: registry,
		log:      logger.With(log.Component("node")),
		publish:  func(protocol.InstanceEvent) {},
		byName:   make(map[string]binding),
		byID:     make(map[uint64]string),
		machines: make(map[uint64]StateMachine),
	}
	resCfg := resource.Config{
		Name:              "atomix",
		HeartbeatInterval: cfg.HeartbeatInterval(),
		ElectionTimeout:   cfg.ElectionTimeout(),
		Log: engine.LogConfig{
			Dir:        filepath.Join(cfg.DataDir, "log"),
			SyncWrites: true,
		},
	}
	ctx, err := resource.NewContext(resCfg, cluster.FromConfig(cfg.Cluster),
		func(ec engine.Config) engine.Engine { return local.New(ec) },
		resource.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	n.ctx = ctx.CommitHandler(n.apply)
	return n, nil
}

// SetPublisher installs the event fanout. Install before Open.
func (n *Node) SetPublisher(publish func(protocol.InstanceEvent)) {
	n.publish = publish
}

// Open opens the underlying resource group, replaying any persisted log.
func (n *Node) Open() error {
	_, err := n.ctx.Open().Get()
	return err
}

// Close closes the underlying resource group.
func (n *Node) Close() error {
	_, err := n.ctx.Close().Get()
	return err
}

// State reports the group's health.
func (n *Node) State() resource.State { return n.ctx.State() }

// IsOpen reports whether the underlying resource group is open.
func (n *Node) IsOpen() bool { return n.ctx.IsOpen() }

// Handle routes one session request into the engine. Commands are committed
// through the log; queries are applied locally at the requested consistency.
func (n *Node) Handle(session uint64, req protocol.SessionRequest) *future.Future[[]byte] {
	if req.Type == protocol.RequestQuery {
		entry, err := json.Marshal(applyEntry{Session: session, Op: req.Op, Input: req.Input})
		if err != nil {
			return future.Failed[[]byte](err)
		}
		return n.ctx.Read(resourceKey(req.Resource), entry, req.Consistency)
	}
	if req.Resource == managerResource && req.Op == protocol.OpDeleteResource {
		var body protocol.DeleteResource
		if err := json.Unmarshal(req.Input, &body); err != nil {
			return future.Failed[[]byte](protocol.NewError(protocol.CodeApplication, "malformed delete: %v", err))
		}
		return n.ctx.Delete(resourceKey(body.Resource))
	}
	entry, err := json.Marshal(applyEntry{Session: session, Op: req.Op, Input: req.Input})
	if err != nil {
		return future.Failed[[]byte](err)
	}
	return n.ctx.Write(resourceKey(req.Resource), entry)
}

// apply is the engine commit handler. The key is the target resource id; a
// nil entry is the resource-removal tombstone.
func (n *Node) apply(key, entry []byte) ([]byte, error) {
	if len(key) != 8 {
		return nil, protocol.NewError(protocol.CodeInternal, "malformed resource key")
	}
	id := binary.BigEndian.Uint64(key)
	if entry == nil {
		n.removeResource(id)
		return nil, nil
	}
	var op applyEntry
	if err := json.Unmarshal(entry, &op); err != nil {
		return nil, protocol.NewError(protocol.CodeInternal, "malformed log entry: %v", err)
	}
	if id == managerResource {
		return n.applyManager(op)
	}
	n.mu.Lock()
	m, ok := n.machines[id]
	n.mu.Unlock()
	if !ok {
		return nil, protocol.NewError(protocol.CodeUnknownResource, "resource %d", id)
	}
	return m.Apply(op.Session, op.Op, op.Input)
}

func (n *Node) applyManager(op applyEntry) ([]byte, error) {
	switch op.Op {
	case protocol.OpGetResource:
		var body protocol.GetResource
		if err := json.Unmarshal(op.Input, &body); err != nil {
			return nil, protocol.NewError(protocol.CodeApplication, "malformed get: %v", err)
		}
		id, err := n.getResource(body.Name, body.Type)
		if err != nil {
			return nil, err
		}
		return json.Marshal(protocol.GetResourceResult{Resource: id})
	case protocol.OpCloseResource:
		var body protocol.CloseResource
		if err := json.Unmarshal(op.Input, &body); err != nil {
			return nil, protocol.NewError(protocol.CodeApplication, "malformed close: %v", err)
		}
		n.releaseSession(body.Resource, op.Session)
		return nil, nil
	default:
		return nil, protocol.NewError(protocol.CodeUnknownOperation, "manager operation %q", op.Op)
	}
}

// getResource returns the id bound to name, creating the binding and its
// state machine on first use. Ids are never reused; a deleted name resolves
// to a fresh id on re-creation.
func (n *Node) getResource(name, typ string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if b, ok := n.byName[name]; ok {
		if b.Type != typ {
			return 0, protocol.NewError(protocol.CodeApplication,
				"resource %q is a %s, not a %s", name, b.Type, typ)
		}
		return b.ID, nil
	}
	n.nextID++
	id := n.nextID
	m, err := n.registry.New(typ, n.publisherFor(id))
	if err != nil {
		n.nextID--
		return 0, protocol.NewError(protocol.CodeApplication, "%v", err)
	}
	n.byName[name] = binding{ID: id, Type: typ}
	n.byID[id] = name
	n.machines[id] = m
	n.log.Debug("resource created",
		log.Str("name", name), log.Str("type", typ), log.Uint64("resource", id))
	return id, nil
}

// releaseSession drops any state a machine holds for the session. Machines
// without per-session state ignore the call.
func (n *Node) releaseSession(id, session uint64) {
	n.mu.Lock()
	m := n.machines[id]
	n.mu.Unlock()
	if r, ok := m.(SessionReleaser); ok {
		r.ReleaseSession(session)
	}
}

func (n *Node) removeResource(id uint64) {
	n.mu.Lock()
	name, ok := n.byID[id]
	if ok {
		delete(n.byID, id)
		delete(n.byName, name)
		delete(n.machines, id)
	}
	n.mu.Unlock()
	if ok {
		n.log.Debug("resource removed", log.Str("name", name), log.Uint64("resource", id))
	}
}

// publisherFor scopes the event fanout to one resource. Events are dropped
// while the log is replaying so recovery does not re-deliver them.
func (n *Node) publisherFor(id uint64) Publisher {
	return func(event string, payload []byte) {
		if n.ctx.State() == resource.StateRecover {
			return
		}
		n.publish(protocol.InstanceEvent{Resource: id, Event: event, Payload: payload})
	}
}
