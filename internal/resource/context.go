package resource

import (
	"sync"

	"github.com/baymaxhuang/atomix/internal/cluster"
	"github.com/baymaxhuang/atomix/internal/engine"
	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/future"
	"github.com/baymaxhuang/atomix/pkg/log"
)

// EngineBuilder constructs the consensus engine for a resolved group
// configuration.
type EngineBuilder func(engine.Config) engine.Engine

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the context's logger.
func WithLogger(l log.Logger) Option {
	return func(c *Context) { c.log = l }
}

// Context wraps one consensus engine instance for a resource group. It turns
// resource-level read/write/delete calls into engine requests and owns the
// group's open/close lifecycle. All failures after construction are reported
// through returned futures.
type Context struct {
	name      string
	cfg       Config
	engineCfg engine.Config
	log       log.Logger
	scheduler *serialExecutor
	cluster   *cluster.View
	engine    engine.Engine

	mu          sync.Mutex
	openFuture  *future.Future[*Context]
	closeFuture *future.Future[struct{}]
	open        bool
}

// NewContext resolves cfg against the cluster membership and builds the
// group's engine. It fails with *ConfigurationError when a declared replica
// is not a cluster member.
func NewContext(cfg Config, clu cluster.Config, build EngineBuilder, opts ...Option) (*Context, error) {
	engineCfg, err := cfg.resolve(clu)
	if err != nil {
		return nil, err
	}
	c := &Context{
		name:      cfg.Name,
		cfg:       cfg,
		engineCfg: engineCfg,
		log:       log.Nop(),
		scheduler: newSerialExecutor(),
		cluster:   cluster.NewView(clu),
		engine:    build(engineCfg),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(log.Component("resource"), log.Str("name", cfg.Name))
	return c, nil
}

// Name returns the resource group name.
func (c *Context) Name() string { return c.name }

// Config returns the resource configuration.
func (c *Context) Config() Config { return c.cfg }

// Cluster returns the group's cluster view.
func (c *Context) Cluster() *cluster.View { return c.cluster }

// State returns Recover while the engine is replaying its log, otherwise
// Healthy.
func (c *Context) State() State {
	if c.engine.IsRecovering() {
		return StateRecover
	}
	return StateHealthy
}

// CommitHandler registers the engine apply callback, replacing any prior
// handler.
func (c *Context) CommitHandler(h engine.CommitHandler) *Context {
	c.engine.CommitHandler(h)
	return c
}

// Read submits a read for a keyed entry at the given consistency level.
func (c *Context) Read(key, entry []byte, consistency protocol.Consistency) *future.Future[[]byte] {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		return future.Failed[[]byte](ErrNotOpen)
	}
	req := protocol.ReadRequest{
		Member:      c.engineCfg.MemberID,
		Key:         key,
		Entry:       entry,
		Consistency: consistency,
	}
	return bridge(c.engine.Read(req))
}

// Write commits a keyed entry through the canonical path.
func (c *Context) Write(key, entry []byte) *future.Future[[]byte] {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		return future.Failed[[]byte](ErrNotOpen)
	}
	req := protocol.WriteRequest{
		Member: c.engineCfg.MemberID,
		Key:    key,
		Entry:  entry,
	}
	return bridge(c.engine.Write(req))
}

// Delete commits removal of the keyed entry.
func (c *Context) Delete(key []byte) *future.Future[[]byte] {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		return future.Failed[[]byte](ErrNotOpen)
	}
	req := protocol.DeleteRequest{
		Member: c.engineCfg.MemberID,
		Key:    key,
	}
	return bridge(c.engine.Delete(req))
}

// bridge maps an engine response future onto a result future: OK responses
// resolve with the result payload, non-OK responses fail with the domain
// error, request failures propagate unchanged.
func bridge(rf *future.Future[protocol.Response]) *future.Future[[]byte] {
	out := future.New[[]byte]()
	rf.Then(func(resp protocol.Response, err error) {
		if err != nil {
			out.Fail(err)
			return
		}
		if err := resp.Err(); err != nil {
			out.Fail(err)
			return
		}
		out.Complete(resp.Result)
	})
	return out
}

// Open opens the cluster view and the engine. Open is idempotent and
// single-flight: concurrent callers during the in-flight window receive the
// same future instance. A failed open clears the pending slot so a later
// call starts a fresh attempt.
func (c *Context) Open() *future.Future[*Context] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return future.Completed(c)
	}
	if c.openFuture != nil {
		return c.openFuture
	}

	f := future.New[*Context]()
	c.openFuture = f
	err := c.scheduler.Execute(func() {
		if _, err := c.cluster.Open().Get(); err != nil {
			c.finishOpen(f, err)
			return
		}
		_, err := c.engine.Open().Get()
		c.finishOpen(f, err)
	})
	if err != nil {
		c.openFuture = nil
		return future.Failed[*Context](err)
	}
	return f
}

func (c *Context) finishOpen(f *future.Future[*Context], err error) {
	c.mu.Lock()
	c.openFuture = nil
	if err == nil {
		c.open = true
	}
	c.mu.Unlock()
	if err != nil {
		c.log.Warn("open failed", log.Err(err))
		f.Fail(err)
		return
	}
	c.log.Info("context open", log.Int("members", len(c.engineCfg.Members)))
	f.Complete(c)
}

// IsOpen reports whether the context is open.
func (c *Context) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// IsClosed reports whether the context is closed.
func (c *Context) IsClosed() bool {
	return !c.IsOpen()
}

// Close closes the engine and then the cluster view. Close mirrors Open:
// it is a no-op on a closed context, coalesces concurrent callers onto one
// future, and on success shuts the scheduler down.
func (c *Context) Close() *future.Future[struct{}] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return future.Completed(struct{}{})
	}
	if c.closeFuture != nil {
		return c.closeFuture
	}

	f := future.New[struct{}]()
	c.closeFuture = f
	err := c.scheduler.Execute(func() {
		if _, err := c.engine.Close().Get(); err != nil {
			c.finishClose(f, err)
			return
		}
		_, err := c.cluster.Close().Get()
		c.finishClose(f, err)
	})
	if err != nil {
		c.closeFuture = nil
		return future.Failed[struct{}](err)
	}
	return f
}

func (c *Context) finishClose(f *future.Future[struct{}], err error) {
	c.mu.Lock()
	c.closeFuture = nil
	if err == nil {
		c.open = false
		c.scheduler.Shutdown()
	}
	c.mu.Unlock()
	if err != nil {
		c.log.Warn("close failed", log.Err(err))
		f.Fail(err)
		return
	}
	c.log.Info("context closed")
	f.Complete(struct{}{})
}
