package instance

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/baymaxhuang/atomix/internal/client"
	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/log"
)

// Factory resolves resource names to live instances over one shared session.
// Resolving the same name twice returns the same instance until it is closed
// or deleted.
type Factory struct {
	shared client.Client
	logger log.Logger

	mu        sync.Mutex
	instances map[uint64]*Client
}

// NewFactory wraps a shared client.
func NewFactory(shared client.Client, logger log.Logger) *Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &Factory{
		shared:    shared,
		logger:    logger,
		instances: make(map[uint64]*Client),
	}
}

// GetResource resolves name/typ through the manager state machine and returns
// the instance bound to the resolved id, creating it on first use.
func (f *Factory) GetResource(ctx context.Context, name, typ string) (*Client, error) {
	cmd := protocol.InstanceCommand{Command: protocol.GetResourceCommand(name, typ)}
	out, err := f.shared.Submit(cmd).Await(ctx)
	if err != nil {
		return nil, err
	}
	var result protocol.GetResourceResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if inst, ok := f.instances[result.Resource]; ok {
		return inst, nil
	}
	inst := newClient(f.shared, f, result.Resource,
		f.logger.With(log.Str("type", typ), log.Uint64("resource", result.Resource)))
	f.instances[result.Resource] = inst
	f.logger.Debug("resource resolved",
		log.Str("name", name), log.Str("type", typ), log.Uint64("resource", result.Resource))
	return inst, nil
}

// remove detaches an instance after close or delete. Safe to call for ids the
// factory no longer tracks.
func (f *Factory) remove(resource uint64) {
	f.mu.Lock()
	delete(f.instances, resource)
	f.mu.Unlock()
}

// Close closes the shared session. Open instances observe the closed state
// through their state listeners.
func (f *Factory) Close() error {
	return f.shared.Close()
}
