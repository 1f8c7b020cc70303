// Package kvmap provides the distributed map resource: the replicated state
// machine hosted by the server and the client wrapper bound to one resource
// instance.
package kvmap

import (
	"context"
	"encoding/json"

	"github.com/baymaxhuang/atomix/internal/client"
	"github.com/baymaxhuang/atomix/internal/instance"
	"github.com/baymaxhuang/atomix/internal/protocol"
)

// Map is a client handle to one distributed map resource.
type Map struct {
	inst *instance.Client
}

// New resolves name as a map resource through the factory.
func New(ctx context.Context, factory *instance.Factory, name string) (*Map, error) {
	inst, err := factory.GetResource(ctx, name, TypeName)
	if err != nil {
		return nil, err
	}
	return &Map{inst: inst}, nil
}

// Instance returns the underlying resource instance.
func (m *Map) Instance() *instance.Client { return m.inst }

// Put stores value under key and returns the previous value, if any.
func (m *Map) Put(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	input, err := json.Marshal(putRequest{Key: key, Value: value})
	if err != nil {
		return nil, false, err
	}
	out, err := m.inst.Submit(protocol.Command{Op: opPut, Input: input}).Await(ctx)
	if err != nil {
		return nil, false, err
	}
	var result valueResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, false, err
	}
	return result.Value, result.Found, nil
}

// Get returns the value under key. The consistency level controls whether
// the read goes through the canonical path or may be served by a leaseholder.
func (m *Map) Get(ctx context.Context, key string, consistency protocol.Consistency) ([]byte, bool, error) {
	input, err := json.Marshal(keyRequest{Key: key})
	if err != nil {
		return nil, false, err
	}
	q := protocol.Query{Op: opGet, Input: input, Consistency: consistency}
	out, err := m.inst.SubmitQuery(q).Await(ctx)
	if err != nil {
		return nil, false, err
	}
	var result valueResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, false, err
	}
	return result.Value, result.Found, nil
}

// Remove deletes key and returns the removed value, if any.
func (m *Map) Remove(ctx context.Context, key string) ([]byte, bool, error) {
	input, err := json.Marshal(keyRequest{Key: key})
	if err != nil {
		return nil, false, err
	}
	out, err := m.inst.Submit(protocol.Command{Op: opRemove, Input: input}).Await(ctx)
	if err != nil {
		return nil, false, err
	}
	var result valueResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, false, err
	}
	return result.Value, result.Found, nil
}

// Size returns the number of entries.
func (m *Map) Size(ctx context.Context) (int, error) {
	q := protocol.Query{Op: opSize, Consistency: protocol.ConsistencyStrict}
	out, err := m.inst.SubmitQuery(q).Await(ctx)
	if err != nil {
		return 0, err
	}
	var result sizeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, err
	}
	return result.Size, nil
}

// Clear removes all entries.
func (m *Map) Clear(ctx context.Context) error {
	_, err := m.inst.Submit(protocol.Command{Op: opClear}).Await(ctx)
	return err
}

// Delete destroys the map resource cluster-wide. The handle is unusable
// afterwards.
func (m *Map) Delete(ctx context.Context) error {
	_, err := m.inst.Submit(protocol.Command{Op: opDelete, Kind: protocol.KindDelete}).Await(ctx)
	return err
}

// Close releases this handle's server-side state without destroying the map.
func (m *Map) Close(ctx context.Context) error {
	_, err := m.inst.Close().Await(ctx)
	return err
}

// OnPut registers handler for put events on this map.
func (m *Map) OnPut(handler func(EventPayload)) client.Listener {
	return m.inst.OnEvent(EventPut, decodeEvent(handler))
}

// OnRemove registers handler for remove events on this map.
func (m *Map) OnRemove(handler func(EventPayload)) client.Listener {
	return m.inst.OnEvent(EventRemove, decodeEvent(handler))
}

// OnPutWhere is OnPut gated by a filter expression evaluated against each
// event payload.
func (m *Map) OnPutWhere(expr string, handler func(EventPayload)) (client.Listener, error) {
	return m.inst.OnEventWhere(EventPut, expr, decodeEvent(handler))
}

func decodeEvent(handler func(EventPayload)) func([]byte) {
	return func(payload []byte) {
		var ev EventPayload
		if err := json.Unmarshal(payload, &ev); err != nil {
			return
		}
		handler(ev)
	}
}
