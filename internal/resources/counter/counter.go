// Package counter provides the distributed counter resource: a replicated
// 64-bit value with atomic increment, plus its client wrapper.
package counter

import (
	"context"
	"encoding/json"

	"github.com/baymaxhuang/atomix/internal/client"
	"github.com/baymaxhuang/atomix/internal/instance"
	"github.com/baymaxhuang/atomix/internal/protocol"
)

// TypeName is the resource type this package registers.
const TypeName = "counter"

const (
	opGet       = "counter.get"
	opSet       = "counter.set"
	opIncrement = "counter.increment"
	opDelete    = "counter.delete"
)

// EventChanged is published after every successful set or increment.
const EventChanged = "changed"

type setRequest struct {
	Value int64 `json:"value"`
}

type incrementRequest struct {
	Delta int64 `json:"delta"`
}

type valueResult struct {
	Value int64 `json:"value"`
}

// Counter is a client handle to one distributed counter resource.
type Counter struct {
	inst *instance.Client
}

// New resolves name as a counter resource through the factory.
func New(ctx context.Context, factory *instance.Factory, name string) (*Counter, error) {
	inst, err := factory.GetResource(ctx, name, TypeName)
	if err != nil {
		return nil, err
	}
	return &Counter{inst: inst}, nil
}

// Instance returns the underlying resource instance.
func (c *Counter) Instance() *instance.Client { return c.inst }

// Get returns the current value at the given consistency level.
func (c *Counter) Get(ctx context.Context, consistency protocol.Consistency) (int64, error) {
	q := protocol.Query{Op: opGet, Consistency: consistency}
	out, err := c.inst.SubmitQuery(q).Await(ctx)
	if err != nil {
		return 0, err
	}
	var result valueResult
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// Set replaces the value.
func (c *Counter) Set(ctx context.Context, value int64) error {
	input, err := json.Marshal(setRequest{Value: value})
	if err != nil {
		return err
	}
	_, err = c.inst.Submit(protocol.Command{Op: opSet, Input: input}).Await(ctx)
	return err
}

// Increment adds delta and returns the resulting value.
func (c *Counter) Increment(ctx context.Context, delta int64) (int64, error) {
	input, err := json.Marshal(incrementRequest{Delta: delta})
	if err != nil {
		return 0, err
	}
	out, err := c.inst.Submit(protocol.Command{Op: opIncrement, Input: input}).Await(ctx)
	if err != nil {
		return 0, err
	}
	var result valueResult
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// Delete destroys the counter resource cluster-wide.
func (c *Counter) Delete(ctx context.Context) error {
	_, err := c.inst.Submit(protocol.Command{Op: opDelete, Kind: protocol.KindDelete}).Await(ctx)
	return err
}

// Close releases this handle's server-side state without destroying the
// counter.
func (c *Counter) Close(ctx context.Context) error {
	_, err := c.inst.Close().Await(ctx)
	return err
}

// OnChanged registers handler for value changes on this counter.
func (c *Counter) OnChanged(handler func(int64)) client.Listener {
	return c.inst.OnEvent(EventChanged, func(payload []byte) {
		var res valueResult
		if err := json.Unmarshal(payload, &res); err != nil {
			return
		}
		handler(res.Value)
	})
}
