// Package lock provides the distributed lock resource: a replicated mutex
// whose ownership is tracked per session, plus its client wrapper. Ownership
// passes in claim order; closing the holding session's resource binding
// releases the lock.
package lock

import (
	"context"
	"encoding/json"

	"github.com/baymaxhuang/atomix/internal/instance"
	"github.com/baymaxhuang/atomix/internal/protocol"
)

// TypeName is the resource type this package registers.
const TypeName = "lock"

const (
	opAcquire  = "lock.acquire"
	opRelease  = "lock.release"
	opWithdraw = "lock.withdraw"
	opGet      = "lock.get"
	opDelete   = "lock.delete"
)

// EventGranted is published each time lock ownership changes hands.
const EventGranted = "granted"

type acquireResult struct {
	Acquired bool   `json:"acquired"`
	Holder   uint64 `json:"holder,omitempty"`
}

// Status describes the lock's ownership at query time.
type Status struct {
	Locked bool   `json:"locked"`
	Holder uint64 `json:"holder,omitempty"`
}

// GrantPayload identifies the session that just took ownership.
type GrantPayload struct {
	Session uint64 `json:"session"`
}

// Lock is a client handle to one distributed lock resource.
type Lock struct {
	inst *instance.Client
}

// New resolves name as a lock resource through the factory.
func New(ctx context.Context, factory *instance.Factory, name string) (*Lock, error) {
	inst, err := factory.GetResource(ctx, name, TypeName)
	if err != nil {
		return nil, err
	}
	return &Lock{inst: inst}, nil
}

// Instance returns the underlying resource instance.
func (l *Lock) Instance() *instance.Client { return l.inst }

// Acquire takes the lock, waiting in the server-side queue until ownership is
// granted or ctx is done. A cancelled claim is withdrawn so the lock is never
// granted to a caller that already gave up.
func (l *Lock) Acquire(ctx context.Context) error {
	session := l.inst.Session().ID()
	granted := make(chan struct{}, 1)
	// Register before submitting so a grant racing the acquire response is
	// never missed.
	reg := l.inst.OnEvent(EventGranted, func(payload []byte) {
		var grant GrantPayload
		if err := json.Unmarshal(payload, &grant); err != nil || grant.Session != session {
			return
		}
		select {
		case granted <- struct{}{}:
		default:
		}
	})
	defer reg.Close()

	out, err := l.inst.Submit(protocol.Command{Op: opAcquire}).Await(ctx)
	if err != nil {
		return err
	}
	var result acquireResult
	if err := json.Unmarshal(out, &result); err != nil {
		return err
	}
	if result.Acquired {
		return nil
	}
	select {
	case <-granted:
		return nil
	case <-ctx.Done():
		l.inst.Submit(protocol.Command{Op: opWithdraw})
		return ctx.Err()
	}
}

// TryAcquire takes the lock only when it is free. It never queues a claim.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	out, err := l.inst.Submit(protocol.Command{Op: opAcquire}).Await(ctx)
	if err != nil {
		return false, err
	}
	var result acquireResult
	if err := json.Unmarshal(out, &result); err != nil {
		return false, err
	}
	if !result.Acquired {
		l.inst.Submit(protocol.Command{Op: opWithdraw})
	}
	return result.Acquired, nil
}

// Release gives the lock up. It fails when this session is not the holder.
func (l *Lock) Release(ctx context.Context) error {
	_, err := l.inst.Submit(protocol.Command{Op: opRelease}).Await(ctx)
	return err
}

// Get returns the lock's ownership status at the given consistency level.
func (l *Lock) Get(ctx context.Context, consistency protocol.Consistency) (Status, error) {
	q := protocol.Query{Op: opGet, Consistency: consistency}
	out, err := l.inst.SubmitQuery(q).Await(ctx)
	if err != nil {
		return Status{}, err
	}
	var status Status
	if err := json.Unmarshal(out, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// Delete destroys the lock resource cluster-wide.
func (l *Lock) Delete(ctx context.Context) error {
	_, err := l.inst.Submit(protocol.Command{Op: opDelete, Kind: protocol.KindDelete}).Await(ctx)
	return err
}

// Close releases this handle's server-side state, including any claim this
// session still holds, without destroying the lock.
func (l *Lock) Close(ctx context.Context) error {
	_, err := l.inst.Close().Await(ctx)
	return err
}
