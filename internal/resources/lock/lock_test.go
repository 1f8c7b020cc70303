package lock

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/baymaxhuang/atomix/internal/protocol"
)

func acquire(t *testing.T, m *stateMachine, session uint64) acquireResult {
	t.Helper()
	out, err := m.Apply(session, opAcquire, nil)
	if err != nil {
		t.Fatalf("acquire session %d: %v", session, err)
	}
	var res acquireResult
	json.Unmarshal(out, &res)
	return res
}

func status(t *testing.T, m *stateMachine) Status {
	t.Helper()
	out, err := m.Apply(0, opGet, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var s Status
	json.Unmarshal(out, &s)
	return s
}

func TestAcquireFreeLock(t *testing.T) {
	m := &stateMachine{publish: func(string, []byte) {}}
	res := acquire(t, m, 1)
	if !res.Acquired || res.Holder != 1 {
		t.Fatalf("acquire = %+v", res)
	}
	s := status(t, m)
	if !s.Locked || s.Holder != 1 {
		t.Fatalf("status = %+v", s)
	}
}

func TestContendedAcquireQueues(t *testing.T) {
	var grants []uint64
	m := &stateMachine{publish: func(event string, payload []byte) {
		if event != EventGranted {
			return
		}
		var grant GrantPayload
		json.Unmarshal(payload, &grant)
		grants = append(grants, grant.Session)
	}}

	acquire(t, m, 1)
	if res := acquire(t, m, 2); res.Acquired || res.Holder != 1 {
		t.Fatalf("contended acquire = %+v", res)
	}
	if res := acquire(t, m, 3); res.Acquired {
		t.Fatalf("contended acquire = %+v", res)
	}

	if _, err := m.Apply(1, opRelease, nil); err != nil {
		t.Fatalf("release: %v", err)
	}
	if s := status(t, m); s.Holder != 2 {
		t.Fatalf("holder after release = %d", s.Holder)
	}
	if _, err := m.Apply(2, opRelease, nil); err != nil {
		t.Fatalf("release: %v", err)
	}
	if s := status(t, m); s.Holder != 3 {
		t.Fatalf("holder after release = %d", s.Holder)
	}
	want := []uint64{1, 2, 3}
	if len(grants) != len(want) {
		t.Fatalf("grants = %v", grants)
	}
	for i, g := range grants {
		if g != want[i] {
			t.Fatalf("grants = %v", grants)
		}
	}
}

func TestReacquireIsIdempotent(t *testing.T) {
	m := &stateMachine{publish: func(string, []byte) {}}
	acquire(t, m, 1)
	res := acquire(t, m, 1)
	if !res.Acquired || res.Holder != 1 {
		t.Fatalf("reacquire = %+v", res)
	}
}

func TestReleaseByNonHolderFails(t *testing.T) {
	m := &stateMachine{publish: func(string, []byte) {}}
	acquire(t, m, 1)
	_, err := m.Apply(2, opRelease, nil)
	var perr *protocol.Error
	if !errors.As(err, &perr) || perr.Code != protocol.CodeApplication {
		t.Fatalf("expected application error, got %v", err)
	}
	if s := status(t, m); s.Holder != 1 {
		t.Fatalf("holder = %d", s.Holder)
	}
}

func TestWithdrawRemovesQueuedClaim(t *testing.T) {
	m := &stateMachine{publish: func(string, []byte) {}}
	acquire(t, m, 1)
	acquire(t, m, 2)
	acquire(t, m, 3)
	if _, err := m.Apply(2, opWithdraw, nil); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := m.Apply(1, opRelease, nil); err != nil {
		t.Fatalf("release: %v", err)
	}
	if s := status(t, m); s.Holder != 3 {
		t.Fatalf("holder = %d", s.Holder)
	}
}

func TestReleaseSessionHandsOff(t *testing.T) {
	m := &stateMachine{publish: func(string, []byte) {}}
	acquire(t, m, 1)
	acquire(t, m, 2)

	m.ReleaseSession(1)
	if s := status(t, m); s.Holder != 2 {
		t.Fatalf("holder after release = %d", s.Holder)
	}

	m.ReleaseSession(2)
	if s := status(t, m); s.Locked {
		t.Fatalf("lock still held: %+v", s)
	}
}

func TestAcquireWithoutSessionFails(t *testing.T) {
	m := &stateMachine{publish: func(string, []byte) {}}
	_, err := m.Apply(0, opAcquire, nil)
	var perr *protocol.Error
	if !errors.As(err, &perr) || perr.Code != protocol.CodeApplication {
		t.Fatalf("expected application error, got %v", err)
	}
}

func TestUnknownOperation(t *testing.T) {
	m := &stateMachine{publish: func(string, []byte) {}}
	_, err := m.Apply(1, "lock.bogus", nil)
	var perr *protocol.Error
	if !errors.As(err, &perr) || perr.Code != protocol.CodeUnknownOperation {
		t.Fatalf("expected unknown operation error, got %v", err)
	}
}
