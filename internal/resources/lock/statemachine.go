package lock

import (
	"encoding/json"

	"github.com/baymaxhuang/atomix/internal/protocol"
	grpcserver "github.com/baymaxhuang/atomix/internal/server/grpc"
)

// Register binds the lock type to reg.
func Register(reg *grpcserver.Registry) {
	reg.Register(TypeName, func(publish grpcserver.Publisher) grpcserver.StateMachine {
		return &stateMachine{publish: publish}
	})
}

// stateMachine tracks lock ownership per session. Holder and wait queue
// replay deterministically because session ids are logged with each command.
type stateMachine struct {
	holder  uint64
	waiters []uint64
	publish grpcserver.Publisher
}

func (m *stateMachine) Apply(session uint64, op string, input []byte) ([]byte, error) {
	switch op {
	case opAcquire:
		return m.acquire(session)
	case opRelease:
		return m.release(session)
	case opWithdraw:
		m.withdraw(session)
		return nil, nil
	case opGet:
		return json.Marshal(Status{Locked: m.holder != 0, Holder: m.holder})
	case opDelete:
		m.holder = 0
		m.waiters = nil
		return nil, nil
	default:
		return nil, protocol.NewError(protocol.CodeUnknownOperation, "lock operation %q", op)
	}
}

// ReleaseSession withdraws whatever claim the session still has when its
// resource binding closes.
func (m *stateMachine) ReleaseSession(session uint64) {
	m.withdraw(session)
}

func (m *stateMachine) acquire(session uint64) ([]byte, error) {
	if session == 0 {
		return nil, protocol.NewError(protocol.CodeApplication, "lock acquire requires a session")
	}
	if m.holder == 0 || m.holder == session {
		if m.holder == 0 {
			m.grant(session)
		}
		return json.Marshal(acquireResult{Acquired: true, Holder: session})
	}
	if !m.waiting(session) {
		m.waiters = append(m.waiters, session)
	}
	return json.Marshal(acquireResult{Acquired: false, Holder: m.holder})
}

func (m *stateMachine) release(session uint64) ([]byte, error) {
	if m.holder != session {
		return nil, protocol.NewError(protocol.CodeApplication, "lock not held by session %d", session)
	}
	m.handoff()
	return nil, nil
}

// withdraw drops a session's claim wherever it stands: a held lock is handed
// off, a queued claim is removed.
func (m *stateMachine) withdraw(session uint64) {
	if m.holder == session {
		m.handoff()
		return
	}
	for i, w := range m.waiters {
		if w == session {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

// handoff passes ownership to the next waiter or frees the lock.
func (m *stateMachine) handoff() {
	if len(m.waiters) == 0 {
		m.holder = 0
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.grant(next)
}

func (m *stateMachine) grant(session uint64) {
	m.holder = session
	payload, _ := json.Marshal(GrantPayload{Session: session})
	m.publish(EventGranted, payload)
}

func (m *stateMachine) waiting(session uint64) bool {
	for _, w := range m.waiters {
		if w == session {
			return true
		}
	}
	return false
}
