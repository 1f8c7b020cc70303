package resource

// State is the live health of an open resource context. It is derived from
// the engine on each call, never stored.
type State int

const (
	// StateHealthy means the engine is serving normally.
	StateHealthy State = iota
	// StateRecover means the engine is replaying its log.
	StateRecover
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateRecover:
		return "recover"
	default:
		return "unknown"
	}
}
