package protocol

import "encoding/json"

// Consistency controls how a read may be served.
type Consistency int

const (
	// ConsistencyStrict forces the read through the canonical leader path.
	ConsistencyStrict Consistency = iota
	// ConsistencyLease allows a leaseholder to serve the read locally.
	ConsistencyLease
)

func (c Consistency) String() string {
	switch c {
	case ConsistencyStrict:
		return "strict"
	case ConsistencyLease:
		return "lease"
	default:
		return "unknown"
	}
}

// CommandKind discriminates commands that need special submission handling.
// The kind is fixed at construction time; no runtime type inspection happens
// on the submission path.
type CommandKind int

const (
	// KindNone marks an ordinary state machine command.
	KindNone CommandKind = iota
	// KindDelete marks a command that deletes its resource. Submitting a
	// KindDelete command triggers the follow-up resource-removal control
	// command.
	KindDelete
)

// Command is a state machine operation that mutates resource state.
type Command struct {
	Op    string          `json:"op"`
	Input json.RawMessage `json:"input,omitempty"`
	Kind  CommandKind     `json:"kind,omitempty"`
}

// Query is a state machine operation that reads resource state.
type Query struct {
	Op          string          `json:"op"`
	Input       json.RawMessage `json:"input,omitempty"`
	Consistency Consistency     `json:"consistency,omitempty"`
}

// InstanceCommand is a command envelope tagged with the submitting resource.
// Resource 0 addresses the manager state machine.
type InstanceCommand struct {
	Resource uint64  `json:"resource"`
	Command  Command `json:"command"`
}

// InstanceQuery is a query envelope tagged with the submitting resource.
type InstanceQuery struct {
	Resource uint64 `json:"resource"`
	Query    Query  `json:"query"`
}

// InstanceEvent is an event published by a resource state machine, delivered
// over the shared session's event stream.
type InstanceEvent struct {
	Resource uint64          `json:"resource"`
	Event    string          `json:"event"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
