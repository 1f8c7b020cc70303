package kvmap

import (
	"encoding/json"

	"github.com/baymaxhuang/atomix/internal/protocol"
	grpcserver "github.com/baymaxhuang/atomix/internal/server/grpc"
)

// TypeName is the resource type this package registers.
const TypeName = "map"

// Operation names shared by the state machine and the client wrapper.
const (
	opPut    = "map.put"
	opGet    = "map.get"
	opRemove = "map.remove"
	opSize   = "map.size"
	opClear  = "map.clear"
	opDelete = "map.delete"
)

// Event names published by the state machine.
const (
	EventPut    = "put"
	EventRemove = "remove"
)

type putRequest struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type valueResult struct {
	Value []byte `json:"value,omitempty"`
	Found bool   `json:"found"`
}

type sizeResult struct {
	Size int `json:"size"`
}

// EventPayload describes one map change on the event stream.
type EventPayload struct {
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// Register binds the map type to reg.
func Register(reg *grpcserver.Registry) {
	reg.Register(TypeName, func(publish grpcserver.Publisher) grpcserver.StateMachine {
		return &stateMachine{entries: make(map[string][]byte), publish: publish}
	})
}

// stateMachine holds map entries. Commands replay deterministically; reads
// never mutate.
type stateMachine struct {
	entries map[string][]byte
	publish grpcserver.Publisher
}

func (m *stateMachine) Apply(_ uint64, op string, input []byte) ([]byte, error) {
	switch op {
	case opPut:
		return m.put(input)
	case opGet:
		return m.get(input)
	case opRemove:
		return m.remove(input)
	case opSize:
		return json.Marshal(sizeResult{Size: len(m.entries)})
	case opClear:
		m.entries = make(map[string][]byte)
		return nil, nil
	case opDelete:
		// The resource itself is removed by the follow-up control command;
		// the delete commit only wipes the data.
		m.entries = make(map[string][]byte)
		return nil, nil
	default:
		return nil, protocol.NewError(protocol.CodeUnknownOperation, "map operation %q", op)
	}
}

func (m *stateMachine) put(input []byte) ([]byte, error) {
	var req putRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, protocol.NewError(protocol.CodeApplication, "malformed put: %v", err)
	}
	prev, found := m.entries[req.Key]
	m.entries[req.Key] = req.Value
	payload, _ := json.Marshal(EventPayload{Key: req.Key, Value: req.Value})
	m.publish(EventPut, payload)
	return json.Marshal(valueResult{Value: prev, Found: found})
}

func (m *stateMachine) get(input []byte) ([]byte, error) {
	var req keyRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, protocol.NewError(protocol.CodeApplication, "malformed get: %v", err)
	}
	value, found := m.entries[req.Key]
	return json.Marshal(valueResult{Value: value, Found: found})
}

func (m *stateMachine) remove(input []byte) ([]byte, error) {
	var req keyRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, protocol.NewError(protocol.CodeApplication, "malformed remove: %v", err)
	}
	prev, found := m.entries[req.Key]
	if found {
		delete(m.entries, req.Key)
		payload, _ := json.Marshal(EventPayload{Key: req.Key, Value: prev})
		m.publish(EventRemove, payload)
	}
	return json.Marshal(valueResult{Value: prev, Found: found})
}
