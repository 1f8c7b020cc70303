package counter

import (
	"encoding/json"

	"github.com/baymaxhuang/atomix/internal/protocol"
	grpcserver "github.com/baymaxhuang/atomix/internal/server/grpc"
)

// Register binds the counter type to reg.
func Register(reg *grpcserver.Registry) {
	reg.Register(TypeName, func(publish grpcserver.Publisher) grpcserver.StateMachine {
		return &stateMachine{publish: publish}
	})
}

type stateMachine struct {
	value   int64
	publish grpcserver.Publisher
}

func (m *stateMachine) Apply(_ uint64, op string, input []byte) ([]byte, error) {
	switch op {
	case opGet:
		return json.Marshal(valueResult{Value: m.value})
	case opSet:
		var req setRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, protocol.NewError(protocol.CodeApplication, "malformed set: %v", err)
		}
		m.value = req.Value
		m.publishChanged()
		return nil, nil
	case opIncrement:
		var req incrementRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, protocol.NewError(protocol.CodeApplication, "malformed increment: %v", err)
		}
		m.value += req.Delta
		m.publishChanged()
		return json.Marshal(valueResult{Value: m.value})
	case opDelete:
		m.value = 0
		return nil, nil
	default:
		return nil, protocol.NewError(protocol.CodeUnknownOperation, "counter operation %q", op)
	}
}

func (m *stateMachine) publishChanged() {
	payload, _ := json.Marshal(valueResult{Value: m.value})
	m.publish(EventChanged, payload)
}
