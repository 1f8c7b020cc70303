package protocol

import "encoding/json"

// Codec encodes session frames as JSON. It satisfies gRPC's encoding.Codec so
// both ends of the session stream can exchange the frame types in this
// package without a generated schema.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (Codec) Name() string { return "atomix-json" }

// Session service identity shared by client and server stream descriptors.
const (
	SessionServiceName   = "atomix.v1.SessionService"
	SessionConnectMethod = "/atomix.v1.SessionService/Connect"
)
