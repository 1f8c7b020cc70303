package protocol

import "encoding/json"

// Session stream frames. One bidirectional stream carries correlated
// request/response pairs plus server-pushed events; frames are encoded by the
// transport's codec (JSON by default).

// RequestType distinguishes command and query submissions on the stream.
type RequestType string

const (
	RequestCommand RequestType = "command"
	RequestQuery   RequestType = "query"
)

// SessionRequest is a client-to-server frame.
type SessionRequest struct {
	ID          uint64          `json:"id"`
	Type        RequestType     `json:"type"`
	Resource    uint64          `json:"resource,omitempty"`
	Op          string          `json:"op"`
	Input       json.RawMessage `json:"input,omitempty"`
	Consistency Consistency     `json:"consistency,omitempty"`
}

// SessionResponse answers the SessionRequest with the same ID.
type SessionResponse struct {
	ID      uint64          `json:"id"`
	Status  Status          `json:"status"`
	Code    ErrorCode       `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Err returns nil for an OK response, otherwise the domain error it carries.
func (r SessionResponse) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	return &Error{Code: r.Code, Message: r.Message}
}

// SessionFrame is a server-to-client frame: exactly one field is set.
type SessionFrame struct {
	Session  uint64           `json:"session,omitempty"`
	Response *SessionResponse `json:"response,omitempty"`
	Event    *InstanceEvent   `json:"event,omitempty"`
}
