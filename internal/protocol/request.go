package protocol

// Engine request/response types. The byte-level encoding of these messages is
// the engine's concern; this layer only builds and interprets them.

// ReadRequest asks the engine for the value of a keyed entry.
type ReadRequest struct {
	Member      int
	Key         []byte
	Entry       []byte
	Consistency Consistency
}

// WriteRequest commits a keyed entry through the engine's log.
type WriteRequest struct {
	Member int
	Key    []byte
	Entry  []byte
}

// DeleteRequest removes a keyed entry.
type DeleteRequest struct {
	Member int
	Key    []byte
}

// Status is the engine response status.
type Status int

const (
	StatusOK Status = iota
	StatusError
)

// Response is the engine's reply to a read/write/delete request.
type Response struct {
	Status  Status
	Code    ErrorCode
	Message string
	Result  []byte
}

// Err returns nil for an OK response, otherwise the domain error built from
// the response's error payload.
func (r Response) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	return &Error{Code: r.Code, Message: r.Message}
}

// OKResponse builds an OK response carrying result.
func OKResponse(result []byte) Response {
	return Response{Status: StatusOK, Result: result}
}

// ErrorResponse builds an error response from a domain error.
func ErrorResponse(err error) Response {
	if e, ok := err.(*Error); ok {
		return Response{Status: StatusError, Code: e.Code, Message: e.Message}
	}
	return Response{Status: StatusError, Code: CodeApplication, Message: err.Error()}
}
