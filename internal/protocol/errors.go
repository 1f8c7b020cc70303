package protocol

import "fmt"

// ErrorCode classifies non-OK responses.
type ErrorCode int

const (
	CodeApplication ErrorCode = iota + 1
	CodeUnknownResource
	CodeUnknownSession
	CodeUnknownOperation
	CodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case CodeApplication:
		return "application"
	case CodeUnknownResource:
		return "unknown resource"
	case CodeUnknownSession:
		return "unknown session"
	case CodeUnknownOperation:
		return "unknown operation"
	case CodeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a domain error carried in a non-OK response.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("protocol: %s error", e.Code)
	}
	return fmt.Sprintf("protocol: %s: %s", e.Code, e.Message)
}

// NewError builds a domain error.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
