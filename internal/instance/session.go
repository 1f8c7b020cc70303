package instance

import "github.com/baymaxhuang/atomix/internal/client"

// Session scopes a shared session to one resource. It addresses traffic, it
// is not a new physical connection.
type Session struct {
	resource uint64
	shared   client.Session
}

// ID returns the underlying shared session id.
func (s *Session) ID() uint64 { return s.shared.ID() }

// Resource returns the resource id this session view is scoped to.
func (s *Session) Resource() uint64 { return s.resource }
