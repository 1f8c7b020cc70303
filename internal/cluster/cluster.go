// Package cluster models consensus group membership: the static member set,
// the local member identity, and a managed runtime view opened and closed
// alongside each resource context. Membership discovery is an external
// concern; the view here is fed from configuration.
package cluster

import (
	"sync"

	"github.com/baymaxhuang/atomix/internal/config"
	"github.com/baymaxhuang/atomix/pkg/future"
)

// Member identifies one cluster member.
type Member struct {
	ID      int
	Address string
}

// Config is the resolved cluster membership.
type Config struct {
	LocalID int
	Members []Member
}

// FromConfig converts the file/env cluster section.
func FromConfig(c config.Cluster) Config {
	out := Config{LocalID: c.LocalID}
	for _, m := range c.Members {
		out.Members = append(out.Members, Member{ID: m.ID, Address: m.Address})
	}
	return out
}

// HasMember reports whether id is part of the membership.
func (c Config) HasMember(id int) bool {
	for _, m := range c.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// MemberIDs returns all member ids in declaration order.
func (c Config) MemberIDs() []int {
	ids := make([]int, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// LocalMember returns the local member, if declared.
func (c Config) LocalMember() (Member, bool) {
	for _, m := range c.Members {
		if m.ID == c.LocalID {
			return m, true
		}
	}
	return Member{}, false
}

// View is the managed runtime view of a cluster. Opening and closing are
// asynchronous to match the engine lifecycle they bracket.
type View struct {
	mu   sync.Mutex
	cfg  Config
	open bool
}

// NewView builds a view over the given membership.
func NewView(cfg Config) *View {
	return &View{cfg: cfg}
}

// Config returns the membership this view was built from.
func (v *View) Config() Config {
	return v.cfg
}

// Open activates the view.
func (v *View) Open() *future.Future[struct{}] {
	v.mu.Lock()
	v.open = true
	v.mu.Unlock()
	return future.Completed(struct{}{})
}

// Close deactivates the view.
func (v *View) Close() *future.Future[struct{}] {
	v.mu.Lock()
	v.open = false
	v.mu.Unlock()
	return future.Completed(struct{}{})
}

// IsOpen reports whether the view is active.
func (v *View) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}
