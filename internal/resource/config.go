package resource

import (
	"fmt"
	"time"

	"github.com/baymaxhuang/atomix/internal/cluster"
	"github.com/baymaxhuang/atomix/internal/engine"
)

// Config declares one resource group.
type Config struct {
	// Name identifies the resource group.
	Name string
	// HeartbeatInterval is the leader heartbeat period for this group.
	HeartbeatInterval time.Duration
	// ElectionTimeout is the follower election timeout for this group.
	ElectionTimeout time.Duration
	// Log configures the group's log store.
	Log engine.LogConfig
	// Replicas optionally restricts the group to an explicit member id set.
	// When empty the group spans the full cluster.
	Replicas []int
}

// resolve derives the engine configuration for cfg against the given cluster
// membership. Every declared replica must be a cluster member.
func (c Config) resolve(clu cluster.Config) (engine.Config, error) {
	out := engine.Config{
		MemberID:          clu.LocalID,
		HeartbeatInterval: c.HeartbeatInterval,
		ElectionTimeout:   c.ElectionTimeout,
		Log:               c.Log,
	}
	if len(c.Replicas) == 0 {
		out.Members = clu.MemberIDs()
		return out, nil
	}
	for _, id := range c.Replicas {
		if !clu.HasMember(id) {
			return engine.Config{}, &ConfigurationError{
				Message: fmt.Sprintf("invalid cluster member: %d", id),
			}
		}
		out.Members = append(out.Members, id)
	}
	return out, nil
}
