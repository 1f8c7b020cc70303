// Package engine defines the consensus engine consumed by the resource
// layer. The engine owns replication, leader election and log persistence;
// resource contexts only build requests against it and interpret responses.
package engine

import (
	"time"

	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/future"
)

// CommitHandler is invoked when an entry is applied to the state machine.
// For deletes the entry is nil. The returned payload becomes the operation
// result.
type CommitHandler func(key, entry []byte) ([]byte, error)

// LogConfig configures the engine's log store.
type LogConfig struct {
	// Dir is the directory holding log segments.
	Dir string
	// SyncWrites forces an fsync on every appended entry.
	SyncWrites bool
}

// Config is the derived per-group engine configuration. It is produced by
// resolving a resource configuration against cluster membership.
type Config struct {
	MemberID          int
	HeartbeatInterval time.Duration
	ElectionTimeout   time.Duration
	Log               LogConfig
	Members           []int
}

// Engine is the replication engine behind one resource group.
type Engine interface {
	// Open starts the engine. Recovery (log replay) happens inside Open;
	// IsRecovering reports true while it runs.
	Open() *future.Future[struct{}]
	// Close stops the engine and releases its storage.
	Close() *future.Future[struct{}]

	Read(req protocol.ReadRequest) *future.Future[protocol.Response]
	Write(req protocol.WriteRequest) *future.Future[protocol.Response]
	Delete(req protocol.DeleteRequest) *future.Future[protocol.Response]

	// CommitHandler registers the apply callback, replacing any prior one.
	CommitHandler(h CommitHandler)
	// IsRecovering reports whether the engine is replaying its log.
	IsRecovering() bool
}
