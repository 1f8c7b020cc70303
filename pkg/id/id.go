// Package id generates compact, time-ordered 64-bit identifiers used for
// client sessions and listener registrations.
package id

import (
	"sync"
	"time"
)

// seqBits is the number of low bits reserved for the per-millisecond sequence.
const seqBits = 20

// ID is a 64-bit, time-ordered identifier: the high 44 bits carry a
// millisecond timestamp, the low 20 bits a per-millisecond sequence. IDs from
// one Generator are strictly increasing.
type ID uint64

// Millis returns the timestamp component in milliseconds since the Unix epoch.
func (i ID) Millis() int64 { return int64(i >> seqBits) }

// Generator produces monotonically increasing IDs per process.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
	seq    uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. If the clock goes backwards it keeps using lastMs and
// increments the sequence. If the sequence overflows within one millisecond it
// waits for the next one.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		if g.seq == 1<<seqBits-1 {
			for {
				ms = NowMs()
				if ms > g.lastMs {
					break
				}
				time.Sleep(time.Millisecond / 8)
			}
			g.seq = 0
		} else {
			g.seq++
		}
	} else {
		g.seq = 0
	}

	g.lastMs = ms
	return ID(uint64(ms)<<seqBits | g.seq)
}
