// Package future implements single-completion result handoff between
// goroutines. It underpins the single-flight open/close coalescing in the
// resource layer: concurrent callers share one future instance and observe
// one outcome.
package future
