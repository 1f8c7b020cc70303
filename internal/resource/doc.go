// Package resource implements the per-group context that resource
// implementations program against: read/write/delete with consistency
// control over a consensus engine, commit handler registration, and a
// coalesced asynchronous open/close lifecycle.
//
// A context's lifecycle moves CLOSED -> OPENING -> open (healthy or
// recovering) -> CLOSING -> CLOSED. The open and close transitions are
// single-flight: the first caller creates the shared future and the work
// runs on the context's dedicated scheduler goroutine; concurrent callers
// wait on the same future. Failures clear the pending slot and leave the
// open flag untouched so the transition can be retried.
package resource
