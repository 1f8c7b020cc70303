// Package client contains Cobra CLI commands for Atomix.
//
// The CLI talks to the session server over gRPC to operate on distributed
// resources from a terminal. It is primarily intended for developers and
// operators.
//
// # Address configuration
//
// The server address is read from the ATOMIX_ADDR environment variable
// (default 127.0.0.1:5678).
//
// Usage
//
//	atomix map put --name demo greeting hello
//	atomix map get --name demo greeting
//	atomix map get --name demo greeting --consistency lease
//	atomix map size --name demo
//	atomix map watch --name demo
//	atomix map watch --name demo --filter 'json.key == "greeting"'
//	atomix map clear --name demo --confirm
//	atomix map delete --name demo --confirm
//
//	atomix counter incr --name hits
//	atomix counter incr --name hits --delta 10
//	atomix counter get --name hits
//	atomix counter set --name hits 0
//
//	atomix lock acquire --name leader
//	atomix lock acquire --name leader --hold 30s
//	atomix lock status --name leader
//	atomix lock delete --name leader --confirm
//
// Notes
//
//   - watch streams put and remove events until interrupted. The --filter
//     expression applies to put events only.
//   - lock acquire holds the lock until the process is interrupted (or --hold
//     elapses), then releases it. A lock held by a session is also released
//     when that session closes its handle.
//   - delete destroys the resource for every client; close semantics (drop
//     this client's handle, keep the data) are what happens when the CLI
//     process exits.
package client
