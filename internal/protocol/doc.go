// Package protocol defines the messages exchanged between resource clients,
// the shared session transport, and the consensus engine: commands and
// queries with their resource-tagged envelopes, engine read/write/delete
// requests, session stream frames, manager control operations, and the
// error taxonomy shared by all of them.
package protocol
