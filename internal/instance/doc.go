// Package instance multiplexes resource instances over one shared session.
//
// A Factory resolves resource names to ids through the manager state machine
// and hands out one Client per live resource id. Each Client tags outgoing
// commands and queries with its resource id, filters inbound events down to
// its resource, and coordinates the two-step delete: the resource's own
// delete command followed by the manager-level removal. Closing an instance
// releases its server-side state without touching the shared session.
package instance
