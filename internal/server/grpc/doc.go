// Package grpcserver hosts the session service: one bidirectional stream per
// client session, multiplexing commands, queries and events for every
// resource bound to that session. Behind the stream a Node applies operations
// through a single engine log keyed by resource id, with the manager state
// machine at id 0 resolving names to resources.
//
// Example:
//
//	reg := grpcserver.NewRegistry()
//	kvmap.Register(reg)
//	s, _ := grpcserver.New(config.Default(), reg, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":5678")
package grpcserver
