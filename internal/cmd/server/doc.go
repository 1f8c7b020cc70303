// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// the session server with the built-in resource types, handling configuration
// layering and shutdown.
//
// Example:
//
//	opts := serverrun.Options{DataDir: "./data", ListenAddr: ":5678"}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
