// Package log provides the structured logging facade used by Atomix
// components.
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog with text or JSON handlers, so output interoperates
// with the slog ecosystem while all code stays against this facade.
//
// Quick start
//
//	l := log.NewLogger(log.Options{Level: log.InfoLevel, Format: "text"})
//	l = l.With(log.Component("resource"), log.Str("name", "orders"))
//	l.Info("context opened", log.Int("members", 3))
package log
