// Package main is the entry point for the MarkRead viewer.
//
// MarkRead renders Markdown in a scripted surface driven over a message
// bridge and serves the result as a live page.
//
// Architecture:
//
//	Browser ← HTTP/WebSocket ← server → app (host bridge)
//	                                  → webview (surface bridge → viewer)
//
// Configuration:
//   - Environment variables (PORT, LOG_LEVEL, IPC_CHUNK_SIZE, ...)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./markread README.md
//	./markread -port 9000 -dev notes.md
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
