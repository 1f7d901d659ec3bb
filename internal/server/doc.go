// Package server exposes the viewer window over HTTP.
//
// Routes:
//   - GET  /             rendered page that follows /ws for live updates
//   - GET  /document     displayed document as JSON
//   - GET  /ws           live document push (see package ws)
//   - POST /open         {"path": ...} or {"url": ...}
//   - POST /drop         multipart form with a "file" field
//   - GET  /files?dir=   Markdown files under a directory
//   - POST /reload       recreate the surface, re-send the document
//   - GET  /console      surface console output
//   - GET  /health, /metrics, /metrics/json
//
// Middleware: recovery, zap request logging, Prometheus metrics, CORS,
// per-IP rate limiting on /open and /drop, and gzip around everything.
//
// Example Usage:
//
//	srv := server.NewServer(cfg, manager, metrics, logger)
//	go srv.Run()
//	defer srv.Shutdown(ctx)
package server
