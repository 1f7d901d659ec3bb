// Package ws pushes displayed documents to browsers over WebSocket.
//
// Every connection first receives a system greeting and, when a document is
// already shown, the current document. Each newly shown document is then
// broadcast to all connections. Slow clients are disconnected rather than
// allowed to block the surface.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection greeting
//   - document: Title, filename, rendered HTML, outline and word count
//   - pong: Reply to ping
//   - error: Unknown request
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, metrics, logger)
//	router.GET("/ws", handler.HandleConnection)
package ws
