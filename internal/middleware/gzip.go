package middleware

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
)

// Gzip compresses responses for clients that accept it. WebSocket upgrades
// bypass the compressing writer since it cannot be hijacked.
func Gzip(next http.Handler) http.Handler {
	compressed := gzhttp.GzipHandler(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})
}
