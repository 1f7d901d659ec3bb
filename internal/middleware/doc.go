// Package middleware provides the HTTP middleware for the viewer server.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting with idle eviction
//   - Logger: Request logging through zap
//   - Gzip: Response compression around the whole handler
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.POST("/open", middleware.RateLimit(middleware.DefaultRateLimitConfig()), open)
//	srv := &http.Server{Handler: middleware.Gzip(router)}
package middleware
