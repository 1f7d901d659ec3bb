// Package logging builds the application's zap logger.
//
// Production mode writes JSON, development mode writes colored console
// lines with debug output enabled. Components receive the *zap.Logger and
// name themselves with Named, so entries read "markread.host",
// "markread.surface" and so on.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	defer logger.Close()
//	logger.Info("server starting", zap.String("addr", addr))
package logging
