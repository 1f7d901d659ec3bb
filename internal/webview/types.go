package webview

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed is returned by operations on a closed WebView.
	ErrClosed = errors.New("webview: closed")
	// ErrScriptTimeout is returned when a script exceeds Config.ScriptTimeout.
	ErrScriptTimeout = errors.New("webview: script timeout exceeded")
)

// Config defines webview configuration
type Config struct {
	ScriptTimeout time.Duration // Per-script execution limit
	SweepInterval time.Duration // How often stale transfers are swept, 0 disables
	ConsoleSize   int           // Console entries kept, oldest dropped first
	QueueSize     int           // Pending loop tasks before submitters block
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		ScriptTimeout: 5 * time.Second,
		SweepInterval: 30 * time.Second,
		ConsoleSize:   200,
		QueueSize:     64,
	}
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, info, warn, error
	Message string    // Log message
	Time    time.Time // Timestamp
}

// Dispatcher receives the bridge entry points called by injected scripts.
// Every method runs on the event loop.
type Dispatcher interface {
	HandleMessage(ctx context.Context, channel, data string, ok bool) error
	HandleBegin(id, channel string) error
	HandleChunk(id, fragment string) error
	HandleEnd(ctx context.Context, id string) error
	Sweep() int
}
