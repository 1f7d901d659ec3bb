package ipc

import (
	"time"

	"go.uber.org/zap"
)

// Recorder receives bridge traffic counts. monitoring.Metrics implements it.
type Recorder interface {
	RecordSend(direction, mode string, bytes int)
	RecordFragment(direction string)
	RecordReceive(direction, mode string)
	RecordDrop(direction string, kind Kind)
	RecordListenerFailure(channel string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordSend(string, string, int) {}
func (NopRecorder) RecordFragment(string)          {}
func (NopRecorder) RecordReceive(string, string)   {}
func (NopRecorder) RecordDrop(string, Kind)        {}
func (NopRecorder) RecordListenerFailure(string)   {}

// DefaultMaxPostSize bounds a single surface post.
const DefaultMaxPostSize = 1 << 20

// DefaultTransferTTL bounds how long an unfinished transfer is buffered.
const DefaultTransferTTL = 2 * time.Minute

// Options is the configuration shared by both bridge sides and the registry.
type Options struct {
	Logger      *zap.Logger
	Recorder    Recorder
	ChunkSize   int
	TransferTTL time.Duration
	MaxPostSize int
}

// Option configures Options.
type Option func(*Options)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithRecorder sets the metrics recorder. A nil recorder is ignored.
func WithRecorder(r Recorder) Option {
	return func(o *Options) {
		if r != nil {
			o.Recorder = r
		}
	}
}

// WithChunkSize sets the inline threshold and fragment size in bytes.
func WithChunkSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ChunkSize = n
		}
	}
}

// WithTransferTTL sets the staleness bound for open transfers.
func WithTransferTTL(d time.Duration) Option {
	return func(o *Options) { o.TransferTTL = d }
}

// WithMaxPostSize sets the largest encoded payload the surface may post.
func WithMaxPostSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxPostSize = n
		}
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{
		Logger:      zap.NewNop(),
		Recorder:    NopRecorder{},
		ChunkSize:   DefaultChunkSize,
		TransferTTL: DefaultTransferTTL,
		MaxPostSize: DefaultMaxPostSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
