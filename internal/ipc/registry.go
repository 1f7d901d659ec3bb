package ipc

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Listener receives the messages dispatched on a channel.
//
// Listeners are kept in a set keyed by identity, so implementations must be
// comparable. Pointer types, including *Handler, are.
type Listener interface {
	Receive(ctx context.Context, msg Message) error
}

// Handler adapts a function to Listener. Every call to Listen returns a new
// identity; keep the pointer to remove it later.
type Handler struct {
	fn func(ctx context.Context, msg Message) error
}

// Listen wraps fn as a Listener.
func Listen(fn func(ctx context.Context, msg Message) error) *Handler {
	return &Handler{fn: fn}
}

// Receive calls the wrapped function.
func (h *Handler) Receive(ctx context.Context, msg Message) error {
	return h.fn(ctx, msg)
}

// Hooks attaches and detaches the transport's receive hook for a channel.
// Attach runs when a channel gets its first listener and Detach when it
// loses its last one.
type Hooks interface {
	Attach(channel string) error
	Detach(channel string)
}

// NopHooks is used where the transport needs no per-channel subscription.
type NopHooks struct{}

func (NopHooks) Attach(string) error { return nil }
func (NopHooks) Detach(string)       {}

type entry struct {
	listener Listener
	removed  atomic.Bool
}

// Registry tracks listeners per channel name, in registration order.
type Registry struct {
	mu       sync.Mutex
	channels map[string][]*entry
	hooks    Hooks
	logger   *zap.Logger
	recorder Recorder
}

// NewRegistry creates a registry driving hooks. A nil hooks means NopHooks.
func NewRegistry(hooks Hooks, opts ...Option) *Registry {
	if hooks == nil {
		hooks = NopHooks{}
	}
	o := NewOptions(opts...)
	return &Registry{
		channels: make(map[string][]*entry),
		hooks:    hooks,
		logger:   o.Logger,
		recorder: o.Recorder,
	}
}

// On adds l to channel and returns the channel's listener count. The first
// listener attaches the transport hook before On returns. Adding a listener
// that is already registered does not change the count.
func (r *Registry) On(channel string, l Listener) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.channels[channel]
	if !ok {
		if err := r.hooks.Attach(channel); err != nil {
			return 0, Transport(channel, err)
		}
		r.logger.Debug("channel attached", zap.String("channel", channel))
	}
	for _, e := range entries {
		if e.listener == l {
			return len(entries), nil
		}
	}

	entries = append(entries, &entry{listener: l})
	r.channels[channel] = entries
	return len(entries), nil
}

// Off removes l from channel and returns the remaining count. Removing the
// last listener detaches the transport hook. Unknown channels and listeners
// are a no-op.
func (r *Registry) Off(channel string, l Listener) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.channels[channel]
	if !ok {
		return 0
	}

	// Copy on removal: in-flight dispatches iterate over their own snapshot.
	kept := make([]*entry, 0, len(entries))
	for _, e := range entries {
		if e.listener == l {
			e.removed.Store(true)
			continue
		}
		kept = append(kept, e)
	}

	if len(kept) > 0 {
		r.channels[channel] = kept
		return len(kept)
	}

	delete(r.channels, channel)
	r.hooks.Detach(channel)
	r.logger.Debug("channel detached", zap.String("channel", channel))
	return 0
}

// Count returns the number of listeners on channel.
func (r *Registry) Count(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels[channel])
}

// Channels returns the names with at least one listener, sorted.
func (r *Registry) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch invokes every listener of msg.Channel in registration order and
// returns how many ran. A failing listener is logged and does not stop the
// others. Listeners removed before their turn are skipped.
func (r *Registry) Dispatch(ctx context.Context, msg Message) int {
	r.mu.Lock()
	snapshot := r.channels[msg.Channel]
	r.mu.Unlock()

	if len(snapshot) == 0 {
		r.logger.Debug("no listeners", zap.String("channel", msg.Channel))
		return 0
	}

	invoked := 0
	for i, e := range snapshot {
		if e.removed.Load() {
			continue
		}
		invoked++
		if err := r.invoke(ctx, e.listener, msg); err != nil {
			r.recorder.RecordListenerFailure(msg.Channel)
			r.logger.Error("listener failed",
				zap.String("channel", msg.Channel),
				zap.Int("index", i),
				zap.Error(err))
		}
	}
	return invoked
}

func (r *Registry) invoke(ctx context.Context, l Listener, msg Message) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = ListenerFailure(msg.Channel, fmt.Errorf("panic: %v", p))
		}
	}()
	if err := l.Receive(ctx, msg); err != nil {
		return ListenerFailure(msg.Channel, err)
	}
	return nil
}

// Teardown removes every listener and detaches every hook.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel, entries := range r.channels {
		for _, e := range entries {
			e.removed.Store(true)
		}
		r.hooks.Detach(channel)
		delete(r.channels, channel)
	}
}
