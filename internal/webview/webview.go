package webview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/dop251/goja"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebView is a rendering context driven by a single event loop. All script
// execution, entry point dispatch, and timers run on that loop; other
// goroutines reach it through RunScript and Do.
type WebView struct {
	id     string
	config Config
	logger *zap.Logger

	// Owned by the loop
	vm         *goja.Runtime
	stringify  goja.Callable
	dispatcher Dispatcher
	timers     map[int64]*time.Timer
	timerSeq   int64

	tasks chan func()
	ctx   context.Context
	stop  context.CancelFunc
	done  chan struct{}
	once  sync.Once

	handlersMu sync.RWMutex
	handlers   map[string]func(body []byte, ok bool)

	consoleMu sync.Mutex
	console   []LogEntry
}

// New creates a webview and starts its event loop.
func New(config Config, logger *zap.Logger) (*WebView, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}

	id := uuid.New().String()
	ctx, stop := context.WithCancel(context.Background())
	w := &WebView{
		id:       id,
		config:   config,
		logger:   logger.With(zap.String("webview", id)),
		vm:       goja.New(),
		timers:   make(map[int64]*time.Timer),
		tasks:    make(chan func(), config.QueueSize),
		ctx:      ctx,
		stop:     stop,
		done:     make(chan struct{}),
		handlers: make(map[string]func([]byte, bool)),
	}

	if err := w.setupGlobals(); err != nil {
		stop()
		return nil, fmt.Errorf("failed to set up globals: %w", err)
	}

	go w.loop()
	w.logger.Debug("webview started")
	return w, nil
}

// ID identifies this webview instance.
func (w *WebView) ID() string {
	return w.id
}

func (w *WebView) loop() {
	defer close(w.done)

	var sweep <-chan time.Time
	if w.config.SweepInterval > 0 {
		t := time.NewTicker(w.config.SweepInterval)
		defer t.Stop()
		sweep = t.C
	}

	for {
		select {
		case <-w.ctx.Done():
			for _, t := range w.timers {
				t.Stop()
			}
			return
		case task := <-w.tasks:
			task()
		case <-sweep:
			if w.dispatcher != nil {
				w.dispatcher.Sweep()
			}
		}
	}
}

// submit queues fn on the loop without waiting for it to run.
func (w *WebView) submit(ctx context.Context, fn func()) error {
	select {
	case <-w.ctx.Done():
		return ErrClosed
	default:
	}

	select {
	case w.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ctx.Done():
		return ErrClosed
	}
}

// Do runs fn on the loop and waits for it to return. It must not be called
// from the loop itself.
func (w *WebView) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := w.submit(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-w.done:
		return ErrClosed
	}
}

// Attach installs the dispatcher behind the handleIPCMessage entry points.
func (w *WebView) Attach(ctx context.Context, d Dispatcher) error {
	return w.Do(ctx, func() { w.dispatcher = d })
}

type scriptResult struct {
	value any
	err   error
}

// RunScript executes script on the loop and returns its exported result.
// The script is interrupted when it exceeds the configured timeout or ctx is
// cancelled.
func (w *WebView) RunScript(ctx context.Context, script string) (any, error) {
	res := make(chan scriptResult, 1)
	if err := w.submit(ctx, func() {
		v, err := w.execute(ctx, script)
		res <- scriptResult{value: v, err: err}
	}); err != nil {
		return nil, err
	}

	select {
	case r := <-res:
		return r.value, r.err
	case <-w.done:
		return nil, ErrClosed
	}
}

// execute runs on the loop.
func (w *WebView) execute(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var timeout <-chan time.Time
	if w.config.ScriptTimeout > 0 {
		timer := time.NewTimer(w.config.ScriptTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	finished := make(chan struct{})
	watcher := make(chan struct{})
	go func() {
		defer close(watcher)
		select {
		case <-timeout:
			w.vm.Interrupt(ErrScriptTimeout)
		case <-ctx.Done():
			w.vm.Interrupt(ctx.Err())
		case <-w.ctx.Done():
			w.vm.Interrupt(ErrClosed)
		case <-finished:
		}
	}()

	val, err := w.vm.RunString(script)

	close(finished)
	<-watcher
	w.vm.ClearInterrupt()

	if err != nil {
		var ie *goja.InterruptedError
		if errors.As(err, &ie) {
			if cause, ok := ie.Value().(error); ok {
				return nil, cause
			}
		}
		return nil, fmt.Errorf("script failed: %w", err)
	}
	return exportValue(val), nil
}

func exportValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// RegisterMessageHandler exposes name as window.webkit.messageHandlers[name].
func (w *WebView) RegisterMessageHandler(name string, handler func(body []byte, ok bool)) error {
	select {
	case <-w.ctx.Done():
		return ErrClosed
	default:
	}

	w.handlersMu.Lock()
	w.handlers[name] = handler
	w.handlersMu.Unlock()

	w.logger.Debug("message handler registered", zap.String("name", name))
	return nil
}

// UnregisterMessageHandler removes the handler for name.
func (w *WebView) UnregisterMessageHandler(name string) {
	w.handlersMu.Lock()
	delete(w.handlers, name)
	w.handlersMu.Unlock()

	w.logger.Debug("message handler unregistered", zap.String("name", name))
}

// PostMessage delivers body to the handler registered for name. ok is false
// for a post without a payload.
func (w *WebView) PostMessage(name string, body []byte, ok bool) error {
	w.handlersMu.RLock()
	handler := w.handlers[name]
	w.handlersMu.RUnlock()

	if handler == nil {
		return ipc.NoSuchChannel(name)
	}
	handler(body, ok)
	return nil
}

// Console returns the captured console output.
func (w *WebView) Console() []LogEntry {
	w.consoleMu.Lock()
	defer w.consoleMu.Unlock()
	return append([]LogEntry(nil), w.console...)
}

func (w *WebView) appendConsole(entry LogEntry) {
	w.consoleMu.Lock()
	defer w.consoleMu.Unlock()

	w.console = append(w.console, entry)
	if limit := w.config.ConsoleSize; limit > 0 && len(w.console) > limit {
		w.console = append(w.console[:0], w.console[len(w.console)-limit:]...)
	}
}

// Close stops the loop, interrupting any running script. Pending tasks are
// discarded.
func (w *WebView) Close() error {
	w.once.Do(func() {
		w.stop()
		<-w.done

		w.handlersMu.Lock()
		clear(w.handlers)
		w.handlersMu.Unlock()

		w.logger.Debug("webview closed")
	})
	return nil
}
