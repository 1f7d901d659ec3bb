package webview

import (
	"errors"
	"strings"
	"time"

	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// setupGlobals configures the global objects scripts can see
func (w *WebView) setupGlobals() error {
	vm := w.vm

	// Remove module system globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return errors.New("JSON.stringify is not callable")
	}
	w.stringify = stringify

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		if err := console.Set(level, w.makeConsoleFunc(level)); err != nil {
			return err
		}
	}

	webkit := vm.NewObject()
	if err := webkit.Set("messageHandlers", vm.NewDynamicObject(&messageHandlers{w: w})); err != nil {
		return err
	}

	globals := map[string]any{
		"window":         vm.GlobalObject(),
		"console":        console,
		"webkit":         webkit,
		"setTimeout":     w.setTimeout,
		"clearTimeout":   w.clearTimeout,
		ipc.EntryMessage: w.handleMessage,
		ipc.EntryBegin:   w.handleBegin,
		ipc.EntryChunk:   w.handleChunk,
		ipc.EntryEnd:     w.handleEnd,
	}
	for name, v := range globals {
		if err := vm.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// makeConsoleFunc creates a console function
func (w *WebView) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		w.appendConsole(LogEntry{Level: level, Message: msg, Time: time.Now()})
		w.logger.Debug("console", zap.String("level", level), zap.String("message", msg))
		return goja.Undefined()
	}
}

func (w *WebView) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(w.vm.NewTypeError("setTimeout: callback is not a function"))
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond

	w.timerSeq++
	id := w.timerSeq
	w.timers[id] = time.AfterFunc(delay, func() {
		_ = w.submit(w.ctx, func() {
			if _, pending := w.timers[id]; !pending {
				return
			}
			delete(w.timers, id)
			if _, err := fn(goja.Undefined()); err != nil {
				w.logger.Warn("timer callback failed", zap.Error(err))
			}
		})
	})
	return w.vm.ToValue(id)
}

func (w *WebView) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t, ok := w.timers[id]; ok {
		t.Stop()
		delete(w.timers, id)
	}
	return goja.Undefined()
}

func (w *WebView) handleMessage(call goja.FunctionCall) goja.Value {
	if w.dispatcher == nil {
		w.logger.Warn("entry point called before attach", zap.String("entry", ipc.EntryMessage))
		return goja.Undefined()
	}
	data, ok := optionalString(call.Argument(1))
	_ = w.dispatcher.HandleMessage(w.ctx, call.Argument(0).String(), data, ok)
	return goja.Undefined()
}

func (w *WebView) handleBegin(call goja.FunctionCall) goja.Value {
	if w.dispatcher != nil {
		_ = w.dispatcher.HandleBegin(call.Argument(0).String(), call.Argument(1).String())
	}
	return goja.Undefined()
}

func (w *WebView) handleChunk(call goja.FunctionCall) goja.Value {
	if w.dispatcher != nil {
		_ = w.dispatcher.HandleChunk(call.Argument(0).String(), call.Argument(1).String())
	}
	return goja.Undefined()
}

func (w *WebView) handleEnd(call goja.FunctionCall) goja.Value {
	if w.dispatcher != nil {
		_ = w.dispatcher.HandleEnd(w.ctx, call.Argument(0).String())
	}
	return goja.Undefined()
}

func optionalString(v goja.Value) (string, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", false
	}
	return v.String(), true
}

// messageHandlers backs window.webkit.messageHandlers. Each registered name
// resolves to an object with a postMessage method; unknown names are
// undefined.
type messageHandlers struct {
	w *WebView
}

func (m *messageHandlers) Get(name string) goja.Value {
	if !m.Has(name) {
		return goja.Undefined()
	}
	vm := m.w.vm
	handler := vm.NewObject()
	_ = handler.Set("postMessage", func(call goja.FunctionCall) goja.Value {
		body, ok := m.w.encodePost(call.Argument(0))
		if err := m.w.PostMessage(name, body, ok); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	return handler
}

func (m *messageHandlers) Set(string, goja.Value) bool { return false }
func (m *messageHandlers) Delete(string) bool          { return false }

func (m *messageHandlers) Has(name string) bool {
	m.w.handlersMu.RLock()
	defer m.w.handlersMu.RUnlock()
	_, ok := m.w.handlers[name]
	return ok
}

func (m *messageHandlers) Keys() []string {
	m.w.handlersMu.RLock()
	defer m.w.handlersMu.RUnlock()
	keys := make([]string, 0, len(m.w.handlers))
	for name := range m.w.handlers {
		keys = append(keys, name)
	}
	return keys
}

// encodePost turns a postMessage argument into the body the host receives.
// Strings pass through; other values are serialized with JSON.stringify.
func (w *WebView) encodePost(v goja.Value) ([]byte, bool) {
	if v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	if s, ok := v.Export().(string); ok {
		return []byte(s), true
	}
	out, err := w.stringify(goja.Undefined(), v)
	if err != nil || goja.IsUndefined(out) {
		return nil, false
	}
	return []byte(out.String()), true
}
