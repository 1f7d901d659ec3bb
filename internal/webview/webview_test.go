package webview

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestView(t *testing.T, mutate ...func(*Config)) *WebView {
	t.Helper()
	config := DefaultConfig()
	config.ScriptTimeout = time.Second
	for _, m := range mutate {
		m(&config)
	}
	w, err := New(config, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestRunScript(t *testing.T) {
	w := newTestView(t)
	ctx := context.Background()

	v, err := w.RunScript(ctx, "1 + 2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	v, err = w.RunScript(ctx, "var x; x")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = w.RunScript(ctx, "throw new Error('boom')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunScriptKeepsState(t *testing.T) {
	w := newTestView(t)
	ctx := context.Background()

	_, err := w.RunScript(ctx, "var counter = 1")
	require.NoError(t, err)
	v, err := w.RunScript(ctx, "counter + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestRunScriptTimeout(t *testing.T) {
	w := newTestView(t, func(c *Config) { c.ScriptTimeout = 50 * time.Millisecond })
	ctx := context.Background()

	_, err := w.RunScript(ctx, "while (true) {}")
	assert.ErrorIs(t, err, ErrScriptTimeout)

	v, err := w.RunScript(ctx, "'alive'")
	require.NoError(t, err)
	assert.Equal(t, "alive", v)
}

func TestRunScriptCancelled(t *testing.T) {
	w := newTestView(t, func(c *Config) { c.ScriptTimeout = 0 })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := w.RunScript(ctx, "while (true) {}")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestModuleGlobalsRemoved(t *testing.T) {
	w := newTestView(t)

	v, err := w.RunScript(context.Background(), "typeof require + ',' + typeof process")
	require.NoError(t, err)
	assert.Equal(t, "undefined,undefined", v)
}

func TestConsoleCapture(t *testing.T) {
	w := newTestView(t, func(c *Config) { c.ConsoleSize = 2 })

	_, err := w.RunScript(context.Background(), `
		console.log("first");
		console.warn("second", 2);
		console.error("third");
	`)
	require.NoError(t, err)

	entries := w.Console()
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "second 2", entries[0].Message)
	assert.Equal(t, "third", entries[1].Message)
}

func TestSetTimeout(t *testing.T) {
	w := newTestView(t)
	ctx := context.Background()

	_, err := w.RunScript(ctx, `
		setTimeout(function () { console.log("fired") }, 10);
		var cancelled = setTimeout(function () { console.log("cancelled") }, 10);
		clearTimeout(cancelled);
	`)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for _, e := range w.Console() {
			if e.Message == "fired" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	for _, e := range w.Console() {
		assert.NotEqual(t, "cancelled", e.Message)
	}
}

func TestMessageHandlers(t *testing.T) {
	w := newTestView(t)
	ctx := context.Background()

	type post struct {
		body string
		ok   bool
	}
	posts := make(chan post, 4)
	require.NoError(t, w.RegisterMessageHandler("dropfile", func(body []byte, ok bool) {
		posts <- post{body: string(body), ok: ok}
	}))

	v, err := w.RunScript(ctx, "typeof window.webkit.messageHandlers.dropfile + ',' + typeof webkit.messageHandlers.other")
	require.NoError(t, err)
	assert.Equal(t, "object,undefined", v)

	_, err = w.RunScript(ctx, `webkit.messageHandlers.dropfile.postMessage(JSON.stringify({filename: "b.md"}))`)
	require.NoError(t, err)
	assert.Equal(t, post{body: `{"filename":"b.md"}`, ok: true}, <-posts)

	_, err = w.RunScript(ctx, `webkit.messageHandlers.dropfile.postMessage({filename: "c.md"})`)
	require.NoError(t, err)
	assert.Equal(t, post{body: `{"filename":"c.md"}`, ok: true}, <-posts)

	_, err = w.RunScript(ctx, `webkit.messageHandlers.dropfile.postMessage()`)
	require.NoError(t, err)
	assert.Equal(t, post{ok: false}, <-posts)

	w.UnregisterMessageHandler("dropfile")
	v, err = w.RunScript(ctx, "typeof webkit.messageHandlers.dropfile")
	require.NoError(t, err)
	assert.Equal(t, "undefined", v)
}

func TestPostMessageWithoutHandler(t *testing.T) {
	w := newTestView(t)

	err := w.PostMessage("nowhere", []byte("1"), true)
	assert.ErrorIs(t, err, ipc.ErrNoSuchChannel)
}

func TestDo(t *testing.T) {
	w := newTestView(t)
	ctx := context.Background()

	var seen any
	require.NoError(t, w.Do(ctx, func() {
		seen = w.vm.Get("JSON") != nil
	}))
	assert.Equal(t, true, seen)
}

func TestClose(t *testing.T) {
	w, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, w.RegisterMessageHandler("a", func([]byte, bool) {}))

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.RunScript(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, w.Do(context.Background(), func() {}), ErrClosed)
	assert.ErrorIs(t, w.RegisterMessageHandler("b", func([]byte, bool) {}), ErrClosed)
	assert.ErrorIs(t, w.PostMessage("a", nil, false), ipc.ErrNoSuchChannel)
}

func TestCloseInterruptsRunningScript(t *testing.T) {
	w, err := New(Config{}, nil)
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		_, err := w.RunScript(context.Background(), "while (true) {}")
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, w.Close())

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("script not interrupted")
	}
}

func TestEntryPointsBeforeAttach(t *testing.T) {
	w := newTestView(t)

	_, err := w.RunScript(context.Background(), strings.Join([]string{
		ipc.MessageScript("markdown", []byte(`{}`)),
		ipc.BeginScript("1", "markdown"),
		ipc.ChunkScript("1", "{}"),
		ipc.EndScript("1"),
	}, ";"))
	assert.NoError(t, err)
}
