package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/GriffinCanCode/markread/internal/ipc/host"
	"github.com/GriffinCanCode/markread/internal/ipc/surface"
	"github.com/GriffinCanCode/markread/internal/loader"
	"github.com/GriffinCanCode/markread/internal/render"
	"github.com/GriffinCanCode/markread/internal/viewer"
	"github.com/GriffinCanCode/markread/internal/webview"
	"go.uber.org/zap"
)

var (
	// ErrNotLoaded is returned when a file could not be read as text.
	ErrNotLoaded = errors.New("app: file not loaded")
	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("app: closed")
)

// Options configures a Manager.
type Options struct {
	WebView  webview.Config
	Loader   loader.Config
	Bridge   []ipc.Option
	Logger   *zap.Logger
	Recorder ipc.Recorder
}

// Manager owns the viewer window: one surface (webview, surface bridge,
// viewer) and the host bridge that talks to it.
type Manager struct {
	opts     Options
	logger   *zap.Logger
	loader   *loader.Loader
	renderer *render.Renderer
	host     *host.Bridge
	dropped  *ipc.Handler

	mu      sync.RWMutex
	view    *webview.WebView
	surface *surface.Bridge
	viewer  *viewer.Viewer
	unsub   func()
	title   string
	closed  bool

	subsMu sync.Mutex
	subs   map[int]func(viewer.State)
	subSeq int
}

// NewManager creates the host bridge and the first surface.
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bridgeOpts := append([]ipc.Option{ipc.WithLogger(logger)}, opts.Bridge...)
	if opts.Recorder != nil {
		bridgeOpts = append(bridgeOpts, ipc.WithRecorder(opts.Recorder))
	}
	opts.Bridge = bridgeOpts

	m := &Manager{
		opts:     opts,
		logger:   logger.Named("app"),
		loader:   loader.New(opts.Loader, logger),
		renderer: render.New(logger),
		title:    viewer.DefaultTitle,
		subs:     make(map[int]func(viewer.State)),
	}
	m.host = host.New(m.currentSurface, opts.Bridge...)
	m.dropped = ipc.Listen(m.onDropFile)

	if err := m.createSurface(ctx); err != nil {
		_ = m.host.Close()
		return nil, err
	}
	if _, err := m.host.On(viewer.ChannelDropFile, m.dropped); err != nil {
		m.destroySurface()
		_ = m.host.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", viewer.ChannelDropFile, err)
	}
	return m, nil
}

func (m *Manager) currentSurface() host.Surface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.view == nil {
		return nil
	}
	return m.view
}

// createSurface builds a fresh webview with its bridge and viewer. The
// viewer starts listening on the loop before any host script can run.
func (m *Manager) createSurface(ctx context.Context) error {
	view, err := webview.New(m.opts.WebView, m.logger)
	if err != nil {
		return fmt.Errorf("failed to create webview: %w", err)
	}
	sb := surface.New(view, m.opts.Bridge...)
	v := viewer.New(sb, m.renderer, m.logger)

	if err := view.Attach(ctx, sb); err != nil {
		_ = view.Close()
		return fmt.Errorf("failed to attach surface bridge: %w", err)
	}
	var startErr error
	if err := view.Do(ctx, func() { startErr = v.Start() }); err != nil {
		_ = view.Close()
		return err
	}
	if startErr != nil {
		_ = view.Close()
		return startErr
	}

	m.mu.Lock()
	m.view, m.surface, m.viewer = view, sb, v
	m.unsub = v.Subscribe(m.publish)
	m.mu.Unlock()

	m.logger.Info("surface ready", zap.String("webview_id", view.ID()))
	return nil
}

func (m *Manager) destroySurface() {
	m.mu.Lock()
	view, sb, v, unsub := m.view, m.surface, m.viewer, m.unsub
	m.view, m.surface, m.viewer, m.unsub = nil, nil, nil, nil
	m.mu.Unlock()

	if view == nil {
		return
	}
	if unsub != nil {
		unsub()
	}
	v.Stop()
	sb.Teardown()
	if err := view.Close(); err != nil {
		m.logger.Warn("failed to close webview", zap.Error(err))
	}
}

func (m *Manager) onDropFile(ctx context.Context, msg ipc.Message) error {
	event, err := viewer.Parse(msg)
	if err != nil {
		return err
	}
	drop, ok := event.(viewer.DropFile)
	if !ok {
		return fmt.Errorf("unexpected %T on %s", event, msg.Channel)
	}
	m.logger.Info("file dropped", zap.String("filename", drop.Filename))
	m.setTitle(WindowTitle(drop.Filename))
	return nil
}

// OpenFile loads a local file and shows it.
func (m *Manager) OpenFile(ctx context.Context, path string) error {
	source, ok := m.loader.LoadText(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, path)
	}
	return m.Show(ctx, source, loader.BaseName(path))
}

// OpenURL fetches a remote document and shows it.
func (m *Manager) OpenURL(ctx context.Context, rawURL string) error {
	source, err := m.loader.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	return m.Show(ctx, source, loader.BaseName(rawURL))
}

// Show sends source to the surface and updates the window title.
func (m *Manager) Show(ctx context.Context, source, filename string) error {
	if m.isClosed() {
		return ErrClosed
	}
	payload := viewer.Markdown{Source: source, Filename: filename}
	if err := m.host.Send(ctx, viewer.ChannelMarkdown, payload); err != nil {
		return fmt.Errorf("failed to send document: %w", err)
	}
	m.setTitle(WindowTitle(filename))
	return nil
}

// Drop simulates a file dropped onto the surface. The surface renders it
// and reports the filename back over the dropfile channel.
func (m *Manager) Drop(ctx context.Context, filename, source string) error {
	m.mu.RLock()
	view, v := m.view, m.viewer
	m.mu.RUnlock()
	if view == nil {
		return ErrClosed
	}

	var dropErr error
	if err := view.Do(ctx, func() { dropErr = v.Drop(filename, source) }); err != nil {
		return err
	}
	return dropErr
}

// List returns the documents under dir.
func (m *Manager) List(ctx context.Context, dir string) ([]string, error) {
	return m.loader.List(ctx, dir)
}

// Reload destroys the surface and builds a new one, then sends the
// previously displayed document again.
func (m *Manager) Reload(ctx context.Context) error {
	if m.isClosed() {
		return ErrClosed
	}
	previous := m.State()

	m.host.Teardown()
	m.destroySurface()

	if err := m.createSurface(ctx); err != nil {
		return err
	}
	if _, err := m.host.On(viewer.ChannelDropFile, m.dropped); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", viewer.ChannelDropFile, err)
	}

	m.logger.Info("surface reloaded", zap.Uint64("previous_version", previous.Version))
	if previous.Empty() {
		return nil
	}
	return m.Show(ctx, previous.Source, previous.Filename)
}

// State returns the document displayed by the current surface.
func (m *Manager) State() viewer.State {
	m.mu.RLock()
	v := m.viewer
	m.mu.RUnlock()
	if v == nil {
		return viewer.State{}
	}
	return v.State()
}

// Title returns the window title.
func (m *Manager) Title() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.title
}

func (m *Manager) setTitle(title string) {
	m.mu.Lock()
	m.title = title
	m.mu.Unlock()
}

// Console returns the current surface's captured console output.
func (m *Manager) Console() []webview.LogEntry {
	m.mu.RLock()
	view := m.view
	m.mu.RUnlock()
	if view == nil {
		return nil
	}
	return view.Console()
}

// Subscribe calls fn for every document shown, across reloads, until the
// returned function is called. fn must not block.
func (m *Manager) Subscribe(fn func(viewer.State)) func() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	m.subSeq++
	id := m.subSeq
	m.subs[id] = fn
	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) publish(state viewer.State) {
	m.subsMu.Lock()
	subs := make([]func(viewer.State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Close shuts down the host bridge and destroys the surface.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	start := time.Now()
	err := m.host.Close()
	m.destroySurface()
	m.logger.Info("closed", zap.Duration("elapsed", time.Since(start)))
	return err
}

// WindowTitle formats the title for a displayed file.
func WindowTitle(filename string) string {
	if filename == "" {
		return viewer.DefaultTitle
	}
	return filename + " - " + viewer.DefaultTitle
}
