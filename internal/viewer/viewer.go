package viewer

import (
	"context"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/GriffinCanCode/markread/internal/render"
	"go.uber.org/zap"
)

// DefaultTitle is shown when a document has no better title.
const DefaultTitle = "MarkRead"

// Bridge is the surface side of the message bridge.
type Bridge interface {
	On(channel string, l ipc.Listener) (int, error)
	Off(channel string, l ipc.Listener) int
	Send(channel string, payload any) error
}

// State is the displayed document.
type State struct {
	Version  uint64           `json:"version"`
	Filename string           `json:"filename,omitempty"`
	Title    string           `json:"title"`
	Source   string           `json:"-"`
	HTML     string           `json:"html"`
	Outline  []render.Heading `json:"outline,omitempty"`
	Words    int              `json:"words"`
}

// Empty reports whether no document has been shown yet.
func (s State) Empty() bool {
	return s.Version == 0
}

// Viewer renders documents received on the markdown channel and reports
// dropped files back to the host.
type Viewer struct {
	bridge   Bridge
	renderer *render.Renderer
	logger   *zap.Logger
	listener *ipc.Handler

	mu    sync.RWMutex
	state State

	subsMu sync.Mutex
	subs   map[int]func(State)
	subSeq int
}

// New creates a viewer. Call Start to begin receiving documents.
func New(bridge Bridge, renderer *render.Renderer, logger *zap.Logger) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Viewer{
		bridge:   bridge,
		renderer: renderer,
		logger:   logger.Named("viewer"),
		subs:     make(map[int]func(State)),
	}
	v.listener = ipc.Listen(v.receive)
	return v
}

// Start registers the markdown listener.
func (v *Viewer) Start() error {
	if _, err := v.bridge.On(ChannelMarkdown, v.listener); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ChannelMarkdown, err)
	}
	return nil
}

// Stop removes the markdown listener.
func (v *Viewer) Stop() {
	v.bridge.Off(ChannelMarkdown, v.listener)
}

func (v *Viewer) receive(ctx context.Context, msg ipc.Message) error {
	event, err := Parse(msg)
	if err != nil {
		return err
	}
	md, ok := event.(Markdown)
	if !ok {
		return fmt.Errorf("unexpected %T on %s", event, msg.Channel)
	}
	_, err = v.Show(md.Source, md.Filename)
	return err
}

// Show renders source and makes it the displayed document.
func (v *Viewer) Show(source, filename string) (State, error) {
	doc, err := v.renderer.Render(source)
	if err != nil {
		return State{}, fmt.Errorf("failed to render %q: %w", filename, err)
	}

	v.mu.Lock()
	v.state = State{
		Version:  v.state.Version + 1,
		Filename: filename,
		Title:    ResolveTitle(filename, doc),
		Source:   source,
		HTML:     doc.HTML,
		Outline:  doc.Outline,
		Words:    doc.Words,
	}
	state := v.state
	v.mu.Unlock()

	v.logger.Debug("document shown",
		zap.String("title", state.Title),
		zap.Uint64("version", state.Version),
		zap.Int("bytes", len(source)))
	v.publish(state)
	return state, nil
}

// Drop displays a dropped file locally, then tells the host its name.
func (v *Viewer) Drop(filename, source string) error {
	if _, err := v.Show(source, filename); err != nil {
		return err
	}
	return v.bridge.Send(ChannelDropFile, DropFile{Filename: filename})
}

// State returns the displayed document.
func (v *Viewer) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Subscribe calls fn with every newly shown document until the returned
// cancel function is called. fn must not block.
func (v *Viewer) Subscribe(fn func(State)) func() {
	v.subsMu.Lock()
	defer v.subsMu.Unlock()

	v.subSeq++
	id := v.subSeq
	v.subs[id] = fn
	return func() {
		v.subsMu.Lock()
		defer v.subsMu.Unlock()
		delete(v.subs, id)
	}
}

func (v *Viewer) publish(state State) {
	v.subsMu.Lock()
	subs := make([]func(State), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.subsMu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// ResolveTitle picks the document title: the filename when known, then the
// front matter title, then the first heading.
func ResolveTitle(filename string, doc *render.Document) string {
	if filename != "" {
		return filename
	}
	if doc != nil {
		if title := doc.FrontMatter.Title(); title != "" {
			return title
		}
		if doc.FirstHeading != "" {
			return doc.FirstHeading
		}
	}
	return DefaultTitle
}
