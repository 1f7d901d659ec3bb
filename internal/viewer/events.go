package viewer

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/markread/internal/ipc"
)

// Channel names
const (
	ChannelMarkdown = "markdown" // host -> surface
	ChannelDropFile = "dropfile" // surface -> host
)

// ErrUnknownEvent is returned by Parse for channels outside the known set.
var ErrUnknownEvent = errors.New("unknown event channel")

// Event is one of Markdown or DropFile.
type Event interface {
	Channel() string
	event()
}

// Markdown carries a document to display.
type Markdown struct {
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
}

// DropFile reports a file dropped onto the surface.
type DropFile struct {
	Filename string `json:"filename"`
}

func (Markdown) Channel() string { return ChannelMarkdown }
func (DropFile) Channel() string { return ChannelDropFile }

func (Markdown) event() {}
func (DropFile) event() {}

// Parse decodes msg into the event type of its channel.
func Parse(msg ipc.Message) (Event, error) {
	if !msg.HasPayload() {
		return nil, ipc.MalformedPayload(msg.Channel, errors.New("missing payload"))
	}

	switch msg.Channel {
	case ChannelMarkdown:
		var e Markdown
		if err := msg.Decode(&e); err != nil {
			return nil, err
		}
		return e, nil
	case ChannelDropFile:
		var e DropFile
		if err := msg.Decode(&e); err != nil {
			return nil, err
		}
		if e.Filename == "" {
			return nil, ipc.MalformedPayload(msg.Channel, errors.New("missing filename"))
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Channel)
	}
}
