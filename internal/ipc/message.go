package ipc

import (
	"encoding/json"
	"errors"
)

// Message is a channel name plus an optional payload.
type Message struct {
	Channel string
	// Payload is nil when the sender supplied no payload.
	Payload json.RawMessage
}

// HasPayload reports whether the sender supplied a payload, null included.
func (m Message) HasPayload() bool {
	return m.Payload != nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	err := Decode(m.Payload, v)
	var e *Error
	if errors.As(err, &e) {
		e.Channel = m.Channel
	}
	return err
}
