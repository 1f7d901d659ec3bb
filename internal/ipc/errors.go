package ipc

import (
	"strconv"
	"strings"
)

// Kind categorizes a bridge failure.
type Kind string

const (
	KindMalformedPayload  Kind = "malformed_payload"  // decode failure, message dropped
	KindDuplicateTransfer Kind = "duplicate_transfer" // begin for an id already in flight
	KindUnknownTransfer   Kind = "unknown_transfer"   // chunk/end for an id never begun
	KindTransport         Kind = "transport_error"    // underlying primitive failed
	KindPayloadTooLarge   Kind = "payload_too_large"  // post exceeds primitive limit
	KindNoSuchChannel     Kind = "no_such_channel"    // post to an unregistered handler
	KindListenerFailure   Kind = "listener_failure"   // listener returned an error or panicked
	KindClosed            Kind = "closed"             // bridge already torn down
	KindStaleTransfer     Kind = "stale_transfer"     // open transfer discarded by a sweep
)

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrMalformedPayload  = &Error{Kind: KindMalformedPayload}
	ErrDuplicateTransfer = &Error{Kind: KindDuplicateTransfer}
	ErrUnknownTransfer   = &Error{Kind: KindUnknownTransfer}
	ErrTransport         = &Error{Kind: KindTransport}
	ErrPayloadTooLarge   = &Error{Kind: KindPayloadTooLarge}
	ErrNoSuchChannel     = &Error{Kind: KindNoSuchChannel}
	ErrListenerFailure   = &Error{Kind: KindListenerFailure}
	ErrClosed            = &Error{Kind: KindClosed}
)

// Error is the structured error returned or logged by the bridge.
type Error struct {
	Cause      error
	Kind       Kind
	Channel    string
	TransferID string
	Detail     string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("ipc: ")
	b.WriteString(string(e.Kind))

	if e.Channel != "" {
		b.WriteString(" on channel ")
		b.WriteString(e.Channel)
	}
	if e.TransferID != "" {
		b.WriteString(" (transfer ")
		b.WriteString(e.TransferID)
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// MalformedPayload reports a payload that could not be decoded.
func MalformedPayload(channel string, cause error) *Error {
	return &Error{Kind: KindMalformedPayload, Channel: channel, Cause: cause}
}

// DuplicateTransfer reports a begin signal for a transfer that is already open.
func DuplicateTransfer(id, channel string) *Error {
	return &Error{Kind: KindDuplicateTransfer, TransferID: id, Channel: channel}
}

// UnknownTransfer reports a fragment or end signal for a transfer that is not open.
func UnknownTransfer(id string) *Error {
	return &Error{Kind: KindUnknownTransfer, TransferID: id}
}

// Transport wraps a failure of the underlying primitive.
func Transport(channel string, cause error) *Error {
	return &Error{Kind: KindTransport, Channel: channel, Cause: cause}
}

// PayloadTooLarge reports an encoded payload exceeding limit bytes.
func PayloadTooLarge(channel string, size, limit int) *Error {
	return &Error{
		Kind:    KindPayloadTooLarge,
		Channel: channel,
		Detail:  strconv.Itoa(size) + " bytes exceeds limit of " + strconv.Itoa(limit),
	}
}

// NoSuchChannel reports a post to a name with no registered handler.
func NoSuchChannel(channel string) *Error {
	return &Error{Kind: KindNoSuchChannel, Channel: channel}
}

// ListenerFailure wraps an error or recovered panic from one listener.
func ListenerFailure(channel string, cause error) *Error {
	return &Error{Kind: KindListenerFailure, Channel: channel, Cause: cause}
}

// Closed reports use of a bridge after Close.
func Closed(channel string) *Error {
	return &Error{Kind: KindClosed, Channel: channel}
}
