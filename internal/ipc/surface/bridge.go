package surface

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/markread/internal/ipc"
	"go.uber.org/zap"
)

// Poster is the posting primitive towards the host. ok is false when the
// post carries no payload. Posting to a name the host never registered must
// fail with an error matching ipc.ErrNoSuchChannel.
type Poster interface {
	PostMessage(name string, body []byte, ok bool) error
}

// Bridge is the surface side of the message bridge.
//
// The Handle* entry points and Sweep must be called from the surface's event
// loop. On, Off and Send may be called from anywhere.
type Bridge struct {
	poster    Poster
	registry  *ipc.Registry
	transfers *ipc.Reassembler
	opts      ipc.Options
	logger    *zap.Logger
	recorder  ipc.Recorder
	now       func() time.Time
}

// New creates a surface bridge posting through poster.
func New(poster Poster, opts ...ipc.Option) *Bridge {
	o := ipc.NewOptions(opts...)
	logger := o.Logger.Named("surface")

	return &Bridge{
		poster:    poster,
		registry:  ipc.NewRegistry(nil, ipc.WithLogger(logger), ipc.WithRecorder(o.Recorder)),
		transfers: ipc.NewReassembler(o.TransferTTL),
		opts:      o,
		logger:    logger,
		recorder:  o.Recorder,
		now:       time.Now,
	}
}

// On registers l for messages the host sends on channel.
func (b *Bridge) On(channel string, l ipc.Listener) (int, error) {
	return b.registry.On(channel, l)
}

// Off removes l from channel and returns the remaining listener count.
func (b *Bridge) Off(channel string, l ipc.Listener) int {
	return b.registry.Off(channel, l)
}

// Listeners returns the number of listeners on channel.
func (b *Bridge) Listeners(channel string) int {
	return b.registry.Count(channel)
}

// Send posts payload to the host on channel. Posts are never chunked: an
// encoding longer than the maximum post size fails with ErrPayloadTooLarge.
func (b *Bridge) Send(channel string, payload any) error {
	data, err := ipc.Encode(payload)
	if err != nil {
		return withChannel(err, channel)
	}
	if len(data) > b.opts.MaxPostSize {
		return ipc.PayloadTooLarge(channel, len(data), b.opts.MaxPostSize)
	}

	mode := ipc.ModeInline
	if data == nil {
		mode = ipc.ModeEmpty
	}

	if err := b.poster.PostMessage(channel, data, data != nil); err != nil {
		if errors.Is(err, ipc.ErrNoSuchChannel) {
			return err
		}
		return ipc.Transport(channel, err)
	}
	b.recorder.RecordSend(ipc.SurfaceToHost, mode, len(data))
	return nil
}

// HandleMessage receives an in-band message. ok is false for the
// one-argument form, which carries no payload.
func (b *Bridge) HandleMessage(ctx context.Context, channel, data string, ok bool) error {
	msg := ipc.Message{Channel: channel}
	mode := ipc.ModeEmpty
	if ok {
		payload, err := ipc.Parse(data)
		if err != nil {
			return b.drop(withChannel(err, channel))
		}
		msg.Payload = payload
		mode = ipc.ModeInline
	}

	b.recorder.RecordReceive(ipc.HostToSurface, mode)
	b.registry.Dispatch(ctx, msg)
	return nil
}

// HandleBegin opens transfer id for channel. Stale transfers are swept first.
func (b *Bridge) HandleBegin(id, channel string) error {
	b.Sweep()
	if err := b.transfers.Begin(id, channel); err != nil {
		return b.drop(err)
	}
	return nil
}

// HandleChunk appends the next fragment of transfer id.
func (b *Bridge) HandleChunk(id, fragment string) error {
	if err := b.transfers.Append(id, fragment); err != nil {
		return b.drop(err)
	}
	return nil
}

// HandleEnd closes transfer id and dispatches the reassembled payload exactly
// like an in-band message.
func (b *Bridge) HandleEnd(ctx context.Context, id string) error {
	channel, data, err := b.transfers.End(id)
	if err != nil {
		return b.drop(err)
	}

	payload, err := ipc.Parse(data)
	if err != nil {
		err = withChannel(err, channel)
		var e *ipc.Error
		if errors.As(err, &e) {
			e.TransferID = id
		}
		return b.drop(err)
	}

	b.recorder.RecordReceive(ipc.HostToSurface, ipc.ModeChunked)
	b.registry.Dispatch(ctx, ipc.Message{Channel: channel, Payload: payload})
	return nil
}

// Sweep discards transfers that outlived the transfer TTL and returns how
// many were dropped.
func (b *Bridge) Sweep() int {
	stale := b.transfers.Sweep(b.now())
	for _, id := range stale {
		b.recorder.RecordDrop(ipc.HostToSurface, ipc.KindStaleTransfer)
		b.logger.Warn("stale transfer discarded",
			zap.String("transfer_id", id),
			zap.Duration("ttl", b.opts.TransferTTL))
	}
	return len(stale)
}

// Pending returns the number of open transfers.
func (b *Bridge) Pending() int {
	return b.transfers.Pending()
}

// Teardown removes every listener and discards open transfers.
func (b *Bridge) Teardown() {
	b.registry.Teardown()
	b.transfers.Reset()
}

func (b *Bridge) drop(err error) error {
	var e *ipc.Error
	if !errors.As(err, &e) {
		return err
	}
	b.recorder.RecordDrop(ipc.HostToSurface, e.Kind)

	fields := []zap.Field{zap.Error(err)}
	if e.Channel != "" {
		fields = append(fields, zap.String("channel", e.Channel))
	}
	if e.TransferID != "" {
		fields = append(fields, zap.String("transfer_id", e.TransferID))
	}
	b.logger.Warn("dropped message", fields...)
	return err
}

func withChannel(err error, channel string) error {
	var e *ipc.Error
	if errors.As(err, &e) {
		e.Channel = channel
	}
	return err
}
