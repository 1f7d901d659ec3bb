package host

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/markread/internal/ipc"
	"go.uber.org/zap"
)

var errNoSurface = errors.New("no active surface")

// Surface is the transport primitive the host drives: code injection in one
// direction and named message handlers in the other.
type Surface interface {
	RunScript(ctx context.Context, script string) (any, error)
	RegisterMessageHandler(name string, handler func(body []byte, ok bool)) error
	UnregisterMessageHandler(name string)
}

// Bridge is the host side of the message bridge.
type Bridge struct {
	surface  func() Surface
	registry *ipc.Registry
	opts     ipc.Options
	logger   *zap.Logger
	recorder ipc.Recorder

	sendMu sync.Mutex
	sends  map[string]*sync.Mutex

	queue  *queue
	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a host bridge targeting whatever surface the function returns
// at call time, and starts its dispatch goroutine.
func New(surface func() Surface, opts ...ipc.Option) *Bridge {
	o := ipc.NewOptions(opts...)
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		surface:  surface,
		opts:     o,
		logger:   o.Logger.Named("host"),
		recorder: o.Recorder,
		sends:    make(map[string]*sync.Mutex),
		queue:    newQueue(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	b.registry = ipc.NewRegistry(hooks{b}, ipc.WithLogger(b.logger), ipc.WithRecorder(o.Recorder))

	go b.dispatchLoop()
	return b
}

// On registers l for messages posted by the surface on channel.
func (b *Bridge) On(channel string, l ipc.Listener) (int, error) {
	if b.closed.Load() {
		return 0, ipc.Closed(channel)
	}
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

// Notify sends a message without a payload.
func (b *Bridge) Notify(ctx context.Context, channel string) error {
	return b.Send(ctx, channel, nil)
}

// Send delivers payload to the surface listeners of channel. Payloads whose
// encoding exceeds the chunk size are sent as a begin/chunk/end transfer, one
// injection at a time. Send returns once every injection completed; it does
// not wait for the surface to process the message.
func (b *Bridge) Send(ctx context.Context, channel string, payload any) error {
	if b.closed.Load() {
		return ipc.Closed(channel)
	}

	data, err := ipc.Encode(payload)
	if err != nil {
		var e *ipc.Error
		if errors.As(err, &e) {
			e.Channel = channel
		}
		return err
	}

	lock := b.channelLock(channel)
	lock.Lock()
	defer lock.Unlock()

	s := b.surface()
	if s == nil {
		return ipc.Transport(channel, errNoSurface)
	}

	switch {
	case data == nil:
		err = b.inject(ctx, s, channel, ipc.MessageScript(channel, nil))
		if err == nil {
			b.recorder.RecordSend(ipc.HostToSurface, ipc.ModeEmpty, 0)
		}
	case len(data) < b.opts.ChunkSize:
		err = b.inject(ctx, s, channel, ipc.MessageScript(channel, data))
		if err == nil {
			b.recorder.RecordSend(ipc.HostToSurface, ipc.ModeInline, len(data))
		}
	default:
		err = b.sendChunked(ctx, s, channel, string(data))
		if err == nil {
			b.recorder.RecordSend(ipc.HostToSurface, ipc.ModeChunked, len(data))
		}
	}
	return err
}

func (b *Bridge) sendChunked(ctx context.Context, s Surface, channel, data string) error {
	id := ipc.NextTransferID()
	fragments := ipc.Split(data, b.opts.ChunkSize)

	b.logger.Debug("chunked send",
		zap.String("channel", channel),
		zap.String("transfer_id", id),
		zap.Int("bytes", len(data)),
		zap.Int("fragments", len(fragments)))

	if err := b.inject(ctx, s, channel, ipc.BeginScript(id, channel)); err != nil {
		return withTransfer(err, id)
	}
	for _, f := range fragments {
		if err := b.inject(ctx, s, channel, ipc.ChunkScript(id, f)); err != nil {
			return withTransfer(err, id)
		}
		b.recorder.RecordFragment(ipc.HostToSurface)
	}
	if err := b.inject(ctx, s, channel, ipc.EndScript(id)); err != nil {
		return withTransfer(err, id)
	}
	return nil
}

func (b *Bridge) inject(ctx context.Context, s Surface, channel, script string) error {
	if err := ctx.Err(); err != nil {
		return ipc.Transport(channel, err)
	}
	if _, err := s.RunScript(ctx, script); err != nil {
		return ipc.Transport(channel, err)
	}
	return nil
}

func withTransfer(err error, id string) error {
	var e *ipc.Error
	if errors.As(err, &e) {
		e.TransferID = id
	}
	return err
}

func (b *Bridge) channelLock(channel string) *sync.Mutex {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	m, ok := b.sends[channel]
	if !ok {
		m = &sync.Mutex{}
		b.sends[channel] = m
	}
	return m
}

// receive is the message handler installed on the surface for channel.
// Malformed posts are dropped here and never reach the dispatch queue.
func (b *Bridge) receive(channel string, body []byte, ok bool) {
	if b.closed.Load() {
		return
	}

	msg := ipc.Message{Channel: channel}
	mode := ipc.ModeEmpty
	if ok {
		payload, err := ipc.Parse(string(body))
		if err != nil {
			b.recorder.RecordDrop(ipc.SurfaceToHost, ipc.KindMalformedPayload)
			b.logger.Warn("dropped malformed post",
				zap.String("channel", channel),
				zap.Error(err))
			return
		}
		msg.Payload = payload
		mode = ipc.ModeInline
	}

	b.recorder.RecordReceive(ipc.SurfaceToHost, mode)
	b.queue.push(msg)
}

func (b *Bridge) dispatchLoop() {
	defer close(b.done)
	for {
		msg, ok := b.queue.pop(b.ctx)
		if !ok {
			return
		}
		b.registry.Dispatch(b.ctx, msg)
	}
}

// Teardown removes every listener and unregisters every message handler. It
// is called when the surface is destroyed or replaced.
func (b *Bridge) Teardown() {
	b.registry.Teardown()
	b.logger.Debug("registry torn down")
}

// Close tears the bridge down and stops dispatching. Later calls fail with
// ErrClosed.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.registry.Teardown()
	b.cancel()
	<-b.done
	return nil
}

// hooks attaches registry channels to the surface's message handlers.
type hooks struct {
	b *Bridge
}

func (h hooks) Attach(channel string) error {
	s := h.b.surface()
	if s == nil {
		return errNoSurface
	}
	return s.RegisterMessageHandler(channel, func(body []byte, ok bool) {
		h.b.receive(channel, body, ok)
	})
}

func (h hooks) Detach(channel string) {
	if s := h.b.surface(); s != nil {
		s.UnregisterMessageHandler(channel)
	}
}
