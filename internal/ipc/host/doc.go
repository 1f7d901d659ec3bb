// Package host implements the host side of the message bridge.
//
// Sends inject calls to the surface's dispatch entry points. Payloads that
// encode above the chunk size are split into a begin/chunk/end transfer,
// each injection awaited before the next, and sends on one channel are
// serialized so their transfers never interleave.
//
// Posts from the surface arrive through per-channel message handlers that
// are registered when a channel gets its first listener and unregistered
// when it loses its last. They are validated, queued, and dispatched on a
// single goroutine in arrival order.
//
//	b := host.New(func() host.Surface { return view })
//	b.On("dropfile", ipc.Listen(func(ctx context.Context, msg ipc.Message) error {
//		var drop struct{ Filename string `json:"filename"` }
//		return msg.Decode(&drop)
//	}))
//	err := b.Send(ctx, "markdown", map[string]string{"source": "# Hi"})
package host
