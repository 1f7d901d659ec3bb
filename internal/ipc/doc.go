// Package ipc implements the message bridge shared by the host process and
// the embedded rendering surface.
//
// The two sides share no memory. The host can only inject a script into the
// surface and wait for it to finish; the surface can only post a discrete
// JSON event to a handler the host registered. On top of those primitives
// this package provides:
//
//   - Codec: canonical JSON via sonic, and string escaping for injected scripts
//   - Chunker: Split on the sending side, Reassembler on the receiving side
//   - Registry: per-channel listener sets that attach the transport hook on
//     the first listener and detach it on the last
//   - the wire protocol: entry point names and script builders
//
// The direction-specific bridges live in ipc/host and ipc/surface.
//
// Wire protocol, host to surface:
//
//	handleIPCMessage("channel")                  no payload
//	handleIPCMessage("channel","{...}")          payload under the chunk size
//	handleIPCMessageBegin("7","channel")         chunked transfer 7 starts
//	handleIPCMessageChunk("7","...")             one fragment, in order
//	handleIPCMessageEnd("7")                     reassemble and dispatch
//
// Surface to host is a single post of the encoded payload to the handler
// registered under the channel name.
package ipc
