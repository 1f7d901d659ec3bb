package ipc

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// DefaultChunkSize bounds inline payloads and transfer fragments, in bytes.
// Payloads that encode to this size or longer go through a begin/chunk/end
// transfer.
const DefaultChunkSize = 800

// Surface dispatch entry points, installed as globals in the rendering context.
const (
	EntryMessage = "handleIPCMessage"
	EntryBegin   = "handleIPCMessageBegin"
	EntryChunk   = "handleIPCMessageChunk"
	EntryEnd     = "handleIPCMessageEnd"
)

// Traffic directions, used as metric labels.
const (
	HostToSurface = "host_to_surface"
	SurfaceToHost = "surface_to_host"
)

// Send modes, used as metric labels.
const (
	ModeEmpty   = "empty"
	ModeInline  = "inline"
	ModeChunked = "chunked"
)

var transferSeq atomic.Uint64

// NextTransferID returns a fresh transfer id. Ids increase monotonically for
// the lifetime of the process.
func NextTransferID() string {
	return strconv.FormatUint(transferSeq.Add(1), 10)
}

// MessageScript builds the injection for a single in-band message. A nil
// payload produces the one-argument form.
func MessageScript(channel string, payload []byte) string {
	if payload == nil {
		return invoke(EntryMessage, channel)
	}
	return invoke(EntryMessage, channel, string(payload))
}

// BeginScript announces transfer id for channel.
func BeginScript(id, channel string) string {
	return invoke(EntryBegin, id, channel)
}

// ChunkScript carries one fragment of transfer id.
func ChunkScript(id, fragment string) string {
	return invoke(EntryChunk, id, fragment)
}

// EndScript closes transfer id.
func EndScript(id string) string {
	return invoke(EntryEnd, id)
}

func invoke(fn string, args ...string) string {
	var b strings.Builder
	b.WriteString(fn)
	b.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(EscapeString(arg))
		b.WriteByte('"')
	}
	b.WriteByte(')')
	return b.String()
}
