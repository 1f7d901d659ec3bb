package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScripts(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{
			name:   "no payload",
			script: MessageScript("markdown", nil),
			want:   `handleIPCMessage("markdown")`,
		},
		{
			name:   "payload",
			script: MessageScript("markdown", []byte(`{"source":"a\nb"}`)),
			want:   `handleIPCMessage("markdown","{\"source\":\"a\\nb\"}")`,
		},
		{
			name:   "quoted channel",
			script: MessageScript(`we"ird`, nil),
			want:   `handleIPCMessage("we\"ird")`,
		},
		{
			name:   "begin",
			script: BeginScript("3", "markdown"),
			want:   `handleIPCMessageBegin("3","markdown")`,
		},
		{
			name:   "chunk",
			script: ChunkScript("3", `"quoted"`),
			want:   `handleIPCMessageChunk("3","\"quoted\"")`,
		},
		{
			name:   "end",
			script: EndScript("3"),
			want:   `handleIPCMessageEnd("3")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.script)
		})
	}
}
