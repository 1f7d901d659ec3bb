package ipc

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/bytedance/sonic"
)

// Null is an explicit JSON null payload. It is distinct from a nil payload,
// which means the message carries no payload at all.
var Null = json.RawMessage("null")

// codec is the std-compatible sonic config: sorted map keys, validated strings.
var codec = sonic.ConfigStd

// lineTerminators are valid inside JSON strings but end a line in older JS
// grammars, so they are escaped before a string is embedded in a script.
var lineTerminators = strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`)

// Encode returns the canonical JSON encoding of v. A nil v yields a nil
// result, meaning "no payload". json.RawMessage values are validated and
// passed through unchanged.
func Encode(v any) ([]byte, error) {
	switch raw := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if raw == nil {
			return nil, nil
		}
		if !codec.Valid(raw) {
			return nil, MalformedPayload("", errors.New("invalid raw JSON"))
		}
		return raw, nil
	}

	data, err := codec.Marshal(v)
	if err != nil {
		return nil, MalformedPayload("", err)
	}
	return data, nil
}

// Decode unmarshals data into v. A nil data is "no payload" and leaves v
// untouched.
func Decode(data []byte, v any) error {
	if data == nil {
		return nil
	}
	if err := codec.Unmarshal(data, v); err != nil {
		return MalformedPayload("", err)
	}
	return nil
}

// Parse validates s as a JSON document and returns it as a raw payload.
func Parse(s string) (json.RawMessage, error) {
	if !codec.Valid([]byte(s)) {
		return nil, MalformedPayload("", errors.New("invalid JSON document"))
	}
	return json.RawMessage(s), nil
}

// EscapeString returns s escaped for use inside a double-quoted JS string
// literal.
func EscapeString(s string) string {
	quoted, err := codec.MarshalToString(s)
	if err != nil {
		// Strings always marshal; keep a conservative fallback anyway.
		quoted = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`).Replace(s) + `"`
	}
	return lineTerminators.Replace(quoted[1 : len(quoted)-1])
}
