package ipc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "empty string", value: ""},
		{name: "unicode", value: "héllo wörld ✓ 日本語 🎉"},
		{name: "quotes and newlines", value: "say \"hi\"\nand 'bye'\r\n"},
		{name: "backslashes", value: `C:\path\to\file \\ \"`},
		{name: "line separators", value: "a\u2028b\u2029c"},
		{name: "html", value: "<script>alert('x')</script> & more"},
		{name: "number", value: 42.5},
		{name: "bool", value: true},
		{name: "null", value: nil},
		{name: "array", value: []any{"a", 1.0, false, nil}},
		{name: "object", value: map[string]any{
			"source":   "# Hi\n\nSome `code`",
			"filename": "a.md",
			"nested":   map[string]any{"list": []any{1.0, 2.0}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.value
			if in == nil {
				in = Null
			}
			data, err := Encode(in)
			require.NoError(t, err)

			var got any
			require.NoError(t, Decode(data, &got))
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestEncodeStruct(t *testing.T) {
	type doc struct {
		Source   string `json:"source"`
		Filename string `json:"filename,omitempty"`
	}

	data, err := Encode(doc{Source: "# Hi", Filename: "a.md"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"# Hi","filename":"a.md"}`, string(data))

	var got doc
	require.NoError(t, Decode(data, &got))
	assert.Equal(t, doc{Source: "# Hi", Filename: "a.md"}, got)
}

func TestEncodeAbsentPayload(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = Encode(json.RawMessage(nil))
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = Encode(Null)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestEncodeCanonicalKeyOrder(t *testing.T) {
	a, err := Encode(map[string]any{"b": 1, "a": 2, "c": 3})
	require.NoError(t, err)
	b, err := Encode(map[string]any{"c": 3, "a": 2, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestEncodeRejectsInvalidRaw(t *testing.T) {
	_, err := Encode(json.RawMessage(`{"open":`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestDecodeMalformed(t *testing.T) {
	var v any
	err := Decode([]byte(`{not json`), &v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDecodeAbsentLeavesValue(t *testing.T) {
	v := "untouched"
	require.NoError(t, Decode(nil, &v))
	assert.Equal(t, "untouched", v)
}

func TestParse(t *testing.T) {
	raw, err := Parse(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(raw))

	_, err = Parse(`{"a":`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestMessageDecodeAddsChannel(t *testing.T) {
	msg := Message{Channel: "markdown", Payload: json.RawMessage(`[1,`)}
	var v any
	err := msg.Decode(&v)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "markdown", e.Channel)
	assert.False(t, Message{Channel: "x"}.HasPayload())
	assert.True(t, Message{Channel: "x", Payload: Null}.HasPayload())
}

func TestEscapeStringEvaluatesToInput(t *testing.T) {
	vm := goja.New()
	inputs := []string{
		"",
		"plain",
		`double "quotes" and 'single'`,
		"new\nline\r\ttab",
		`back\slash \" \\`,
		"sep\u2028arators\u2029",
		"</script><!--",
		"emoji 🎉 and 日本語",
	}

	for _, in := range inputs {
		v, err := vm.RunString(`"` + EscapeString(in) + `"`)
		require.NoError(t, err, in)
		assert.Equal(t, in, v.String())
	}
}
