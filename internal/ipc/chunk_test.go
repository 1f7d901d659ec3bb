package ipc

import (
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFidelity(t *testing.T) {
	const size = DefaultChunkSize

	for _, n := range []int{0, 1, size - 1, size, size + 1, 10 * size} {
		s := strings.Repeat("x", n)
		fragments := Split(s, size)

		for _, f := range fragments {
			assert.LessOrEqual(t, len(f), size)
			assert.NotEmpty(t, f)
		}
		assert.Equal(t, s, strings.Join(fragments, ""), "length %d", n)
		assert.Len(t, fragments, (n+size-1)/size, "length %d", n)
	}
}

func TestSplitKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("añ日🎉", 500)
	fragments := Split(s, 17)

	for _, f := range fragments {
		assert.LessOrEqual(t, len(f), 17)
		assert.True(t, utf8.ValidString(f), "fragment %q splits a rune", f)
	}
	assert.Equal(t, s, strings.Join(fragments, ""))
}

func TestSplitClampsTinySize(t *testing.T) {
	s := "🎉🎉🎉"
	fragments := Split(s, 1)
	assert.Equal(t, []string{"🎉", "🎉", "🎉"}, fragments)
}

func TestReassemblerInOrder(t *testing.T) {
	r := NewReassembler(time.Minute)

	require.NoError(t, r.Begin("1", "markdown"))
	for _, f := range []string{`{"source":`, `"# Hi"`, `}`} {
		require.NoError(t, r.Append("1", f))
	}
	assert.Equal(t, 1, r.Pending())

	channel, data, err := r.End("1")
	require.NoError(t, err)
	assert.Equal(t, "markdown", channel)
	assert.Equal(t, `{"source":"# Hi"}`, data)
	assert.Equal(t, 0, r.Pending())
}

func TestReassemblerInterleavedTransfers(t *testing.T) {
	r := NewReassembler(time.Minute)

	require.NoError(t, r.Begin("1", "a"))
	require.NoError(t, r.Begin("2", "b"))
	require.NoError(t, r.Append("1", "one-"))
	require.NoError(t, r.Append("2", "two-"))
	require.NoError(t, r.Append("1", "done"))
	require.NoError(t, r.Append("2", "done"))

	ch, data, err := r.End("2")
	require.NoError(t, err)
	assert.Equal(t, "b", ch)
	assert.Equal(t, "two-done", data)

	ch, data, err = r.End("1")
	require.NoError(t, err)
	assert.Equal(t, "a", ch)
	assert.Equal(t, "one-done", data)
}

func TestReassemblerDuplicateBegin(t *testing.T) {
	r := NewReassembler(time.Minute)

	require.NoError(t, r.Begin("1", "a"))
	require.NoError(t, r.Append("1", "kept"))

	err := r.Begin("1", "b")
	assert.ErrorIs(t, err, ErrDuplicateTransfer)

	// The first transfer is untouched.
	ch, data, err := r.End("1")
	require.NoError(t, err)
	assert.Equal(t, "a", ch)
	assert.Equal(t, "kept", data)
}

func TestReassemblerUnknownTransfer(t *testing.T) {
	r := NewReassembler(time.Minute)
	require.NoError(t, r.Begin("1", "a"))
	require.NoError(t, r.Append("1", "x"))

	assert.ErrorIs(t, r.Append("99", "stray"), ErrUnknownTransfer)
	_, _, err := r.End("99")
	assert.ErrorIs(t, err, ErrUnknownTransfer)

	_, data, err := r.End("1")
	require.NoError(t, err)
	assert.Equal(t, "x", data)
}

func TestReassemblerEmptyTransfer(t *testing.T) {
	r := NewReassembler(0)
	require.NoError(t, r.Begin("1", "a"))

	ch, data, err := r.End("1")
	require.NoError(t, err)
	assert.Equal(t, "a", ch)
	assert.Equal(t, "", data)
}

func TestReassemblerSweep(t *testing.T) {
	r := NewReassembler(time.Minute)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	r.now = func() time.Time { return start }
	require.NoError(t, r.Begin("old", "a"))
	r.now = func() time.Time { return start.Add(50 * time.Second) }
	require.NoError(t, r.Begin("fresh", "b"))

	stale := r.Sweep(start.Add(90 * time.Second))
	assert.Equal(t, []string{"old"}, stale)
	assert.Equal(t, 1, r.Pending())
	assert.ErrorIs(t, r.Append("old", "x"), ErrUnknownTransfer)
	assert.NoError(t, r.Append("fresh", "x"))
}

func TestReassemblerSweepDisabled(t *testing.T) {
	r := NewReassembler(0)
	require.NoError(t, r.Begin("1", "a"))
	assert.Empty(t, r.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, r.Pending())
}

func TestNextTransferIDMonotonic(t *testing.T) {
	a, err := strconv.ParseUint(NextTransferID(), 10, 64)
	require.NoError(t, err)
	b, err := strconv.ParseUint(NextTransferID(), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, b, a)
}
