package ipc

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Split cuts s into consecutive fragments of at most size bytes. Fragments
// never split a UTF-8 sequence, so each one can be escaped independently.
// Concatenating the result in order reproduces s.
func Split(s string, size int) []string {
	if size < utf8.UTFMax {
		size = utf8.UTFMax
	}

	fragments := make([]string, 0, len(s)/size+1)
	for len(s) > 0 {
		if len(s) <= size {
			fragments = append(fragments, s)
			break
		}
		n := size
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		if n == 0 {
			// Not UTF-8; cut on the byte boundary.
			n = size
		}
		fragments = append(fragments, s[:n])
		s = s[n:]
	}
	return fragments
}

type transfer struct {
	channel   string
	fragments []string
	size      int
	started   time.Time
}

// Reassembler collects chunked transfers on the receiving side.
//
// It is not safe for concurrent use. The surface owns one per session and
// touches it only from its event loop.
type Reassembler struct {
	transfers map[string]*transfer
	ttl       time.Duration
	now       func() time.Time
}

// NewReassembler returns a Reassembler that discards transfers older than
// ttl on Sweep. A ttl <= 0 keeps transfers until they end.
func NewReassembler(ttl time.Duration) *Reassembler {
	return &Reassembler{
		transfers: make(map[string]*transfer),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Begin opens transfer id for channel.
func (r *Reassembler) Begin(id, channel string) error {
	if t, ok := r.transfers[id]; ok {
		return DuplicateTransfer(id, t.channel)
	}
	r.transfers[id] = &transfer{channel: channel, started: r.now()}
	return nil
}

// Append adds the next fragment of transfer id.
func (r *Reassembler) Append(id, fragment string) error {
	t, ok := r.transfers[id]
	if !ok {
		return UnknownTransfer(id)
	}
	t.fragments = append(t.fragments, fragment)
	t.size += len(fragment)
	return nil
}

// End closes transfer id and returns its channel and the fragments joined in
// arrival order. The transfer state is discarded.
func (r *Reassembler) End(id string) (string, string, error) {
	t, ok := r.transfers[id]
	if !ok {
		return "", "", UnknownTransfer(id)
	}
	delete(r.transfers, id)

	var b strings.Builder
	b.Grow(t.size)
	for _, f := range t.fragments {
		b.WriteString(f)
	}
	return t.channel, b.String(), nil
}

// Sweep discards transfers begun before now minus the ttl and returns their ids.
func (r *Reassembler) Sweep(now time.Time) []string {
	if r.ttl <= 0 {
		return nil
	}
	var stale []string
	for id, t := range r.transfers {
		if now.Sub(t.started) > r.ttl {
			delete(r.transfers, id)
			stale = append(stale, id)
		}
	}
	return stale
}

// Pending returns the number of open transfers.
func (r *Reassembler) Pending() int {
	return len(r.transfers)
}

// Reset discards every open transfer.
func (r *Reassembler) Reset() {
	clear(r.transfers)
}
