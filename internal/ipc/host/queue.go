package host

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/markread/internal/ipc"
)

// queue is an unbounded FIFO between the surface's post handlers and the
// dispatch goroutine. push never blocks, so a post from the surface loop
// cannot stall on a slow host listener.
type queue struct {
	mu     sync.Mutex
	items  []ipc.Message
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

func (q *queue) push(msg ipc.Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop blocks until a message is available or ctx is done.
func (q *queue) pop(ctx context.Context) (ipc.Message, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items[0] = ipc.Message{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return msg, true
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			return ipc.Message{}, false
		}
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
