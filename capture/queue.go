package capture

import (
	"context"
	"sync"
	"time"

	"github.com/go-audio/audio"
)

// Queue is an unbounded FIFO of audio buffers with a timed receive.
type Queue struct {
	mu    sync.Mutex
	items []*audio.Float32Buffer
	ready chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
	}
}

func (q *Queue) Put(buf *audio.Float32Buffer) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.putLocked(buf)
}

// putLocked requires q.mu to be held.
func (q *Queue) putLocked(buf *audio.Float32Buffer) {
	q.items = append(q.items, buf)

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// clearLocked requires q.mu to be held.
func (q *Queue) clearLocked() int {
	n := len(q.items)
	q.items = nil

	return n
}

// Get waits up to timeout for the next buffer. ok is false if the wait
// expired or ctx ended first.
func (q *Queue) Get(ctx context.Context, timeout time.Duration) (buf *audio.Float32Buffer, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			buf = q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()

			return buf, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-timer.C:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Drain discards everything currently queued and reports how many buffers
// were dropped.
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.clearLocked()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
