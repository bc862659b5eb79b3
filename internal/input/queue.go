// Package input turns key presses, from a keyboard or a random generator, into the slot
// indices players consume.
package input

import (
	"context"
	"sync"
)

// DefaultQueueSize matches the number of tokens a player can hold.
const DefaultQueueSize = 3

// Queue is a bounded buffer of pressed slots. Presses that find it full are dropped.
type Queue struct {
	mu     sync.Mutex
	ch     chan int
	closed bool
}

func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultQueueSize
	}
	return &Queue{ch: make(chan int, capacity)}
}

// Press enqueues slot without blocking and reports whether it was accepted.
func (q *Queue) Press(slot int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- slot:
		return true
	default:
		return false
	}
}

// Keys returns the channel of pressed slots. It is closed by Close.
func (q *Queue) Keys(context.Context) <-chan int {
	return q.ch
}

// Len returns the number of presses waiting to be consumed.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting presses. Buffered presses can still be received.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
