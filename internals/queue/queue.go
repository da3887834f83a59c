// Package queue implements the per-subscriber bounded outbound queue:
// a fixed-capacity FIFO with drop-oldest-on-overflow semantics. It is
// deliberately not a Go channel — the broker needs to inspect size and
// drain in explicit batches. A mutex guards the buffer, since the
// broker pushes and the subscriber's writer goroutine drains
// concurrently; no channel's blocking/select semantics are needed.
package queue

import (
	"sync"

	"github.com/broadwave/pubsub/internals/models"
)

// Item is a single queued delivery: the topic it was published to and
// the payload to hand to the transport.
type Item struct {
	Topic   string
	Message models.Message
}

// Queue is a mutex-guarded circular buffer of Item with capacity cap.
// Push never fails: once full, it evicts the oldest entry first.
type Queue struct {
	mu   sync.Mutex
	buf  []Item
	cap  int
	head int
	size int
}

const defaultCapacity = 512

// New creates a queue with the given capacity. A non-positive capacity
// falls back to the documented default of 512.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Queue{
		buf: make([]Item, capacity),
		cap: capacity,
	}
}

// Push appends item to the tail. If the queue is already at capacity,
// it evicts the head item first and reports dropped=true.
func (q *Queue) Push(item Item) (dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == q.cap {
		q.head = (q.head + 1) % q.cap
		q.size--
		dropped = true
	}
	q.buf[(q.head+q.size)%q.cap] = item
	q.size++
	return dropped
}

// Drain removes and returns up to max items from the head, oldest
// first. It never blocks and never returns more than Size() items.
func (q *Queue) Drain(max int) []Item {
	if max <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	n := max
	if n > q.size {
		n = q.size
	}
	if n == 0 {
		return nil
	}

	out := make([]Item, n)
	for i := 0; i < n; i++ {
		out[i] = q.buf[(q.head+i)%q.cap]
	}
	q.head = (q.head + n) % q.cap
	q.size -= n
	return out
}

// Size returns the current number of queued items.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the queue's fixed capacity.
func (q *Queue) Cap() int {
	return q.cap
}
