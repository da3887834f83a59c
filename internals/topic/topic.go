// Package topic implements the Topic record (component C): a name, a
// subscriber table keyed by connection handle, a replay ring, and the
// counters publish and membership changes maintain, per spec.md §3/§4.4.
package topic

import (
	"sync"
	"sync/atomic"

	"github.com/broadwave/pubsub/internals/connhandle"
	"github.com/broadwave/pubsub/internals/models"
	"github.com/broadwave/pubsub/internals/ringbuffer"
	"github.com/broadwave/pubsub/internals/subscriber"
)

// Topic is a named multicast channel: its subscriber table, replay
// ring, and counters. The table is keyed by *connhandle.Handle rather
// than by client_id, so two distinct connections sharing a client_id
// are tracked as two distinct subscribers and both receive events —
// per spec.md §9's design note on the subscriber table's key.
type Topic struct {
	Name string

	mu   sync.RWMutex
	subs map[*connhandle.Handle]*subscriber.Subscriber

	ring *ringbuffer.RingBuffer

	messages  uint64
	delivered uint64
	dropped   uint64
}

// New creates a topic with the given replay ring capacity.
func New(name string, ringCapacity int) *Topic {
	return &Topic{
		Name: name,
		subs: make(map[*connhandle.Handle]*subscriber.Subscriber),
		ring: ringbuffer.New(ringCapacity),
	}
}

// AddSubscriber installs sub, keyed by its connection handle,
// replacing any existing subscriber for that handle. Replacing closes
// the prior subscriber's writer goroutine first.
func (t *Topic) AddSubscriber(sub *subscriber.Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.subs[sub.Handle]; ok {
		old.Close()
	}
	t.subs[sub.Handle] = sub
}

// RemoveSubscriber removes and closes the subscriber for handle, if
// present. It reports whether a subscriber was found.
func (t *Topic) RemoveSubscriber(handle *connhandle.Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, ok := t.subs[handle]
	if !ok {
		return false
	}
	delete(t.subs, handle)
	sub.Close()
	return true
}

// GetSubscriber returns the subscriber registered for handle, if any.
func (t *Topic) GetSubscriber(handle *connhandle.Handle) (*subscriber.Subscriber, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sub, ok := t.subs[handle]
	return sub, ok
}

// SubscriberCount returns the current table size.
func (t *Topic) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Subscribers returns a snapshot of the current subscriber table.
// Safe to range over after the topic's lock is released.
func (t *Topic) Subscribers() []*subscriber.Subscriber {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*subscriber.Subscriber, 0, len(t.subs))
	for _, sub := range t.subs {
		out = append(out, sub)
	}
	return out
}

// Publish appends msg to the replay ring and enqueues it onto every
// current subscriber's outbound queue, incrementing messages and
// dropped. Per spec.md §4.4(c), delivery accounting beyond "dropped"
// (the "delivered" counter) happens asynchronously as each
// subscriber's writer goroutine actually drains to the transport, via
// the onDeliver hook installed in NewSubscriber.
func (t *Topic) Publish(msg models.Message) {
	t.ring.Push(msg)
	atomic.AddUint64(&t.messages, 1)

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, sub := range t.subs {
		if sub.Enqueue(t.Name, msg) {
			atomic.AddUint64(&t.dropped, 1)
		}
	}
}

// NewSubscriber builds a subscriber for handle, wired so that the
// writer goroutine's successful deliveries bump this topic's
// "delivered" counter.
func (t *Topic) NewSubscriber(clientID string, handle *connhandle.Handle, queueCapacity int) *subscriber.Subscriber {
	return subscriber.New(clientID, handle, queueCapacity, func(n int) {
		atomic.AddUint64(&t.delivered, uint64(n))
	})
}

// Replay delivers up to n of the most recently retained payloads to
// sub only, through the normal Enqueue path — so overflow against
// sub's queue is accounted the same way a live publish would be.
func (t *Topic) Replay(sub *subscriber.Subscriber, n int) {
	for _, msg := range t.ring.Last(n) {
		if sub.Enqueue(t.Name, msg) {
			atomic.AddUint64(&t.dropped, 1)
		}
	}
}

// Messages returns the total number of publishes accepted.
func (t *Topic) Messages() uint64 { return atomic.LoadUint64(&t.messages) }

// Delivered returns the total number of successful per-subscriber
// deliveries.
func (t *Topic) Delivered() uint64 { return atomic.LoadUint64(&t.delivered) }

// Dropped returns the total number of items evicted by queue overflow,
// summed across subscribers and replay.
func (t *Topic) Dropped() uint64 { return atomic.LoadUint64(&t.dropped) }

// Close closes every subscriber's writer goroutine and empties the
// table. It does not close the underlying connections — the caller
// (the registry, per spec.md §4.4's DeleteTopic ordering) is
// responsible for notifying and disconnecting subscribers before or
// after calling Close, as the deletion protocol requires.
func (t *Topic) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for handle, sub := range t.subs {
		sub.Close()
		delete(t.subs, handle)
	}
}
