// Package subscriber provides the per-(topic,connection) subscriber
// record: a non-owning connection handle plus a bounded outbound
// queue drained by a dedicated writer goroutine, per spec.md §3's
// "Subscriber record".
package subscriber

import (
	"sync"

	"github.com/broadwave/pubsub/internals/connhandle"
	"github.com/broadwave/pubsub/internals/models"
	"github.com/broadwave/pubsub/internals/queue"
)

// drainBatch is the maximum number of items the writer hands to the
// transport per wake-up, per spec.md §4.4 ("batches of up to 100
// items").
const drainBatch = 100

// Subscriber binds one connection to one topic. ClientID is carried
// for observability only — the topic's subscriber table is keyed by
// the connection handle, not by ClientID, so two connections sharing
// a ClientID are distinct subscribers and both receive events.
//
// Enqueue (called from the broker's serialized Publish/Subscribe
// operations) only ever touches the bounded Queue, which is why it
// never blocks. A single writer goroutine owns draining that queue to
// the transport, so a slow or stalled connection backs up its own
// queue — and only its own — without stalling the broker or any other
// subscriber. This is the "only suspension points are transport
// writes" contract of spec.md §5 realized concretely: Enqueue never
// awaits I/O, the writer goroutine is where I/O happens.
type Subscriber struct {
	ClientID string
	Handle   *connhandle.Handle
	Queue    *queue.Queue

	onDeliver func(n int)

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a subscriber bound to handle with a queue of the given
// capacity and starts its writer goroutine. onDeliver, if non-nil, is
// called from the writer goroutine with the number of items the
// transport accepted without error after each drained batch — the hook the owning topic
// uses to maintain its "delivered" counter.
func New(clientID string, handle *connhandle.Handle, queueCapacity int, onDeliver func(n int)) *Subscriber {
	s := &Subscriber{
		ClientID:  clientID,
		Handle:    handle,
		Queue:     queue.New(queueCapacity),
		onDeliver: onDeliver,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	go s.run()
	return s
}

// Enqueue pushes one item for topic onto the bounded queue and wakes
// the writer. It reports whether the push evicted an older item
// (drop-oldest). It never blocks.
func (s *Subscriber) Enqueue(topic string, msg models.Message) (dropped bool) {
	dropped = s.Queue.Push(queue.Item{Topic: topic, Message: msg})
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return dropped
}

// Close stops the writer goroutine. It does not close the connection
// handle — callers that own the handle's lifecycle close it
// separately.
func (s *Subscriber) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Subscriber) run() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
			s.drainAll()
		}
	}
}

func (s *Subscriber) drainAll() {
	for {
		batch := s.Queue.Drain(drainBatch)
		if len(batch) == 0 {
			return
		}
		sent := 0
		for _, item := range batch {
			if err := s.Handle.Send(models.NewEvent(item.Topic, item.Message)); err == nil {
				sent++
			}
		}
		if s.onDeliver != nil {
			s.onDeliver(sent)
		}
		select {
		case <-s.stop:
			return
		default:
		}
	}
}
