// Package registry implements the Broker registry (component D): the
// mapping from topic name to topic record, and the only place the
// six broker operations of spec.md §4.4 are serialized. A single
// mutex guards the topics map and every operation on the topic
// records it holds — per spec.md §9's note against per-topic locking
// hierarchies, and §5's atomicity-per-operation contract.
package registry

import (
	"time"

	"github.com/broadwave/pubsub/internals/config"
	"github.com/broadwave/pubsub/internals/connhandle"
	"github.com/broadwave/pubsub/internals/log"
	"github.com/broadwave/pubsub/internals/models"
	"github.com/broadwave/pubsub/internals/telemetry"
	"github.com/broadwave/pubsub/internals/topic"

	"sync"
)

// TopicInfo is one entry of the topic list observability view.
type TopicInfo struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
}

// TopicStats is the per-topic counters observability view.
type TopicStats struct {
	Messages    uint64 `json:"messages"`
	Subscribers int    `json:"subscribers"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
}

// Health is the broker-wide liveness snapshot. Subscribers counts
// subscriptions, not distinct connections: a connection subscribed to
// k topics is counted k times, per spec.md §4.6.
type Health struct {
	UptimeSec   int64 `json:"uptime_sec"`
	Topics      int   `json:"topics"`
	Subscribers int   `json:"subscribers"`
}

// Registry is the sole owner of topic records.
type Registry struct {
	mu     sync.Mutex
	topics map[string]*topic.Topic

	cfg   *config.Config
	tel   *telemetry.Telemetry
	start time.Time
}

// New constructs an empty registry.
func New(cfg *config.Config, tel *telemetry.Telemetry) *Registry {
	return &Registry{
		topics: make(map[string]*topic.Topic),
		cfg:    cfg,
		tel:    tel,
		start:  time.Now(),
	}
}

// CreateTopic inserts a new topic record. The caller is responsible
// for name validation (models.ValidTopicName); CreateTopic itself
// only rejects duplicates.
func (r *Registry) CreateTopic(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.topics[name]; exists {
		return ErrTopicAlreadyExists
	}

	r.topics[name] = topic.New(name, r.cfg.RingBufferSize)
	if r.tel != nil {
		r.tel.SetTopics(len(r.topics))
	}
	log.WithComponent("registry").Info().Str("topic", name).Msg("topic created")
	return nil
}

// DeleteTopic looks up name, captures its current subscriber set, and
// removes it from the registry — all as a single atomic step — then,
// outside the lock, notifies each captured subscriber with a
// "topic_deleted" info envelope and closes its connection, per
// spec.md §4.4's ordering and §9's "topic deletion closes connections"
// design note.
func (r *Registry) DeleteTopic(name string) error {
	r.mu.Lock()
	t, exists := r.topics[name]
	if !exists {
		r.mu.Unlock()
		return ErrTopicNotFound
	}
	subs := t.Subscribers()
	delete(r.topics, name)
	if r.tel != nil {
		r.tel.SetTopics(len(r.topics))
		r.tel.RemoveTopic(name)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Handle.Send(models.NewTopicDeletedInfo(name))
		sub.Handle.Close()
	}
	t.Close()

	log.WithComponent("registry").Info().Str("topic", name).Int("subscribers", len(subs)).Msg("topic deleted")
	return nil
}

// Subscribe installs a subscriber for handle on topicName, keyed by
// handle (re-subscribing on the same connection silently replaces the
// prior record, per spec.md §9). If lastN > 0 the replay ring is
// drained to this subscriber only, through the normal enqueue path.
func (r *Registry) Subscribe(handle *connhandle.Handle, topicName, clientID string, lastN int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.topics[topicName]
	if !exists {
		return ErrTopicNotFound
	}

	sub := t.NewSubscriber(clientID, handle, r.cfg.SubscriberQueueSize)
	t.AddSubscriber(sub)
	if lastN > 0 {
		t.Replay(sub, lastN)
	}
	return nil
}

// Unsubscribe removes the subscriber keyed by handle from topicName,
// if present. It is idempotent: removing an absent entry is not an
// error, per spec.md §4.4.
func (r *Registry) Unsubscribe(handle *connhandle.Handle, topicName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.topics[topicName]
	if !exists {
		return ErrTopicNotFound
	}
	t.RemoveSubscriber(handle)
	return nil
}

// Publish appends msg to topicName's replay ring and fans it out to
// every current subscriber, returning the timestamp to echo in the
// caller's ack.
func (r *Registry) Publish(topicName string, msg models.Message) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.topics[topicName]
	if !exists {
		return time.Time{}, ErrTopicNotFound
	}

	t.Publish(msg)
	if r.tel != nil {
		r.tel.ObservePublish(topicName)
	}
	return time.Now().UTC(), nil
}

// HandleDisconnect removes handle from every topic's subscriber table
// it appears in. No notice is sent, per spec.md §4.4.
func (r *Registry) HandleDisconnect(handle *connhandle.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.topics {
		t.RemoveSubscriber(handle)
	}
}

// ListTopics returns the observability topic list, unordered.
func (r *Registry) ListTopics() []TopicInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TopicInfo, 0, len(r.topics))
	for name, t := range r.topics {
		out = append(out, TopicInfo{Name: name, Subscribers: t.SubscriberCount()})
	}
	return out
}

// Stats returns the per-topic counters view, also refreshing the
// telemetry gauges for every topic as a side effect — the registry
// remains the counters' source of truth, telemetry only mirrors it.
func (r *Registry) Stats() map[string]TopicStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]TopicStats, len(r.topics))
	for name, t := range r.topics {
		subCount := t.SubscriberCount()
		stats := TopicStats{
			Messages:    t.Messages(),
			Subscribers: subCount,
			Delivered:   t.Delivered(),
			Dropped:     t.Dropped(),
		}
		out[name] = stats
		if r.tel != nil {
			r.tel.TopicSnapshot(name, stats.Messages, stats.Delivered, stats.Dropped, subCount)
		}
	}
	return out
}

// Health returns the broker-wide liveness snapshot.
func (r *Registry) Health() Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := 0
	for _, t := range r.topics {
		subs += t.SubscriberCount()
	}
	if r.tel != nil {
		r.tel.SetSubscribers(subs)
	}
	return Health{
		UptimeSec:   int64(time.Since(r.start).Seconds()),
		Topics:      len(r.topics),
		Subscribers: subs,
	}
}

// Close closes every topic record and empties the registry. Used on
// broker shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, t := range r.topics {
		t.Close()
		delete(r.topics, name)
	}
	log.WithComponent("registry").Info().Msg("registry closed")
}
