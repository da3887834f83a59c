// Package topicManagerService provides topic administration for the
// Pub/Sub system, backed by the broker registry.
package topicManagerService

import (
	"github.com/broadwave/pubsub/internals/registry"
)

// Service implements TopicManager against a *registry.Registry.
type Service struct {
	registry *registry.Registry
}

// New constructs a Service bound to reg.
func New(reg *registry.Registry) *Service {
	return &Service{registry: reg}
}

// CreateTopic delegates to the registry.
func (s *Service) CreateTopic(name string) error {
	return s.registry.CreateTopic(name)
}

// DeleteTopic delegates to the registry.
func (s *Service) DeleteTopic(name string) error {
	return s.registry.DeleteTopic(name)
}

// ListTopics delegates to the registry.
func (s *Service) ListTopics() []TopicInfo {
	regTopics := s.registry.ListTopics()
	out := make([]TopicInfo, len(regTopics))
	for i, t := range regTopics {
		out[i] = TopicInfo{Name: t.Name, Subscribers: t.Subscribers}
	}
	return out
}

// Stats delegates to the registry.
func (s *Service) Stats() map[string]TopicStats {
	regStats := s.registry.Stats()
	out := make(map[string]TopicStats, len(regStats))
	for name, st := range regStats {
		out[name] = TopicStats{
			Messages:    st.Messages,
			Subscribers: st.Subscribers,
			Delivered:   st.Delivered,
			Dropped:     st.Dropped,
		}
	}
	return out
}

// Health delegates to the registry.
func (s *Service) Health() Health {
	h := s.registry.Health()
	return Health{UptimeSec: h.UptimeSec, Topics: h.Topics, Subscribers: h.Subscribers}
}
