// Package telemetry exposes the broker's counters as Prometheus
// collectors, adapting the shape of the teacher's internals/metrics
// package (per-topic published/delivered/dropped/subscribers) onto
// prometheus/client_golang, in the style of
// cuemby-warren/pkg/metrics.Metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry owns the broker's Prometheus collectors. The gauges are set
// from registry snapshots rather than incremented inline (only the
// publish-request counter is incremented per publish), since the
// registry's own counters (topic.Topic's messages/delivered/dropped)
// are the source of truth — telemetry only mirrors them for scraping.
type Telemetry struct {
	registry *prometheus.Registry

	topicsTotal      prometheus.Gauge
	subscribersTotal prometheus.Gauge

	messagesTotal   *prometheus.GaugeVec
	deliveredTotal  *prometheus.GaugeVec
	droppedTotal    *prometheus.GaugeVec
	subscribersByTopic *prometheus.GaugeVec

	publishesObserved *prometheus.CounterVec
}

// New constructs and registers the collector set.
func New() *Telemetry {
	reg := prometheus.NewRegistry()

	t := &Telemetry{
		registry: reg,
		topicsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_topics_total",
			Help: "Current number of topics in the registry.",
		}),
		subscribersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubsub_subscribers_total",
			Help: "Current number of subscriptions across all topics.",
		}),
		messagesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pubsub_topic_messages_total",
			Help: "Publishes accepted per topic.",
		}, []string{"topic"}),
		deliveredTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pubsub_topic_delivered_total",
			Help: "Successful per-subscriber deliveries per topic.",
		}, []string{"topic"}),
		droppedTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pubsub_topic_dropped_total",
			Help: "Items evicted by queue overflow per topic.",
		}, []string{"topic"}),
		subscribersByTopic: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pubsub_topic_subscribers",
			Help: "Current subscriber count per topic.",
		}, []string{"topic"}),
		publishesObserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_publish_requests_total",
			Help: "Publish operations accepted by the broker, per topic.",
		}, []string{"topic"}),
	}

	reg.MustRegister(
		t.topicsTotal,
		t.subscribersTotal,
		t.messagesTotal,
		t.deliveredTotal,
		t.droppedTotal,
		t.subscribersByTopic,
		t.publishesObserved,
	)
	return t
}

// SetTopics mirrors the registry's current topic count.
func (t *Telemetry) SetTopics(n int) {
	t.topicsTotal.Set(float64(n))
}

// SetSubscribers mirrors the registry's current total subscription
// count (subscriptions, not distinct connections).
func (t *Telemetry) SetSubscribers(n int) {
	t.subscribersTotal.Set(float64(n))
}

// ObservePublish increments the publish-request counter for topic.
func (t *Telemetry) ObservePublish(topicName string) {
	t.publishesObserved.WithLabelValues(topicName).Inc()
}

// TopicSnapshot mirrors one topic's counters onto the per-topic gauges.
func (t *Telemetry) TopicSnapshot(topicName string, messages, delivered, dropped uint64, subscribers int) {
	t.messagesTotal.WithLabelValues(topicName).Set(float64(messages))
	t.deliveredTotal.WithLabelValues(topicName).Set(float64(delivered))
	t.droppedTotal.WithLabelValues(topicName).Set(float64(dropped))
	t.subscribersByTopic.WithLabelValues(topicName).Set(float64(subscribers))
}

// RemoveTopic clears the per-topic gauges for a deleted topic so it
// stops appearing in scrapes.
func (t *Telemetry) RemoveTopic(topicName string) {
	t.messagesTotal.DeleteLabelValues(topicName)
	t.deliveredTotal.DeleteLabelValues(topicName)
	t.droppedTotal.DeleteLabelValues(topicName)
	t.subscribersByTopic.DeleteLabelValues(topicName)
}

// Handler returns the HTTP handler serving this collector set at
// /metrics.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
