// Package metrics exposes Prometheus instrumentation for the chat core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamchat_messages_sent_total",
		Help: "Messages durably written through the send pipeline.",
	})

	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamchat_send_failures_total",
		Help: "Send attempts that failed and were rolled back.",
	})

	DedupDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamchat_dedup_drops_total",
		Help: "Realtime inserts merged into an existing entry instead of appended.",
	})

	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamchat_events_delivered_total",
		Help: "Realtime events delivered to subscription handlers.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamchat_events_dropped_total",
		Help: "Realtime events dropped due to handler failure.",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teamchat_active_subscriptions",
		Help: "Live realtime subscription handles.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teamchat_active_sessions",
		Help: "Open chat sessions.",
	})
)

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
