// Package metrics holds the Prometheus collectors of the chat server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// Realtime metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_ws_connections",
			Help: "Open websocket sessions",
		},
	)

	UsersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_users_online",
			Help: "User codes with at least one live session",
		},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"type"}, // "text" or "image"
	)

	MessagesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_messages_delivered_total",
			Help: "Total sent -> delivered transitions",
		},
		[]string{"path"}, // "live", "sweep" or "ack"
	)

	MessagesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairchat_messages_read_total",
			Help: "Total read acknowledgements applied",
		},
	)

	SendRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_send_rejected_total",
			Help: "Rejected message:send requests",
		},
		[]string{"reason"},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_uploads_total",
			Help: "Media uploads by result",
		},
		[]string{"result"},
	)

	// Infrastructure metrics
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_store_errors_total",
			Help: "Store failures seen by the delivery coordinator",
		},
		[]string{"op"},
	)
)
