package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Realtime metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livechat_ws_connections",
			Help: "Open websocket connections",
		},
	)

	DroppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_ws_dropped_frames_total",
			Help: "Outbound frames dropped because a client send buffer was full",
		},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_messages_sent_total",
			Help: "Messages persisted",
		},
		[]string{"origin"}, // "socket" or "rest"
	)

	MessageEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_message_events_total",
			Help: "Message lifecycle updates",
		},
		[]string{"event"},
	)

	CallSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_call_signals_total",
			Help: "Call signals relayed per target",
		},
		[]string{"kind", "result"}, // result: "delivered" or "dropped"
	)

	HistoryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_history_cache_lookups_total",
			Help: "History cache lookups",
		},
		[]string{"result"},
	)
)
