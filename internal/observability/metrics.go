package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"app", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framelink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "path", "status"},
	)
	channelRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "channel",
			Name:      "messages_routed_total",
			Help:      "Inbound messages claimed by a channel, by wire kind.",
		},
		[]string{"kind"},
	)
	channelDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "channel",
			Name:      "messages_dropped_total",
			Help:      "Inbound messages dropped before routing completed.",
		},
		[]string{"reason"},
	)
	channelFaults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "channel",
			Name:      "handler_faults_total",
			Help:      "Request handler faults returned to remote callers.",
		},
	)
	transactionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "framelink",
			Subsystem: "channel",
			Name:      "transactions_open",
			Help:      "Transactions currently tracked in channel tables.",
		},
	)
	relayFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Frames forwarded between relay peers.",
		},
		[]string{"pair"},
	)
	relayThrottled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framelink",
			Subsystem: "relay",
			Name:      "frames_throttled_total",
			Help:      "Frames dropped by the relay rate limiter.",
		},
		[]string{"pair"},
	)
	relayPeers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "framelink",
			Subsystem: "relay",
			Name:      "peers_connected",
			Help:      "Peers currently attached to relay pairs.",
		},
		[]string{"pair"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			channelRouted, channelDropped, channelFaults, transactionsOpen,
			relayFrames, relayThrottled, relayPeers,
		)
	})
}

func RecordHTTPRequest(app, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordChannelRouted(kind string) {
	RegisterMetrics()
	channelRouted.WithLabelValues(kind).Inc()
}

func RecordChannelDrop(reason string) {
	RegisterMetrics()
	channelDropped.WithLabelValues(reason).Inc()
}

func RecordHandlerFault() {
	RegisterMetrics()
	channelFaults.Inc()
}

func RecordTransactionOpened() {
	RegisterMetrics()
	transactionsOpen.Inc()
}

func RecordTransactionClosed() {
	RegisterMetrics()
	transactionsOpen.Dec()
}

func RecordRelayFrame(pair string, throttled bool) {
	RegisterMetrics()
	if throttled {
		relayThrottled.WithLabelValues(pair).Inc()
		return
	}
	relayFrames.WithLabelValues(pair).Inc()
}

func RecordRelayPeer(pair string, delta int) {
	RegisterMetrics()
	relayPeers.WithLabelValues(pair).Add(float64(delta))
}
