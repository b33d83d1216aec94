package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_http_requests_total",
			Help: "Total number of HTTP requests processed by the messenger service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	relayActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "messenger_relay_active_sessions",
			Help: "Number of users with a live relay socket.",
		},
	)
	relayEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_relay_events_total",
			Help: "Total number of relay socket events.",
		},
		[]string{"event"},
	)
	relayDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_relay_dropped_deliveries_total",
			Help: "Live envelopes dropped because the recipient had no open socket.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		relayActiveSessions,
		relayEventsTotal,
		relayDroppedTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncRelayActive() {
	relayActiveSessions.Inc()
}

func DecRelayActive() {
	relayActiveSessions.Dec()
}

func IncRelayEvent(event string) {
	relayEventsTotal.WithLabelValues(event).Inc()
}

func IncRelayDropped() {
	relayDroppedTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
