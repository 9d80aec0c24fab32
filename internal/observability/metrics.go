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
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket events by type.",
		},
		[]string{"event"},
	)
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of messages accepted, by transport.",
		},
		[]string{"transport"},
	)
	typingSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_typing_indicators_swept_total",
			Help: "Total number of stale typing indicators cleared by the sweep.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		messagesSentTotal,
		typingSweptTotal,
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

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncMessageSent(transport string) {
	messagesSentTotal.WithLabelValues(transport).Inc()
}

func AddTypingSwept(n int) {
	typingSweptTotal.Add(float64(n))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
