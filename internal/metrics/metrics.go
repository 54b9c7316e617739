package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Notification metrics
	NotificationsCreatedTotal      prometheus.CounterVec
	NotificationsDeduplicatedTotal prometheus.CounterVec
	NotificationsPushedTotal       prometheus.CounterVec
	NotificationsSweptTotal        prometheus.Counter

	// WebSocket metrics
	WebSocketConnections   prometheus.Gauge
	WebSocketMessagesTotal prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),

			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			NotificationsCreatedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_created_total",
					Help: "Total number of notifications persisted",
				},
				[]string{"type"},
			),
			NotificationsDeduplicatedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_deduplicated_total",
					Help: "Total number of notification creates collapsed into a recent duplicate",
				},
				[]string{"type"},
			),
			NotificationsPushedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_pushed_total",
					Help: "Total number of notifications handed to the realtime hub; recipients with no live connections still count",
				},
				[]string{"type"},
			),
			NotificationsSweptTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "notifications_swept_total",
					Help: "Total number of read notifications removed by the retention sweeper",
				},
			),

			WebSocketConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections",
					Help: "Number of currently connected WebSocket clients",
				},
			),
			WebSocketMessagesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_messages_total",
					Help: "Total number of WebSocket messages by direction",
				},
				[]string{"direction"},
			),

			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}

// RecordCacheHit records a cache hit for the named cache
func RecordCacheHit(cacheName string) {
	Get().CacheHitsTotal.WithLabelValues(cacheName).Inc()
}

// RecordCacheMiss records a cache miss for the named cache
func RecordCacheMiss(cacheName string) {
	Get().CacheMissesTotal.WithLabelValues(cacheName).Inc()
}

// RecordNotificationCreated records a persisted notification
func RecordNotificationCreated(notificationType string) {
	Get().NotificationsCreatedTotal.WithLabelValues(notificationType).Inc()
}

// RecordNotificationDeduplicated records a create collapsed by the dedup window
func RecordNotificationDeduplicated(notificationType string) {
	Get().NotificationsDeduplicatedTotal.WithLabelValues(notificationType).Inc()
}

// RecordNotificationPushed records a hand-off to the realtime hub
func RecordNotificationPushed(notificationType string) {
	Get().NotificationsPushedTotal.WithLabelValues(notificationType).Inc()
}

// RecordNotificationsSwept records rows removed by the retention sweeper
func RecordNotificationsSwept(count int64) {
	Get().NotificationsSweptTotal.Add(float64(count))
}

// RecordRateLimitExceeded records a rate limit violation
func RecordRateLimitExceeded(endpoint, method string) {
	Get().RateLimitExceededTotal.WithLabelValues(endpoint, method).Inc()
}

// RecordError records an error by type and endpoint
func RecordError(errorType, endpoint string) {
	Get().ErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}
