package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce               sync.Once
	httpRequestsTotal          *prometheus.CounterVec
	httpLatencySeconds         *prometheus.HistogramVec
	httpErrorsTotal            *prometheus.CounterVec
	membershipEventsTotal      *prometheus.CounterVec
	messagesSentTotal          prometheus.Counter
	messagesRejectedTotal      *prometheus.CounterVec
	notificationsDispatched    *prometheus.CounterVec
	notificationsFailed        *prometheus.CounterVec
	notificationFanoutDuration prometheus.Histogram
	retentionDeletedTotal      prometheus.Counter
	photoUploadsTotal          *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connexa_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "connexa_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connexa_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		membershipEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connexa_membership_events_total",
			Help: "Group lifecycle and membership changes by kind.",
		}, []string{"event"})

		messagesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connexa_messages_sent_total",
			Help: "Messages accepted into groups.",
		})

		messagesRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connexa_messages_rejected_total",
			Help: "Messages rejected before persistence, by reason.",
		}, []string{"reason"})

		notificationsDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connexa_notifications_dispatched_total",
			Help: "Notifications persisted, by type.",
		}, []string{"type"})

		notificationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connexa_notifications_failed_total",
			Help: "Notifications that could not be persisted, by type.",
		}, []string{"type"})

		notificationFanoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "connexa_notification_fanout_seconds",
			Help:    "Time spent dispatching a notification to all recipients.",
			Buckets: prometheus.DefBuckets,
		})

		retentionDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connexa_notification_retention_deleted_total",
			Help: "Notifications removed by the retention sweep.",
		})

		photoUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connexa_profile_photo_uploads_total",
			Help: "Profile photo uploads by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			membershipEventsTotal,
			messagesSentTotal,
			messagesRejectedTotal,
			notificationsDispatched,
			notificationsFailed,
			notificationFanoutDuration,
			retentionDeletedTotal,
			photoUploadsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// MembershipEvents counts create, join, leave and delete events.
func MembershipEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return membershipEventsTotal
}

// MessagesSent counts accepted messages.
func MessagesSent() prometheus.Counter {
	RegisterMetrics()
	return messagesSentTotal
}

// MessagesRejected counts rejected messages by reason.
func MessagesRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesRejectedTotal
}

// NotificationsDispatched counts persisted notifications by type.
func NotificationsDispatched() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsDispatched
}

// NotificationsFailed counts failed notification inserts by type.
func NotificationsFailed() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsFailed
}

// NotificationFanoutDuration observes multi-recipient dispatch time.
func NotificationFanoutDuration() prometheus.Histogram {
	RegisterMetrics()
	return notificationFanoutDuration
}

// RetentionDeleted counts notifications removed by the retention sweep.
func RetentionDeleted() prometheus.Counter {
	RegisterMetrics()
	return retentionDeletedTotal
}

// PhotoUploads counts profile photo uploads by outcome.
func PhotoUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return photoUploadsTotal
}
