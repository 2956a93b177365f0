// Package metrics provides Prometheus metrics for the BloodLink engine.
// It tracks alert lifecycle transitions, recipient matching, and the
// notification pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "bloodlink"
)

// Alert metrics track the alert lifecycle.
var (
	// AlertsCreatedTotal counts alerts created, labeled by blood type
	// and urgency.
	AlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Total number of alerts created",
		},
		[]string{"blood_type", "urgency"},
	)

	// AlertsClosedTotal counts terminal transitions, labeled by outcome.
	AlertsClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_closed_total",
			Help:      "Total number of alerts closed",
		},
		[]string{"status"}, // status: fulfilled, cancelled, expired
	)

	// ActiveAlerts tracks the current number of active alerts as seen
	// by the event feed consumer.
	ActiveAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_alerts",
			Help:      "Current number of active alerts",
		},
	)

	// ResponsesRecordedTotal counts donor responses, labeled by status.
	ResponsesRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_recorded_total",
			Help:      "Total number of donor responses recorded",
		},
		[]string{"status"}, // status: pending, accepted, declined
	)

	// PropagationsTotal counts facilities an alert was propagated to.
	PropagationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagations_total",
			Help:      "Total number of facility propagations",
		},
	)
)

// Matching metrics track recipient set computation.
var (
	// MatchedRecipients tracks the recipient set size per dispatch.
	MatchedRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matched_recipients",
			Help:      "Number of recipients matched per dispatch",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// MatchLatency measures time to compute a recipient set.
	MatchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_latency_seconds",
			Help:      "Time to compute a recipient set in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
	)
)

// Notification metrics track the dispatch pipeline.
var (
	// NotificationsTotal counts delivery attempts, labeled by event type
	// and outcome.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of notification delivery attempts",
		},
		[]string{"type", "status"}, // status: sent, failed
	)

	// DispatchLatency measures time to settle one dispatch batch.
	DispatchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_latency_seconds",
			Help:      "Time to settle a notification dispatch batch in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)

// Feed metrics track the lifecycle event feed.
var (
	// FeedEventsPublishedTotal counts events published to the feed.
	FeedEventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_published_total",
			Help:      "Total number of lifecycle events published to the feed",
		},
		[]string{"type"},
	)

	// FeedPublishFailuresTotal counts best-effort publish failures.
	FeedPublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_publish_failures_total",
			Help:      "Total number of failed feed publishes",
		},
	)

	// ExpirySweepsTotal counts sweeper runs.
	ExpirySweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_sweeps_total",
			Help:      "Total number of expiry sweeper runs",
		},
	)
)
