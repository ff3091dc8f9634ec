// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vidgate"

var (
	// ChunkSubmissionsTotal tracks chunk-upload requests.
	// Labels:
	//   - status: partial, complete, offset_mismatch, io_error
	ChunkSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_submissions_total",
			Help:      "Total number of chunk submissions",
		},
		[]string{"status"},
	)

	// ChunkBytesCommitted tracks bytes durably appended to partial files.
	ChunkBytesCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_bytes_committed_total",
			Help:      "Total bytes committed by the chunk store",
		},
	)

	// StateTransitionsTotal tracks applied lifecycle transitions.
	// Labels:
	//   - from, to: lifecycle states
	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of applied video state transitions",
		},
		[]string{"from", "to"},
	)

	// InvalidTransitionsTotal tracks rejected (stale/duplicate) events.
	InvalidTransitionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_transitions_total",
			Help:      "Total number of rejected state-transition requests",
		},
	)

	// PublishOutcomesTotal tracks terminal publish results.
	// Labels:
	//   - outcome: published, published_soft, rejected, failed, skipped
	PublishOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_outcomes_total",
			Help:      "Total number of publish attempts by terminal outcome",
		},
		[]string{"outcome"},
	)

	// PublishDurationSeconds observes end-to-end publish duration.
	PublishDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "End-to-end publish duration including processing poll",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		},
	)

	// NotificationsTotal tracks outbound chat notifications.
	// Labels:
	//   - status: success, error
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of outbound chat notifications",
		},
		[]string{"status"},
	)
)

// Publish outcome constants.
const (
	OutcomePublished     = "published"
	OutcomePublishedSoft = "published_soft"
	OutcomeRejected      = "rejected"
	OutcomeFailed        = "failed"
	OutcomeSkipped       = "skipped"
)

// Notification status constants.
const (
	NotifySuccess = "success"
	NotifyError   = "error"
)
