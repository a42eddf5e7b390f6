package observer

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for webhook event metrics
	webhookEventLabels = []string{"event_type"}
	// Labels for tracking specific processing actions
	webhookActionLabels = []string{"event_type", "action", "error_type"}

	// Webhook Event Counters
	WebhookEventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_webhook_events_received_total",
			Help: "Total number of webhook events received from the crawler.",
		},
		webhookEventLabels,
	)
	WebhookEventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_webhook_events_processed_total",
			Help: "Total number of webhook events successfully processed.",
		},
		webhookEventLabels,
	)
	WebhookEventsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_webhook_events_failed_total",
			Help: "Total number of webhook events that failed processing.",
		},
		webhookEventLabels,
	)

	WebhookProcessingActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_webhook_processing_actions_total",
			Help: "Total count of specific actions taken after webhook processing, labeled by error type.",
		},
		webhookActionLabels,
	)
)

// Metrics related to the background task queue
var (
	taskQueueLabels = []string{"task_type"}

	taskQueueSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_task_queue_submitted_total",
			Help: "Total number of background tasks published to the queue.",
		},
		taskQueueLabels,
	)
	taskQueueProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_task_queue_processed_total",
			Help: "Total number of background tasks processed and acknowledged.",
		},
		taskQueueLabels,
	)
	taskQueueRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_task_queue_retries_total",
			Help: "Total number of delayed redeliveries (NAKs) for background tasks.",
		},
		taskQueueLabels,
	)
	taskQueueDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_task_queue_dropped_total",
			Help: "Total number of background tasks dropped after exhausting retries.",
		},
		taskQueueLabels,
	)
)

// Metrics related to the post-crawl pipeline
var (
	pipelineStageLabels       = []string{"stage"}
	pipelineStageStatusLabels = []string{"stage", "status"}

	pipelineStageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboarding_pipeline_stage_duration_seconds",
			Help:    "Histogram of post-crawl pipeline stage durations.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7m
		},
		pipelineStageLabels,
	)
	pipelineStagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_pipeline_stages_total",
			Help: "Total number of pipeline stage runs, labeled by final status.",
		},
		pipelineStageStatusLabels,
	)
	pipelineQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "onboarding_pipeline_queue_length",
		Help: "Approximate number of tasks waiting in the post-crawl worker pool queue.",
	})
)

// Metrics related to the distributed task lock
var (
	lockLabels = []string{"task"}

	lockAcquiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_task_lock_acquired_total",
			Help: "Total number of successful task lock acquisitions.",
		},
		lockLabels,
	)
	lockContendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_task_lock_contended_total",
			Help: "Total number of task lock acquisitions refused because the lock was held.",
		},
		lockLabels,
	)
)

// Labels for database operations
var (
	dbOperationLabels = []string{"operation", "entity", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboarding_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// InitMetrics initializes the Prometheus metrics if enabled.
// Call this function during application startup.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IncWebhookEventsReceived increments the webhook events received counter.
func IncWebhookEventsReceived(eventType string) {
	if !metricsEnabled {
		return
	}
	WebhookEventsReceivedTotal.WithLabelValues(sanitizeLabel(eventType)).Inc()
}

// IncWebhookEventsProcessed increments the webhook events processed counter.
func IncWebhookEventsProcessed(eventType string) {
	if !metricsEnabled {
		return
	}
	WebhookEventsProcessedTotal.WithLabelValues(sanitizeLabel(eventType)).Inc()
}

// IncWebhookEventsFailed increments the webhook events failed counter.
func IncWebhookEventsFailed(eventType string) {
	if !metricsEnabled {
		return
	}
	WebhookEventsFailedTotal.WithLabelValues(sanitizeLabel(eventType)).Inc()
}

// IncWebhookProcessingAction increments the counter for a specific processing outcome.
func IncWebhookProcessingAction(eventType, action, errorType string) {
	if !metricsEnabled {
		return
	}
	WebhookProcessingActionsTotal.WithLabelValues(sanitizeLabel(eventType), action, SanitizeErrorType(errorType)).Inc()
}

// sanitizeLabel ensures the label is valid or returns a default value.
func sanitizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// SanitizeErrorType maps specific errors or provides a default category.
// Keep this simple to avoid high cardinality.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	switch {
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "SQL"), strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "constraint"), strings.Contains(errStr, "connection"):
		return "database"
	case strings.Contains(errStr, "validation failed"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"), strings.Contains(errStr, "missing field"):
		return "validation"
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "nats"), strings.Contains(errStr, "jetstream"):
		return "nats"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "unmarshal"), strings.Contains(errStr, "json"):
		return "unmarshal"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}

// --- Task Queue Metric Helpers ---

// IncTaskQueueSubmitted increments the counter for published background tasks.
func IncTaskQueueSubmitted(taskType string) {
	if !metricsEnabled {
		return
	}
	taskQueueSubmittedTotal.WithLabelValues(sanitizeLabel(taskType)).Inc()
}

// IncTaskQueueProcessed increments the counter for acknowledged background tasks.
func IncTaskQueueProcessed(taskType string) {
	if !metricsEnabled {
		return
	}
	taskQueueProcessedTotal.WithLabelValues(sanitizeLabel(taskType)).Inc()
}

// IncTaskQueueRetry increments the counter for delayed redeliveries.
func IncTaskQueueRetry(taskType string) {
	if !metricsEnabled {
		return
	}
	taskQueueRetriesTotal.WithLabelValues(sanitizeLabel(taskType)).Inc()
}

// IncTaskQueueDropped increments the counter for tasks dropped after exhausting retries.
func IncTaskQueueDropped(taskType string) {
	if !metricsEnabled {
		return
	}
	taskQueueDroppedTotal.WithLabelValues(sanitizeLabel(taskType)).Inc()
}

// --- Pipeline Metric Helpers ---

// ObservePipelineStageDuration records the run time of one pipeline stage.
func ObservePipelineStageDuration(stage string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	pipelineStageDurationSeconds.WithLabelValues(sanitizeLabel(stage)).Observe(duration.Seconds())
	pipelineStagesTotal.WithLabelValues(sanitizeLabel(stage), status).Inc()
}

// SetPipelineQueueLength sets the current post-crawl pool queue length.
func SetPipelineQueueLength(length int) {
	if !metricsEnabled {
		return
	}
	pipelineQueueLength.Set(float64(length))
}

// --- Task Lock Metric Helpers ---

// IncLockAcquired increments the counter for successful lock acquisitions.
func IncLockAcquired(task string) {
	if !metricsEnabled {
		return
	}
	lockAcquiredTotal.WithLabelValues(sanitizeLabel(task)).Inc()
}

// IncLockContended increments the counter for refused lock acquisitions.
func IncLockContended(task string) {
	if !metricsEnabled {
		return
	}
	lockContendedTotal.WithLabelValues(sanitizeLabel(task)).Inc()
}

// --- Database Metric Helpers ---

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}
