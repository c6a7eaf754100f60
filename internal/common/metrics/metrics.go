// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsAdmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_admitted_total",
			Help: "Total number of notifications accepted by the admission pipeline",
		},
		[]string{"channel"},
	)

	NotificationsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_rejected_total",
			Help: "Total number of notification requests rejected at admission",
		},
		[]string{"channel", "error_code"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deliveries_total",
			Help: "Total number of delivery attempts by terminal outcome",
		},
		[]string{"channel", "status"},
	)

	RetriesScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_retries_scheduled_total",
			Help: "Total number of retries scheduled by the failure handler",
		},
		[]string{"channel"},
	)

	DeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dead_lettered_total",
			Help: "Total number of notifications routed to the dead letter store",
		},
		[]string{"channel"},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "delivery_duration_seconds",
			Help: "Duration of a single delivery attempt in seconds",
		},
		[]string{"channel"},
	)

	SchedulerRequeued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_requeued_total",
			Help: "Total number of notifications re-published by the retry scheduler",
		},
		[]string{"sweep"},
	)
)
