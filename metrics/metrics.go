// Package metrics defines the Prometheus instrumentation of the service
// substrate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pool metrics
var (
	// TasksSubmittedTotal tracks submitted units of work by pool
	TasksSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servicekit_tasks_submitted_total",
			Help: "Total units of work submitted by pool",
		},
		[]string{"pool"},
	)

	// TasksCompletedTotal tracks completed units of work by pool and status
	TasksCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servicekit_tasks_completed_total",
			Help: "Total units of work completed by pool and status (ok/error/cancelled)",
		},
		[]string{"pool", "status"},
	)

	// PoolWorkers tracks current worker count by pool
	PoolWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "servicekit_pool_workers",
			Help: "Current worker count by pool",
		},
		[]string{"pool"},
	)

	// PoolBacklog tracks queued units of work by pool
	PoolBacklog = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "servicekit_pool_backlog",
			Help: "Units of work waiting in the pool backlog",
		},
		[]string{"pool"},
	)
)

// Shutdown metrics
var (
	// ShutdownStageFailuresTotal tracks failed shutdown stage hooks
	ShutdownStageFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "servicekit_shutdown_stage_failures_total",
			Help: "Shutdown stage hooks that failed during global shutdown",
		},
	)

	// PoolTerminationTimeoutsTotal tracks pools that survived both termination phases
	PoolTerminationTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "servicekit_pool_termination_timeouts_total",
			Help: "Pool terminations that gave up after the graceful and forced phases",
		},
	)
)

// Gateway metrics
var (
	// CallTimeoutsTotal tracks blocking run/call invocations that exceeded their deadline
	CallTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "servicekit_call_timeouts_total",
			Help: "Blocking run/call invocations cancelled on deadline expiry",
		},
	)
)
