package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VendorCallsTotal tracks consumed vendor calls per vendor and agent
	VendorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_vendor_calls_total",
			Help: "Total number of vendor calls consumed through the gate",
		},
		[]string{"vendor", "agent"},
	)

	// DenialsTotal tracks gate denials per vendor and reason
	DenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_denials_total",
			Help: "Total number of gate denials",
		},
		[]string{"vendor", "reason"},
	)

	// VendorSpendTotal tracks committed spend per vendor
	VendorSpendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_vendor_spend_total",
			Help: "Total spend committed per vendor in account currency",
		},
		[]string{"vendor"},
	)

	// CircuitState exposes the breaker state per vendor (0 closed, 1 half-open, 2 open)
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gatekeeper_circuit_state",
			Help: "Circuit breaker state per vendor (0=closed, 1=half-open, 2=open)",
		},
		[]string{"vendor"},
	)

	// FailuresRouted tracks failure records routed per bay
	FailuresRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_failures_routed_total",
			Help: "Total number of failure records routed into bays",
		},
		[]string{"bay"},
	)

	// RepairsTotal tracks repaired records per bay
	RepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_repairs_total",
			Help: "Total number of failure records marked repaired",
		},
		[]string{"bay"},
	)

	// JobsEnqueued tracks resume jobs enqueued per type and priority
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_jobs_enqueued_total",
			Help: "Total number of resume jobs enqueued",
		},
		[]string{"type", "priority"},
	)

	// QueueDepth exposes the number of pending jobs
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatekeeper_queue_depth",
			Help: "Number of pending resume jobs",
		},
	)
)
