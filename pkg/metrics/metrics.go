package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job state machine and sweep instrumentation.
var (
	JobTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stablepay",
		Name:      "job_transitions_total",
		Help:      "Payment job status transitions by target status.",
	}, []string{"status"})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stablepay",
		Name:      "sweep_runs_total",
		Help:      "Maintenance sweep executions by sweep name.",
	}, []string{"sweep"})

	SweepActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stablepay",
		Name:      "sweep_actions_total",
		Help:      "Jobs expired/failed and subscriptions charged by the sweeps.",
	}, []string{"sweep", "action"})

	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stablepay",
		Name:      "webhook_deliveries_total",
		Help:      "Webhook delivery outcomes.",
	}, []string{"status"})
)
