package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	TransfersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_transfers_submitted_total",
		Help: "The total number of submitted transfer requests by kind and outcome",
	}, []string{"kind", "status"})

	StepsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_steps_executed_total",
		Help: "The total number of executed plan steps by chain, action and outcome",
	}, []string{"chain_id", "action", "status"})

	StepExecutionTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orchestrator_step_execution_seconds",
		Help:    "Time from step submission to confirmed receipt",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // Start at 1s with 10 buckets doubling in size
	}, []string{"chain_id"})

	ConfirmationAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orchestrator_confirmation_attempts",
		Help:    "Receipt polls needed before a transaction confirmed",
		Buckets: prometheus.ExponentialBuckets(1, 2, 9),
	}, []string{"chain_id"})

	ConfirmationTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_confirmation_timeouts_total",
		Help: "Transactions that exhausted the confirmation budget",
	}, []string{"chain_id"})

	ApprovalsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_approvals_sent_total",
		Help: "ERC-20 approval transactions broadcast by chain",
	}, []string{"chain_id"})

	GasPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orchestrator_gas_price_gwei",
		Help: "Current gas price in gwei",
	}, []string{"chain_id"})

	PendingSecondLegs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orchestrator_pending_second_legs",
		Help: "Persisted bridge second legs waiting for resumption",
	})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_sweep_runs_total",
		Help: "Resumption sweep executions by result",
	}, []string{"result"})

	SweepRecordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_sweep_records_total",
		Help: "Due records handled by the sweep, by final disposition",
	}, []string{"disposition"})

	PreflightFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_preflight_failures_total",
		Help: "Plans rejected before broadcast by chain and reason",
	}, []string{"chain_id", "reason"})

	SubmissionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_submission_errors_total",
		Help: "Signer broadcast failures by chain",
	}, []string{"chain_id"})
)
