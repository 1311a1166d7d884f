package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoutingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formflow_routing_decisions_total",
		Help: "Total number of next-block resolutions, labelled by form and reason (rule, default, sequence, end).",
	}, []string{"form_id", "reason"})

	UnsupportedConditions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formflow_unsupported_conditions_total",
		Help: "Conditions evaluated false because the field/operator pair is not valid for the block type.",
	}, []string{"block_type"})

	MalformedRules = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formflow_malformed_rules_total",
		Help: "Persisted rule payloads that failed to parse and were replaced by an empty rule set.",
	})

	ConnectionsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formflow_connections_pruned_total",
		Help: "Connections dropped because their source or default target no longer exists.",
	})

	RulesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formflow_rules_pruned_total",
		Help: "Rules dropped because their target block no longer exists.",
	})

	RulesPreserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formflow_rules_preserved_total",
		Help: "Connections whose rules were re-attached after an identity change.",
	})

	CyclicBlocks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "formflow_cyclic_blocks",
		Help: "Number of blocks flagged as part of a cycle, per form.",
	}, []string{"form_id"})

	Simulations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formflow_simulations_total",
		Help: "Respondent path simulations, labelled by how the walk ended.",
	}, []string{"outcome"})

	SimulationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formflow_simulations_dropped_total",
		Help: "Simulations rejected due to a full queue.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "formflow_request_duration_ms",
		Help:    "HTTP request latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"route"})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "formflow_queue_utilization_ratio",
		Help: "Current simulation queue utilization (0–1).",
	})
)
