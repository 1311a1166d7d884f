// Package integrity keeps a form's connection set consistent with its blocks:
// it prunes dangling references, re-attaches rules lost when connections are
// regenerated, and flags cycles.
package integrity

import (
	"log/slog"

	"github.com/gyaneshwarpardhi/formflow/internal/metrics"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// DroppedRule identifies a rule removed from a surviving connection.
type DroppedRule struct {
	ConnectionID string `json:"connection_id"`
	RuleID       string `json:"rule_id"`
	TargetID     string `json:"target_block_id"`
}

// PruneReport lists what ValidateConnections removed.
type PruneReport struct {
	Connections []string      `json:"connections,omitempty"`
	Rules       []DroppedRule `json:"rules,omitempty"`
}

// Empty reports whether nothing was removed.
func (r PruneReport) Empty() bool {
	return len(r.Connections) == 0 && len(r.Rules) == 0
}

// ValidateConnections drops connections whose source or default target is not a
// block, and filters out rules targeting missing blocks from the rest.
// The input slice is not modified.
func ValidateConnections(conns []workflow.Connection, blocks []workflow.Block) []workflow.Connection {
	out, _ := Prune(conns, blocks)
	return out
}

// Prune is ValidateConnections with a report of the removals.
func Prune(conns []workflow.Connection, blocks []workflow.Block) ([]workflow.Connection, PruneReport) {
	ids := blockSet(blocks)
	var report PruneReport
	out := make([]workflow.Connection, 0, len(conns))

	for _, c := range conns {
		if _, ok := ids[c.SourceID]; !ok {
			slog.Debug("pruning connection with missing source", "connection_id", c.ID, "source_id", c.SourceID)
			report.Connections = append(report.Connections, c.ID)
			continue
		}
		if c.DefaultTargetID != nil {
			if _, ok := ids[*c.DefaultTargetID]; !ok {
				slog.Debug("pruning connection with missing default target",
					"connection_id", c.ID, "default_target_id", *c.DefaultTargetID)
				report.Connections = append(report.Connections, c.ID)
				continue
			}
		}

		kept := c.Clone()
		rules := kept.Rules[:0]
		for _, r := range kept.Rules {
			if _, ok := ids[r.TargetBlockID]; !ok {
				slog.Debug("pruning rule with missing target",
					"connection_id", c.ID, "rule_id", r.ID, "target_block_id", r.TargetBlockID)
				report.Rules = append(report.Rules, DroppedRule{ConnectionID: c.ID, RuleID: r.ID, TargetID: r.TargetBlockID})
				continue
			}
			rules = append(rules, r)
		}
		kept.Rules = rules
		out = append(out, kept)
	}

	if !report.Empty() {
		metrics.ConnectionsPruned.Add(float64(len(report.Connections)))
		metrics.RulesPruned.Add(float64(len(report.Rules)))
		slog.Info("pruned dangling references",
			"connections", len(report.Connections), "rules", len(report.Rules))
	}
	return out, report
}

func blockSet(blocks []workflow.Block) map[string]struct{} {
	ids := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		ids[b.ID] = struct{}{}
	}
	return ids
}
