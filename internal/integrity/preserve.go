package integrity

import (
	"log/slog"

	"github.com/gyaneshwarpardhi/formflow/internal/metrics"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// endpointKey identifies a connection by its endpoints rather than its id,
// e.g. "q1->q2", or "q1->null" when there is no default target.
func endpointKey(c workflow.Connection) string {
	target := "null"
	if c.DefaultTargetID != nil {
		target = *c.DefaultTargetID
	}
	return c.SourceID + "->" + target
}

type ruleIndex map[string]workflow.Connection

// indexRules maps endpoint keys to the first connection carrying rules for them.
func indexRules(conns []workflow.Connection) ruleIndex {
	idx := make(ruleIndex)
	for _, c := range conns {
		if len(c.Rules) == 0 {
			continue
		}
		if _, ok := idx[endpointKey(c)]; !ok {
			idx[endpointKey(c)] = c
		}
	}
	return idx
}

// apply copies indexed rules onto connections that have none. It returns the
// repaired slice and how many connections received rules.
func (idx ruleIndex) apply(conns []workflow.Connection) ([]workflow.Connection, int) {
	out := make([]workflow.Connection, len(conns))
	restored := 0
	for i, c := range conns {
		out[i] = c.Clone()
		if len(c.Rules) > 0 {
			continue
		}
		src, ok := idx[endpointKey(c)]
		if !ok || src.ID == c.ID {
			continue
		}
		out[i].Rules = workflow.CloneRules(src.Rules)
		out[i].ConditionType = workflow.ConditionConditional
		restored++
		slog.Debug("re-attached rules to regenerated connection",
			"connection_id", c.ID, "from_connection_id", src.ID, "key", endpointKey(c), "rules", len(src.Rules))
	}
	if restored > 0 {
		metrics.RulesPreserved.Add(float64(restored))
	}
	return out, restored
}

// PreserveRules re-attaches rules to connections that lost them when their ids
// were regenerated. A connection without rules receives a copy of the rules of
// another connection in the set with the same source and default target.
func PreserveRules(conns []workflow.Connection) []workflow.Connection {
	out, _ := indexRules(conns).apply(conns)
	return out
}

// Reattach is PreserveRules across generations: rules are looked up in the
// previous connection set and copied onto matching regenerated connections.
func Reattach(previous, regenerated []workflow.Connection) []workflow.Connection {
	out, _ := indexRules(previous).apply(regenerated)
	return out
}
