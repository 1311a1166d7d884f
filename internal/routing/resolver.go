package routing

import (
	"github.com/gyaneshwarpardhi/formflow/internal/condition"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// Reason explains how a routing decision was reached.
type Reason string

const (
	ReasonRule     Reason = "rule"     // a rule's condition group matched
	ReasonDefault  Reason = "default"  // unconditional, or no rule matched
	ReasonEnd      Reason = "end"      // nothing to route to: end of flow
	ReasonSequence Reason = "sequence" // no connection, next block by order_index
	ReasonRevisit  Reason = "revisit"  // walk stopped on a block already visited
	ReasonMaxSteps Reason = "max_steps"
)

// Decision is the outcome of routing one answer.
type Decision struct {
	Next   string `json:"next,omitempty"`
	Reason Reason `json:"reason"`
	RuleID string `json:"rule_id,omitempty"`
}

// End reports whether routing terminated without a next block.
func (d Decision) End() bool { return d.Next == "" }

// Resolve picks the next block for an answer given to sourceID.
// Rules are tried in order and the first whose group matches wins; otherwise
// the default target is used, and with no default the flow ends.
// The connection and graph are never modified.
func Resolve(g *workflow.Graph, sourceID string, conn *workflow.Connection, ans condition.Answer) Decision {
	if conn == nil {
		return Decision{Reason: ReasonEnd}
	}
	if !conn.Unconditional() {
		subtype := sourceType(g, sourceID)
		for _, rule := range conn.Rules {
			if condition.EvaluateGroup(rule.ConditionGroup, subtype, ans) {
				return Decision{Next: rule.TargetBlockID, Reason: ReasonRule, RuleID: rule.ID}
			}
		}
	}
	if conn.DefaultTargetID == nil {
		return Decision{Reason: ReasonEnd}
	}
	return Decision{Next: *conn.DefaultTargetID, Reason: ReasonDefault}
}

// ResolveNext is Resolve reduced to the next block id; ok is false at end of flow.
func ResolveNext(g *workflow.Graph, sourceID string, conn *workflow.Connection, ans condition.Answer) (string, bool) {
	d := Resolve(g, sourceID, conn, ans)
	return d.Next, !d.End()
}

// Next routes through the block's outgoing connection. Blocks without one
// advance along the order_index sequence.
func Next(g *workflow.Graph, sourceID string, ans condition.Answer) Decision {
	conn := g.Connection(sourceID)
	if conn != nil {
		return Resolve(g, sourceID, conn, ans)
	}
	if next, ok := g.NextInSequence(sourceID); ok {
		return Decision{Next: next, Reason: ReasonSequence}
	}
	return Decision{Reason: ReasonEnd}
}

func sourceType(g *workflow.Graph, sourceID string) workflow.BlockType {
	if g == nil {
		return ""
	}
	if b := g.Block(sourceID); b != nil {
		return b.Type
	}
	return ""
}
