package condition

import (
	"log/slog"
	"strings"

	"github.com/gyaneshwarpardhi/formflow/internal/metrics"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// Evaluate tests one condition against the answer given to a block of the given type.
// Unsupported field/operator pairs and mistyped operands evaluate false; it never panics,
// so a single malformed rule cannot block routing.
func Evaluate(rule workflow.ConditionRule, subtype workflow.BlockType, ans Answer) bool {
	spec, ok := lookup(subtype, rule.Field)
	if !ok || !spec.allows(rule.Operator) {
		metrics.UnsupportedConditions.WithLabelValues(string(subtype)).Inc()
		slog.Debug("unsupported condition",
			"condition_id", rule.ID, "block_type", subtype, "field", rule.Field, "operator", rule.Operator)
		return false
	}
	left, ok := spec.extract(rule.Field, ans)
	if !ok {
		return false
	}
	switch spec.kind {
	case kindNumber:
		return compareNumber(rule.Operator, left, rule.Value)
	case kindBool:
		b, ok := left.(bool)
		return ok && compareBool(rule.Operator, b, rule.Value)
	case kindDate:
		return compareDate(rule.Operator, left, rule.Value)
	case kindWeekday:
		day, ok := left.(string)
		return ok && compareWeekday(rule.Operator, day, rule.Value)
	default:
		s, ok := stringify(left)
		return ok && compareString(rule.Operator, s, rule.Value)
	}
}

// EvaluateGroup combines the group's conditions with its logical operator.
// Conditions are evaluated in order. An empty group never matches; a missing
// operator means AND, an unknown one never matches.
func EvaluateGroup(group workflow.ConditionGroup, subtype workflow.BlockType, ans Answer) bool {
	if !group.HasConditions() {
		return false
	}
	switch workflow.LogicalOperator(strings.ToUpper(string(group.LogicalOperator))) {
	case "", workflow.LogicalAnd:
		for _, c := range group.Conditions {
			if !Evaluate(c, subtype, ans) {
				return false // short-circuit
			}
		}
		return true
	case workflow.LogicalOr:
		for _, c := range group.Conditions {
			if Evaluate(c, subtype, ans) {
				return true // short-circuit
			}
		}
		return false
	default:
		return false
	}
}
