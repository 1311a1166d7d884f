package routing

import (
	"github.com/gyaneshwarpardhi/formflow/internal/condition"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// Step is one block visited by a walk and the decision taken on leaving it.
type Step struct {
	BlockID  string   `json:"block_id"`
	Decision Decision `json:"decision"`
}

// Path is the route a respondent takes through a form.
type Path struct {
	Steps   []Step `json:"steps"`
	Stopped Reason `json:"stopped"` // end, revisit or max_steps
}

// Blocks returns the visited block ids in order.
func (p Path) Blocks() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.BlockID
	}
	return out
}

// Walk follows the form from its first block using the given answers, keyed by
// block id. Unanswered blocks route with an empty answer.
func Walk(g *workflow.Graph, answers map[string]condition.Answer, maxSteps int) Path {
	return WalkFrom(g, g.First(), answers, maxSteps)
}

// WalkFrom is Walk starting at an arbitrary block. It stops at end of flow,
// when a block would be visited twice, or after maxSteps blocks (maxSteps <= 0
// means no limit besides revisits).
func WalkFrom(g *workflow.Graph, start string, answers map[string]condition.Answer, maxSteps int) Path {
	var p Path
	if start == "" || !g.HasBlock(start) {
		p.Stopped = ReasonEnd
		return p
	}
	visited := make(map[string]bool)
	cur := start
	for {
		visited[cur] = true
		d := Next(g, cur, answers[cur])
		p.Steps = append(p.Steps, Step{BlockID: cur, Decision: d})

		switch {
		case d.End():
			p.Stopped = ReasonEnd
			return p
		case visited[d.Next]:
			p.Stopped = ReasonRevisit
			return p
		case maxSteps > 0 && len(p.Steps) >= maxSteps:
			p.Stopped = ReasonMaxSteps
			return p
		}
		cur = d.Next
	}
}
