package integrity

import "github.com/gyaneshwarpardhi/formflow/internal/workflow"

// Result is the outcome of Repair.
type Result struct {
	Connections []workflow.Connection `json:"-"`
	Pruned      PruneReport           `json:"pruned"`
	Preserved   int                   `json:"preserved"`
	Cyclic      map[string]bool       `json:"cyclic"`
	Cycles      [][]string            `json:"cycles,omitempty"`
}

// HasCycles reports whether any block lies on a cycle.
func (r *Result) HasCycles() bool { return len(r.Cycles) > 0 }

// Repair prunes dangling references, re-attaches rules by endpoint key, and
// flags cycles on the repaired connection set.
func Repair(blocks []workflow.Block, conns []workflow.Connection) *Result {
	pruned, report := Prune(conns, blocks)
	preserved, n := indexRules(pruned).apply(pruned)

	cycles := Cycles(blocks, preserved)
	cyclic := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		cyclic[b.ID] = false
	}
	for _, comp := range cycles {
		for _, id := range comp {
			cyclic[id] = true
		}
	}
	return &Result{
		Connections: preserved,
		Pruned:      report,
		Preserved:   n,
		Cyclic:      cyclic,
		Cycles:      cycles,
	}
}
