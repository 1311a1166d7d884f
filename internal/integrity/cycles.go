package integrity

import (
	"sort"

	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// adjacency builds the out-edges of every block: its default target plus every
// rule target. Edges to unknown blocks are skipped.
func adjacency(blocks []workflow.Block, conns []workflow.Connection) (map[string][]string, []string) {
	ids := blockSet(blocks)
	order := make([]string, 0, len(blocks))
	for _, b := range blocks {
		order = append(order, b.ID)
	}
	sort.Strings(order)

	edges := make(map[string][]string, len(blocks))
	for _, c := range conns {
		if _, ok := ids[c.SourceID]; !ok {
			continue
		}
		for _, t := range c.Targets() {
			if _, ok := ids[t]; ok {
				edges[c.SourceID] = append(edges[c.SourceID], t)
			}
		}
	}
	return edges, order
}

// tarjan finds strongly connected components. Every block on a cycle belongs
// to a component with more than one member or has an edge to itself.
type tarjan struct {
	edges   map[string][]string
	index   map[string]int
	low     map[string]int
	onStack map[string]bool
	stack   []string
	next    int
	comps   [][]string
}

func (t *tarjan) visit(v string) {
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.edges[v] {
		if _, seen := t.index[w]; !seen {
			t.visit(w)
			t.low[v] = min(t.low[v], t.low[w])
		} else if t.onStack[w] {
			t.low[v] = min(t.low[v], t.index[w])
		}
	}

	if t.low[v] != t.index[v] {
		return
	}
	var comp []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		comp = append(comp, w)
		if w == v {
			break
		}
	}
	t.comps = append(t.comps, comp)
}

func selfLoop(edges map[string][]string, v string) bool {
	for _, w := range edges[v] {
		if w == v {
			return true
		}
	}
	return false
}

// Cycles returns the groups of blocks that form cycles, each sorted by id,
// ordered by their first id.
func Cycles(blocks []workflow.Block, conns []workflow.Connection) [][]string {
	edges, order := adjacency(blocks, conns)
	t := &tarjan{
		edges:   edges,
		index:   make(map[string]int, len(order)),
		low:     make(map[string]int, len(order)),
		onStack: make(map[string]bool, len(order)),
	}
	for _, v := range order {
		if _, seen := t.index[v]; !seen {
			t.visit(v)
		}
	}

	var out [][]string
	for _, comp := range t.comps {
		if len(comp) == 1 && !selfLoop(edges, comp[0]) {
			continue
		}
		sort.Strings(comp)
		out = append(out, comp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// DetectCycles flags every block that lies on a cycle of default and rule
// targets. Blocks not on a cycle map to false. A cycle is a warning for the
// form author, not an error.
func DetectCycles(blocks []workflow.Block, conns []workflow.Connection) map[string]bool {
	flags := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		flags[b.ID] = false
	}
	for _, comp := range Cycles(blocks, conns) {
		for _, id := range comp {
			flags[id] = true
		}
	}
	return flags
}
