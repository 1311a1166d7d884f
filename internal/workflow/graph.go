package workflow

import "sort"

// Graph holds a form's blocks and its outgoing connections keyed by source block.
// It is immutable once built; hot-reload builds a new Graph and swaps it atomically.
type Graph struct {
	blocks      map[string]*Block      // id → Block
	connections map[string]*Connection // source id → outgoing connection
	order       []string               // block ids by order_index
	position    map[string]int         // block id → index into order
}

// NewGraph builds a Graph from blocks and connections.
// Connections are taken as given; run them through integrity.ValidateConnections first.
// When several connections share a source, the lowest OrderIndex wins.
func NewGraph(blocks []Block, conns []Connection) *Graph {
	g := &Graph{
		blocks:      make(map[string]*Block, len(blocks)),
		connections: make(map[string]*Connection, len(conns)),
		position:    make(map[string]int, len(blocks)),
	}
	for i := range blocks {
		b := blocks[i]
		g.blocks[b.ID] = &b
	}
	g.order = make([]string, 0, len(g.blocks))
	for id := range g.blocks {
		g.order = append(g.order, id)
	}
	sort.Slice(g.order, func(i, j int) bool {
		bi, bj := g.blocks[g.order[i]], g.blocks[g.order[j]]
		if bi.OrderIndex != bj.OrderIndex {
			return bi.OrderIndex < bj.OrderIndex
		}
		return bi.ID < bj.ID
	})
	for i, id := range g.order {
		g.position[id] = i
	}
	for i := range conns {
		c := conns[i]
		if prev, ok := g.connections[c.SourceID]; ok && prev.OrderIndex <= c.OrderIndex {
			continue
		}
		g.connections[c.SourceID] = &c
	}
	return g
}

// Block returns a block by ID (nil if not found).
func (g *Graph) Block(id string) *Block {
	return g.blocks[id]
}

// HasBlock reports whether id names a block of this form.
func (g *Graph) HasBlock(id string) bool {
	_, ok := g.blocks[id]
	return ok
}

// Connection returns the outgoing connection of a block (nil if it has none).
func (g *Graph) Connection(sourceID string) *Connection {
	return g.connections[sourceID]
}

// Blocks returns the blocks in order_index order.
func (g *Graph) Blocks() []Block {
	out := make([]Block, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.blocks[id])
	}
	return out
}

// Connections returns the outgoing connections in block order.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, 0, len(g.connections))
	for _, id := range g.order {
		if c, ok := g.connections[id]; ok {
			out = append(out, *c)
		}
	}
	return out
}

// First returns the id of the block with the lowest order_index ("" for an empty form).
func (g *Graph) First() string {
	if len(g.order) == 0 {
		return ""
	}
	return g.order[0]
}

// NextInSequence returns the block following id in the default linear sequence.
func (g *Graph) NextInSequence(id string) (string, bool) {
	i, ok := g.position[id]
	if !ok || i+1 >= len(g.order) {
		return "", false
	}
	return g.order[i+1], true
}

// BlockCount returns the total number of blocks.
func (g *Graph) BlockCount() int {
	return len(g.blocks)
}

// ConnectionCount returns the number of blocks with an outgoing connection.
func (g *Graph) ConnectionCount() int {
	return len(g.connections)
}
