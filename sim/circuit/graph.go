package circuit

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when a graph has no topological order.
var ErrCycle = errors.New("instruction graph contains a cycle")

// VertexKind distinguishes operations from zero-cost structural vertices.
type VertexKind int

const (
	KindOp VertexKind = iota
	KindStructural
)

// Vertex is one node of an instruction graph.
type Vertex struct {
	ID     int
	Kind   VertexKind
	Name   string // operation name, or a label such as "in"/"out" for structural vertices
	Qubits []int  // ordered operand tuple
}

// IsOp reports whether the vertex is an operation.
func (v Vertex) IsOp() bool { return v.Kind == KindOp }

// Graph is a directed acyclic instruction graph. Vertex IDs are dense and
// assigned in insertion order. Graphs are read-only once handed to the estimator.
type Graph struct {
	vertices []Vertex
	succ     [][]int
	pred     [][]int
	edges    int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// AddOp appends an operation vertex and returns its ID.
func (g *Graph) AddOp(name string, qubits ...int) int {
	return g.add(KindOp, name, qubits)
}

// AddStructural appends a zero-cost structural vertex and returns its ID.
func (g *Graph) AddStructural(label string, qubits ...int) int {
	return g.add(KindStructural, label, qubits)
}

func (g *Graph) add(kind VertexKind, name string, qubits []int) int {
	id := len(g.vertices)
	g.vertices = append(g.vertices, Vertex{
		ID:     id,
		Kind:   kind,
		Name:   name,
		Qubits: append([]int(nil), qubits...),
	})
	g.succ = append(g.succ, nil)
	g.pred = append(g.pred, nil)
	return id
}

// AddEdge adds a dependency from -> to. Duplicate edges are ignored.
// Panics if either endpoint does not exist.
func (g *Graph) AddEdge(from, to int) {
	if from < 0 || from >= len(g.vertices) || to < 0 || to >= len(g.vertices) {
		panic(fmt.Sprintf("AddEdge: vertex out of range (%d -> %d, have %d)", from, to, len(g.vertices)))
	}
	for _, s := range g.succ[from] {
		if s == to {
			return
		}
	}
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
	g.edges++
}

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.vertices) }

// NumEdges returns the number of distinct edges.
func (g *Graph) NumEdges() int { return g.edges }

// Vertex returns the vertex with the given ID.
func (g *Graph) Vertex(id int) Vertex { return g.vertices[id] }

// Successors returns the IDs of direct successors. Callers must not modify the slice.
func (g *Graph) Successors(id int) []int { return g.succ[id] }

// Predecessors returns the IDs of direct predecessors. Callers must not modify the slice.
func (g *Graph) Predecessors(id int) []int { return g.pred[id] }

// Ops returns the operation vertices in ID order.
func (g *Graph) Ops() []Vertex {
	ops := make([]Vertex, 0, len(g.vertices))
	for _, v := range g.vertices {
		if v.IsOp() {
			ops = append(ops, v)
		}
	}
	return ops
}

// TopologicalOrder returns vertex IDs such that every edge points forward.
// Kahn's algorithm with a FIFO ready list seeded in ID order, so the result is
// deterministic. Returns ErrCycle if some vertices can never become ready.
func (g *Graph) TopologicalOrder() ([]int, error) {
	indeg := make([]int, len(g.vertices))
	for id := range g.vertices {
		indeg[id] = len(g.pred[id])
	}
	ready := make([]int, 0, len(g.vertices))
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	order := make([]int, 0, len(g.vertices))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, s := range g.succ[id] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	if len(order) != len(g.vertices) {
		return nil, fmt.Errorf("%w: %d of %d vertices unreachable in order", ErrCycle, len(g.vertices)-len(order), len(g.vertices))
	}
	return order, nil
}

// FromCircuit builds the wire-dependency graph of c: one "in" and one "out"
// structural vertex per qubit, and one operation vertex per gate that depends on
// the previous instruction on each of its qubits.
func FromCircuit(c *Circuit) (*Graph, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	g := NewGraph()
	last := make([]int, c.NumQubits)
	for q := 0; q < c.NumQubits; q++ {
		last[q] = g.AddStructural("in", q)
	}
	for _, gate := range c.Gates {
		v := g.AddOp(gate.Name, gate.Qubits...)
		for _, q := range gate.Qubits {
			g.AddEdge(last[q], v)
			last[q] = v
		}
	}
	for q := 0; q < c.NumQubits; q++ {
		out := g.AddStructural("out", q)
		g.AddEdge(last[q], out)
	}
	return g, nil
}
