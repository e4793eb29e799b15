// Package compile lowers task payloads into node-specific instruction graphs.
//
// The simulator treats compilation as an external service behind the Compiler
// interface. Transpiler is the reference implementation: trivial initial layout
// plus SWAP insertion along shortest coupling-map paths.
package compile

import (
	"context"
	"errors"
	"fmt"

	"github.com/qcloud-sim/qcloud-sim/sim/circuit"
	"github.com/qcloud-sim/qcloud-sim/sim/device"
)

var (
	// ErrCircuitTooWide means the payload needs more qubits than the node has.
	ErrCircuitTooWide = errors.New("circuit too wide for target")
	// ErrUnknownTarget means the node identity is not a known device.
	ErrUnknownTarget = errors.New("unknown compilation target")
	// ErrUnsupportedPayload means the payload is not a *circuit.Circuit.
	ErrUnsupportedPayload = errors.New("unsupported payload type")
	// ErrUnsupportedGate means a gate acts on more than two qubits.
	ErrUnsupportedGate = errors.New("unsupported gate arity")
)

// Compiler lowers an opaque payload for the node with the given identity.
// Any error is a per-task compilation failure.
type Compiler interface {
	Compile(ctx context.Context, payload any, nodeID string) (*circuit.Graph, error)
}

// Func adapts a function to Compiler.
type Func func(ctx context.Context, payload any, nodeID string) (*circuit.Graph, error)

// Compile implements Compiler.
func (f Func) Compile(ctx context.Context, payload any, nodeID string) (*circuit.Graph, error) {
	return f(ctx, payload, nodeID)
}

// Transpiler compiles *circuit.Circuit payloads against a device catalog.
type Transpiler struct {
	catalog *device.Catalog
}

// NewTranspiler returns a Transpiler targeting the devices in catalog.
func NewTranspiler(catalog *device.Catalog) *Transpiler {
	return &Transpiler{catalog: catalog}
}

// Compile implements Compiler.
func (t *Transpiler) Compile(ctx context.Context, payload any, nodeID string) (*circuit.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := payload.(*circuit.Circuit)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, payload)
	}
	d, ok := t.catalog.Device(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, nodeID)
	}
	routed, err := Route(c, d)
	if err != nil {
		return nil, err
	}
	return circuit.FromCircuit(routed)
}

// Route maps c onto d's physical qubits. Logical qubit i starts on physical
// qubit i. A two-qubit gate on non-adjacent qubits first moves its first
// operand along a shortest path with SWAPs until the operands are neighbours.
// Barriers pass through with mapped operands regardless of arity.
func Route(c *circuit.Circuit, d *device.Device) (*circuit.Circuit, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.NumQubits > d.NumQubits {
		return nil, fmt.Errorf("%w: %s needs %d qubits, %s has %d", ErrCircuitTooWide, c.Name, c.NumQubits, d.Name, d.NumQubits)
	}

	l := newLayout(c.NumQubits, d.NumQubits)
	adj := d.Adjacency()
	out := circuit.New(c.Name, d.NumQubits)

	for _, g := range c.Gates {
		switch {
		case g.Name == "barrier" || len(g.Qubits) <= 1:
			out.Append(g.Name, l.physical(g.Qubits)...)
		case len(g.Qubits) == 2:
			a, b := l.log2phys[g.Qubits[0]], l.log2phys[g.Qubits[1]]
			if adj != nil && !adjacent(adj, a, b) {
				path := shortestPath(adj, a, b)
				if path == nil {
					return nil, fmt.Errorf("%s: physical qubits %d and %d are disconnected", d.Name, a, b)
				}
				for i := 0; i+2 < len(path); i++ {
					out.Append("swap", path[i], path[i+1])
					l.swap(path[i], path[i+1])
				}
			}
			out.Append(g.Name, l.physical(g.Qubits)...)
		default:
			return nil, fmt.Errorf("%w: %s acts on %d qubits", ErrUnsupportedGate, g.Name, len(g.Qubits))
		}
	}
	return out, nil
}

type layout struct {
	log2phys []int
	phys2log []int // -1 for physical qubits holding no logical qubit
}

func newLayout(logical, physical int) *layout {
	l := &layout{log2phys: make([]int, logical), phys2log: make([]int, physical)}
	for p := range l.phys2log {
		l.phys2log[p] = -1
	}
	for q := range l.log2phys {
		l.log2phys[q] = q
		l.phys2log[q] = q
	}
	return l
}

func (l *layout) physical(logical []int) []int {
	out := make([]int, len(logical))
	for i, q := range logical {
		out[i] = l.log2phys[q]
	}
	return out
}

func (l *layout) swap(x, y int) {
	lx, ly := l.phys2log[x], l.phys2log[y]
	l.phys2log[x], l.phys2log[y] = ly, lx
	if lx >= 0 {
		l.log2phys[lx] = y
	}
	if ly >= 0 {
		l.log2phys[ly] = x
	}
}

func adjacent(adj [][]int, a, b int) bool {
	for _, n := range adj[a] {
		if n == b {
			return true
		}
	}
	return false
}

// shortestPath is a BFS from src to dst, visiting neighbours in adjacency
// order. Returns nil when dst is unreachable.
func shortestPath(adj [][]int, src, dst int) []int {
	prev := make([]int, len(adj))
	for i := range prev {
		prev[i] = -1
	}
	prev[src] = src
	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			break
		}
		for _, n := range adj[cur] {
			if prev[n] == -1 {
				prev[n] = cur
				queue = append(queue, n)
			}
		}
	}
	if prev[dst] == -1 {
		return nil
	}
	var path []int
	for at := dst; at != src; at = prev[at] {
		path = append(path, at)
	}
	path = append(path, src)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
