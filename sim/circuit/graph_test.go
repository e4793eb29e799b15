package circuit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCircuit_WireDependencies(t *testing.T) {
	// GIVEN h(0); cx(0,1); x(1) on two qubits
	c := New("bell", 2).Append("h", 0).Append("cx", 0, 1).Append("x", 1)

	// WHEN the graph is built
	g, err := FromCircuit(c)
	require.NoError(t, err)

	// THEN there are 2 inputs + 3 ops + 2 outputs
	assert.Equal(t, 7, g.Len())
	ops := g.Ops()
	require.Len(t, ops, 3)
	assert.Equal(t, "h", ops[0].Name)
	assert.Equal(t, "cx", ops[1].Name)
	assert.Equal(t, []int{0, 1}, ops[1].Qubits)

	// AND cx depends on h (qubit 0) and on the input of qubit 1
	preds := g.Predecessors(ops[1].ID)
	assert.ElementsMatch(t, []int{ops[0].ID, 1}, preds)

	// AND x is the only predecessor of qubit 1's output
	out1 := g.Len() - 1
	assert.Equal(t, []int{ops[2].ID}, g.Predecessors(out1))
}

func TestFromCircuit_InvalidOperand_ReturnsError(t *testing.T) {
	c := New("bad", 2).Append("cx", 0, 2)
	_, err := FromCircuit(c)
	assert.Error(t, err)
}

func TestCircuitValidate_RepeatedQubit(t *testing.T) {
	c := New("bad", 2).Append("cx", 1, 1)
	assert.Error(t, c.Validate())
}

func TestGraph_AddEdge_IgnoresDuplicates(t *testing.T) {
	g := NewGraph()
	a := g.AddOp("cx", 0, 1)
	b := g.AddOp("cx", 0, 1)
	g.AddEdge(a, b)
	g.AddEdge(a, b)
	assert.Equal(t, 1, g.NumEdges())
	assert.Equal(t, []int{b}, g.Successors(a))
}

func TestGraph_TopologicalOrder_EdgesPointForward(t *testing.T) {
	// GIVEN vertices inserted out of dependency order
	g := NewGraph()
	late := g.AddOp("x", 0)
	early := g.AddOp("h", 0)
	g.AddEdge(early, late)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)

	pos := make(map[int]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos[early], pos[late])
}

func TestGraph_TopologicalOrder_Cycle(t *testing.T) {
	g := NewGraph()
	a := g.AddOp("x", 0)
	b := g.AddOp("y", 0)
	g.AddEdge(a, b)
	g.AddEdge(b, a)

	_, err := g.TopologicalOrder()
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestGraph_AddEdge_OutOfRange_Panics(t *testing.T) {
	g := NewGraph()
	g.AddOp("x", 0)
	assert.Panics(t, func() { g.AddEdge(0, 5) })
}

func TestCircuit_Count_IsCaseInsensitive(t *testing.T) {
	c := New("c", 3).Append("SWAP", 0, 1).Append("swap", 1, 2).Append("cx", 0, 1)
	assert.Equal(t, 2, c.Count("swap"))
}
