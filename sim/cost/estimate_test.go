package cost

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcloud-sim/qcloud-sim/sim/calibration"
	"github.com/qcloud-sim/qcloud-sim/sim/circuit"
	"github.com/qcloud-sim/qcloud-sim/sim/internal/testutil"
)

// twoSequentialOps builds a -> b on qubit 0 with no structural vertices.
func twoSequentialOps() *circuit.Graph {
	g := circuit.NewGraph()
	a := g.AddOp("x", 0)
	b := g.AddOp("y", 0)
	g.AddEdge(a, b)
	return g
}

func TestEstimateGraph_CriticalPath_SequentialOps(t *testing.T) {
	// GIVEN two sequential operations of duration 100 and 200
	table := calibration.Table{
		calibration.NewKey("x", []int{0}): {Duration: calibration.Float(100)},
		calibration.NewKey("y", []int{0}): {Duration: calibration.Float(200)},
	}

	// WHEN estimated with 4 shots
	est, err := EstimateGraph(twoSequentialOps(), table, 4)
	require.NoError(t, err)

	// THEN critical path is 300 and exec time scales with shots
	assert.Equal(t, 300.0, est.CriticalPath)
	assert.Equal(t, 1200.0, est.ExecTime)
}

func TestEstimateGraph_Fidelity_IsProductOfOneMinusError(t *testing.T) {
	table := calibration.Table{
		calibration.NewKey("x", []int{0}): {Error: calibration.Float(0.1)},
		calibration.NewKey("y", []int{0}): {Error: calibration.Float(0.2)},
	}
	est, err := EstimateGraph(twoSequentialOps(), table, 1)
	require.NoError(t, err)
	testutil.AssertFloat64Equal(t, "fidelity", 0.72, est.Fidelity, 1e-12)
}

func TestEstimateGraph_ParallelBranches_TakeLongest(t *testing.T) {
	// GIVEN  in -> a(100) -> out  and  in -> b(250) -> out
	g := circuit.NewGraph()
	in := g.AddStructural("in")
	a := g.AddOp("a", 0)
	b := g.AddOp("b", 1)
	out := g.AddStructural("out")
	g.AddEdge(in, a)
	g.AddEdge(in, b)
	g.AddEdge(a, out)
	g.AddEdge(b, out)
	table := calibration.Table{
		calibration.NewKey("a", []int{0}): {Duration: calibration.Float(100)},
		calibration.NewKey("b", []int{1}): {Duration: calibration.Float(250)},
	}

	est, err := EstimateGraph(g, table, 1)
	require.NoError(t, err)
	assert.Equal(t, 250.0, est.CriticalPath)
}

func TestEstimateGraph_UncalibratedDefaults(t *testing.T) {
	// GIVEN cx then h on an empty calibration table
	c := circuit.New("c", 2).Append("CX", 0, 1).Append("h", 0)
	g, err := circuit.FromCircuit(c)
	require.NoError(t, err)

	est, err := EstimateGraph(g, calibration.Table{}, 1)
	require.NoError(t, err)

	// THEN cx uses the two-qubit default and h the generic default
	testutil.AssertFloat64Equal(t, "critical path", DefaultTwoQubitDuration+DefaultDuration, est.CriticalPath, 1e-12)
	testutil.AssertFloat64Equal(t, "fidelity", (1-DefaultError)*(1-DefaultError), est.Fidelity, 1e-12)
}

func TestEstimateGraph_CountsSwaps(t *testing.T) {
	c := circuit.New("c", 3).Append("swap", 0, 1).Append("SWAP", 1, 2).Append("cx", 0, 1)
	g, err := circuit.FromCircuit(c)
	require.NoError(t, err)

	est, err := EstimateGraph(g, calibration.Table{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, est.SwapCount)
}

func TestEstimateGraph_ErrorAboveOne_ClampsFidelityAtZero(t *testing.T) {
	g := circuit.NewGraph()
	g.AddOp("bad", 0)
	// Tables built by FromRecords reject this, but hand-built ones may not.
	table := calibration.Table{calibration.NewKey("bad", []int{0}): {Error: calibration.Float(1.5)}}

	est, err := EstimateGraph(g, table, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, est.Fidelity)
}

func TestEstimateGraph_NonPositiveShots_UseDefault(t *testing.T) {
	table := calibration.Table{calibration.NewKey("x", []int{0}): {Duration: calibration.Float(1)}}
	g := circuit.NewGraph()
	g.AddOp("x", 0)

	est, err := EstimateGraph(g, table, 0)
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultShots), est.ExecTime)
}

func TestEstimateGraph_EmptyGraph(t *testing.T) {
	est, err := EstimateGraph(circuit.NewGraph(), calibration.Table{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, est.Fidelity)
	assert.Equal(t, 0.0, est.ExecTime)
}

func TestEstimateGraph_Cycle_ReturnsError(t *testing.T) {
	g := circuit.NewGraph()
	a := g.AddOp("x", 0)
	b := g.AddOp("y", 0)
	g.AddEdge(a, b)
	g.AddEdge(b, a)

	_, err := EstimateGraph(g, calibration.Table{}, 1)
	assert.True(t, errors.Is(err, circuit.ErrCycle))
}

func TestEstimateGraph_DoesNotMutateInputs(t *testing.T) {
	table := calibration.Table{calibration.NewKey("x", []int{0}): {Duration: calibration.Float(5)}}
	g := twoSequentialOps()
	edgesBefore, lenBefore := g.NumEdges(), g.Len()

	_, err := EstimateGraph(g, table, 3)
	require.NoError(t, err)

	assert.Equal(t, edgesBefore, g.NumEdges())
	assert.Equal(t, lenBefore, g.Len())
	assert.Len(t, table, 1)
	assert.Equal(t, 5.0, *table[calibration.NewKey("x", []int{0})].Duration)
}
