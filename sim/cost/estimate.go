// Package cost turns a compiled instruction graph and a node's calibration
// table into fidelity and duration estimates.
//
// The model is a multiplicative gate-error approximation: fidelity is the
// product of (1 - error) over every operation, and execution time is the
// critical-path duration repeated once per shot with no inter-shot pipelining.
package cost

import (
	"fmt"
	"math"
	"strings"

	"github.com/qcloud-sim/qcloud-sim/sim/calibration"
	"github.com/qcloud-sim/qcloud-sim/sim/circuit"
)

const (
	// DefaultShots is used when a non-positive shot count is supplied.
	DefaultShots = 1024

	// DefaultTwoQubitDuration applies to uncalibrated cx/cnot/cz operations (seconds).
	DefaultTwoQubitDuration = 300e-9
	// DefaultDuration applies to every other uncalibrated operation (seconds).
	DefaultDuration = 50e-9
	// DefaultError applies to operations without a calibrated error rate.
	DefaultError = 1e-3
)

// slowGates get DefaultTwoQubitDuration when uncalibrated on two operands.
var slowGates = map[string]bool{"cx": true, "cnot": true, "cz": true}

// Estimate is the cost of running one compiled graph on one node.
type Estimate struct {
	Fidelity     float64 // in [0,1]
	ExecTime     float64 // CriticalPath × shots, seconds
	CriticalPath float64 // single-shot duration, seconds
	SwapCount    int
}

func (e Estimate) String() string {
	return fmt.Sprintf("Estimate: (Fidelity: %.6f, ExecTime: %.9fs, Swaps: %d)", e.Fidelity, e.ExecTime, e.SwapCount)
}

// OpDuration is the duration of one operation under table, with defaults.
func OpDuration(table calibration.Table, op string, qubits []int) float64 {
	if d, ok := table.Duration(op, qubits); ok {
		return d
	}
	if len(qubits) == 2 && slowGates[strings.ToLower(op)] {
		return DefaultTwoQubitDuration
	}
	return DefaultDuration
}

// OpError is the error rate of one operation under table, with the default.
func OpError(table calibration.Table, op string, qubits []int) float64 {
	if e, ok := table.Error(op, qubits); ok {
		return e
	}
	return DefaultError
}

// EstimateGraph computes fidelity, execution time and swap count for g.
//
// longest_to[n] is the maximum over predecessors p of longest_to[p]+duration(p),
// computed in one forward topological pass (O(V+E)); the critical path is the
// maximum of longest_to[n]+duration(n). Neither g nor table is modified.
// The only error is a cyclic graph.
func EstimateGraph(g *circuit.Graph, table calibration.Table, shots int) (Estimate, error) {
	if shots <= 0 {
		shots = DefaultShots
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return Estimate{}, err
	}

	duration := make([]float64, g.Len())
	fidelity := 1.0
	swaps := 0
	for id := 0; id < g.Len(); id++ {
		v := g.Vertex(id)
		if !v.IsOp() {
			continue
		}
		duration[id] = OpDuration(table, v.Name, v.Qubits)
		fidelity *= math.Max(0, 1-OpError(table, v.Name, v.Qubits))
		if strings.ToLower(v.Name) == "swap" {
			swaps++
		}
	}

	longestTo := make([]float64, g.Len())
	critical := 0.0
	for _, id := range order {
		for _, p := range g.Predecessors(id) {
			if cand := longestTo[p] + duration[p]; cand > longestTo[id] {
				longestTo[id] = cand
			}
		}
		if end := longestTo[id] + duration[id]; end > critical {
			critical = end
		}
	}

	return Estimate{
		Fidelity:     fidelity,
		ExecTime:     critical * float64(shots),
		CriticalPath: critical,
		SwapCount:    swaps,
	}, nil
}
