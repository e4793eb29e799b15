// Aggregates execution records into run-level metrics for reporting and for
// comparing policies.

package sim

import (
	"fmt"
	"io"
	"sort"
)

// NodeStats summarises what one node served.
type NodeStats struct {
	Tasks       int
	Failed      int
	BusyTime    float64 // sum of hold durations
	Utilization float64 // BusyTime / makespan
}

// RunMetrics aggregates the records of one run.
//
// Timing statistics cover every task that held a node, failed compilations
// included. Fidelity, execution time and swaps cover successful tasks only.
type RunMetrics struct {
	Policy     string
	Tasks      int
	Succeeded  int
	Failed     int // held a node but compilation or estimation failed
	Unassigned int

	MeanWaiting    float64
	P95Waiting     float64
	MeanTurnaround float64
	P95Turnaround  float64
	MeanFidelity   float64
	MeanExecTime   float64
	MeanSwaps      float64
	Makespan       float64 // latest finish time

	Nodes map[string]NodeStats
}

// ComputeMetrics builds RunMetrics from records in any order.
func ComputeMetrics(policy string, records []ExecutionRecord) RunMetrics {
	m := RunMetrics{Policy: policy, Tasks: len(records), Nodes: make(map[string]NodeStats)}
	var waiting, turnaround, fidelity, execTime []float64
	var swaps []int
	for _, r := range records {
		if r.Unassigned() {
			m.Unassigned++
			continue
		}
		waiting = append(waiting, r.WaitingTime)
		turnaround = append(turnaround, r.TurnaroundTime)
		m.Makespan = max(m.Makespan, r.FinishTime)

		ns := m.Nodes[r.Backend]
		ns.Tasks++
		ns.BusyTime += r.FinishTime - r.StartTime
		if r.Succeeded() {
			m.Succeeded++
			fidelity = append(fidelity, *r.Fidelity)
			execTime = append(execTime, *r.ExecTimeEst)
			swaps = append(swaps, *r.SwapCount)
		} else {
			m.Failed++
			ns.Failed++
		}
		m.Nodes[r.Backend] = ns
	}

	m.MeanWaiting = CalculateMean(waiting)
	m.P95Waiting = CalculatePercentile(sortedCopy(waiting), 95)
	m.MeanTurnaround = CalculateMean(turnaround)
	m.P95Turnaround = CalculatePercentile(sortedCopy(turnaround), 95)
	m.MeanFidelity = CalculateMean(fidelity)
	m.MeanExecTime = CalculateMean(execTime)
	m.MeanSwaps = CalculateMean(swaps)

	if m.Makespan > 0 {
		for id, ns := range m.Nodes {
			ns.Utilization = ns.BusyTime / m.Makespan
			m.Nodes[id] = ns
		}
	}
	return m
}

// NodeIDs returns the served node IDs, sorted.
func (m RunMetrics) NodeIDs() []string {
	ids := make([]string, 0, len(m.Nodes))
	for id := range m.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Print writes a human-readable report.
func (m RunMetrics) Print(w io.Writer) {
	fmt.Fprintf(w, "=== Simulation Metrics (%s) ===\n", m.Policy)
	fmt.Fprintf(w, "Tasks                : %d\n", m.Tasks)
	fmt.Fprintf(w, "Succeeded            : %d\n", m.Succeeded)
	fmt.Fprintf(w, "Failed               : %d\n", m.Failed)
	fmt.Fprintf(w, "Unassigned           : %d\n", m.Unassigned)
	if m.Tasks == m.Unassigned {
		return
	}
	fmt.Fprintf(w, "Mean Waiting         : %.9f s (p95 %.9f s)\n", m.MeanWaiting, m.P95Waiting)
	fmt.Fprintf(w, "Mean Turnaround      : %.9f s (p95 %.9f s)\n", m.MeanTurnaround, m.P95Turnaround)
	fmt.Fprintf(w, "Makespan             : %.9f s\n", m.Makespan)
	if m.Succeeded > 0 {
		fmt.Fprintf(w, "Mean Fidelity        : %.6f\n", m.MeanFidelity)
		fmt.Fprintf(w, "Mean Exec Time       : %.9f s\n", m.MeanExecTime)
		fmt.Fprintf(w, "Mean Swaps           : %.2f\n", m.MeanSwaps)
	}
	for _, id := range m.NodeIDs() {
		ns := m.Nodes[id]
		fmt.Fprintf(w, "  %-18s : %d tasks, %d failed, busy %.9f s (%.1f%%)\n", id, ns.Tasks, ns.Failed, ns.BusyTime, 100*ns.Utilization)
	}
}

// PrintComparison writes one row per run for side-by-side policy comparison.
func PrintComparison(w io.Writer, runs []RunMetrics) {
	fmt.Fprintf(w, "%-14s %6s %6s %6s %14s %14s %10s %14s %8s\n",
		"policy", "ok", "failed", "unasg", "mean_wait", "mean_turn", "fidelity", "exec_time", "swaps")
	for _, m := range runs {
		fmt.Fprintf(w, "%-14s %6d %6d %6d %14.9f %14.9f %10.6f %14.9f %8.2f\n",
			m.Policy, m.Succeeded, m.Failed, m.Unassigned, m.MeanWaiting, m.MeanTurnaround, m.MeanFidelity, m.MeanExecTime, m.MeanSwaps)
	}
}
