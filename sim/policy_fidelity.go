package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/qcloud-sim/qcloud-sim/sim/compile"
	"github.com/qcloud-sim/qcloud-sim/sim/cost"
)

// DefaultFidelityEpsilon keeps the fidelity-aware score finite for zero
// execution time.
const DefaultFidelityEpsilon = 1e-9

// FidelityAware compiles and estimates every task on every node and keeps
// the node with the highest fidelity / (exec_time + epsilon). Nodes whose
// compilation or estimation fails are skipped for that task; when all fail
// the task is left unassigned. This costs tasks × nodes compiler calls.
type FidelityAware struct {
	compiler compile.Compiler
	shots    int
	epsilon  float64
}

// NewFidelityAware builds the policy. Non-positive shots or epsilon fall back
// to cost.DefaultShots and DefaultFidelityEpsilon.
func NewFidelityAware(compiler compile.Compiler, shots int, epsilon float64) *FidelityAware {
	if compiler == nil {
		panic("NewFidelityAware: compiler must not be nil")
	}
	if shots <= 0 {
		shots = cost.DefaultShots
	}
	if epsilon <= 0 {
		epsilon = DefaultFidelityEpsilon
	}
	return &FidelityAware{compiler: compiler, shots: shots, epsilon: epsilon}
}

// Name implements Policy.
func (f *FidelityAware) Name() string { return PolicyFidelityAware }

// Schedule implements Policy.
func (f *FidelityAware) Schedule(ctx context.Context, tasks []*Task, nodes []*Node) (Schedule, error) {
	if len(nodes) == 0 {
		return Schedule{}, ErrNoNodes
	}
	s := newSchedule(f.Name(), len(tasks), len(nodes))
	for i, task := range tasks {
		var best *Node
		bestScore := math.Inf(-1)
		var bestEst cost.Estimate
		scores := make(map[string]float64, len(nodes))
		for _, n := range nodes {
			est, err := f.evaluate(ctx, task, n)
			if err != nil {
				logrus.Debugf("fan: task %d skips %s: %v", task.ID, n.ID, err)
				continue
			}
			score := est.Fidelity / (est.ExecTime + f.epsilon)
			scores[n.ID] = score
			if score > bestScore {
				best, bestScore, bestEst = n, score, est
			}
		}
		a := Assignment{TaskIndex: i, Node: best, Scores: scores}
		if best == nil {
			a.Reason = "no node could compile task"
			logrus.Warnf("fan: task %d has no usable node", task.ID)
		} else {
			a.Reason = fmt.Sprintf("fan (score=%.4g, %s)", bestScore, bestEst)
		}
		s.add(a)
	}
	return s, nil
}

// evaluate compiles and estimates task on n. A panicking compiler is an
// error like any other, so the node is skipped.
func (f *FidelityAware) evaluate(ctx context.Context, task *Task, n *Node) (est cost.Estimate, err error) {
	defer func() {
		if r := recover(); r != nil {
			est, err = cost.Estimate{}, fmt.Errorf("compiler panicked: %v", r)
		}
	}()
	g, err := f.compiler.Compile(ctx, task.Payload, n.ID)
	if err != nil {
		return cost.Estimate{}, err
	}
	est, err = cost.EstimateGraph(g, n.Calibration, f.shots)
	if err != nil {
		return cost.Estimate{}, err
	}
	return est, checkEstimate(est)
}
