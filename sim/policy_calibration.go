package sim

import (
	"context"
	"fmt"

	"github.com/qcloud-sim/qcloud-sim/sim/calibration"
	"github.com/qcloud-sim/qcloud-sim/sim/cost"
)

// Defaults used when a node's calibration has no duration or error entries.
const (
	DefaultMeanDuration = cost.DefaultTwoQubitDuration
	DefaultMeanError    = cost.DefaultError
)

// FastestDurationFirst sends every task to the node with the smallest mean
// calibrated gate duration. The choice ignores the tasks entirely: one node
// receives the whole batch. Ties go to the earliest node in input order.
type FastestDurationFirst struct{}

// Name implements Policy.
func (FastestDurationFirst) Name() string { return PolicyFastestDurationFirst }

// Schedule implements Policy.
func (f FastestDurationFirst) Schedule(_ context.Context, tasks []*Task, nodes []*Node) (Schedule, error) {
	return scheduleByMean(f.Name(), "duration", tasks, nodes, calibration.Table.MeanDuration, DefaultMeanDuration)
}

// SmallestErrorFirst sends every task to the node with the smallest mean
// calibrated gate error. Like FastestDurationFirst it picks a single node per
// call.
type SmallestErrorFirst struct{}

// Name implements Policy.
func (SmallestErrorFirst) Name() string { return PolicySmallestErrorFirst }

// Schedule implements Policy.
func (s SmallestErrorFirst) Schedule(_ context.Context, tasks []*Task, nodes []*Node) (Schedule, error) {
	return scheduleByMean(s.Name(), "error", tasks, nodes, calibration.Table.MeanError, DefaultMeanError)
}

// scheduleByMean picks the node minimising mean(table) once, then assigns it
// to every task. Scores are negated means so that higher is better.
func scheduleByMean(policy, metric string, tasks []*Task, nodes []*Node, mean func(calibration.Table) (float64, bool), def float64) (Schedule, error) {
	if len(nodes) == 0 {
		return Schedule{}, ErrNoNodes
	}
	means := make([]float64, len(nodes))
	scores := make(map[string]float64, len(nodes))
	best := 0
	for i, n := range nodes {
		m, ok := mean(n.Calibration)
		if !ok {
			m = def
		}
		means[i] = m
		scores[n.ID] = -m
		if m < means[best] {
			best = i
		}
	}
	reason := fmt.Sprintf("%s (mean %s=%.4g)", policy, metric, means[best])

	s := newSchedule(policy, len(tasks), len(nodes))
	for i := range tasks {
		s.add(Assignment{TaskIndex: i, Node: nodes[best], Reason: reason, Scores: scores})
	}
	return s, nil
}
