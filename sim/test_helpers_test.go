package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/qcloud-sim/qcloud-sim/sim/calibration"
	"github.com/qcloud-sim/qcloud-sim/sim/circuit"
	"github.com/qcloud-sim/qcloud-sim/sim/compile"
)

var errBadPayload = errors.New("payload rejected")

// opCompiler lowers every payload to a single "op" on qubit 0, except the
// string "bad", which fails.
var opCompiler = compile.Func(func(_ context.Context, payload any, _ string) (*circuit.Graph, error) {
	if s, ok := payload.(string); ok && s == "bad" {
		return nil, errBadPayload
	}
	g := circuit.NewGraph()
	g.AddOp("op", 0)
	return g, nil
})

// opNode returns a node whose single calibrated "op" has the given duration
// and error rate.
func opNode(id string, duration, errRate float64) *Node {
	return NewNode(id, calibration.Table{
		calibration.NewKey("op", []int{0}): {Duration: calibration.Float(duration), Error: calibration.Float(errRate)},
	})
}

// makeTasks creates n tasks with IDs 0..n-1 arriving at the given times; a
// shorter arrivals slice repeats its last value.
func makeTasks(n int, arrivals ...float64) []*Task {
	tasks := make([]*Task, n)
	for i := range tasks {
		at := 0.0
		if len(arrivals) > 0 {
			at = arrivals[min(i, len(arrivals)-1)]
		}
		tasks[i] = NewTask(i, fmt.Sprintf("payload-%d", i), at)
	}
	return tasks
}

// runAll submits tasks, runs to exhaustion and returns the records by task ID.
func runAll(policy Policy, nodes []*Node, compiler compile.Compiler, shots int, tasks []*Task) (*Orchestrator, map[int]ExecutionRecord, error) {
	engine := NewSimulator()
	o := NewOrchestrator(engine, policy, nodes, compiler, shots)
	if err := o.Submit(context.Background(), tasks); err != nil {
		return o, nil, err
	}
	engine.Run(context.Background())
	byID := make(map[int]ExecutionRecord)
	for _, r := range o.Results() {
		byID[r.TaskID] = r
	}
	return o, byID, nil
}

// fixedPolicy replays a canned schedule.
type fixedPolicy struct {
	schedule func(tasks []*Task, nodes []*Node) Schedule
}

func (fixedPolicy) Name() string { return "fixed" }

func (f fixedPolicy) Schedule(_ context.Context, tasks []*Task, nodes []*Node) (Schedule, error) {
	if len(nodes) == 0 {
		return Schedule{}, ErrNoNodes
	}
	return f.schedule(tasks, nodes), nil
}
