package sim

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoNodes is returned by every policy when asked to schedule onto an empty
// node list. It is a configuration error: Submit surfaces it before any
// simulated time passes.
var ErrNoNodes = errors.New("no nodes provided for scheduling")

// Assignment binds the task at TaskIndex in the submitted slice to a node.
// Node is nil when the policy found no usable node.
type Assignment struct {
	TaskIndex int
	Node      *Node
	Reason    string             // human-readable explanation
	Scores    map[string]float64 // node ID → score, higher is better; nil for score-free policies
}

// Schedule is a policy's answer for one batch of tasks, with its metadata.
type Schedule struct {
	Policy      string
	Assignments []Assignment // one per task, in task order
	NumTasks    int
	NumNodes    int
	Unassigned  int
}

func newSchedule(policy string, numTasks, numNodes int) Schedule {
	return Schedule{
		Policy:      policy,
		Assignments: make([]Assignment, 0, numTasks),
		NumTasks:    numTasks,
		NumNodes:    numNodes,
	}
}

func (s *Schedule) add(a Assignment) {
	if a.Node == nil {
		s.Unassigned++
	}
	s.Assignments = append(s.Assignments, a)
}

// Policy assigns every task to a node, or to none. Implementations must not
// mutate tasks or nodes, and must return ErrNoNodes when nodes is empty.
// Policies assign once; nothing reassigns a task afterwards.
type Policy interface {
	Name() string
	Schedule(ctx context.Context, tasks []*Task, nodes []*Node) (Schedule, error)
}

// RoundRobin assigns task i to nodes[counter mod N]. The counter belongs to
// the instance and persists across Schedule calls.
type RoundRobin struct {
	counter int
}

// NewRoundRobin returns a round-robin policy starting at the first node.
func NewRoundRobin() *RoundRobin { return &RoundRobin{} }

// Name implements Policy.
func (rr *RoundRobin) Name() string { return PolicyRoundRobin }

// Schedule implements Policy for RoundRobin.
func (rr *RoundRobin) Schedule(_ context.Context, tasks []*Task, nodes []*Node) (Schedule, error) {
	if len(nodes) == 0 {
		return Schedule{}, ErrNoNodes
	}
	s := newSchedule(rr.Name(), len(tasks), len(nodes))
	for i := range tasks {
		s.add(Assignment{
			TaskIndex: i,
			Node:      nodes[rr.counter%len(nodes)],
			Reason:    fmt.Sprintf("round-robin[%d]", rr.counter),
		})
		rr.counter++
	}
	return s, nil
}
