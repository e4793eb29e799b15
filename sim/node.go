package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/qcloud-sim/qcloud-sim/sim/calibration"
)

// Node is an exclusive single-slot resource wrapping one backend. At most one
// process holds it at any simulated instant; the rest wait in FIFO order of
// request issuance.
type Node struct {
	ID          string
	Calibration calibration.Table // populated once at construction, read-only

	holder  *process
	waiting WaitQueue

	busyTime float64
	served   int
}

// NewNode wraps an identity and its calibration table.
func NewNode(id string, table calibration.Table) *Node {
	if table == nil {
		table = calibration.Table{}
	}
	return &Node{ID: id, Calibration: table}
}

// NewNodes calibrates each identity once through provider, preserving order.
func NewNodes(ctx context.Context, provider calibration.Provider, ids ...string) ([]*Node, error) {
	nodes := make([]*Node, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("duplicate node %q", id)
		}
		seen[id] = true
		table, err := provider.Calibrate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("calibrating node %q: %w", id, err)
		}
		nodes = append(nodes, NewNode(id, table))
	}
	return nodes, nil
}

// Busy reports whether a process holds the node.
func (n *Node) Busy() bool { return n.holder != nil }

// QueueLen returns the number of processes waiting for the node.
func (n *Node) QueueLen() int { return n.waiting.Len() }

// BusyTime returns the total simulated time the node has been held.
func (n *Node) BusyTime() float64 { return n.busyTime }

// Served returns the number of holds completed on the node.
func (n *Node) Served() int { return n.served }

func (n *Node) String() string {
	return fmt.Sprintf("%s(busy=%v, queue=%s)", n.ID, n.Busy(), n.waiting.String())
}

// request grants the node to p if it is free, else queues p. A grant takes
// effect immediately and p resumes through a GrantEvent at the same instant.
func (n *Node) request(sim *Simulator, p *process) {
	p.state = TaskQueuedForNode
	if n.holder == nil {
		n.grant(sim, p)
		return
	}
	logrus.Debugf("task %d queued on %s behind %d", p.task.ID, n.ID, n.waiting.Len()+1)
	n.waiting.Enqueue(p)
}

// release frees the node and grants it to the next waiting process, if any.
func (n *Node) release(sim *Simulator, p *process) {
	if n.holder != p {
		panic(fmt.Sprintf("release: task %d does not hold %s", p.task.ID, n.ID))
	}
	n.holder = nil
	n.busyTime += p.finish - p.start
	n.served++
	if next := n.waiting.Dequeue(); next != nil {
		n.grant(sim, next)
	}
}

func (n *Node) grant(sim *Simulator, p *process) {
	n.holder = p
	sim.Schedule(&GrantEvent{time: sim.Clock, proc: p})
}
