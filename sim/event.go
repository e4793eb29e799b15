package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in simulated seconds) and an Execute
// method that advances simulation state when invoked.
type Event interface {
	Timestamp() float64
	Execute(*Simulator)
}

// ArrivalEvent wakes a task's process at its arrival time.
type ArrivalEvent struct {
	time float64
	proc *process
}

// Timestamp returns the scheduled time of the ArrivalEvent.
func (e *ArrivalEvent) Timestamp() float64 { return e.time }

// Execute either emits the unassigned failure record or requests the node.
func (e *ArrivalEvent) Execute(sim *Simulator) {
	p := e.proc
	if p.node == nil {
		logrus.Warnf("<< Arrival: task %d at %.9f has no node, recording failure", p.task.ID, e.time)
		p.orch.finishUnassigned(p)
		return
	}
	logrus.Debugf("<< Arrival: task %d at %.9f for %s", p.task.ID, e.time, p.node.ID)
	p.arrival = e.time
	p.state = TaskArrived
	p.node.request(sim, p)
}

// GrantEvent resumes a process that has been granted its node. It runs at the
// instant of the grant, after events already queued for that instant.
type GrantEvent struct {
	time float64
	proc *process
}

// Timestamp returns the scheduled time of the GrantEvent.
func (e *GrantEvent) Timestamp() float64 { return e.time }

// Execute runs compilation and estimation, then parks the process on the node
// for the resulting hold duration.
func (e *GrantEvent) Execute(sim *Simulator) {
	p := e.proc
	p.start = e.time
	p.state = TaskRunning
	p.outcome = p.orch.execute(sim.Context(), p)
	sim.Schedule(&ReleaseEvent{time: e.time + p.outcome.holdTime(), proc: p})
}

// ReleaseEvent ends a hold: the record is appended and the node passes to the
// next queued process within the same instant.
type ReleaseEvent struct {
	time float64
	proc *process
}

// Timestamp returns the scheduled time of the ReleaseEvent.
func (e *ReleaseEvent) Timestamp() float64 { return e.time }

// Execute finishes the process and frees its node.
func (e *ReleaseEvent) Execute(sim *Simulator) {
	p := e.proc
	p.finish = e.time
	p.orch.finish(p)
	p.node.release(sim, p)
}
