// Defines the Task submitted to the orchestrator and the lifecycle states its
// simulated process moves through.

package sim

import (
	"fmt"
	"math"
)

// TaskState is the lifecycle state of a task's simulated process. A process
// never revisits a state.
//
//	created → waiting_arrival → arrived → queued_for_node → running → finished
//	created → unassigned_failure
type TaskState string

const (
	TaskCreated           TaskState = "created"
	TaskWaitingArrival    TaskState = "waiting_arrival"
	TaskArrived           TaskState = "arrived"
	TaskQueuedForNode     TaskState = "queued_for_node"
	TaskRunning           TaskState = "running"
	TaskFinished          TaskState = "finished"
	TaskUnassignedFailure TaskState = "unassigned_failure"
)

// Terminal reports whether no further transitions are possible. An unassigned
// task is terminal for the state machine even before its failure record is
// emitted at its arrival time.
func (s TaskState) Terminal() bool {
	return s == TaskFinished || s == TaskUnassignedFailure
}

// Task is one unit of work. Tasks are immutable once submitted.
type Task struct {
	ID          int
	Payload     any     // opaque to the engine; handed to the Compiler
	ArrivalTime float64 // seconds of simulated time
	Priority    int     // reserved; no reference policy or queue reads it
}

// NewTask creates a task with zero priority.
func NewTask(id int, payload any, arrivalTime float64) *Task {
	return &Task{ID: id, Payload: payload, ArrivalTime: arrivalTime}
}

func (t *Task) String() string {
	return fmt.Sprintf("task %d@%.6g", t.ID, t.ArrivalTime)
}

// Validate checks the arrival time is a finite non-negative number.
func (t *Task) Validate() error {
	if math.IsNaN(t.ArrivalTime) || math.IsInf(t.ArrivalTime, 0) || t.ArrivalTime < 0 {
		return fmt.Errorf("task %d: arrival time must be finite and >= 0, got %v", t.ID, t.ArrivalTime)
	}
	return nil
}
