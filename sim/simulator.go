// sim/simulator.go
package sim

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// scheduledEvent pairs an event with its insertion sequence number.
type scheduledEvent struct {
	ev  Event
	seq uint64
}

// EventQueue implements heap.Interface and orders events by timestamp, then
// by insertion order. Events at the same instant therefore run FIFO in the
// order they were scheduled.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue []scheduledEvent

func (eq EventQueue) Len() int { return len(eq) }
func (eq EventQueue) Less(i, j int) bool {
	ti, tj := eq[i].ev.Timestamp(), eq[j].ev.Timestamp()
	if ti != tj {
		return ti < tj
	}
	return eq[i].seq < eq[j].seq
}
func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(scheduledEvent))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Simulator owns the simulated clock and the pending event heap. It is
// single-threaded: events run one at a time and may schedule further events
// at the current instant or later.
type Simulator struct {
	Clock float64

	queue    EventQueue
	nextSeq  uint64
	executed int
	ctx      context.Context
}

// NewSimulator returns an engine with the clock at zero.
func NewSimulator() *Simulator {
	return &Simulator{queue: make(EventQueue, 0)}
}

// Now returns the current simulated time in seconds.
func (sim *Simulator) Now() float64 { return sim.Clock }

// Schedule pushes an event onto the heap. Scheduling in the past, or at a
// non-finite time, is a programming error and panics.
func (sim *Simulator) Schedule(ev Event) {
	t := ev.Timestamp()
	if math.IsNaN(t) || math.IsInf(t, 0) {
		panic(fmt.Sprintf("Schedule: non-finite timestamp %v for %T", t, ev))
	}
	if t < sim.Clock {
		panic(fmt.Sprintf("Schedule: %T at %.9f is before clock %.9f", ev, t, sim.Clock))
	}
	heap.Push(&sim.queue, scheduledEvent{ev: ev, seq: sim.nextSeq})
	sim.nextSeq++
}

// HasPendingEvents reports whether the heap is non-empty.
func (sim *Simulator) HasPendingEvents() bool { return len(sim.queue) > 0 }

// EventsExecuted returns the number of events processed so far.
func (sim *Simulator) EventsExecuted() int { return sim.executed }

// Context returns the context passed to Run, or context.Background outside Run.
// Events hand it to external services they call.
func (sim *Simulator) Context() context.Context {
	if sim.ctx == nil {
		return context.Background()
	}
	return sim.ctx
}

// Run processes events until the heap drains. The context is not a
// cancellation point for the loop: a cancelled context surfaces as per-task
// failures in the services that observe it, and the run still terminates
// with one record per task.
func (sim *Simulator) Run(ctx context.Context) {
	sim.ctx = ctx
	defer func() { sim.ctx = nil }()

	for len(sim.queue) > 0 {
		// get the next event to be simulated
		next := heap.Pop(&sim.queue).(scheduledEvent)
		// advance the clock
		sim.Clock = next.ev.Timestamp()
		logrus.Debugf("[t=%.9f] Executing %T", sim.Clock, next.ev)
		next.ev.Execute(sim)
		sim.executed++
	}
	logrus.Infof("[t=%.9f] Simulation ended after %d events", sim.Clock, sim.executed)
}
