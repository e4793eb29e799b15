package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingEvent appends its label to a shared log and optionally schedules
// a follow-up at the same instant.
type recordingEvent struct {
	time  float64
	label string
	log   *[]string
	then  *recordingEvent
}

func (e *recordingEvent) Timestamp() float64 { return e.time }

func (e *recordingEvent) Execute(sim *Simulator) {
	*e.log = append(*e.log, e.label)
	if e.then != nil {
		sim.Schedule(e.then)
	}
}

func TestSimulator_Run_OrdersByTimeThenInsertion(t *testing.T) {
	// GIVEN events scheduled out of time order, with ties at t=1
	var log []string
	sim := NewSimulator()
	sim.Schedule(&recordingEvent{time: 2, label: "c", log: &log})
	sim.Schedule(&recordingEvent{time: 1, label: "a1", log: &log})
	sim.Schedule(&recordingEvent{time: 1, label: "a2", log: &log})
	sim.Schedule(&recordingEvent{time: 0, label: "z", log: &log})

	// WHEN run
	sim.Run(context.Background())

	// THEN time order holds and same-time events are FIFO
	assert.Equal(t, []string{"z", "a1", "a2", "c"}, log)
	assert.Equal(t, 2.0, sim.Now())
	assert.Equal(t, 4, sim.EventsExecuted())
	assert.False(t, sim.HasPendingEvents())
}

func TestSimulator_SameInstantFollowUp_RunsAfterAlreadyQueued(t *testing.T) {
	// GIVEN a at t=1 that schedules a' at t=1, and b already queued at t=1
	var log []string
	sim := NewSimulator()
	sim.Schedule(&recordingEvent{time: 1, label: "a", log: &log,
		then: &recordingEvent{time: 1, label: "a'", log: &log}})
	sim.Schedule(&recordingEvent{time: 1, label: "b", log: &log})

	sim.Run(context.Background())

	// THEN the follow-up waits behind b
	assert.Equal(t, []string{"a", "b", "a'"}, log)
}

func TestSimulator_Schedule_InThePast_Panics(t *testing.T) {
	var log []string
	sim := NewSimulator()
	sim.Schedule(&recordingEvent{time: 5, label: "x", log: &log})
	sim.Run(context.Background())

	assert.Panics(t, func() {
		sim.Schedule(&recordingEvent{time: 4, label: "late", log: &log})
	})
}

func TestSimulator_Context_DefaultsToBackground(t *testing.T) {
	sim := NewSimulator()
	assert.NotNil(t, sim.Context())
	assert.NoError(t, sim.Context().Err())
}
