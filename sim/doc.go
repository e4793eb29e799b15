// Package sim is a discrete-event engine for comparing task-dispatch policies
// on a cloud of exclusive quantum-processing nodes.
//
// # Reading Guide
//
// Start with these files:
//   - task.go: Task and the per-task lifecycle states
//   - event.go: the three events that move a task (Arrival, Grant, Release)
//   - simulator.go: the clock and the (time, insertion order) event heap
//   - node.go: the single-slot resource with its FIFO wait queue
//   - orchestrator.go: Submit, per-task processes and the result records
//
// # Architecture
//
// The engine is single-threaded. Every task becomes a process whose
// suspension points (waiting for arrival, waiting for the node, holding the
// node) are events on one heap. Events at the same instant run in the order
// they were scheduled, so processes spawned earlier win ties. Node requests
// are served FIFO by issuance; Task.Priority is not consulted.
//
// Sub-packages hold the collaborators:
//   - sim/circuit/: circuit payloads and instruction graphs
//   - sim/calibration/: calibration tables, providers, Redis cache
//   - sim/cost/: critical-path fidelity and duration estimator
//   - sim/compile/: compilation service and its throttling wrapper
//   - sim/device/: YAML device catalog
//   - sim/workload/: benchmark circuits and workload specs
//   - sim/trace/: decision trace recording
//   - sim/results/: CSV, Prometheus and Postgres result sinks
//
// # Key Interfaces
//
//   - Policy: (tasks, nodes) → one Assignment per task
//   - compile.Compiler: payload + node identity → instruction graph
//   - calibration.Provider: node identity → calibration table
package sim
