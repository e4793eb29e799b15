package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/qcloud-sim/qcloud-sim/sim/compile"
	"github.com/qcloud-sim/qcloud-sim/sim/cost"
	"github.com/qcloud-sim/qcloud-sim/sim/trace"
)

// FailedHoldDuration is how long a node stays occupied by a task whose
// compilation or estimation failed.
const FailedHoldDuration = 1.0

// taskOutcome is the result of the compile-and-estimate step of one hold.
type taskOutcome struct {
	est cost.Estimate
	err error
}

func (o taskOutcome) holdTime() float64 {
	if o.err != nil {
		return FailedHoldDuration
	}
	return o.est.ExecTime
}

// process is the simulated lifecycle of one submitted task.
type process struct {
	orch  *Orchestrator
	task  *Task
	node  *Node // nil when unassigned
	state TaskState
	done  bool // record emitted

	reason  string
	arrival float64
	start   float64
	finish  float64
	outcome taskOutcome
}

// Orchestrator drives one process per task through arrival, node
// acquisition, cost estimation and the hold, and collects one
// ExecutionRecord per task.
type Orchestrator struct {
	engine   *Simulator
	policy   Policy
	nodes    []*Node
	compiler compile.Compiler
	shots    int

	procs     []*process
	records   []ExecutionRecord
	schedules []Schedule
	trace     *trace.SimulationTrace
}

// NewOrchestrator wires an engine, a policy, the nodes and the compilation
// service. Non-positive shots fall back to cost.DefaultShots.
func NewOrchestrator(engine *Simulator, policy Policy, nodes []*Node, compiler compile.Compiler, shots int) *Orchestrator {
	if engine == nil {
		panic("NewOrchestrator: engine must not be nil")
	}
	if policy == nil {
		panic("NewOrchestrator: policy must not be nil")
	}
	if compiler == nil {
		panic("NewOrchestrator: compiler must not be nil")
	}
	if shots <= 0 {
		shots = cost.DefaultShots
	}
	return &Orchestrator{
		engine:   engine,
		policy:   policy,
		nodes:    nodes,
		compiler: compiler,
		shots:    shots,
	}
}

// SetTrace enables decision recording. A nil trace or TraceLevelNone disables it.
func (o *Orchestrator) SetTrace(st *trace.SimulationTrace) {
	if st != nil && (st.Config.Level == trace.TraceLevelNone || st.Config.Level == "") {
		st = nil
	}
	o.trace = st
}

// Nodes returns the nodes in construction order.
func (o *Orchestrator) Nodes() []*Node { return o.nodes }

// Schedules returns the policy output of every Submit call so far.
func (o *Orchestrator) Schedules() []Schedule { return o.schedules }

// Submit asks the policy once for all assignments, then starts one process
// per task, unassigned ones included. Arrival times are absolute simulated
// times and may not precede the clock.
//
// Errors are configuration errors returned before anything is scheduled:
// an invalid task, a policy error such as ErrNoNodes, or a policy answer that
// does not cover every task exactly once.
func (o *Orchestrator) Submit(ctx context.Context, tasks []*Task) error {
	for i, t := range tasks {
		if t == nil {
			return fmt.Errorf("task at index %d is nil", i)
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if t.ArrivalTime < o.engine.Now() {
			return fmt.Errorf("task %d arrives at %v, before the clock at %v", t.ID, t.ArrivalTime, o.engine.Now())
		}
	}

	sched, err := o.policy.Schedule(ctx, tasks, o.nodes)
	if err != nil {
		return fmt.Errorf("scheduling with %s: %w", o.policy.Name(), err)
	}
	if err := o.checkSchedule(sched, len(tasks)); err != nil {
		return fmt.Errorf("policy %s: %w", o.policy.Name(), err)
	}
	o.schedules = append(o.schedules, sched)
	logrus.Infof("%s assigned %d tasks across %d nodes (%d unassigned)", sched.Policy, sched.NumTasks, sched.NumNodes, sched.Unassigned)

	for _, a := range sched.Assignments {
		task := tasks[a.TaskIndex]
		p := &process{orch: o, task: task, node: a.Node, reason: a.Reason, state: TaskWaitingArrival}
		if a.Node == nil {
			p.state = TaskUnassignedFailure
		}
		o.procs = append(o.procs, p)
		o.recordAssignment(task, a)
		o.engine.Schedule(&ArrivalEvent{time: task.ArrivalTime, proc: p})
	}
	return nil
}

func (o *Orchestrator) checkSchedule(s Schedule, numTasks int) error {
	if len(s.Assignments) != numTasks {
		return fmt.Errorf("returned %d assignments for %d tasks", len(s.Assignments), numTasks)
	}
	known := make(map[*Node]bool, len(o.nodes))
	for _, n := range o.nodes {
		known[n] = true
	}
	seen := make([]bool, numTasks)
	for _, a := range s.Assignments {
		if a.TaskIndex < 0 || a.TaskIndex >= numTasks {
			return fmt.Errorf("assignment for out-of-range task index %d", a.TaskIndex)
		}
		if seen[a.TaskIndex] {
			return fmt.Errorf("task index %d assigned twice", a.TaskIndex)
		}
		seen[a.TaskIndex] = true
		if a.Node != nil && !known[a.Node] {
			return fmt.Errorf("task index %d assigned to foreign node %q", a.TaskIndex, a.Node.ID)
		}
	}
	return nil
}

func (o *Orchestrator) recordAssignment(task *Task, a Assignment) {
	if o.trace == nil {
		return
	}
	rec := trace.AssignmentRecord{
		TaskID:      task.ID,
		ArrivalTime: task.ArrivalTime,
		Reason:      a.Reason,
		Scores:      trace.CopyScores(a.Scores),
	}
	if a.Node != nil {
		rec.ChosenNode = a.Node.ID
		rec.Candidates, rec.Regret = trace.Counterfactual(a.Node.ID, a.Scores, o.trace.Config.CounterfactualK)
	}
	o.trace.RecordAssignment(rec)
}

// execute compiles the payload for the held node and estimates its cost.
// Any failure, a panicking compiler included, becomes a failed outcome.
func (o *Orchestrator) execute(ctx context.Context, p *process) (out taskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = taskOutcome{err: fmt.Errorf("compiler panicked: %v", r)}
		}
	}()
	g, err := o.compiler.Compile(ctx, p.task.Payload, p.node.ID)
	if err != nil {
		return taskOutcome{err: fmt.Errorf("compiling for %s: %w", p.node.ID, err)}
	}
	est, err := cost.EstimateGraph(g, p.node.Calibration, o.shots)
	if err == nil {
		err = checkEstimate(est)
	}
	if err == nil && !isFinite(o.engine.Now()+est.ExecTime) {
		err = fmt.Errorf("%w: release time overflows", ErrNonFiniteEstimate)
	}
	if err != nil {
		return taskOutcome{err: fmt.Errorf("estimating on %s: %w", p.node.ID, err)}
	}
	return taskOutcome{est: est}
}

// ErrNonFiniteEstimate means the calibration data produced an estimate that
// cannot drive the clock, e.g. a huge duration multiplied by the shot count.
var ErrNonFiniteEstimate = errors.New("non-finite estimate")

// checkEstimate rejects NaN or infinite fidelity and execution time.
func checkEstimate(est cost.Estimate) error {
	if !isFinite(est.ExecTime) || !isFinite(est.Fidelity) {
		return fmt.Errorf("%w: fidelity=%v exec_time=%v", ErrNonFiniteEstimate, est.Fidelity, est.ExecTime)
	}
	return nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// finish appends the record of a process that held its node.
func (o *Orchestrator) finish(p *process) {
	rec := ExecutionRecord{
		TaskID:         p.task.ID,
		Backend:        p.node.ID,
		Status:         StatusSuccess,
		ArrivalTime:    p.arrival,
		StartTime:      p.start,
		FinishTime:     p.finish,
		WaitingTime:    p.start - p.arrival,
		TurnaroundTime: p.finish - p.arrival,
	}
	if err := p.outcome.err; err != nil {
		rec.Status = StatusFailed
		rec.Message = err.Error()
		logrus.Warnf("task %d failed on %s: %v", p.task.ID, p.node.ID, err)
	} else {
		rec.Fidelity = ptr(p.outcome.est.Fidelity)
		rec.ExecTimeEst = ptr(p.outcome.est.ExecTime)
		rec.SwapCount = ptr(p.outcome.est.SwapCount)
		logrus.Infof("task %d finished on %s at %.9f (waited %.9f)", p.task.ID, p.node.ID, p.finish, rec.WaitingTime)
	}
	o.emit(p, rec)
	p.state = TaskFinished
}

// finishUnassigned appends the sentinel record of a process with no node.
func (o *Orchestrator) finishUnassigned(p *process) {
	o.emit(p, unassignedRecord(p.task.ID, p.reason))
}

func (o *Orchestrator) emit(p *process, rec ExecutionRecord) {
	if p.done {
		panic(fmt.Sprintf("task %d emitted a second record", p.task.ID))
	}
	p.done = true
	o.records = append(o.records, rec)
	if o.trace != nil {
		o.trace.RecordCompletion(trace.CompletionRecord{
			TaskID:     rec.TaskID,
			NodeID:     rec.Backend,
			Succeeded:  rec.Succeeded(),
			StartTime:  rec.StartTime,
			FinishTime: rec.FinishTime,
		})
	}
}

// TaskState returns the state of the most recently submitted task with id.
func (o *Orchestrator) TaskState(id int) (TaskState, bool) {
	for i := len(o.procs) - 1; i >= 0; i-- {
		if o.procs[i].task.ID == id {
			return o.procs[i].state, true
		}
	}
	return "", false
}

// Results returns the records in completion order. Calling it while events
// are pending or a process has not terminated is a programming error.
func (o *Orchestrator) Results() []ExecutionRecord {
	if o.engine.HasPendingEvents() {
		panic("Results: simulation has pending events; call Run first")
	}
	for _, p := range o.procs {
		if !p.done {
			panic(fmt.Sprintf("Results: task %d has not terminated", p.task.ID))
		}
	}
	out := make([]ExecutionRecord, len(o.records))
	copy(out, o.records)
	return out
}
