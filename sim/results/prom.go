package results

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/qcloud-sim/qcloud-sim/sim"
)

// PromExporter accumulates run metrics in its own registry so several
// policies can be compared in one textfile. Values are simulated seconds.
// Not safe for concurrent Observe calls on the same run.
type PromExporter struct {
	registry *prometheus.Registry

	tasks      *prometheus.CounterVec
	waiting    *prometheus.HistogramVec
	turnaround *prometheus.HistogramVec
	fidelity   *prometheus.HistogramVec
	swaps      *prometheus.CounterVec
	busy       *prometheus.GaugeVec
	makespan   *prometheus.GaugeVec
}

// NewPromExporter registers the qcloud_* collectors on a fresh registry.
func NewPromExporter() *PromExporter {
	e := &PromExporter{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qcloud_tasks_total",
			Help: "Tasks by final status",
		}, []string{"policy", "node", "status"}),
		waiting: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qcloud_task_waiting_seconds",
			Help:    "Simulated time between arrival and node grant",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 10),
		}, []string{"policy", "node"}),
		turnaround: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qcloud_task_turnaround_seconds",
			Help:    "Simulated time between arrival and node release",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 10),
		}, []string{"policy", "node"}),
		fidelity: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qcloud_task_fidelity",
			Help:    "Estimated fidelity of successful tasks",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"policy", "node"}),
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qcloud_swaps_total",
			Help: "SWAP operations inserted by compilation",
		}, []string{"policy", "node"}),
		busy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qcloud_node_busy_seconds",
			Help: "Simulated time each node was held",
		}, []string{"policy", "node"}),
		makespan: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qcloud_run_makespan_seconds",
			Help: "Latest finish time of the run",
		}, []string{"policy"}),
	}
	e.registry.MustRegister(e.tasks, e.waiting, e.turnaround, e.fidelity, e.swaps, e.busy, e.makespan)
	return e
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (e *PromExporter) Registry() *prometheus.Registry { return e.registry }

// Observe records one run. Unassigned tasks are counted under node "none"
// and contribute no timing samples.
func (e *PromExporter) Observe(policy string, records []sim.ExecutionRecord) {
	m := sim.ComputeMetrics(policy, records)
	for _, r := range records {
		if r.Unassigned() {
			e.tasks.WithLabelValues(policy, "none", string(r.Status)).Inc()
			continue
		}
		e.tasks.WithLabelValues(policy, r.Backend, string(r.Status)).Inc()
		e.waiting.WithLabelValues(policy, r.Backend).Observe(r.WaitingTime)
		e.turnaround.WithLabelValues(policy, r.Backend).Observe(r.TurnaroundTime)
		if r.Succeeded() {
			e.fidelity.WithLabelValues(policy, r.Backend).Observe(*r.Fidelity)
			e.swaps.WithLabelValues(policy, r.Backend).Add(float64(*r.SwapCount))
		}
	}
	for id, ns := range m.Nodes {
		e.busy.WithLabelValues(policy, id).Set(ns.BusyTime)
	}
	e.makespan.WithLabelValues(policy).Set(m.Makespan)
}

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node_exporter textfile collector.
func (e *PromExporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
