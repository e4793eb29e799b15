// Package workload turns a YAML workload description into simulator tasks
// carrying benchmark circuit payloads.
package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qcloud-sim/qcloud-sim/sim"
)

// SpecVersion is the only supported workload file version.
const SpecVersion = "1"

// Arrival processes for generated tasks.
const (
	ArrivalPoisson  = "poisson"
	ArrivalConstant = "constant"
	ArrivalGamma    = "gamma"
)

var validArrivals = map[string]bool{"": true, ArrivalPoisson: true, ArrivalConstant: true, ArrivalGamma: true}

// Spec is the top-level workload file. Explicit tasks, a preset and a
// generated stream may be combined; task IDs are assigned in that order
// unless an explicit task sets its own.
type Spec struct {
	Version  string        `yaml:"version"`
	Seed     int64         `yaml:"seed"`
	Preset   string        `yaml:"preset,omitempty"`
	Tasks    []TaskSpec    `yaml:"tasks,omitempty"`
	Generate *GenerateSpec `yaml:"generate,omitempty"`
}

// TaskSpec is one explicitly listed task.
type TaskSpec struct {
	ID          *int    `yaml:"id,omitempty"`
	Benchmark   string  `yaml:"benchmark"`
	Qubits      int     `yaml:"qubits"`
	Depth       int     `yaml:"depth,omitempty"`
	ArrivalTime float64 `yaml:"arrival_time"`
	Priority    int     `yaml:"priority,omitempty"`
}

// GenerateSpec describes a stream of tasks drawn from a benchmark mix.
type GenerateSpec struct {
	Count      int             `yaml:"count"`
	Benchmarks []BenchmarkSpec `yaml:"benchmarks"`
	Rate       float64         `yaml:"rate"` // tasks per second
	Arrival    string          `yaml:"arrival,omitempty"`
	CV         *float64        `yaml:"cv,omitempty"`
	StartTime  float64         `yaml:"start_time,omitempty"`
}

// LoadSpec reads, strictly parses and validates a workload file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	return ParseSpec(data)
}

// ParseSpec strictly decodes and validates workload YAML.
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the workload without building any circuit.
func (s *Spec) Validate() error {
	if s.Version != SpecVersion {
		return fmt.Errorf("unsupported workload version %q", s.Version)
	}
	if s.Preset != "" {
		if _, ok := Presets[s.Preset]; !ok {
			return fmt.Errorf("unknown preset %q", s.Preset)
		}
	}
	if len(s.Tasks) == 0 && s.Preset == "" && s.Generate == nil {
		return fmt.Errorf("workload defines no tasks, preset or generate block")
	}
	ids := make(map[int]bool)
	for i, t := range s.Tasks {
		if err := validateBenchmark(t.Benchmark, t.Qubits); err != nil {
			return fmt.Errorf("tasks[%d]: %w", i, err)
		}
		if !validTime(t.ArrivalTime) {
			return fmt.Errorf("tasks[%d]: arrival_time must be finite and >= 0, got %v", i, t.ArrivalTime)
		}
		if t.ID != nil {
			if ids[*t.ID] {
				return fmt.Errorf("tasks[%d]: duplicate id %d", i, *t.ID)
			}
			ids[*t.ID] = true
		}
	}
	if g := s.Generate; g != nil {
		if g.Count < 1 {
			return fmt.Errorf("generate.count must be >= 1, got %d", g.Count)
		}
		if !(g.Rate > 0) || math.IsInf(g.Rate, 0) {
			return fmt.Errorf("generate.rate must be positive, got %v", g.Rate)
		}
		if !validArrivals[g.Arrival] {
			return fmt.Errorf("unknown arrival process %q", g.Arrival)
		}
		if !validTime(g.StartTime) {
			return fmt.Errorf("generate.start_time must be finite and >= 0, got %v", g.StartTime)
		}
		if len(g.Benchmarks) == 0 {
			return fmt.Errorf("generate.benchmarks must not be empty")
		}
		for i, b := range g.Benchmarks {
			if err := validateBenchmark(b.Name, b.Qubits); err != nil {
				return fmt.Errorf("generate.benchmarks[%d]: %w", i, err)
			}
			if b.Weight < 0 {
				return fmt.Errorf("generate.benchmarks[%d]: weight must be >= 0", i)
			}
		}
	}
	return nil
}

func validateBenchmark(name string, qubits int) error {
	if _, ok := generators[name]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownBenchmark, name)
	}
	if qubits < 1 {
		return fmt.Errorf("%s: qubits must be >= 1, got %d", name, qubits)
	}
	return nil
}

func validTime(t float64) bool {
	return !math.IsNaN(t) && !math.IsInf(t, 0) && t >= 0
}

// Build generates the tasks. The same workload always yields the same tasks.
// Explicit tasks come first, then preset tasks arriving at 0, then the
// generated stream. Automatic IDs skip IDs already taken explicitly.
func (s *Spec) Build() ([]*sim.Task, error) {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(s.Seed))
	bench := rng.ForSubsystem(sim.SubsystemBenchmarks)

	taken := make(map[int]bool)
	for _, t := range s.Tasks {
		if t.ID != nil {
			taken[*t.ID] = true
		}
	}
	next := 0
	nextID := func() int {
		for taken[next] {
			next++
		}
		taken[next] = true
		return next
	}

	var tasks []*sim.Task
	add := func(id int, b BenchmarkSpec, at float64, priority int) error {
		c, err := Build(b, bench)
		if err != nil {
			return err
		}
		tasks = append(tasks, &sim.Task{ID: id, Payload: c, ArrivalTime: at, Priority: priority})
		return nil
	}

	for _, t := range s.Tasks {
		var id int
		if t.ID != nil {
			id = *t.ID
		} else {
			id = nextID()
		}
		if err := add(id, BenchmarkSpec{Name: t.Benchmark, Qubits: t.Qubits, Depth: t.Depth}, t.ArrivalTime, t.Priority); err != nil {
			return nil, err
		}
	}
	for _, b := range Presets[s.Preset] {
		if err := add(nextID(), b, 0, 0); err != nil {
			return nil, err
		}
	}
	if g := s.Generate; g != nil {
		sampler := NewArrivalSampler(g.Arrival, g.Rate, g.CV)
		arrivals := rng.ForSubsystem(sim.SubsystemArrivals)
		at := g.StartTime
		for i := 0; i < g.Count; i++ {
			if i > 0 {
				at += sampler.SampleIAT(arrivals)
			}
			if err := add(nextID(), pickBenchmark(g.Benchmarks, bench), at, 0); err != nil {
				return nil, err
			}
		}
	}
	return tasks, nil
}

// pickBenchmark draws one benchmark by weight; zero weights count as 1.
func pickBenchmark(mix []BenchmarkSpec, rng interface{ Float64() float64 }) BenchmarkSpec {
	if len(mix) == 1 {
		return mix[0]
	}
	total := 0.0
	for _, b := range mix {
		total += weightOf(b)
	}
	r := rng.Float64() * total
	for _, b := range mix {
		r -= weightOf(b)
		if r < 0 {
			return b
		}
	}
	return mix[len(mix)-1]
}

func weightOf(b BenchmarkSpec) float64 {
	if b.Weight == 0 {
		return 1
	}
	return b.Weight
}
