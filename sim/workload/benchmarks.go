package workload

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/qcloud-sim/qcloud-sim/sim/circuit"
)

// ErrUnknownBenchmark is returned for a benchmark name with no generator.
var ErrUnknownBenchmark = errors.New("unknown benchmark")

// BenchmarkSpec names one benchmark instance.
type BenchmarkSpec struct {
	Name   string  `yaml:"name"`
	Qubits int     `yaml:"qubits"`
	Depth  int     `yaml:"depth,omitempty"`  // layers for linear/random/vqe; 0 = qubits
	Weight float64 `yaml:"weight,omitempty"` // relative pick weight when generating; 0 = 1
}

func (b BenchmarkSpec) String() string {
	return fmt.Sprintf("%s-%d", b.Name, b.Qubits)
}

// PresetSmall and PresetMedium are the reference benchmark collections.
// qft-128 is deliberately wider than most devices.
var (
	PresetSmall = []BenchmarkSpec{
		{Name: "ghz", Qubits: 5},
		{Name: "qft", Qubits: 128},
		{Name: "qft", Qubits: 3},
		{Name: "grover", Qubits: 3},
	}
	PresetMedium = []BenchmarkSpec{
		{Name: "qft", Qubits: 10},
		{Name: "ghz", Qubits: 10},
		{Name: "vqe", Qubits: 6},
	}
)

// Presets maps preset names to their benchmark lists.
var Presets = map[string][]BenchmarkSpec{
	"small":  PresetSmall,
	"medium": PresetMedium,
}

type generator func(b BenchmarkSpec, rng *rand.Rand) *circuit.Circuit

var generators = map[string]generator{
	"ghz":    ghz,
	"qft":    qft,
	"grover": grover,
	"vqe":    vqe,
	"linear": linear,
	"random": random,
}

// BenchmarkNames lists the supported benchmark names, sorted.
func BenchmarkNames() []string {
	names := make([]string, 0, len(generators))
	for n := range generators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build generates the circuit for b. rng is only drawn from by "random" and
// may be nil otherwise.
func Build(b BenchmarkSpec, rng *rand.Rand) (*circuit.Circuit, error) {
	gen, ok := generators[b.Name]
	if !ok {
		return nil, fmt.Errorf("%w %q; valid: %v", ErrUnknownBenchmark, b.Name, BenchmarkNames())
	}
	if b.Qubits < 1 {
		return nil, fmt.Errorf("benchmark %s: qubits must be >= 1, got %d", b.Name, b.Qubits)
	}
	if b.Name == "random" && rng == nil {
		return nil, fmt.Errorf("benchmark random needs an RNG")
	}
	return gen(b, rng), nil
}

func depthOf(b BenchmarkSpec) int {
	if b.Depth > 0 {
		return b.Depth
	}
	return b.Qubits
}

func measureAll(c *circuit.Circuit) *circuit.Circuit {
	for q := 0; q < c.NumQubits; q++ {
		c.Append("measure", q)
	}
	return c
}

// ghz: H on qubit 0 then a CX ladder.
func ghz(b BenchmarkSpec, _ *rand.Rand) *circuit.Circuit {
	c := circuit.New(b.String(), b.Qubits).Append("h", 0)
	for q := 0; q+1 < b.Qubits; q++ {
		c.Append("cx", q, q+1)
	}
	return measureAll(c)
}

// qft: H plus controlled phases per qubit, then the bit-reversal swaps.
func qft(b BenchmarkSpec, _ *rand.Rand) *circuit.Circuit {
	n := b.Qubits
	c := circuit.New(b.String(), n)
	for i := n - 1; i >= 0; i-- {
		c.Append("h", i)
		for j := i - 1; j >= 0; j-- {
			c.Append("cp", j, i)
		}
	}
	for i := 0; i < n/2; i++ {
		c.Append("swap", i, n-1-i)
	}
	return measureAll(c)
}

// grover: uniform superposition and ~sqrt(2^n) iterations of a phase oracle
// and diffuser, each built from a CX chain around an RZ on the last qubit.
func grover(b BenchmarkSpec, _ *rand.Rand) *circuit.Circuit {
	n := b.Qubits
	c := circuit.New(b.String(), n)
	for q := 0; q < n; q++ {
		c.Append("h", q)
	}
	iterations := 1
	for space := 4; space < 1<<uint(min(n, 20)); space *= 4 {
		iterations++
	}
	phase := func() {
		for q := 0; q+1 < n; q++ {
			c.Append("cx", q, q+1)
		}
		c.Append("rz", n-1)
		for q := n - 2; q >= 0; q-- {
			c.Append("cx", q, q+1)
		}
	}
	for it := 0; it < iterations; it++ {
		phase()
		for q := 0; q < n; q++ {
			c.Append("h", q).Append("x", q)
		}
		phase()
		for q := 0; q < n; q++ {
			c.Append("x", q).Append("h", q)
		}
	}
	return measureAll(c)
}

// vqe: hardware-efficient ansatz, rotation layer plus linear entanglers.
func vqe(b BenchmarkSpec, _ *rand.Rand) *circuit.Circuit {
	c := circuit.New(b.String(), b.Qubits)
	for layer := 0; layer < depthOf(b); layer++ {
		for q := 0; q < b.Qubits; q++ {
			c.Append("sx", q).Append("rz", q).Append("sx", q)
		}
		for q := 0; q+1 < b.Qubits; q++ {
			c.Append("cx", q, q+1)
		}
	}
	return measureAll(c)
}

// linear: brick-wall layers of SX and nearest-neighbour CX.
func linear(b BenchmarkSpec, _ *rand.Rand) *circuit.Circuit {
	c := circuit.New(b.String(), b.Qubits)
	for layer := 0; layer < depthOf(b); layer++ {
		for q := 0; q < b.Qubits; q++ {
			c.Append("sx", q)
		}
		for q := layer % 2; q+1 < b.Qubits; q += 2 {
			c.Append("cx", q, q+1)
		}
	}
	return measureAll(c)
}

var randomSingleQubit = []string{"h", "x", "sx", "rz"}

// random: each layer pairs up a shuffled qubit list; each pair gets a CX with
// probability one half, every other qubit a random single-qubit gate.
func random(b BenchmarkSpec, rng *rand.Rand) *circuit.Circuit {
	c := circuit.New(b.String(), b.Qubits)
	for layer := 0; layer < depthOf(b); layer++ {
		perm := rng.Perm(b.Qubits)
		for i := 0; i < len(perm); i += 2 {
			if i+1 < len(perm) && rng.Float64() < 0.5 {
				c.Append("cx", perm[i], perm[i+1])
				continue
			}
			c.Append(randomSingleQubit[rng.Intn(len(randomSingleQubit))], perm[i])
			if i+1 < len(perm) {
				c.Append(randomSingleQubit[rng.Intn(len(randomSingleQubit))], perm[i+1])
			}
		}
	}
	return measureAll(c)
}
