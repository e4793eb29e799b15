package sim

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/qcloud-sim/qcloud-sim/sim/compile"
	"github.com/qcloud-sim/qcloud-sim/sim/trace"
)

// Reference policy names.
const (
	PolicyRoundRobin           = "round-robin"
	PolicyFastestDurationFirst = "fdf"
	PolicySmallestErrorFirst   = "sef"
	PolicyFidelityAware        = "fan"
)

// validPolicies is shared by Validate() and NewPolicy(). Empty means round-robin.
var validPolicies = map[string]bool{
	"":                         true,
	PolicyRoundRobin:           true,
	PolicyFastestDurationFirst: true,
	PolicySmallestErrorFirst:   true,
	PolicyFidelityAware:        true,
}

// IsValidPolicy reports whether name is a recognized policy.
func IsValidPolicy(name string) bool { return validPolicies[name] }

// ValidPolicyNames lists recognized policy names, sorted.
func ValidPolicyNames() []string {
	names := make([]string, 0, len(validPolicies))
	for n := range validPolicies {
		if n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// NewPolicy builds a fresh policy instance. Only FidelityAware uses compiler,
// shots and epsilon. Panics on an unknown name; check IsValidPolicy first.
func NewPolicy(name string, compiler compile.Compiler, shots int, epsilon float64) Policy {
	if !IsValidPolicy(name) {
		panic(fmt.Sprintf("unknown policy %q", name))
	}
	switch name {
	case "", PolicyRoundRobin:
		return NewRoundRobin()
	case PolicyFastestDurationFirst:
		return FastestDurationFirst{}
	case PolicySmallestErrorFirst:
		return SmallestErrorFirst{}
	case PolicyFidelityAware:
		return NewFidelityAware(compiler, shots, epsilon)
	default:
		panic(fmt.Sprintf("unhandled policy %q", name))
	}
}

// PolicyBundle is the YAML run configuration. Nil pointer fields mean
// "not set" and leave the CLI flag values in place.
type PolicyBundle struct {
	Policy  string        `yaml:"policy"`
	Shots   *int          `yaml:"shots"`
	FAN     FANConfig     `yaml:"fan"`
	Compile CompileConfig `yaml:"compile"`
	Trace   TraceConfig   `yaml:"trace"`
}

// FANConfig tunes the fidelity-aware policy.
type FANConfig struct {
	Epsilon *float64 `yaml:"epsilon"`
}

// CompileConfig throttles calls to the compilation service.
type CompileConfig struct {
	RatePerSecond *float64 `yaml:"rate_per_second"`
	Burst         *int     `yaml:"burst"`
}

// TraceConfig selects decision tracing.
type TraceConfig struct {
	Level           string `yaml:"level"`
	CounterfactualK *int   `yaml:"counterfactual_k"`
}

// LoadPolicyBundle reads and parses a YAML policy configuration file.
// Unrecognized keys are rejected.
func LoadPolicyBundle(path string) (*PolicyBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy config: %w", err)
	}
	var bundle PolicyBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("parsing policy config: %w", err)
	}
	return &bundle, nil
}

// Validate checks the policy name and parameter ranges.
func (b *PolicyBundle) Validate() error {
	if !IsValidPolicy(b.Policy) {
		return fmt.Errorf("unknown policy %q; valid: %v", b.Policy, ValidPolicyNames())
	}
	if b.Shots != nil && *b.Shots <= 0 {
		return fmt.Errorf("shots must be positive, got %d", *b.Shots)
	}
	if b.FAN.Epsilon != nil && *b.FAN.Epsilon <= 0 {
		return fmt.Errorf("fan.epsilon must be positive, got %g", *b.FAN.Epsilon)
	}
	if b.Compile.RatePerSecond != nil && *b.Compile.RatePerSecond < 0 {
		return fmt.Errorf("compile.rate_per_second must be non-negative, got %g", *b.Compile.RatePerSecond)
	}
	if b.Compile.Burst != nil && *b.Compile.Burst < 1 {
		return fmt.Errorf("compile.burst must be >= 1, got %d", *b.Compile.Burst)
	}
	if !trace.IsValidTraceLevel(b.Trace.Level) {
		return fmt.Errorf("unknown trace level %q", b.Trace.Level)
	}
	if b.Trace.CounterfactualK != nil && *b.Trace.CounterfactualK < 0 {
		return fmt.Errorf("trace.counterfactual_k must be non-negative, got %d", *b.Trace.CounterfactualK)
	}
	return nil
}
