// Package circuit defines the logical circuit payload carried by tasks and the
// compiled instruction graph consumed by the cost estimator.
package circuit

import (
	"fmt"
	"strings"
)

// Gate is a single instruction applied to an ordered tuple of qubits.
type Gate struct {
	Name   string `yaml:"name" json:"name"`
	Qubits []int  `yaml:"qubits" json:"qubits"`
}

func (g Gate) String() string {
	parts := make([]string, len(g.Qubits))
	for i, q := range g.Qubits {
		parts[i] = fmt.Sprint(q)
	}
	return fmt.Sprintf("%s(%s)", g.Name, strings.Join(parts, ","))
}

// Circuit is an ordered gate list over NumQubits qubits. Before compilation the
// qubit indices are logical; after compilation they are physical.
type Circuit struct {
	Name      string
	NumQubits int
	Gates     []Gate
}

// New returns an empty circuit.
func New(name string, numQubits int) *Circuit {
	return &Circuit{Name: name, NumQubits: numQubits}
}

// Append adds a gate and returns the circuit for chaining.
func (c *Circuit) Append(name string, qubits ...int) *Circuit {
	c.Gates = append(c.Gates, Gate{Name: name, Qubits: append([]int(nil), qubits...)})
	return c
}

// Validate checks that every operand is in range and that no gate repeats a qubit.
func (c *Circuit) Validate() error {
	if c.NumQubits < 0 {
		return fmt.Errorf("circuit %q: negative qubit count %d", c.Name, c.NumQubits)
	}
	for i, g := range c.Gates {
		if g.Name == "" {
			return fmt.Errorf("circuit %q: gate %d has no name", c.Name, i)
		}
		seen := make(map[int]bool, len(g.Qubits))
		for _, q := range g.Qubits {
			if q < 0 || q >= c.NumQubits {
				return fmt.Errorf("circuit %q: gate %d (%s) operand %d out of range [0,%d)", c.Name, i, g.Name, q, c.NumQubits)
			}
			if seen[q] {
				return fmt.Errorf("circuit %q: gate %d (%s) repeats qubit %d", c.Name, i, g.Name, q)
			}
			seen[q] = true
		}
	}
	return nil
}

// Count returns the number of gates whose lowercase name equals name.
func (c *Circuit) Count(name string) int {
	name = strings.ToLower(name)
	n := 0
	for _, g := range c.Gates {
		if strings.ToLower(g.Name) == name {
			n++
		}
	}
	return n
}

func (c *Circuit) String() string {
	return fmt.Sprintf("Circuit: (Name: %s, Qubits: %d, Gates: %d)", c.Name, c.NumQubits, len(c.Gates))
}
