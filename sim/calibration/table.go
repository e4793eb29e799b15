// Package calibration holds per-node gate calibration data: for every
// (operation name, operand tuple) an optional error rate and an optional
// duration in seconds.
package calibration

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key identifies a calibrated operation. Op is always lowercase; Operands is the
// comma-joined operand tuple, e.g. Key{Op: "cx", Operands: "0,1"}.
type Key struct {
	Op       string
	Operands string
}

// NewKey builds a key from an operation name and its ordered operands.
func NewKey(op string, qubits []int) Key {
	parts := make([]string, len(qubits))
	for i, q := range qubits {
		parts[i] = strconv.Itoa(q)
	}
	return Key{Op: strings.ToLower(op), Operands: strings.Join(parts, ",")}
}

// Qubits parses the operand tuple back into indices.
func (k Key) Qubits() ([]int, error) {
	if k.Operands == "" {
		return nil, nil
	}
	parts := strings.Split(k.Operands, ",")
	qubits := make([]int, len(parts))
	for i, p := range parts {
		q, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("calibration key %s: bad operand %q: %w", k, p, err)
		}
		qubits[i] = q
	}
	return qubits, nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s(%s)", k.Op, k.Operands)
}

// Entry is the calibration of one operation. Nil fields are unknown.
type Entry struct {
	Error    *float64 `json:"error,omitempty" yaml:"error,omitempty"`
	Duration *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Table maps operations to their calibration. A Table is populated once and
// treated as read-only afterwards.
type Table map[Key]Entry

// Lookup returns the entry for op on qubits. op is matched case-insensitively.
func (t Table) Lookup(op string, qubits []int) (Entry, bool) {
	e, ok := t[NewKey(op, qubits)]
	return e, ok
}

// Duration returns the calibrated duration of op on qubits, if known.
func (t Table) Duration(op string, qubits []int) (float64, bool) {
	e, ok := t.Lookup(op, qubits)
	if !ok || e.Duration == nil {
		return 0, false
	}
	return *e.Duration, true
}

// Error returns the calibrated error rate of op on qubits, if known.
func (t Table) Error(op string, qubits []int) (float64, bool) {
	e, ok := t.Lookup(op, qubits)
	if !ok || e.Error == nil {
		return 0, false
	}
	return *e.Error, true
}

// MeanDuration averages every known duration. ok is false when there are none.
func (t Table) MeanDuration() (mean float64, ok bool) {
	return t.mean(func(e Entry) *float64 { return e.Duration })
}

// MeanError averages every known error rate. ok is false when there are none.
func (t Table) MeanError() (mean float64, ok bool) {
	return t.mean(func(e Entry) *float64 { return e.Error })
}

// mean sums in sorted key order so that equal tables always produce
// bit-identical means regardless of map iteration order.
func (t Table) mean(field func(Entry) *float64) (float64, bool) {
	sum, n := 0.0, 0
	for _, k := range t.SortedKeys() {
		if v := field(t[k]); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// SortedKeys returns the keys ordered by operation then operands.
func (t Table) SortedKeys() []Key {
	keys := make([]Key, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Op != keys[j].Op {
			return keys[i].Op < keys[j].Op
		}
		return keys[i].Operands < keys[j].Operands
	})
	return keys
}

// Float returns a pointer to v, for building entries.
func Float(v float64) *float64 { return &v }

// Provider extracts a calibration table for a node identity. It is called once
// per node at construction time.
type Provider interface {
	Calibrate(ctx context.Context, nodeID string) (Table, error)
}

// StaticProvider serves fixed tables, keyed by node identity.
type StaticProvider map[string]Table

// Calibrate implements Provider. Unknown nodes get an empty table: absent
// entries are legal and fall back to estimator defaults.
func (p StaticProvider) Calibrate(_ context.Context, nodeID string) (Table, error) {
	if t, ok := p[nodeID]; ok {
		return t, nil
	}
	return Table{}, nil
}
