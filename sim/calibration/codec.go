package calibration

import (
	"encoding/json"
	"fmt"
	"math"
)

// Record is the serialized form of one table entry.
type Record struct {
	Op       string   `json:"op" yaml:"name"`
	Qubits   []int    `json:"qubits" yaml:"qubits"`
	Error    *float64 `json:"error,omitempty" yaml:"error,omitempty"`
	Duration *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Records flattens the table in key order.
func (t Table) Records() ([]Record, error) {
	out := make([]Record, 0, len(t))
	for _, k := range t.SortedKeys() {
		qubits, err := k.Qubits()
		if err != nil {
			return nil, err
		}
		e := t[k]
		out = append(out, Record{Op: k.Op, Qubits: qubits, Error: e.Error, Duration: e.Duration})
	}
	return out, nil
}

// FromRecords builds a table. Later records for the same key overwrite earlier ones.
func FromRecords(records []Record) (Table, error) {
	t := make(Table, len(records))
	for i, r := range records {
		if r.Op == "" {
			return nil, fmt.Errorf("calibration record %d: missing op", i)
		}
		if r.Error != nil && !(*r.Error >= 0 && *r.Error <= 1) {
			return nil, fmt.Errorf("calibration record %d (%s): error %v outside [0,1]", i, r.Op, *r.Error)
		}
		if r.Duration != nil && !(*r.Duration >= 0 && !math.IsInf(*r.Duration, 1)) {
			return nil, fmt.Errorf("calibration record %d (%s): duration %v is not a finite non-negative value", i, r.Op, *r.Duration)
		}
		t[NewKey(r.Op, r.Qubits)] = Entry{Error: r.Error, Duration: r.Duration}
	}
	return t, nil
}

// MarshalJSON encodes the table as a list of records.
func (t Table) MarshalJSON() ([]byte, error) {
	records, err := t.Records()
	if err != nil {
		return nil, err
	}
	return json.Marshal(records)
}

// UnmarshalJSON decodes a list of records.
func (t *Table) UnmarshalJSON(data []byte) error {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	decoded, err := FromRecords(records)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}
