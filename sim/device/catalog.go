// Package device describes simulated quantum backends: qubit count, coupling
// map and gate calibrations. A Catalog loaded from YAML serves as both the
// calibration provider and the compilation target registry.
package device

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/qcloud-sim/qcloud-sim/sim/calibration"
)

// CatalogVersion is the only supported catalog file version.
const CatalogVersion = 1

// Catalog is the top-level device file.
type Catalog struct {
	Version int      `yaml:"version"`
	Devices []Device `yaml:"devices"`
}

// Device is one backend.
type Device struct {
	Name        string               `yaml:"name"`
	NumQubits   int                  `yaml:"num_qubits"`
	CouplingMap [][2]int             `yaml:"coupling_map,omitempty"` // empty = all-to-all
	Defaults    []GateClass          `yaml:"defaults,omitempty"`
	Gates       []calibration.Record `yaml:"gates,omitempty"`
}

// GateClass expands to one calibration entry per qubit (Arity 1) or per
// coupling edge in both directions (Arity 2). Explicit Gates override it.
type GateClass struct {
	Names    []string `yaml:"names"`
	Arity    int      `yaml:"arity"`
	Error    *float64 `yaml:"error,omitempty"`
	Duration *float64 `yaml:"duration,omitempty"`
}

// LoadCatalog reads and validates a device catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("parsing device catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks version, names and topology.
func (c *Catalog) Validate() error {
	if c.Version != CatalogVersion {
		return fmt.Errorf("unsupported device catalog version: %d", c.Version)
	}
	if len(c.Devices) == 0 {
		return fmt.Errorf("device catalog defines no devices")
	}
	seen := make(map[string]bool, len(c.Devices))
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Name == "" {
			return fmt.Errorf("device %d has no name", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate device %q", d.Name)
		}
		seen[d.Name] = true
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the coupling map and gate classes of one device.
func (d *Device) Validate() error {
	if d.NumQubits < 1 {
		return fmt.Errorf("device %q: num_qubits must be >= 1, got %d", d.Name, d.NumQubits)
	}
	for _, e := range d.CouplingMap {
		if e[0] < 0 || e[0] >= d.NumQubits || e[1] < 0 || e[1] >= d.NumQubits || e[0] == e[1] {
			return fmt.Errorf("device %q: invalid coupling edge %v", d.Name, e)
		}
	}
	for _, gc := range d.Defaults {
		if gc.Arity != 1 && gc.Arity != 2 {
			return fmt.Errorf("device %q: gate class %v has arity %d, want 1 or 2", d.Name, gc.Names, gc.Arity)
		}
	}
	_, err := d.Calibration()
	return err
}

// Device returns the named device.
func (c *Catalog) Device(name string) (*Device, bool) {
	for i := range c.Devices {
		if c.Devices[i].Name == name {
			return &c.Devices[i], true
		}
	}
	return nil, false
}

// Names lists devices in file order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Devices))
	for i, d := range c.Devices {
		names[i] = d.Name
	}
	return names
}

// Calibrate implements calibration.Provider. Unknown names are an error.
func (c *Catalog) Calibrate(_ context.Context, nodeID string) (calibration.Table, error) {
	d, ok := c.Device(nodeID)
	if !ok {
		return nil, fmt.Errorf("no device %q in catalog", nodeID)
	}
	t, err := d.Calibration()
	if err != nil {
		return nil, err
	}
	logrus.Debugf("calibrated %s: %d entries", nodeID, len(t))
	return t, nil
}

// Calibration expands the gate classes and explicit gates into a table.
func (d *Device) Calibration() (calibration.Table, error) {
	var records []calibration.Record
	for _, gc := range d.Defaults {
		for _, name := range gc.Names {
			switch gc.Arity {
			case 1:
				for q := 0; q < d.NumQubits; q++ {
					records = append(records, calibration.Record{Op: name, Qubits: []int{q}, Error: gc.Error, Duration: gc.Duration})
				}
			case 2:
				for _, e := range d.Edges() {
					records = append(records, calibration.Record{Op: name, Qubits: []int{e[0], e[1]}, Error: gc.Error, Duration: gc.Duration})
				}
			}
		}
	}
	records = append(records, d.Gates...)
	t, err := calibration.FromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", d.Name, err)
	}
	return t, nil
}

// Edges returns the coupling map with both directions of every edge, or every
// ordered pair when the map is empty.
func (d *Device) Edges() [][2]int {
	var edges [][2]int
	if len(d.CouplingMap) == 0 {
		for a := 0; a < d.NumQubits; a++ {
			for b := 0; b < d.NumQubits; b++ {
				if a != b {
					edges = append(edges, [2]int{a, b})
				}
			}
		}
		return edges
	}
	seen := make(map[[2]int]bool, 2*len(d.CouplingMap))
	for _, e := range d.CouplingMap {
		for _, dir := range [][2]int{{e[0], e[1]}, {e[1], e[0]}} {
			if !seen[dir] {
				seen[dir] = true
				edges = append(edges, dir)
			}
		}
	}
	return edges
}

// Adjacency returns undirected neighbour lists, or nil for an all-to-all device.
func (d *Device) Adjacency() [][]int {
	if len(d.CouplingMap) == 0 {
		return nil
	}
	adj := make([][]int, d.NumQubits)
	seen := make(map[[2]int]bool, len(d.CouplingMap))
	for _, e := range d.CouplingMap {
		a, b := min(e[0], e[1]), max(e[0], e[1])
		if seen[[2]int{a, b}] {
			continue
		}
		seen[[2]int{a, b}] = true
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	return adj
}
