// Package results exports execution records: CSV files, a Prometheus
// textfile of run metrics, and a Postgres table.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/qcloud-sim/qcloud-sim/sim"
)

// Columns is the CSV header, one column per ExecutionRecord field.
var Columns = []string{
	"task_id", "backend", "status", "message",
	"arrival_time", "start_time", "finish_time", "waiting_time", "turnaround_time",
	"fidelity", "exec_time_est", "swap_count",
}

// WriteCSV writes a header and one row per record in the given order.
// Nil metrics are written as empty cells.
func WriteCSV(w io.Writer, records []sim.ExecutionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("writing task %d: %w", r.TaskID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile creates path and writes records to it.
func WriteCSVFile(path string, records []sim.ExecutionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func row(r sim.ExecutionRecord) []string {
	return []string{
		strconv.Itoa(r.TaskID),
		r.Backend,
		string(r.Status),
		r.Message,
		formatFloat(r.ArrivalTime),
		formatFloat(r.StartTime),
		formatFloat(r.FinishTime),
		formatFloat(r.WaitingTime),
		formatFloat(r.TurnaroundTime),
		formatFloatPtr(r.Fidelity),
		formatFloatPtr(r.ExecTimeEst),
		formatIntPtr(r.SwapCount),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
