package results

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcloud-sim/qcloud-sim/sim"
)

func f(v float64) *float64 { return &v }
func n(v int) *int         { return &v }

// sampleRecords: one success and one compile failure on "a", one unassigned.
func sampleRecords() []sim.ExecutionRecord {
	return []sim.ExecutionRecord{
		{
			TaskID: 0, Backend: "a", Status: sim.StatusSuccess,
			ArrivalTime: 0, StartTime: 0, FinishTime: 0.5, WaitingTime: 0, TurnaroundTime: 0.5,
			Fidelity: f(0.9), ExecTimeEst: f(0.5), SwapCount: n(2),
		},
		{
			TaskID: 1, Backend: "a", Status: sim.StatusFailed, Message: "circuit too wide",
			ArrivalTime: 0, StartTime: 0.5, FinishTime: 1.5, WaitingTime: 0.5, TurnaroundTime: 1.5,
		},
		{
			TaskID: 2, Status: sim.StatusFailed, Message: "no node could compile task",
			ArrivalTime: sim.Sentinel, StartTime: sim.Sentinel, FinishTime: sim.Sentinel,
			WaitingTime: sim.Sentinel, TurnaroundTime: sim.Sentinel,
			Fidelity: f(sim.Sentinel), ExecTimeEst: f(sim.Sentinel), SwapCount: n(-1),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{"0", "a", "success", "", "0", "0", "0.5", "0", "0.5", "0.9", "0.5", "2"}, rows[1])

	// Nil metrics are empty cells
	assert.Equal(t, []string{"", "", ""}, rows[2][9:])
	// Sentinels are written as-is
	assert.Equal(t, "-1", rows[3][5])
	assert.Equal(t, "", rows[3][1])
}

func TestWriteCSV_NoRecords_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSVFile(path, sampleRecords()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}

func TestPromExporter_Observe(t *testing.T) {
	// GIVEN one run of three records
	e := NewPromExporter()

	// WHEN observed
	e.Observe("round-robin", sampleRecords())

	// THEN counts are split by node and status
	assert.Equal(t, 1.0, testutil.ToFloat64(e.tasks.WithLabelValues("round-robin", "a", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.tasks.WithLabelValues("round-robin", "a", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.tasks.WithLabelValues("round-robin", "none", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.swaps.WithLabelValues("round-robin", "a")))
	assert.Equal(t, 1.5, testutil.ToFloat64(e.busy.WithLabelValues("round-robin", "a")))
	assert.Equal(t, 1.5, testutil.ToFloat64(e.makespan.WithLabelValues("round-robin")))

	// AND only the two tasks that held a node produced waiting samples
	assert.Equal(t, 1, testutil.CollectAndCount(e.waiting))
	assert.Equal(t, 1, testutil.CollectAndCount(e.fidelity))
}

func TestPromExporter_SeveralPolicies(t *testing.T) {
	e := NewPromExporter()
	e.Observe("fdf", sampleRecords())
	e.Observe("sef", sampleRecords())
	assert.Equal(t, 2, testutil.CollectAndCount(e.makespan))
}

func TestPromExporter_WriteTextfile(t *testing.T) {
	e := NewPromExporter()
	e.Observe("fan", sampleRecords())

	path := filepath.Join(t.TempDir(), "qcloud.prom")
	require.NoError(t, e.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `qcloud_run_makespan_seconds{policy="fan"} 1.5`)
	assert.Contains(t, string(data), "qcloud_task_waiting_seconds_bucket")
}

// Set QCLOUD_TEST_POSTGRES_DSN to run against a live database.
func TestPostgresSink_RoundTrip(t *testing.T) {
	dsn := os.Getenv("QCLOUD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QCLOUD_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	sink, err := NewPostgresSink(ctx, dsn)
	require.NoError(t, err)
	defer sink.Close()
	require.NoError(t, sink.EnsureSchema(ctx))

	runID := fmt.Sprintf("test-%s", t.Name())
	want := sampleRecords()
	require.NoError(t, sink.WriteRun(ctx, runID, "round-robin", want))
	// Rewriting replaces the run
	require.NoError(t, sink.WriteRun(ctx, runID, "round-robin", want))

	got, err := sink.ReadRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewPostgresSink_BadDSN(t *testing.T) {
	_, err := NewPostgresSink(context.Background(), "postgres://%zz")
	assert.Error(t, err)
}
