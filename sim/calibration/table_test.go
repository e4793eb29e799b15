package calibration

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Lookup_IsCaseInsensitiveOnOp(t *testing.T) {
	tbl := Table{
		NewKey("cx", []int{0, 1}): {Error: Float(0.01), Duration: Float(3e-7)},
	}
	e, ok := tbl.Lookup("CX", []int{0, 1})
	require.True(t, ok)
	assert.Equal(t, 0.01, *e.Error)

	// Operand order matters: cx(1,0) is a different calibration
	_, ok = tbl.Lookup("cx", []int{1, 0})
	assert.False(t, ok)
}

func TestTable_DurationAndError_SkipMissingFields(t *testing.T) {
	tbl := Table{
		NewKey("sx", []int{0}): {Duration: Float(3.5e-8)},
	}
	d, ok := tbl.Duration("sx", []int{0})
	assert.True(t, ok)
	assert.Equal(t, 3.5e-8, d)

	_, ok = tbl.Error("sx", []int{0})
	assert.False(t, ok, "entry without error must report unknown")
}

func TestTable_Means_IgnoreAbsentValues(t *testing.T) {
	tbl := Table{
		NewKey("x", []int{0}):     {Error: Float(0.1), Duration: Float(100)},
		NewKey("x", []int{1}):     {Error: Float(0.3)},
		NewKey("cx", []int{0, 1}): {Duration: Float(300)},
	}
	mean, ok := tbl.MeanDuration()
	require.True(t, ok)
	assert.InDelta(t, 200.0, mean, 1e-12)

	meanErr, ok := tbl.MeanError()
	require.True(t, ok)
	assert.InDelta(t, 0.2, meanErr, 1e-12)
}

func TestTable_Means_EmptyTable(t *testing.T) {
	_, ok := Table{}.MeanDuration()
	assert.False(t, ok)
	_, ok = Table{}.MeanError()
	assert.False(t, ok)
}

func TestKey_Qubits_RoundTrip(t *testing.T) {
	k := NewKey("CZ", []int{4, 7})
	assert.Equal(t, "cz", k.Op)
	q, err := k.Qubits()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 7}, q)
	assert.Equal(t, "cz(4,7)", k.String())
}

func TestTable_JSON_PreservesAbsentFields(t *testing.T) {
	tbl := Table{
		NewKey("cx", []int{0, 1}): {Error: Float(0.01)},
		NewKey("measure", []int{0}): {Duration: Float(1e-6)},
	}
	data, err := json.Marshal(tbl)
	require.NoError(t, err)

	var decoded Table
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, tbl, decoded)
}

func TestFromRecords_RejectsOutOfRangeError(t *testing.T) {
	_, err := FromRecords([]Record{{Op: "x", Qubits: []int{0}, Error: Float(1.5)}})
	assert.Error(t, err)

	_, err = FromRecords([]Record{{Op: "x", Qubits: []int{0}, Duration: Float(-1)}})
	assert.Error(t, err)

	// Non-finite values pass plain range comparisons and must be caught too
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = FromRecords([]Record{{Op: "x", Qubits: []int{0}, Error: Float(v)}})
		assert.Error(t, err, "error %v", v)
		_, err = FromRecords([]Record{{Op: "x", Qubits: []int{0}, Duration: Float(v)}})
		assert.Error(t, err, "duration %v", v)
	}
}

func TestStaticProvider_UnknownNode_ReturnsEmptyTable(t *testing.T) {
	p := StaticProvider{"a": {NewKey("x", []int{0}): {}}}
	tbl, err := p.Calibrate(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, tbl)
}

type countingProvider struct {
	calls int
	table Table
}

func (c *countingProvider) Calibrate(context.Context, string) (Table, error) {
	c.calls++
	return c.table, nil
}

func TestRedisProvider_CachesUpstreamTable(t *testing.T) {
	addr := os.Getenv("QCLOUD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QCLOUD_TEST_REDIS_ADDR not set")
	}
	upstream := &countingProvider{table: Table{NewKey("cx", []int{0, 1}): {Error: Float(0.02)}}}
	p, err := NewRedisProvider(addr, "", 0, upstream, time.Minute)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Invalidate(ctx, "test-node"))

	first, err := p.Calibrate(ctx, "test-node")
	require.NoError(t, err)
	second, err := p.Calibrate(ctx, "test-node")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls, "second lookup must be served from redis")
}
