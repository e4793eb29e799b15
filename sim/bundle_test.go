package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBundle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPolicyBundle_FullConfig(t *testing.T) {
	path := writeBundle(t, `
policy: fan
shots: 2048
fan:
  epsilon: 1.0e-6
compile:
  rate_per_second: 50
  burst: 5
trace:
  level: decisions
  counterfactual_k: 3
`)
	b, err := LoadPolicyBundle(path)
	require.NoError(t, err)
	require.NoError(t, b.Validate())

	assert.Equal(t, PolicyFidelityAware, b.Policy)
	require.NotNil(t, b.Shots)
	assert.Equal(t, 2048, *b.Shots)
	assert.Equal(t, 1e-6, *b.FAN.Epsilon)
	assert.Equal(t, 50.0, *b.Compile.RatePerSecond)
	assert.Equal(t, 5, *b.Compile.Burst)
	assert.Equal(t, "decisions", b.Trace.Level)
	assert.Equal(t, 3, *b.Trace.CounterfactualK)
}

func TestLoadPolicyBundle_EmptyFile_LeavesFieldsUnset(t *testing.T) {
	b, err := LoadPolicyBundle(writeBundle(t, "policy: sef\n"))
	require.NoError(t, err)
	assert.Nil(t, b.Shots)
	assert.Nil(t, b.FAN.Epsilon)
	assert.NoError(t, b.Validate())
}

func TestLoadPolicyBundle_UnknownKey_Rejected(t *testing.T) {
	_, err := LoadPolicyBundle(writeBundle(t, "policy: fdf\nshotz: 10\n"))
	assert.Error(t, err)
}

func TestLoadPolicyBundle_MissingFile(t *testing.T) {
	_, err := LoadPolicyBundle(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPolicyBundle_Validate_Rejects(t *testing.T) {
	neg := -1
	zero := 0.0
	tests := []struct {
		name   string
		bundle PolicyBundle
	}{
		{"unknown policy", PolicyBundle{Policy: "least-loaded"}},
		{"negative shots", PolicyBundle{Shots: &neg}},
		{"zero epsilon", PolicyBundle{FAN: FANConfig{Epsilon: &zero}}},
		{"zero burst", PolicyBundle{Compile: CompileConfig{Burst: new(int)}}},
		{"unknown trace level", PolicyBundle{Trace: TraceConfig{Level: "verbose"}}},
		{"negative k", PolicyBundle{Trace: TraceConfig{CounterfactualK: &neg}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.bundle.Validate())
		})
	}
}
