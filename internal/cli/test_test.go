package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	harnessScenarios = "../harness/testdata/scenarios"
	harnessGolden    = "../harness/testdata/golden"
)

func copyScenario(t *testing.T, dir, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(harnessScenarios, name+".yaml"))
	require.NoError(t, err)
	writeTestFile(t, filepath.Join(dir, name+".yaml"), string(data))
}

func TestTest_HarnessScenariosPass(t *testing.T) {
	newFixtures(t)

	out, err := executeCommand(t, "test", harnessScenarios, "--golden", harnessGolden, "--format", "json")
	require.NoError(t, err, out)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Failed)
	assert.Equal(t, resp.Data.Total, resp.Data.Passed)
	assert.GreaterOrEqual(t, resp.Data.Total, 6)
}

func TestTest_Filter(t *testing.T) {
	newFixtures(t)

	out, err := executeCommand(t, "test", harnessScenarios, "--golden", harnessGolden, "--filter", "reference_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ reference_glow")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTest_UpdateThenCompare(t *testing.T) {
	newFixtures(t)
	dir := t.TempDir()
	copyScenario(t, dir, "gate_below_threshold")

	out, err := executeCommand(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")

	golden := filepath.Join(dir, "golden", "gate_below_threshold.golden")
	written, err := os.ReadFile(golden)
	require.NoError(t, err)
	expected, err := os.ReadFile(filepath.Join(harnessGolden, "gate_below_threshold.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(written))

	_, err = executeCommand(t, "test", dir)
	require.NoError(t, err)

	writeTestFile(t, golden, "{}")
	out, err = executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestTest_FailingAssertion(t *testing.T) {
	newFixtures(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "wrong.yaml"), `
name: wrong_generation
description: "The glow batch applies once, so generation 7 is never reached"
now: 1700000000000
draws: [0.5, 0.5]
organism: {}
patterns:
  - {event: replicate, frequency: 10, success_rate: 0.9, resonance_impact: 0.9, timestamp: 1700000000000}
feedback: {resonance_received: 0.9, energy_flow: 0.5}
assertions:
  - {type: generation, count: 7}
`)

	out, err := executeCommand(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	env := decodeEnvelope(t, out)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, ErrCodeTestFailed, env.Error.Code)

	var res TestResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Scenarios, 1)
	assert.Equal(t, "wrong_generation", res.Scenarios[0].Name)
	assert.NotEmpty(t, res.Scenarios[0].Errors)
}

func TestTest_LoadError(t *testing.T) {
	newFixtures(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "broken.yaml"), "name: [\n")

	out, err := executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTest_EmptyAndMissingDirectory(t *testing.T) {
	newFixtures(t)

	out, err := executeCommand(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, err = executeCommand(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "x.golden"), goldenFilePath("", filepath.Join("s", "a.yaml"), "x"))
	assert.Equal(t, filepath.Join("g", "x.golden"), goldenFilePath("g", filepath.Join("s", "a.yaml"), "x"))
}
