package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testNowMs = "1700000000000"

// fixtures are input files for one test, all in a temp directory.
type fixtures struct {
	dir      string
	organism string
	patterns string
	feedback string
	config   string // mutation_rate 0: only feedback mutations fire
	db       string
}

// newFixtures writes the reference inputs: a dominant replicate pattern and
// feedback strong enough to light svg.glow.
func newFixtures(t *testing.T) fixtures {
	t.Helper()
	// Keep the process environment out of config loading.
	for _, k := range []string{"MORPHIC_SEED", "MORPHIC_STORE_PATH", "MORPHIC_LOG_LEVEL", "MORPHIC_ENGINE_MUTATION_RATE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	dir := t.TempDir()
	f := fixtures{
		dir:      dir,
		organism: filepath.Join(dir, "organism.json"),
		patterns: filepath.Join(dir, "patterns.yaml"),
		feedback: filepath.Join(dir, "feedback.yaml"),
		config:   filepath.Join(dir, "morphic.yaml"),
		db:       filepath.Join(dir, "morphic.db"),
	}
	writeTestFile(t, f.organism, `{"manifest": {"name": "seed"}}`)
	writeTestFile(t, f.patterns, `
- {event: replicate, frequency: 10, success_rate: 0.9, resonance_impact: 0.9, timestamp: 1700000000000}
`)
	writeTestFile(t, f.feedback, `
interactions: 5
resonance_received: 0.9
clones_spawned: 1
energy_flow: 0.5
`)
	writeTestFile(t, f.config, `
engine:
  mutation_rate: 0
log:
  level: error
`)
	return f
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	err := executeCommandContext(context.Background(), out, args...)
	return out.String(), err
}

func executeCommandContext(ctx context.Context, out io.Writer, args ...string) error {
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// envelope decodes a CLIResponse keeping Data raw.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), "output: %s", out)
	return env
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
