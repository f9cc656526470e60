package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tima/internal/store"
	"github.com/roach88/tima/internal/testutil"
)

// decode parses a JSON CLIResponse and re-decodes its data into v.
func decode(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if v != nil {
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, v))
	}
	return resp
}

func TestValidate_OK(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/hi.yaml", "testdata/pingpong.yaml")
	require.NoError(t, err)
	assert.Equal(t, "OK: 3 automata valid\n", out)
}

func TestValidate_CollectsErrors(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/bad.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E013 [broken]")
	assert.Contains(t, out, "E014 [broken]")
}

func TestValidate_JSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", "testdata/bad.yaml")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)
}

func TestValidate_Lenient(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/blink.yaml")
	require.Error(t, err)
	assert.Contains(t, out, "E016")

	out, _, err = execute(t, "validate", "--lenient", "testdata/blink.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 1 automata valid")
}

func TestValidate_MissingFile(t *testing.T) {
	_, _, err := execute(t, "validate", "testdata/nope.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompile(t *testing.T) {
	out, _, err := execute(t, "compile", "--format", "json", "testdata/hi.yaml")
	require.NoError(t, err)

	var result CompileResult
	decode(t, out, &result)
	require.Len(t, result.Automata, 1)
	s := result.Automata[0]
	assert.Equal(t, "hi", s.Name)
	assert.Equal(t, 4, s.States)
	assert.Equal(t, 0, s.Links)
	assert.Equal(t, 4, s.Predicates)
	assert.Len(t, s.Fingerprint, 64)
}

func TestCompile_Deterministic(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")

	_, _, err := execute(t, "compile", "-o", a, "testdata/pingpong.yaml")
	require.NoError(t, err)
	_, _, err = execute(t, "compile", "-o", b, "testdata/pingpong.yaml")
	require.NoError(t, err)

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Contains(t, string(da), `"name":"server"`)
}

func TestRender(t *testing.T) {
	out, _, err := execute(t, "render", "testdata/pingpong.yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `digraph "tima" {`), out)
	assert.Contains(t, out, "subgraph cluster_0")
	assert.Contains(t, out, "subgraph cluster_1")

	out, _, err = execute(t, "render", "--automaton", "session", "--compiled", "testdata/pingpong.yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `digraph "session" {`), out)
	assert.NotContains(t, out, "subgraph")
}

func TestRender_UnknownAutomaton(t *testing.T) {
	_, _, err := execute(t, "render", "--automaton", "ghost", "testdata/hi.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_Text(t *testing.T) {
	out, _, err := execute(t, "run", "--input", "ahxhi", "testdata/hi.yaml")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, []string{
		"enter h on 'h'",
		"leave h on 'x'",
		"enter h on 'h'",
		"leave h on 'i'",
		"enter ok on 'i'",
	}, lines[:5])
	assert.Equal(t, "terminated after 5 tick(s), 7 event(s)", lines[5])
}

func TestRun_StopsAtMaxTicks(t *testing.T) {
	out, _, err := execute(t, "run", "--format", "json",
		"--start", "server:srv", "--max-ticks", "3", "testdata/pingpong.yaml")
	require.NoError(t, err)

	var result RunResult
	decode(t, out, &result)
	assert.Equal(t, store.StatusStopped, result.Status)
	assert.Equal(t, int64(3), result.Ticks)
	assert.Zero(t, result.Faults)
}

func TestRun_UnknownStart(t *testing.T) {
	_, _, err := execute(t, "run", "--start", "ghost", "testdata/hi.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_RecordsAndTraces(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, _, err := execute(t, "run", "--format", "json", "--db", db, "--input", "ahxhi", "testdata/hi.yaml")
	require.NoError(t, err)
	var result RunResult
	decode(t, out, &result)
	require.NotEmpty(t, result.RunID)

	out, _, err = execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, result.RunID)
	assert.Contains(t, out, "terminated")

	out, _, err = execute(t, "trace", "--db", db, "--verify", result.RunID)
	require.NoError(t, err)
	assert.Contains(t, out, "hi s1 -> ok (char:i)")
	assert.Contains(t, out, "Trace verified.")

	out, _, err = execute(t, "trace", "--format", "json", "--db", db, result.RunID)
	require.NoError(t, err)
	var tr TraceResult
	decode(t, out, &tr)
	assert.Equal(t, result.TraceHash, tr.Run.TraceHash)
	assert.Len(t, tr.Events, 7)

	out, _, err = execute(t, "trace", "--format", "json", "--db", db,
		"--where", "to=s1", "--where", "tick=3..", result.RunID)
	require.NoError(t, err)
	decode(t, out, &tr)
	require.Len(t, tr.Events, 1)
	assert.Equal(t, int64(4), tr.Events[0].Tick)

	_, _, err = execute(t, "trace", "--db", db, "--where", "colour=red", result.RunID)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_FixedIDs(t *testing.T) {
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Input:       "hi",
		MaxTicks:    10,
		IDs:         testutil.NewIDSequence("run"),
	}
	cmd := NewRunCommand(opts.RootOptions)
	var out strings.Builder
	cmd.SetOut(&out)

	require.NoError(t, runAutomata(opts, []string{"testdata/hi.yaml"}, cmd))
	var result RunResult
	decode(t, out.String(), &result)
	assert.Equal(t, int64(2), result.Ticks)
	assert.Equal(t, []string{"enter h on 'h'", "leave h on 'i'", "enter ok on 'i'"}, result.Journal)
}

func TestTrace_MissingDatabase(t *testing.T) {
	_, _, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	_, _, err := execute(t, "run", "--db", db, "--input", "hi", "testdata/hi.yaml")
	require.NoError(t, err)

	_, _, err = execute(t, "trace", "--db", db, "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_Pass(t *testing.T) {
	out, _, err := execute(t, "test", "--golden", "testdata/golden", "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS hello (terminated, 5 ticks)")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTest_Fail(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/failing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL wrong")
}

func TestTest_Filter(t *testing.T) {
	out, _, err := execute(t, "test", "--filter", "nothing*", "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_UpdateGolden(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "test", "--golden", dir, "--update", "testdata/scenarios")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "hello.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("testdata/golden/hello.golden")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(string(want)), string(got))

	_, _, err = execute(t, "test", "--golden", filepath.Join(dir, "missing"), "testdata/scenarios")
	require.Error(t, err)
}

func TestTest_RecordsRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	out, _, err := execute(t, "test", "--format", "json", "--db", db, "testdata/scenarios")
	require.NoError(t, err)

	var result TestResult
	decode(t, out, &result)
	require.Len(t, result.Scenarios, 1)
	assert.NotEmpty(t, result.Scenarios[0].RunID)
}
