package runner_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/repbench/internal/result"
	"github.com/signalnine/repbench/internal/runner"
)

// fakeEnv records collaborator calls and writes a marker into snapshots.
type fakeEnv struct {
	calls []string
}

func (f *fakeEnv) Reset(ctx context.Context) error {
	f.calls = append(f.calls, "reset")
	return nil
}

func (f *fakeEnv) MachineInfo(ctx context.Context, path string) error {
	f.calls = append(f.calls, "machine_info")
	return os.WriteFile(path, []byte("machine\n"), 0o644)
}

func (f *fakeEnv) ClearKernelLog(ctx context.Context) error {
	f.calls = append(f.calls, "dmesg_clear")
	return nil
}

func (f *fakeEnv) DumpKernelLog(ctx context.Context, path string) error {
	f.calls = append(f.calls, "dmesg_dump "+filepath.Base(path))
	return os.WriteFile(path, []byte("kernel\n"), 0o644)
}

// scriptedRun returns a run command that prints outputs[n] on its n-th
// invocation (the last entry repeats). An output of "HANG" sleeps instead.
func scriptedRun(t *testing.T, dir string, outputs ...string) []string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("n=$(cat counter 2>/dev/null || echo 0)\necho $((n+1)) > counter\ncase $n in\n")
	for i, out := range outputs {
		pattern := fmt.Sprint(i)
		if i == len(outputs)-1 {
			pattern = "*"
		}
		body := fmt.Sprintf("printf '%%b' '%s'", out)
		if out == "HANG" {
			body = "echo partial; sleep 30"
		}
		fmt.Fprintf(&sb, "%s) %s ;;\n", pattern, body)
	}
	sb.WriteString("esac\n")
	script := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(script, []byte(sb.String()), 0o755))
	return []string{"sh", script}
}

func newHarness(t *testing.T, trials int, run []string, workDir string) (*runner.Harness, *fakeEnv, *bytes.Buffer) {
	t.Helper()
	env := &fakeEnv{}
	var out bytes.Buffer
	h := &runner.Harness{
		Trials:   trials,
		Attempts: 3,
		Timeout:  10 * time.Second,
		RunCmd:   run,
		Dir:      workDir,
		Layout:   result.NewLayout(filepath.Join(workDir, "logs")),
		Env:      env,
		Stdout:   &out,
	}
	require.NoError(t, h.Layout.Prepare())
	return h, env, &out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestTimeoutMessage(t *testing.T) {
	assert.Equal(t, "Terminated by script (TIMEOUT: 300 sec)", runner.TimeoutMessage(300*time.Second))
	assert.Equal(t, "Terminated by script (TIMEOUT: 0.2 sec)", runner.TimeoutMessage(200*time.Millisecond))
}

func TestRunTrialSuccess(t *testing.T) {
	dir := t.TempDir()
	h, env, out := newHarness(t, 1, scriptedRun(t, dir, `hello\ntime: 1.5\n`), dir)

	tr, err := h.RunTrial(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, tr.Outcomes, 1)
	assert.True(t, tr.Completed())

	s, ok := tr.Outcomes[0].(result.Success)
	require.True(t, ok)
	assert.Equal(t, 0, s.Attempt)
	assert.Equal(t, h.Layout.LogPath(0), s.LogPath)
	assert.Equal(t, "hello\ntime: 1.5\n", readFile(t, s.LogPath))
	assert.Equal(t, "kernel\n", readFile(t, h.Layout.DmesgPath(0)))
	assert.Contains(t, out.String(), "hello\n", "output is teed to the console")
	assert.Equal(t, []string{"dmesg_clear", "dmesg_dump dmesg.log0"}, env.calls)
}

func TestRunTrialNonZeroExitIsOrdinaryOutput(t *testing.T) {
	dir := t.TempDir()
	run := []string{"sh", "-c", "echo 'error: boom' 1>&2; exit 101"}
	h, _, _ := newHarness(t, 1, run, dir)

	tr, err := h.RunTrial(context.Background(), 0, 0)
	require.NoError(t, err)
	require.True(t, tr.Completed())
	assert.Equal(t, 101, tr.Outcomes[0].(result.Success).ExitCode)
	assert.Equal(t, "error: boom\n", readFile(t, h.Layout.LogPath(0)))
}

func TestRunTrialAllAttemptsTimeOut(t *testing.T) {
	dir := t.TempDir()
	h, env, out := newHarness(t, 1, scriptedRun(t, dir, "HANG"), dir)
	h.Timeout = 200 * time.Millisecond

	tr, err := h.RunTrial(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.False(t, tr.Completed())
	assert.Equal(t, 3, tr.Timeouts())

	_, err = os.Stat(h.Layout.LogPath(0))
	assert.True(t, os.IsNotExist(err), "canonical log must not exist")
	_, err = os.Stat(h.Layout.DmesgPath(0))
	assert.True(t, os.IsNotExist(err))

	msg := runner.TimeoutMessage(h.Timeout)
	for attempt := 0; attempt < 3; attempt++ {
		o := tr.Outcomes[attempt].(result.TimedOut)
		assert.Equal(t, attempt, o.Attempt)
		assert.Equal(t, "partial\n"+msg+"\n", readFile(t, h.Layout.TimeoutLogPath(0, attempt)))
		assert.Equal(t, "kernel\n", readFile(t, h.Layout.TimeoutDmesgPath(0, attempt)))
	}
	assert.Equal(t, 3, strings.Count(out.String(), msg))

	want := []string{"dmesg_clear"}
	for attempt := 0; attempt < 3; attempt++ {
		want = append(want, "reset", fmt.Sprintf("dmesg_dump dmesg.log0_timeout%d", attempt), "dmesg_clear")
	}
	assert.Equal(t, want, env.calls)
}

func TestRunTrialRecoversAfterTimeout(t *testing.T) {
	dir := t.TempDir()
	h, _, _ := newHarness(t, 1, scriptedRun(t, dir, "HANG", `ok\ntime: 2.0\n`), dir)
	h.Timeout = 200 * time.Millisecond

	tr, err := h.RunTrial(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Len(t, tr.Outcomes, 2)
	assert.IsType(t, result.TimedOut{}, tr.Outcomes[0])
	assert.IsType(t, result.Success{}, tr.Outcomes[1])
	assert.Equal(t, "ok\ntime: 2.0\n", readFile(t, h.Layout.LogPath(2)))
	assert.Contains(t, readFile(t, h.Layout.TimeoutLogPath(2, 0)), "Terminated by script")
}

func TestRunTrialStartFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	h, _, _ := newHarness(t, 1, []string{"/nonexistent/bench"}, dir)
	_, err := h.RunTrial(context.Background(), 0, 0)
	assert.Error(t, err)
}

func TestRunTrialUnwritableLogDir(t *testing.T) {
	dir := t.TempDir()
	h, _, _ := newHarness(t, 1, []string{"true"}, dir)
	h.Layout = result.NewLayout(filepath.Join(dir, "missing"))
	_, err := h.RunTrial(context.Background(), 0, 0)
	assert.Error(t, err)
}
