package cliapp

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.NotNil(t, cmd)
	assert.Equal(t, "fractor", cmd.Use)

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["validate"])
	assert.True(t, names["visualize"])
	assert.True(t, names["execute"])
	assert.True(t, names["supervisor"])

	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidateCommandAcceptsKnownWorkerClass(t *testing.T) {
	path := writeConfigFile(t, "pools:\n  - worker_class: echo\n    num_workers: 2\n")

	cmd := BuildCLI()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"validate", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "valid")
}

func TestValidateCommandRejectsUnknownWorkerClass(t *testing.T) {
	path := writeConfigFile(t, "pools:\n  - worker_class: no-such-worker\n    num_workers: 2\n")

	cmd := BuildCLI()
	cmd.SetArgs([]string{"validate", path})
	assert.Error(t, cmd.Execute())
}

func TestVisualizeCommandRendersEachFormat(t *testing.T) {
	path := writeConfigFile(t, "pools:\n  - worker_class: echo\n    num_workers: 3\n")

	for _, format := range []string{"ascii", "mermaid", "dot"} {
		cmd := BuildCLI()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{"visualize", path, "-f", format})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "echo")
	}
}

func TestSupervisorCommandRunsBatchAgainstEcho(t *testing.T) {
	cmd := BuildCLI()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"supervisor", "echo", "1", "2", "3", "-w", "2"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "completed=3")
}

func TestSupervisorCommandReportsFailures(t *testing.T) {
	cmd := BuildCLI()
	cmd.SetArgs([]string{"supervisor", "no-such-worker", "1"})
	assert.Error(t, cmd.Execute())
}

func TestExecuteCommandSeedsFromInputFlag(t *testing.T) {
	path := writeConfigFile(t, "pools:\n  - worker_class: echo\n    num_workers: 1\nmetrics:\n  enabled: false\n")

	cmd := BuildCLI()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"execute", path, "-i", `[1, 2, 3]`})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "completed=3")
}
