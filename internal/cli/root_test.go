package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/cli/config"
	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	cfgFile = ""

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"setup", "validate", "run", "list", "show", "clean", "history", "version", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"config", "metrics-dir", "database", "state", "verbose", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_EndToEnd(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(dir, config.ConfigFileName)

	_, _, err := runRoot(t, "--config", cfgPath, "setup", "-o", "json")
	require.NoError(t, err)

	out, _, err := runRoot(t, "--config", cfgPath, "run", "-o", "json")
	require.NoError(t, err)

	var res output.BatchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Summary.Succeeded)

	out, _, err = runRoot(t, "--config", cfgPath, "list", "-o", "markdown")
	require.NoError(t, err)
	testutil.AssertNoANSI(t, out)
	assert.Contains(t, out, "order_count")

	_, err = os.Stat(filepath.Join(dir, ".leapmetrics", "state.db"))
	assert.NoError(t, err, "state database is created inside the project")
}

func TestRootCommand_VerboseLogsToStderr(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(dir, config.ConfigFileName)

	out, errOut, err := runRoot(t, "--config", cfgPath, "-v", "validate", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, errOut, "level=DEBUG")
	assert.NotContains(t, out, "level=", "logs never mix with command output")
}

func TestRootCommand_DatabaseFlag(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(dir, config.ConfigFileName)
	dbPath := filepath.Join(t.TempDir(), "other.duckdb")

	_, _, err := runRoot(t, "--config", cfgPath, "--database", dbPath, "setup", "-o", "json")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "metrics.duckdb"))
	assert.True(t, os.IsNotExist(err), "configured database is not touched")
}

func TestRootCommand_MissingConfig(t *testing.T) {
	_, _, err := runRoot(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "list")
	require.Error(t, err)
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := runRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapmetrics")

	_, _, err = runRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestGetConfigDefaults(t *testing.T) {
	cfg := GetConfig(context.Background())
	assert.Equal(t, config.DefaultMetricsDir, cfg.MetricsDir)
	assert.Equal(t, config.DefaultOutput, cfg.OutputFormat)

	r := GetRenderer(context.Background())
	assert.Equal(t, output.ModeAuto, r.Mode())
}
