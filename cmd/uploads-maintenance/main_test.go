package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fenilsonani/uploads-maintenance/internal/config"
	"github.com/fenilsonani/uploads-maintenance/internal/testutil"
	"github.com/fenilsonani/uploads-maintenance/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath, verbose, dryRun = "", false, false
	outputFmt, outputFile, schedule, pidFile = "summary", "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, uploads string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	doc := fmt.Sprintf(`{
  "folders": [
    {"name": "avatars", "upload_path": %q, "max_age": "30", "max_storage": "100", "warn_storage": "80"}
  ],
  "log": {"level": "error"}
}`, uploads)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestCheckCommand(t *testing.T) {
	f := testutil.NewFixture(t)
	cfgPath := writeConfig(t, f.RootDir)

	out, err := execute(t, "check", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Config file: "+cfgPath)
	assert.Contains(t, out, "Warnings: system log")
	assert.Contains(t, out, "avatars: "+f.RootDir+" (max age 30 days, max storage 100 MB, warn 80 MB)")
}

func TestCheckCommandInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"folders": [{"name": "a"}]}`), 0644))

	_, err := execute(t, "check", "--config", path)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.NotEmpty(t, cfgErr.Problems)
}

func TestReportCommandDoesNotDelete(t *testing.T) {
	f := testutil.NewFixture(t)
	old := f.CreateSizedFile("old.bin", utils.MB, 45)
	cfgPath := writeConfig(t, f.RootDir)

	out, err := execute(t, "report", "--config", cfgPath, "--output", "json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, true, report["dry_run"])
	assert.Equal(t, float64(1), report["deleted_files"])
	f.AssertFileExists(old)
}

func TestRunCommandDeletes(t *testing.T) {
	f := testutil.NewFixture(t)
	old := f.CreateSizedFile("old.bin", utils.MB, 45)
	fresh := f.CreateSizedFile("fresh.bin", utils.MB, 1)
	cfgPath := writeConfig(t, f.RootDir)

	out, err := execute(t, "run", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "=== Maintenance Summary ===")
	f.AssertFileNotExists(old)
	f.AssertFileExists(fresh)
}

func TestRunCommandMissingFolderStillSucceeds(t *testing.T) {
	cfgPath := writeConfig(t, filepath.Join(t.TempDir(), "missing"))

	out, err := execute(t, "--config", cfgPath, "--output", "none")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunCommandRejectsUnknownOutput(t *testing.T) {
	f := testutil.NewFixture(t)
	_, err := execute(t, "run", "--config", writeConfig(t, f.RootDir), "--output", "xml")
	assert.Error(t, err)
}

func TestDaemonCommandNeedsSchedule(t *testing.T) {
	f := testutil.NewFixture(t)
	_, err := execute(t, "daemon", "--config", writeConfig(t, f.RootDir))
	assert.ErrorContains(t, err, "no schedule")
}

func TestCheckCommandFormatsLargeThresholds(t *testing.T) {
	f := testutil.NewFixture(t)
	path := filepath.Join(t.TempDir(), "config.json")
	doc := fmt.Sprintf(`{"folders": [{"name": "archive", "upload_path": %q, "max_age": 365, "max_storage": "1TB", "warn_storage": "2TB"}]}`, f.RootDir)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	out, err := execute(t, "check", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, out, "max storage 1000000 MB, warn 2000000 MB")
	assert.Contains(t, out, "warn_storage (2000000 MB) is above max_storage (1000000 MB)")
	assert.NotContains(t, out, "e+06")
}
