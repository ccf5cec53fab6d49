package integration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dailypy/mediaflow/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	exitItemsFailed = 1
	exitRunFailed   = 2
)

// TestIngestion_InvalidVideo_DryRun ensures that files which are not valid
// media files are reported as probe failures, and that the run exits with the
// status reserved for item failures.
func TestIngestion_InvalidVideo_DryRun(t *testing.T) {
	env := helpers.NewLocalEnvironment(t)
	tempDir, _ := helpers.TempDirWithFiles(t, []string{"thisisnotavalidfile.mp4"})

	result := helpers.RunMediaflow(t, env, "ingest", "--dry-run", tempDir)
	assert.Equal(t, exitItemsFailed, result.ExitCode)
	assert.Contains(t, result.Stdout, "[DRY-RUN]")
	assert.Contains(t, result.Stdout, "succeeded 0 / failed 1 / total 1")
	assert.Contains(t, result.Stdout, "[probe]")

	assert.NoFileExists(t, env.DatabasePath, "Expected dry-run to never touch the catalog database")
}

// TestIngestion_InvalidVideo_NothingUploaded ensures that an item which fails
// before the upload stages leaves the object store untouched, while the
// catalog database is still created and migrated for the run.
func TestIngestion_InvalidVideo_NothingUploaded(t *testing.T) {
	env := helpers.NewLocalEnvironment(t)
	tempDir, _ := helpers.TempDirWithFiles(t, []string{"broken.mp4", "broken.json"})

	result := helpers.RunMediaflow(t, env, "ingest", tempDir)
	assert.Equal(t, exitItemsFailed, result.ExitCode)
	assert.Contains(t, result.Stdout, "succeeded 0 / failed 1 / total 1")
	assert.NotContains(t, result.Stdout, "[DRY-RUN]")

	assert.FileExists(t, env.DatabasePath)
	entries, err := os.ReadDir(env.ObjectDir)
	if err == nil {
		assert.Empty(t, entries, "Expected no objects to be uploaded")
	} else {
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
}

func TestIngestion_EmptyFolder(t *testing.T) {
	env := helpers.NewLocalEnvironment(t)
	tempDir, _ := helpers.TempDirWithFiles(t, []string{"notes.txt", "orphan.json"})

	result := helpers.RunMediaflow(t, env, "ingest", "--dry-run", tempDir)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "(no video files found)")
}

func TestIngestion_RunLevelFailures(t *testing.T) {
	env := helpers.NewLocalEnvironment(t)
	tempDir, _ := helpers.TempDirWithFiles(t, []string{"clip.mp4"})

	tests := []struct {
		summary string
		args    []string
	}{
		{summary: "missing folder", args: []string{"ingest", "--dry-run", filepath.Join(tempDir, "does-not-exist")}},
		{summary: "unknown environment", args: []string{"ingest", "--env", "does-not-exist", tempDir}},
		{summary: "unknown cover backend", args: []string{"ingest", "--dry-run", "--cover-backend", "vlc", tempDir}},
		{summary: "invalid concurrency", args: []string{"ingest", "--dry-run", "--concurrency", "0", tempDir}},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			result := helpers.RunMediaflow(t, env, test.args...)
			assert.Equal(t, exitRunFailed, result.ExitCode)
			assert.NotContains(t, result.Stdout, "Ingest complete", "Expected no summary for a run-level failure")
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	env := helpers.NewLocalEnvironment(t)

	first := helpers.RunMediaflow(t, env, "migrate")
	require.Equal(t, 0, first.ExitCode)
	assert.Contains(t, first.Stdout, "catalog schema at version")
	assert.FileExists(t, env.DatabasePath)

	second := helpers.RunMediaflow(t, env, "migrate")
	require.Equal(t, 0, second.ExitCode)
	assert.Equal(t, first.Stdout, second.Stdout)
}

func TestCheck_ReportsBackends(t *testing.T) {
	env := helpers.NewLocalEnvironment(t)

	result := helpers.RunMediaflow(t, env, "check")
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "ffmpeg:")
	assert.Contains(t, result.Stdout, "ffprobe:")
	assert.Contains(t, result.Stdout, "duration backends:")
	assert.Contains(t, result.Stdout, "cover backends:")
}
