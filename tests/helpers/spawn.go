package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	// BinaryPath is where 'make build' places the mediaflow binary, relative
	// to the tests/integration directory.
	BinaryPath = "../../.bin/mediaflow"

	spawnTimeout = 2 * time.Minute
)

// shouldOutputLogs controls whether the logs from spawned mediaflow processes are
// logged via the testing.T.
var shouldOutputLogs = os.Getenv("OUTPUT_MEDIAFLOW_LOGS") != ""

type (
	// CLIResult is the outcome of a single mediaflow invocation.
	CLIResult struct {
		ExitCode int
		Stdout   string
		Stderr   string
	}

	// LocalEnvironment is a catalog database and object store on the local file
	// system, described by a config file which can be handed to the CLI.
	LocalEnvironment struct {
		ConfigPath   string
		DatabasePath string
		ObjectDir    string
	}
)

// NewLocalEnvironment writes a config file describing an sqlite catalog and a
// filesystem object store, both inside of a temporary directory.
func NewLocalEnvironment(t *testing.T) LocalEnvironment {
	dir := t.TempDir()
	env := LocalEnvironment{
		DatabasePath: filepath.Join(dir, "catalog.db"),
		ObjectDir:    filepath.Join(dir, "objects"),
	}

	config := fmt.Sprintf(`environment: local
environments:
  local:
    database:
      dialect: sqlite
      path: %s
      connect_attempts: 1
    storage:
      backend: filesystem
      root_dir: %s
      base_url: https://cdn.example.com
`, env.DatabasePath, env.ObjectDir)
	env.ConfigPath = WriteFile(t, dir, "config.yaml", []byte(config))

	return env
}

// RunMediaflow runs the mediaflow binary with the arguments provided and blocks until
// it exits. The test is skipped if the binary has not been built.
func RunMediaflow(t *testing.T, env LocalEnvironment, args ...string) CLIResult {
	if _, err := os.Stat(BinaryPath); err != nil {
		t.Skipf("mediaflow binary not found at %s (build it first): %v", BinaryPath, err)
	}

	args = append([]string{"--config", env.ConfigPath}, args...)
	t.Logf("Running mediaflow %v", args)

	cmd := exec.Command(BinaryPath, args...)
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	require.NoError(t, cmd.Start(), "failed to start mediaflow process")
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-time.After(spawnTimeout):
		_ = cmd.Process.Kill()
		t.Fatalf("mediaflow process (PID %d) did not exit within %s", cmd.Process.Pid, spawnTimeout)
	}

	result := CLIResult{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else {
		require.NoError(t, err, "mediaflow process failed to run")
	}

	if shouldOutputLogs || t.Failed() {
		t.Logf("[mediaflow exit=%d] stdout:\n%s\nstderr:\n%s", result.ExitCode, result.Stdout, result.Stderr)
	} else {
		t.Cleanup(func() {
			if t.Failed() {
				t.Log("\n**HINT: Supply the 'OUTPUT_MEDIAFLOW_LOGS' environment variable to see the logs from spawned mediaflow processes")
			}
		})
	}

	return result
}
