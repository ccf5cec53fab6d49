package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempDirWithFiles creates a temporary directory (cleaned up automatically
// when the test completes) containing the files provided. File names may
// contain directory separators, in which case the parent directories
// are created. Each file contains a small amount of placeholder content.
//
// The returned slice contains the absolute path of each file, in the same
// order as the input.
func TempDirWithFiles(t *testing.T, files []string) (string, []string) {
	dirPath := t.TempDir()
	filePaths := make([]string, 0, len(files))
	for _, filename := range files {
		filePaths = append(filePaths, WriteFile(t, dirPath, filename, []byte("placeholder:"+filename)))
	}

	require.Len(t, filePaths, len(files), "Expected file paths recorded to match length of requested files")
	return dirPath, filePaths
}

// WriteFile writes the content provided to dir/name, creating any
// missing parent directories, and returns the path written.
func WriteFile(t *testing.T, dir string, name string, content []byte) string {
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm), "failed to create parent directory for temporary file")
	require.NoError(t, os.WriteFile(path, content, 0o644), "failed to create temporary file in temporary dir")

	return path
}
