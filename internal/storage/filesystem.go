package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dailypy/mediaflow/pkg/logger"
)

// FilesystemStore implements ObjectStore on top of a local directory. It
// is used for local development environments and for tests, where a
// real bucket is not available.
type FilesystemStore struct {
	rootDir string
	baseURL string
}

// NewFilesystemStore creates a store rooted at rootDir, creating the directory
// if needed. Public URLs are '{baseURL}/{key}', or file:// URLs when baseURL
// is empty.
func NewFilesystemStore(rootDir string, baseURL string) (*FilesystemStore, error) {
	if rootDir == "" {
		return nil, errors.New("filesystem store requires a root directory")
	}

	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}

	return &FilesystemStore{rootDir: abs, baseURL: baseURL}, nil
}

func (store *FilesystemStore) Upload(ctx context.Context, localPath string, key string, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &UploadError{Key: key, LocalPath: localPath, Err: err}
	}

	dest, err := store.resolve(key)
	if err != nil {
		return "", &UploadError{Key: key, LocalPath: localPath, Err: err}
	}

	if err := copyFile(localPath, dest); err != nil {
		return "", &UploadError{Key: key, LocalPath: localPath, Err: err}
	}

	log.Emit(logger.VERBOSE, "Copied %s to %s\n", localPath, dest)
	return store.PublicURL(key), nil
}

func (store *FilesystemStore) Exists(_ context.Context, key string) (bool, error) {
	path, err := store.resolve(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat object: %w", err)
	}

	return true, nil
}

// Delete removes the object, returning false if it did not exist.
func (store *FilesystemStore) Delete(_ context.Context, key string) (bool, error) {
	path, err := store.resolve(key)
	if err != nil {
		return false, err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to delete object: %w", err)
	}

	return true, nil
}

// List returns the sorted keys of every object whose key begins with prefix.
func (store *FilesystemStore) List(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := filepath.WalkDir(store.rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(store.rootDir, path)
		if err != nil {
			return err
		}

		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (store *FilesystemStore) PublicURL(key string) string {
	if store.baseURL == "" {
		return "file://" + filepath.ToSlash(filepath.Join(store.rootDir, filepath.FromSlash(key)))
	}

	return strings.TrimRight(store.baseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

// resolve converts the key to a path inside the root directory, rejecting
// keys which would escape it.
func (store *FilesystemStore) resolve(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	path := filepath.Join(store.rootDir, filepath.FromSlash(key))
	if path != store.rootDir && !strings.HasPrefix(path, store.rootDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidKey)
	}

	return path, nil
}

func copyFile(src string, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
