package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dailypy/mediaflow/internal/storage"
	"github.com/dailypy/mediaflow/tests/helpers"
	"github.com/labstack/gommon/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Keys_AreDeterministic(t *testing.T) {
	keys := storage.NewKeys("media_video/", "media_instruct", "/media_cover//")

	assert.Equal(t, "media_video/a.mp4", keys.Video("a.mp4"))
	assert.Equal(t, "media_instruct/a.json", keys.Sidecar("a.json"))
	assert.Equal(t, "media_cover/a.jpg", keys.Cover("a"))

	again := storage.NewKeys("media_video/", "media_instruct", "/media_cover//")
	assert.Equal(t, keys.Video("a.mp4"), again.Video("a.mp4"))
	assert.Equal(t, keys, again)
}

func Test_Keys_EmptyPrefix(t *testing.T) {
	keys := storage.NewKeys("", "/", "")
	assert.Equal(t, "a.mp4", keys.Video("a.mp4"))
	assert.Equal(t, "a.json", keys.Sidecar("a.json"))
	assert.Equal(t, "a.jpg", keys.Cover("a"))
}

func Test_BuildPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://cdn.example.com/media_video/a.mp4",
		storage.BuildPublicURL("https://cdn.example.com/", "bucket", "us-west-1", "media_video/a.mp4"),
	)
	assert.Equal(t,
		"https://bucket.s3.us-west-1.amazonaws.com/media_video/a.mp4",
		storage.BuildPublicURL("", "bucket", "us-west-1", "media_video/a.mp4"),
	)
}

func Test_ContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/mp4", storage.ContentTypeFor("/tmp/a.MP4"))
	assert.Equal(t, "image/jpeg", storage.ContentTypeFor("cover.jpg"))
	assert.Equal(t, "application/octet-stream", storage.ContentTypeFor("noext"))
}

func Test_New_UnknownBackend(t *testing.T) {
	_, err := storage.New(context.Background(), storage.Config{Backend: "ftp"})
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func newFilesystemStore(t *testing.T) (*storage.FilesystemStore, string) {
	root := t.TempDir()
	store, err := storage.NewFilesystemStore(root, "https://cdn.example.com")
	require.NoError(t, err)

	return store, root
}

func Test_FilesystemStore_UploadExistsDelete(t *testing.T) {
	store, root := newFilesystemStore(t)
	content := random.String(64, random.Alphanumeric)
	src := helpers.WriteFile(t, t.TempDir(), "a.mp4", []byte(content))
	ctx := context.Background()

	url, err := store.Upload(ctx, src, "media_video/a.mp4", "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media_video/a.mp4", url)

	written, err := os.ReadFile(filepath.Join(root, "media_video", "a.mp4"))
	require.NoError(t, err)
	assert.Equal(t, content, string(written))

	exists, err := store.Exists(ctx, "media_video/a.mp4")
	require.NoError(t, err)
	assert.True(t, exists)

	deleted, err := store.Delete(ctx, "media_video/a.mp4")
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err = store.Exists(ctx, "media_video/a.mp4")
	require.NoError(t, err)
	assert.False(t, exists)

	deleted, err = store.Delete(ctx, "media_video/a.mp4")
	require.NoError(t, err)
	assert.False(t, deleted, "deleting a missing object should report false")
}

func Test_FilesystemStore_List(t *testing.T) {
	store, _ := newFilesystemStore(t)
	src := helpers.WriteFile(t, t.TempDir(), "file", []byte("x"))
	ctx := context.Background()

	for _, key := range []string{"media_video/b.mp4", "media_video/a.mp4", "media_cover/a.jpg"} {
		_, err := store.Upload(ctx, src, key, "")
		require.NoError(t, err)
	}

	keys, err := store.List(ctx, "media_video/")
	require.NoError(t, err)
	assert.Equal(t, []string{"media_video/a.mp4", "media_video/b.mp4"}, keys)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func Test_FilesystemStore_RejectsTraversal(t *testing.T) {
	store, _ := newFilesystemStore(t)
	src := helpers.WriteFile(t, t.TempDir(), "a.mp4", []byte("x"))

	for _, key := range []string{"../escape.mp4", "media/../../escape.mp4", "/abs.mp4", ""} {
		_, err := store.Upload(context.Background(), src, key, "")
		var uploadErr *storage.UploadError
		require.ErrorAsf(t, err, &uploadErr, "expected key %q to be rejected", key)
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	}
}

func Test_FilesystemStore_MissingSourceIsUploadError(t *testing.T) {
	store, _ := newFilesystemStore(t)

	_, err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "media_video/missing.mp4", "")
	var uploadErr *storage.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "media_video/missing.mp4", uploadErr.Key)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_FilesystemStore_FileURLWithoutBaseURL(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewFilesystemStore(root, "")
	require.NoError(t, err)

	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(root, "media_cover", "a.jpg")), store.PublicURL("media_cover/a.jpg"))
}
