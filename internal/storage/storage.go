package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/dailypy/mediaflow/pkg/logger"
)

var log = logger.Get("Storage")

const (
	BackendS3         = "s3"
	BackendFilesystem = "filesystem"

	defaultContentType = "application/octet-stream"
	CoverContentType   = "image/jpeg"
)

var (
	ErrInvalidKey     = errors.New("invalid object key")
	ErrUnknownBackend = errors.New("unknown object store backend")
)

type (
	// ObjectStore is the contract the ingestion pipeline uploads through. Keys are
	// always forward-slash separated and never begin with a slash.
	ObjectStore interface {
		Upload(ctx context.Context, localPath string, key string, contentType string) (string, error)
		Exists(ctx context.Context, key string) (bool, error)
		Delete(ctx context.Context, key string) (bool, error)
		List(ctx context.Context, prefix string) ([]string, error)
		PublicURL(key string) string
	}

	// Artifact is a single uploaded object.
	Artifact struct {
		Key string
		URL string
	}

	// UploadError is returned by an ObjectStore when a file could not be uploaded.
	UploadError struct {
		Key       string
		LocalPath string
		Err       error
	}

	Config struct {
		Backend         string `yaml:"backend" env:"STORE_BACKEND" env-default:"s3" validate:"oneof=s3 filesystem"`
		Bucket          string `yaml:"bucket" env:"STORE_BUCKET" validate:"required_if=Backend s3"`
		Region          string `yaml:"region" env:"STORE_REGION" env-default:"us-east-1"`
		AccessKeyID     string `yaml:"access_key_id" env:"STORE_ACCESS_KEY_ID"`
		SecretAccessKey string `yaml:"secret_access_key" env:"STORE_SECRET_ACCESS_KEY"`
		// Endpoint overrides the S3 endpoint, for S3 compatible stores (e.g. MinIO)
		Endpoint string `yaml:"endpoint" env:"STORE_ENDPOINT"`
		// BaseURL, if set, is used as the prefix of every public URL instead
		// of the standard regional S3 address (e.g. a CDN domain).
		BaseURL string `yaml:"base_url" env:"STORE_BASE_URL"`
		// RootDir is the directory objects are written to by the filesystem backend.
		RootDir string `yaml:"root_dir" env:"STORE_ROOT_DIR" validate:"required_if=Backend filesystem"`
	}

	// Keys derives the object keys for a single media item.
	Keys struct {
		VideoPrefix   string
		SidecarPrefix string
		CoverPrefix   string
	}
)

// New constructs the ObjectStore selected by the config provided.
func New(ctx context.Context, config Config) (ObjectStore, error) {
	switch config.Backend {
	case BackendS3, "":
		return NewS3Store(ctx, config)
	case BackendFilesystem:
		return NewFilesystemStore(config.RootDir, config.BaseURL)
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnknownBackend, config.Backend)
	}
}

func (err *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s to key '%s': %v", err.LocalPath, err.Key, err.Err)
}

func (err *UploadError) Unwrap() error { return err.Err }

// NewKeys constructs a Keys using the prefixes provided, with any leading
// or trailing slashes removed.
func NewKeys(videoPrefix, sidecarPrefix, coverPrefix string) Keys {
	return Keys{
		VideoPrefix:   trimPrefix(videoPrefix),
		SidecarPrefix: trimPrefix(sidecarPrefix),
		CoverPrefix:   trimPrefix(coverPrefix),
	}
}

// Video returns the key for the video with the filename provided: {video_prefix}/{filename}
func (keys Keys) Video(filename string) string { return joinKey(keys.VideoPrefix, filename) }

// Sidecar returns the key for the sidecar with the filename provided: {sidecar_prefix}/{filename}
func (keys Keys) Sidecar(filename string) string { return joinKey(keys.SidecarPrefix, filename) }

// Cover returns the key of the cover image for the stem provided: {cover_prefix}/{stem}.jpg
func (keys Keys) Cover(stem string) string { return joinKey(keys.CoverPrefix, stem+".jpg") }

// BuildPublicURL returns '{baseURL}/{key}' if a base URL is provided, or
// the standard virtual-hosted S3 address of the key otherwise.
func BuildPublicURL(baseURL, bucket, region, key string) string {
	key = strings.TrimLeft(key, "/")
	if base := strings.TrimRight(baseURL, "/"); base != "" {
		return base + "/" + key
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// videoContentTypes covers the video containers which are absent from
// the builtin MIME table on hosts without a mime.types file.
var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

// ContentTypeFor guesses the MIME type of the file using its extension.
func ContentTypeFor(localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	if ct, ok := videoContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	return defaultContentType
}

func trimPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}

	return prefix + "/" + name
}

// validateKey rejects keys which would escape the root of the store.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: '%s'", ErrInvalidKey, key)
	}
	for _, segment := range strings.Split(path.Clean(key), "/") {
		if segment == ".." {
			return fmt.Errorf("%w: '%s' traverses outside of the store", ErrInvalidKey, key)
		}
	}

	return nil
}
