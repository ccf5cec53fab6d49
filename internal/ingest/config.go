package ingest

import "github.com/dailypy/mediaflow/internal/catalog"

const (
	DefaultVideoPrefix   = "media_video"
	DefaultSidecarPrefix = "media_instruct"
	DefaultCoverPrefix   = "media_cover"
	DefaultCoverTime     = 1.0
)

// Config contains the options which control how a batch of media
// is ingested. Most of these are supplied by the operator on the command line.
type Config struct {
	// The key prefixes used when uploading the video, its sidecar and its cover.
	// Trailing slashes are ignored.
	VideoPrefix   string `yaml:"video_prefix" env:"INGEST_VIDEO_PREFIX" env-default:"media_video"`
	SidecarPrefix string `yaml:"sidecar_prefix" env:"INGEST_SIDECAR_PREFIX" env-default:"media_instruct"`
	CoverPrefix   string `yaml:"cover_prefix" env:"INGEST_COVER_PREFIX" env-default:"media_cover"`

	// CoverTime is the preferred timestamp (in seconds) of the cover frame. It
	// is capped to 10% of each videos duration.
	CoverTime float64 `yaml:"cover_time" env:"INGEST_COVER_TIME" env-default:"1.0" validate:"gte=0"`

	// Defaults for the catalog fields which cannot be derived from the media
	Defaults catalog.Defaults `yaml:"-"`

	// ToyModels, if any, are associated with every video inserted in to the catalog.
	ToyModels []string `yaml:"toy_models"`

	// DryRun performs the probe and cover extraction for every item, but
	// skips the uploads and the catalog insert.
	DryRun bool `yaml:"-"`

	// Controls the number of items which may be processed at once. A
	// value of 1 (the default) processes items strictly in order.
	Concurrency int `yaml:"concurrency" env:"INGEST_CONCURRENCY" env-default:"1" validate:"gte=1"`

	// TempDir is the parent directory for the per-run temporary
	// directory which holds extracted covers. Empty uses the OS default.
	TempDir string `yaml:"temp_dir" env:"INGEST_TEMP_DIR"`
}

// DefaultConfig returns the config used when no overrides are provided.
func DefaultConfig() Config {
	return Config{
		VideoPrefix:   DefaultVideoPrefix,
		SidecarPrefix: DefaultSidecarPrefix,
		CoverPrefix:   DefaultCoverPrefix,
		CoverTime:     DefaultCoverTime,
		Defaults:      catalog.Defaults{ShowStatus: 1},
		Concurrency:   1,
	}
}
