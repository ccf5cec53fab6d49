package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/dailypy/mediaflow/internal/catalog"
	"github.com/dailypy/mediaflow/internal/ffmpeg"
	"github.com/dailypy/mediaflow/internal/scan"
	"github.com/dailypy/mediaflow/internal/storage"
	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/google/uuid"
)

// DryRunURLPrefix marks the placeholder URLs produced by a dry-run.
const DryRunURLPrefix = "[dry-run] "

type (
	DurationProber interface {
		Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error)
	}

	CoverExtractor interface {
		Extract(ctx context.Context, path string, at float64, out string) (ffmpeg.CoverResult, error)
	}

	// Catalog is the persistence boundary of the pipeline.
	Catalog interface {
		InsertMediaVideo(video *catalog.MediaVideo) (int64, error)
		AssociateToyModels(videoID int64, toyModels []string) error
	}

	// ItemPipeline drives a single MediaItem through the ingestion state machine:
	//
	//	SCANNED -> PROBED -> COVER_EXTRACTED -> UPLOADED -> PERSISTED -> DONE
	//
	// Any stage failing moves the item to FAILED, and no further stages are attempted. When
	// dry-run is enabled, the item moves from COVER_EXTRACTED directly to DONE and the
	// object store and catalog are never touched.
	ItemPipeline struct {
		config    Config
		keys      storage.Keys
		prober    DurationProber
		extractor CoverExtractor
		store     storage.ObjectStore
		catalog   Catalog
	}
)

func NewItemPipeline(config Config, prober DurationProber, extractor CoverExtractor, store storage.ObjectStore, catalog Catalog) *ItemPipeline {
	return &ItemPipeline{
		config:    config,
		keys:      storage.NewKeys(config.VideoPrefix, config.SidecarPrefix, config.CoverPrefix),
		prober:    prober,
		extractor: extractor,
		store:     store,
		catalog:   catalog,
	}
}

// Process ingests the item provided, using tempDir to hold the extracted
// cover. The result is always returned, failures are recorded on it rather than
// returned. The temporary cover is removed before Process returns, regardless
// of the outcome.
func (pipeline *ItemPipeline) Process(ctx context.Context, item scan.MediaItem, tempDir string) *ItemResult {
	result := newItemResult(item, pipeline.config.DryRun)
	coverPath := filepath.Join(tempDir, uuid.NewString()+".jpg")
	defer removeTempCover(coverPath)

	log.Emit(logger.NEW, "Beginning ingestion of %s\n", item)
	pipeline.run(ctx, item, coverPath, result)

	if result.Succeeded() {
		log.Emit(logger.SUCCESS, "Ingested %s (id=%d)\n", item.Stem, result.CatalogID)
	} else {
		log.Emit(logger.WARNING, "Failed to ingest %s during %s: %v\n", item.Stem, result.Error.Stage, result.Error.Err)
	}
	log.Emit(logger.INFO, "%s\n", result.Timings)

	return result
}

func (pipeline *ItemPipeline) run(ctx context.Context, item scan.MediaItem, coverPath string, result *ItemResult) {
	timings := result.Timings

	var probe ffmpeg.ProbeResult
	if err := timings.Time(TimingProbe, func() (err error) {
		probe, err = pipeline.prober.Probe(ctx, item.VideoPath)
		return err
	}); err != nil {
		result.fail(StageProbe, err)
		return
	}
	result.DurationSeconds = probe.Seconds
	result.State = PROBED

	at := ffmpeg.CoverTimestamp(pipeline.config.CoverTime, probe.Seconds)
	var cover ffmpeg.CoverResult
	if err := timings.Time(TimingExtract, func() (err error) {
		cover, err = pipeline.extractor.Extract(ctx, item.VideoPath, at, coverPath)
		return err
	}); err != nil {
		result.fail(StageExtract, err)
		return
	}
	result.CoverWidth, result.CoverHeight = cover.Width, cover.Height
	result.State = COVER_EXTRACTED

	videoKey := pipeline.keys.Video(item.VideoFilename())
	coverKey := pipeline.keys.Cover(item.Stem)
	sidecarKey := ""
	if item.HasSidecar() {
		sidecarKey = pipeline.keys.Sidecar(item.SidecarFilename())
	}

	if pipeline.config.DryRun {
		result.VideoURL = DryRunURLPrefix + videoKey
		if sidecarKey != "" {
			result.SidecarURL = DryRunURLPrefix + sidecarKey
		}
		result.CoverURL = DryRunURLPrefix + coverKey
		result.State = DONE
		return
	}

	if err := pipeline.upload(ctx, result, item, coverPath, videoKey, sidecarKey, coverKey); err != nil {
		result.fail(StageUpload, err)
		return
	}
	result.State = UPLOADED

	video := catalog.NewMediaVideo(item.Stem, pipeline.config.Defaults)
	video.MediaURL = result.VideoURL
	video.MediaInstructURL = result.SidecarURL
	video.MediaCoverURL = result.CoverURL
	video.MediaCoverWidth, video.MediaCoverHeight = cover.Width, cover.Height
	video.Duration = probe.WholeSeconds()

	var id int64
	if err := timings.Time(TimingPersist, func() (err error) {
		id, err = pipeline.catalog.InsertMediaVideo(video)
		return err
	}); err != nil {
		result.fail(StagePersist, err)
		return
	}
	result.CatalogID = id
	result.State = PERSISTED

	if len(pipeline.config.ToyModels) > 0 {
		// The catalog row already exists at this point, so a failure here is reported but
		// does not fail the item.
		if err := timings.Time(TimingAssociate, func() error {
			return pipeline.catalog.AssociateToyModels(id, pipeline.config.ToyModels)
		}); err != nil {
			log.Emit(logger.WARNING, "Failed to associate %s (id=%d) with toy models %v: %v\n", item.Stem, id, pipeline.config.ToyModels, err)
		}
	}

	result.State = DONE
}

// upload uploads the video, the sidecar (if present) and the cover, in that order. The
// first failure stops any further uploads; uploads which have already completed are not
// rolled back, and remain recorded on the result.
func (pipeline *ItemPipeline) upload(ctx context.Context, result *ItemResult, item scan.MediaItem, coverPath, videoKey, sidecarKey, coverKey string) (err error) {
	if result.VideoURL, err = pipeline.uploadArtifact(ctx, result, TimingUploadVideo, item.VideoPath, videoKey, storage.ContentTypeFor(item.VideoPath)); err != nil {
		return err
	}

	if sidecarKey != "" {
		if result.SidecarURL, err = pipeline.uploadArtifact(ctx, result, TimingUploadSidecar, item.SidecarPath, sidecarKey, storage.ContentTypeFor(item.SidecarPath)); err != nil {
			return err
		}
	}

	result.CoverURL, err = pipeline.uploadArtifact(ctx, result, TimingUploadCover, coverPath, coverKey, storage.CoverContentType)
	return err
}

func (pipeline *ItemPipeline) uploadArtifact(ctx context.Context, result *ItemResult, stage string, localPath, key, contentType string) (string, error) {
	var url string
	if err := result.Timings.Time(stage, func() (err error) {
		url, err = pipeline.store.Upload(ctx, localPath, key, contentType)
		return err
	}); err != nil {
		return "", err
	}

	result.Artifacts = append(result.Artifacts, storage.Artifact{Key: key, URL: url})
	return url, nil
}

func removeTempCover(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Emit(logger.WARNING, "Failed to remove temporary cover %s: %v\n", path, err)
	}
}
