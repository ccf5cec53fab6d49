package ingest

import (
	"errors"
	"fmt"

	"github.com/dailypy/mediaflow/internal/ffmpeg"
	"github.com/dailypy/mediaflow/internal/scan"
	"github.com/dailypy/mediaflow/internal/storage"
)

type (
	// ItemState is the position of a single item in the ingestion
	// state machine. FAILED may be reached from any non-terminal state.
	ItemState int

	// Stage identifies the step of the pipeline which an item failed in.
	Stage int

	// StageError is the terminal failure of an item; it wraps the underlying
	// error (e.g. *ffmpeg.ProbeError or *storage.UploadError) so that errors.Is
	// and errors.As continue to work for callers.
	StageError struct {
		Stage Stage
		Err   error
	}

	// ItemResult is the outcome of ingesting a single MediaItem. It is created when
	// the item is first picked up, and is immutable once the item reaches
	// either the DONE or FAILED state.
	ItemResult struct {
		Item            scan.MediaItem
		State           ItemState
		CatalogID       int64
		VideoURL        string
		SidecarURL      string
		CoverURL        string
		CoverWidth      int
		CoverHeight     int
		DurationSeconds float64
		DryRun          bool
		Error           *StageError
		Timings         *TimingRecorder

		// Artifacts holds every object uploaded for this item, in upload order. It
		// is populated even when a later stage fails, as uploads are never rolled back.
		Artifacts []storage.Artifact
	}
)

const (
	SCANNED ItemState = iota
	PROBED
	COVER_EXTRACTED
	UPLOADED
	PERSISTED
	DONE
	FAILED
)

const (
	StageProbe Stage = iota
	StageExtract
	StageUpload
	StagePersist
	StageCancelled
)

var ErrItemCancelled = errors.New("batch was cancelled before item started")

func newItemResult(item scan.MediaItem, dryRun bool) *ItemResult {
	return &ItemResult{Item: item, State: SCANNED, DryRun: dryRun, Timings: NewTimingRecorder(item.Stem)}
}

func (result *ItemResult) fail(stage Stage, err error) {
	result.State = FAILED
	result.CatalogID = 0
	result.Error = &StageError{Stage: stage, Err: err}
}

// Succeeded returns true if the item reached the DONE state.
func (result *ItemResult) Succeeded() bool { return result.State == DONE }

// Stem returns the identity of the item this result belongs to.
func (result *ItemResult) Stem() string { return result.Item.Stem }

// WholeDuration returns the duration as stored in the catalog: the
// probed duration truncated to whole seconds.
func (result *ItemResult) WholeDuration() int {
	return ffmpeg.ProbeResult{Seconds: result.DurationSeconds}.WholeSeconds()
}

// ErrorMessage returns the message of the items failure, or an
// empty string if the item did not fail.
func (result *ItemResult) ErrorMessage() string {
	if result.Error == nil {
		return ""
	}

	return result.Error.Err.Error()
}

func (result *ItemResult) String() string {
	return fmt.Sprintf("ItemResult{stem=%s state=%s id=%d}", result.Item.Stem, result.State, result.CatalogID)
}

func (err *StageError) Error() string {
	return fmt.Sprintf("%s: %v", err.Stage, err.Err)
}

func (err *StageError) Unwrap() error { return err.Err }

func (s ItemState) String() string {
	switch s {
	case SCANNED:
		return fmt.Sprintf("SCANNED[%d]", s)
	case PROBED:
		return fmt.Sprintf("PROBED[%d]", s)
	case COVER_EXTRACTED:
		return fmt.Sprintf("COVER_EXTRACTED[%d]", s)
	case UPLOADED:
		return fmt.Sprintf("UPLOADED[%d]", s)
	case PERSISTED:
		return fmt.Sprintf("PERSISTED[%d]", s)
	case DONE:
		return fmt.Sprintf("DONE[%d]", s)
	case FAILED:
		return fmt.Sprintf("FAILED[%d]", s)
	default:
		return fmt.Sprintf("UNKNOWN[%d]", s)
	}
}

func (s Stage) String() string {
	switch s {
	case StageProbe:
		return "probe"
	case StageExtract:
		return "extract"
	case StageUpload:
		return "upload"
	case StagePersist:
		return "persist"
	case StageCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown[%d]", s)
	}
}
