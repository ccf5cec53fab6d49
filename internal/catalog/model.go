package catalog

import (
	"fmt"

	"github.com/dailypy/mediaflow/internal/database"
)

const (
	// AppVersionType is written to every record created by the pipeline.
	AppVersionType = 1

	DeletedFlagActive  = 1
	DeletedFlagDeleted = -1
)

type (
	// MediaVideo is a single row of the media_video table. Records are created
	// once by the ingestion pipeline and are never updated by it.
	MediaVideo struct {
		ID                 int64  `db:"id"`
		MediaName          string `db:"media_name"`
		MediaURL           string `db:"media_url"`
		MediaInstructURL   string `db:"media_instruct_url"`
		MediaCoverURL      string `db:"media_cover_url"`
		MediaCoverWidth    int    `db:"media_cover_width"`
		MediaCoverHeight   int    `db:"media_cover_height"`
		Duration           int    `db:"duration"`
		Type               int    `db:"type"`
		ServiceLevelLimits int    `db:"service_level_limits"`
		XgameSupported     int    `db:"xgame_supported"`
		Pinned             int    `db:"pinned"`
		ShowStatus         int    `db:"show_status"`
		ShowOrder          int    `db:"show_order"`
		Common             *int   `db:"common"`
		DeletedFlag        int    `db:"deleted_flag"`
		AppVersionType     *int   `db:"app_version_type"`
		ClickCount         int    `db:"click_count"`
	}

	// ToyModelVideo associates a toy model with the ids of the
	// videos which should be shown for it.
	ToyModelVideo struct {
		ToyModel string                       `db:"toy_model"`
		VideoIDs database.JsonColumn[[]int64] `db:"video_ids"`
	}

	// Defaults are the operator supplied values used for the
	// catalog fields which cannot be derived from the media itself.
	Defaults struct {
		Type               int
		ShowStatus         int
		ServiceLevelLimits int
		Common             *int
	}

	// ListFilter restricts the rows returned by ListMediaVideos. Zero
	// values are ignored.
	ListFilter struct {
		Type        *int
		DeletedFlag *int
		NameLike    string
		Limit       uint64
		Offset      uint64
	}
)

// NewMediaVideo builds the record for a freshly ingested item. The fixed
// columns (app version type, deleted flag) are always populated here.
func NewMediaVideo(name string, defaults Defaults) *MediaVideo {
	appVersion := AppVersionType
	return &MediaVideo{
		MediaName:          name,
		Type:               defaults.Type,
		ShowStatus:         defaults.ShowStatus,
		ServiceLevelLimits: defaults.ServiceLevelLimits,
		Common:             defaults.Common,
		DeletedFlag:        DeletedFlagActive,
		AppVersionType:     &appVersion,
	}
}

func (video *MediaVideo) String() string {
	return fmt.Sprintf("MediaVideo{id=%d name=%s duration=%ds}", video.ID, video.MediaName, video.Duration)
}

// IDs returns the video ids associated with the toy model.
func (toy *ToyModelVideo) IDs() []int64 {
	if ids := toy.VideoIDs.Get(); *ids != nil {
		return *ids
	}

	return []int64{}
}
