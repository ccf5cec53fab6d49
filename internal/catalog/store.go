package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/dailypy/mediaflow/internal/database"
	"github.com/dailypy/mediaflow/pkg/logger"
)

var (
	ErrVideoNotFound    = errors.New("media video does not exist")
	ErrToyModelNotFound = errors.New("toy model does not exist")

	log = logger.Get("CatalogStore")
)

var mediaVideoColumns = []string{
	"media_name", "media_url", "media_instruct_url", "media_cover_url",
	"media_cover_width", "media_cover_height", "duration", "type",
	"service_level_limits", "xgame_supported", "pinned", "show_status",
	"show_order", "common", "deleted_flag", "app_version_type", "click_count",
}

// Store provides access to the catalog tables. Queries are built using '?'
// placeholders, and rebound to the dialect of the Queryable they are
// executed against.
type Store struct {
	// toyMutex serialises read-modify-write updates to the toy model associations
	toyMutex sync.Mutex
}

func NewStore() *Store {
	return &Store{}
}

// InsertMediaVideo inserts the record provided and returns the id generated
// for it. The ID of the video provided is updated to match.
func (store *Store) InsertMediaVideo(db database.Queryable, video *MediaVideo) (int64, error) {
	query, args, err := squirrel.
		Insert("media_video").
		Columns(mediaVideoColumns...).
		Values(
			video.MediaName, video.MediaURL, video.MediaInstructURL, video.MediaCoverURL,
			video.MediaCoverWidth, video.MediaCoverHeight, video.Duration, video.Type,
			video.ServiceLevelLimits, video.XgameSupported, video.Pinned, video.ShowStatus,
			video.ShowOrder, video.Common, video.DeletedFlag, video.AppVersionType, video.ClickCount,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build media video insert: %w", err)
	}

	var id int64
	if err := db.QueryRowx(db.Rebind(query), args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert media video '%s': %w", video.MediaName, err)
	}

	video.ID = id
	log.Emit(logger.DEBUG, "Inserted %s\n", video)
	return id, nil
}

func (store *Store) GetMediaVideo(db database.Queryable, id int64) (*MediaVideo, error) {
	query, args, err := selectMediaVideoBuilder().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var video MediaVideo
	if err := db.Get(&video, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}

		return nil, fmt.Errorf("failed to get media video %d: %w", id, err)
	}

	return &video, nil
}

// ListMediaVideos returns the videos matching the filter provided,
// newest first.
func (store *Store) ListMediaVideos(db database.Queryable, filter ListFilter) ([]*MediaVideo, error) {
	builder := selectMediaVideoBuilder().OrderBy("id DESC")
	if filter.Type != nil {
		builder = builder.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.DeletedFlag != nil {
		builder = builder.Where(squirrel.Eq{"deleted_flag": *filter.DeletedFlag})
	}
	if filter.NameLike != "" {
		builder = builder.Where(squirrel.Like{"media_name": "%" + filter.NameLike + "%"})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var videos []*MediaVideo
	if err := db.Select(&videos, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list media videos: %w", err)
	}

	return videos, nil
}

func (store *Store) GetToyModelVideo(db database.Queryable, toyModel string) (*ToyModelVideo, error) {
	var toy ToyModelVideo
	if err := db.Get(&toy, db.Rebind(`SELECT toy_model, video_ids FROM toy_model_video WHERE toy_model = ?`), toyModel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrToyModelNotFound
		}

		return nil, fmt.Errorf("failed to get toy model '%s': %w", toyModel, err)
	}

	return &toy, nil
}

// AssociateToyModels appends the video id to the video list of each toy model
// provided, creating the toy model row if it does not yet exist. An id which is
// already associated is not duplicated. The caller should execute this inside of
// a transaction (see database.WrapTx) so that a failure leaves no partial updates.
func (store *Store) AssociateToyModels(db database.Queryable, videoID int64, toyModels []string) error {
	store.toyMutex.Lock()
	defer store.toyMutex.Unlock()

	for _, toyModel := range toyModels {
		ids := []int64{}
		existing, err := store.GetToyModelVideo(db, toyModel)
		if err != nil && !errors.Is(err, ErrToyModelNotFound) {
			return err
		} else if existing != nil {
			ids = existing.IDs()
		}

		if slices.Contains(ids, videoID) {
			continue
		}
		ids = append(ids, videoID)

		if _, err := db.Exec(db.Rebind(`
			INSERT INTO toy_model_video(toy_model, video_ids)
			VALUES (?, ?)
			ON CONFLICT(toy_model) DO UPDATE SET video_ids = excluded.video_ids, update_time = current_timestamp
		`), toyModel, database.NewJsonColumn(ids)); err != nil {
			return fmt.Errorf("failed to associate video %d with toy model '%s': %w", videoID, toyModel, err)
		}

		log.Emit(logger.DEBUG, "Toy model '%s' now has %d videos\n", toyModel, len(ids))
	}

	return nil
}

func selectMediaVideoBuilder() squirrel.SelectBuilder {
	return squirrel.Select(append([]string{"id"}, mediaVideoColumns...)...).From("media_video")
}
