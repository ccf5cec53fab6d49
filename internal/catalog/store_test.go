package catalog_test

import (
	"os"
	"testing"

	"github.com/dailypy/mediaflow/internal/catalog"
	"github.com/dailypy/mediaflow/internal/database"
	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/dailypy/mediaflow/tests/helpers"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/gommon/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.WARNING.Level())
}

func TestMain(m *testing.M) {
	code := m.Run()
	helpers.TeardownDatabases()
	os.Exit(code)
}

type catalogFactory func(t *testing.T) database.Manager

// forEachDialect runs the test against sqlite, and against postgres
// when containers are available.
func forEachDialect(t *testing.T, test func(t *testing.T, db database.Manager)) {
	dialects := map[string]catalogFactory{
		"sqlite":   helpers.NewSqliteCatalog,
		"postgres": helpers.NewPostgresCatalog,
	}

	for name, factory := range dialects {
		t.Run(name, func(t *testing.T) {
			test(t, factory(t))
		})
	}
}

func newVideo(name string) *catalog.MediaVideo {
	common := 2
	video := catalog.NewMediaVideo(name, catalog.Defaults{Type: 3, ShowStatus: 1, ServiceLevelLimits: 0, Common: &common})
	video.MediaURL = "https://cdn.example.com/media_video/" + name + ".mp4"
	video.MediaCoverURL = "https://cdn.example.com/media_cover/" + name + ".jpg"
	video.MediaCoverWidth, video.MediaCoverHeight = 1920, 1080
	video.Duration = 120

	return video
}

func Test_NewMediaVideo_FixedColumns(t *testing.T) {
	video := catalog.NewMediaVideo("clip", catalog.Defaults{Type: 1, ShowStatus: 1})
	assert.Equal(t, catalog.DeletedFlagActive, video.DeletedFlag)
	require.NotNil(t, video.AppVersionType)
	assert.Equal(t, catalog.AppVersionType, *video.AppVersionType)
	assert.Nil(t, video.Common)
}

func Test_InsertAndGetMediaVideo(t *testing.T) {
	forEachDialect(t, func(t *testing.T, db database.Manager) {
		store := catalog.NewStore()
		video := newVideo(random.String(12, random.Alphanumeric))

		id, err := store.InsertMediaVideo(db.GetSqlxDb(), video)
		require.NoError(t, err)
		assert.Positive(t, id)
		assert.Equal(t, id, video.ID)

		fetched, err := store.GetMediaVideo(db.GetSqlxDb(), id)
		require.NoError(t, err)
		assert.Equal(t, video, fetched)

		second, err := store.InsertMediaVideo(db.GetSqlxDb(), newVideo("second"))
		require.NoError(t, err)
		assert.NotEqual(t, id, second)
	})
}

func Test_InsertMediaVideo_NullableCommon(t *testing.T) {
	forEachDialect(t, func(t *testing.T, db database.Manager) {
		store := catalog.NewStore()
		video := catalog.NewMediaVideo("no-common", catalog.Defaults{})

		id, err := store.InsertMediaVideo(db.GetSqlxDb(), video)
		require.NoError(t, err)

		fetched, err := store.GetMediaVideo(db.GetSqlxDb(), id)
		require.NoError(t, err)
		assert.Nil(t, fetched.Common)
		assert.Equal(t, "", fetched.MediaInstructURL)
	})
}

func Test_GetMediaVideo_NotFound(t *testing.T) {
	forEachDialect(t, func(t *testing.T, db database.Manager) {
		_, err := catalog.NewStore().GetMediaVideo(db.GetSqlxDb(), 9999)
		assert.ErrorIs(t, err, catalog.ErrVideoNotFound)
	})
}

func Test_ListMediaVideos_Filters(t *testing.T) {
	forEachDialect(t, func(t *testing.T, db database.Manager) {
		store := catalog.NewStore()
		for _, name := range []string{"alpha", "beta", "alphabet"} {
			_, err := store.InsertMediaVideo(db.GetSqlxDb(), newVideo(name))
			require.NoError(t, err)
		}
		other := newVideo("gamma")
		other.Type = 7
		_, err := store.InsertMediaVideo(db.GetSqlxDb(), other)
		require.NoError(t, err)

		all, err := store.ListMediaVideos(db.GetSqlxDb(), catalog.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "gamma", all[0].MediaName, "expected newest video first")

		typ := 7
		typed, err := store.ListMediaVideos(db.GetSqlxDb(), catalog.ListFilter{Type: &typ})
		require.NoError(t, err)
		require.Len(t, typed, 1)
		assert.Equal(t, "gamma", typed[0].MediaName)

		named, err := store.ListMediaVideos(db.GetSqlxDb(), catalog.ListFilter{NameLike: "alpha"})
		require.NoError(t, err)
		assert.Len(t, named, 2)

		paged, err := store.ListMediaVideos(db.GetSqlxDb(), catalog.ListFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, paged, 2)
	})
}

func Test_AssociateToyModels(t *testing.T) {
	forEachDialect(t, func(t *testing.T, db database.Manager) {
		store := catalog.NewStore()
		associate := func(id int64, models ...string) {
			require.NoError(t, db.WrapTx(func(tx *sqlx.Tx) error {
				return store.AssociateToyModels(tx, id, models)
			}))
		}

		associate(26, "T1", "T2")
		associate(27, "T1")
		associate(27, "T1")

		t1, err := store.GetToyModelVideo(db.GetSqlxDb(), "T1")
		require.NoError(t, err)
		assert.Equal(t, []int64{26, 27}, t1.IDs(), "expected ids to be appended without duplicates")

		t2, err := store.GetToyModelVideo(db.GetSqlxDb(), "T2")
		require.NoError(t, err)
		assert.Equal(t, []int64{26}, t2.IDs())

		_, err = store.GetToyModelVideo(db.GetSqlxDb(), "T3")
		assert.ErrorIs(t, err, catalog.ErrToyModelNotFound)
	})
}
