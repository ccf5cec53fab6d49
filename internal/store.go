package internal

import (
	"github.com/dailypy/mediaflow/internal/catalog"
	"github.com/dailypy/mediaflow/internal/database"
	"github.com/jmoiron/sqlx"
)

type (
	// dataOrchestrator links the catalog store to the database connection. The
	// store itself is 'dumb' and accepts any database.Queryable; the orchestrator
	// decides which operations require a transaction.
	dataOrchestrator struct {
		db           database.Manager
		CatalogStore *catalog.Store
	}
)

func NewDataOrchestrator(db database.Manager) *dataOrchestrator {
	return &dataOrchestrator{db: db, CatalogStore: catalog.NewStore()}
}

func (orch *dataOrchestrator) InsertMediaVideo(video *catalog.MediaVideo) (int64, error) {
	return orch.CatalogStore.InsertMediaVideo(orch.db.GetSqlxDb(), video)
}

// AssociateToyModels updates every toy model inside of a single transaction, so
// either all of the toy models reference the video, or none do.
func (orch *dataOrchestrator) AssociateToyModels(videoID int64, toyModels []string) error {
	return orch.db.WrapTx(func(tx *sqlx.Tx) error {
		return orch.CatalogStore.AssociateToyModels(tx, videoID, toyModels)
	})
}

func (orch *dataOrchestrator) GetMediaVideo(id int64) (*catalog.MediaVideo, error) {
	return orch.CatalogStore.GetMediaVideo(orch.db.GetSqlxDb(), id)
}

func (orch *dataOrchestrator) ListMediaVideos(filter catalog.ListFilter) ([]*catalog.MediaVideo, error) {
	return orch.CatalogStore.ListMediaVideos(orch.db.GetSqlxDb(), filter)
}

func (orch *dataOrchestrator) GetToyModelVideo(toyModel string) (*catalog.ToyModelVideo, error) {
	return orch.CatalogStore.GetToyModelVideo(orch.db.GetSqlxDb(), toyModel)
}
