package ingest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/dailypy/mediaflow/internal/event"
	"github.com/dailypy/mediaflow/internal/scan"
	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/dailypy/mediaflow/pkg/worker"
	"github.com/google/uuid"
)

var log = logger.Get("Ingest")

type (
	// ItemProcessor processes a single item to completion. *ItemPipeline is
	// the only production implementation.
	ItemProcessor interface {
		Process(ctx context.Context, item scan.MediaItem, tempDir string) *ItemResult
	}

	folderScanner interface {
		Scan(root string, recursive bool) ([]scan.MediaItem, error)
	}

	// BatchResult holds exactly one ItemResult per scanned item, in scan order.
	BatchResult struct {
		RunID  uuid.UUID
		Root   string
		DryRun bool
		Items  []*ItemResult
	}

	// BatchOrchestrator drives every item of a batch through the ItemProcessor. The
	// failure of one item never prevents any other item from being processed.
	//
	// With a concurrency of one, items are processed strictly in scan order. Higher
	// values spread the items across a bounded pool of workers, however results are
	// always stored at the index of the item they belong to.
	BatchOrchestrator struct {
		config    Config
		scanner   folderScanner
		processor ItemProcessor
		metrics   *Metrics
		events    event.EventDispatcher
	}
)

// NewBatchOrchestrator constructs an orchestrator. Progress of every item is published
// to the dispatcher provided; a nil dispatcher discards all events.
func NewBatchOrchestrator(config Config, scanner folderScanner, processor ItemProcessor, metrics *Metrics, events event.EventDispatcher) *BatchOrchestrator {
	if events == nil {
		events = event.Discard{}
	}

	return &BatchOrchestrator{config: config, scanner: scanner, processor: processor, metrics: metrics, events: events}
}

// Ingest scans the root directory provided and processes every item found. The only
// error returned is run-level (a scan failure, or the temporary directory being
// unavailable); item failures are recorded on the BatchResult.
func (orchestrator *BatchOrchestrator) Ingest(ctx context.Context, root string, recursive bool) (*BatchResult, error) {
	items, err := orchestrator.scanner.Scan(root, recursive)
	if err != nil {
		return nil, err
	}

	result, err := orchestrator.Run(ctx, items)
	if err != nil {
		return nil, err
	}

	result.Root = root
	return result, nil
}

// Run processes the items provided. Cancelling the context stops any further items
// from being started, however items already in flight run to completion. Items which
// are never started are recorded as failed in the 'cancelled' stage.
func (orchestrator *BatchOrchestrator) Run(ctx context.Context, items []scan.MediaItem) (*BatchResult, error) {
	batch := &BatchResult{
		RunID:  uuid.New(),
		DryRun: orchestrator.config.DryRun,
		Items:  make([]*ItemResult, len(items)),
	}
	defer orchestrator.metrics.Finish()

	if len(items) == 0 {
		log.Emit(logger.WARNING, "No media found to ingest\n")
		return batch, nil
	}

	tempDir, err := os.MkdirTemp(orchestrator.config.TempDir, fmt.Sprintf("mediaflow-%s-", batch.RunID))
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory for run %s: %w", batch.RunID, err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Emit(logger.WARNING, "Failed to remove temporary directory %s: %v\n", tempDir, err)
		}
	}()

	log.Emit(logger.INFO, "Starting run %s: %d items (dry-run=%v, concurrency=%d)\n", batch.RunID, len(items), batch.DryRun, orchestrator.config.Concurrency)

	var (
		mu   sync.Mutex
		next int
	)
	claimNextItem := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()

		if next >= len(items) {
			return 0, false
		}

		idx := next
		next++
		return idx, true
	}

	// In-flight items are detached from cancellation so that an item is never
	// abandoned part way through its uploads.
	detached := context.WithoutCancel(ctx)
	task := func(w worker.Worker) (bool, error) {
		idx, ok := claimNextItem()
		if !ok {
			return false, nil
		}

		item := items[idx]
		progress := event.ItemProgress{RunID: batch.RunID, Index: idx, Total: len(items), Stem: item.Stem}

		var result *ItemResult
		if ctx.Err() != nil {
			result = newItemResult(item, batch.DryRun)
			result.fail(StageCancelled, ErrItemCancelled)
			log.Emit(logger.WARNING, "Skipping %s: %v\n", item.Stem, ErrItemCancelled)
		} else {
			orchestrator.events.Dispatch(event.ITEM_STARTED, progress)
			result = orchestrator.processor.Process(detached, item, tempDir)
		}

		batch.Items[idx] = result
		orchestrator.metrics.Observe(result)

		progress.Succeeded = result.Succeeded()
		if result.Error != nil {
			progress.Stage = result.Error.Stage.String()
			progress.Err = result.Error.Err
		}
		orchestrator.events.Dispatch(event.ITEM_COMPLETE, progress)
		return true, nil
	}

	pool := worker.NewWorkerPool()
	for i := 0; i < orchestrator.workerCount(len(items)); i++ {
		if err := pool.PushWorker(worker.NewWorker(fmt.Sprintf("ingest-worker-%d", i), task)); err != nil {
			return nil, err
		}
	}
	if err := pool.Start(); err != nil {
		return nil, err
	}
	pool.Wait()
	orchestrator.events.Dispatch(event.RUN_COMPLETE, batch.RunID)

	log.Emit(logger.INFO, "Run %s complete: %d succeeded, %d failed\n", batch.RunID, batch.Successes(), batch.Failures())
	return batch, nil
}

func (orchestrator *BatchOrchestrator) workerCount(items int) int {
	return max(1, min(orchestrator.config.Concurrency, items))
}

func (batch *BatchResult) Successes() int {
	count := 0
	for _, item := range batch.Items {
		if item != nil && item.Succeeded() {
			count++
		}
	}

	return count
}

func (batch *BatchResult) Failures() int { return len(batch.Items) - batch.Successes() }

// Failed returns true if any item of the batch failed. The exit status of a run
// is derived from this.
func (batch *BatchResult) Failed() bool { return batch.Failures() > 0 }

// FailedItems returns the results of every failed item, in scan order.
func (batch *BatchResult) FailedItems() []*ItemResult {
	failed := make([]*ItemResult, 0)
	for _, item := range batch.Items {
		if item != nil && !item.Succeeded() {
			failed = append(failed, item)
		}
	}

	return failed
}
