package internal

import (
	"context"
	"fmt"

	"github.com/dailypy/mediaflow/internal/database"
	"github.com/dailypy/mediaflow/internal/event"
	"github.com/dailypy/mediaflow/internal/ffmpeg"
	"github.com/dailypy/mediaflow/internal/ingest"
	"github.com/dailypy/mediaflow/internal/scan"
	"github.com/dailypy/mediaflow/internal/storage"
	"github.com/dailypy/mediaflow/pkg/logger"
)

var log = logger.Get("Core")

type (
	// IngestOptions describes a single ingestion run. Ingest is the fully
	// resolved ingest configuration (file config overlaid with any command
	// line overrides).
	IngestOptions struct {
		Folder       string
		Recursive    bool
		Environment  string
		Ingest       ingest.Config
		CoverBackend string
		MetricsFile  string
	}

	// mediaflowImpl is the top-level object for the CLI, responsible for
	// constructing the collaborators (object store, catalog database, ffmpeg
	// backends) for the selected environment and wiring them in to the pipeline.
	mediaflowImpl struct {
		config MediaflowConfig
		caps   ffmpeg.Capabilities
	}
)

// New constructs the application using the config provided. The availability of
// ffmpeg and ffprobe is detected here, once, and reused for every run.
func New(config MediaflowConfig) *mediaflowImpl {
	log.Emit(logger.DEBUG, "Bootstrapping mediaflow using config: %#v\n", config)
	return &mediaflowImpl{config: config, caps: ffmpeg.DetectCapabilities(config.Ffmpeg)}
}

func (app *mediaflowImpl) Capabilities() ffmpeg.Capabilities { return app.caps }

// CheckReport describes the probe and extraction chains which would be used on this host.
type CheckReport struct {
	Capabilities  ffmpeg.Capabilities
	ProbeBackends []string
	CoverBackends []string
	CoverError    error
}

func (app *mediaflowImpl) Check() CheckReport {
	report := CheckReport{
		Capabilities:  app.caps,
		ProbeBackends: ffmpeg.NewDurationProbe(app.caps).Backends(),
	}

	if extractor, err := ffmpeg.NewCoverExtractor(app.caps, app.config.CoverBackend); err != nil {
		report.CoverError = err
	} else {
		report.CoverBackends = extractor.Backends()
	}

	return report
}

// Ingest runs the ingestion pipeline over the folder described by the options. The
// returned error is only non-nil for run-level failures (bad configuration, the
// folder being unreadable, or the collaborators being unreachable). Item failures are
// recorded on the returned BatchResult.
//
// When dry-run is enabled, no connection to the object store or the catalog
// database is made at all.
func (app *mediaflowImpl) Ingest(ctx context.Context, opts IngestOptions) (*ingest.BatchResult, error) {
	env, err := app.config.ResolveEnvironment(opts.Environment)
	if err != nil {
		return nil, err
	}

	config := app.config
	config.Ingest = opts.Ingest
	if opts.CoverBackend != "" {
		config.CoverBackend = opts.CoverBackend
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Scan before any collaborator is built, so that a bad folder never waits on
	// the object store or catalog database.
	scanner := scan.New(config.Scan)
	items, err := scanner.Scan(opts.Folder, opts.Recursive)
	if err != nil {
		return nil, err
	}

	prober := ffmpeg.NewDurationProbe(app.caps)
	extractor, err := ffmpeg.NewCoverExtractor(app.caps, config.CoverBackend)
	if err != nil {
		return nil, err
	}
	log.Emit(logger.INFO, "Probe backends: %v, cover backends: %v\n", prober.Backends(), extractor.Backends())

	var (
		store storage.ObjectStore
		cat   ingest.Catalog
	)
	if !opts.Ingest.DryRun {
		if err := env.Validate(); err != nil {
			return nil, err
		}

		log.Emit(logger.NEW, "Connecting to object store (%s)...\n", env.Storage.Backend)
		if store, err = storage.New(ctx, env.Storage); err != nil {
			return nil, err
		}

		log.Emit(logger.NEW, "Connecting to catalog database (%s)...\n", env.Database.Dialect)
		db, err := connectDatabase(env.Database)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		cat = NewDataOrchestrator(db)
	} else {
		log.Emit(logger.INFO, "Dry-run enabled, uploads and catalog inserts will be skipped\n")
	}

	metrics := ingest.NewMetrics()
	pipeline := ingest.NewItemPipeline(opts.Ingest, prober, extractor, store, cat)
	orchestrator := ingest.NewBatchOrchestrator(opts.Ingest, scanner, pipeline, metrics, newProgressReporter())

	batch, err := orchestrator.Run(ctx, items)
	if err != nil {
		return nil, err
	}
	batch.Root = opts.Folder

	metricsFile := opts.MetricsFile
	if metricsFile == "" {
		metricsFile = config.MetricsFile
	}
	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			log.Emit(logger.WARNING, "Failed to write metrics to %s: %v\n", metricsFile, err)
		}
	}

	return batch, nil
}

// Migrate connects to the catalog database of the environment named and applies any
// pending migrations, returning the resulting schema version.
func (app *mediaflowImpl) Migrate(environment string) (int64, error) {
	env, err := app.config.ResolveEnvironment(environment)
	if err != nil {
		return 0, err
	}

	if err := env.Database.Validate(); err != nil {
		return 0, err
	}

	db, err := connectDatabase(env.Database)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	return db.MigrationVersion()
}

// newProgressReporter returns an event bus which logs the completion of every item
// as the run progresses.
func newProgressReporter() event.EventCoordinator {
	bus := event.New()
	bus.RegisterHandlerFunction(event.ITEM_COMPLETE, func(_ event.Event, payload event.Payload) {
		progress := payload.(event.ItemProgress)
		if progress.Succeeded {
			log.Emit(logger.SUCCESS, "[%d/%d] %s\n", progress.Index+1, progress.Total, progress.Stem)
		} else {
			log.Emit(logger.ERROR, "[%d/%d] %s failed during %s: %v\n", progress.Index+1, progress.Total, progress.Stem, progress.Stage, progress.Err)
		}
	})

	return bus
}

func connectDatabase(config database.DatabaseConfig) (database.Manager, error) {
	db := database.New()
	if err := db.Connect(config); err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate catalog database: %w", err)
	}

	return db, nil
}
