package main

import (
	"fmt"
	"os"

	"github.com/dailypy/mediaflow/internal"
	"github.com/dailypy/mediaflow/internal/ingest"
	"github.com/spf13/cobra"
)

type (
	globalFlags struct {
		configPath string
		logLevel   string
	}

	ingestFlags struct {
		environment        string
		recursive          bool
		dryRun             bool
		videoPrefix        string
		sidecarPrefix      string
		coverPrefix        string
		coverTime          float64
		mediaType          int
		showStatus         int
		serviceLevelLimits int
		common             int
		toyModels          []string
		concurrency        int
		coverBackend       string
		metricsFile        string
	}
)

func newRootCommand() *cobra.Command {
	globals := &globalFlags{}
	root := &cobra.Command{
		Use:           "mediaflow",
		Short:         "Batch ingestion of video folders in to the media catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&globals.configPath, "config", "", "path to the YAML config (default "+internal.DefaultConfigPath+")")
	root.PersistentFlags().StringVar(&globals.logLevel, "log-level", "", "minimum log level (verbose, debug, info, warning, error)")

	root.AddCommand(newIngestCommand(globals), newCheckCommand(globals), newMigrateCommand(globals))
	return root
}

func newIngestCommand(globals *globalFlags) *cobra.Command {
	flags := &ingestFlags{}
	cmd := &cobra.Command{
		Use:   "ingest <folder>",
		Short: "Probe, extract covers for, upload and catalog every video in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadApplication(globals.configPath, globals.logLevel)
			if err != nil {
				return err
			}

			opts := internal.IngestOptions{
				Folder:       args[0],
				Recursive:    flags.recursive,
				Environment:  flags.environment,
				Ingest:       flags.apply(cmd, config.Ingest),
				CoverBackend: flags.coverBackend,
				MetricsFile:  flags.metricsFile,
			}

			batch, err := internal.New(*config).Ingest(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if err := ingest.WriteSummary(cmd.OutOrStdout(), batch); err != nil {
				return err
			}
			if batch.Failed() {
				return errItemsFailed
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.environment, "env", "", "environment whose database and object store credentials are used")
	f.BoolVarP(&flags.recursive, "recursive", "r", false, "include videos in sub-directories")
	f.BoolVar(&flags.dryRun, "dry-run", false, "probe and extract covers only; no uploads or catalog inserts")
	f.StringVar(&flags.videoPrefix, "video-prefix", ingest.DefaultVideoPrefix, "object key prefix for videos")
	f.StringVar(&flags.sidecarPrefix, "json-prefix", ingest.DefaultSidecarPrefix, "object key prefix for sidecar files")
	f.StringVar(&flags.coverPrefix, "cover-prefix", ingest.DefaultCoverPrefix, "object key prefix for cover images")
	f.Float64Var(&flags.coverTime, "cover-time", ingest.DefaultCoverTime, "preferred cover timestamp in seconds (capped to 10% of the duration)")
	f.IntVar(&flags.mediaType, "type", 0, "catalog 'type' value for every record")
	f.IntVar(&flags.showStatus, "show-status", 1, "catalog 'show_status' value for every record")
	f.IntVar(&flags.serviceLevelLimits, "service-level-limits", 0, "catalog 'service_level_limits' value for every record")
	f.IntVar(&flags.common, "common", 0, "catalog 'common' value for every record (NULL when omitted)")
	f.StringArrayVar(&flags.toyModels, "toy-model", nil, "toy model to associate every inserted video with (repeatable)")
	f.IntVar(&flags.concurrency, "concurrency", 1, "number of items processed at once")
	f.StringVar(&flags.coverBackend, "cover-backend", "", "force a cover extraction backend (ffmpeg-seek, transcoder-sample)")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "write prometheus metrics for the run to this textfile")

	return cmd
}

// apply overlays the flags which were explicitly set on to the config
// provided. Flags left at their defaults never override values from the
// config file, except for the catalog defaults which only exist as flags.
func (flags *ingestFlags) apply(cmd *cobra.Command, config ingest.Config) ingest.Config {
	changed := cmd.Flags().Changed
	setString := func(name string, dest *string, val string) {
		if changed(name) || *dest == "" {
			*dest = val
		}
	}

	setString("video-prefix", &config.VideoPrefix, flags.videoPrefix)
	setString("json-prefix", &config.SidecarPrefix, flags.sidecarPrefix)
	setString("cover-prefix", &config.CoverPrefix, flags.coverPrefix)
	if changed("cover-time") {
		config.CoverTime = flags.coverTime
	}
	if changed("concurrency") || config.Concurrency == 0 {
		config.Concurrency = flags.concurrency
	}
	if changed("toy-model") {
		config.ToyModels = flags.toyModels
	}

	config.DryRun = flags.dryRun
	config.Defaults.Type = flags.mediaType
	config.Defaults.ShowStatus = flags.showStatus
	config.Defaults.ServiceLevelLimits = flags.serviceLevelLimits
	config.Defaults.Common = nil
	if changed("common") {
		common := flags.common
		config.Defaults.Common = &common
	}

	return config
}

func newCheckCommand(globals *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report which probe and cover extraction backends are available on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadApplication(globals.configPath, globals.logLevel)
			if err != nil {
				return err
			}

			report := internal.New(*config).Check()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ffmpeg:  %s\n", orMissing(report.Capabilities.FfmpegPath))
			fmt.Fprintf(out, "ffprobe: %s\n", orMissing(report.Capabilities.FfprobePath))
			fmt.Fprintf(out, "duration backends: %v\n", report.ProbeBackends)
			if report.CoverError != nil {
				fmt.Fprintf(out, "cover backends: unavailable (%v)\n", report.CoverError)
				return report.CoverError
			}
			fmt.Fprintf(out, "cover backends: %v\n", report.CoverBackends)

			if len(report.ProbeBackends) == 0 || len(report.CoverBackends) == 0 {
				fmt.Fprintln(os.Stderr, "warning: ingestion will fail for every item on this host")
			}
			return nil
		},
	}
}

func newMigrateCommand(globals *globalFlags) *cobra.Command {
	var environment string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply any pending catalog database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadApplication(globals.configPath, globals.logLevel)
			if err != nil {
				return err
			}

			version, err := internal.New(*config).Migrate(environment)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "catalog schema at version %d\n", version)
			return nil
		},
	}
	cmd.Flags().StringVar(&environment, "env", "", "environment whose database is migrated")

	return cmd
}

func orMissing(path string) string {
	if path == "" {
		return "missing"
	}

	return path
}
