package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dailypy/mediaflow/internal"
	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/joho/godotenv"
)

const (
	exitItemsFailed = 1
	exitRunFailed   = 2
)

var log = logger.Get("Bootstrap")

// errItemsFailed is returned by the ingest command when the run completed but
// one or more items failed. It maps to a distinct exit status from
// run-level failures.
var errItemsFailed = errors.New("one or more items failed to ingest")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errItemsFailed):
		os.Exit(exitItemsFailed)
	default:
		log.Emit(logger.FATAL, "%v\n", err)
		os.Exit(exitRunFailed)
	}
}

// loadApplication loads the configuration from the path provided, applying the
// log level override (if any) before the application is constructed.
func loadApplication(configPath string, logLevel string) (*internal.MediaflowConfig, error) {
	config, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		config.LogLevel = logLevel
	}
	level, ok := logger.ParseLevel(config.LogLevel)
	if !ok {
		return nil, fmt.Errorf("unknown log level '%s'", config.LogLevel)
	}
	logger.SetMinLoggingLevel(level.Level())

	return config, nil
}
