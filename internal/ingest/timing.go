package ingest

import (
	"fmt"
	"strings"
	"time"
)

const (
	TimingProbe         = "probe"
	TimingExtract       = "extract"
	TimingUploadVideo   = "upload-video"
	TimingUploadSidecar = "upload-sidecar"
	TimingUploadCover   = "upload-cover"
	TimingPersist       = "persist"
	TimingAssociate     = "associate"
)

type (
	StageTiming struct {
		Stage    string
		Duration time.Duration
	}

	// TimingRecorder records the wall-clock duration of each pipeline stage executed for a
	// single item, in the order they were executed. Stages which were skipped (due to
	// dry-run or an earlier failure) are never recorded. It is purely observational.
	TimingRecorder struct {
		stem   string
		stages []StageTiming
	}
)

func NewTimingRecorder(stem string) *TimingRecorder {
	return &TimingRecorder{stem: stem, stages: make([]StageTiming, 0, 7)}
}

// Time executes the function provided, recording its duration against the
// stage name provided, and returns its error (if any). The duration is recorded
// even if the function fails.
func (recorder *TimingRecorder) Time(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	recorder.Record(stage, time.Since(start))

	return err
}

func (recorder *TimingRecorder) Record(stage string, duration time.Duration) {
	recorder.stages = append(recorder.stages, StageTiming{Stage: stage, Duration: duration})
}

// Stages returns a copy of the stage timings recorded so far, in execution order.
func (recorder *TimingRecorder) Stages() []StageTiming {
	out := make([]StageTiming, len(recorder.stages))
	copy(out, recorder.stages)
	return out
}

// Total returns the sum of every recorded stage.
func (recorder *TimingRecorder) Total() time.Duration {
	var total time.Duration
	for _, s := range recorder.stages {
		total += s.Duration
	}

	return total
}

// Bottleneck returns the stage with the largest recorded duration. If two stages
// share the largest duration, the earliest is returned. The bool is false
// if nothing has been recorded.
func (recorder *TimingRecorder) Bottleneck() (StageTiming, bool) {
	if len(recorder.stages) == 0 {
		return StageTiming{}, false
	}

	worst := recorder.stages[0]
	for _, s := range recorder.stages[1:] {
		if s.Duration > worst.Duration {
			worst = s
		}
	}

	return worst, true
}

// Percentage returns the share (0-100) of the total time spent in the stage provided.
func (recorder *TimingRecorder) Percentage(stage StageTiming) float64 {
	total := recorder.Total()
	if total <= 0 {
		return 0
	}

	return float64(stage.Duration) / float64(total) * 100
}

// String formats the timings as a single diagnostic line:
//
//	⏱ clip | total 3.2s | bottleneck: upload-video || probe 0.1s (3%)  extract 0.4s (12%) ...
func (recorder *TimingRecorder) String() string {
	bottleneck, ok := recorder.Bottleneck()
	if !ok || recorder.Total() <= 0 {
		return fmt.Sprintf("⏱ %s | no stages timed", recorder.stem)
	}

	parts := make([]string, len(recorder.stages))
	for i, s := range recorder.stages {
		parts[i] = fmt.Sprintf("%s %.1fs (%.0f%%)", s.Stage, s.Duration.Seconds(), recorder.Percentage(s))
	}

	return fmt.Sprintf("⏱ %s | total %.1fs | bottleneck: %s || %s", recorder.stem, recorder.Total().Seconds(), bottleneck.Stage, strings.Join(parts, "  "))
}
