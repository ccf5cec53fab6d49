package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/floostack/transcoder/utils"
)

const (
	BackendFfprobeFormat = "ffprobe-format"
	BackendFfmpegDecode  = "ffmpeg-decode"
	BackendFrameEstimate = "frame-estimate"
)

var (
	ErrNoProbeBackends = errors.New("no duration backends are available")
	ErrUnusableValue   = errors.New("backend returned an unusable duration")
)

type (
	// DurationBackend is a single way of finding the duration of a video. Backends
	// are arranged in to an ordered fallback chain by the DurationProbe.
	DurationBackend interface {
		Name() string
		Duration(ctx context.Context, path string) (float64, error)
	}

	ProbeResult struct {
		Seconds float64
		Backend string
	}

	// ProbeError is returned when every backend in the chain failed. Attempts
	// holds the failure of each backend, in the order they were tried.
	ProbeError struct {
		Path     string
		Attempts []BackendAttempt
	}

	BackendAttempt struct {
		Backend string
		Err     error
	}

	// DurationProbe tries each of its backends in order, and returns
	// the first usable duration. Results from different backends are
	// never combined.
	DurationProbe struct {
		backends []DurationBackend
	}
)

// NewDurationProbe constructs the default fallback chain for the capabilities
// of this host: ffprobe format query, then a full decode through ffmpeg, then
// a frame count/rate estimate. Each backend is only included if the binary it
// runs is available.
func NewDurationProbe(caps Capabilities) *DurationProbe {
	backends := make([]DurationBackend, 0, 3)
	if caps.HasFfprobe() {
		backends = append(backends, &ffprobeFormatBackend{bin: caps.FfprobePath, run: execCommand})
	}
	if caps.HasFfmpeg() {
		backends = append(backends, &ffmpegDecodeBackend{bin: caps.FfmpegPath, run: execCommand})
	}
	if caps.HasFfprobe() {
		backends = append(backends, &frameEstimateBackend{bin: caps.FfprobePath, run: execCommand})
	}

	return NewDurationProbeWithBackends(backends...)
}

// NewDurationProbeWithBackends constructs a DurationProbe which uses exactly
// the backends provided, in the order provided.
func NewDurationProbeWithBackends(backends ...DurationBackend) *DurationProbe {
	return &DurationProbe{backends: backends}
}

// Backends returns the names of the backends in this probes chain.
func (probe *DurationProbe) Backends() []string {
	names := make([]string, len(probe.backends))
	for i, b := range probe.backends {
		names[i] = b.Name()
	}

	return names
}

// Probe finds the duration of the video at the path provided. The first backend
// to return a positive, finite duration wins. If no backend succeeds, a
// *ProbeError is returned describing every attempt.
func (probe *DurationProbe) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if len(probe.backends) == 0 {
		return ProbeResult{}, &ProbeError{Path: path, Attempts: []BackendAttempt{{Backend: "none", Err: ErrNoProbeBackends}}}
	}

	attempts := make([]BackendAttempt, 0, len(probe.backends))
	for _, backend := range probe.backends {
		seconds, err := backend.Duration(ctx, path)
		if err == nil && !usableDuration(seconds) {
			err = fmt.Errorf("%w: %v", ErrUnusableValue, seconds)
		}
		if err != nil {
			log.Emit(logger.DEBUG, "Duration backend %s failed for %s: %v\n", backend.Name(), path, err)
			attempts = append(attempts, BackendAttempt{Backend: backend.Name(), Err: err})
			continue
		}

		log.Emit(logger.VERBOSE, "Duration of %s is %.3fs (via %s)\n", path, seconds, backend.Name())
		return ProbeResult{Seconds: seconds, Backend: backend.Name()}, nil
	}

	return ProbeResult{}, &ProbeError{Path: path, Attempts: attempts}
}

// WholeSeconds returns the duration truncated to a non-negative
// whole number of seconds, as stored in the catalog. It never rounds up.
func (result ProbeResult) WholeSeconds() int {
	if result.Seconds <= 0 || math.IsNaN(result.Seconds) {
		return 0
	}

	return int(result.Seconds)
}

func (err *ProbeError) Error() string {
	parts := make([]string, len(err.Attempts))
	for i, attempt := range err.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", attempt.Backend, attempt.Err)
	}

	return fmt.Sprintf("failed to probe duration of %s (tried %s)", err.Path, strings.Join(parts, "; "))
}

// Unwrap exposes the underlying backend errors to errors.Is/As.
func (err *ProbeError) Unwrap() []error {
	errs := make([]error, len(err.Attempts))
	for i, attempt := range err.Attempts {
		errs[i] = attempt.Err
	}

	return errs
}

func usableDuration(seconds float64) bool {
	return seconds > 0 && !math.IsNaN(seconds) && !math.IsInf(seconds, 0)
}

// ffprobeFormatBackend asks ffprobe for the container duration only. This is
// the cheapest option as ffprobe does not need to decode any of the streams.
type ffprobeFormatBackend struct {
	bin string
	run commandRunner
}

func (backend *ffprobeFormatBackend) Name() string { return BackendFfprobeFormat }

func (backend *ffprobeFormatBackend) Duration(ctx context.Context, path string) (float64, error) {
	out, err := backend.run(ctx, backend.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return 0, err
	}

	return ParseFormatDuration(out)
}

// ParseFormatDuration parses the single duration value printed by
// ffprobe when asked for 'format=duration' in csv form.
func ParseFormatDuration(out []byte) (float64, error) {
	value := strings.TrimSpace(string(out))
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	if value == "" || value == "N/A" {
		return 0, fmt.Errorf("%w: ffprobe reported no duration", ErrUnusableValue)
	}

	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration %q: %w", value, err)
	}

	return seconds, nil
}

// ffmpegDecodeBackend decodes the whole of the first video stream in to the null
// muxer, and takes the duration from the final position ffmpeg reports on its
// progress stream. It is slow, but does not trust the container headers and
// only needs ffmpeg itself.
type ffmpegDecodeBackend struct {
	bin string
	run commandRunner
}

func (backend *ffmpegDecodeBackend) Name() string { return BackendFfmpegDecode }

func (backend *ffmpegDecodeBackend) Duration(ctx context.Context, path string) (float64, error) {
	out, err := backend.run(ctx, backend.bin,
		"-hide_banner",
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-map", "0:v:0",
		"-f", "null",
		"-progress", "pipe:1",
		"-nostats",
		"-",
	)
	if err != nil {
		return 0, err
	}

	return ParseProgressDuration(out)
}

// ParseProgressDuration reads the last 'out_time' reported by ffmpeg on its
// machine readable progress output (-progress), which is the position of the
// final decoded frame.
func ParseProgressDuration(out []byte) (float64, error) {
	var last string
	for _, line := range strings.Split(string(out), "\n") {
		if value, ok := strings.CutPrefix(strings.TrimSpace(line), "out_time="); ok {
			last = value
		}
	}
	if last == "" || last == "N/A" || strings.HasPrefix(last, "-") {
		return 0, fmt.Errorf("%w: ffmpeg reported no decode position", ErrUnusableValue)
	}

	return utils.DurToSec(last), nil
}

// frameEstimateBackend estimates the duration using the number of frames
// in the first video stream, and its frame rate.
type frameEstimateBackend struct {
	bin string
	run commandRunner
}

func (backend *frameEstimateBackend) Name() string { return BackendFrameEstimate }

func (backend *frameEstimateBackend) Duration(ctx context.Context, path string) (float64, error) {
	out, err := backend.run(ctx, backend.bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames,avg_frame_rate,r_frame_rate",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, err
	}

	return ParseFrameEstimate(out)
}

type frameStreamsOutput struct {
	Streams []struct {
		NbFrames     string `json:"nb_frames"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
}

// ParseFrameEstimate computes frames / fps from ffprobe JSON stream output. The
// average frame rate is preferred, falling back to the real base frame rate. The
// estimate is only valid if the frame rate is positive.
func ParseFrameEstimate(data []byte) (float64, error) {
	var raw frameStreamsOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	if len(raw.Streams) == 0 {
		return 0, fmt.Errorf("%w: no video stream", ErrUnusableValue)
	}

	stream := raw.Streams[0]
	frames, err := strconv.ParseFloat(strings.TrimSpace(stream.NbFrames), 64)
	if err != nil || frames <= 0 {
		return 0, fmt.Errorf("%w: frame count %q", ErrUnusableValue, stream.NbFrames)
	}

	fps := parseRate(stream.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(stream.RFrameRate)
	}
	if fps <= 0 {
		return 0, fmt.Errorf("%w: frame rate is not positive", ErrUnusableValue)
	}

	return frames / fps, nil
}

// parseRate parses ffprobe rationals such as "30000/1001" or "25". Invalid
// input, or a zero denominator, yields 0.
func parseRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	num, den, isFraction := strings.Cut(rate, "/")

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !isFraction {
		return n
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}

	return n / d
}
