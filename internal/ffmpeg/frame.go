package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/disintegration/imaging"
	tffmpeg "github.com/floostack/transcoder/ffmpeg"
)

const (
	BackendFfmpegSeek       = "ffmpeg-seek"
	BackendTranscoderSample = "transcoder-sample"

	// CoverFraction is the share of a videos duration which the cover
	// timestamp may not exceed.
	CoverFraction = 0.10
)

var (
	ErrNoFrameBackends = errors.New("no cover extraction backends are available")
	ErrUnknownBackend  = errors.New("unknown cover extraction backend")
	ErrEmptyOutput     = errors.New("extraction produced no output")
)

type (
	// FrameBackend writes a single frame of the video at path, taken from
	// the timestamp 'at' (in seconds), to the file at out.
	FrameBackend interface {
		Name() string
		ExtractFrame(ctx context.Context, path string, at float64, out string) error
	}

	CoverResult struct {
		Path    string
		Width   int
		Height  int
		Backend string
	}

	// ExtractError is returned when a cover could not be produced by any
	// of the extractors backends.
	ExtractError struct {
		Path     string
		At       float64
		Attempts []BackendAttempt
	}

	CoverExtractor struct {
		backends []FrameBackend
	}
)

// CoverTimestamp computes the point in the video (in seconds) at which the cover frame
// should be taken. The configured time is capped to 10% of the videos duration so that very
// short clips are never seeked past their end; i.e. min(configured, duration * 0.10).
// A non-positive duration, or a negative configured time, yields 0.
func CoverTimestamp(configured float64, duration float64) float64 {
	if duration <= 0 || math.IsNaN(duration) || math.IsNaN(configured) || configured < 0 {
		return 0
	}

	return math.Min(configured, duration*CoverFraction)
}

// NewCoverExtractor constructs the extraction chain for the capabilities provided. If
// preferred is non-empty, only the backend of that name is used (and an error is
// returned if it is unknown or unavailable on this host).
func NewCoverExtractor(caps Capabilities, preferred string) (*CoverExtractor, error) {
	available := make([]FrameBackend, 0, 2)
	if caps.HasFfmpeg() {
		available = append(available, &ffmpegSeekBackend{bin: caps.FfmpegPath, run: execCommand})
		if caps.HasFfprobe() {
			available = append(available, &transcoderSampleBackend{ffmpegBin: caps.FfmpegPath, ffprobeBin: caps.FfprobePath})
		}
	}

	if preferred == "" {
		return NewCoverExtractorWithBackends(available...), nil
	}

	if preferred != BackendFfmpegSeek && preferred != BackendTranscoderSample {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownBackend, preferred)
	}
	for _, backend := range available {
		if backend.Name() == preferred {
			return NewCoverExtractorWithBackends(backend), nil
		}
	}

	return nil, fmt.Errorf("cover backend '%s' is not available on this host (%s)", preferred, caps)
}

func NewCoverExtractorWithBackends(backends ...FrameBackend) *CoverExtractor {
	return &CoverExtractor{backends: backends}
}

func (extractor *CoverExtractor) Backends() []string {
	names := make([]string, len(extractor.backends))
	for i, b := range extractor.backends {
		names[i] = b.Name()
	}

	return names
}

// Extract writes a JPEG cover image for the video at path to out, taken from
// the timestamp provided. Any existing file at out is removed first, so retries
// never observe stale output. Backends are tried in order, and a backend is
// only considered successful if it leaves a non-empty, decodable image behind.
func (extractor *CoverExtractor) Extract(ctx context.Context, path string, at float64, out string) (CoverResult, error) {
	if len(extractor.backends) == 0 {
		return CoverResult{}, &ExtractError{Path: path, At: at, Attempts: []BackendAttempt{{Backend: "none", Err: ErrNoFrameBackends}}}
	}

	attempts := make([]BackendAttempt, 0, len(extractor.backends))
	for _, backend := range extractor.backends {
		result, err := extractor.extractWith(ctx, backend, path, at, out)
		if err != nil {
			log.Emit(logger.DEBUG, "Cover backend %s failed for %s: %v\n", backend.Name(), path, err)
			attempts = append(attempts, BackendAttempt{Backend: backend.Name(), Err: err})
			continue
		}

		return result, nil
	}

	return CoverResult{}, &ExtractError{Path: path, At: at, Attempts: attempts}
}

func (extractor *CoverExtractor) extractWith(ctx context.Context, backend FrameBackend, path string, at float64, out string) (CoverResult, error) {
	if err := removeStale(out); err != nil {
		return CoverResult{}, err
	}
	if err := backend.ExtractFrame(ctx, path, at, out); err != nil {
		return CoverResult{}, err
	}

	info, err := os.Stat(out)
	if err != nil {
		return CoverResult{}, fmt.Errorf("%w: %w", ErrEmptyOutput, err)
	}
	if info.Size() == 0 {
		_ = os.Remove(out)
		return CoverResult{}, ErrEmptyOutput
	}

	width, height, err := imageDimensions(out)
	if err != nil {
		_ = os.Remove(out)
		return CoverResult{}, err
	}

	log.Emit(logger.VERBOSE, "Extracted %dx%d cover from %s at %.2fs (via %s)\n", width, height, path, at, backend.Name())
	return CoverResult{Path: out, Width: width, Height: height, Backend: backend.Name()}, nil
}

func (err *ExtractError) Error() string {
	parts := make([]string, len(err.Attempts))
	for i, attempt := range err.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", attempt.Backend, attempt.Err)
	}

	return fmt.Sprintf("failed to extract cover from %s at %.2fs (tried %s)", err.Path, err.At, strings.Join(parts, "; "))
}

func (err *ExtractError) Unwrap() []error {
	errs := make([]error, len(err.Attempts))
	for i, attempt := range err.Attempts {
		errs[i] = attempt.Err
	}

	return errs
}

func removeStale(out string) error {
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale output %s: %w", out, err)
	}

	return nil
}

func imageDimensions(path string) (int, int, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode extracted cover %s: %w", path, err)
	}

	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

// ffmpegSeekBackend uses an input seek, which lets ffmpeg jump to the nearest
// keyframe without decoding everything before it.
type ffmpegSeekBackend struct {
	bin string
	run commandRunner
}

func (backend *ffmpegSeekBackend) Name() string { return BackendFfmpegSeek }

func (backend *ffmpegSeekBackend) ExtractFrame(ctx context.Context, path string, at float64, out string) error {
	_, err := backend.run(ctx, backend.bin,
		"-y",
		"-ss", formatSeconds(at),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "2",
		out,
	)

	return err
}

// sampleOptions is the argument set handed to the transcoder when sampling
// a single frame. An output seek is used (the -ss follows the input) which
// decodes up to the timestamp.
type sampleOptions struct {
	at float64
}

func (opts sampleOptions) GetStrArguments() []string {
	return []string{"-ss", formatSeconds(opts.at), "-frames:v", "1", "-f", "image2", "-y"}
}

// transcoderSampleBackend decodes the video using the transcoder library in to a
// lossless PNG sample, and then re-encodes that sample as a JPEG using imaging.
type transcoderSampleBackend struct {
	ffmpegBin  string
	ffprobeBin string
}

func (backend *transcoderSampleBackend) Name() string { return BackendTranscoderSample }

func (backend *transcoderSampleBackend) ExtractFrame(ctx context.Context, path string, at float64, out string) error {
	sample := strings.TrimSuffix(out, filepath.Ext(out)) + ".sample.png"
	defer os.Remove(sample)

	_, err := tffmpeg.
		New(&tffmpeg.Config{
			ProgressEnabled: false,
			FfmpegBinPath:   backend.ffmpegBin,
			FfprobeBinPath:  backend.ffprobeBin,
		}).
		Input(path).
		Output(sample).
		WithContext(&ctx).
		Start(sampleOptions{at: at})
	if err != nil {
		return fmt.Errorf("transcoder failed to sample frame: %w", err)
	}

	img, err := imaging.Open(sample)
	if err != nil {
		return fmt.Errorf("failed to open sampled frame: %w", err)
	}

	if err := imaging.Save(img, out, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to encode cover JPEG: %w", err)
	}

	return nil
}
