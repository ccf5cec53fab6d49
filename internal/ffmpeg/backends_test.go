package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The tests in this file run the real backends, and are skipped on hosts without
// ffmpeg and ffprobe.

const (
	clipSeconds = 2.0
	clipWidth   = 64
	clipHeight  = 48
)

func requireTools(t *testing.T) Capabilities {
	caps := DetectCapabilities(Config{})
	if !caps.HasFfmpeg() || !caps.HasFfprobe() {
		t.Skipf("ffmpeg and ffprobe are required (%s)", caps)
	}

	return caps
}

// writeTestClip synthesises a short 10fps test pattern video.
func writeTestClip(t *testing.T, caps Capabilities) string {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	_, err := execCommand(context.Background(), caps.FfmpegPath,
		"-y", "-v", "error",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=64x48:rate=10",
		"-pix_fmt", "yuv420p",
		path,
	)
	if err != nil {
		t.Skipf("ffmpeg cannot synthesise a test clip on this host: %v", err)
	}

	return path
}

func Test_DurationBackends_RealClip(t *testing.T) {
	caps := requireTools(t)
	clip := writeTestClip(t, caps)

	backends := []DurationBackend{
		&ffprobeFormatBackend{bin: caps.FfprobePath, run: execCommand},
		&ffmpegDecodeBackend{bin: caps.FfmpegPath, run: execCommand},
		&frameEstimateBackend{bin: caps.FfprobePath, run: execCommand},
	}
	for _, backend := range backends {
		t.Run(backend.Name(), func(t *testing.T) {
			seconds, err := backend.Duration(context.Background(), clip)
			require.NoError(t, err)
			assert.InDelta(t, clipSeconds, seconds, 0.2)
		})
	}
}

func Test_DurationBackends_InvalidFile(t *testing.T) {
	caps := requireTools(t)
	path := filepath.Join(t.TempDir(), "broken.mp4")
	require.NoError(t, os.WriteFile(path, []byte("placeholder:broken.mp4"), 0o644))

	_, err := NewDurationProbe(caps).Probe(context.Background(), path)
	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Len(t, probeErr.Attempts, 3)
}

func Test_FrameBackends_RealClip(t *testing.T) {
	caps := requireTools(t)
	clip := writeTestClip(t, caps)

	backends := []FrameBackend{
		&ffmpegSeekBackend{bin: caps.FfmpegPath, run: execCommand},
		&transcoderSampleBackend{ffmpegBin: caps.FfmpegPath, ffprobeBin: caps.FfprobePath},
	}
	for _, backend := range backends {
		t.Run(backend.Name(), func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "cover.jpg")

			result, err := NewCoverExtractorWithBackends(backend).Extract(context.Background(), clip, 0.5, out)
			require.NoError(t, err)
			assert.Equal(t, backend.Name(), result.Backend)
			assert.Equal(t, clipWidth, result.Width)
			assert.Equal(t, clipHeight, result.Height)
			assert.FileExists(t, out)
		})
	}
}

// The transcoder does not report ffmpeg exiting unsuccessfully, so a sample which
// was never written must be caught when it is opened.
func Test_TranscoderSample_MissingSampleIsAnError(t *testing.T) {
	caps := requireTools(t)
	clip := writeTestClip(t, caps)
	out := filepath.Join(t.TempDir(), "cover.jpg")

	backend := &transcoderSampleBackend{ffmpegBin: caps.FfmpegPath, ffprobeBin: caps.FfprobePath}
	err := backend.ExtractFrame(context.Background(), clip, 1000, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open sampled frame")
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(out), "cover.sample.png"))
}

func Test_TranscoderSample_UnreadableInput(t *testing.T) {
	caps := requireTools(t)
	out := filepath.Join(t.TempDir(), "cover.jpg")

	backend := &transcoderSampleBackend{ffmpegBin: caps.FfmpegPath, ffprobeBin: caps.FfprobePath}
	err := backend.ExtractFrame(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), 0, out)
	assert.ErrorContains(t, err, "transcoder failed to sample frame")
}
