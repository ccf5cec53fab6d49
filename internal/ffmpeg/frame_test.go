package ffmpeg

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFrameBackend writes a solid image of the configured size, or
// whatever raw content is given, to the output path.
type stubFrameBackend struct {
	name          string
	width, height int
	raw           []byte
	err           error

	calls    int
	lastAt   float64
	sawStale bool
}

func (stub *stubFrameBackend) Name() string { return stub.name }

func (stub *stubFrameBackend) ExtractFrame(_ context.Context, _ string, at float64, out string) error {
	stub.calls++
	stub.lastAt = at
	if _, err := os.Stat(out); err == nil {
		stub.sawStale = true
	}
	if stub.err != nil {
		return stub.err
	}
	if stub.raw != nil {
		return os.WriteFile(out, stub.raw, 0o644)
	}

	img := imaging.New(stub.width, stub.height, color.NRGBA{R: 200, G: 20, B: 20, A: 255})
	return imaging.Save(img, out)
}

func Test_CoverTimestamp(t *testing.T) {
	tests := []struct {
		summary    string
		configured float64
		duration   float64
		expected   float64
	}{
		{"configured is below the cap", 10, 120.5, 10},
		{"capped at ten percent of a short clip", 10, 5, 0.5},
		{"zero duration", 10, 0, 0},
		{"negative duration", 10, -4, 0},
		{"negative configured time", -1, 60, 0},
		{"zero configured time", 0, 60, 0},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CoverTimestamp(tt.configured, tt.duration), 1e-9)
		})
	}
}

func Test_Extract_ReadsDimensions(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cover.jpg")
	backend := &stubFrameBackend{name: "stub", width: 64, height: 36}

	result, err := NewCoverExtractorWithBackends(backend).Extract(context.Background(), "a.mp4", 10, out)
	require.NoError(t, err)
	assert.Equal(t, out, result.Path)
	assert.Equal(t, 64, result.Width)
	assert.Equal(t, 36, result.Height)
	assert.Equal(t, "stub", result.Backend)
	assert.Equal(t, 10.0, backend.lastAt)
}

func Test_Extract_RemovesStaleOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cover.jpg")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	backend := &stubFrameBackend{name: "stub", width: 8, height: 8}
	_, err := NewCoverExtractorWithBackends(backend).Extract(context.Background(), "a.mp4", 1, out)
	require.NoError(t, err)
	assert.False(t, backend.sawStale, "expected stale output to be removed before extraction")
}

func Test_Extract_FallsThroughOnFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cover.jpg")
	failing := &stubFrameBackend{name: "failing", err: errExpected}
	empty := &stubFrameBackend{name: "empty", raw: []byte{}}
	working := &stubFrameBackend{name: "working", width: 16, height: 9}

	result, err := NewCoverExtractorWithBackends(failing, empty, working).Extract(context.Background(), "a.mp4", 1, out)
	require.NoError(t, err)
	assert.Equal(t, "working", result.Backend)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, empty.calls)
}

func Test_Extract_AllBackendsFail(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cover.jpg")
	extractor := NewCoverExtractorWithBackends(
		&stubFrameBackend{name: "empty", raw: []byte{}},
		&stubFrameBackend{name: "corrupt", raw: []byte("not an image")},
	)

	_, err := extractor.Extract(context.Background(), "a.mp4", 1, out)
	var extractErr *ExtractError
	require.ErrorAs(t, err, &extractErr)
	require.Len(t, extractErr.Attempts, 2)
	assert.ErrorIs(t, err, ErrEmptyOutput)
	assert.NoFileExists(t, out, "unusable output should not be left behind")
}

func Test_Extract_NoBackends(t *testing.T) {
	_, err := NewCoverExtractorWithBackends().Extract(context.Background(), "a.mp4", 1, "out.jpg")
	assert.ErrorIs(t, err, ErrNoFrameBackends)
}

func Test_NewCoverExtractor_BackendSelection(t *testing.T) {
	full := Capabilities{FfmpegPath: "/bin/ffmpeg", FfprobePath: "/bin/ffprobe"}

	extractor, err := NewCoverExtractor(full, "")
	require.NoError(t, err)
	assert.Equal(t, []string{BackendFfmpegSeek, BackendTranscoderSample}, extractor.Backends())

	extractor, err = NewCoverExtractor(full, BackendTranscoderSample)
	require.NoError(t, err)
	assert.Equal(t, []string{BackendTranscoderSample}, extractor.Backends())

	_, err = NewCoverExtractor(full, "opencv")
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = NewCoverExtractor(Capabilities{}, BackendFfmpegSeek)
	assert.Error(t, err)

	extractor, err = NewCoverExtractor(Capabilities{}, "")
	require.NoError(t, err)
	assert.Empty(t, extractor.Backends())
}

func Test_FfmpegSeekBackend_Arguments(t *testing.T) {
	var gotArgs []string
	backend := &ffmpegSeekBackend{bin: "ffmpeg", run: func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, nil
	}}

	require.NoError(t, backend.ExtractFrame(context.Background(), "in.mp4", 0.5, "out.jpg"))
	assert.Equal(t, []string{"-y", "-ss", "0.500", "-i", "in.mp4", "-frames:v", "1", "-q:v", "2", "out.jpg"}, gotArgs)
}
