package ffmpeg

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errExpected = errors.New("test: expected error")

type stubDurationBackend struct {
	name    string
	seconds float64
	err     error
	calls   int
}

func (stub *stubDurationBackend) Name() string { return stub.name }

func (stub *stubDurationBackend) Duration(context.Context, string) (float64, error) {
	stub.calls++
	return stub.seconds, stub.err
}

func Test_Probe_FirstUsableBackendWins(t *testing.T) {
	first := &stubDurationBackend{name: "first", err: errExpected}
	second := &stubDurationBackend{name: "second", seconds: 120.5}
	third := &stubDurationBackend{name: "third", seconds: 99}

	result, err := NewDurationProbeWithBackends(first, second, third).Probe(context.Background(), "a.mp4")
	require.NoError(t, err)
	assert.Equal(t, 120.5, result.Seconds)
	assert.Equal(t, "second", result.Backend)
	assert.Equal(t, 120, result.WholeSeconds())

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls, "backends after the first success must not be consulted")
}

func Test_Probe_UnusableValuesFallThrough(t *testing.T) {
	tests := []struct {
		summary string
		seconds float64
	}{
		{"zero", 0},
		{"negative", -3},
		{"NaN", math.NaN()},
		{"infinite", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			bad := &stubDurationBackend{name: "bad", seconds: tt.seconds}
			good := &stubDurationBackend{name: "good", seconds: 5}

			result, err := NewDurationProbeWithBackends(bad, good).Probe(context.Background(), "b.mp4")
			require.NoError(t, err)
			assert.Equal(t, "good", result.Backend)
			assert.Equal(t, 5.0, result.Seconds)
		})
	}
}

func Test_Probe_AllBackendsFail(t *testing.T) {
	probe := NewDurationProbeWithBackends(
		&stubDurationBackend{name: "one", err: errExpected},
		&stubDurationBackend{name: "two", seconds: -1},
	)

	_, err := probe.Probe(context.Background(), "broken.mp4")
	require.Error(t, err)

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	require.Len(t, probeErr.Attempts, 2)
	assert.Equal(t, "one", probeErr.Attempts[0].Backend)
	assert.Equal(t, "two", probeErr.Attempts[1].Backend)
	assert.ErrorIs(t, err, errExpected)
	assert.ErrorIs(t, err, ErrUnusableValue)
	assert.Contains(t, err.Error(), "broken.mp4")
}

func Test_Probe_NoBackends(t *testing.T) {
	_, err := NewDurationProbe(Capabilities{}).Probe(context.Background(), "a.mp4")
	assert.ErrorIs(t, err, ErrNoProbeBackends)
}

func Test_NewDurationProbe_ChainFollowsCapabilities(t *testing.T) {
	tests := []struct {
		summary  string
		caps     Capabilities
		expected []string
	}{
		{
			summary:  "ffmpeg and ffprobe",
			caps:     Capabilities{FfmpegPath: "/bin/ffmpeg", FfprobePath: "/bin/ffprobe"},
			expected: []string{BackendFfprobeFormat, BackendFfmpegDecode, BackendFrameEstimate},
		},
		{
			summary:  "ffmpeg only",
			caps:     Capabilities{FfmpegPath: "/bin/ffmpeg"},
			expected: []string{BackendFfmpegDecode},
		},
		{
			summary:  "ffprobe only",
			caps:     Capabilities{FfprobePath: "/bin/ffprobe"},
			expected: []string{BackendFfprobeFormat, BackendFrameEstimate},
		},
		{
			summary:  "neither",
			caps:     Capabilities{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewDurationProbe(tt.caps).Backends())
		})
	}
}

func Test_Probe_FfmpegOnlyHostUsesDecode(t *testing.T) {
	probe := NewDurationProbe(Capabilities{FfmpegPath: "/bin/ffmpeg"})
	probe.backends[0].(*ffmpegDecodeBackend).run = func(_ context.Context, bin string, _ ...string) ([]byte, error) {
		assert.Equal(t, "/bin/ffmpeg", bin)
		return []byte("out_time=00:00:07.250000\nprogress=end\n"), nil
	}

	result, err := probe.Probe(context.Background(), "a.mp4")
	require.NoError(t, err)
	assert.Equal(t, BackendFfmpegDecode, result.Backend)
	assert.InDelta(t, 7.25, result.Seconds, 0.0001)
}

func Test_ParseProgressDuration(t *testing.T) {
	tests := []struct {
		summary  string
		output   string
		expected float64
		fails    bool
	}{
		{
			summary:  "last position wins",
			output:   "frame=10\nout_time=00:00:01.000000\nprogress=continue\nframe=20\nout_time=00:02:00.500000\nprogress=end\n",
			expected: 120.5,
		},
		{summary: "hours", output: "out_time=01:00:03.000000\nprogress=end\n", expected: 3603},
		{summary: "not available", output: "out_time=N/A\nprogress=end\n", fails: true},
		{summary: "negative start position", output: "out_time=-00:00:00.040000\nprogress=end\n", fails: true},
		{summary: "no progress", output: "", fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			seconds, err := ParseProgressDuration([]byte(tt.output))
			if tt.fails {
				assert.ErrorIs(t, err, ErrUnusableValue)
				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.expected, seconds, 0.0001)
		})
	}
}

func Test_FfmpegDecodeBackend_Arguments(t *testing.T) {
	var gotArgs []string
	backend := &ffmpegDecodeBackend{bin: "ffmpeg", run: func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, errExpected
	}}

	_, err := backend.Duration(context.Background(), "/videos/a.mp4")
	assert.ErrorIs(t, err, errExpected)
	assert.Contains(t, gotArgs, "/videos/a.mp4")
	assert.Contains(t, gotArgs, "null")
	assert.Contains(t, gotArgs, "pipe:1")
	assert.Equal(t, "-", gotArgs[len(gotArgs)-1])
}

func Test_WholeSeconds_Truncates(t *testing.T) {
	assert.Equal(t, 5, ProbeResult{Seconds: 5.99}.WholeSeconds())
	assert.Equal(t, 0, ProbeResult{Seconds: 0.4}.WholeSeconds())
	assert.Equal(t, 0, ProbeResult{Seconds: -2}.WholeSeconds())
}

func Test_ParseFormatDuration(t *testing.T) {
	seconds, err := ParseFormatDuration([]byte("120.500000\n"))
	require.NoError(t, err)
	assert.Equal(t, 120.5, seconds)

	seconds, err = ParseFormatDuration([]byte(" 5.0\n\n"))
	require.NoError(t, err)
	assert.Equal(t, 5.0, seconds)

	_, err = ParseFormatDuration([]byte("N/A\n"))
	assert.ErrorIs(t, err, ErrUnusableValue)

	_, err = ParseFormatDuration([]byte(""))
	assert.ErrorIs(t, err, ErrUnusableValue)

	_, err = ParseFormatDuration([]byte("garbage"))
	assert.Error(t, err)
}

func Test_ParseFrameEstimate(t *testing.T) {
	tests := []struct {
		summary  string
		output   string
		expected float64
		fails    bool
	}{
		{"average rate", `{"streams":[{"nb_frames":"300","avg_frame_rate":"30/1","r_frame_rate":"60/1"}]}`, 10, false},
		{"falls back to base rate", `{"streams":[{"nb_frames":"250","avg_frame_rate":"0/0","r_frame_rate":"25/1"}]}`, 10, false},
		{"integer rate", `{"streams":[{"nb_frames":"50","avg_frame_rate":"25"}]}`, 2, false},
		{"no frame rate", `{"streams":[{"nb_frames":"50","avg_frame_rate":"0/0","r_frame_rate":"0/0"}]}`, 0, true},
		{"no frame count", `{"streams":[{"nb_frames":"N/A","avg_frame_rate":"25/1"}]}`, 0, true},
		{"no streams", `{"streams":[]}`, 0, true},
		{"invalid json", `{`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			seconds, err := ParseFrameEstimate([]byte(tt.output))
			if tt.fails {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.expected, seconds, 0.0001)
		})
	}
}

func Test_FfprobeFormatBackend_InvokesFfprobe(t *testing.T) {
	var gotBin string
	var gotArgs []string
	backend := &ffprobeFormatBackend{bin: "/usr/bin/ffprobe", run: func(_ context.Context, bin string, args ...string) ([]byte, error) {
		gotBin, gotArgs = bin, args
		return []byte("42.0\n"), nil
	}}

	seconds, err := backend.Duration(context.Background(), "/videos/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, 42.0, seconds)
	assert.Equal(t, "/usr/bin/ffprobe", gotBin)
	assert.Contains(t, gotArgs, "format=duration")
	assert.Equal(t, "/videos/a.mp4", gotArgs[len(gotArgs)-1])
}

func Test_FrameEstimateBackend_PropagatesRunnerError(t *testing.T) {
	backend := &frameEstimateBackend{bin: "ffprobe", run: func(context.Context, string, ...string) ([]byte, error) {
		return nil, errExpected
	}}

	_, err := backend.Duration(context.Background(), "a.mp4")
	assert.ErrorIs(t, err, errExpected)
}
