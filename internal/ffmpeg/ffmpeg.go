package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dailypy/mediaflow/pkg/logger"
)

var log = logger.Get("FFmpeg")

const (
	defaultFfmpegBin  = "ffmpeg"
	defaultFfprobeBin = "ffprobe"
)

type (
	// Config contains the binary locations used by the probe and extraction
	// backends. Empty values fall back to looking up 'ffmpeg' and 'ffprobe'
	// on the hosts PATH.
	Config struct {
		FfmpegBinaryPath  string `yaml:"ffmpeg_binary" env:"FFMPEG_BINARY"`
		FfprobeBinaryPath string `yaml:"ffprobe_binary" env:"FFPROBE_BINARY"`
	}

	// Capabilities describes which external tools are available on this host. It
	// is computed once at startup (see DetectCapabilities) and handed to the
	// components which need it, rather than each backend checking for itself.
	Capabilities struct {
		FfmpegPath  string
		FfprobePath string
	}

	// commandRunner executes a binary and returns its stdout. Backends hold
	// one of these so that tests can substitute canned output.
	commandRunner func(ctx context.Context, bin string, args ...string) ([]byte, error)
)

// DetectCapabilities resolves the configured ffmpeg/ffprobe binaries
// against the hosts PATH. Binaries which cannot be found are left empty.
func DetectCapabilities(config Config) Capabilities {
	resolve := func(configured string, fallback string) string {
		bin := configured
		if bin == "" {
			bin = fallback
		}

		path, err := exec.LookPath(bin)
		if err != nil {
			log.Emit(logger.WARNING, "Binary '%s' could not be found: %v\n", bin, err)
			return ""
		}

		return path
	}

	caps := Capabilities{
		FfmpegPath:  resolve(config.FfmpegBinaryPath, defaultFfmpegBin),
		FfprobePath: resolve(config.FfprobeBinaryPath, defaultFfprobeBin),
	}
	log.Emit(logger.DEBUG, "Detected capabilities: %s\n", caps)

	return caps
}

func (caps Capabilities) HasFfmpeg() bool  { return caps.FfmpegPath != "" }
func (caps Capabilities) HasFfprobe() bool { return caps.FfprobePath != "" }

func (caps Capabilities) String() string {
	return fmt.Sprintf("Capabilities{ffmpeg=%q ffprobe=%q}", caps.FfmpegPath, caps.FfprobePath)
}

// execCommand runs the binary provided and returns its stdout. When the
// command fails, the error returned includes the (trimmed) stderr output
// as ffmpeg/ffprobe report almost all useful failure information there.
func execCommand(ctx context.Context, bin string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Emit(logger.VERBOSE, "Executing %s %s\n", bin, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", bin, err, lastLine(msg))
		}

		return nil, fmt.Errorf("%s: %w", bin, err)
	}

	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	if idx := strings.LastIndex(s, "\n"); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}

	return s
}
