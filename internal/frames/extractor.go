// Package frames samples still frames from uploaded videos for LLM vision
// analysis.
package frames

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultFrameCount matches the number of frames sent for analysis.
const DefaultFrameCount = 10

// Runner executes an external tool and returns its stdout. It exists so tests
// can script ffprobe/ffmpeg without the binaries installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

type Options struct {
	FFmpegPath  string
	FFprobePath string
	Runner      Runner
	Logger      *zerolog.Logger
}

// Extractor samples evenly spaced JPEG frames from a video file using
// ffprobe and ffmpeg.
type Extractor struct {
	ffmpeg  string
	ffprobe string
	runner  Runner
	logger  zerolog.Logger
}

func NewExtractor(opts Options) *Extractor {
	ffmpeg := strings.TrimSpace(opts.FFmpegPath)
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := strings.TrimSpace(opts.FFprobePath)
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	runner := opts.Runner
	if runner == nil {
		runner = execRunner{}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Extractor{ffmpeg: ffmpeg, ffprobe: ffprobe, runner: runner, logger: logger}
}

// Extract writes the video to a temporary file and samples count evenly
// spaced frames from it, returned as base64-encoded JPEGs. Individual frame
// failures are logged and skipped; the call fails only when the video is
// unreadable or no frame could be decoded at all.
func (e *Extractor) Extract(ctx context.Context, video []byte, count int) ([]string, error) {
	if len(video) == 0 {
		return nil, errors.New("frames: empty video payload")
	}
	if count <= 0 {
		count = DefaultFrameCount
	}

	tmp, err := os.CreateTemp("", "analyze-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("frames: create temp file: %w", err)
	}
	path := tmp.Name()
	defer func() {
		_ = os.Remove(path)
	}()
	if _, err := tmp.Write(video); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("frames: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("frames: close temp file: %w", err)
	}

	duration, err := e.probeDuration(ctx, path)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, errors.New("frames: video reports zero duration")
	}

	frames := make([]string, 0, count)
	for i := 0; i < count; i++ {
		timestamp := duration * float64(i) / float64(count)
		data, err := e.frameAt(ctx, path, timestamp)
		if err != nil {
			e.logger.Warn().Err(err).Float64("timestamp", timestamp).Msg("frames: skipping unreadable frame")
			continue
		}
		frames = append(frames, base64.StdEncoding.EncodeToString(data))
	}
	if len(frames) == 0 {
		return nil, errors.New("No frames could be extracted from the video for analysis.")
	}
	e.logger.Debug().Int("frames", len(frames)).Float64("duration", duration).Msg("frames: extraction complete")
	return frames, nil
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (e *Extractor) probeDuration(ctx context.Context, path string) (float64, error) {
	out, err := e.runner.Run(ctx, e.ffprobe,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-of", "json",
		"--", path,
	)
	if err != nil {
		return 0, fmt.Errorf("frames: probe video: %w", err)
	}
	var result probeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, fmt.Errorf("frames: parse probe output: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("frames: parse duration %q: %w", result.Format.Duration, err)
	}
	return duration, nil
}

func (e *Extractor) frameAt(ctx context.Context, path string, timestamp float64) ([]byte, error) {
	out, err := e.runner.Run(ctx, e.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(timestamp, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("frames: no frame data at %.3fs", timestamp)
	}
	return out, nil
}
