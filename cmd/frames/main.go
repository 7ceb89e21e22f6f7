package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"storyboard/internal/frames"
	"storyboard/internal/infra"
)

// Offline helper: samples frames from a local video the same way the analyze
// endpoint does, so analysis prompts can be debugged without the server.
func main() {
	var (
		input  string
		outDir string
		count  int
	)
	flag.StringVar(&input, "in", "", "path to the video file")
	flag.StringVar(&outDir, "out", ".", "directory for the sampled frames")
	flag.IntVar(&count, "frames", frames.DefaultFrameCount, "number of frames to sample")
	flag.Parse()

	if input == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
		os.Exit(1)
	}

	video, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read video: %v\n", err)
		os.Exit(1)
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "frames").Logger()
	extractor := frames.NewExtractor(frames.Options{
		FFmpegPath:  os.Getenv("FFMPEG_PATH"),
		FFprobePath: os.Getenv("FFPROBE_PATH"),
		Logger:      &logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sampled, err := extractor.Extract(ctx, video, count)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extraction failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create output dir: %v\n", err)
		os.Exit(1)
	}
	for i, frame := range sampled {
		data, err := base64.StdEncoding.DecodeString(frame)
		if err != nil {
			fmt.Fprintf(os.Stderr, "frame %d is not valid base64: %v\n", i, err)
			os.Exit(1)
		}
		path := filepath.Join(outDir, fmt.Sprintf("frame-%02d.jpg", i+1))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Println(path)
	}
}
