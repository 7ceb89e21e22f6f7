package frames

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
)

// fakeRunner scripts tool invocations by binary name and records the
// timestamps ffmpeg was asked for.
type fakeRunner struct {
	probeOutput string
	probeErr    error
	frameData   map[int][]byte
	frameErr    map[int]error
	timestamps  []float64
	calls       int
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if strings.Contains(name, "ffprobe") {
		if f.probeErr != nil {
			return nil, f.probeErr
		}
		return []byte(f.probeOutput), nil
	}
	idx := f.calls
	f.calls++
	for i, arg := range args {
		if arg == "-ss" && i+1 < len(args) {
			ts, err := strconv.ParseFloat(args[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("bad timestamp %q", args[i+1])
			}
			f.timestamps = append(f.timestamps, ts)
		}
	}
	if err, ok := f.frameErr[idx]; ok {
		return nil, err
	}
	if data, ok := f.frameData[idx]; ok {
		return data, nil
	}
	return []byte{0xff, 0xd8, byte(idx)}, nil
}

func newFakeExtractor(runner Runner) *Extractor {
	return NewExtractor(Options{Runner: runner})
}

func TestExtractEvenlySpacedTimestamps(t *testing.T) {
	runner := &fakeRunner{probeOutput: `{"format":{"duration":"20.0"}}`}
	extractor := newFakeExtractor(runner)

	frames, err := extractor.Extract(context.Background(), []byte{1, 2, 3}, 4)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("frames = %d, want 4", len(frames))
	}
	want := []float64{0, 5, 10, 15}
	if len(runner.timestamps) != len(want) {
		t.Fatalf("timestamps = %v, want %v", runner.timestamps, want)
	}
	for i, ts := range want {
		if runner.timestamps[i] != ts {
			t.Fatalf("timestamp[%d] = %v, want %v", i, runner.timestamps[i], ts)
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(frames[0])
	if err != nil {
		t.Fatalf("frame not base64: %v", err)
	}
	if decoded[0] != 0xff || decoded[1] != 0xd8 {
		t.Fatalf("frame bytes = %v, want jpeg magic", decoded[:2])
	}
}

func TestExtractSkipsFailedFrames(t *testing.T) {
	runner := &fakeRunner{
		probeOutput: `{"format":{"duration":"10.0"}}`,
		frameErr:    map[int]error{1: errors.New("decode failed")},
	}
	extractor := newFakeExtractor(runner)

	frames, err := extractor.Extract(context.Background(), []byte{1}, 3)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2 after one skip", len(frames))
	}
}

func TestExtractFailsWhenAllFramesFail(t *testing.T) {
	runner := &fakeRunner{
		probeOutput: `{"format":{"duration":"10.0"}}`,
		frameErr: map[int]error{
			0: errors.New("boom"),
			1: errors.New("boom"),
		},
	}
	extractor := newFakeExtractor(runner)

	_, err := extractor.Extract(context.Background(), []byte{1}, 2)
	if err == nil || !strings.Contains(err.Error(), "No frames could be extracted") {
		t.Fatalf("error = %v, want no-frames error", err)
	}
}

func TestExtractRejectsZeroDuration(t *testing.T) {
	runner := &fakeRunner{probeOutput: `{"format":{"duration":"0"}}`}
	extractor := newFakeExtractor(runner)

	_, err := extractor.Extract(context.Background(), []byte{1}, 3)
	if err == nil || !strings.Contains(err.Error(), "zero duration") {
		t.Fatalf("error = %v, want zero duration error", err)
	}
	if runner.calls != 0 {
		t.Fatalf("ffmpeg called %d times for unreadable video", runner.calls)
	}
}

func TestExtractRejectsUnreadableVideo(t *testing.T) {
	runner := &fakeRunner{probeErr: errors.New("moov atom not found")}
	extractor := newFakeExtractor(runner)

	_, err := extractor.Extract(context.Background(), []byte{1}, 3)
	if err == nil || !strings.Contains(err.Error(), "probe video") {
		t.Fatalf("error = %v, want probe error", err)
	}
}

func TestExtractRejectsEmptyPayload(t *testing.T) {
	extractor := newFakeExtractor(&fakeRunner{})
	if _, err := extractor.Extract(context.Background(), nil, 3); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestExtractDefaultsFrameCount(t *testing.T) {
	runner := &fakeRunner{probeOutput: `{"format":{"duration":"30.0"}}`}
	extractor := newFakeExtractor(runner)

	frames, err := extractor.Extract(context.Background(), []byte{1}, 0)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(frames) != DefaultFrameCount {
		t.Fatalf("frames = %d, want %d", len(frames), DefaultFrameCount)
	}
}
