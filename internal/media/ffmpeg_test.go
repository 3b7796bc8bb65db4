package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestResolvePrefersExplicitThenEnv(t *testing.T) {
	t.Setenv(EnvFFmpegPath, "/env/ffmpeg")
	t.Setenv(EnvFFprobePath, "/env/ffprobe")

	b, err := Resolve("/opt/ffmpeg", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b.FFmpeg != "/opt/ffmpeg" {
		t.Errorf("ffmpeg = %q, want explicit path", b.FFmpeg)
	}
	if b.FFprobe != "/env/ffprobe" {
		t.Errorf("ffprobe = %q, want env path", b.FFprobe)
	}
	if b.Prober().Path != "/env/ffprobe" {
		t.Errorf("prober path = %q", b.Prober().Path)
	}
}

func TestPlanChunks(t *testing.T) {
	chunks := PlanChunks(150*time.Second, time.Minute, "/tmp/c", "talk", ".mp3")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2].StartTime != 2*time.Minute || chunks[2].EndTime != 150*time.Second {
		t.Errorf("last chunk = %+v", chunks[2])
	}
	if want := filepath.Join("/tmp/c", "talk_chunk_001.mp3"); chunks[1].Path != want {
		t.Errorf("path = %q, want %q", chunks[1].Path, want)
	}
	if PlanChunks(0, time.Minute, "", "a", ".mp3") != nil {
		t.Error("expected no chunks for zero duration")
	}
}

func TestEscapeFilterArg(t *testing.T) {
	got := escapeFilterArg(`C:\subs\it's.srt`)
	want := `C\:\\subs\\it\'s.srt`
	if got != want {
		t.Errorf("escapeFilterArg = %q, want %q", got, want)
	}
}

func TestAudioOptionsKwargs(t *testing.T) {
	kw := DefaultAudioOptions().kwargs()
	if kw["acodec"] != "libmp3lame" || kw["b:a"] != "64k" || kw["ar"] != 16000 {
		t.Errorf("unexpected kwargs %v", kw)
	}

	wav := AudioOptions{Format: "wav", SampleRate: 44100, Channels: 2, Bitrate: "128k"}.kwargs()
	if wav["acodec"] != "pcm_s16le" {
		t.Errorf("wav codec = %v", wav["acodec"])
	}
	if _, ok := wav["b:a"]; ok {
		t.Error("bitrate should not apply to wav")
	}
}

// fakeFFmpeg writes a shell script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, body string) Binaries {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return Binaries{FFmpeg: path}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractAudioPassesArgs(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	b := fakeFFmpeg(t, `printf '%s\n' "$@" > `+argsFile)

	in := filepath.Join(dir, "in.mp4")
	touch(t, in)
	out := filepath.Join(dir, "audio", "out.mp3")

	if err := b.ExtractAudio(context.Background(), in, out, DefaultAudioOptions()); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	args := strings.Fields(string(data))
	for _, want := range []string{"-i", in, out, "-y"} {
		if !slices.Contains(args, want) {
			t.Errorf("args %v missing %q", args, want)
		}
	}
}

func TestFFmpegFailureIncludesStderr(t *testing.T) {
	dir := t.TempDir()
	b := fakeFFmpeg(t, `echo "Invalid data found when processing input" >&2; exit 1`)
	in := filepath.Join(dir, "in.mp4")
	touch(t, in)

	err := b.ExtractAudio(context.Background(), in, filepath.Join(dir, "out.mp3"), DefaultAudioOptions())
	if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestCancelStopsRunningFFmpeg(t *testing.T) {
	dir := t.TempDir()
	b := fakeFFmpeg(t, "exec sleep 30")
	in := filepath.Join(dir, "in.mp4")
	subs := filepath.Join(dir, "in.srt")
	touch(t, in)
	touch(t, subs)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.BurnIn(ctx, in, subs, filepath.Join(dir, "out.mp4"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("burn-in ran %v after cancellation", elapsed)
	}
}
