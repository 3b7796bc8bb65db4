package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioOptions control audio extraction for transcription.
type AudioOptions struct {
	Format     string // mp3, aac, flac or wav
	SampleRate int
	Channels   int
	Bitrate    string // lossy formats only, e.g. "64k"
}

// mono 16 kHz mp3 keeps uploads small
func DefaultAudioOptions() AudioOptions {
	return AudioOptions{
		Format:     "mp3",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
	}
}

func (o AudioOptions) kwargs() ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{
		"vn": "",
		"ar": o.SampleRate,
		"ac": o.Channels,
	}
	switch o.Format {
	case "aac":
		kwargs["acodec"] = "aac"
	case "flac":
		kwargs["acodec"] = "flac"
	case "wav":
		kwargs["acodec"] = "pcm_s16le"
	default:
		kwargs["acodec"] = "libmp3lame"
	}
	if o.Bitrate != "" && (o.Format == "mp3" || o.Format == "aac" || o.Format == "") {
		kwargs["b:a"] = o.Bitrate
	}
	return kwargs
}

// ExtractAudio writes the audio track of in to out, re-encoded per opts.
func (b Binaries) ExtractAudio(ctx context.Context, in, out string, opts AudioOptions) error {
	if _, err := os.Stat(in); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", in)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	err := b.run(ctx, ffmpeg.Input(in).
		Output(out, opts.kwargs()).
		OverWriteOutput())
	if err != nil {
		return fmt.Errorf("audio extraction failed: %w", err)
	}
	return nil
}

// BurnIn renders the subtitle file onto the video frames of in. The audio
// stream is copied untouched.
func (b Binaries) BurnIn(ctx context.Context, in, subs, out string) error {
	if _, err := os.Stat(in); os.IsNotExist(err) {
		return fmt.Errorf("video file not found: %s", in)
	}
	if _, err := os.Stat(subs); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subs)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	err := b.run(ctx, ffmpeg.Input(in).
		Output(out, ffmpeg.KwArgs{
			"vf":  "subtitles=" + escapeFilterArg(subs),
			"c:a": "copy",
		}).
		OverWriteOutput())
	if err != nil {
		return fmt.Errorf("burn-in failed: %w", err)
	}
	return nil
}

// run executes the compiled stream with b.FFmpeg. Cancelling ctx kills the
// process; the context error is returned in that case.
func (b Binaries) run(ctx context.Context, s *ffmpeg.Stream) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, b.FFmpeg, s.GetArgs()...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// escapes a path for use as a filtergraph option value
func escapeFilterArg(s string) string {
	return strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`,`, `\,`,
		`[`, `\[`,
		`]`, `\]`,
	).Replace(s)
}

// Chunk is one slice of a longer audio file.
type Chunk struct {
	Path      string
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
}

// PlanChunks lays out consecutive windows of size over total. The last
// window is clipped to total.
func PlanChunks(total, size time.Duration, dir, base, ext string) []Chunk {
	if size <= 0 || total <= 0 {
		return nil
	}
	var chunks []Chunk
	for i := 0; time.Duration(i)*size < total; i++ {
		start := time.Duration(i) * size
		chunks = append(chunks, Chunk{
			Path:      filepath.Join(dir, fmt.Sprintf("%s_chunk_%03d%s", base, i, ext)),
			Index:     i,
			StartTime: start,
			EndTime:   min(start+size, total),
		})
	}
	return chunks
}

// ChunkAudio splits audio into size-long pieces in dir using up to
// concurrency ffmpeg processes. total is the probed length of the file.
func (b Binaries) ChunkAudio(
	ctx context.Context,
	audioPath string,
	total, size time.Duration,
	dir string,
	concurrency int,
) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", size)
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	ext := filepath.Ext(audioPath)
	base := strings.TrimSuffix(filepath.Base(audioPath), ext)
	plan := PlanChunks(total, size, dir, base, ext)

	var (
		mu       sync.Mutex
		done     []Chunk
		firstErr error
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, concurrency)

	for _, c := range plan {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(c Chunk) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			stop := firstErr != nil || ctx.Err() != nil
			mu.Unlock()
			if stop {
				return
			}

			err := b.run(ctx, ffmpeg.Input(audioPath).
				Output(c.Path, ffmpeg.KwArgs{
					"ss": c.StartTime.Seconds(),
					"t":  (c.EndTime - c.StartTime).Seconds(),
					"c":  "copy",
				}).
				OverWriteOutput())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to create chunk %d: %w", c.Index, err)
				}
				return
			}
			done = append(done, c)
		}(c)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		CleanupChunks(done)
		return nil, err
	}
	if firstErr != nil {
		CleanupChunks(done)
		return nil, firstErr
	}

	slices.SortFunc(done, func(a, b Chunk) int { return a.Index - b.Index })
	return done, nil
}

// CleanupChunks removes chunk files, returning the last failure.
func CleanupChunks(chunks []Chunk) error {
	var lastErr error
	for _, c := range chunks {
		if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
			lastErr = err
		}
	}
	return lastErr
}
