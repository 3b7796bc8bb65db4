package transcribe

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mgpai22/cuesync/internal/media"
	"github.com/mgpai22/cuesync/internal/subtitle"
)

// transcription result
type Result struct {
	Segments []subtitle.Segment
	Language string
	Duration time.Duration
}

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported transcription provider %q: use gemini or openai", s)
	}
}

// transcription options
type Options struct {
	Language           string // source language of the audio
	TranscriptLanguage string // output language, "native" keeps the source
	Model              string
	Prompt             string
}

// creates transcriber based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Transcriber, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type chunkResult struct {
	index    int
	segments []subtitle.Segment
	language string
	err      error
}

// TranscribeChunks runs t over chunks with up to concurrency workers and
// merges the segments in chunk order, shifted by each chunk's offset. The
// first failure cancels the remaining work.
func TranscribeChunks(
	ctx context.Context,
	t Transcriber,
	chunks []media.Chunk,
	concurrency int,
) (*Result, error) {
	if len(chunks) == 0 {
		return &Result{}, nil
	}
	if concurrency <= 0 {
		concurrency = 3
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan media.Chunk)
	results := make(chan chunkResult, len(chunks))

	var wg sync.WaitGroup
	for range min(concurrency, len(chunks)) {
		wg.Go(func() {
			for chunk := range work {
				if ctx.Err() != nil {
					return
				}
				res, err := t.Transcribe(ctx, chunk.Path)
				if err != nil {
					cancel()
					results <- chunkResult{index: chunk.Index, err: err}
					continue
				}
				shifted := make([]subtitle.Segment, len(res.Segments))
				for i, seg := range res.Segments {
					shifted[i] = subtitle.Segment{
						StartTime: seg.StartTime + chunk.StartTime,
						EndTime:   seg.EndTime + chunk.StartTime,
						Text:      seg.Text,
					}
				}
				results <- chunkResult{index: chunk.Index, segments: shifted, language: res.Language}
			}
		})
	}

	go func() {
		defer close(work)
		for _, chunk := range chunks {
			select {
			case <-ctx.Done():
				return
			case work <- chunk:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		collected []chunkResult
		firstErr  error
	)
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("chunk %d failed: %w", r.index, r.err)
			}
			continue
		}
		collected = append(collected, r)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil && len(collected) < len(chunks) {
		return nil, err
	}

	slices.SortFunc(collected, func(a, b chunkResult) int { return a.index - b.index })

	out := &Result{Duration: chunks[len(chunks)-1].EndTime}
	for _, r := range collected {
		out.Segments = append(out.Segments, r.segments...)
		if out.Language == "" {
			out.Language = r.language
		}
	}
	return out, nil
}
