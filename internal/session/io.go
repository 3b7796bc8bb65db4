package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mgpai22/cuesync/internal/media"
	"github.com/mgpai22/cuesync/internal/subtitle"
	"github.com/mgpai22/cuesync/internal/transcribe"
	"github.com/mgpai22/cuesync/internal/translate"
)

// Import appends the cues of a subtitle file. Cues that fail validation are
// skipped with a warning; the count of added captions is returned.
func (s *Session) Import(path string) (int, error) {
	sub, err := subtitle.Open(path)
	if err != nil {
		return 0, err
	}
	return s.addEntries(sub.Entries, "import"), nil
}

func (s *Session) addEntries(entries []subtitle.Entry, source string) int {
	added := 0
	for _, e := range entries {
		_, err := s.AddSeconds(e.Text, e.StartTime.Seconds(), e.EndTime.Seconds())
		if err != nil {
			s.log().Warnw("Skipping cue", "source", source, "index", e.Index, "error", err)
			continue
		}
		added++
	}
	s.log().Infow("Captions added", "source", source, "added", added, "skipped", len(entries)-added)
	return added
}

// Export writes every caption, in start-time order, to w.
func (s *Session) Export(w io.Writer, format subtitle.Format) error {
	enc, err := subtitle.NewEncoder(format)
	if err != nil {
		return err
	}
	sub := subtitle.FromCaptions(s.store.List())
	sub.Format = format
	return enc.Encode(w, sub)
}

func (s *Session) ExportFile(path string, format subtitle.Format) error {
	sub := subtitle.FromCaptions(s.store.List())
	if err := subtitle.WriteFile(path, sub, format); err != nil {
		return err
	}
	s.log().Infow("Captions exported", "path", path, "format", format, "count", len(sub.Entries))
	return nil
}

type DraftOptions struct {
	ChunkSize   time.Duration // audio longer than this is split
	Concurrency int
	Audio       media.AudioOptions
}

// Draft transcribes the loaded media and adds the result as captions.
func (s *Session) Draft(
	ctx context.Context,
	tr transcribe.Transcriber,
	seg *subtitle.Segmenter,
	opts DraftOptions,
) (int, error) {
	m, ok := s.Media()
	if !ok {
		return 0, ErrNoMedia
	}
	if s.tools == nil {
		return 0, ErrNoTools
	}
	if opts.Audio.Format == "" {
		opts.Audio = media.DefaultAudioOptions()
	}

	tmp, err := os.MkdirTemp("", "cuesync-draft-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	logger := s.log()
	audio := filepath.Join(tmp, "audio."+opts.Audio.Format)
	logger.Infow("Extracting audio", "media", m.Path)
	if err := s.tools.ExtractAudio(ctx, m.Path, audio, opts.Audio); err != nil {
		return 0, err
	}

	total := m.Info.Duration
	chunks := []media.Chunk{{Path: audio, StartTime: 0, EndTime: total}}
	if opts.ChunkSize > 0 && total > opts.ChunkSize {
		chunks, err = s.tools.ChunkAudio(ctx, audio, total, opts.ChunkSize, filepath.Join(tmp, "chunks"), opts.Concurrency)
		if err != nil {
			return 0, err
		}
	}

	logger.Infow("Transcribing", "chunks", len(chunks))
	res, err := transcribe.TranscribeChunks(ctx, tr, chunks, opts.Concurrency)
	if err != nil {
		return 0, fmt.Errorf("transcription failed: %w", err)
	}

	if seg == nil {
		seg = subtitle.NewSegmenter()
	}
	return s.addEntries(seg.Split(res.Segments), "draft"), nil
}

// Translate replaces each caption's text with its translation. With overlay
// set the original is kept on a second line beneath the translation.
func (s *Session) Translate(ctx context.Context, tr translate.Translator, overlay bool) (int, error) {
	list := s.store.List()
	if len(list) == 0 {
		return 0, nil
	}

	items := make([]translate.Item, len(list))
	for i, c := range list {
		items[i] = translate.Item{Index: i, Text: c.Text}
	}

	results, err := tr.Translate(ctx, items)
	if err != nil {
		return 0, fmt.Errorf("translation failed: %w", err)
	}

	updated := 0
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(list) {
			continue
		}
		c := list[r.Index]
		text := r.Text
		if overlay {
			text = r.Text + "\n" + c.Text
		}
		if _, err := s.Update(c.ID, text); err != nil {
			s.log().Warnw("Skipping translation", "id", c.ID, "error", err)
			continue
		}
		updated++
	}
	s.log().Infow("Captions translated", "updated", updated, "overlay", overlay)
	return updated, nil
}

// BurnIn renders the captions into a copy of the loaded video at out.
func (s *Session) BurnIn(ctx context.Context, out string, format subtitle.Format) error {
	m, ok := s.Media()
	if !ok {
		return ErrNoMedia
	}
	if !m.Info.HasVideo {
		return ErrNoVideo
	}
	if s.tools == nil {
		return ErrNoTools
	}

	tmp, err := os.MkdirTemp("", "cuesync-burn-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	subs := filepath.Join(tmp, "captions"+subtitle.ExtensionFor(format))
	if err := s.ExportFile(subs, format); err != nil {
		return err
	}
	if err := s.tools.BurnIn(ctx, m.Path, subs, out); err != nil {
		return err
	}
	s.log().Infow("Captions burned in", "output", out)
	return nil
}
