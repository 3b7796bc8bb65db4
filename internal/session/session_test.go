package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mgpai22/cuesync/internal/caption"
	"github.com/mgpai22/cuesync/internal/media"
	"github.com/mgpai22/cuesync/internal/metrics"
	"github.com/mgpai22/cuesync/internal/playback"
	"github.com/mgpai22/cuesync/internal/subtitle"
	"github.com/mgpai22/cuesync/internal/transcribe"
	"github.com/mgpai22/cuesync/internal/translate"
)

type fakeProber map[string]*media.Info

func (f fakeProber) Probe(ctx context.Context, path string) (*media.Info, error) {
	info, ok := f[path]
	if !ok {
		return nil, errors.New("unsupported media")
	}
	return info, nil
}

type fakeTools struct {
	burned string
	subs   string
}

func (f *fakeTools) ExtractAudio(ctx context.Context, in, out string, opts media.AudioOptions) error {
	return nil
}

func (f *fakeTools) ChunkAudio(ctx context.Context, audioPath string, total, size time.Duration, dir string, concurrency int) ([]media.Chunk, error) {
	return media.PlanChunks(total, size, dir, "audio", ".mp3"), nil
}

func (f *fakeTools) BurnIn(ctx context.Context, in, subs, out string) error {
	data, err := os.ReadFile(subs)
	if err != nil {
		return err
	}
	f.burned, f.subs = out, string(data)
	return nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(ctx context.Context, path string) (*transcribe.Result, error) {
	return &transcribe.Result{Segments: []subtitle.Segment{
		{StartTime: time.Second, EndTime: 3 * time.Second, Text: "heard " + filepath.Base(path)},
	}}, nil
}

type upperTranslator struct{}

func (upperTranslator) Translate(ctx context.Context, items []translate.Item) ([]translate.Result, error) {
	out := make([]translate.Result, len(items))
	for i, it := range items {
		out[i] = translate.Result{Index: it.Index, Text: strings.ToUpper(it.Text)}
	}
	return out, nil
}

func newTestSession(t *testing.T) (*Session, *fakeTools) {
	t.Helper()
	tools := &fakeTools{}
	s := New(Options{
		Prober: fakeProber{
			"talk.mp4":  {Duration: 150 * time.Second, HasVideo: true, HasAudio: true},
			"short.mp4": {Duration: 10 * time.Second, HasVideo: true, HasAudio: true},
			"song.mp3":  {Duration: 30 * time.Second, HasAudio: true},
		},
		Tools:   tools,
		Metrics: metrics.New(),
		Tick:    time.Hour,
	})
	t.Cleanup(s.Close)
	return s, tools
}

func mustAdd(t *testing.T, s *Session, text, start, end string) caption.Caption {
	t.Helper()
	c, err := s.Add(text, start, end)
	if err != nil {
		t.Fatalf("Add(%q, %q, %q): %v", text, start, end, err)
	}
	return c
}

func TestLoadResetsSession(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	if err := s.Load(ctx, "short.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	mustAdd(t, s, "A", "0", "5")
	mustAdd(t, s, "B", "6", "8")
	if err := s.Seek(3); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	before := s.ID()

	if err := s.Load(ctx, "talk.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.Len() != 0 {
		t.Errorf("captions survived reload: %d", s.Len())
	}
	want := playback.State{Duration: 150}
	if st := s.State(); st != want {
		t.Errorf("state = %+v, want %+v", st, want)
	}
	if s.ID() == before {
		t.Error("expected a new session ID")
	}
	m, ok := s.Media()
	if !ok || m.Name != "talk.mp4" {
		t.Errorf("media = %+v, %v", m, ok)
	}
}

func TestFailedLoadKeepsSession(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	if err := s.Load(ctx, "short.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	mustAdd(t, s, "A", "0", "5")
	id := s.ID()

	if err := s.Load(ctx, "broken.avi"); err == nil {
		t.Fatal("expected load error")
	}
	if s.Len() != 1 || s.ID() != id {
		t.Errorf("failed load changed session: len=%d id changed=%v", s.Len(), s.ID() != id)
	}
	if m, _ := s.Media(); m.Name != "short.mp4" {
		t.Errorf("media = %q", m.Name)
	}
	if s.State().Duration != 10 {
		t.Errorf("duration = %v", s.State().Duration)
	}
}

func TestMutationsRefreshActiveCaption(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.Load(context.Background(), "short.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Seek(2); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	c := mustAdd(t, s, "hello", "1", "4")
	if a := s.State().Active; a == nil || a.ID != c.ID {
		t.Fatalf("expected %s active after add, got %+v", c.ID, a)
	}

	if _, err := s.Update(c.ID, "changed"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if a := s.State().Active; a == nil || a.Text != "changed" {
		t.Errorf("active not refreshed after update: %+v", a)
	}

	s.Remove(c.ID)
	if a := s.State().Active; a != nil {
		t.Errorf("expected no active caption after remove, got %+v", a)
	}
}

func TestPlayWithoutMediaFails(t *testing.T) {
	s, _ := newTestSession(t)

	err := s.Play(context.Background())
	var terr *playback.TransportError
	if !errors.As(err, &terr) || !errors.Is(err, media.ErrUnknownDuration) {
		t.Fatalf("expected transport error wrapping ErrUnknownDuration, got %v", err)
	}
	if s.State().IsPlaying {
		t.Error("transport should stay paused")
	}
}

func TestToggleAndJump(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	if err := s.Load(ctx, "short.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := mustAdd(t, s, "B", "6.5", "8")

	if err := s.Toggle(ctx); err != nil || !s.State().IsPlaying {
		t.Fatalf("toggle to play: %v, playing=%v", err, s.State().IsPlaying)
	}
	if err := s.Toggle(ctx); err != nil || s.State().IsPlaying {
		t.Fatalf("toggle to pause: %v, playing=%v", err, s.State().IsPlaying)
	}

	if err := s.JumpTo(c.ID); err != nil {
		t.Fatalf("JumpTo: %v", err)
	}
	if st := s.State(); st.CurrentTime != 6.5 || st.Active == nil {
		t.Errorf("after jump: %+v", st)
	}
	if s.Mark() != 6.5 {
		t.Errorf("Mark() = %v", s.Mark())
	}
	if err := s.JumpTo("missing"); !errors.Is(err, caption.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSeekStaysWithinMedia(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.Load(context.Background(), "short.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	last := mustAdd(t, s, "last", "9", "10")

	if err := s.Seek(1000); err != nil {
		t.Fatalf("Seek(1000): %v", err)
	}
	st := s.State()
	if st.CurrentTime != 10 {
		t.Errorf("Seek(1000): CurrentTime = %v, want 10", st.CurrentTime)
	}
	if st.Active == nil || st.Active.ID != last.ID {
		t.Errorf("Seek(1000): expected final caption active, got %+v", st.Active)
	}
	if s.Mark() != 10 {
		t.Errorf("Mark() = %v, want 10", s.Mark())
	}

	if err := s.Seek(-5); err != nil {
		t.Fatalf("Seek(-5): %v", err)
	}
	if st := s.State(); st.CurrentTime != 0 || st.Active != nil {
		t.Errorf("Seek(-5): %+v", st)
	}
}

func TestImportSkipsInvalidCues(t *testing.T) {
	s, _ := newTestSession(t)
	path := filepath.Join(t.TempDir(), "in.srt")
	content := "1\n00:00:01,000 --> 00:00:02,000\nfirst\n\n" +
		"2\n00:00:05,000 --> 00:00:04,000\nbackwards\n\n" +
		"3\n00:00:03,000 --> 00:00:04,500\nsecond\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := s.Import(path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 || s.Len() != 2 {
		t.Errorf("imported %d, len %d, want 2", n, s.Len())
	}
}

func TestExportSRT(t *testing.T) {
	s, _ := newTestSession(t)
	mustAdd(t, s, "second", "3", "4")
	mustAdd(t, s, "first", "1.5", "2")

	var buf bytes.Buffer
	if err := s.Export(&buf, subtitle.FormatSRT); err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := "1\n00:00:01,500 --> 00:00:02,000\nfirst\n\n2\n00:00:03,000 --> 00:00:04,000\nsecond\n\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestDraftChunksLongMedia(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	if err := s.Load(ctx, "talk.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	n, err := s.Draft(ctx, fakeTranscriber{}, nil, DraftOptions{ChunkSize: time.Minute, Concurrency: 2})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if n != 3 {
		t.Fatalf("drafted %d captions, want 3", n)
	}

	list := s.List()
	for i, want := range []float64{1, 61, 121} {
		if list[i].StartTime != want {
			t.Errorf("caption %d starts at %v, want %v", i, list[i].StartTime, want)
		}
	}
	if list[1].Text != "heard audio_chunk_001.mp3" {
		t.Errorf("caption 1 text = %q", list[1].Text)
	}
}

func TestDraftSingleChunk(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	if err := s.Load(ctx, "short.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	n, err := s.Draft(ctx, fakeTranscriber{}, subtitle.NewSegmenter(), DraftOptions{ChunkSize: time.Minute})
	if err != nil || n != 1 {
		t.Fatalf("Draft = %d, %v", n, err)
	}
	if got := s.List()[0].Text; got != "heard audio.mp3" {
		t.Errorf("text = %q", got)
	}
}

func TestDraftWithoutMedia(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.Draft(context.Background(), fakeTranscriber{}, nil, DraftOptions{}); !errors.Is(err, ErrNoMedia) {
		t.Errorf("expected ErrNoMedia, got %v", err)
	}
}

func TestTranslateOverlay(t *testing.T) {
	tests := []struct {
		overlay bool
		want    string
	}{
		{false, "HOLA"},
		{true, "HOLA\nhola"},
	}

	for _, tt := range tests {
		s, _ := newTestSession(t)
		c := mustAdd(t, s, "hola", "0", "1")

		n, err := s.Translate(context.Background(), upperTranslator{}, tt.overlay)
		if err != nil || n != 1 {
			t.Fatalf("Translate = %d, %v", n, err)
		}
		got, _ := s.Get(c.ID)
		if got.Text != tt.want {
			t.Errorf("overlay=%v: text %q, want %q", tt.overlay, got.Text, tt.want)
		}
	}
}

func TestBurnIn(t *testing.T) {
	s, tools := newTestSession(t)
	ctx := context.Background()

	if err := s.BurnIn(ctx, "out.mp4", subtitle.FormatASS); !errors.Is(err, ErrNoMedia) {
		t.Errorf("expected ErrNoMedia, got %v", err)
	}

	if err := s.Load(ctx, "song.mp3"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.BurnIn(ctx, "out.mp4", subtitle.FormatASS); !errors.Is(err, ErrNoVideo) {
		t.Errorf("expected ErrNoVideo, got %v", err)
	}

	if err := s.Load(ctx, "short.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	mustAdd(t, s, "burned", "0", "2")
	if err := s.BurnIn(ctx, "out.mp4", subtitle.FormatASS); err != nil {
		t.Fatalf("BurnIn: %v", err)
	}
	if tools.burned != "out.mp4" || !strings.Contains(tools.subs, "Dialogue: 0,0:00:00.00,0:00:02.00") {
		t.Errorf("burn-in got output %q subs %q", tools.burned, tools.subs)
	}
}
