package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mgpai22/cuesync/internal/caption"
	"github.com/mgpai22/cuesync/internal/logging"
	"github.com/mgpai22/cuesync/internal/media"
	"github.com/mgpai22/cuesync/internal/metrics"
	"github.com/mgpai22/cuesync/internal/playback"
)

var (
	ErrNoMedia = errors.New("no media loaded")
	ErrNoVideo = errors.New("loaded media has no video stream")
	ErrNoTools = errors.New("ffmpeg tools not configured")
)

// Prober inspects a media resource before it is loaded.
type Prober interface {
	Probe(ctx context.Context, path string) (*media.Info, error)
}

// Tools runs the ffmpeg jobs behind drafting and burn-in. media.Binaries
// satisfies it.
type Tools interface {
	ExtractAudio(ctx context.Context, in, out string, opts media.AudioOptions) error
	ChunkAudio(ctx context.Context, audioPath string, total, size time.Duration, dir string, concurrency int) ([]media.Chunk, error)
	BurnIn(ctx context.Context, in, subs, out string) error
}

// MediaInfo describes the loaded resource.
type MediaInfo struct {
	Path string
	Name string
	Info *media.Info
}

type Options struct {
	Prober  Prober
	Tools   Tools
	Logger  *logging.Logger
	Metrics *metrics.Metrics
	Tick    time.Duration
	Rate    float64
}

// Session is one editing session: a caption collection bound to a media
// resource and its playback clock. Loading new media starts a new session.
type Session struct {
	store   *caption.Store
	player  *playback.Synchronizer
	clock   *media.Clock
	prober  Prober
	tools   Tools
	base    *logging.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	logger *logging.Logger
	id     string
	media  *MediaInfo
}

func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	store := caption.NewStore()
	clock := media.NewClock(opts.Tick, opts.Rate)
	syn := playback.NewSynchronizer(store, clock)
	clock.SetListener(syn)

	s := &Session{
		store:   store,
		player:  syn,
		clock:   clock,
		prober:  opts.Prober,
		tools:   opts.Tools,
		base:    logger,
		metrics: opts.Metrics,
		id:      uuid.NewString(),
	}
	s.logger = logger.With("session", s.id)
	return s
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Media returns the loaded resource, if any.
func (s *Session) Media() (MediaInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.media == nil {
		return MediaInfo{}, false
	}
	return *s.media, true
}

// Load probes path and, on success, replaces the session: captions are
// cleared, the clock and transport return to zero, and the probed duration
// is reported. A failed probe leaves everything as it was.
func (s *Session) Load(ctx context.Context, path string) error {
	if s.prober == nil {
		return fmt.Errorf("load %s: no prober configured", path)
	}

	info, err := s.prober.Probe(ctx, path)
	s.metrics.ObserveMediaLoad(err)
	if err != nil {
		s.log().Warnw("Media load failed", "path", path, "error", err)
		return fmt.Errorf("load %s: %w", path, err)
	}

	s.clock.Reset()
	s.store.Clear()
	s.player.Reset()

	s.mu.Lock()
	s.id = uuid.NewString()
	s.media = &MediaInfo{Path: path, Name: filepath.Base(path), Info: info}
	s.logger = s.base.With("session", s.id)
	logger := s.logger
	s.mu.Unlock()

	s.clock.SetDuration(info.Seconds())
	if !s.player.OnDurationKnown(info.Seconds()) {
		logger.Warnw("Ignoring invalid media duration", "duration", info.Seconds())
	}
	s.metrics.SetCaptions(0)

	logger.Infow("Media loaded",
		"path", path,
		"duration", info.Duration,
		"video", info.HasVideo,
		"audio", info.HasAudio,
	)
	return nil
}

func (s *Session) log() *logging.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}

// Close stops the playback clock.
func (s *Session) Close() {
	s.clock.Close()
}

func (s *Session) List() []caption.Caption {
	return s.store.List()
}

func (s *Session) Get(id caption.ID) (caption.Caption, bool) {
	return s.store.Get(id)
}

func (s *Session) Len() int {
	return s.store.Len()
}

// Add parses and inserts a caption from textual input.
func (s *Session) Add(text, start, end string) (caption.Caption, error) {
	c, err := s.store.Add(text, start, end)
	return s.afterAdd(c, err)
}

func (s *Session) AddSeconds(text string, start, end float64) (caption.Caption, error) {
	c, err := s.store.AddSeconds(text, start, end)
	return s.afterAdd(c, err)
}

func (s *Session) afterAdd(c caption.Caption, err error) (caption.Caption, error) {
	s.metrics.ObserveCaptionOp("add", err)
	if err != nil {
		s.log().Debugw("Caption rejected", "error", err)
		return caption.Caption{}, err
	}
	s.changed()
	s.log().Debugw("Caption added", "id", c.ID, "start", c.StartTime, "end", c.EndTime)
	return c, nil
}

func (s *Session) Update(id caption.ID, text string) (caption.Caption, error) {
	c, err := s.store.Update(id, text)
	s.metrics.ObserveCaptionOp("update", err)
	if err != nil {
		return caption.Caption{}, err
	}
	s.changed()
	s.log().Debugw("Caption updated", "id", id)
	return c, nil
}

// Remove deletes a caption; unknown IDs are ignored.
func (s *Session) Remove(id caption.ID) {
	s.store.Remove(id)
	s.metrics.ObserveCaptionOp("remove", nil)
	s.changed()
	s.log().Debugw("Caption removed", "id", id)
}

func (s *Session) changed() {
	s.player.Refresh()
	s.metrics.SetCaptions(s.store.Len())
}

func (s *Session) State() playback.State {
	return s.player.State()
}

func (s *Session) Subscribe(fn func(playback.State)) (cancel func()) {
	return s.player.Subscribe(fn)
}

func (s *Session) Play(ctx context.Context) error {
	err := s.player.Play(ctx)
	s.observeTransport("play", err)
	return err
}

func (s *Session) Pause() error {
	err := s.player.Pause()
	s.observeTransport("pause", err)
	return err
}

// Toggle pauses when playing and plays otherwise.
func (s *Session) Toggle(ctx context.Context) error {
	if s.player.State().IsPlaying {
		return s.Pause()
	}
	return s.Play(ctx)
}

func (s *Session) Seek(t float64) error {
	err := s.player.RequestSeek(t)
	s.observeTransport("seek", err)
	return err
}

func (s *Session) JumpTo(id caption.ID) error {
	err := s.player.JumpTo(id)
	if !errors.Is(err, caption.ErrNotFound) {
		s.observeTransport("seek", err)
	}
	return err
}

// Mark returns the current position rounded for use as a caption boundary.
func (s *Session) Mark() float64 {
	return s.player.MarkBoundary()
}

func (s *Session) observeTransport(op string, err error) {
	s.metrics.ObserveTransport(op, err)
	if err != nil {
		s.log().Debugw("Transport request failed", "op", op, "error", err)
	}
}
