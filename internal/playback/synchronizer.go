package playback

import (
	"context"
	"math"
	"sync"

	"github.com/mgpai22/cuesync/internal/caption"
)

// Synchronizer tracks an external clock and resolves the active caption on
// every position change. Calls into the Source are made without holding the
// lock so a source may report back synchronously.
type Synchronizer struct {
	captions Captions
	source   Source

	mu        sync.Mutex
	state     State
	pending   bool
	epoch     uint64 // bumped by Reset; stale transport results are dropped
	updates   uint64 // time updates seen, so a seek can tell it was confirmed
	listeners map[int]func(State)
	nextSub   int
}

func NewSynchronizer(captions Captions, source Source) *Synchronizer {
	return &Synchronizer{
		captions:  captions,
		source:    source,
		listeners: make(map[int]func(State)),
	}
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// OnTimeUpdate records a new clock position and recomputes the active caption.
// Jumps in either direction are accepted.
func (s *Synchronizer) OnTimeUpdate(t float64) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return
	}
	s.mu.Lock()
	s.updates++
	s.state.CurrentTime = t
	s.resolve()
	st := s.snapshot()
	s.mu.Unlock()

	s.notify(st)
}

// OnDurationKnown records d when it is finite and not negative, and reports
// whether it was accepted.
func (s *Synchronizer) OnDurationKnown(d float64) bool {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return false
	}
	s.mu.Lock()
	s.state.Duration = d
	st := s.snapshot()
	s.mu.Unlock()

	s.notify(st)
	return true
}

func (s *Synchronizer) OnPlayStateChanged(playing bool) {
	s.setPlaying(playing)
}

// end of media
func (s *Synchronizer) OnEnded() {
	s.setPlaying(false)
}

// Refresh re-resolves the active caption at the current position, for use
// after the caption set changed.
func (s *Synchronizer) Refresh() {
	s.mu.Lock()
	s.resolve()
	st := s.snapshot()
	s.mu.Unlock()

	s.notify(st)
}

// RequestSeek forwards a seek to the source. When the source has not
// reported a position by the time Seek returns, CurrentTime moves to t,
// clamped to [0, Duration], without waiting for it. A position the source
// did report always wins.
func (s *Synchronizer) RequestSeek(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return &caption.ValidationError{Field: "time", Err: caption.ErrInvalidTime}
	}
	if s.source == nil {
		return ErrNoSource
	}

	s.mu.Lock()
	epoch, seen := s.epoch, s.updates
	s.mu.Unlock()

	if err := s.source.Seek(t); err != nil {
		return &TransportError{Op: "seek", Err: err}
	}

	s.mu.Lock()
	if s.epoch != epoch || s.updates != seen {
		s.mu.Unlock()
		return nil
	}
	t = max(t, 0)
	if s.state.Duration > 0 {
		t = min(t, s.state.Duration)
	}
	s.updates++
	s.state.CurrentTime = t
	s.resolve()
	st := s.snapshot()
	s.mu.Unlock()

	s.notify(st)
	return nil
}

// JumpTo seeks to the start of the given caption.
func (s *Synchronizer) JumpTo(id caption.ID) error {
	c, ok := s.captions.Get(id)
	if !ok {
		return &caption.NotFoundError{ID: id}
	}
	return s.RequestSeek(c.StartTime)
}

// Play asks the source to start. IsPlaying only becomes true once the source
// confirms; a refusal leaves the transport paused and is returned as a
// *TransportError. Intents issued while a play is outstanding are rejected
// with ErrTransportBusy.
func (s *Synchronizer) Play(ctx context.Context) error {
	if s.source == nil {
		return ErrNoSource
	}
	epoch, err := s.begin()
	if err != nil {
		return err
	}

	err = s.source.Play(ctx)

	s.mu.Lock()
	if s.epoch != epoch {
		// a Reset ran while the source was starting; undo a late start
		undo := err == nil && !s.state.IsPlaying && !s.pending
		s.mu.Unlock()
		if undo {
			_ = s.source.Pause()
		}
		return &TransportError{Op: "play", Err: ErrInterrupted}
	}
	s.pending = false
	s.state.IsPlaying = err == nil
	st := s.snapshot()
	s.mu.Unlock()

	s.notify(st)
	if err != nil {
		return &TransportError{Op: "play", Err: err}
	}
	return nil
}

func (s *Synchronizer) Pause() error {
	if s.source == nil {
		return ErrNoSource
	}
	epoch, err := s.begin()
	if err != nil {
		return err
	}

	err = s.source.Pause()

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return &TransportError{Op: "pause", Err: ErrInterrupted}
	}
	s.pending = false
	if err == nil {
		s.state.IsPlaying = false
	}
	st := s.snapshot()
	s.mu.Unlock()

	s.notify(st)
	if err != nil {
		return &TransportError{Op: "pause", Err: err}
	}
	return nil
}

// Toggle pauses when playing and plays otherwise.
func (s *Synchronizer) Toggle(ctx context.Context) error {
	if s.State().IsPlaying {
		return s.Pause()
	}
	return s.Play(ctx)
}

// MarkBoundary returns the current position rounded to one decimal place,
// suitable for pre-filling a caption's start or end time.
func (s *Synchronizer) MarkBoundary() float64 {
	s.mu.Lock()
	t := s.state.CurrentTime
	s.mu.Unlock()
	return math.Round(t*10) / 10
}

// Reset returns to the initial state used when a new media resource loads.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.state = State{}
	s.pending = false
	s.epoch++
	st := s.snapshot()
	s.mu.Unlock()

	s.notify(st)
}

// Subscribe registers fn to receive a snapshot after every state change. The
// returned func removes the subscription.
func (s *Synchronizer) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Synchronizer) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return 0, ErrTransportBusy
	}
	s.pending = true
	return s.epoch, nil
}

func (s *Synchronizer) setPlaying(playing bool) {
	s.mu.Lock()
	s.state.IsPlaying = playing
	st := s.snapshot()
	s.mu.Unlock()

	s.notify(st)
}

// caller holds s.mu
func (s *Synchronizer) resolve() {
	if s.captions == nil {
		s.state.Active = nil
		return
	}
	if c, ok := s.captions.ActiveAt(s.state.CurrentTime); ok {
		s.state.Active = &c
		return
	}
	s.state.Active = nil
}

// caller holds s.mu
func (s *Synchronizer) snapshot() State {
	st := s.state
	if st.Active != nil {
		c := *st.Active
		st.Active = &c
	}
	return st
}

func (s *Synchronizer) notify(st State) {
	s.mu.Lock()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
