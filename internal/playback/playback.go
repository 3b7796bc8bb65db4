package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/mgpai22/cuesync/internal/caption"
)

var (
	// returned when a transport intent arrives while a play request is outstanding
	ErrTransportBusy = errors.New("transport request already in progress")
	ErrNoSource      = errors.New("no media source attached")
	// a Reset (new media) arrived before the source answered
	ErrInterrupted = errors.New("transport request interrupted by reset")
)

// play/pause request the media source did not honour
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// derived playback state; Active is nil when no caption covers CurrentTime
type State struct {
	CurrentTime float64          `json:"currentTime"`
	Duration    float64          `json:"duration"`
	IsPlaying   bool             `json:"isPlaying"`
	Active      *caption.Caption `json:"activeCaption"`
}

// caption lookups the synchronizer needs; *caption.Store satisfies it
type Captions interface {
	ActiveAt(t float64) (caption.Caption, bool)
	Get(id caption.ID) (caption.Caption, bool)
}

// external media clock. Implementations report position changes back through
// the Synchronizer's On* callbacks.
type Source interface {
	Play(ctx context.Context) error
	Pause() error
	Seek(t float64) error
}
