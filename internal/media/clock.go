package media

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

var ErrUnknownDuration = errors.New("media duration unknown")

// Listener receives clock reports. Reports are serialized and may come from
// the clock goroutine; a Listener must not call back into the Clock.
type Listener interface {
	OnTimeUpdate(t float64)
	OnEnded()
}

// Clock stands in for a media element: it advances a position in real time
// scaled by Rate while playing and reports it to a Listener every Tick.
type Clock struct {
	tick time.Duration
	rate float64

	report sync.Mutex // held while a report is delivered; taken before mu

	mu       sync.Mutex
	listener Listener
	pos      float64
	duration float64
	playing  bool
	gen      uint64
	epoch    uint64 // bumped by Seek and Reset; older tick reports are dropped
	stop     chan struct{}
}

func NewClock(tick time.Duration, rate float64) *Clock {
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 1
	}
	return &Clock{tick: tick, rate: rate}
}

func (c *Clock) SetListener(l Listener) {
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
}

// SetDuration sets the media length in seconds.
func (c *Clock) SetDuration(d float64) {
	c.mu.Lock()
	c.duration = d
	c.mu.Unlock()
}

func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Play starts advancing. It fails while the duration is unknown. Playing
// from the end restarts at zero.
func (c *Clock) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.duration <= 0 {
		return ErrUnknownDuration
	}
	if c.playing {
		return nil
	}
	if c.pos >= c.duration {
		c.pos = 0
	}
	c.playing = true
	c.gen++
	c.stop = make(chan struct{})
	go c.run(c.gen, c.stop)
	return nil
}

func (c *Clock) Pause() error {
	c.mu.Lock()
	c.halt()
	c.mu.Unlock()
	return nil
}

// Seek moves the position, clamped to [0, duration], and confirms it with
// an immediate time update.
func (c *Clock) Seek(t float64) error {
	c.report.Lock()
	defer c.report.Unlock()

	c.mu.Lock()
	t = max(t, 0)
	if c.duration > 0 {
		t = min(t, c.duration)
	}
	c.pos = t
	c.epoch++
	l := c.listener
	c.mu.Unlock()

	if l != nil {
		l.OnTimeUpdate(t)
	}
	return nil
}

// Reset stops the clock and forgets position and duration. Once it returns
// no report from before the reset will be delivered.
func (c *Clock) Reset() {
	c.report.Lock()
	defer c.report.Unlock()

	c.mu.Lock()
	c.halt()
	c.pos = 0
	c.duration = 0
	c.epoch++
	c.mu.Unlock()
}

// Close stops the clock goroutine.
func (c *Clock) Close() {
	_ = c.Pause()
}

// caller holds c.mu
func (c *Clock) halt() {
	if !c.playing {
		return
	}
	c.playing = false
	c.gen++
	close(c.stop)
	c.stop = nil
}

func (c *Clock) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.pos += now.Sub(last).Seconds() * c.rate
			last = now

			ended := c.pos >= c.duration
			if ended {
				c.pos = c.duration
				c.halt()
			}
			pos, epoch := c.pos, c.epoch
			c.mu.Unlock()

			c.deliver(epoch, pos, ended)
			if ended {
				return
			}
		}
	}
}

// deliver reports a tick unless a Seek or Reset happened since it was taken.
func (c *Clock) deliver(epoch uint64, pos float64, ended bool) {
	c.report.Lock()
	defer c.report.Unlock()

	c.mu.Lock()
	stale := c.epoch != epoch
	l := c.listener
	c.mu.Unlock()

	if stale || l == nil {
		return
	}
	l.OnTimeUpdate(pos)
	if ended {
		l.OnEnded()
	}
}
