package core

import (
	"sync"
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	return &Time{
		fps: cfg.FramesPerSecond,
		now: time.Now,
	}
}

// Time paces the frame loop and keeps frame-rate accounting
type Time struct {
	mu sync.Mutex

	fps       int
	fpsTicker *time.Ticker
	now       func() time.Time

	start     time.Time
	lastFrame time.Time
	dt        time.Duration
	frames    uint64
	measured  float64
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fps
}

// SetFps changes the frame cap, 0 unlimits it. Takes effect immediately
// when the ticker is running.
func (t *Time) SetFps(fps int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fps = fps
	if t.fpsTicker != nil {
		t.fpsTicker.Reset(interval(fps))
	}
}

// Start resets the accounting and starts the fps ticker
func (t *Time) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fpsTicker != nil {
		t.fpsTicker.Stop()
	}
	t.fpsTicker = time.NewTicker(interval(t.fps))
	t.start = t.now()
	t.lastFrame = t.start
	t.dt = 0
	t.frames = 0
	t.measured = 0
}

// Stop stops the fps ticker
func (t *Time) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fpsTicker != nil {
		t.fpsTicker.Stop()
		t.fpsTicker = nil
	}
}

// NewFrame records the time elapsed since the previous frame
func (t *Time) NewFrame() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.dt = now.Sub(t.lastFrame)
	t.lastFrame = now
	return t.dt
}

// Delta returns the last frame duration
func (t *Time) Delta() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dt
}

// Tick counts the frame and, when capped, blocks until the next tick
func (t *Time) Tick() {
	t.mu.Lock()
	t.frames++
	if elapsed := t.now().Sub(t.start).Seconds(); elapsed > 0 {
		t.measured = float64(t.frames) / elapsed
	}
	ticker := t.fpsTicker
	capped := t.fps > 0
	t.mu.Unlock()

	if ticker != nil && capped {
		<-ticker.C
	}
}

// Frames returns the number of frames ticked since Start
func (t *Time) Frames() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}

// MeasuredFps returns the average frame rate since Start
func (t *Time) MeasuredFps() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.measured
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fpsTicker
}

func interval(fps int) time.Duration {
	if fps <= 0 {
		return time.Nanosecond
	}
	return time.Second / time.Duration(fps)
}
