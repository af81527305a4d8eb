package audio

import (
	"errors"
	"time"

	"github.com/devblok/tessera/core"
)

// fakeBackend opens at most outs/ins device channels and runs a block
// whenever the test asks for one.
type fakeBackend struct {
	outs, ins int
	openErr   error

	opened  []StreamConfig
	cfg     StreamConfig
	process ProcessFunc
	open    bool
	started bool
	closes  int
}

func (f *fakeBackend) Devices() ([]Device, error) {
	return []Device{{Name: "fake", ChannelsOutMax: f.outs, ChannelsInMax: f.ins, DefaultRate: 44100}}, nil
}

func (f *fakeBackend) Open(cfg StreamConfig, process ProcessFunc) (StreamConfig, error) {
	if f.openErr != nil {
		return StreamConfig{}, f.openErr
	}
	if f.open {
		return StreamConfig{}, errors.New("already open")
	}
	f.opened = append(f.opened, cfg)
	got := cfg
	if got.OutChannels < 0 || got.OutChannels > f.outs {
		got.OutChannels = f.outs
	}
	if got.InChannels < 0 || got.InChannels > f.ins {
		got.InChannels = f.ins
	}
	f.cfg, f.process, f.open = got, process, true
	return got, nil
}

func (f *fakeBackend) Close() error {
	f.open, f.started = false, false
	f.closes++
	return nil
}

func (f *fakeBackend) Start() error {
	if !f.open {
		return ErrNotOpen
	}
	f.started = true
	return nil
}

func (f *fakeBackend) Stop() error {
	f.started = false
	return nil
}

// block runs one block with the given interleaved input and returns the
// interleaved output.
func (f *fakeBackend) block(in []float32) []float32 {
	if in == nil {
		in = make([]float32, f.cfg.FramesPerBuffer*f.cfg.InChannels)
	}
	out := make([]float32, f.cfg.FramesPerBuffer*f.cfg.OutChannels)
	f.process(in, out)
	return out
}

func testConfiguration() core.AudioConfiguration {
	return core.AudioConfiguration{
		Enabled:         true,
		FramesPerSecond: 100,
		FramesPerBuffer: 4,
		OutputChannels:  2,
		Gain:            1,
	}
}

// stepClock advances by step on every reading.
func stepClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}
