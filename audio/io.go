package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
)

// Callback processes one block of audio.
type Callback interface {
	OnAudio(b *Buffer)
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(b *Buffer)

// OnAudio implements Callback
func (f CallbackFunc) OnAudio(b *Buffer) { f(b) }

// Observer is told about processed blocks, used for telemetry.
type Observer interface {
	BlockProcessed(frames int, cpu float64)
}

type nopObserver struct{}

func (nopObserver) BlockProcessed(int, float64) {}

// NewAudioIO creates an AudioIO over backend, configured by cfg.
func NewAudioIO(backend Backend, cfg core.AudioConfiguration, log logrus.FieldLogger) *AudioIO {
	if log == nil {
		log = core.NopLogger()
	}
	io := &AudioIO{
		backend:  backend,
		device:   cfg.Device,
		rate:     cfg.FramesPerSecond,
		block:    cfg.FramesPerBuffer,
		outs:     cfg.OutputChannels,
		ins:      cfg.InputChannels,
		clip:     cfg.ClipOutput,
		zeroNaNs: cfg.ZeroNaNs,
		autoZero: cfg.AutoZeroOutput,
		gain:     cfg.Gain,
		observer: nopObserver{},
		now:      time.Now,
		log:      log.WithField("component", "audio.io"),
	}
	io.buffer = NewBuffer(io.block, max(io.outs, 0), max(io.ins, 0), 0, io.rate)
	return io
}

// AudioIO streams audio between a Backend and a list of callbacks. It
// requests as many channels as the device has, any more are virtual:
// virtual inputs repeat the device inputs, virtual outputs are summed into
// the device outputs. Outputs can be scrubbed of NaNs, scaled by a gain and
// clipped to [-1, 1].
type AudioIO struct {
	backend Backend

	// ctl serializes device control, mu guards the fields below. Backend
	// calls are made holding ctl only, the stream goroutine takes mu.
	ctl       sync.Mutex
	mu        sync.Mutex
	device    string
	rate      float64
	block     int
	outs      int
	ins       int
	devOuts   int
	devIns    int
	clip      bool
	zeroNaNs  bool
	autoZero  bool
	gain      float64
	open      bool
	running   bool
	buffer    *Buffer
	callbacks []Callback
	frames    uint64
	cpu       float64
	observer  Observer
	now       func() time.Time

	log logrus.FieldLogger
}

// Append adds cb after the existing callbacks.
func (a *AudioIO) Append(cb Callback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, cb)
}

// Prepend adds cb before the existing callbacks.
func (a *AudioIO) Prepend(cb Callback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append([]Callback{cb}, a.callbacks...)
}

// SetObserver installs o, nil removes it.
func (a *AudioIO) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observer = o
}

// Devices lists the devices of the backend.
func (a *AudioIO) Devices() ([]Device, error) {
	return a.backend.Devices()
}

// SetDevice selects the device by name, empty is the default device.
// An open stream is reopened.
func (a *AudioIO) SetDevice(name string) error {
	a.mu.Lock()
	a.device = name
	a.mu.Unlock()
	return a.reopen()
}

// Configure sets the stream format. A negative channel count asks for every
// channel the device has. An open stream is reopened.
func (a *AudioIO) Configure(rate float64, block, outs, ins int) error {
	if block <= 0 || rate <= 0 {
		return fmt.Errorf("audio: invalid format %v Hz, %d frames", rate, block)
	}
	a.mu.Lock()
	a.rate, a.block, a.outs, a.ins = rate, block, outs, ins
	a.buffer = NewBuffer(block, max(outs, 0), max(ins, 0), a.buffer.ChannelsBus(), rate)
	a.mu.Unlock()
	return a.reopen()
}

// SetBusChannels sets the number of bus channels.
func (a *AudioIO) SetBusChannels(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := a.buffer
	a.buffer = NewBuffer(b.Frames(), b.ChannelsOut(), b.ChannelsIn(), n, b.FramesPerSecond())
}

// SetClipOut sets whether outputs are clipped to [-1, 1].
func (a *AudioIO) SetClipOut(on bool) { a.with(func() { a.clip = on }) }

// SetZeroNaNs sets whether NaNs in the output are replaced by silence.
func (a *AudioIO) SetZeroNaNs(on bool) { a.with(func() { a.zeroNaNs = on }) }

// SetAutoZeroOut sets whether outputs are silenced before every block.
func (a *AudioIO) SetAutoZeroOut(on bool) { a.with(func() { a.autoZero = on }) }

// SetGain sets the gain applied to the outputs.
func (a *AudioIO) SetGain(g float64) { a.with(func() { a.gain = g }) }

// Gain returns the output gain.
func (a *AudioIO) Gain() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gain
}

func (a *AudioIO) with(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn()
}

// Open opens the device. Channel counts the device cannot satisfy are
// made up with virtual channels.
func (a *AudioIO) Open() error {
	a.ctl.Lock()
	defer a.ctl.Unlock()
	return a.openDevice()
}

func (a *AudioIO) openDevice() error {
	a.mu.Lock()
	if a.open {
		a.mu.Unlock()
		return nil
	}
	want := StreamConfig{
		Device:          a.device,
		FramesPerSecond: a.rate,
		FramesPerBuffer: a.block,
		OutChannels:     a.outs,
		InChannels:      a.ins,
	}
	a.mu.Unlock()

	got, err := a.backend.Open(want, a.process)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDeviceOpen, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.devOuts, a.devIns = got.OutChannels, got.InChannels
	if a.outs < 0 {
		a.outs = a.devOuts
	}
	if a.ins < 0 {
		a.ins = a.devIns
	}
	if got.FramesPerSecond > 0 {
		a.rate = got.FramesPerSecond
	}
	if got.FramesPerBuffer > 0 {
		a.block = got.FramesPerBuffer
	}
	a.buffer = NewBuffer(a.block, a.outs, a.ins, a.buffer.ChannelsBus(), a.rate)
	a.open = true

	a.log.WithFields(logrus.Fields{
		"rate":    a.rate,
		"block":   a.block,
		"outputs": fmt.Sprintf("%d/%d", a.outs, a.devOuts),
		"inputs":  fmt.Sprintf("%d/%d", a.ins, a.devIns),
	}).Info("audio device open")
	return nil
}

// Close stops and closes the device.
func (a *AudioIO) Close() error {
	a.ctl.Lock()
	defer a.ctl.Unlock()
	return a.closeDevice()
}

func (a *AudioIO) closeDevice() error {
	if !a.IsOpen() {
		return nil
	}
	err := a.stopStream()
	if cerr := a.backend.Close(); cerr != nil && err == nil {
		err = cerr
	}
	a.with(func() { a.open = false })
	return err
}

// Start starts streaming, opening the device if needed.
func (a *AudioIO) Start() error {
	a.ctl.Lock()
	defer a.ctl.Unlock()
	if a.IsRunning() {
		return nil
	}
	if err := a.openDevice(); err != nil {
		return err
	}
	return a.startStream()
}

func (a *AudioIO) startStream() error {
	a.with(func() { a.frames = 0 })
	if err := a.backend.Start(); err != nil {
		return err
	}
	a.with(func() { a.running = true })
	return nil
}

// Stop stops streaming, the device stays open.
func (a *AudioIO) Stop() error {
	a.ctl.Lock()
	defer a.ctl.Unlock()
	return a.stopStream()
}

func (a *AudioIO) stopStream() error {
	if !a.IsRunning() {
		return nil
	}
	a.with(func() { a.running = false })
	return a.backend.Stop()
}

func (a *AudioIO) reopen() error {
	a.ctl.Lock()
	defer a.ctl.Unlock()
	if !a.IsOpen() {
		return nil
	}
	running := a.IsRunning()
	if err := a.closeDevice(); err != nil {
		return err
	}
	if err := a.openDevice(); err != nil {
		return err
	}
	if running {
		return a.startStream()
	}
	return nil
}

// IsOpen reports whether the device is open.
func (a *AudioIO) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.open
}

// IsRunning reports whether audio is streaming.
func (a *AudioIO) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// ChannelsOutDevice returns the output channels opened on the device.
func (a *AudioIO) ChannelsOutDevice() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.devOuts
}

// ChannelsInDevice returns the input channels opened on the device.
func (a *AudioIO) ChannelsInDevice() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.devIns
}

// Buffer returns the block buffer. It is only safe to touch from sound
// callbacks or while the stream is stopped.
func (a *AudioIO) Buffer() *Buffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffer
}

// CPU returns the share of the block duration spent in processing.
func (a *AudioIO) CPU() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cpu
}

// Time returns the stream time in seconds.
func (a *AudioIO) Time() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rate <= 0 {
		return 0
	}
	return float64(a.frames) / a.rate
}

// ProcessAudio runs the callbacks once on silent device buffers.
func (a *AudioIO) ProcessAudio() {
	a.mu.Lock()
	in := make([]float32, a.block*a.devIns)
	out := make([]float32, a.block*a.devOuts)
	a.mu.Unlock()
	a.process(in, out)
}

func (a *AudioIO) process(in, out []float32) {
	a.mu.Lock()
	b := a.buffer
	devIns, devOuts := a.devIns, a.devOuts
	clip, zeroNaNs, autoZero := a.clip, a.zeroNaNs, a.autoZero
	gain := float32(a.gain)
	callbacks := append([]Callback(nil), a.callbacks...)
	observer := a.observer
	a.mu.Unlock()

	start := a.now()
	frames := b.frames

	// de-interleave, virtual inputs repeat the device inputs
	if devIns > 0 {
		for ch := range b.in {
			dev := ch % devIns
			dst := b.in[ch]
			for i := 0; i < frames && i*devIns+dev < len(in); i++ {
				dst[i] = in[i*devIns+dev]
			}
		}
	}

	if autoZero {
		b.ZeroOut()
	}
	b.ZeroBus()

	for _, cb := range callbacks {
		cb.OnAudio(b)
	}

	for _, c := range b.out {
		for i, s := range c {
			if zeroNaNs && (math.IsNaN(float64(s)) || math.IsInf(float64(s), 0)) {
				s = 0
			}
			s *= gain
			if clip {
				s = clamp(s)
			}
			c[i] = s
		}
	}

	// interleave, virtual outputs are summed into the device outputs
	for i := range out {
		out[i] = 0
	}
	if devOuts > 0 {
		for ch, c := range b.out {
			dev := ch % devOuts
			for i := 0; i < frames && i*devOuts+dev < len(out); i++ {
				out[i*devOuts+dev] += c[i]
			}
		}
		if clip && len(b.out) > devOuts {
			for i, s := range out {
				out[i] = clamp(s)
			}
		}
	}

	elapsed := a.now().Sub(start)

	a.mu.Lock()
	a.frames += uint64(frames)
	if a.rate > 0 && frames > 0 {
		load := elapsed.Seconds() / (float64(frames) / a.rate)
		a.cpu = 0.9*a.cpu + 0.1*load
	}
	cpu := a.cpu
	a.mu.Unlock()

	observer.BlockProcessed(frames, cpu)
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
