package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/tessera/core"
)

const float32Size = 4

// NewSDLBackend creates a Backend over SDL audio devices. SDL audio is
// initialized on first use.
func NewSDLBackend(log logrus.FieldLogger) *SDLBackend {
	if log == nil {
		log = core.NopLogger()
	}
	return &SDLBackend{log: log.WithField("component", "audio.sdl")}
}

// SDLBackend queues audio on an SDL device from a pump goroutine. Capture
// is opened on a second device when inputs are requested.
type SDLBackend struct {
	mu      sync.Mutex
	inited  bool
	out     sdl.AudioDeviceID
	in      sdl.AudioDeviceID
	cfg     StreamConfig
	process ProcessFunc

	quit chan struct{}
	done chan struct{}

	log logrus.FieldLogger
}

func (s *SDLBackend) init() error {
	if s.inited {
		return nil
	}
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return err
	}
	s.inited = true
	return nil
}

// Devices implements Backend
func (s *SDLBackend) Devices() ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.init(); err != nil {
		return nil, err
	}

	byName := map[string]*Device{}
	var devices []Device
	add := func(capture bool) {
		for i := 0; i < sdl.GetNumAudioDevices(capture); i++ {
			name := sdl.GetAudioDeviceName(i, capture)
			d, ok := byName[name]
			if !ok {
				devices = append(devices, Device{Index: len(devices), Name: name, DefaultRate: 44100})
				d = &devices[len(devices)-1]
			}
			// SDL does not report channel counts before opening, stereo is safe.
			if capture {
				d.ChannelsInMax = 2
			} else {
				d.ChannelsOutMax = 2
			}
			byName[name] = d
		}
	}
	add(false)
	add(true)
	return devices, nil
}

// Open implements Backend
func (s *SDLBackend) Open(cfg StreamConfig, process ProcessFunc) (StreamConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.init(); err != nil {
		return StreamConfig{}, err
	}
	if s.out != 0 || s.in != 0 {
		return StreamConfig{}, fmt.Errorf("audio: device already open")
	}

	want := sdl.AudioSpec{
		Freq:     int32(cfg.FramesPerSecond),
		Format:   sdl.AUDIO_F32,
		Channels: uint8(channels(cfg.OutChannels)),
		Samples:  uint16(cfg.FramesPerBuffer),
	}
	var have sdl.AudioSpec
	out, err := sdl.OpenAudioDevice(cfg.Device, false, &want, &have, 0)
	if err != nil {
		return StreamConfig{}, err
	}
	got := cfg
	got.FramesPerSecond = float64(have.Freq)
	got.OutChannels = int(have.Channels)
	got.InChannels = 0

	if cfg.InChannels != 0 {
		want.Channels = uint8(channels(cfg.InChannels))
		var haveIn sdl.AudioSpec
		in, err := sdl.OpenAudioDevice("", true, &want, &haveIn, 0)
		if err != nil {
			s.log.WithError(err).Warn("no capture device, inputs are silent")
		} else {
			s.in = in
			got.InChannels = int(haveIn.Channels)
		}
	}

	s.out, s.cfg, s.process = out, got, process
	return got, nil
}

func channels(n int) int {
	if n <= 0 {
		return 2
	}
	return n
}

// Close implements Backend
func (s *SDLBackend) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != 0 {
		sdl.CloseAudioDevice(s.out)
	}
	if s.in != 0 {
		sdl.CloseAudioDevice(s.in)
	}
	s.out, s.in = 0, 0
	return nil
}

// Start implements Backend
func (s *SDLBackend) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == 0 {
		return ErrNotOpen
	}
	if s.quit != nil {
		return nil
	}
	s.quit, s.done = make(chan struct{}), make(chan struct{})
	sdl.PauseAudioDevice(s.out, false)
	if s.in != 0 {
		sdl.PauseAudioDevice(s.in, false)
	}
	go s.pump(s.out, s.in, s.cfg, s.process, s.quit, s.done)
	return nil
}

// Stop implements Backend
func (s *SDLBackend) Stop() error {
	s.mu.Lock()
	quit, done := s.quit, s.done
	s.quit, s.done = nil, nil
	s.mu.Unlock()
	if quit == nil {
		return nil
	}
	close(quit)
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	sdl.PauseAudioDevice(s.out, true)
	sdl.ClearQueuedAudio(s.out)
	if s.in != 0 {
		sdl.PauseAudioDevice(s.in, true)
		sdl.ClearQueuedAudio(s.in)
	}
	return nil
}

// pump keeps two blocks queued on the device.
func (s *SDLBackend) pump(out, in sdl.AudioDeviceID, cfg StreamConfig, process ProcessFunc, quit, done chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)
	if err := raisePriority(); err != nil {
		s.log.WithError(err).Debug("could not raise audio thread priority")
	}

	frames := cfg.FramesPerBuffer
	inBuf := make([]float32, frames*cfg.InChannels)
	outBuf := make([]float32, frames*cfg.OutChannels)
	inBytes := make([]byte, len(inBuf)*float32Size)
	outBytes := make([]byte, len(outBuf)*float32Size)
	block := uint32(len(outBytes))
	period := time.Duration(float64(time.Second) * float64(frames) / cfg.FramesPerSecond / 4)

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		for sdl.GetQueuedAudioSize(out) < 2*block {
			if in != 0 {
				if sdl.GetQueuedAudioSize(in) >= uint32(len(inBytes)) {
					sdl.DequeueAudio(in, inBytes)
					bytesToFloats(inBytes, inBuf)
				}
			}
			process(inBuf, outBuf)
			floatsToBytes(outBuf, outBytes)
			if err := sdl.QueueAudio(out, outBytes); err != nil {
				s.log.WithError(err).Error("could not queue audio")
				return
			}
		}
		select {
		case <-quit:
			return
		case <-ticker.C:
		}
	}
}

func floatsToBytes(src []float32, dst []byte) {
	for i, f := range src {
		binary.LittleEndian.PutUint32(dst[i*float32Size:], math.Float32bits(f))
	}
}

func bytesToFloats(src []byte, dst []float32) {
	for i := 0; i < len(dst) && (i+1)*float32Size <= len(src); i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*float32Size:]))
	}
}
