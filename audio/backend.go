package audio

import "errors"

// package errors
var (
	ErrDeviceOpen    = errors.New("audio: device could not be opened")
	ErrNotOpen       = errors.New("audio: device not open")
	ErrUnknownDevice = errors.New("audio: unknown device")
)

// Device describes one audio device.
type Device struct {
	Index          int
	Name           string
	ChannelsOutMax int
	ChannelsInMax  int
	DefaultRate    float64
}

// StreamConfig is what a stream is opened with. Channel counts are device
// channels.
type StreamConfig struct {
	Device          string
	FramesPerSecond float64
	FramesPerBuffer int
	OutChannels     int
	InChannels      int
}

// ProcessFunc fills out from in. Both hold interleaved device frames,
// FramesPerBuffer of them.
type ProcessFunc func(in, out []float32)

// Backend is the audio driver. Once started it calls the ProcessFunc from
// its own goroutine for every block.
type Backend interface {
	Devices() ([]Device, error)

	// Open returns the configuration actually obtained.
	Open(cfg StreamConfig, process ProcessFunc) (StreamConfig, error)
	Close() error
	Start() error
	Stop() error
}
