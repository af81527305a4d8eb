// Package audio streams blocks of samples between an audio device and the
// application's sound callbacks.
package audio

// NewBuffer allocates a buffer of frames frames per channel.
func NewBuffer(frames, outs, ins, buses int, rate float64) *Buffer {
	b := &Buffer{rate: rate}
	b.resize(frames, outs, ins, buses)
	return b
}

// Buffer is one block of de-interleaved audio handed to sound callbacks.
// Output channels beyond what the device has are virtual: they are summed
// into the device channels after the callbacks run.
type Buffer struct {
	rate   float64
	frames int
	out    [][]float32
	in     [][]float32
	bus    [][]float32
}

func allocate(frames, channels int) [][]float32 {
	if channels < 0 {
		channels = 0
	}
	chans := make([][]float32, channels)
	for i := range chans {
		chans[i] = make([]float32, frames)
	}
	return chans
}

func (b *Buffer) resize(frames, outs, ins, buses int) {
	b.frames = frames
	b.out = allocate(frames, outs)
	b.in = allocate(frames, ins)
	b.bus = allocate(frames, buses)
}

// FramesPerSecond returns the sample rate.
func (b *Buffer) FramesPerSecond() float64 { return b.rate }

// Frames returns the number of frames per channel.
func (b *Buffer) Frames() int { return b.frames }

// ChannelsOut returns the number of output channels, virtual included.
func (b *Buffer) ChannelsOut() int { return len(b.out) }

// ChannelsIn returns the number of input channels, virtual included.
func (b *Buffer) ChannelsIn() int { return len(b.in) }

// ChannelsBus returns the number of bus channels.
func (b *Buffer) ChannelsBus() int { return len(b.bus) }

// Out returns the samples of output channel ch.
func (b *Buffer) Out(ch int) []float32 { return b.out[ch] }

// In returns the samples of input channel ch.
func (b *Buffer) In(ch int) []float32 { return b.in[ch] }

// Bus returns the samples of bus channel ch.
func (b *Buffer) Bus(ch int) []float32 { return b.bus[ch] }

// ZeroOut silences every output channel.
func (b *Buffer) ZeroOut() { zero(b.out) }

// ZeroBus silences every bus channel.
func (b *Buffer) ZeroBus() { zero(b.bus) }

func zero(chans [][]float32) {
	for _, c := range chans {
		for i := range c {
			c[i] = 0
		}
	}
}
