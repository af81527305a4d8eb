package app_test

import (
	"errors"
	"sync"

	"github.com/devblok/tessera/audio"
	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/graphics"
)

// trace collects events from every thread.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) add(e string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

type window struct {
	created    bool
	fullScreen bool
	hidden     bool
	title      string
	failCreate bool
}

func (w *window) Create() error {
	if w.failCreate {
		return errors.New("no display")
	}
	w.created = true
	return nil
}

func (w *window) Destroy()                   { w.created = false }
func (w *window) Created() bool              { return w.created }
func (w *window) MakeCurrent() error         { return nil }
func (w *window) Refresh()                   {}
func (w *window) Size() (int, int)           { return 640, 480 }
func (w *window) FullScreen() bool           { return w.fullScreen }
func (w *window) SetFullScreen(f bool) error { w.fullScreen = f; return nil }
func (w *window) CursorHidden() bool         { return w.hidden }
func (w *window) SetCursorHide(h bool) error { w.hidden = h; return nil }
func (w *window) Title() string              { return w.title }
func (w *window) SetTitle(t string)          { w.title = t }

// events replays one key list per frame and quits after the last one.
type events struct {
	frames [][]graphics.Key
	polled int
}

func (e *events) Poll(h *graphics.Handlers) bool {
	if e.polled < len(e.frames) {
		for _, k := range e.frames[e.polled] {
			h.KeyDown(k)
		}
	}
	e.polled++
	return e.polled >= len(e.frames)
}

// backend runs one audio block on Start.
type backend struct {
	failOpen bool
	outs     int
	cfg      audio.StreamConfig
	process  audio.ProcessFunc
	closed   bool
}

func (b *backend) Devices() ([]audio.Device, error) {
	return []audio.Device{{Name: "fake", ChannelsOutMax: b.outs}}, nil
}

func (b *backend) Open(cfg audio.StreamConfig, process audio.ProcessFunc) (audio.StreamConfig, error) {
	if b.failOpen {
		return audio.StreamConfig{}, errors.New("no audio device")
	}
	if cfg.OutChannels < 0 || cfg.OutChannels > b.outs {
		cfg.OutChannels = b.outs
	}
	if cfg.InChannels < 0 {
		cfg.InChannels = 0
	}
	b.cfg, b.process = cfg, process
	return cfg, nil
}

func (b *backend) Close() error { b.closed = true; return nil }

func (b *backend) Start() error {
	b.process(make([]float32, b.cfg.FramesPerBuffer*b.cfg.InChannels),
		make([]float32, b.cfg.FramesPerBuffer*b.cfg.OutChannels))
	return nil
}

func (b *backend) Stop() error { return nil }

type destroyable struct {
	name string
	tr   *trace
}

func (d *destroyable) Destroy() { d.tr.add("destroy " + d.name) }

func testConfiguration() core.Configuration {
	cfg := core.DefaultConfiguration()
	cfg.Time.FramesPerSecond = 0
	cfg.Messages.Address = "127.0.0.1:0"
	return cfg
}
