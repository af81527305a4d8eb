package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/tessera/app"
	"github.com/devblok/tessera/audio"
	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/domain"
	"github.com/devblok/tessera/graphics"
	"github.com/devblok/tessera/message"
)

func newApp(cfg core.Configuration, w *window, ev *events, b *backend) *app.App {
	return app.New(cfg, app.Options{
		Windows:      func(core.WindowConfiguration) graphics.Window { return w },
		Events:       ev,
		AudioBackend: b,
	}, nil)
}

func TestCallbackOrder(t *testing.T) {
	tr := &trace{}
	b := &backend{outs: 2}
	a := newApp(testConfiguration(), &window{}, &events{frames: make([][]graphics.Key, 2)}, b)
	require.NoError(t, a.ConfigureAudio(44100, 64, 2, 0))

	a.OnInit(func() { tr.add("init") })
	a.OnCreate(func() { tr.add("create") })
	a.OnAnimate(func(float64) { tr.add("animate") })
	a.OnDraw(func(*graphics.Graphics) { tr.add("draw") })
	a.OnSound(func(*audio.Buffer) { tr.add("sound") })
	a.OnExit(func() { tr.add("exit") })
	a.Own(&destroyable{name: "device", tr: tr})

	require.NoError(t, a.Start())
	assert.Equal(t, []string{
		"init", "sound", "create",
		"animate", "draw",
		"animate", "draw",
		"exit", "destroy device",
	}, tr.list())

	assert.Equal(t, domain.CleanedUp, a.Graphics().State())
	assert.Equal(t, domain.CleanedUp, a.Audio().State())
	assert.Equal(t, domain.CleanedUp, a.Simulation().State())
	assert.True(t, b.closed)
	assert.Nil(t, a.Messages())
}

func TestAudioDisabledByDefault(t *testing.T) {
	b := &backend{outs: 2}
	a := newApp(testConfiguration(), &window{}, &events{frames: make([][]graphics.Key, 1)}, b)
	sounds := 0
	a.OnSound(func(*audio.Buffer) { sounds++ })

	require.NoError(t, a.Start())
	assert.Equal(t, 0, sounds)
	assert.Equal(t, domain.Uninitialized, a.Audio().State())
	_, ok := a.Registry().Get("audio")
	assert.False(t, ok)
}

func TestAudioFailureKeepsGraphics(t *testing.T) {
	cfg := testConfiguration()
	cfg.Audio.Enabled = true
	draws := 0
	a := newApp(cfg, &window{}, &events{frames: make([][]graphics.Key, 3)}, &backend{failOpen: true})
	a.OnDraw(func(*graphics.Graphics) { draws++ })

	require.NoError(t, a.Start())
	assert.Equal(t, 3, draws)
	assert.Equal(t, domain.Uninitialized, a.Audio().State())
}

func TestConfigureAllChannels(t *testing.T) {
	b := &backend{outs: 6}
	a := newApp(testConfiguration(), &window{}, &events{frames: make([][]graphics.Key, 1)}, b)
	require.NoError(t, a.ConfigureAudio(48000, 128, app.AllChannels, app.AllChannels))
	assert.True(t, a.Config().Audio.Enabled)

	outs := 0
	a.OnSound(func(buf *audio.Buffer) { outs = buf.ChannelsOut() })
	require.NoError(t, a.Start())
	assert.Equal(t, 6, outs)
	assert.Error(t, a.ConfigureAudio(48000, 0, 2, 0))
}

func TestWindowFailureAborts(t *testing.T) {
	cfg := testConfiguration()
	cfg.Audio.Enabled = true
	b := &backend{outs: 2}
	a := newApp(cfg, &window{failCreate: true}, &events{frames: make([][]graphics.Key, 1)}, b)
	created := false
	a.OnCreate(func() { created = true })

	assert.ErrorIs(t, a.Start(), graphics.ErrWindowCreate)
	assert.False(t, created)
	assert.True(t, b.closed)
	assert.Equal(t, domain.CleanedUp, a.Audio().State())
}

func TestStandardKeyControls(t *testing.T) {
	w := &window{}
	frames := [][]graphics.Key{
		{{Code: graphics.KeyEscape}},
		{{Code: 'u', Ctrl: true}},
		{{Code: 'a'}},
		{{Code: 'q', Ctrl: true}},
		{},
		{},
	}
	ev := &events{frames: frames}
	a := newApp(testConfiguration(), w, ev, &backend{})
	var keys []int
	a.Input().KeyDown = func(k graphics.Key) bool {
		keys = append(keys, k.Code)
		return true
	}

	require.NoError(t, a.Start())
	assert.True(t, w.fullScreen)
	assert.True(t, w.hidden)
	assert.Equal(t, []int{'a'}, keys)
	assert.True(t, a.ShouldQuit())
	assert.Equal(t, 4, ev.polled)
}

func TestControlsWithoutWindow(t *testing.T) {
	quit := false
	c := app.NewStandardKeyControls(func() { quit = true }, func() graphics.Window { return nil }, nil)
	assert.False(t, c.OnKeyDown(graphics.Key{Code: graphics.KeyEscape}))
	assert.False(t, c.OnKeyDown(graphics.Key{Code: 'u', Ctrl: true}))
	assert.True(t, c.OnKeyDown(graphics.Key{Code: 'u'}))
	assert.True(t, c.OnKeyUp(graphics.Key{Code: 'q', Ctrl: true}))
	assert.False(t, quit)
	assert.False(t, c.OnKeyDown(graphics.Key{Code: 'q', Ctrl: true}))
	assert.True(t, quit)
}

func TestMetricsAndMessages(t *testing.T) {
	cfg := testConfiguration()
	cfg.Metrics.Enabled = true
	cfg.Messages.Enabled = true
	a := newApp(cfg, &window{}, &events{frames: make([][]graphics.Key, 2)}, &backend{})
	require.NotNil(t, a.Metrics())
	require.NotNil(t, a.Messages())
	a.OnMessage(func(message.Message) {})

	require.NoError(t, a.Start())
	assert.Equal(t, domain.CleanedUp, a.Messages().State())

	families, err := a.Metrics().Registry().Gather()
	require.NoError(t, err)
	frames := 0.0
	for _, mf := range families {
		if mf.GetName() == "tessera_graphics_frames_total" {
			frames = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, frames)
}
