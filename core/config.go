package core

import (
	"strconv"
	"strings"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
)

// Configuration defines a global toolkit configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Window   WindowConfiguration
	Renderer RendererConfiguration
	Audio    AudioConfiguration
	Messages MessageConfiguration
	Metrics  MetricsConfiguration
	Log      LogConfiguration
	Context  ContextConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int
}

// WindowConfiguration describes the default window
type WindowConfiguration struct {
	Title      string
	Width      int
	Height     int
	FullScreen bool
	CursorHide bool
	Decorated  bool
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	DebugMode        bool
	DeviceExtensions []string
	ShaderDirectory  string
	AssetPack        string
}

// AudioConfiguration is used to configure the audio domain
type AudioConfiguration struct {
	Enabled         bool
	Device          string
	FramesPerSecond float64
	FramesPerBuffer int
	OutputChannels  int
	InputChannels   int
	ClipOutput      bool
	ZeroNaNs        bool
	AutoZeroOutput  bool
	Gain            float64
}

// MessageConfiguration is used to configure the network message domain
type MessageConfiguration struct {
	Enabled   bool
	Address   string
	Path      string
	QueueSize int
}

// MetricsConfiguration toggles prometheus telemetry
type MetricsConfiguration struct {
	Enabled   bool
	Namespace string
	Path      string
}

// LogConfiguration is used to configure logging
type LogConfiguration struct {
	Level string
	JSON  bool
}

// ContextConfiguration tunes the rendering context table
type ContextConfiguration struct {
	// MigrateOnSwap moves bound resources along with their context
	// when a context becomes the default one.
	MigrateOnSwap bool
}

// DefaultConfiguration returns the configuration used when nothing is set
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
		},
		Window: WindowConfiguration{
			Title:     "tessera",
			Width:     800,
			Height:    600,
			Decorated: true,
		},
		Renderer: RendererConfiguration{
			DeviceExtensions: []string{"VK_KHR_swapchain"},
			ShaderDirectory:  "./shaders",
		},
		Audio: AudioConfiguration{
			FramesPerSecond: 44100,
			FramesPerBuffer: 512,
			OutputChannels:  2,
			InputChannels:   0,
			ClipOutput:      true,
			ZeroNaNs:        true,
			AutoZeroOutput:  true,
			Gain:            1,
		},
		Messages: MessageConfiguration{
			Address:   "127.0.0.1:16447",
			Path:      "/messages",
			QueueSize: 256,
		},
		Metrics: MetricsConfiguration{
			Namespace: "tessera",
			Path:      "/metrics",
		},
		Log: LogConfiguration{
			Level: "info",
		},
	}
}

// LoadConfiguration reads the given .env files, missing ones are skipped,
// and overlays every TESSERA_* variable found onto the defaults.
func LoadConfiguration(files ...string) Configuration {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// a missing file is not an error, the environment may carry everything
		_ = godotenv.Load(f)
	}
	envy.Reload()

	cfg := DefaultConfiguration()

	cfg.Time.FramesPerSecond = envInt("TESSERA_FPS", cfg.Time.FramesPerSecond)

	cfg.Window.Title = envy.Get("TESSERA_WINDOW_TITLE", cfg.Window.Title)
	cfg.Window.Width = envInt("TESSERA_WINDOW_WIDTH", cfg.Window.Width)
	cfg.Window.Height = envInt("TESSERA_WINDOW_HEIGHT", cfg.Window.Height)
	cfg.Window.FullScreen = envBool("TESSERA_WINDOW_FULLSCREEN", cfg.Window.FullScreen)
	cfg.Window.CursorHide = envBool("TESSERA_WINDOW_CURSOR_HIDE", cfg.Window.CursorHide)
	cfg.Window.Decorated = envBool("TESSERA_WINDOW_DECORATED", cfg.Window.Decorated)

	cfg.Renderer.DebugMode = envBool("TESSERA_RENDERER_DEBUG", cfg.Renderer.DebugMode)
	cfg.Renderer.ShaderDirectory = envy.Get("TESSERA_SHADER_DIR", cfg.Renderer.ShaderDirectory)
	cfg.Renderer.AssetPack = envy.Get("TESSERA_ASSET_PACK", cfg.Renderer.AssetPack)
	if exts := envy.Get("TESSERA_DEVICE_EXTENSIONS", ""); exts != "" {
		cfg.Renderer.DeviceExtensions = strings.Split(exts, ",")
	}

	cfg.Audio.Enabled = envBool("TESSERA_AUDIO", cfg.Audio.Enabled)
	cfg.Audio.Device = envy.Get("TESSERA_AUDIO_DEVICE", cfg.Audio.Device)
	cfg.Audio.FramesPerSecond = envFloat("TESSERA_AUDIO_RATE", cfg.Audio.FramesPerSecond)
	cfg.Audio.FramesPerBuffer = envInt("TESSERA_AUDIO_BLOCK", cfg.Audio.FramesPerBuffer)
	cfg.Audio.OutputChannels = envInt("TESSERA_AUDIO_OUTPUTS", cfg.Audio.OutputChannels)
	cfg.Audio.InputChannels = envInt("TESSERA_AUDIO_INPUTS", cfg.Audio.InputChannels)
	cfg.Audio.ClipOutput = envBool("TESSERA_AUDIO_CLIP", cfg.Audio.ClipOutput)
	cfg.Audio.ZeroNaNs = envBool("TESSERA_AUDIO_ZERO_NANS", cfg.Audio.ZeroNaNs)
	cfg.Audio.AutoZeroOutput = envBool("TESSERA_AUDIO_AUTO_ZERO", cfg.Audio.AutoZeroOutput)
	cfg.Audio.Gain = envFloat("TESSERA_AUDIO_GAIN", cfg.Audio.Gain)

	cfg.Messages.Enabled = envBool("TESSERA_MESSAGES", cfg.Messages.Enabled)
	cfg.Messages.Address = envy.Get("TESSERA_MESSAGES_ADDR", cfg.Messages.Address)
	cfg.Messages.Path = envy.Get("TESSERA_MESSAGES_PATH", cfg.Messages.Path)
	cfg.Messages.QueueSize = envInt("TESSERA_MESSAGES_QUEUE", cfg.Messages.QueueSize)

	cfg.Metrics.Enabled = envBool("TESSERA_METRICS", cfg.Metrics.Enabled)
	cfg.Metrics.Namespace = envy.Get("TESSERA_METRICS_NAMESPACE", cfg.Metrics.Namespace)
	cfg.Metrics.Path = envy.Get("TESSERA_METRICS_PATH", cfg.Metrics.Path)

	cfg.Log.Level = envy.Get("TESSERA_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = envBool("TESSERA_LOG_JSON", cfg.Log.JSON)

	cfg.Context.MigrateOnSwap = envBool("TESSERA_CONTEXT_MIGRATE", cfg.Context.MigrateOnSwap)
	return cfg
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(envy.Get(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(envy.Get(key, strconv.FormatFloat(def, 'f', -1, 64)), 64)
	if err != nil {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(envy.Get(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}
