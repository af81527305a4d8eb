// Package metrics exports frame, lifecycle, resource and audio telemetry to
// Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devblok/tessera/domain"
	"github.com/devblok/tessera/gpu"
)

// NewCollector creates a collector with its own registry. An empty
// namespace defaults to "tessera".
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "tessera"
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),

		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphics",
			Name:      "frames_total",
			Help:      "Total number of frames drawn.",
		}),
		frameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graphics",
			Name:      "frame_duration_seconds",
			Help:      "Duration of frames.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~0.5s
		}),
		domainState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "state",
			Help:      "Lifecycle state of a domain: 0 uninitialized, 1 initialized, 2 running, 3 stopped, 4 cleaned up.",
		}, []string{"domain"}),
		lifecycleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "lifecycle_failures_total",
			Help:      "Total number of failed lifecycle operations.",
		}, []string{"domain", "op"}),
		resources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gpu",
			Name:      "resources",
			Help:      "Number of resources bound to a rendering context.",
		}, []string{"context"}),
		contexts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gpu",
			Name:      "contexts",
			Help:      "Number of live rendering contexts.",
		}),
		audioBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audio",
			Name:      "blocks_total",
			Help:      "Total number of audio blocks processed.",
		}),
		audioFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audio",
			Name:      "frames_total",
			Help:      "Total number of audio frames processed.",
		}),
		audioCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audio",
			Name:      "cpu_load",
			Help:      "Share of the block duration spent processing audio.",
		}),
	}

	c.registry.MustRegister(
		c.frames,
		c.frameSeconds,
		c.domainState,
		c.lifecycleFailures,
		c.resources,
		c.contexts,
		c.audioBlocks,
		c.audioFrames,
		c.audioCPU,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

// Collector receives events from the gpu registry, the domains, the frame
// loop and the audio stream. It satisfies each of their observer interfaces.
type Collector struct {
	registry *prometheus.Registry

	frames            prometheus.Counter
	frameSeconds      prometheus.Histogram
	domainState       *prometheus.GaugeVec
	lifecycleFailures *prometheus.CounterVec
	resources         *prometheus.GaugeVec
	contexts          prometheus.Gauge
	audioBlocks       prometheus.Counter
	audioFrames       prometheus.Counter
	audioCPU          prometheus.Gauge
}

// Registry returns the prometheus registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler returns an HTTP handler exposing the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// FrameCompleted implements graphics.FrameObserver
func (c *Collector) FrameCompleted(dt time.Duration) {
	c.frames.Inc()
	c.frameSeconds.Observe(dt.Seconds())
}

// StateChanged implements domain.Observer
func (c *Collector) StateChanged(name string, state domain.State) {
	c.domainState.WithLabelValues(name).Set(float64(state))
}

// LifecycleFailed implements domain.Observer
func (c *Collector) LifecycleFailed(name, op string, _ error) {
	c.lifecycleFailures.WithLabelValues(name, op).Inc()
}

// ResourcesChanged implements gpu.Observer
func (c *Collector) ResourcesChanged(ctx gpu.ContextID, count int) {
	c.resources.WithLabelValues(strconv.Itoa(int(ctx))).Set(float64(count))
}

// ContextsChanged implements gpu.Observer
func (c *Collector) ContextsChanged(live int) {
	c.contexts.Set(float64(live))
}

// BlockProcessed implements audio.Observer
func (c *Collector) BlockProcessed(frames int, cpu float64) {
	c.audioBlocks.Inc()
	c.audioFrames.Add(float64(frames))
	c.audioCPU.Set(cpu)
}
