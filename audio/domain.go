package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/domain"
)

// NewAudioDomain creates the audio domain over backend.
func NewAudioDomain(cfg core.AudioConfiguration, backend Backend, log logrus.FieldLogger) *AudioDomain {
	if log == nil {
		log = core.NopLogger()
	}
	d := &AudioDomain{
		cfg: cfg,
		io:  NewAudioIO(backend, cfg, log),
	}
	d.Node = domain.NewNode(d, "audio", log)
	return d
}

// AudioDomain is asynchronous: once started the backend drives the sound
// callbacks from its own thread and Start returns immediately.
type AudioDomain struct {
	*domain.Node

	cfg core.AudioConfiguration
	io  *AudioIO
}

// IO returns the stream wrapper.
func (d *AudioDomain) IO() *AudioIO { return d.io }

// OnSound appends fn to the sound callbacks.
func (d *AudioDomain) OnSound(fn func(*Buffer)) {
	d.io.Append(CallbackFunc(fn))
}

// Configure sets the stream format, see AudioIO.Configure.
func (d *AudioDomain) Configure(rate float64, block, outs, ins int) error {
	return d.io.Configure(rate, block, outs, ins)
}

// Initialize implements domain.Domain. The device is opened here so that
// channel counts are known before the application starts.
func (d *AudioDomain) Initialize(domain.Domain) error {
	if err := d.io.Open(); err != nil {
		return d.Fail("initialize", err)
	}
	d.RunCallbacks(domain.PhaseInitialize)
	return d.Transition(domain.Initialized)
}

// Start implements domain.Asynchronous
func (d *AudioDomain) Start() error {
	if s := d.State(); s != domain.Initialized && s != domain.Stopped {
		return fmt.Errorf("%s: start from %s: %w", d.Name(), s, domain.ErrInvalidTransition)
	}
	if err := d.io.Start(); err != nil {
		return d.Fail("start", err)
	}
	if err := d.Transition(domain.Running); err != nil {
		return err
	}
	d.RunCallbacks(domain.PhaseStart)
	return nil
}

// Stop implements domain.Asynchronous
func (d *AudioDomain) Stop() error {
	if d.State() != domain.Running {
		return nil
	}
	d.RunCallbacks(domain.PhaseStop)
	if err := d.io.Stop(); err != nil {
		d.Fail("stop", err)
	}
	return d.Transition(domain.Stopped)
}

// Cleanup implements domain.Domain
func (d *AudioDomain) Cleanup(domain.Domain) error {
	d.RunCallbacks(domain.PhaseCleanup)
	err := d.io.Close()
	if terr := d.Transition(domain.CleanedUp); terr != nil {
		return terr
	}
	return d.Fail("cleanup", err)
}
