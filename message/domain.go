package message

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/domain"
)

const shutdownTimeout = 5 * time.Second

// NewMessageDomain creates the message domain.
func NewMessageDomain(cfg core.MessageConfiguration, log logrus.FieldLogger) *MessageDomain {
	if log == nil {
		log = core.NopLogger()
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	d := &MessageDomain{
		queue: make(chan Message, size),
	}
	d.Node = domain.NewNode(d, "messages", log)
	d.server = NewServer(cfg.Address, cfg.Path, d.Post, d.Log())
	return d
}

// MessageDomain is asynchronous: network readers queue decoded messages and
// a pump goroutine hands them to the message callbacks in arrival order.
// A full queue drops new messages.
type MessageDomain struct {
	*domain.Node

	server  *Server
	queue   chan Message
	dropped atomic.Uint64

	mu        sync.Mutex
	callbacks []func(Message)
	quit      chan struct{}
	done      chan struct{}
}

// Server returns the network endpoint.
func (d *MessageDomain) Server() *Server { return d.server }

// Handle serves h at pattern next to the message endpoint.
func (d *MessageDomain) Handle(pattern string, h http.Handler) {
	d.server.Handle(pattern, h)
}

// OnMessage appends fn to the message callbacks. They run on the pump
// goroutine.
func (d *MessageDomain) OnMessage(fn func(Message)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = append(d.callbacks, fn)
}

// Post queues m as if it had arrived from the network. It never blocks.
func (d *MessageDomain) Post(m Message) {
	select {
	case d.queue <- m:
	default:
		if d.dropped.Add(1) == 1 {
			d.Log().WithField("address", m.Address).Warn("message queue full, dropping")
		}
	}
}

// Dropped returns how many messages a full queue has dropped.
func (d *MessageDomain) Dropped() uint64 { return d.dropped.Load() }

// Initialize implements domain.Domain. The address is bound here so that a
// port in use fails initialization.
func (d *MessageDomain) Initialize(domain.Domain) error {
	if err := d.server.Listen(); err != nil {
		return d.Fail("initialize", err)
	}
	d.RunCallbacks(domain.PhaseInitialize)
	return d.Transition(domain.Initialized)
}

// Start implements domain.Asynchronous
func (d *MessageDomain) Start() error {
	if s := d.State(); s != domain.Initialized && s != domain.Stopped {
		return fmt.Errorf("%s: start from %s: %w", d.Name(), s, domain.ErrInvalidTransition)
	}
	if err := d.server.Serve(); err != nil {
		return d.Fail("start", err)
	}

	d.mu.Lock()
	d.quit, d.done = make(chan struct{}), make(chan struct{})
	go d.pump(d.quit, d.done)
	d.mu.Unlock()

	if err := d.Transition(domain.Running); err != nil {
		return err
	}
	d.RunCallbacks(domain.PhaseStart)
	return nil
}

func (d *MessageDomain) pump(quit, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		case m := <-d.queue:
			d.dispatch(m)
		}
	}
}

func (d *MessageDomain) dispatch(m Message) {
	d.mu.Lock()
	fns := append(([]func(Message))(nil), d.callbacks...)
	d.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

// Stop implements domain.Asynchronous. Messages still queued are kept for
// the next Start.
func (d *MessageDomain) Stop() error {
	if d.State() != domain.Running {
		return nil
	}
	d.RunCallbacks(domain.PhaseStop)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		d.Fail("stop", err)
	}

	d.mu.Lock()
	quit, done := d.quit, d.done
	d.quit, d.done = nil, nil
	d.mu.Unlock()
	close(quit)
	<-done

	return d.Transition(domain.Stopped)
}

// Cleanup implements domain.Domain
func (d *MessageDomain) Cleanup(domain.Domain) error {
	d.RunCallbacks(domain.PhaseCleanup)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := d.server.Shutdown(ctx)
	if terr := d.Transition(domain.CleanedUp); terr != nil {
		return terr
	}
	return d.Fail("cleanup", err)
}
