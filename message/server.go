package message

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/core"
)

// NewServer creates a websocket endpoint at path delivering every decoded
// message to deliver.
func NewServer(address, path string, deliver func(Message), log logrus.FieldLogger) *Server {
	if log == nil {
		log = core.NopLogger()
	}
	if path == "" {
		path = "/messages"
	}
	s := &Server{
		address: address,
		path:    path,
		deliver: deliver,
		mux:     http.NewServeMux(),
		conns:   make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			// control surfaces are served from anywhere
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log.WithField("component", "message.server"),
	}
	s.mux.HandleFunc(path, s.serveWebsocket)
	return s
}

// Server accepts websocket connections and decodes their text frames.
type Server struct {
	address  string
	path     string
	deliver  func(Message)
	mux      *http.ServeMux
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	conns    map[*websocket.Conn]struct{}
	wg       sync.WaitGroup

	log logrus.FieldLogger
}

// Handle registers an extra HTTP handler, such as metrics, next to the
// message endpoint.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Listen binds the address. It is called by Serve when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, empty before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve starts serving in the background.
func (s *Server) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return nil
	}
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	s.http = srv
	l := s.listener
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("message server stopped")
		}
	}()
	s.log.WithField("address", l.Addr().String()+s.path).Info("listening for messages")
	return nil
}

// Shutdown stops accepting, closes open connections and waits for their
// readers to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, l := s.http, s.listener
	s.http, s.listener = nil, nil
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	} else if l != nil {
		err = l.Close()
	}
	for _, c := range conns {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		c.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	s.mu.Lock()
	if s.http == nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		s.wg.Done()
	}()

	log := s.log.WithField("remote", r.RemoteAddr)
	log.Debug("message client connected")
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("message client dropped")
			}
			return
		}
		if kind != websocket.TextMessage {
			log.Warn("ignoring binary frame")
			continue
		}
		msgs, err := Decode(data)
		if err != nil {
			log.WithError(err).Warn("ignoring message")
			continue
		}
		for _, m := range msgs {
			s.deliver(m)
		}
	}
}
