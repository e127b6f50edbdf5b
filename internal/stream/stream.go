// Package stream serves live display frames to local WebSocket
// subscribers. The server binds loopback only; frames are published
// by the daemon and fanned out best-effort, dropping frames for
// subscribers that cannot keep up.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// subscriberBuffer bounds queued frames per subscriber. A full
	// buffer drops the frame rather than stalling the publisher.
	subscriberBuffer = 8

	writeTimeout = 5 * time.Second
)

// Server is a loopback WebSocket fan-out for display frames.
type Server struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server
	listener net.Listener

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	closed      bool

	closeOnce sync.Once
}

type subscriber struct {
	frames chan []byte
}

// New starts a frame server on 127.0.0.1:port. Subscribers connect to
// ws://127.0.0.1:<port>/stream.
func New(port int, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("stream listen: %w", err)
	}
	s := &Server{
		log:         log,
		listener:    listener,
		subscribers: make(map[*subscriber]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handleStream)
	s.httpSrv = &http.Server{Handler: mux}
	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("stream server stopped", "error", err)
		}
	}()
	log.Info("stream server listening", "addr", listener.Addr().String())
	return s, nil
}

// Addr returns the bound address, useful when port 0 was requested.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Subscribers reports the current subscriber count.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Publish fans a frame out to every subscriber. Slow subscribers miss
// frames; Publish never blocks on them.
func (s *Server) Publish(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for sub := range s.subscribers {
		select {
		case sub.frames <- frame:
		default:
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("stream upgrade failed", "error", err)
		return
	}
	sub := &subscriber{frames: make(chan []byte, subscriberBuffer)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	s.log.Debug("stream subscriber connected", "remote", conn.RemoteAddr().String())
	defer func() {
		s.mu.Lock()
		delete(s.subscribers, sub)
		s.mu.Unlock()
		conn.Close()
		s.log.Debug("stream subscriber disconnected", "remote", conn.RemoteAddr().String())
	}()

	// Drain inbound messages so close frames and pings are handled;
	// subscribers are not expected to send anything else.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case frame := <-sub.frames:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
	}
}

// Close shuts the server down and disconnects all subscribers. Safe
// to call more than once.
func (s *Server) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		err = s.httpSrv.Shutdown(ctx)
	})
	return err
}
