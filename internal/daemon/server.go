package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"bridle/internal/protocol"
	"bridle/internal/session"
)

// ErrAlreadyRunning reports that a live daemon already serves this
// session.
var ErrAlreadyRunning = errors.New("session daemon already running")

const (
	// idleTimeout bounds how long a connection may sit between
	// commands before the daemon drops it.
	idleTimeout = 10 * time.Minute

	// writeTimeout bounds one response write.
	writeTimeout = 10 * time.Second

	// probeChunk is how many bytes of the first read are inspected by
	// the cross-protocol filter.
	probeChunk = 512
)

// Server accepts CLI connections for one session and feeds commands
// into the runtime.
type Server struct {
	paths *session.Paths
	rt    *Runtime
	log   *slog.Logger

	listener net.Listener
	conns    sync.WaitGroup

	shutdownOnce sync.Once
	done         chan struct{}
	stopped      chan struct{}
}

// NewServer wires a server to its runtime.
func NewServer(paths *session.Paths, rt *Runtime, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		paths:   paths,
		rt:      rt,
		log:     log,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Listen claims the session: it refuses when a live daemon answers,
// reclaims stale metadata from a dead one, binds the transport and
// records this process in the PID file.
func (s *Server) Listen() error {
	st, err := s.paths.GetStatus()
	if err != nil {
		return fmt.Errorf("inspect session state: %w", err)
	}
	// A live PID counts as running even when the dial probe misses it,
	// otherwise a slow daemon gets its socket and PID file hijacked.
	if st.Reachable || st.Running {
		return ErrAlreadyRunning
	}
	if st.Stale() {
		s.log.Info("reclaiming session from dead daemon", "pid", st.PID)
		if err := s.paths.RemoveMetadata(); err != nil {
			return fmt.Errorf("reclaim session: %w", err)
		}
	}

	ln, err := s.paths.Address().Listen()
	if err != nil {
		return err
	}
	s.listener = ln

	if err := s.paths.WritePID(); err != nil {
		ln.Close()
		return err
	}
	s.log.Info("session daemon listening", "addr", s.paths.Address().String())
	return nil
}

// Serve runs the accept loop until Shutdown and only returns once
// teardown has finished, so the caller may exit the process on
// return. Listen must have succeeded first.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				<-s.stopped
				return nil
			default:
			}
			if ctx.Err() != nil {
				s.Shutdown(context.WithoutCancel(ctx))
				<-s.stopped
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn speaks the NDJSON protocol on one connection. The first
// chunk is sniffed before any line parsing: an HTTP request line gets
// a silent close, nothing else.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(idleTimeout))
	chunk := make([]byte, probeChunk)
	n, err := conn.Read(chunk)
	if err != nil {
		return
	}
	chunk = chunk[:n]
	if looksLikeHTTP(chunk) {
		s.log.Warn("dropped cross-protocol connection", "remote", remoteName(conn))
		return
	}

	reader := protocol.NewReader(io.MultiReader(bytes.NewReader(chunk), conn))
	writer := protocol.NewWriter(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		line, err := reader.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("connection read ended", "error", err)
			}
			return
		}

		cmd, verr := protocol.Validate(line)
		if verr != nil {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			writer.WriteResponse(protocol.ErrResponse(cmd.ID, protocol.KindProtocol, verr.Error()))
			continue
		}

		resp, terminate := s.rt.Dispatch(ctx, cmd)

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := writer.WriteResponse(resp); err != nil {
			s.log.Debug("response write failed", "error", err)
			return
		}

		if terminate {
			go s.Shutdown(context.WithoutCancel(ctx))
			return
		}
	}
}

// Shutdown converges all teardown paths: the close command, SIGINT
// and SIGTERM all end up here exactly once.
func (s *Server) Shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.rt.Shutdown(ctx)

		waited := make(chan struct{})
		go func() {
			s.conns.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-time.After(5 * time.Second):
			s.log.Warn("connections did not drain before shutdown")
		}

		if err := s.paths.RemoveMetadata(); err != nil {
			s.log.Warn("session metadata cleanup", "error", err)
		}
		s.log.Info("session daemon stopped")
		close(s.stopped)
	})
}

// Done is closed once shutdown has begun.
func (s *Server) Done() <-chan struct{} { return s.done }

func remoteName(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
