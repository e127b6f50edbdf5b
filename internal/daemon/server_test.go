package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"bridle/internal/backend"
	"bridle/internal/config"
	"bridle/internal/protocol"
	"bridle/internal/ref"
	"bridle/internal/session"
)

func startTestServer(t *testing.T, stub *stubBackend) (*Server, *session.Paths) {
	t.Helper()
	paths, err := session.Resolve("srv-test", t.TempDir())
	if err != nil {
		t.Fatalf("session.Resolve: %v", err)
	}
	cfg := &config.Config{Session: "srv-test", Provider: config.ProviderChrome, Headless: true}
	rt := NewRuntime(cfg, paths, nil)
	rt.newBackend = func(context.Context, backend.Config) (backend.Backend, error) {
		return stub, nil
	}

	srv := NewServer(paths, rt, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		cancel()
	})
	return srv, paths
}

func dialSession(t *testing.T, paths *session.Paths) net.Conn {
	t.Helper()
	conn, err := paths.Address().Dial(2 * time.Second)
	if err != nil {
		t.Fatalf("dial session: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, cmd *protocol.Command) *protocol.Response {
	t.Helper()
	line, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		t.Fatalf("write command: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	raw, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", raw, err)
	}
	return &resp
}

func TestServerStatusRoundTrip(t *testing.T) {
	_, paths := startTestServer(t, newStubBackend())
	conn := dialSession(t, paths)

	resp := roundTrip(t, conn, &protocol.Command{ID: "s1", Action: protocol.ActionStatus})
	if !resp.OK {
		t.Fatalf("status failed: %+v", resp.Error)
	}
	if resp.ID != "s1" {
		t.Errorf("response id = %q, want s1", resp.ID)
	}
	if resp.Data["session"] != "srv-test" {
		t.Errorf("session = %v", resp.Data["session"])
	}
}

func TestServerRejectsInvalidCommand(t *testing.T) {
	_, paths := startTestServer(t, newStubBackend())
	conn := dialSession(t, paths)

	resp := roundTrip(t, conn, &protocol.Command{ID: "bad", Action: protocol.ActionNavigate})
	if resp.OK {
		t.Fatal("navigate without url should fail")
	}
	if resp.Error.Kind != protocol.KindProtocol {
		t.Errorf("kind = %q, want %q", resp.Error.Kind, protocol.KindProtocol)
	}
	if resp.ID != "bad" {
		t.Errorf("response id = %q, want correlation preserved", resp.ID)
	}

	// The connection survives a rejected command.
	resp = roundTrip(t, conn, &protocol.Command{ID: "ok", Action: protocol.ActionStatus})
	if !resp.OK {
		t.Fatalf("status after rejection failed: %+v", resp.Error)
	}
}

func TestServerDropsHTTPConnections(t *testing.T) {
	_, paths := startTestServer(t, newStubBackend())
	conn := dialSession(t, paths)

	if _, err := conn.Write([]byte("GET /session HTTP/1.1\r\nHost: localhost\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err == nil {
		t.Fatalf("expected silent close, got %d bytes: %q", n, buf[:n])
	}
}

func TestServerSerializesDispatch(t *testing.T) {
	stub := newStubBackend()
	var active, maxActive int
	var mu sync.Mutex
	slow := &slowBackend{stubBackend: stub, enter: func() {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}}

	paths, err := session.Resolve("serial-test", t.TempDir())
	if err != nil {
		t.Fatalf("session.Resolve: %v", err)
	}
	cfg := &config.Config{Session: "serial-test", Provider: config.ProviderChrome}
	rt := NewRuntime(cfg, paths, nil)
	rt.newBackend = func(context.Context, backend.Config) (backend.Backend, error) {
		return slow, nil
	}
	srv := NewServer(paths, rt, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go srv.Serve(context.Background())
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := paths.Address().Dial(2 * time.Second)
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			defer conn.Close()
			cmd := &protocol.Command{ID: fmt.Sprintf("c%d", i), Action: protocol.ActionNavigate, URL: "https://example.com"}
			line, _ := json.Marshal(cmd)
			conn.Write(append(line, '\n'))
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			bufio.NewReader(conn).ReadBytes('\n')
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if maxActive != 1 {
		t.Errorf("max concurrent dispatches = %d, want 1", maxActive)
	}
}

// slowBackend injects a critical-section probe into each dispatch.
type slowBackend struct {
	*stubBackend
	enter func()
}

func (s *slowBackend) Dispatch(ctx context.Context, cmd *protocol.Command, target *ref.Entry) (map[string]any, error) {
	s.enter()
	return s.stubBackend.Dispatch(ctx, cmd, target)
}

// slowCloseBackend delays teardown so tests can observe whether exit
// paths wait for it.
type slowCloseBackend struct {
	*stubBackend
	delay time.Duration
}

func (s *slowCloseBackend) Close(ctx context.Context) error {
	time.Sleep(s.delay)
	return s.stubBackend.Close(ctx)
}

func TestServeWaitsForTeardownOnClose(t *testing.T) {
	stub := newStubBackend()
	slow := &slowCloseBackend{stubBackend: stub, delay: 300 * time.Millisecond}

	paths, err := session.Resolve("teardown-test", t.TempDir())
	if err != nil {
		t.Fatalf("session.Resolve: %v", err)
	}
	cfg := &config.Config{Session: "teardown-test", Provider: config.ProviderChrome}
	rt := NewRuntime(cfg, paths, nil)
	rt.newBackend = func(context.Context, backend.Config) (backend.Backend, error) {
		return slow, nil
	}
	srv := NewServer(paths, rt, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(context.Background()) }()

	conn := dialSession(t, paths)
	if resp := roundTrip(t, conn, &protocol.Command{ID: "n", Action: protocol.ActionNavigate, URL: "https://example.com"}); !resp.OK {
		t.Fatalf("navigate failed: %+v", resp.Error)
	}
	if resp := roundTrip(t, conn, &protocol.Command{ID: "c", Action: protocol.ActionClose}); !resp.OK {
		t.Fatalf("close failed: %+v", resp.Error)
	}

	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after close")
	}

	stub.mu.Lock()
	closed := stub.closed
	stub.mu.Unlock()
	if !closed {
		t.Error("backend still open when Serve returned")
	}
	if _, err := os.Stat(paths.PID); !os.IsNotExist(err) {
		t.Errorf("PID file still present when Serve returned (stat err = %v)", err)
	}
}

func TestListenRefusesLivePID(t *testing.T) {
	paths, err := session.Resolve("live-pid-test", t.TempDir())
	if err != nil {
		t.Fatalf("session.Resolve: %v", err)
	}
	// A PID file naming a live process but no listener, as when a
	// daemon is mid-startup or too loaded to answer the dial probe.
	if err := paths.WritePID(); err != nil {
		t.Fatalf("WritePID: %v", err)
	}

	cfg := &config.Config{Session: "live-pid-test", Provider: config.ProviderChrome}
	srv := NewServer(paths, NewRuntime(cfg, paths, nil), nil)
	if err := srv.Listen(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Listen = %v, want ErrAlreadyRunning", err)
	}
	if _, err := os.Stat(paths.PID); err != nil {
		t.Errorf("live daemon's PID file was disturbed: %v", err)
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	_, paths := startTestServer(t, newStubBackend())

	cfg := &config.Config{Session: paths.Name, Provider: config.ProviderChrome}
	rt := NewRuntime(cfg, paths, nil)
	second := NewServer(paths, rt, nil)
	err := second.Listen()
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Listen = %v, want ErrAlreadyRunning", err)
	}
}

func TestCloseCommandShutsDown(t *testing.T) {
	srv, paths := startTestServer(t, newStubBackend())
	conn := dialSession(t, paths)

	resp := roundTrip(t, conn, &protocol.Command{ID: "x", Action: protocol.ActionClose})
	if !resp.OK {
		t.Fatalf("close failed: %+v", resp.Error)
	}

	select {
	case <-srv.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down after close")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !paths.Address().Reachable(100 * time.Millisecond) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("session still reachable after close")
}
