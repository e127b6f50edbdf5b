package stream

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Close(ctx)
	})
	return s
}

func dialStream(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/stream", s.Addr())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Subscribers() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("subscriber count never reached %d (have %d)", n, s.Subscribers())
}

func TestPublishReachesSubscriber(t *testing.T) {
	s := startServer(t)
	conn := dialStream(t, s)
	waitForSubscribers(t, s, 1)

	frame := []byte("frame-data")
	s.Publish(frame)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, got, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", kind)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("frame = %q, want %q", got, frame)
	}
}

func TestPublishFansOut(t *testing.T) {
	s := startServer(t)
	a := dialStream(t, s)
	b := dialStream(t, s)
	waitForSubscribers(t, s, 2)

	s.Publish([]byte("x"))
	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("subscriber did not receive frame: %v", err)
		}
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	s := startServer(t)
	// Must not block or panic.
	s.Publish([]byte("nobody home"))
}

func TestSubscriberDisconnectUnregisters(t *testing.T) {
	s := startServer(t)
	conn := dialStream(t, s)
	waitForSubscribers(t, s, 1)
	conn.Close()
	waitForSubscribers(t, s, 0)
}

func TestCloseIdempotent(t *testing.T) {
	s := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	// Publishing after close is a no-op.
	s.Publish([]byte("late"))
}
