// Package backend defines the automation-backend boundary: the closed
// set of engines a session can drive, and the adapter interface the
// daemon dispatches validated commands to.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"bridle/internal/config"
	"bridle/internal/protocol"
	"bridle/internal/ref"
)

// Config carries the launch options applied once at backend creation.
type Config struct {
	Provider        string
	Headless        bool
	AllowFileAccess bool
	BrowserPath     string
	Logger          *slog.Logger
}

// Backend is one automation engine driving a session. Implementations
// route actions through a dispatch table, so Supports is a table
// lookup rather than scattered type inspection.
type Backend interface {
	Name() string
	// Supports reports whether the backend implements an action, so
	// the daemon can return a structured "unsupported" error instead
	// of attempting dispatch.
	Supports(action string) bool
	// Dispatch executes one validated command. target is the resolved
	// ref entry for element-addressed actions, nil otherwise.
	Dispatch(ctx context.Context, cmd *protocol.Command, target *ref.Entry) (map[string]any, error)
	Close(ctx context.Context) error
}

// TreeProvider is implemented by backends that can produce an
// accessibility tree for the ref engine. scope optionally roots the
// tree at the first element matching a selector.
type TreeProvider interface {
	Tree(ctx context.Context, scope string) (*ref.Node, error)
}

// FrameSource is implemented by backends that can stream display
// frames for the streaming subsystem.
type FrameSource interface {
	StartFrames(ctx context.Context, publish func(frame []byte)) error
	StopFrames(ctx context.Context) error
}

// Error is a backend failure normalized into a stable kind and a
// human message. The daemon converts it to a Response error; it never
// crashes the daemon.
type Error struct {
	Kind    protocol.ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errorf builds a normalized backend error.
func Errorf(kind protocol.ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unsupported is the error for actions the active backend does not
// implement.
func Unsupported(name, action string) *Error {
	return &Error{
		Kind:    protocol.KindUnsupported,
		Message: fmt.Sprintf("action %q is not supported by the %s backend", action, name),
	}
}

// Kind extracts the protocol error kind from any backend failure.
func Kind(err error) protocol.ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return protocol.KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return protocol.KindCancelled
	}
	return protocol.KindBackend
}

// New constructs the backend for a provider. The variant set is
// closed: adding an engine means adding a case here.
func New(ctx context.Context, cfg Config) (Backend, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	switch cfg.Provider {
	case config.ProviderChrome:
		return newChrome(ctx, cfg)
	case config.ProviderIOS:
		return newSimulator(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
