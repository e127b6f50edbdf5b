// Package daemon implements the per-session background process: it
// owns the active backend, the latest ref snapshot, and the socket
// server that short-lived CLI invocations talk to.
package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"bridle/internal/backend"
	"bridle/internal/config"
	"bridle/internal/protocol"
	"bridle/internal/ref"
	"bridle/internal/session"
	"bridle/internal/stream"
)

// Runtime is the mutable state of one session daemon. All dispatch
// goes through a single mutex: commands across all connections are
// serialized, so ref resolution, backend dispatch and ref-map updates
// form one atomic step.
type Runtime struct {
	cfg   *config.Config
	paths *session.Paths
	log   *slog.Logger

	mu         sync.Mutex
	backend    backend.Backend
	snapshot   *ref.Snapshot
	generation uint64
	frames     *stream.Server
	closing    bool
	started    time.Time

	// newBackend is swappable for tests.
	newBackend func(ctx context.Context, cfg backend.Config) (backend.Backend, error)

	closeOnce sync.Once
}

// NewRuntime builds a runtime for one session. No backend is launched
// until the first command needs one.
func NewRuntime(cfg *config.Config, paths *session.Paths, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runtime{
		cfg:        cfg,
		paths:      paths,
		log:        log,
		started:    time.Now(),
		newBackend: backend.New,
	}
}

// StartStream activates the frame-streaming server when a stream port
// is configured. Called once at daemon startup.
func (r *Runtime) StartStream() error {
	if r.cfg.StreamPort == 0 {
		return nil
	}
	s, err := stream.New(r.cfg.StreamPort, r.log)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.frames = s
	r.mu.Unlock()
	return nil
}

// Dispatch executes one validated command and returns its response.
// terminate is true when the daemon should shut down after the
// response has been written.
func (r *Runtime) Dispatch(ctx context.Context, cmd *protocol.Command) (resp *protocol.Response, terminate bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closing {
		return protocol.ErrResponse(cmd.ID, protocol.KindShuttingDown, "daemon is shutting down"), false
	}

	switch cmd.Action {
	case protocol.ActionStatus:
		return r.status(ctx, cmd), false
	case protocol.ActionClose:
		r.closing = true
		return protocol.OKResponse(cmd.ID, map[string]any{"closed": true}), true
	case protocol.ActionDevices:
		return r.devices(ctx, cmd), false
	case protocol.ActionSnapshot:
		return r.snapshotCmd(ctx, cmd), false
	}
	return r.backendCmd(ctx, cmd), false
}

// status reports without launching a backend. Page details are added
// only when a backend is already active and can answer for them.
func (r *Runtime) status(ctx context.Context, cmd *protocol.Command) *protocol.Response {
	data := map[string]any{
		"session":    r.paths.Name,
		"pid":        os.Getpid(),
		"provider":   r.cfg.Provider,
		"backend":    "",
		"generation": r.generation,
		"uptime_s":   int(time.Since(r.started).Seconds()),
	}
	if r.frames != nil {
		data["stream"] = r.frames.Addr()
	}
	if r.backend == nil {
		return protocol.OKResponse(cmd.ID, data)
	}
	data["backend"] = r.backend.Name()
	if r.backend.Supports(protocol.ActionStatus) {
		extra, err := r.backend.Dispatch(ctx, cmd, nil)
		if err == nil {
			for k, v := range extra {
				data[k] = v
			}
		}
	}
	if r.backend.Supports(protocol.ActionGet) {
		for _, what := range []string{"url", "title"} {
			got, err := r.backend.Dispatch(ctx, &protocol.Command{Action: protocol.ActionGet, What: what}, nil)
			if err != nil {
				continue
			}
			if v, ok := got[what]; ok {
				data[what] = v
			}
		}
	}
	return protocol.OKResponse(cmd.ID, data)
}

// devices prefers the active backend. With no capable backend active
// it builds a transient device backend, queries it, and discards it;
// the session's backend slot is never touched.
func (r *Runtime) devices(ctx context.Context, cmd *protocol.Command) *protocol.Response {
	if r.backend != nil && r.backend.Supports(protocol.ActionDevices) {
		data, err := r.backend.Dispatch(ctx, cmd, nil)
		if err != nil {
			return errResponse(cmd.ID, err)
		}
		return protocol.OKResponse(cmd.ID, data)
	}

	transient, err := r.newBackend(ctx, backend.Config{
		Provider: config.ProviderIOS,
		Logger:   r.log,
	})
	if err != nil {
		return errResponse(cmd.ID, err)
	}
	defer transient.Close(ctx)

	data, err := transient.Dispatch(ctx, cmd, nil)
	if err != nil {
		return errResponse(cmd.ID, err)
	}
	return protocol.OKResponse(cmd.ID, data)
}

func (r *Runtime) snapshotCmd(ctx context.Context, cmd *protocol.Command) *protocol.Response {
	if err := r.ensureBackend(ctx); err != nil {
		return errResponse(cmd.ID, err)
	}
	tp, ok := r.backend.(backend.TreeProvider)
	if !ok {
		return errResponse(cmd.ID, backend.Unsupported(r.backend.Name(), cmd.Action))
	}

	opts := ref.Options{}
	if cmd.Snapshot != nil {
		opts = ref.Options{
			InteractiveOnly: cmd.Snapshot.InteractiveOnly,
			Cursor:          cmd.Snapshot.Cursor,
			Compact:         cmd.Snapshot.Compact,
			MaxDepth:        cmd.Snapshot.MaxDepth,
			Scope:           cmd.Snapshot.Scope,
		}
	}

	root, err := tp.Tree(ctx, opts.Scope)
	if err != nil {
		return errResponse(cmd.ID, err)
	}

	r.generation++
	snap := ref.Build(root, opts, r.generation)
	r.snapshot = snap
	r.log.Debug("snapshot built", "generation", r.generation, "refs", snap.Len())

	return protocol.OKResponse(cmd.ID, map[string]any{
		"snapshot":   snap.Text,
		"generation": snap.Generation,
		"refs":       snap.Len(),
	})
}

// backendCmd handles every action the backend executes directly,
// resolving the ref argument first for element-addressed actions.
func (r *Runtime) backendCmd(ctx context.Context, cmd *protocol.Command) *protocol.Response {
	if err := r.ensureBackend(ctx); err != nil {
		return errResponse(cmd.ID, err)
	}
	if !r.backend.Supports(cmd.Action) {
		return errResponse(cmd.ID, backend.Unsupported(r.backend.Name(), cmd.Action))
	}

	var target *ref.Entry
	if cmd.Ref != "" {
		entry, err := r.resolveRef(cmd.Ref)
		if err != nil {
			return errResponse(cmd.ID, err)
		}
		target = entry
	}

	data, err := r.backend.Dispatch(ctx, cmd, target)
	if err != nil {
		return errResponse(cmd.ID, err)
	}
	return protocol.OKResponse(cmd.ID, data)
}

func (r *Runtime) resolveRef(raw string) (*ref.Entry, error) {
	token, err := ref.ParseRef(raw)
	if err != nil {
		return nil, backend.Errorf(protocol.KindProtocol, "%v", err)
	}
	if r.snapshot == nil {
		return nil, &ref.StaleRefError{Ref: token, Current: r.generation}
	}
	return r.snapshot.Resolve(token, r.generation)
}

// ensureBackend launches the session's configured backend on first
// use. Frame streaming is wired up at the same moment when active.
func (r *Runtime) ensureBackend(ctx context.Context) error {
	if r.backend == nil {
		b, err := r.newBackend(ctx, backend.Config{
			Provider:        r.cfg.Provider,
			Headless:        r.cfg.Headless,
			AllowFileAccess: r.cfg.AllowFileAccess,
			BrowserPath:     r.cfg.BrowserPath,
			Logger:          r.log,
		})
		if err != nil {
			return backend.Errorf(protocol.KindBackend, "launch %s backend: %v", r.cfg.Provider, err)
		}
		r.backend = b
		r.log.Info("backend launched", "provider", b.Name())

		if r.frames != nil {
			if fs, ok := b.(backend.FrameSource); ok {
				if err := fs.StartFrames(ctx, r.frames.Publish); err != nil {
					r.log.Warn("frame streaming unavailable", "error", err)
				}
			}
		}
	}
	return nil
}

// Shutdown tears the runtime down: frames stop, the backend closes,
// the stream server disconnects its subscribers. Safe to call from
// both the close command and the signal path.
func (r *Runtime) Shutdown(ctx context.Context) {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closing = true
		b := r.backend
		r.backend = nil
		frames := r.frames
		r.frames = nil
		r.mu.Unlock()

		if b != nil {
			if fs, ok := b.(backend.FrameSource); ok {
				fs.StopFrames(ctx)
			}
			if err := b.Close(ctx); err != nil {
				r.log.Warn("backend close", "error", err)
			}
		}
		if frames != nil {
			frames.Close(ctx)
		}
	})
}

// errResponse converts any dispatch failure into a structured error
// response, preserving the backend's error kind.
func errResponse(id string, err error) *protocol.Response {
	var stale *ref.StaleRefError
	if errors.As(err, &stale) {
		return protocol.ErrResponse(id, protocol.KindStaleRef, stale.Error())
	}
	return protocol.ErrResponse(id, backend.Kind(err), err.Error())
}
