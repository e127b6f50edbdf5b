//go:build !windows

package session

import (
	"fmt"
	"net"
	"os"
	"time"
)

// Address is the session's transport endpoint. On POSIX platforms it
// is a filesystem socket; dispatch and protocol layers never see the
// difference.
type Address struct {
	paths *Paths
}

// Address returns the transport address for this session.
func (p *Paths) Address() *Address {
	return &Address{paths: p}
}

// String returns a human-readable endpoint for logs and errors.
func (a *Address) String() string {
	return a.paths.Socket
}

// Listen binds the session's socket. Callers are expected to have
// checked for a live daemon first; a leftover socket file here is
// stale and is removed before binding.
func (a *Address) Listen() (net.Listener, error) {
	if err := os.Remove(a.paths.Socket); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", a.paths.Socket)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", a.paths.Socket, err)
	}

	// Owner-only: local-machine trust still excludes other users.
	if err := os.Chmod(a.paths.Socket, 0600); err != nil {
		listener.Close()
		os.Remove(a.paths.Socket)
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	return listener, nil
}

// Dial connects to the session's daemon.
func (a *Address) Dial(timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", a.paths.Socket, timeout)
}

// Reachable reports whether something is accepting on the address.
func (a *Address) Reachable(timeout time.Duration) bool {
	conn, err := a.Dial(timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
