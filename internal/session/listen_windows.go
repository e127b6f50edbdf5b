//go:build windows

package session

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Address is the session's transport endpoint. On Windows it is a
// loopback TCP port derived from the session name; the bound port is
// recorded in the session's port file so clients can confirm it.
type Address struct {
	paths *Paths
	port  int
}

// Address returns the transport address for this session.
func (p *Paths) Address() *Address {
	return &Address{paths: p, port: DerivedPort(p.Name)}
}

// String returns a human-readable endpoint for logs and errors.
func (a *Address) String() string {
	return a.endpoint()
}

func (a *Address) endpoint() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(a.port))
}

// Listen binds the session's derived loopback port and writes the
// port file.
func (a *Address) Listen() (net.Listener, error) {
	listener, err := net.Listen("tcp", a.endpoint())
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", a.endpoint(), err)
	}

	port := []byte(strconv.Itoa(a.port))
	if err := os.WriteFile(a.paths.Port, port, 0600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("write port file: %w", err)
	}
	return listener, nil
}

// Dial connects to the session's daemon, preferring the recorded port
// over re-derivation so a mismatched environment still finds it.
func (a *Address) Dial(timeout time.Duration) (net.Conn, error) {
	port := a.port
	if data, err := os.ReadFile(a.paths.Port); err == nil {
		if recorded, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && recorded > 0 {
			port = recorded
		}
	}
	endpoint := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	return net.DialTimeout("tcp", endpoint, timeout)
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
