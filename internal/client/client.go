// Package client is the CLI side of the session protocol: it dials
// the session daemon, launches one when none is running, and performs
// single command round trips.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"bridle/internal/protocol"
	"bridle/internal/session"
)

const (
	dialTimeout = 2 * time.Second

	// responseFloor is the minimum time allowed for a response;
	// commands carrying their own budget extend it.
	responseFloor = 60 * time.Second

	readyPollInterval = 100 * time.Millisecond
	readyPollAttempts = 50
)

// ErrDaemonUnreachable reports that no daemon answered and none could
// be started.
var ErrDaemonUnreachable = errors.New("session daemon is not reachable")

// Client talks to one session's daemon.
type Client struct {
	paths *session.Paths
}

// New builds a client for a resolved session.
func New(paths *session.Paths) *Client {
	return &Client{paths: paths}
}

// Do performs one command round trip: dial, one line out, one line
// back. Response correlation is checked against the command id.
func (c *Client) Do(cmd *protocol.Command) (*protocol.Response, error) {
	if cmd.ID == "" {
		cmd.ID = protocol.NewID()
	}

	conn, err := c.paths.Address().Dial(dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
	}
	defer conn.Close()

	deadline := responseFloor
	if budget := time.Duration(cmd.TimeoutMS) * time.Millisecond; budget+10*time.Second > deadline {
		deadline = budget + 10*time.Second
	}
	conn.SetDeadline(time.Now().Add(deadline))

	writer := protocol.NewWriter(conn)
	if err := writer.WriteCommand(cmd); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}

	reader := protocol.NewReader(conn)
	line, err := reader.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if resp.ID != "" && resp.ID != cmd.ID {
		return nil, fmt.Errorf("response id %q does not match command id %q", resp.ID, cmd.ID)
	}
	return &resp, nil
}

// Ensure guarantees a daemon is serving the session, spawning one in
// the background when necessary and waiting until it answers.
func (c *Client) Ensure() error {
	if c.paths.Address().Reachable(dialTimeout) {
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	cmd := exec.Command(exe, "start", "--daemon", "--session", c.paths.Name)
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn session daemon: %w", err)
	}
	// The daemon outlives this invocation; release lets the child be
	// reparented instead of becoming a zombie waiting on us.
	cmd.Process.Release()

	for attempt := 0; attempt < readyPollAttempts; attempt++ {
		if c.paths.Address().Reachable(dialTimeout) {
			return nil
		}
		time.Sleep(readyPollInterval)
	}
	return fmt.Errorf("%w: daemon did not come up for session %q", ErrDaemonUnreachable, c.paths.Name)
}
