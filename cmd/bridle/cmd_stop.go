package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"bridle/internal/client"
	"bridle/internal/protocol"
	"bridle/internal/session"
	"bridle/internal/ui"
)

type StopCmd struct{}

func (c *StopCmd) Run(g *Globals) error {
	_, paths, err := setup(g)
	if err != nil {
		return err
	}

	status, err := paths.GetStatus()
	if err != nil {
		return fmt.Errorf("check session state: %w", err)
	}

	if !status.Reachable {
		ui.PrintInfo(fmt.Sprintf("Session '%s' is not running", paths.Name))
		if status.Stale() {
			paths.RemoveMetadata()
		}
		return nil
	}

	// Graceful path: the close command tears the daemon down.
	resp, err := client.New(paths).Do(&protocol.Command{Action: protocol.ActionClose})
	if err == nil && resp.OK {
		if waitForExit(paths, status.PID) {
			ui.PrintSuccess(fmt.Sprintf("Session '%s' stopped", paths.Name))
			return nil
		}
	} else if err != nil && !errors.Is(err, client.ErrDaemonUnreachable) {
		ui.PrintWarning(fmt.Sprintf("Close command failed: %v", err))
	}

	// Fall back to signalling the recorded process.
	if status.PID > 0 {
		if process, perr := os.FindProcess(status.PID); perr == nil {
			ui.PrintWarning("Daemon did not close gracefully, sending SIGTERM...")
			process.Signal(syscall.SIGTERM)
			if waitForExit(paths, status.PID) {
				ui.PrintSuccess(fmt.Sprintf("Session '%s' stopped", paths.Name))
				return nil
			}
			process.Kill()
		}
	}

	paths.RemoveMetadata()
	ui.PrintSuccess(fmt.Sprintf("Session '%s' stopped", paths.Name))
	return nil
}

// waitForExit polls until the daemon process is gone, up to 10 seconds.
func waitForExit(paths *session.Paths, pid int) bool {
	for attempt := 0; attempt < 100; attempt++ {
		if pid > 0 && !session.Alive(pid) {
			return true
		}
		if pid <= 0 && !paths.Address().Reachable(100*time.Millisecond) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
