package session

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrPIDFileNotFound is returned when the PID file does not exist.
	ErrPIDFileNotFound = errors.New("PID file not found")
	// ErrInvalidPIDFile is returned when the PID file contains invalid data.
	ErrInvalidPIDFile = errors.New("invalid PID file")
)

// Status describes the observable state of a session's daemon.
type Status struct {
	Running   bool // PID file names a live process
	PID       int
	Reachable bool // transport answers a dial
}

// WritePID records the current process in the session's PID file.
func (p *Paths) WritePID() error {
	data := []byte(strconv.Itoa(os.Getpid()))
	if err := os.WriteFile(p.PID, data, 0600); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	return nil
}

// ReadPID reads the process ID from the session's PID file.
func (p *Paths) ReadPID() (int, error) {
	data, err := os.ReadFile(p.PID)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrPIDFileNotFound
		}
		return 0, fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPIDFile, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: PID %d", ErrInvalidPIDFile, pid)
	}
	return pid, nil
}

// GetStatus combines the PID file and a transport probe into one view.
// An invalid PID file is reported as an error so callers can surface
// the corruption instead of guessing.
func (p *Paths) GetStatus() (*Status, error) {
	status := &Status{Reachable: p.Address().Reachable(time.Second)}

	pid, err := p.ReadPID()
	if err != nil {
		if errors.Is(err, ErrPIDFileNotFound) {
			return status, nil
		}
		return status, err
	}

	status.PID = pid
	status.Running = Alive(pid)
	return status, nil
}

// Stale reports whether the session's metadata belongs to a dead
// daemon and may be reclaimed.
func (s *Status) Stale() bool {
	return !s.Running && (s.PID > 0 || s.Reachable)
}
