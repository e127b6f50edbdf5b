// Package session derives per-session transport addresses and metadata
// file locations, and tracks daemon process liveness.
//
// A session name deterministically maps to a socket path (or, on
// platforms without filesystem sockets, a loopback TCP port), a PID
// file and a log file, all rooted at a base directory chosen by a
// fixed precedence: explicit override, runtime directory, home
// directory, OS temp directory.
package session

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
)

// DefaultName is the session used when none is selected.
const DefaultName = "default"

const dirName = "bridle"

// ErrNoWritableDir is returned when no candidate base directory can be
// created and written to.
var ErrNoWritableDir = errors.New("no writable base directory for session files")

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Paths holds the per-session file locations.
type Paths struct {
	Name   string
	Base   string
	Socket string // unix socket path (unused on port-based transports)
	PID    string
	Port   string // port file (written only by port-based transports)
	Log    string
}

// Resolve computes the paths for a session name. homeOverride, when
// non-empty, pins the base directory and is not allowed to silently
// fail over to another candidate.
func Resolve(name, homeOverride string) (*Paths, error) {
	if name == "" {
		name = DefaultName
	}
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid session name %q", name)
	}

	base, err := baseDir(homeOverride)
	if err != nil {
		return nil, err
	}

	return &Paths{
		Name:   name,
		Base:   base,
		Socket: filepath.Join(base, name+".sock"),
		PID:    filepath.Join(base, name+".pid"),
		Port:   filepath.Join(base, name+".port"),
		Log:    filepath.Join(base, "logs", name+".log"),
	}, nil
}

// baseDir picks the first usable base directory. An explicit override
// must be usable; the remaining candidates fail over in order.
func baseDir(override string) (string, error) {
	if override != "" {
		if err := ensureWritable(override); err != nil {
			return "", fmt.Errorf("base directory override %s: %w", override, err)
		}
		return override, nil
	}

	var candidates []string
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		candidates = append(candidates, filepath.Join(runtimeDir, dirName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "."+dirName))
	}
	candidates = append(candidates, filepath.Join(os.TempDir(), dirName))

	var errs []error
	for _, dir := range candidates {
		if err := ensureWritable(dir); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dir, err))
			continue
		}
		return dir, nil
	}
	return "", fmt.Errorf("%w: %v", ErrNoWritableDir, errors.Join(errs...))
}

// ensureWritable creates dir if needed and probes it with a temp file.
func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// EnsureLogDir creates the log directory for this session.
func (p *Paths) EnsureLogDir() error {
	return os.MkdirAll(filepath.Dir(p.Log), 0700)
}

// DerivedPort maps a session name onto a stable loopback TCP port in
// the dynamic range. Used where filesystem sockets are unavailable.
func DerivedPort(name string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	return 49152 + int(h.Sum32()%16384)
}

// RemoveMetadata deletes the session's metadata files. Missing files
// are not an error; every shutdown path converges here.
func (p *Paths) RemoveMetadata() error {
	var errs []error
	for _, path := range []string{p.Socket, p.PID, p.Port} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
