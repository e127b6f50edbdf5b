package ref

import (
	"fmt"
	"regexp"
	"strings"
)

// StaleRefError reports a ref that cannot be resolved against the
// current snapshot generation. It is a distinct type so callers can
// fail fast instead of acting on the wrong element.
type StaleRefError struct {
	Ref        string
	Generation uint64 // generation the ref belongs to, 0 when unknown
	Current    uint64
}

func (e *StaleRefError) Error() string {
	if e.Generation > 0 && e.Generation != e.Current {
		return fmt.Sprintf("ref %s is from snapshot generation %d, current is %d; take a new snapshot", e.Ref, e.Generation, e.Current)
	}
	return fmt.Sprintf("ref %s does not exist in the current snapshot (generation %d); take a new snapshot", e.Ref, e.Current)
}

var refTokenRe = regexp.MustCompile(`^e[0-9]+$`)

// ParseRef normalizes the three accepted textual forms of a ref token:
// bare ("e12"), prefixed ("@e12") and explicit ("ref=e12").
func ParseRef(s string) (string, error) {
	token := strings.TrimSpace(s)
	token = strings.TrimPrefix(token, "ref=")
	token = strings.TrimPrefix(token, "@")

	if !refTokenRe.MatchString(token) {
		return "", fmt.Errorf("invalid ref %q (want e<N>, @e<N> or ref=e<N>)", s)
	}
	return token, nil
}

// Resolve maps a ref token back to its entry. current is the daemon's
// live generation counter: a snapshot that is no longer current, or a
// token the snapshot never assigned, yields a StaleRefError rather
// than a best-effort re-match.
func (s *Snapshot) Resolve(token string, current uint64) (*Entry, error) {
	normalized, err := ParseRef(token)
	if err != nil {
		return nil, err
	}

	if s.Generation != current {
		return nil, &StaleRefError{Ref: normalized, Generation: s.Generation, Current: current}
	}
	entry, ok := s.entries[normalized]
	if !ok {
		return nil, &StaleRefError{Ref: normalized, Current: current}
	}
	return entry, nil
}
