package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError reports the first schema violation as a field name
// and a message, so a caller can self-correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Directions accepted by the scroll action.
var scrollDirections = map[string]bool{
	"up": true, "down": true, "left": true, "right": true,
}

// Targets accepted by the get action.
var getTargets = map[string]bool{
	"url": true, "title": true, "text": true,
}

// validators holds the per-action schema checks, keyed by action.
var validators = map[string]func(*Command) *ValidationError{
	ActionNavigate: func(c *Command) *ValidationError {
		if c.URL == "" {
			return invalid("url", "required for navigate")
		}
		return nil
	},
	ActionBack:    noArgs,
	ActionForward: noArgs,
	ActionReload:  noArgs,
	ActionClick:   needsRef,
	ActionHover:   needsRef,
	ActionType: func(c *Command) *ValidationError {
		if err := needsRef(c); err != nil {
			return err
		}
		if c.Text == "" {
			return invalid("text", "required for type")
		}
		return nil
	},
	ActionPress: func(c *Command) *ValidationError {
		if c.Key == "" {
			return invalid("key", "required for press")
		}
		return nil
	},
	ActionScroll: func(c *Command) *ValidationError {
		if c.Direction == "" {
			return invalid("direction", "required for scroll")
		}
		if !scrollDirections[c.Direction] {
			return invalid("direction", "must be one of up, down, left, right (got %q)", c.Direction)
		}
		if c.Amount < 0 {
			return invalid("amount", "must be non-negative")
		}
		return nil
	},
	ActionWait: func(c *Command) *ValidationError {
		if c.Selector == "" && c.TimeoutMS <= 0 {
			return invalid("selector", "wait needs a selector, a timeout_ms, or both")
		}
		if c.TimeoutMS < 0 {
			return invalid("timeout_ms", "must be non-negative")
		}
		return nil
	},
	ActionGet: func(c *Command) *ValidationError {
		if c.What == "" {
			return invalid("what", "required for get")
		}
		if !getTargets[c.What] {
			return invalid("what", "must be one of url, title, text (got %q)", c.What)
		}
		return nil
	},
	ActionSnapshot: func(c *Command) *ValidationError {
		if c.Snapshot != nil && c.Snapshot.MaxDepth < 0 {
			return invalid("snapshot.max_depth", "must be non-negative")
		}
		return nil
	},
	ActionScreenshot: noArgs,
	ActionDevices:    noArgs,
	ActionStatus:     noArgs,
	ActionClose:      noArgs,
}

func noArgs(*Command) *ValidationError { return nil }

func needsRef(c *Command) *ValidationError {
	if c.Ref == "" {
		return invalid("ref", "required for "+c.Action)
	}
	return nil
}

// Validate parses one wire line into a Command and checks it against
// the action's schema. On failure the returned Command may still carry
// a correlation id when one was parseable, so the error response can
// be correlated.
func Validate(line []byte) (*Command, *ValidationError) {
	var cmd Command

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		// Best-effort id recovery for correlation.
		var loose Command
		json.Unmarshal(line, &loose)
		loose.Action = ""
		if msg := err.Error(); strings.Contains(msg, "unknown field") {
			return &loose, invalid(unknownField(msg), "unknown field")
		}
		return &loose, invalid("json", "malformed command: %v", err)
	}

	if cmd.Action == "" {
		return &cmd, invalid("action", "required")
	}
	check, ok := validators[cmd.Action]
	if !ok {
		return &cmd, invalid("action", "unknown action %q", cmd.Action)
	}
	if verr := check(&cmd); verr != nil {
		return &cmd, verr
	}
	return &cmd, nil
}

// unknownField extracts the offending field name from the stdlib's
// `json: unknown field "xyz"` message.
func unknownField(msg string) string {
	if i := strings.Index(msg, `"`); i >= 0 {
		if j := strings.LastIndex(msg, `"`); j > i {
			return msg[i+1 : j]
		}
	}
	return "json"
}
