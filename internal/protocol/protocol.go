// Package protocol defines the newline-delimited JSON protocol for
// daemon communication: one Command object per inbound line, one
// Response object per outbound line, no other framing.
package protocol

import "github.com/google/uuid"

// Action names. The set is closed; anything else is rejected before
// dispatch.
const (
	ActionNavigate   = "navigate"
	ActionBack       = "back"
	ActionForward    = "forward"
	ActionReload     = "reload"
	ActionClick      = "click"
	ActionHover      = "hover"
	ActionType       = "type"
	ActionPress      = "press"
	ActionScroll     = "scroll"
	ActionWait       = "wait"
	ActionGet        = "get"
	ActionSnapshot   = "snapshot"
	ActionScreenshot = "screenshot"
	ActionDevices    = "devices"
	ActionStatus     = "status"
	ActionClose      = "close"
)

// Command is one request to the daemon. Action-specific fields are
// all optional at the JSON layer; Validate enforces per-action
// requirements.
type Command struct {
	ID     string `json:"id"`
	Action string `json:"action"`

	URL       string        `json:"url,omitempty"`
	Ref       string        `json:"ref,omitempty"`
	Text      string        `json:"text,omitempty"`
	Submit    bool          `json:"submit,omitempty"`
	Key       string        `json:"key,omitempty"`
	Direction string        `json:"direction,omitempty"`
	Amount    int           `json:"amount,omitempty"`
	Selector  string        `json:"selector,omitempty"`
	TimeoutMS int           `json:"timeout_ms,omitempty"`
	What      string        `json:"what,omitempty"`
	Path      string        `json:"path,omitempty"`
	Snapshot  *SnapshotArgs `json:"snapshot,omitempty"`
}

// SnapshotArgs carries the ref-engine build options over the wire.
type SnapshotArgs struct {
	InteractiveOnly bool   `json:"interactive_only,omitempty"`
	Cursor          bool   `json:"cursor,omitempty"`
	Compact         bool   `json:"compact,omitempty"`
	MaxDepth        int    `json:"max_depth,omitempty"`
	Scope           string `json:"scope,omitempty"`
}

// ErrorKind tags a Response error with a stable machine-readable kind.
type ErrorKind string

const (
	KindProtocol     ErrorKind = "protocol"
	KindBackend      ErrorKind = "backend"
	KindUnsupported  ErrorKind = "unsupported"
	KindStaleRef     ErrorKind = "stale_ref"
	KindNotFound     ErrorKind = "not_found"
	KindTimeout      ErrorKind = "timeout"
	KindCancelled    ErrorKind = "cancelled"
	KindShuttingDown ErrorKind = "shutting_down"
	KindInternal     ErrorKind = "internal"
)

// Error is the error half of a Response.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Response is the daemon's answer to one Command, correlated by ID.
type Response struct {
	ID    string         `json:"id"`
	OK    bool           `json:"ok"`
	Data  map[string]any `json:"data,omitempty"`
	Error *Error         `json:"error,omitempty"`
}

// OKResponse builds a success response.
func OKResponse(id string, data map[string]any) *Response {
	return &Response{ID: id, OK: true, Data: data}
}

// ErrResponse builds an error response.
func ErrResponse(id string, kind ErrorKind, message string) *Response {
	return &Response{ID: id, Error: &Error{Kind: kind, Message: message}}
}

// NewID returns a fresh correlation id. UUIDs rule out the collisions
// a time-derived counter would risk under rapid-fire invocation.
func NewID() string {
	return uuid.NewString()
}
