// Package ref implements the accessibility snapshot engine: it turns a
// page's accessibility tree into a deterministic addressing scheme of
// short ref tokens (e1, e2, ...) scoped to one snapshot generation.
package ref

import "strings"

// Node is one backend-neutral accessibility node. Backends convert
// their native tree into this shape; the engine never sees a DOM.
type Node struct {
	Role        string
	Name        string
	Value       string
	Description string
	Disabled    bool
	// Focusable marks nodes that take focus or carry an explicit tab
	// stop; the cursor option broadens the interactive test to these.
	Focusable bool
	// Cursor marks nodes the backend observed to be pointer-interactive
	// (pointer cursor style, click handlers) despite a passive role.
	Cursor bool
	// BackendID addresses the live element in the owning backend.
	BackendID int64
	Children  []*Node
}

// interactiveRoles is the standard interactive role set, keyed by
// lowercased role. Both ARIA and Chromium internal spellings appear.
var interactiveRoles = map[string]bool{
	"button":           true,
	"link":             true,
	"textbox":          true,
	"textfield":        true,
	"textfieldwithcombobox": true,
	"searchbox":        true,
	"checkbox":         true,
	"radio":            true,
	"radiobutton":      true,
	"combobox":         true,
	"comboboxselect":   true,
	"listbox":          true,
	"option":           true,
	"listboxoption":    true,
	"menuitem":         true,
	"menuitemcheckbox": true,
	"menuitemradio":    true,
	"slider":           true,
	"switch":           true,
	"tab":              true,
	"spinbutton":       true,
}

// Interactive reports whether the node's role is in the standard
// interactive set.
func (n *Node) Interactive() bool {
	return interactiveRoles[strings.ToLower(n.Role)]
}

// hasContent reports whether the node carries content of its own, as
// opposed to being a purely structural container.
func (n *Node) hasContent() bool {
	return n.Name != "" || n.Value != ""
}
