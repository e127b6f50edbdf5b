package ref

import (
	"fmt"
	"strings"
)

// Options controls one snapshot build.
type Options struct {
	// InteractiveOnly keeps only nodes that expose interaction
	// semantics (plus the structure needed to reach them).
	InteractiveOnly bool
	// Cursor broadens the interactive test to nodes that are visually
	// or behaviorally interactive despite a passive role.
	Cursor bool
	// Compact elides structural nodes with no content of their own and
	// exactly one meaningful descendant path.
	Compact bool
	// MaxDepth stops descending beyond N levels; deeper content is
	// reported as truncated. Zero means unlimited.
	MaxDepth int
	// Scope roots the traversal at the first element matching this
	// selector. Resolved by the tree provider, not by Build.
	Scope string
}

// Entry is one addressable element in a snapshot.
type Entry struct {
	Ref        string
	Role       string
	Name       string
	// Occurrence is the zero-based index among entries with the same
	// role and name, in document order, so a specific duplicate can be
	// targeted and verified.
	Occurrence int
	BackendID  int64
	Generation uint64
}

// Snapshot is one generation of the addressable page surface.
type Snapshot struct {
	Generation uint64
	Text       string
	entries    map[string]*Entry
	order      []string
}

// Len returns the number of addressable entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// Entries returns the entries in assignment order.
func (s *Snapshot) Entries() []*Entry {
	out := make([]*Entry, 0, len(s.order))
	for _, ref := range s.order {
		out = append(out, s.entries[ref])
	}
	return out
}

type renderNode struct {
	node      *Node
	entry     *Entry
	children  []*renderNode
	truncated bool
}

// Build traverses the tree in document order and produces a snapshot
// for the given generation. The same tree, options and generation
// always produce the same refs.
func Build(root *Node, opts Options, generation uint64) *Snapshot {
	snap := &Snapshot{Generation: generation, entries: map[string]*Entry{}}
	if root == nil {
		return snap
	}

	b := &builder{opts: opts}
	top := b.walk(root, 0)
	if top == nil {
		return snap
	}
	if opts.Compact {
		top = b.compact(top, true)
	}
	b.assign(top, snap)

	var text strings.Builder
	dups := duplicateKeys(snap)
	render(&text, top, 0, dups)
	snap.Text = strings.TrimRight(text.String(), "\n")
	return snap
}

type builder struct {
	opts Options
	seq  int
	occ  map[string]int
}

// qualifies applies the interactive test, broadened when the cursor
// option is set. Disabled elements are listed but not addressable.
func (b *builder) qualifies(n *Node) bool {
	if n.Disabled {
		return false
	}
	if n.Interactive() {
		return true
	}
	if b.opts.Cursor {
		return n.Cursor || n.Focusable
	}
	return false
}

// walk filters the tree. A node survives if it qualifies, carries
// content (unless interactive-only), or has surviving descendants.
func (b *builder) walk(n *Node, depth int) *renderNode {
	rn := &renderNode{node: n}

	if b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth {
		if len(n.Children) > 0 {
			rn.truncated = true
		}
	} else {
		for _, child := range n.Children {
			if kept := b.walk(child, depth+1); kept != nil {
				rn.children = append(rn.children, kept)
			}
		}
	}

	keepSelf := b.qualifies(n)
	if !keepSelf && !b.opts.InteractiveOnly {
		keepSelf = n.hasContent()
	}
	if !keepSelf && len(rn.children) == 0 && !rn.truncated {
		return nil
	}
	return rn
}

// compact splices out structural nodes that carry no content and have
// exactly one child path. Nodes with content, nodes that will receive
// a ref, and nodes fanning out to several paths are never removed.
func (b *builder) compact(rn *renderNode, isRoot bool) *renderNode {
	for i, child := range rn.children {
		rn.children[i] = b.compact(child, false)
	}
	if isRoot {
		return rn
	}
	if len(rn.children) == 1 && !rn.node.hasContent() && !b.qualifies(rn.node) && !rn.truncated {
		return rn.children[0]
	}
	return rn
}

// assign walks the filtered tree in document order handing out
// sequential refs to qualifying nodes.
func (b *builder) assign(rn *renderNode, snap *Snapshot) {
	if b.occ == nil {
		b.occ = map[string]int{}
	}
	if b.qualifies(rn.node) {
		b.seq++
		key := dupKey(rn.node.Role, rn.node.Name)
		entry := &Entry{
			Ref:        fmt.Sprintf("e%d", b.seq),
			Role:       rn.node.Role,
			Name:       rn.node.Name,
			Occurrence: b.occ[key],
			BackendID:  rn.node.BackendID,
			Generation: snap.Generation,
		}
		b.occ[key]++
		rn.entry = entry
		snap.entries[entry.Ref] = entry
		snap.order = append(snap.order, entry.Ref)
	}
	for _, child := range rn.children {
		b.assign(child, snap)
	}
}

func dupKey(role, name string) string {
	return strings.ToLower(role) + "\x00" + name
}

// duplicateKeys returns the role/name keys that occur more than once.
func duplicateKeys(snap *Snapshot) map[string]bool {
	counts := map[string]int{}
	for _, e := range snap.entries {
		counts[dupKey(e.Role, e.Name)]++
	}
	dups := map[string]bool{}
	for key, n := range counts {
		if n > 1 {
			dups[key] = true
		}
	}
	return dups
}

func render(out *strings.Builder, rn *renderNode, depth int, dups map[string]bool) {
	indent := strings.Repeat("  ", depth)

	line := indent + "- " + rn.node.Role
	if rn.node.Name != "" {
		line += fmt.Sprintf(" %q", rn.node.Name)
	}
	if rn.node.Value != "" {
		line += fmt.Sprintf(" value=%q", rn.node.Value)
	}
	if rn.node.Disabled {
		line += " disabled"
	}
	if rn.entry != nil {
		if dups[dupKey(rn.entry.Role, rn.entry.Name)] {
			line += fmt.Sprintf(" [ref=%s nth=%d]", rn.entry.Ref, rn.entry.Occurrence)
		} else {
			line += fmt.Sprintf(" [ref=%s]", rn.entry.Ref)
		}
	}
	out.WriteString(line + "\n")

	for _, child := range rn.children {
		render(out, child, depth+1, dups)
	}
	if rn.truncated {
		out.WriteString(indent + "  - (deeper content truncated)\n")
	}
}
