package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"bridle/internal/protocol"
	"bridle/internal/ref"
)

func cdpBackendID(target *ref.Entry) cdp.BackendNodeID {
	return cdp.BackendNodeID(target.BackendID)
}

// Tree fetches the page's accessibility tree and converts it into the
// ref engine's backend-neutral node shape. scope, when non-empty,
// roots the tree at the first matching element.
func (b *chromeBackend) Tree(_ context.Context, scope string) (*ref.Node, error) {
	var root *ref.Node
	err := b.run(0, chromedp.ActionFunc(func(ctx context.Context) error {
		axNodes, err := accessibility.GetFullAXTree().Do(ctx)
		if err != nil {
			return fmt.Errorf("fetch accessibility tree: %w", err)
		}

		var scopeID cdp.BackendNodeID
		if scope != "" {
			scopeID, err = resolveScope(ctx, scope)
			if err != nil {
				return err
			}
		}

		root, err = convertAXTree(axNodes, scopeID)
		return err
	}))
	if err != nil {
		return nil, b.normalize(err)
	}
	return root, nil
}

// resolveScope finds the backend node id of the first element matching
// the selector.
func resolveScope(ctx context.Context, selector string) (cdp.BackendNodeID, error) {
	doc, err := dom.GetDocument().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("get document: %w", err)
	}
	nodeID, err := dom.QuerySelector(doc.NodeID, selector).Do(ctx)
	if err != nil || nodeID == 0 {
		return 0, Errorf(protocol.KindNotFound, "no element matches scope selector %q", selector)
	}
	node, err := dom.DescribeNode().WithNodeID(nodeID).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("describe scope node: %w", err)
	}
	return node.BackendNodeID, nil
}

// convertAXTree builds the ref node tree from the flat CDP node list.
// scopeID, when non-zero, selects a subtree root by DOM backend id.
func convertAXTree(axNodes []*accessibility.Node, scopeID cdp.BackendNodeID) (*ref.Node, error) {
	byID := make(map[accessibility.NodeID]*accessibility.Node, len(axNodes))
	for _, n := range axNodes {
		byID[n.NodeID] = n
	}

	var rootAX *accessibility.Node
	for _, n := range axNodes {
		if scopeID != 0 {
			if n.BackendDOMNodeID == scopeID && !n.Ignored {
				rootAX = n
				break
			}
			continue
		}
		if n.ParentID == "" {
			rootAX = n
			break
		}
	}
	if rootAX == nil {
		if scopeID != 0 {
			return nil, Errorf(protocol.KindNotFound, "scope element has no accessibility node")
		}
		return nil, Errorf(protocol.KindBackend, "accessibility tree has no root")
	}
	return convertAXNode(rootAX, byID), nil
}

func convertAXNode(ax *accessibility.Node, byID map[accessibility.NodeID]*accessibility.Node) *ref.Node {
	n := &ref.Node{
		Role:        axString(ax.Role),
		Name:        axString(ax.Name),
		Value:       axString(ax.Value),
		Description: axString(ax.Description),
		BackendID:   int64(ax.BackendDOMNodeID),
	}
	for _, prop := range ax.Properties {
		switch string(prop.Name) {
		case "disabled":
			n.Disabled = n.Disabled || axBool(prop.Value)
		case "focusable":
			n.Focusable = n.Focusable || axBool(prop.Value)
		}
	}
	// The accessibility tree has no cursor-style signal; focusability
	// is the broadened-interactivity proxy the cursor option uses.
	n.Cursor = n.Focusable

	appendChildren(n, ax.ChildIDs, byID)
	return n
}

// appendChildren converts child nodes in document order, splicing
// ignored nodes so their subtrees stay reachable.
func appendChildren(parent *ref.Node, ids []accessibility.NodeID, byID map[accessibility.NodeID]*accessibility.Node) {
	for _, id := range ids {
		child, ok := byID[id]
		if !ok {
			continue
		}
		if child.Ignored {
			appendChildren(parent, child.ChildIDs, byID)
			continue
		}
		parent.Children = append(parent.Children, convertAXNode(child, byID))
	}
}

// axString extracts the string value from a CDP AXValue.
func axString(v *accessibility.Value) string {
	if v == nil || len(v.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(v.Value), &s); err == nil {
		return s
	}
	return strings.Trim(string(v.Value), `"`)
}

// axBool extracts the boolean value from a CDP AXValue.
func axBool(v *accessibility.Value) bool {
	if v == nil || len(v.Value) == 0 {
		return false
	}
	var b bool
	json.Unmarshal([]byte(v.Value), &b)
	return b
}
