package dom

import "strings"

// Query returns the first node under root (inclusive) matching selector,
// or nil when nothing matches. Callers must treat a nil result as "the
// element is absent" and degrade to a no-op rather than dereference it.
func Query(root *Node, selector string) *Node {
	if root == nil {
		return nil
	}
	if matches(root, selector) {
		return root
	}
	for _, c := range root.children {
		if found := Query(c, selector); found != nil {
			return found
		}
	}
	return nil
}

// QueryAll returns every node under root (inclusive) matching selector,
// in document order. A selector that matches nothing yields an empty
// slice.
func QueryAll(root *Node, selector string) []*Node {
	var out []*Node
	if root == nil {
		return out
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		if matches(n, selector) {
			out = append(out, n)
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// matches supports the selector forms the markup contract uses:
// ".class", "#id", and bare tag names.
func matches(n *Node, selector string) bool {
	switch {
	case strings.HasPrefix(selector, "."):
		return n.HasClass(selector[1:])
	case strings.HasPrefix(selector, "#"):
		return n.ID == selector[1:]
	default:
		return n.Tag == selector
	}
}
