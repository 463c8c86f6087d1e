package dom

import "strings"

// Rect is an element's box relative to the document origin.
// Top is the distance from the top of the document, not the viewport.
type Rect struct {
	Top    float64
	Height float64
}

// Node is a borrowed view over a single element in the client document.
type Node struct {
	ID      string
	Tag     string
	Text    string
	Dataset map[string]string

	// Geom is the last reported geometry. Nil means the client never
	// measured this element.
	Geom *Rect

	classes  []string
	style    map[string]string
	children []*Node
	parent   *Node
	doc      *Document
	detached bool
}

// NewNode creates a detached-from-document node with the given tag and ID.
func NewNode(tag, id string) *Node {
	return &Node{
		ID:      id,
		Tag:     tag,
		Dataset: make(map[string]string),
		style:   make(map[string]string),
	}
}

// Append adds child to n and returns the child.
func (n *Node) Append(child *Node) *Node {
	child.parent = n
	child.doc = n.doc
	n.children = append(n.children, child)
	// Late attachment: children added after the parent joined a
	// document inherit the document pointer transitively.
	if n.doc != nil {
		child.adopt(n.doc)
	}
	return child
}

func (n *Node) adopt(d *Document) {
	n.doc = d
	for _, c := range n.children {
		c.adopt(d)
	}
}

// Children returns the node's children in document order.
func (n *Node) Children() []*Node { return n.children }

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// HasClass reports whether the node carries the given class.
func (n *Node) HasClass(class string) bool {
	for _, c := range n.classes {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass adds a class. Adding a class the node already has is a no-op.
func (n *Node) AddClass(class string) {
	if class == "" || n.HasClass(class) {
		return
	}
	n.classes = append(n.classes, class)
	n.record(Patch{Op: PatchAddClass, NodeID: n.ID, Key: class})
}

// RemoveClass removes a class if present.
func (n *Node) RemoveClass(class string) {
	for i, c := range n.classes {
		if c == class {
			n.classes = append(n.classes[:i], n.classes[i+1:]...)
			n.record(Patch{Op: PatchRemoveClass, NodeID: n.ID, Key: class})
			return
		}
	}
}

// ClassList returns the node's classes joined the way a class attribute
// would serialize them.
func (n *Node) ClassList() string { return strings.Join(n.classes, " ") }

// SetText replaces the node's text content.
func (n *Node) SetText(text string) {
	if n.Text == text {
		return
	}
	n.Text = text
	n.record(Patch{Op: PatchSetText, NodeID: n.ID, Value: text})
}

// SetStyle sets an inline style property.
func (n *Node) SetStyle(prop, value string) {
	if n.style[prop] == value {
		return
	}
	n.style[prop] = value
	n.record(Patch{Op: PatchSetStyle, NodeID: n.ID, Key: prop, Value: value})
}

// Style returns the current value of an inline style property.
func (n *Node) Style(prop string) string { return n.style[prop] }

// Data returns a data-* value and whether it was present.
func (n *Node) Data(key string) (string, bool) {
	v, ok := n.Dataset[key]
	return v, ok
}

// Detach marks the node (and its subtree) as removed from the document.
// Scheduled work must check Detached before writing to a node.
func (n *Node) Detach() {
	if n.detached {
		return
	}
	n.markDetached()
	if n.parent != nil {
		for i, c := range n.parent.children {
			if c == n {
				n.parent.children = append(n.parent.children[:i], n.parent.children[i+1:]...)
				break
			}
		}
	}
	n.record(Patch{Op: PatchRemoveNode, NodeID: n.ID})
	n.parent = nil
}

func (n *Node) markDetached() {
	n.detached = true
	for _, c := range n.children {
		c.markDetached()
	}
}

// Detached reports whether the node has been removed from the document.
func (n *Node) Detached() bool { return n.detached }

func (n *Node) record(p Patch) {
	if n.doc == nil {
		return
	}
	// A detached node emits nothing except its own removal.
	if n.detached && p.Op != PatchRemoveNode {
		return
	}
	n.doc.record(p)
}

// Document holds the root of a borrowed element tree and the patch log
// of mutations made through it.
type Document struct {
	root    *Node
	patches []Patch
}

// NewDocument wraps root in a document and starts recording mutations.
func NewDocument(root *Node) *Document {
	d := &Document{root: root}
	root.adopt(d)
	return d
}

// Root returns the document root.
func (d *Document) Root() *Node { return d.root }

func (d *Document) record(p Patch) {
	d.patches = append(d.patches, p)
}

// DrainPatches returns all recorded patches and clears the log.
func (d *Document) DrainPatches() []Patch {
	out := d.patches
	d.patches = nil
	return out
}
