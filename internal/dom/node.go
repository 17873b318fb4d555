package dom

import "strings"

// NodeKind identifies the kind of a tree node.
type NodeKind int

const (
	// DocumentNode is the invisible root that owns the document element.
	DocumentNode NodeKind = iota
	// ElementNode is a named element with attributes and children.
	ElementNode
	// TextNode holds character data.
	TextNode
	// CommentNode holds a comment body.
	CommentNode
)

// String returns the kind name used in log output.
func (k NodeKind) String() string {
	switch k {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return "unknown"
	}
}

// Attr is a single element attribute. Attribute order is preserved so that
// serialization is deterministic.
type Attr struct {
	Name  string
	Value string
}

// Node is one node of a Document tree.
//
// Nodes are linked both ways (parent/children, previous/next sibling) so the
// xpath navigator can walk the tree without index lookups.
//
// Every node is owned by exactly one Document. Structural operations that
// would link nodes of two different documents panic: use
// Document.ImportNode to obtain an owned copy first.
type Node struct {
	Kind  NodeKind
	Name  string // element name (possibly prefixed, e.g. "x:panel")
	Data  string // text or comment content
	Attrs []Attr

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node

	owner *Document
}

// Owner returns the document that owns n.
func (n *Node) Owner() *Document {
	return n.owner
}

// IsElement reports whether n is an element node.
func (n *Node) IsElement() bool {
	return n != nil && n.Kind == ElementNode
}

// Attr returns the value of the named attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue returns the value of the named attribute, or "" when absent.
func (n *Node) AttrValue(name string) string {
	v, _ := n.Attr(name)
	return v
}

// SetAttr sets or overwrites an attribute. New attributes are appended
// after existing ones.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes an attribute. Removing a missing attribute is a no-op.
func (n *Node) RemoveAttr(name string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// Children returns the direct children of n in document order.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Elements returns the direct element children of n in document order.
func (n *Node) Elements() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Index returns the position of n among its parent's children, or -1 when
// n is detached.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	i := 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			return i
		}
		i++
	}
	return -1
}

// Attached reports whether n is reachable from its owner's document node.
func (n *Node) Attached() bool {
	if n == nil || n.owner == nil {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p == n.owner.root {
			return true
		}
	}
	return false
}

// Contains reports whether other is n or one of n's descendants.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// Text returns the concatenated character data of n and its descendants.
func (n *Node) Text() string {
	switch n.Kind {
	case TextNode, CommentNode:
		return n.Data
	}
	var b strings.Builder
	var walk func(*Node)
	walk = func(x *Node) {
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			switch c.Kind {
			case TextNode:
				b.WriteString(c.Data)
			case ElementNode:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// AppendChild adds c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	n.insertBetween(c, n.LastChild, nil)
}

// PrependChild adds c as the first child of n.
func (n *Node) PrependChild(c *Node) {
	n.insertBetween(c, nil, n.FirstChild)
}

// InsertChild inserts c so that it ends up at position index among n's
// children. An index past the end appends.
func (n *Node) InsertChild(c *Node, index int) {
	if c.Parent == n {
		n.RemoveChild(c)
	}
	ref := n.FirstChild
	for i := 0; i < index && ref != nil; i++ {
		ref = ref.NextSibling
	}
	n.InsertBefore(c, ref)
}

// InsertBefore inserts c immediately before ref. A nil ref appends.
func (n *Node) InsertBefore(c, ref *Node) {
	if ref == nil {
		n.AppendChild(c)
		return
	}
	if ref.Parent != n {
		panic("dom: reference node is not a child of the parent")
	}
	if ref == c {
		return
	}
	n.insertBetween(c, ref.PrevSibling, ref)
}

// InsertAfter inserts c immediately after ref. A nil ref prepends.
func (n *Node) InsertAfter(c, ref *Node) {
	if ref == nil {
		n.PrependChild(c)
		return
	}
	if ref.Parent != n {
		panic("dom: reference node is not a child of the parent")
	}
	if ref == c {
		return
	}
	n.insertBetween(c, ref, ref.NextSibling)
}

// RemoveChild detaches c from n. c keeps its owner and its own subtree.
func (n *Node) RemoveChild(c *Node) {
	if c.Parent != n {
		panic("dom: node is not a child of the parent")
	}
	if c.PrevSibling != nil {
		c.PrevSibling.NextSibling = c.NextSibling
	} else {
		n.FirstChild = c.NextSibling
	}
	if c.NextSibling != nil {
		c.NextSibling.PrevSibling = c.PrevSibling
	} else {
		n.LastChild = c.PrevSibling
	}
	c.Parent = nil
	c.PrevSibling = nil
	c.NextSibling = nil
}

// ReplaceChild puts newNode in the place of oldNode and detaches oldNode.
func (n *Node) ReplaceChild(newNode, oldNode *Node) {
	if oldNode.Parent != n {
		panic("dom: replaced node is not a child of the parent")
	}
	if newNode == oldNode {
		return
	}
	n.InsertBefore(newNode, oldNode)
	n.RemoveChild(oldNode)
}

// insertBetween links c between prev and next (either may be nil), first
// detaching c from wherever it currently is.
func (n *Node) insertBetween(c, prev, next *Node) {
	n.checkInsert(c)
	if c.Parent != nil {
		// prev/next may be c's current neighbours; re-read them after detaching.
		if prev == c || next == c {
			return
		}
		c.Parent.RemoveChild(c)
	}
	c.Parent = n
	c.PrevSibling = prev
	c.NextSibling = next
	if prev != nil {
		prev.NextSibling = c
	} else {
		n.FirstChild = c
	}
	if next != nil {
		next.PrevSibling = c
	} else {
		n.LastChild = c
	}
}

func (n *Node) checkInsert(c *Node) {
	if c.owner != n.owner {
		panic("dom: node belongs to another document; use ImportNode")
	}
	if c.Kind == DocumentNode {
		panic("dom: a document node cannot be inserted")
	}
	if c.Contains(n) {
		panic("dom: cannot insert a node into its own subtree")
	}
}
