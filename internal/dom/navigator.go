package dom

import (
	"strings"

	"github.com/antchfx/xpath"
)

// Navigator walks a Document for github.com/antchfx/xpath.
//
// The navigator sits either on a node, or (attr >= 0) on one attribute of
// the current element.
type Navigator struct {
	root *Node
	curr *Node
	attr int
}

var _ xpath.NodeNavigator = (*Navigator)(nil)

// NewNavigator returns a navigator positioned at the document node of d.
func NewNavigator(d *Document) *Navigator {
	return &Navigator{root: d.root, curr: d.root, attr: -1}
}

// Current returns the node the navigator sits on. When positioned on an
// attribute it returns the owning element.
func (x *Navigator) Current() *Node {
	return x.curr
}

// OnAttribute reports whether the navigator is positioned on an attribute.
func (x *Navigator) OnAttribute() bool {
	return x.attr != -1
}

func (x *Navigator) NodeType() xpath.NodeType {
	switch x.curr.Kind {
	case DocumentNode:
		return xpath.RootNode
	case TextNode:
		return xpath.TextNode
	case CommentNode:
		return xpath.CommentNode
	}
	if x.attr != -1 {
		return xpath.AttributeNode
	}
	return xpath.ElementNode
}

func (x *Navigator) LocalName() string {
	if x.attr != -1 {
		_, local := splitName(x.curr.Attrs[x.attr].Name)
		return local
	}
	_, local := splitName(x.curr.Name)
	return local
}

func (x *Navigator) Prefix() string {
	if x.attr != -1 {
		prefix, _ := splitName(x.curr.Attrs[x.attr].Name)
		return prefix
	}
	prefix, _ := splitName(x.curr.Name)
	return prefix
}

// NamespaceURL is always empty: view documents are matched on local names.
func (x *Navigator) NamespaceURL() string {
	return ""
}

func (x *Navigator) Value() string {
	if x.attr != -1 {
		return x.curr.Attrs[x.attr].Value
	}
	return x.curr.Text()
}

func (x *Navigator) Copy() xpath.NodeNavigator {
	n := *x
	return &n
}

func (x *Navigator) MoveToRoot() {
	x.curr = x.root
	x.attr = -1
}

func (x *Navigator) MoveToParent() bool {
	if x.attr != -1 {
		x.attr = -1
		return true
	}
	if x.curr.Parent != nil {
		x.curr = x.curr.Parent
		return true
	}
	return false
}

func (x *Navigator) MoveToNextAttribute() bool {
	if x.curr.Kind != ElementNode || x.attr >= len(x.curr.Attrs)-1 {
		return false
	}
	x.attr++
	return true
}

func (x *Navigator) MoveToChild() bool {
	if x.attr != -1 {
		return false
	}
	if x.curr.FirstChild != nil {
		x.curr = x.curr.FirstChild
		return true
	}
	return false
}

func (x *Navigator) MoveToFirst() bool {
	if x.attr != -1 || x.curr.PrevSibling == nil {
		return false
	}
	for x.curr.PrevSibling != nil {
		x.curr = x.curr.PrevSibling
	}
	return true
}

func (x *Navigator) MoveToNext() bool {
	if x.attr != -1 {
		return false
	}
	if x.curr.NextSibling != nil {
		x.curr = x.curr.NextSibling
		return true
	}
	return false
}

func (x *Navigator) MoveToPrevious() bool {
	if x.attr != -1 {
		return false
	}
	if x.curr.PrevSibling != nil {
		x.curr = x.curr.PrevSibling
		return true
	}
	return false
}

func (x *Navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*Navigator)
	if !ok || o.root != x.root {
		return false
	}
	x.curr = o.curr
	x.attr = o.attr
	return true
}

func splitName(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
