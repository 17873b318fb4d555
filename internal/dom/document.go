package dom

// Document is a mutable tree rooted at an invisible document node whose
// single element child is the document element (the view root).
type Document struct {
	root *Node
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	d := &Document{}
	d.root = &Node{Kind: DocumentNode, owner: d}
	return d
}

// Root returns the document node.
func (d *Document) Root() *Node {
	return d.root
}

// DocumentElement returns the first element child of the document node, or
// nil for an empty document.
func (d *Document) DocumentElement() *Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind == ElementNode {
			return c
		}
	}
	return nil
}

// CreateElement returns a detached element owned by d.
func (d *Document) CreateElement(name string, attrs ...Attr) *Node {
	n := &Node{Kind: ElementNode, Name: name, owner: d}
	if len(attrs) > 0 {
		n.Attrs = append([]Attr(nil), attrs...)
	}
	return n
}

// CreateText returns a detached text node owned by d.
func (d *Document) CreateText(data string) *Node {
	return &Node{Kind: TextNode, Data: data, owner: d}
}

// CreateComment returns a detached comment node owned by d.
func (d *Document) CreateComment(data string) *Node {
	return &Node{Kind: CommentNode, Data: data, owner: d}
}

// Clone returns a deep copy of d with an independent lifetime.
func (d *Document) Clone() *Document {
	c := NewDocument()
	for n := d.root.FirstChild; n != nil; n = n.NextSibling {
		c.root.AppendChild(c.ImportNode(n, true))
	}
	return c
}

// ImportNode returns a copy of n owned by d. With deep set, the whole
// subtree is copied. The copy is never an alias of n, even when n already
// belongs to d.
func (d *Document) ImportNode(n *Node, deep bool) *Node {
	if n.Kind == DocumentNode {
		panic("dom: a document node cannot be imported")
	}
	cp := &Node{
		Kind:  n.Kind,
		Name:  n.Name,
		Data:  n.Data,
		owner: d,
	}
	if len(n.Attrs) > 0 {
		cp.Attrs = append([]Attr(nil), n.Attrs...)
	}
	if deep {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			cp.AppendChild(d.ImportNode(c, true))
		}
	}
	return cp
}
