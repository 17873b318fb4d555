package dom

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyDocument is returned when the input holds no element.
var ErrEmptyDocument = errors.New("dom: document has no root element")

// Parse reads an XML document into a new Document.
//
// Whitespace-only character data is dropped, processing instructions and
// directives are ignored, and all text and attribute values are NFC
// normalized. Namespace prefixes are kept literally in element and
// attribute names.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true

	doc := NewDocument()
	parent := doc.root
	var stack []string

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dom: parse: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if parent == doc.root && doc.DocumentElement() != nil {
				return nil, fmt.Errorf("dom: parse: multiple root elements (second is <%s>)", qualified(t.Name))
			}
			el := doc.CreateElement(qualified(t.Name))
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: qualified(a.Name), Value: norm.NFC.String(a.Value)})
			}
			parent.AppendChild(el)
			parent = el
			stack = append(stack, el.Name)
		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return nil, fmt.Errorf("dom: parse: unexpected </%s>", name)
			}
			stack = stack[:len(stack)-1]
			parent = parent.Parent
		case xml.CharData:
			if parent == doc.root || len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			parent.AppendChild(doc.CreateText(norm.NFC.String(string(t))))
		case xml.Comment:
			parent.AppendChild(doc.CreateComment(norm.NFC.String(string(t))))
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("dom: parse: unclosed <%s>", stack[len(stack)-1])
	}
	if doc.DocumentElement() == nil {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// MustParse is like ParseString but panics on error.
// Use only in tests or with literal input known to be valid.
func MustParse(s string) *Document {
	d, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Marshal serializes d with two-space indentation and a trailing newline.
// The output depends only on the tree, never on how it was built.
func Marshal(d *Document) []byte {
	var b bytes.Buffer
	writeDocument(&b, d, "  ")
	return b.Bytes()
}

// MarshalCompact serializes d without any added whitespace.
func MarshalCompact(d *Document) []byte {
	var b bytes.Buffer
	writeDocument(&b, d, "")
	return b.Bytes()
}

// MarshalNode serializes a single subtree without added whitespace.
func MarshalNode(n *Node) []byte {
	var b bytes.Buffer
	writeNode(&b, n, "", 0)
	return b.Bytes()
}

func writeDocument(b *bytes.Buffer, d *Document, indent string) {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		writeNode(b, c, indent, 0)
		if indent != "" {
			b.WriteByte('\n')
		}
	}
}

func writeNode(b *bytes.Buffer, n *Node, indent string, depth int) {
	switch n.Kind {
	case TextNode:
		escapeText(b, n.Data)
		return
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->")
		return
	case DocumentNode:
		return
	}

	b.WriteByte('<')
	b.WriteString(n.Name)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		escapeAttr(b, a.Value)
		b.WriteByte('"')
	}
	if n.FirstChild == nil {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')

	// Mixed content is written verbatim so text never gains whitespace.
	pretty := indent != "" && !hasText(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pretty {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(indent, depth+1))
			writeNode(b, c, indent, depth+1)
		} else {
			writeNode(b, c, "", 0)
		}
	}
	if pretty {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(indent, depth))
	}
	b.WriteString("</")
	b.WriteString(n.Name)
	b.WriteByte('>')
}

func hasText(n *Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind == TextNode {
			return true
		}
	}
	return false
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func escapeText(b *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\r':
			b.WriteString("&#xD;")
		default:
			b.WriteRune(r)
		}
	}
}

func escapeAttr(b *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\n':
			b.WriteString("&#xA;")
		case '\r':
			b.WriteString("&#xD;")
		case '\t':
			b.WriteString("&#x9;")
		default:
			b.WriteRune(r)
		}
	}
}
