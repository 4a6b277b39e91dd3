// Package diff implements the reverse path's read side: parsing a
// designer-edited XML export, extracting the element hierarchy and scalar
// properties, and diffing both against the snapshot taken at generation
// time.
package diff

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedXML marks an export that cannot be parsed.
var ErrMalformedXML = errors.New("diff: malformed xml")

// Node is one parsed XML element. Names are local names; namespace
// prefixes from the export are dropped, attribute names likewise.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

var xmlBOM = []byte{0xEF, 0xBB, 0xBF}

// ParseXML parses a UTF-8 export document into a node tree.
func ParseXML(payload []byte) (*Node, error) {
	payload = bytes.TrimPrefix(payload, xmlBOM)
	dec := xml.NewDecoder(bytes.NewReader(payload))

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local, Attrs: map[string]string{}}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				node.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedXML)
	}
	trimText(root)
	return root, nil
}

func trimText(n *Node) {
	n.Text = strings.TrimSpace(n.Text)
	for _, c := range n.Children {
		trimText(c)
	}
}

// Child returns the first child with the given local name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all children with the given local name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// ChildText returns the text of the first child with the given name.
func (n *Node) ChildText(name string) string {
	if c := n.Child(name); c != nil {
		return c.Text
	}
	return ""
}

// Find walks a path of child names and returns the node at its end.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, name := range path {
		if cur = cur.Child(name); cur == nil {
			return nil
		}
	}
	return cur
}

// Attr returns an attribute by local name.
func (n *Node) Attr(name string) string {
	return n.Attrs[name]
}

// LocaleText reads the v8 multilingual item list under the first child
// with the given name into a lang→content map.
func (n *Node) LocaleText(name string) map[string]string {
	out := map[string]string{}
	block := n.Child(name)
	if block == nil {
		return out
	}
	for _, item := range block.ChildrenNamed("item") {
		lang := item.ChildText("lang")
		if lang == "" {
			continue
		}
		out[lang] = item.ChildText("content")
	}
	return out
}
