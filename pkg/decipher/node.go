package decipher

import (
	"strings"
)

// Attr is a single key/value attribute on a Node. Attributes preserve source
// order and may repeat.
type Attr struct {
	Key   string
	Value string
}

// Node is one block in a hierarchical CLI response: a name, an ordered list
// of attributes, and an ordered list of child blocks. Sibling names need not
// be unique — repeated stanzas (e.g. multiple "interface" blocks) stay as a
// sequence in source order.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
}

// Attr returns the value of the first attribute whose key matches the given
// pattern, and whether one was found.
func (n *Node) Attr(keyPattern string) (string, bool) {
	for _, a := range n.Attrs {
		if _, ok := MatchPattern(keyPattern, a.Key); ok {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValues returns the values of every attribute whose key matches the
// given pattern, in source order.
func (n *Node) AttrValues(keyPattern string) []string {
	var vals []string
	for _, a := range n.Attrs {
		if _, ok := MatchPattern(keyPattern, a.Key); ok {
			vals = append(vals, a.Value)
		}
	}
	return vals
}

// Child returns the first child whose name matches the given pattern.
func (n *Node) Child(namePattern string) *Node {
	for _, c := range n.Children {
		if _, ok := MatchPattern(namePattern, c.Name); ok {
			return c
		}
	}
	return nil
}

// ChildNodes returns every child whose name matches the given pattern, in
// source order.
func (n *Node) ChildNodes(namePattern string) []*Node {
	var nodes []*Node
	for _, c := range n.Children {
		if _, ok := MatchPattern(namePattern, c.Name); ok {
			nodes = append(nodes, c)
		}
	}
	return nodes
}

// Serialize renders the tree back to indented text using the given indent
// width. Every block closes with the default marker at its own indent, so
// parsing the output with ParseTree and the default close marker yields an
// identical tree; without the marker an empty block would re-parse as an
// attribute.
func (n *Node) Serialize(indentWidth int) string {
	var b strings.Builder
	n.serialize(&b, 0, indentWidth)
	return b.String()
}

func (n *Node) serialize(b *strings.Builder, depth, width int) {
	pad := strings.Repeat(" ", depth*width)
	inner := pad
	if n.Name != "" {
		b.WriteString(pad)
		b.WriteString(n.Name)
		b.WriteString("\n")
		inner = strings.Repeat(" ", (depth+1)*width)
	}
	for _, a := range n.Attrs {
		b.WriteString(inner)
		b.WriteString(a.Key)
		// A trailing colon keeps multi-word keys with empty values intact
		// across a re-parse.
		if a.Value == "" {
			b.WriteString(":")
		} else {
			b.WriteString(": ")
			b.WriteString(a.Value)
		}
		b.WriteString("\n")
	}
	for _, c := range n.Children {
		if n.Name != "" {
			c.serialize(b, depth+1, width)
		} else {
			c.serialize(b, depth, width)
		}
	}
	if n.Name != "" {
		b.WriteString(pad)
		b.WriteString(DefaultCloseMarker)
		b.WriteString("\n")
	}
}
