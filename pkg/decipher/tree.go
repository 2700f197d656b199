package decipher

import (
	"strings"
)

// DefaultCloseMarker is the standalone line that closes one block level in
// most CLI configuration dumps.
const DefaultCloseMarker = "!"

// TreeOptions control hierarchical parsing.
type TreeOptions struct {
	// CloseMarker is a standalone line that pops one level without opening
	// anything. Empty disables marker handling.
	CloseMarker string
}

// ParseTree stack-parses indentation-nested text into a Node tree rooted at
// a synthetic unnamed node. A line indented deeper than the current block
// opens a child, equal indentation opens a sibling, shallower indentation
// pops back to the matching depth. A line becomes a block when it is
// followed by a deeper line, or by a close marker at its own indent (an
// empty block); all other lines become attributes of the current block.
//
// Close markers sit at the indent of the block they close and pop every
// block opened at or below that indent. A marker with no open block — a
// dedent below the root — fails with *ParseStructureError rather than
// clamping.
func ParseTree(text string, opts TreeOptions) (*Node, error) {
	type frame struct {
		indent int
		node   *Node
	}

	root := &Node{}
	stack := []frame{{indent: -1, node: root}}

	lines := splitLines(text)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		indent := indentOf(line)

		if opts.CloseMarker != "" && trimmed == opts.CloseMarker {
			if len(stack) == 1 {
				return nil, &ParseStructureError{
					Line: i + 1,
					Text: trimmed,
					Msg:  "close marker with no open block",
				}
			}
			popped := false
			for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
				stack = stack[:len(stack)-1]
				popped = true
			}
			// Marker deeper than any opener still closes the innermost block.
			if !popped {
				stack = stack[:len(stack)-1]
			}
			continue
		}

		// Pop to the enclosing block: matching or lesser depth.
		for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node

		if opensBlock(lines, i, indent, opts.CloseMarker) {
			node := &Node{Name: strings.TrimSuffix(trimmed, ":")}
			parent.Children = append(parent.Children, node)
			stack = append(stack, frame{indent: indent, node: node})
			continue
		}

		key, value := splitAttr(trimmed)
		parent.Attrs = append(parent.Attrs, Attr{Key: key, Value: value})
	}

	return root, nil
}

// opensBlock reports whether the line at index i starts a block: the next
// content line is deeper, or is a close marker at the same indent (an empty
// block).
func opensBlock(lines []string, i, indent int, marker string) bool {
	for j := i + 1; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		next := indentOf(lines[j])
		if marker != "" && trimmed == marker {
			return next == indent
		}
		return next > indent
	}
	return false
}

// splitLines splits on newlines and drops carriage returns, which device
// output is full of.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.ReplaceAll(l, "\r", "")
	}
	return lines
}

// indentOf measures leading whitespace. Tabs count as a single column; CLI
// output indents with spaces.
func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// splitAttr splits an attribute line into key and value. A colon ending the
// first token separates key from value ("next-hop(1): 10.0.0.1 Active"); a
// trailing colon makes the whole line the key ("IPv4 Forwarding Table:");
// otherwise the first whitespace splits ("mtu 9100").
func splitAttr(line string) (key, value string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	if strings.HasSuffix(fields[0], ":") && len(fields) > 1 {
		key = strings.TrimSuffix(fields[0], ":")
		value = strings.TrimSpace(line[len(fields[0]):])
		return key, value
	}
	if strings.HasSuffix(line, ":") {
		return strings.TrimSuffix(line, ":"), ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	key = fields[0]
	value = strings.TrimSpace(line[len(fields[0]):])
	return key, value
}
