package decipher

import (
	"fmt"
	"strings"
)

// Capture extracts values from a parsed result at a capture path.
//
// The path is resolved in this order:
//
//  1. A named capture declared by the schema ("iface").
//  2. For tables, a column expression: "Interface" takes every value of the
//     column (continuations included); "Interface=bundle-*" takes only the
//     cells matching the pattern.
//  3. For trees, a slash-separated node path ("Instance */bundle-*"): each
//     segment is a name pattern, the final segment yields the wildcard span
//     of the matched names — or, prefixed with "@", the values of matching
//     attributes ("Destination: */@next-hop*").
//
// Values keep source order; an unmatched path yields no values, not an
// error. Errors are reserved for paths that cannot apply to the result at
// all.
func Capture(res *Result, path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("empty capture path")
	}
	if vals, ok := res.Captures[path]; ok {
		return vals, nil
	}

	if res.Table != nil {
		return captureColumn(res.Table, path)
	}
	if res.Tree != nil {
		return captureTreePath(res.Tree, path)
	}
	return nil, fmt.Errorf("capture path %q: result holds no parsed data", path)
}

func captureColumn(t *Table, expr string) ([]string, error) {
	column := expr
	pattern := ""
	if idx := strings.Index(expr, "="); idx >= 0 {
		column = expr[:idx]
		pattern = expr[idx+1:]
	}

	known := false
	for _, c := range t.Columns {
		if c == column {
			known = true
		}
	}
	if !known {
		return nil, fmt.Errorf("capture path %q: table has no column %q", expr, column)
	}

	var vals []string
	for _, row := range t.Rows {
		for _, v := range row.All(column) {
			if pattern == "" {
				vals = append(vals, v)
				continue
			}
			span, ok := MatchPattern(pattern, v)
			if !ok {
				continue
			}
			if span == "" {
				span = v
			}
			vals = append(vals, span)
		}
	}
	return vals, nil
}

func captureTreePath(root *Node, path string) ([]string, error) {
	segments := strings.Split(path, "/")
	nodes := []*Node{root}

	for _, seg := range segments[:len(segments)-1] {
		var next []*Node
		for _, n := range nodes {
			next = append(next, n.ChildNodes(seg)...)
		}
		nodes = next
	}

	last := segments[len(segments)-1]
	var vals []string

	if strings.HasPrefix(last, "@") {
		keyPattern := strings.TrimPrefix(last, "@")
		for _, n := range nodes {
			vals = append(vals, n.AttrValues(keyPattern)...)
		}
		return vals, nil
	}

	for _, n := range nodes {
		for _, c := range n.Children {
			span, ok := MatchPattern(last, c.Name)
			if !ok {
				continue
			}
			if span == "" {
				span = c.Name
			}
			vals = append(vals, span)
		}
	}
	return vals, nil
}
