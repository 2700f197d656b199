package decipher

import "fmt"

// MatchResult holds the named captures collected while matching a schema
// against parsed output. Values keep source order and may repeat; callers
// that need set semantics deduplicate on bind.
type MatchResult struct {
	Captures map[string][]string
}

func newMatchResult() *MatchResult {
	return &MatchResult{Captures: make(map[string][]string)}
}

func (m *MatchResult) add(name, value string) {
	if name == "" || value == "" {
		return
	}
	m.Captures[name] = append(m.Captures[name], value)
}

func (m *MatchResult) merge(other *MatchResult) {
	for name, vals := range other.Captures {
		m.Captures[name] = append(m.Captures[name], vals...)
	}
}

// MatchTree matches a node schema against a parsed tree. The schema is
// anchored but partial-output tolerant: structure beyond what the schema
// declares is ignored, but each Required element must match exactly once
// (Repeat: one or more) or the match fails with *SchemaMismatchError naming
// the missing path.
func MatchTree(root *Node, ns *NodeSchema, schemaName string) (*MatchResult, error) {
	if ns == nil {
		return newMatchResult(), nil
	}
	if ns.Match == "" {
		res := newMatchResult()
		if err := matchNode(root, ns, "", schemaName, res); err != nil {
			return nil, err
		}
		return res, nil
	}
	wrapper := &NodeSchema{Children: []*NodeSchema{ns}}
	res := newMatchResult()
	if err := matchNode(root, wrapper, "", schemaName, res); err != nil {
		return nil, err
	}
	return res, nil
}

// matchNode verifies the attrs and children the schema declares for a node
// whose name has already been matched, collecting captures into res.
func matchNode(node *Node, ns *NodeSchema, path, schemaName string, res *MatchResult) error {
	for _, spec := range ns.Attrs {
		if err := matchAttr(node, spec, path, schemaName, res); err != nil {
			return err
		}
	}
	for _, cs := range ns.Children {
		if err := matchChild(node, cs, path, schemaName, res); err != nil {
			return err
		}
	}
	return nil
}

func matchAttr(node *Node, spec AttrSpec, path, schemaName string, res *MatchResult) error {
	attrPath := path + "/@" + spec.Key
	count := 0
	for _, a := range node.Attrs {
		if _, ok := MatchPattern(spec.Key, a.Key); !ok {
			continue
		}
		capture := a.Value
		if spec.Value != "" {
			span, ok := MatchPattern(spec.Value, a.Value)
			if !ok {
				continue
			}
			if span != "" {
				capture = span
			}
		}
		count++
		res.add(spec.Capture, capture)
	}

	if spec.Required && count == 0 {
		return &SchemaMismatchError{Schema: schemaName, Path: attrPath, Msg: "not found"}
	}
	if spec.Required && !spec.Repeat && count > 1 {
		return &SchemaMismatchError{
			Schema: schemaName,
			Path:   attrPath,
			Msg:    fmt.Sprintf("matched %d times, expected exactly one", count),
		}
	}
	return nil
}

func matchChild(node *Node, cs *NodeSchema, path, schemaName string, res *MatchResult) error {
	childPath := path + "/" + cs.Match
	count := 0
	var firstErr error
	for _, c := range node.Children {
		span, ok := MatchPattern(cs.Match, c.Name)
		if !ok {
			continue
		}
		trial := newMatchResult()
		if err := matchNode(c, cs, childPath, schemaName, trial); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		count++
		if cs.Capture != "" {
			if span == "" {
				span = c.Name
			}
			res.add(cs.Capture, span)
		}
		res.merge(trial)
	}

	if cs.Required && count == 0 {
		if firstErr != nil {
			return firstErr
		}
		return &SchemaMismatchError{Schema: schemaName, Path: childPath, Msg: "not found"}
	}
	if cs.Required && !cs.Repeat && count > 1 {
		return &SchemaMismatchError{
			Schema: schemaName,
			Path:   childPath,
			Msg:    fmt.Sprintf("matched %d times, expected exactly one", count),
		}
	}
	return nil
}

// MatchTable applies the column Match patterns of a table schema to an
// already-parsed table. A column with a Match pattern must have at least one
// matching cell; matching cells are collected under the column's Capture
// name, continuation values included.
func MatchTable(t *Table, ts *TableSchema, schemaName string) (*MatchResult, error) {
	res := newMatchResult()
	for _, c := range ts.Columns {
		if c.Match == "" && c.Capture == "" {
			continue
		}
		count := 0
		for _, row := range t.Rows {
			for _, val := range row.All(c.Name) {
				capture := val
				if c.Match != "" {
					span, ok := MatchPattern(c.Match, val)
					if !ok {
						continue
					}
					if span != "" {
						capture = span
					}
				}
				count++
				res.add(c.Capture, capture)
			}
		}
		if c.Match != "" && count == 0 {
			return nil, &SchemaMismatchError{
				Schema: schemaName,
				Path:   c.Name,
				Msg:    fmt.Sprintf("no cell matches %q", c.Match),
			}
		}
	}
	return res, nil
}
