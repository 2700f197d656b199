// Package decipher converts raw CLI text into structured trees and tables
// driven by declarative response schemas. It is independent of vendor and
// session state: the session manager produces text, a vendor adapter
// normalizes it, and decipher gives it shape.
//
// Two parsing modes exist, selected by the schema kind: hierarchical
// (indentation-nested configuration blocks) and tabular (header-aligned
// columns with continuation rows). Both support wildcard capture tokens so
// values like "bundle-178" can be extracted for later parameterized
// commands.
package decipher

// Result is the outcome of parsing one raw response against a schema.
// Exactly one of Tree or Table is set, per the schema kind. Captures holds
// the schema's named captures in source order.
type Result struct {
	SchemaName string
	Tree       *Node
	Table      *Table
	Captures   map[string][]string
}

// Skipped returns the skipped-row diagnostics for tabular results, nil
// otherwise. Diagnostics accompany the parsed rows; they are never dropped.
func (r *Result) Skipped() []SkippedRow {
	if r.Table == nil {
		return nil
	}
	return r.Table.Skipped
}

// Parse converts raw response text into a structured result per the schema.
// Parse failures are fatal to this call only: they never corrupt previously
// established results or bindings.
func Parse(text string, s *Schema) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	res := &Result{SchemaName: s.Name}

	switch s.Kind {
	case KindTree:
		marker := s.CloseMarker
		if marker == "" {
			marker = DefaultCloseMarker
		}
		root, err := ParseTree(text, TreeOptions{CloseMarker: marker})
		if err != nil {
			return nil, err
		}
		m, err := MatchTree(root, s.Tree, s.Name)
		if err != nil {
			return nil, err
		}
		res.Tree = root
		res.Captures = m.Captures

	case KindTable:
		table, err := ParseTable(text, s.Table)
		if err != nil {
			return nil, err
		}
		m, err := MatchTable(table, s.Table, s.Name)
		if err != nil {
			return nil, err
		}
		res.Table = table
		res.Captures = m.Captures
	}

	return res, nil
}
