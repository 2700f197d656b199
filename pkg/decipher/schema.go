package decipher

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind selects the parsing mode of a schema.
type Kind string

const (
	KindTree  Kind = "tree"
	KindTable Kind = "table"
)

// Schema is a declarative description of expected response structure. It is
// data, not code: vendor adapters ship default schemas and tests may load
// their own from YAML. The same schema type drives parsing, capture
// extraction, and assertion matching.
type Schema struct {
	Name  string       `yaml:"name"`
	Kind  Kind         `yaml:"kind"`
	Tree  *NodeSchema  `yaml:"tree,omitempty"`
	Table *TableSchema `yaml:"table,omitempty"`

	// CloseMarker overrides the block-closing marker for tree parsing.
	// Empty means DefaultCloseMarker.
	CloseMarker string `yaml:"close_marker,omitempty"`
}

// NodeSchema describes one expected block. Match is a wildcard pattern
// against the node name; an empty Match on the top-level schema addresses
// the document root. A schema describes only the subset of structure a test
// cares about: unexpected extra attributes and children never fail a match,
// but everything declared Required must be present.
type NodeSchema struct {
	Match    string        `yaml:"match"`
	Required bool          `yaml:"required,omitempty"`
	Repeat   bool          `yaml:"repeat,omitempty"` // required one-or-more instead of exactly-once
	Capture  string        `yaml:"capture,omitempty"`
	Attrs    []AttrSpec    `yaml:"attrs,omitempty"`
	Children []*NodeSchema `yaml:"children,omitempty"`
}

// AttrSpec describes one expected attribute. Key and Value are wildcard
// patterns; an empty Value matches any value.
type AttrSpec struct {
	Key      string `yaml:"key"`
	Value    string `yaml:"value,omitempty"`
	Required bool   `yaml:"required,omitempty"`
	Repeat   bool   `yaml:"repeat,omitempty"`
	Capture  string `yaml:"capture,omitempty"`
}

// TableSchema describes tabular output: the declared columns in header
// order, and which column is the row key. Rows missing the key cell are
// continuation candidates.
type TableSchema struct {
	Key     string       `yaml:"key"`
	Columns []ColumnSpec `yaml:"columns"`
}

// ColumnSpec declares one table column. Optional columns may be absent from
// the header and blank in rows. Match, when set, is a wildcard pattern a
// cell must satisfy for the row's cell to be captured under Capture.
type ColumnSpec struct {
	Name     string `yaml:"name"`
	Optional bool   `yaml:"optional,omitempty"`
	Match    string `yaml:"match,omitempty"`
	Capture  string `yaml:"capture,omitempty"`
}

// Validate checks internal schema consistency.
func (s *Schema) Validate() error {
	switch s.Kind {
	case KindTree:
		if s.Tree == nil {
			return fmt.Errorf("schema %q: kind tree requires a tree section", s.Name)
		}
	case KindTable:
		if s.Table == nil {
			return fmt.Errorf("schema %q: kind table requires a table section", s.Name)
		}
		if s.Table.Key == "" {
			return fmt.Errorf("schema %q: table schema requires a key column", s.Name)
		}
		found := false
		for _, c := range s.Table.Columns {
			if c.Name == s.Table.Key {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("schema %q: key column %q is not declared", s.Name, s.Table.Key)
		}
	default:
		return fmt.Errorf("schema %q: unknown kind %q", s.Name, s.Kind)
	}
	return nil
}

// LoadSchema parses a schema from YAML.
func LoadSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSchemaFile parses a schema from a YAML file.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	s, err := LoadSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
