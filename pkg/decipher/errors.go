package decipher

import (
	"errors"
	"fmt"
)

// Sentinel errors for parse failures
var (
	ErrParseStructure = errors.New("malformed response structure")
	ErrSchemaMismatch = errors.New("required structure not found")
)

// ParseStructureError reports malformed indentation or table structure.
// It is fatal to the current parse call only.
type ParseStructureError struct {
	Line int    // 1-based line number in the input
	Text string // offending line
	Msg  string
}

func (e *ParseStructureError) Error() string {
	return fmt.Sprintf("parse structure error at line %d: %s (%q)", e.Line, e.Msg, e.Text)
}

func (e *ParseStructureError) Unwrap() error {
	return ErrParseStructure
}

// SchemaMismatchError reports a required schema element that was not found
// (or was found more than once when not repeatable).
type SchemaMismatchError struct {
	Schema string
	Path   string // slash-separated path to the missing element
	Msg    string
}

func (e *SchemaMismatchError) Error() string {
	msg := fmt.Sprintf("schema mismatch at %s", e.Path)
	if e.Schema != "" {
		msg = fmt.Sprintf("schema %q mismatch at %s", e.Schema, e.Path)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}
