package binding

import (
	"errors"
	"fmt"

	"github.com/netcheck-network/netcheck/pkg/decipher"
	"github.com/netcheck-network/netcheck/pkg/session"
)

// AssertionResult is the immutable outcome of one assertion: pass/fail, the
// command whose output was checked, evidence for a failure, and the captures
// the match produced. A mismatch is data, never a Go error; the caller
// decides whether it aborts anything.
type AssertionResult struct {
	Passed   bool
	Schema   string
	Device   string
	Command  string
	Evidence string
	Captures map[string][]string
}

// AssertMatch checks a command response against an expected schema. Both
// structural failures (output did not parse) and schema mismatches (required
// element absent) fail the assertion; the evidence names what was missing.
// The store is never mutated.
func AssertMatch(resp *session.RawResponse, expected *decipher.Schema) AssertionResult {
	result := AssertionResult{
		Schema:  expected.Name,
		Device:  resp.Device,
		Command: resp.Command,
	}

	parsed, err := decipher.Parse(resp.Output, expected)
	if err != nil {
		result.Evidence = assertionEvidence(err)
		return result
	}
	result.Passed = true
	result.Captures = parsed.Captures
	return result
}

// AssertParsed checks an already-parsed result against an expected schema of
// the same kind, for callers that bound captures from the same output first.
func AssertParsed(parsed *decipher.Result, expected *decipher.Schema) AssertionResult {
	result := AssertionResult{Schema: expected.Name}

	var err error
	switch {
	case parsed.Tree != nil && expected.Kind == decipher.KindTree:
		_, err = decipher.MatchTree(parsed.Tree, expected.Tree, expected.Name)
	case parsed.Table != nil && expected.Kind == decipher.KindTable:
		_, err = decipher.MatchTable(parsed.Table, expected.Table, expected.Name)
	default:
		err = fmt.Errorf("schema %q kind does not match parsed result", expected.Name)
	}
	if err != nil {
		result.Evidence = assertionEvidence(err)
		return result
	}
	result.Passed = true
	return result
}

func assertionEvidence(err error) string {
	var mismatch *decipher.SchemaMismatchError
	if errors.As(err, &mismatch) {
		return fmt.Sprintf("required element missing at %s: %s", mismatch.Path, mismatch.Msg)
	}
	var structural *decipher.ParseStructureError
	if errors.As(err, &structural) {
		return fmt.Sprintf("output did not parse: %v", structural)
	}
	return err.Error()
}
