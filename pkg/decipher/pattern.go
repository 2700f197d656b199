package decipher

import "strings"

// MatchPattern matches text against a wildcard pattern and returns the
// captured span. Patterns are compared field by field (whitespace-separated):
// a literal field must match exactly, a field containing '*' matches any
// non-empty run of characters in its place. The capture is the full text of
// the first wildcarded field, so "bundle-*" against "bundle-178" captures
// "bundle-178". A trailing bare "*" field consumes the remainder of the text.
//
// An empty pattern matches anything and captures nothing.
func MatchPattern(pattern, text string) (capture string, ok bool) {
	pattern = strings.TrimSpace(pattern)
	text = strings.TrimSpace(text)
	if pattern == "" {
		return "", true
	}

	pf := strings.Fields(pattern)
	tf := strings.Fields(text)

	for i, p := range pf {
		// Trailing bare "*" consumes the rest of the text.
		if p == "*" && i == len(pf)-1 {
			rest := strings.Join(tf[i:], " ")
			if rest == "" {
				return "", false
			}
			if capture == "" {
				capture = rest
			}
			return capture, true
		}
		if i >= len(tf) {
			return "", false
		}
		if !matchField(p, tf[i]) {
			return "", false
		}
		if capture == "" && strings.Contains(p, "*") {
			capture = tf[i]
		}
	}
	if len(tf) != len(pf) {
		return "", false
	}
	return capture, true
}

// matchField matches a single field against a field pattern where '*' matches
// any (possibly empty, but the field as a whole must be non-empty) run of
// characters.
func matchField(pattern, field string) bool {
	if field == "" {
		return false
	}
	if !strings.Contains(pattern, "*") {
		return pattern == field
	}

	parts := strings.Split(pattern, "*")

	// Anchored prefix
	if !strings.HasPrefix(field, parts[0]) {
		return false
	}
	field = field[len(parts[0]):]

	// Anchored suffix
	last := parts[len(parts)-1]
	if !strings.HasSuffix(field, last) {
		return false
	}
	field = field[:len(field)-len(last)]

	// Middle literals in order
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(field, part)
		if idx < 0 {
			return false
		}
		field = field[idx+len(part):]
	}
	return true
}
