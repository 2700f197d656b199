package binding

import "fmt"

// KeyFunc canonicalizes a mapping key before comparison, so device-local
// spellings of the same identity ("legacy-resi-ar.nyc", "LEGACY-RESI-AR")
// line up. Nil means compare keys as-is.
type KeyFunc func(string) string

// Mismatch is one cross-reference discrepancy. An empty Left or Right value
// means the key exists on only that side's counterpart.
type Mismatch struct {
	Key   string
	Left  string
	Right string
}

func (m Mismatch) String() string {
	switch {
	case m.Left == "":
		return fmt.Sprintf("%s: missing on left (right=%s)", m.Key, m.Right)
	case m.Right == "":
		return fmt.Sprintf("%s: missing on right (left=%s)", m.Key, m.Left)
	default:
		return fmt.Sprintf("%s: left=%s right=%s", m.Key, m.Left, m.Right)
	}
}

// CrossRefResult reports a comparison of two named mappings.
type CrossRefResult struct {
	Left       string
	Right      string
	Checked    int
	Mismatches []Mismatch
}

// OK reports whether the two mappings agreed on every key.
func (r *CrossRefResult) OK() bool { return len(r.Mismatches) == 0 }

// CrossReference compares two mappings key by key after canonicalization.
// Value disagreements and keys present on only one side are reported as
// mismatches, keyed by the canonical key, in the left mapping's insertion
// order (right-only keys follow). The store is not mutated.
func (s *Store) CrossReference(left, right string, canon KeyFunc) *CrossRefResult {
	if canon == nil {
		canon = func(k string) string { return k }
	}
	result := &CrossRefResult{Left: left, Right: right}

	leftVals := s.canonMap(left, canon)
	rightVals := s.canonMap(right, canon)

	for _, key := range s.canonKeys(left, canon) {
		result.Checked++
		lv := leftVals[key]
		rv, ok := rightVals[key]
		if !ok {
			result.Mismatches = append(result.Mismatches, Mismatch{Key: key, Left: lv})
			continue
		}
		if lv != rv {
			result.Mismatches = append(result.Mismatches, Mismatch{Key: key, Left: lv, Right: rv})
		}
	}
	for _, key := range s.canonKeys(right, canon) {
		if _, ok := leftVals[key]; ok {
			continue
		}
		result.Checked++
		result.Mismatches = append(result.Mismatches, Mismatch{Key: key, Right: rightVals[key]})
	}
	return result
}

func (s *Store) canonMap(name string, canon KeyFunc) map[string]string {
	out := make(map[string]string)
	for _, k := range s.MapKeys(name) {
		v, _ := s.MapValue(name, k)
		out[canon(k)] = v
	}
	return out
}

func (s *Store) canonKeys(name string, canon KeyFunc) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, k := range s.MapKeys(name) {
		ck := canon(k)
		if _, dup := seen[ck]; dup {
			continue
		}
		seen[ck] = struct{}{}
		out = append(out, ck)
	}
	return out
}
