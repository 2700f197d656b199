// Package binding accumulates values extracted from parsed device output
// and drives the operations tests compose from them: bind captures into
// named sets, iterate sets into parameterized command executions, assert
// parsed output against expected schemas, and cross-reference mappings
// gathered from different devices.
package binding

import (
	"fmt"
	"sync"

	"github.com/netcheck-network/netcheck/pkg/decipher"
)

// Store is a run-scoped variable store: named append-only value sets
// (ordered, deduplicated) and named key→value mappings. Safe for concurrent
// use by parallel for-each workers. Nothing is ever global; callers pass the
// store explicitly.
type Store struct {
	mu   sync.RWMutex
	sets map[string]*valueSet
	maps map[string]*orderedMap
}

// valueSet preserves first-seen order and rejects duplicates.
type valueSet struct {
	order []string
	seen  map[string]struct{}
}

func (v *valueSet) add(val string) bool {
	if _, dup := v.seen[val]; dup {
		return false
	}
	v.seen[val] = struct{}{}
	v.order = append(v.order, val)
	return true
}

type orderedMap struct {
	keys   []string
	values map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sets: make(map[string]*valueSet),
		maps: make(map[string]*orderedMap),
	}
}

// Add appends values to a set, creating it on first use. Duplicates are
// dropped; existing values are never reordered. Returns how many values were
// actually new.
func (s *Store) Add(set string, values ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(set, values)
}

func (s *Store) addLocked(set string, values []string) int {
	vs, ok := s.sets[set]
	if !ok {
		vs = &valueSet{seen: make(map[string]struct{})}
		s.sets[set] = vs
	}
	added := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		if vs.add(v) {
			added++
		}
	}
	return added
}

// Values returns the set's values in insertion order. Missing sets are
// empty, not errors.
func (s *Store) Values(set string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs, ok := s.sets[set]
	if !ok {
		return nil
	}
	out := make([]string, len(vs.order))
	copy(out, vs.order)
	return out
}

// Single returns the set's value when it holds exactly one.
func (s *Store) Single(set string) (string, bool) {
	vals := s.Values(set)
	if len(vals) != 1 {
		return "", false
	}
	return vals[0], true
}

// Bind extracts values at the capture path from a parsed result and adds
// them to the set. Additive: repeated binds accumulate, duplicates collapse.
// A failed extraction leaves the store untouched.
func (s *Store) Bind(set string, res *decipher.Result, capturePath string) (int, error) {
	vals, err := decipher.Capture(res, capturePath)
	if err != nil {
		return 0, fmt.Errorf("bind %q: %w", set, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(set, vals), nil
}

// BindMap extracts parallel key and value captures from a parsed result into
// a named mapping for later cross-referencing. Key and value paths must
// yield the same number of entries; a later bind overwrites earlier values
// for recurring keys.
func (s *Store) BindMap(name string, res *decipher.Result, keyPath, valuePath string) error {
	keys, err := decipher.Capture(res, keyPath)
	if err != nil {
		return fmt.Errorf("bind-map %q keys: %w", name, err)
	}
	vals, err := decipher.Capture(res, valuePath)
	if err != nil {
		return fmt.Errorf("bind-map %q values: %w", name, err)
	}
	if len(keys) != len(vals) {
		return fmt.Errorf("bind-map %q: %d keys but %d values", name, len(keys), len(vals))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[name]
	if !ok {
		m = &orderedMap{values: make(map[string]string)}
		s.maps[name] = m
	}
	for i, k := range keys {
		if _, dup := m.values[k]; !dup {
			m.keys = append(m.keys, k)
		}
		m.values[k] = vals[i]
	}
	return nil
}

// MapKeys returns a mapping's keys in first-seen order.
func (s *Store) MapKeys(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.maps[name]
	if !ok {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// MapValue looks up one key in a named mapping.
func (s *Store) MapValue(name, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.maps[name]
	if !ok {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Snapshot returns a copy of every set, for assertion evidence.
func (s *Store) Snapshot() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.sets))
	for name, vs := range s.sets {
		vals := make([]string, len(vs.order))
		copy(vals, vs.order)
		out[name] = vals
	}
	return out
}
