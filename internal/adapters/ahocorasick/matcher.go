// Package ahocorasick provides multi-pattern string matching using an Aho-Corasick automaton.
// It wraps the petar-dambovaliev/aho-corasick library for O(n + m + z) matching and
// implements ports.KeyMatcher for the Name Index.
package ahocorasick

import (
	"sync"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/aptlookup/internal/ports"
)

var _ ports.KeyMatcher = (*Matcher)(nil)

// Matcher reports which indexed keys occur inside a query.
// Rebuild() compiles an automaton; Match() returns key positions.
type Matcher struct {
	mu        sync.Mutex // iterators share automaton scratch state
	automaton aho.AhoCorasick
	keys      []string
	built     bool
}

// New returns an empty matcher. It matches nothing until Rebuild is called.
func New() *Matcher {
	return &Matcher{}
}

// NewKeyMatcher is a ports.KeyMatcher factory for index.Options.
func NewKeyMatcher() ports.KeyMatcher {
	return New()
}

// Rebuild compiles the automaton from the given keys.
func (m *Matcher) Rebuild(keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys = make([]string, len(keys))
	copy(m.keys, keys)
	if len(m.keys) == 0 {
		m.built = false
		return
	}

	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		DFA: true,
	})
	m.automaton = builder.Build(m.keys)
	m.built = true
}

// Match returns the position of every key found in query. Overlapping
// occurrences are reported, so a key nested inside another key is found
// too. Each position appears once.
func (m *Matcher) Match(query string) []int {
	if query == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.built {
		return nil
	}
	iter := m.automaton.IterOverlappingByte([]byte(query))

	seen := make(map[int]bool)
	var result []int
	for next := iter.Next(); next != nil; next = iter.Next() {
		p := next.Pattern()
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}

// KeyCount returns the number of keys in the automaton.
func (m *Matcher) KeyCount() int {
	return len(m.keys)
}

// Key returns the key at the given position.
func (m *Matcher) Key(idx int) string {
	if idx < 0 || idx >= len(m.keys) {
		return ""
	}
	return m.keys[idx]
}
