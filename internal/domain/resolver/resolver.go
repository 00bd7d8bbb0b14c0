// Package resolver turns arbitrary user text into an Outcome against one
// immutable index generation: exact name/alias hit, unit-number hit,
// single partial hit, a capped disambiguation list, or a miss.
package resolver

import (
	"strconv"
	"strings"

	"github.com/corey/aptlookup/internal/domain/index"
	"github.com/corey/aptlookup/internal/domain/normalize"
)

// MaxCandidates caps the disambiguation list. Callers are not told how many
// names matched beyond it.
const MaxCandidates = 5

// unitSuffix is the Korean counter for apartment units ("1203호").
const unitSuffix = "호"

// Engine answers queries for one snapshot. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	snap *index.Snapshot
}

// New creates an engine over snap.
func New(snap *index.Snapshot) *Engine {
	return &Engine{snap: snap}
}

// Snapshot returns the generation this engine reads.
func (e *Engine) Snapshot() *index.Snapshot {
	return e.snap
}

// Resolve routes unit-looking input to the unit resolver first and falls
// through to name resolution when no range owns the number.
func (e *Engine) Resolve(text string) Outcome {
	if LooksLikeUnit(text) {
		if n, ok := UnitNumber(text); ok {
			if out := e.ResolveUnit(n); out.Kind == Hit {
				return out
			}
		}
	}
	return e.ResolveName(text)
}

// ResolveName resolves a building name or alias.
//
// Exact key lookup first; otherwise every index entry whose key contains the
// query, or is contained by it, contributes its building name. Symmetric
// containment catches both abbreviated input and input with extra decoration
// around a known name. One distinct name is a fuzzy hit; several are
// candidates (at most MaxCandidates, first-seen order).
func (e *Engine) ResolveName(text string) Outcome {
	q := normalize.Key(text)
	if q == "" {
		return Outcome{Kind: None}
	}

	names := e.snap.Names
	if r, ok := names.Lookup(q); ok {
		return Outcome{Kind: Hit, Record: r, Via: ViaExact}
	}

	entries := names.Entries()
	contained := make(map[int]bool)
	for _, i := range names.Containing(q) {
		contained[i] = true
	}

	var found []string
	seen := make(map[string]bool)
	for i, entry := range entries {
		if !contained[i] && !strings.Contains(entry.Key, q) {
			continue
		}
		name := entry.Record.BuildingName
		if seen[name] {
			continue
		}
		seen[name] = true
		found = append(found, name)
		if len(found) == MaxCandidates {
			break
		}
	}

	switch len(found) {
	case 0:
		return Outcome{Kind: None}
	case 1:
		if r, ok := names.Lookup(normalize.Key(found[0])); ok {
			return Outcome{Kind: Hit, Record: r, Fuzzy: true, Via: ViaPartial}
		}
		return Outcome{Kind: None}
	default:
		return Outcome{Kind: Candidates, Candidates: found}
	}
}

// ResolveUnit returns the record whose alias ranges own unit n.
func (e *Engine) ResolveUnit(n int) Outcome {
	if r, ok := e.snap.Units.Resolve(n); ok {
		return Outcome{Kind: Hit, Record: r, Via: ViaUnit}
	}
	return Outcome{Kind: None}
}

// LooksLikeUnit reports whether text is a bare unit number: ASCII digits
// after removing whitespace, optionally followed by "호".
func LooksLikeUnit(text string) bool {
	s := strings.Join(strings.Fields(text), "")
	s = strings.TrimSuffix(s, unitSuffix)
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// UnitNumber parses text as a unit number. Only input accepted by
// LooksLikeUnit parses; whitespace and a trailing "호" are dropped first.
// It fails when the number does not fit in an int.
func UnitNumber(text string) (int, bool) {
	if !LooksLikeUnit(text) {
		return 0, false
	}
	s := strings.TrimSuffix(strings.Join(strings.Fields(text), ""), unitSuffix)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
