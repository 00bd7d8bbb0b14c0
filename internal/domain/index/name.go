// Package index builds the derived lookup structures for one Row Store
// generation: the Name Index (name/alias key -> record), the Group Index
// (district -> sub-district -> buildings) and the Unit Index (unit number
// ranges). All three are built once and are read-only afterwards.
package index

import (
	"strings"

	"github.com/corey/aptlookup/internal/domain/normalize"
	"github.com/corey/aptlookup/internal/domain/rowstore"
	"github.com/corey/aptlookup/internal/ports"
)

// Entry is one key of the Name Index and the record it currently maps to.
type Entry struct {
	Key    string
	Record *ports.Record
}

// Collision records a key that a later record took over from an earlier one.
// Last-write-wins silently drops Previous from exact lookup on that key.
type Collision struct {
	Key      string
	Previous *ports.Record
	Winner   *ports.Record
}

// NameIndex maps normalized building names and aliases to records.
//
// Entries keep the position at which their key was first inserted; a later
// record overwriting the key replaces the value in place. The partial-match
// scan walks entries in this order.
type NameIndex struct {
	entries    []Entry
	pos        map[string]int
	collisions []Collision
	matcher    ports.KeyMatcher
}

// BuildNameIndex indexes every record with a non-blank building name under
// Key(name) and Key(alias) for each free-form alias token. Range-shaped
// tokens are never keys. newMatcher may be nil; when set, a fresh matcher is
// built over the final key set for Containing.
func BuildNameIndex(store *rowstore.Store, newMatcher func() ports.KeyMatcher) *NameIndex {
	idx := &NameIndex{pos: make(map[string]int)}

	store.Each(func(r *ports.Record) {
		if r.BuildingName == "" {
			return
		}
		idx.insert(normalize.Key(r.BuildingName), r)
		for _, alias := range rowstore.Aliases(r.AliasSpec) {
			idx.insert(normalize.Key(alias), r)
		}
	})

	if newMatcher != nil && len(idx.entries) > 0 {
		keys := make([]string, len(idx.entries))
		for i, e := range idx.entries {
			keys[i] = e.Key
		}
		idx.matcher = newMatcher()
		idx.matcher.Rebuild(keys)
	}
	return idx
}

func (idx *NameIndex) insert(key string, r *ports.Record) {
	if key == "" {
		return
	}
	if i, ok := idx.pos[key]; ok {
		prev := idx.entries[i].Record
		if prev != r {
			idx.collisions = append(idx.collisions, Collision{Key: key, Previous: prev, Winner: r})
		}
		idx.entries[i].Record = r
		return
	}
	idx.pos[key] = len(idx.entries)
	idx.entries = append(idx.entries, Entry{Key: key, Record: r})
}

// Lookup returns the record for an already-normalized key.
func (idx *NameIndex) Lookup(key string) (*ports.Record, bool) {
	i, ok := idx.pos[key]
	if !ok {
		return nil, false
	}
	return idx.entries[i].Record, true
}

// Entries returns the index entries in first-insertion order of their keys.
// The slice is shared; callers must not modify it.
func (idx *NameIndex) Entries() []Entry {
	return idx.entries
}

// Len returns the number of distinct keys.
func (idx *NameIndex) Len() int {
	return len(idx.entries)
}

// Collisions returns every key overwrite observed while building, in order.
func (idx *NameIndex) Collisions() []Collision {
	return idx.collisions
}

// Containing returns the positions (into Entries) of every key that occurs
// as a substring of q, in ascending order.
func (idx *NameIndex) Containing(q string) []int {
	if q == "" || len(idx.entries) == 0 {
		return nil
	}
	if idx.matcher == nil {
		var out []int
		for i, e := range idx.entries {
			if strings.Contains(q, e.Key) {
				out = append(out, i)
			}
		}
		return out
	}
	hits := idx.matcher.Match(q)
	if len(hits) == 0 {
		return nil
	}
	seen := make([]bool, len(idx.entries))
	for _, i := range hits {
		if i >= 0 && i < len(seen) {
			seen[i] = true
		}
	}
	out := make([]int, 0, len(hits))
	for i, ok := range seen {
		if ok {
			out = append(out, i)
		}
	}
	return out
}
