// Package rowstore holds one generation of the building table: the ordered,
// immutable record sequence every index is derived from.
package rowstore

import (
	"strings"

	"github.com/corey/aptlookup/internal/ports"
)

// Store is an immutable, ordered record sequence. A new Store is built for
// every successful load; it is never mutated afterwards.
type Store struct {
	records []ports.Record
}

// FromRaw trims every field and assigns Seq in source order. Info falls back
// to the legacy Text field when Info is blank.
func FromRaw(rows []ports.RawRow) *Store {
	records := make([]ports.Record, len(rows))
	for i, row := range rows {
		info := row.Info
		if strings.TrimSpace(info) == "" {
			info = row.Text
		}
		records[i] = ports.Record{
			Seq:          i,
			District:     strings.TrimSpace(row.District),
			SubDistrict:  strings.TrimSpace(row.SubDistrict),
			BuildingName: strings.TrimSpace(row.BuildingName),
			Info:         strings.TrimSpace(info),
			AliasSpec:    strings.TrimSpace(row.AliasSpec),
		}
	}
	return &Store{records: records}
}

// Len returns the number of records, including ones that are not indexable.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// At returns the record at position i. Callers must not modify it.
func (s *Store) At(i int) *ports.Record {
	return &s.records[i]
}

// Each calls fn for every record in iteration order.
func (s *Store) Each(fn func(r *ports.Record)) {
	if s == nil {
		return
	}
	for i := range s.records {
		fn(&s.records[i])
	}
}

// Records returns a copy of the record sequence.
func (s *Store) Records() []ports.Record {
	if s == nil {
		return nil
	}
	out := make([]ports.Record, len(s.records))
	copy(out, s.records)
	return out
}
