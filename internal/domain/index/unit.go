package index

import (
	"github.com/corey/aptlookup/internal/domain/rowstore"
	"github.com/corey/aptlookup/internal/ports"
)

type interval struct {
	rowstore.Range
	record *ports.Record
}

// UnitIndex resolves unit numbers through the ranges declared in alias specs.
//
// Intervals are kept in record order, then token order within a record, and
// resolved by linear scan. Overlapping ranges across records are not an
// error: the first interval in that order wins.
type UnitIndex struct {
	intervals []interval
}

// BuildUnitIndex collects every valid range of every record with a
// non-blank building name.
func BuildUnitIndex(store *rowstore.Store) *UnitIndex {
	u := &UnitIndex{}
	store.Each(func(r *ports.Record) {
		if r.BuildingName == "" {
			return
		}
		for _, rg := range rowstore.Ranges(r.AliasSpec) {
			u.intervals = append(u.intervals, interval{Range: rg, record: r})
		}
	})
	return u
}

// Resolve returns the owner of unit n.
func (u *UnitIndex) Resolve(n int) (*ports.Record, bool) {
	for _, iv := range u.intervals {
		if iv.Contains(n) {
			return iv.record, true
		}
	}
	return nil, false
}

// Len returns the number of intervals.
func (u *UnitIndex) Len() int {
	return len(u.intervals)
}
