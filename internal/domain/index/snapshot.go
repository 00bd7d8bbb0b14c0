package index

import (
	"time"

	"github.com/corey/aptlookup/internal/domain/rowstore"
	"github.com/corey/aptlookup/internal/ports"
)

// Options controls index construction. Both fields are optional.
type Options struct {
	Sorter     Sorter                  // nil = first-seen order in the Group Index
	NewMatcher func() ports.KeyMatcher // nil = linear containment scan
}

// Timings reports how long each build phase took.
type Timings struct {
	Names  time.Duration
	Groups time.Duration
	Units  time.Duration
}

// Snapshot is one complete, immutable generation: the Row Store and every
// index derived from it. Queries only ever see a whole Snapshot.
type Snapshot struct {
	Store   *rowstore.Store
	Names   *NameIndex
	Groups  *GroupIndex
	Units   *UnitIndex
	Timings Timings
}

// Build derives every index from store.
func Build(store *rowstore.Store, opts Options) *Snapshot {
	s := &Snapshot{Store: store}

	start := time.Now()
	s.Names = BuildNameIndex(store, opts.NewMatcher)
	s.Timings.Names = time.Since(start)

	start = time.Now()
	records := make([]*ports.Record, 0, store.Len())
	store.Each(func(r *ports.Record) { records = append(records, r) })
	s.Groups = BuildGroupIndex(records, opts.Sorter)
	s.Timings.Groups = time.Since(start)

	start = time.Now()
	s.Units = BuildUnitIndex(store)
	s.Timings.Units = time.Since(start)

	return s
}
