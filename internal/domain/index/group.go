package index

import (
	"fmt"

	"github.com/corey/aptlookup/internal/ports"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sorter orders a list of display names in place.
type Sorter func(names []string)

// CollateSorter returns a Sorter using locale-aware collation for tag
// (e.g. "ko"). An empty tag returns nil, meaning first-seen order.
func CollateSorter(tag string) (Sorter, error) {
	if tag == "" {
		return nil, nil
	}
	lang, err := language.Parse(tag)
	if err != nil {
		return nil, fmt.Errorf("sort locale %q: %w", tag, err)
	}
	return func(names []string) {
		// A Collator is not safe for concurrent use; build one per sort.
		collate.New(lang).SortStrings(names)
	}, nil
}

type subKey struct{ district, sub string }

type buildingKey struct{ district, sub, name string }

// GroupIndex is the district -> sub-district -> building hierarchy used by the
// guided drill-down. Only records with all three fields non-blank appear.
type GroupIndex struct {
	districts []string
	subs      map[string][]string
	buildings map[subKey][]string
	records   map[buildingKey]*ports.Record
}

// BuildGroupIndex derives the hierarchy from records in iteration order.
// Lists are de-duplicated; order is first-seen unless sorter is non-nil.
func BuildGroupIndex(records []*ports.Record, sorter Sorter) *GroupIndex {
	g := &GroupIndex{
		subs:      make(map[string][]string),
		buildings: make(map[subKey][]string),
		records:   make(map[buildingKey]*ports.Record),
	}

	seenSub := make(map[subKey]bool)
	for _, r := range records {
		if !r.Grouped() {
			continue
		}
		if _, ok := g.subs[r.District]; !ok {
			g.districts = append(g.districts, r.District)
			g.subs[r.District] = nil
		}
		sk := subKey{r.District, r.SubDistrict}
		if !seenSub[sk] {
			seenSub[sk] = true
			g.subs[r.District] = append(g.subs[r.District], r.SubDistrict)
		}
		bk := buildingKey{r.District, r.SubDistrict, r.BuildingName}
		if _, ok := g.records[bk]; !ok {
			g.records[bk] = r
			g.buildings[sk] = append(g.buildings[sk], r.BuildingName)
		}
	}

	if sorter != nil {
		sorter(g.districts)
		for _, list := range g.subs {
			sorter(list)
		}
		for _, list := range g.buildings {
			sorter(list)
		}
	}
	return g
}

// Districts returns every district.
func (g *GroupIndex) Districts() []string {
	return clone(g.districts)
}

// SubDistricts returns the sub-districts of district, or an empty slice.
func (g *GroupIndex) SubDistricts(district string) []string {
	return clone(g.subs[district])
}

// Buildings returns the building names of a sub-district, or an empty slice.
func (g *GroupIndex) Buildings(district, sub string) []string {
	return clone(g.buildings[subKey{district, sub}])
}

// Building returns the first record with exactly this district, sub-district
// and building name. The record is shared with every index and is read-only.
func (g *GroupIndex) Building(district, sub, name string) (*ports.Record, bool) {
	r, ok := g.records[buildingKey{district, sub, name}]
	return r, ok
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
