// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// RawRow is one table row exactly as a data source delivered it.
// Fields are untrimmed; decoders map source column names onto these fields
// and stringify non-string scalars. Text is the legacy name of Info.
type RawRow struct {
	District     string `json:"district"`
	SubDistrict  string `json:"sub_district"`
	BuildingName string `json:"building_name"`
	Info         string `json:"info"`
	Text         string `json:"text,omitempty"`
	AliasSpec    string `json:"alias_spec"`
}

// Record is one building, normalized from a RawRow. Records are immutable
// once a Row Store generation has been built from them.
//
// Seq is the zero-based position in the Row Store and defines iteration
// order for every index (last-write-wins in the Name Index, first-match-wins
// in the Unit Index).
type Record struct {
	Seq          int    `json:"seq"`
	District     string `json:"district"`
	SubDistrict  string `json:"sub_district"`
	BuildingName string `json:"building_name"`
	Info         string `json:"info"`
	AliasSpec    string `json:"alias_spec"`
}

// Grouped reports whether the record carries all three hierarchy fields and
// can therefore appear in the guided drill-down.
func (r *Record) Grouped() bool {
	return r.District != "" && r.SubDistrict != "" && r.BuildingName != ""
}
