// Package tabular maps source column names onto ports.RawRow fields. Every
// data-source decoder (JSON objects, header rows of arrays, XLSX sheets, HTML
// tables) goes through the same alias table so that a sheet exported from one
// source reads identically through another.
package tabular

import (
	"strings"

	"github.com/corey/aptlookup/internal/ports"
)

// Field identifies one RawRow column.
type Field int

const (
	FieldNone Field = iota
	FieldDistrict
	FieldSubDistrict
	FieldBuildingName
	FieldInfo
	FieldText
	FieldAliasSpec
)

// Accepted column names, compared after lowercasing and trimming.
var columnAliases = map[string]Field{
	"district":      FieldDistrict,
	"gu":            FieldDistrict,
	"subdistrict":   FieldSubDistrict,
	"sub_district":  FieldSubDistrict,
	"dong":          FieldSubDistrict,
	"buildingname":  FieldBuildingName,
	"building_name": FieldBuildingName,
	"building":      FieldBuildingName,
	"apt":           FieldBuildingName,
	"info":          FieldInfo,
	"text":          FieldText,
	"aliasspec":     FieldAliasSpec,
	"alias_spec":    FieldAliasSpec,
	"aliases":       FieldAliasSpec,
}

// Canonical header order used when writing tables back out.
var Canonical = []string{"district", "sub_district", "building_name", "info", "alias_spec"}

// Lookup maps a column name (any case) to its field.
func Lookup(column string) Field {
	return columnAliases[strings.ToLower(strings.TrimSpace(column))]
}

// Set stores value into row under column. When a field has already been
// filled by another alias of the same column, the first non-empty value is
// kept. Reports whether column was recognised.
func Set(row *ports.RawRow, column, value string) bool {
	f := Lookup(column)
	if f == FieldNone {
		return false
	}
	setField(row, f, value)
	return true
}

func setField(row *ports.RawRow, f Field, value string) {
	var dst *string
	switch f {
	case FieldDistrict:
		dst = &row.District
	case FieldSubDistrict:
		dst = &row.SubDistrict
	case FieldBuildingName:
		dst = &row.BuildingName
	case FieldInfo:
		dst = &row.Info
	case FieldText:
		dst = &row.Text
	case FieldAliasSpec:
		dst = &row.AliasSpec
	default:
		return
	}
	if *dst == "" {
		*dst = value
	}
}

// Values returns row in Canonical column order. Info falls back to Text.
func Values(row ports.RawRow) []string {
	info := row.Info
	if strings.TrimSpace(info) == "" {
		info = row.Text
	}
	return []string{row.District, row.SubDistrict, row.BuildingName, info, row.AliasSpec}
}

// Header maps cell positions of a header row to fields.
type Header struct {
	fields     []Field
	recognised int
}

// NewHeader builds a Header from header cells. Unknown columns are skipped.
func NewHeader(cells []string) *Header {
	h := &Header{fields: make([]Field, len(cells))}
	for i, c := range cells {
		h.fields[i] = Lookup(c)
		if h.fields[i] != FieldNone {
			h.recognised++
		}
	}
	return h
}

// Recognised is the number of header cells that map to a field.
func (h *Header) Recognised() int { return h.recognised }

// HasBuildingName reports whether some column maps to the building name.
func (h *Header) HasBuildingName() bool {
	for _, f := range h.fields {
		if f == FieldBuildingName {
			return true
		}
	}
	return false
}

// Row converts one data row. Missing trailing cells are blank.
func (h *Header) Row(cells []string) ports.RawRow {
	var row ports.RawRow
	for i, f := range h.fields {
		if f == FieldNone || i >= len(cells) {
			continue
		}
		setField(&row, f, cells[i])
	}
	return row
}
