// Package sheet reads the building table as JSON, either from a spreadsheet
// web app over HTTP or from a local file. Accepted payloads:
//
//	[{"gu": "...", "dong": "...", "apt": "...", "info": "...", "aliases": "..."}, ...]
//	{"rows": [...]}              (also "data", "records", "items")
//	[["gu", "dong", "apt", ...], ["...", ...], ...]   (first row is the header)
package sheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/corey/aptlookup/internal/adapters/tabular"
	"github.com/corey/aptlookup/internal/ports"
)

var envelopeKeys = []string{"rows", "data", "records", "items"}

// Decode parses a JSON payload into raw rows. Anything that is not a row
// array (directly or inside an envelope) is a *ports.ShapeError.
func Decode(source string, data []byte) ([]ports.RawRow, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, &ports.ShapeError{Source: source, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ports.ShapeError{Source: source, Reason: "invalid JSON: trailing data after the table"}
	}

	items, err := rowArray(payload)
	if err != nil {
		return nil, &ports.ShapeError{Source: source, Reason: err.Error()}
	}
	if len(items) == 0 {
		return []ports.RawRow{}, nil
	}

	if _, ok := items[0].([]any); ok {
		rows, err := decodeArrays(items)
		if err != nil {
			return nil, &ports.ShapeError{Source: source, Reason: err.Error()}
		}
		return rows, nil
	}

	rows := make([]ports.RawRow, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ports.ShapeError{Source: source, Reason: fmt.Sprintf("row %d is %s, want object", i, kind(item))}
		}
		// Sorted so that duplicate aliases of one column resolve the same way every load.
		cols := make([]string, 0, len(obj))
		for col := range obj {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		var row ports.RawRow
		for _, col := range cols {
			tabular.Set(&row, col, stringify(obj[col]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowArray(payload any) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range envelopeKeys {
			for k, inner := range v {
				if !strings.EqualFold(k, key) {
					continue
				}
				if arr, ok := inner.([]any); ok {
					return arr, nil
				}
				return nil, fmt.Errorf("%q is %s, want array", k, kind(inner))
			}
		}
		return nil, fmt.Errorf("object without a rows/data/records/items array")
	default:
		return nil, fmt.Errorf("top level is %s, want array", kind(payload))
	}
}

func decodeArrays(items []any) ([]ports.RawRow, error) {
	headerCells, err := cells(items[0])
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	header := tabular.NewHeader(headerCells)
	if !header.HasBuildingName() {
		return nil, fmt.Errorf("header row has no building name column")
	}

	rows := make([]ports.RawRow, 0, len(items)-1)
	for i, item := range items[1:] {
		c, err := cells(item)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, header.Row(c))
	}
	return rows, nil
}

func cells(item any) ([]string, error) {
	arr, ok := item.([]any)
	if !ok {
		return nil, fmt.Errorf("%s, want array", kind(item))
	}
	out := make([]string, len(arr))
	for i, v := range arr {
		out[i] = stringify(v)
	}
	return out, nil
}

// stringify renders JSON scalars the way a spreadsheet displays them.
// null and nested values become blank.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
