package sheet

import (
	"encoding/json"
	"fmt"

	"github.com/corey/aptlookup/internal/adapters/tabular"
	"github.com/corey/aptlookup/internal/ports"
)

// Encode renders rows as an indented JSON array keyed by the canonical
// column names, which Decode reads back unchanged.
func Encode(rows []ports.RawRow) ([]byte, error) {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		vals := tabular.Values(row)
		obj := make(map[string]string, len(vals))
		for i, col := range tabular.Canonical {
			obj[col] = vals[i]
		}
		out = append(out, obj)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rows: %w", err)
	}
	return append(data, '\n'), nil
}
