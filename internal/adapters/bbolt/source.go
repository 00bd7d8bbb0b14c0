package bbolt

import (
	"context"
	"fmt"

	"github.com/corey/aptlookup/internal/ports"
)

// Source reads a table written by an import. The database is opened
// read-only for the duration of one Fetch so that imports and a running
// daemon never hold the lock at the same time for long.
type Source struct {
	Path  string
	Table string
}

// NewSource returns a RowSource over table in the database at path.
func NewSource(path, table string) *Source {
	return &Source{Path: path, Table: table}
}

// Describe names the source for errors and status output.
func (s *Source) Describe() string {
	return fmt.Sprintf("bolt %s#%s", s.Path, s.Table)
}

// Fetch loads the table. An unopenable database is a transport failure; a
// missing table is a shape failure.
func (s *Source) Fetch(ctx context.Context) ([]ports.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ports.TransportError{Source: s.Describe(), Reason: "cancelled", Err: err}
	}

	store, err := OpenReadOnly(s.Path)
	if err != nil {
		return nil, &ports.TransportError{Source: s.Describe(), Reason: "open database", Err: err}
	}
	defer store.Close()

	rows, err := store.LoadRows(s.Table)
	if err != nil {
		return nil, &ports.ShapeError{Source: s.Describe(), Reason: err.Error()}
	}
	if rows == nil {
		return nil, &ports.ShapeError{Source: s.Describe(), Reason: fmt.Sprintf("table %q not found (run aptlookup import)", s.Table)}
	}
	return rows, nil
}

var _ ports.RowSource = (*Source)(nil)
var _ ports.TableStore = (*Store)(nil)
