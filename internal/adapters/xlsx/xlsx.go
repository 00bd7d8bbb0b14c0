// Package xlsx reads the building table from an Excel workbook and writes it
// back out for export. The first row of the sheet is the header; column
// names follow the same aliases as every other source.
package xlsx

import (
	"context"
	"fmt"

	"github.com/corey/aptlookup/internal/adapters/tabular"
	"github.com/corey/aptlookup/internal/ports"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name WriteWorkbook uses.
const DefaultSheet = "Buildings"

// Source reads one sheet of a workbook. An empty Sheet means the first sheet.
type Source struct {
	Path  string
	Sheet string
}

// NewSource returns a source reading sheet of the workbook at path.
func NewSource(path, sheet string) *Source {
	return &Source{Path: path, Sheet: sheet}
}

// Describe names the source for errors and status output.
func (s *Source) Describe() string {
	if s.Sheet == "" {
		return "xlsx " + s.Path
	}
	return fmt.Sprintf("xlsx %s#%s", s.Path, s.Sheet)
}

// Fetch reads every row of the sheet. An unopenable workbook is a transport
// failure; a missing sheet or header is a shape failure.
func (s *Source) Fetch(ctx context.Context) ([]ports.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ports.TransportError{Source: s.Describe(), Reason: "cancelled", Err: err}
	}

	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, &ports.TransportError{Source: s.Describe(), Reason: "open workbook", Err: err}
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &ports.ShapeError{Source: s.Describe(), Reason: fmt.Sprintf("sheet %q not found", sheet)}
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ports.ShapeError{Source: s.Describe(), Reason: err.Error()}
	}
	if len(grid) == 0 {
		return nil, &ports.ShapeError{Source: s.Describe(), Reason: "sheet is empty (no header row)"}
	}

	header := tabular.NewHeader(grid[0])
	if !header.HasBuildingName() {
		return nil, &ports.ShapeError{Source: s.Describe(), Reason: "header row has no building name column"}
	}

	rows := make([]ports.RawRow, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		if blank(cells) {
			continue
		}
		rows = append(rows, header.Row(cells))
	}
	return rows, nil
}

// WriteWorkbook writes rows to a new workbook at path with a canonical header.
func WriteWorkbook(path string, rows []ports.RawRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DefaultSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	// StreamWriter for efficiency on large tables
	sw, err := f.NewStreamWriter(DefaultSheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(tabular.Canonical))
	for i, col := range tabular.Canonical {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, r := range rows {
		vals := tabular.Values(r)
		row := make([]interface{}, len(vals))
		for j, v := range vals {
			row[j] = v
		}
		cellAddr, _ := excelize.CoordinatesToCellName(1, i+2) // A2, A3, ...
		if err := sw.SetRow(cellAddr, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// blank reports whether every cell of a row is empty; GetRows keeps such
// rows when a later row has data.
func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

var _ ports.RowSource = (*Source)(nil)
