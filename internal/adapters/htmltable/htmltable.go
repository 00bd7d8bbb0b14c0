// Package htmltable reads the building table from an HTML page, typically a
// spreadsheet published to the web. The first table row whose cells name a
// building column is the header; rows above it (column letters, titles) are
// skipped.
package htmltable

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/corey/aptlookup/internal/adapters/httpfetch"
	"github.com/corey/aptlookup/internal/adapters/tabular"
	"github.com/corey/aptlookup/internal/ports"
)

// DefaultSelector picks the first table on the page.
const DefaultSelector = "table"

var spaceRe = regexp.MustCompile(`\s+`)

// Source fetches a page and parses one table out of it.
type Source struct {
	URL      string
	Selector string
	Client   *http.Client
}

// NewSource returns a source for the table matching selector at url.
func NewSource(url, selector string) *Source {
	if selector == "" {
		selector = DefaultSelector
	}
	return &Source{URL: url, Selector: selector, Client: httpfetch.NewClient(httpfetch.DefaultTimeout)}
}

// Describe names the source for errors and status output.
func (s *Source) Describe() string {
	return fmt.Sprintf("html %s (%s)", s.URL, s.Selector)
}

// Fetch downloads the page and parses the table.
func (s *Source) Fetch(ctx context.Context) ([]ports.RawRow, error) {
	body, err := httpfetch.Get(ctx, s.Client, s.Describe(), s.URL, "text/html,application/xhtml+xml")
	if err != nil {
		return nil, err
	}
	return Parse(s.Describe(), body, s.Selector)
}

// Parse extracts rows from the first element matching selector.
func Parse(source string, page []byte, selector string) ([]ports.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &ports.ShapeError{Source: source, Reason: fmt.Sprintf("parse html: %v", err)}
	}
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, &ports.ShapeError{Source: source, Reason: fmt.Sprintf("table not found with selector %q", selector)}
	}

	var (
		header *tabular.Header
		rows   []ports.RawRow
	)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := rowCells(tr)
		if header == nil {
			if h := tabular.NewHeader(cells); h.HasBuildingName() {
				header = h
			}
			return
		}
		if blank(cells) {
			return
		}
		rows = append(rows, header.Row(cells))
	})

	if header == nil {
		return nil, &ports.ShapeError{Source: source, Reason: "no header row with a building name column"}
	}
	if rows == nil {
		rows = []ports.RawRow{}
	}
	return rows, nil
}

// rowCells returns the text of a row's data cells. Header-only rows (all
// <th>) fall back to their header cells; row-number <th> cells next to data
// are dropped.
func rowCells(tr *goquery.Selection) []string {
	sel := tr.ChildrenFiltered("td")
	if sel.Length() == 0 {
		sel = tr.ChildrenFiltered("th")
	}
	cells := make([]string, 0, sel.Length())
	sel.Each(func(_ int, c *goquery.Selection) {
		cells = append(cells, textCondense(c.Text()))
	})
	return cells
}

func textCondense(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

var _ ports.RowSource = (*Source)(nil)
