// Package postgres reads the building table from PostgreSQL using lib/pq.
// The table must carry the five text columns district, sub_district,
// building_name, info and alias_spec; rows are returned ordered by a
// sequence column so that iteration order is stable across loads.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/corey/aptlookup/internal/ports"
	"github.com/lib/pq"
)

// DefaultOrderColumn is the sequence column rows are ordered by.
const DefaultOrderColumn = "id"

// SQLSTATE classes that mean the table itself is wrong rather than unreachable.
const (
	codeUndefinedTable  = "42P01"
	codeUndefinedColumn = "42703"
)

// Source reads one table.
type Source struct {
	DSN      string
	Table    string
	OrderBy  string
	openFunc func(dsn string) (*sql.DB, error)
}

// NewSource returns a source for table reachable through dsn.
func NewSource(dsn, table string) *Source {
	return &Source{DSN: dsn, Table: table, OrderBy: DefaultOrderColumn}
}

// Describe names the source without leaking credentials.
func (s *Source) Describe() string {
	return "postgres table " + s.Table
}

// Query builds the SELECT statement. NULLs read as blank.
func (s *Source) Query() string {
	order := s.OrderBy
	if order == "" {
		order = DefaultOrderColumn
	}
	return fmt.Sprintf(`SELECT COALESCE(district, ''), COALESCE(sub_district, ''),
       COALESCE(building_name, ''), COALESCE(info, ''), COALESCE(alias_spec, '')
  FROM %s
 ORDER BY %s`, quoteQualified(s.Table), pq.QuoteIdentifier(order))
}

// quoteQualified quotes each dot-separated part of a possibly
// schema-qualified name ("public.buildings").
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// Fetch opens a short-lived connection, reads the table and closes it.
func (s *Source) Fetch(ctx context.Context) ([]ports.RawRow, error) {
	open := s.openFunc
	if open == nil {
		open = func(dsn string) (*sql.DB, error) { return sql.Open("postgres", dsn) }
	}
	db, err := open(s.DSN)
	if err != nil {
		return nil, &ports.TransportError{Source: s.Describe(), Reason: "failed to open database", Err: err}
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, &ports.TransportError{Source: s.Describe(), Reason: "failed to ping database", Err: err}
	}

	rs, err := db.QueryContext(ctx, s.Query())
	if err != nil {
		return nil, s.classify(err)
	}
	defer rs.Close()

	var rows []ports.RawRow
	for rs.Next() {
		var r ports.RawRow
		if err := rs.Scan(&r.District, &r.SubDistrict, &r.BuildingName, &r.Info, &r.AliasSpec); err != nil {
			return nil, &ports.ShapeError{Source: s.Describe(), Reason: err.Error()}
		}
		rows = append(rows, r)
	}
	if err := rs.Err(); err != nil {
		return nil, s.classify(err)
	}
	if rows == nil {
		rows = []ports.RawRow{}
	}
	return rows, nil
}

// classify separates schema problems (shape) from everything else (transport).
func (s *Source) classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUndefinedTable, codeUndefinedColumn:
			return &ports.ShapeError{Source: s.Describe(), Reason: pqErr.Message}
		}
	}
	return &ports.TransportError{Source: s.Describe(), Reason: "query failed", Err: err}
}

var _ ports.RowSource = (*Source)(nil)
