package ports

// TableStore persists named building tables to durable storage. It backs the
// "bolt" data source: rows are written by an import and read back by Fetch.
// The engine itself never persists its indexes.
//
// Crash safety: SaveRows must be transactional. A crash mid-write must not
// corrupt the previously committed table.
type TableStore interface {
	// SaveRows replaces the full table. Overwrites any prior rows.
	SaveRows(table string, rows []RawRow) error

	// LoadRows returns the table in stored order.
	// Returns nil, nil if the table does not exist.
	LoadRows(table string) ([]RawRow, error)

	// DeleteTable removes a table.
	// Idempotent: deleting a nonexistent table is not an error.
	DeleteTable(table string) error
}
