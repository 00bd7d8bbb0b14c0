package ports

import "context"

// RowSource delivers the full building table in one fetch.
//
// Implementations locate and authenticate the source and unwrap any response
// envelope before returning rows. Failures must be classified: network or
// status-level problems as *TransportError, unusable payloads as *ShapeError.
// Fetch is called at most once at a time by the app's single-flight loader.
type RowSource interface {
	// Fetch returns every row in source order.
	Fetch(ctx context.Context) ([]RawRow, error)

	// Describe returns a short human-readable origin ("sheet https://...",
	// "xlsx buildings.xlsx") used in status output and error messages.
	Describe() string
}
