package ports

// KeyMatcher finds which indexed keys occur inside a query using multi-pattern
// matching (Aho-Corasick). A single pass over the query finds every key it
// contains, regardless of how many keys are indexed: O(n + m + z) where
// n=query length, m=total key length, z=number of matches.
//
// The matcher is rebuilt once per Name Index generation and is read-only
// afterwards, so Match must be safe for concurrent use.
type KeyMatcher interface {
	// Rebuild replaces the entire key set. Match results refer to positions
	// in this slice. Empty keys are not allowed.
	Rebuild(keys []string)

	// Match returns the positions of every key found in query, including
	// overlapping occurrences. Each position appears at most once; order is
	// unspecified. Returns nil if nothing matches.
	Match(query string) []int
}
