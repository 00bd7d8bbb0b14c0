package resolver

import "github.com/corey/aptlookup/internal/ports"

// Kind classifies a resolution outcome.
type Kind int

const (
	None       Kind = iota // nothing matched
	Hit                    // exactly one record
	Candidates             // several partial matches; re-query by exact name
	NotReady               // no data loaded yet
)

func (k Kind) String() string {
	switch k {
	case Hit:
		return "hit"
	case Candidates:
		return "candidates"
	case NotReady:
		return "not_ready"
	default:
		return "none"
	}
}

// ParseKind is the inverse of Kind.String; unknown names are None.
func ParseKind(s string) Kind {
	switch s {
	case "hit":
		return Hit
	case "candidates":
		return Candidates
	case "not_ready":
		return NotReady
	default:
		return None
	}
}

// How a Hit was reached.
const (
	ViaExact   = "exact"   // Name Index key equality
	ViaPartial = "partial" // single candidate from the containment scan
	ViaUnit    = "unit"    // unit-number range
)

// Outcome is the result of every resolution call. Record is set only for Hit,
// Candidates only for Candidates. Record points into the published
// generation and must not be modified.
type Outcome struct {
	Kind       Kind
	Record     *ports.Record
	Fuzzy      bool
	Via        string
	Candidates []string
}

// NotReadyOutcome is returned by callers that have no loaded generation.
func NotReadyOutcome() Outcome {
	return Outcome{Kind: NotReady}
}
