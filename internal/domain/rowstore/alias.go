package rowstore

import (
	"regexp"
	"strconv"
	"strings"
)

// rangeRe is the unit-range token grammar: integer "-" integer, with optional
// whitespace around either number.
var rangeRe = regexp.MustCompile(`^\s*(\d+)\s*-\s*(\d+)\s*$`)

// Range is an inclusive unit-number interval parsed from an alias token.
// Start > End is accepted and simply never matches.
type Range struct {
	Start int
	End   int
}

// Contains reports whether n lies in [Start, End].
func (r Range) Contains(n int) bool {
	return r.Start <= n && n <= r.End
}

// Token is one comma-separated entry of an alias spec.
type Token struct {
	Text       string // trimmed token text
	RangeShape bool   // matches the range grammar (even if numbers overflow)
	Range      Range  // valid only when Valid
	Valid      bool   // RangeShape and both numbers parsed
}

// IsAlias reports whether the token is a free-form alias name.
func (t Token) IsAlias() bool {
	return !t.RangeShape
}

// SplitAliasSpec splits a comma-separated alias spec into trimmed, non-empty
// tokens in order. Malformed tokens are kept as aliases; nothing is fatal.
func SplitAliasSpec(spec string) []Token {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	parts := strings.Split(spec, ",")
	tokens := make([]Token, 0, len(parts))
	for _, p := range parts {
		text := strings.TrimSpace(p)
		if text == "" {
			continue
		}
		tok := Token{Text: text}
		if rangeRe.MatchString(text) {
			tok.RangeShape = true
			tok.Range, tok.Valid = ParseRange(text)
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ParseRange parses "<start>-<end>". It fails for anything else, including
// numbers that overflow int.
func ParseRange(token string) (Range, bool) {
	m := rangeRe.FindStringSubmatch(token)
	if m == nil {
		return Range{}, false
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return Range{}, false
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

// Aliases returns the free-form alias names of a spec, in order.
func Aliases(spec string) []string {
	var out []string
	for _, t := range SplitAliasSpec(spec) {
		if t.IsAlias() {
			out = append(out, t.Text)
		}
	}
	return out
}

// Ranges returns the valid unit ranges of a spec, in order.
func Ranges(spec string) []Range {
	var out []Range
	for _, t := range SplitAliasSpec(spec) {
		if t.Valid {
			out = append(out, t.Range)
		}
	}
	return out
}
