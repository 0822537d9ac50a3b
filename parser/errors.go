package parser

import "fmt"

// Error is one parsing failure: the set of tokens that would have been
// accepted at Offset. Multiple alternation attempts at the same offset
// contribute to the same Error's Expected set (spec.md §4.2).
type Error struct {
	Path     string
	Offset   int
	Expected []string
	// forced marks an error produced past a sequence child's "forced error"
	// point (spec.md §4.2): such an error must propagate through any
	// enclosing alternation instead of being absorbed as a failed attempt.
	forced bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: expected %s", e.Path, e.Offset, formatExpected(e.Expected))
}

// formatExpected renders a deduplicated, alphabetized expected-token list as
// "A", "A or B", or "A, B or C" (spec.md §4.2, §8).
func formatExpected(expected []string) string {
	uniq := dedupSorted(expected)
	switch len(uniq) {
	case 0:
		return "<nothing>"
	case 1:
		return uniq[0]
	case 2:
		return uniq[0] + " or " + uniq[1]
	default:
		out := ""
		for i, tok := range uniq {
			switch {
			case i == 0:
				out = tok
			case i == len(uniq)-1:
				out += " or " + tok
			default:
				out += ", " + tok
			}
		}
		return out
	}
}

func dedupSorted(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	// simple insertion sort; expected-token lists are small
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Errors collects every parsing error produced while compiling a source
// tree (spec.md §7: a pass collects all errors before returning).
type Errors []*Error

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no parsing errors"
	}
	return e[0].Error()
}
