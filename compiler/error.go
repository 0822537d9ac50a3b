package compiler

import (
	"fmt"
	"strings"

	"github.com/gogpu/shad/validate"
)

// Render formats every collected error as plain text (spec.md §4.8):
// deterministically sorted, each accompanied by a source snippet where a
// snippet is meaningful. No terminal-control escape codes are used.
func (e *Error) Render() string {
	var b strings.Builder
	switch e.Taxonomy {
	case TaxonomyIO:
		for _, ioErr := range e.IO {
			fmt.Fprintln(&b, ioErr.Error())
		}
	case TaxonomyParsing:
		sortParsing(e.Parsing)
		for _, pe := range e.Parsing {
			fmt.Fprintln(&b, pe.Error())
		}
	case TaxonomyValidation:
		e.Validation.Sort()
		for i, ve := range e.Validation {
			if i > 0 {
				b.WriteString("\n")
			}
			renderValidationError(&b, ve)
		}
	}
	return b.String()
}

// renderValidationError prints one diagnostic's primary annotation
// followed by every nested entry: a same-level entry as another error, a
// context-level entry as a note. Each annotation carries its own snippet
// (spec.md §4.8 "render a snippet with primary and secondary
// annotations"), grounded on the reference compiler's FormatWithContext.
func renderValidationError(b *strings.Builder, e *validate.Error) {
	fmt.Fprintf(b, "error: %s\n", e.Message)
	renderSnippet(b, e.Path, e.Code, e.Span.Start)
	for _, inner := range e.Inner {
		kind := "note"
		if inner.Level == validate.LevelPrimary {
			kind = "error"
		}
		fmt.Fprintf(b, "%s: %s\n", kind, inner.Message)
		renderSnippet(b, inner.Path, inner.Code, inner.Span.Start)
	}
}

func renderSnippet(b *strings.Builder, path, code string, offset int) {
	if code == "" {
		return
	}
	line, col := lineCol(code, offset)
	fmt.Fprintf(b, "  --> %s:%d:%d\n", path, line, col)
	lines := strings.Split(code, "\n")
	if line < 1 || line > len(lines) {
		return
	}
	b.WriteString("   |\n")
	fmt.Fprintf(b, "%3d| %s\n", line, lines[line-1])
	fmt.Fprintf(b, "   | %s^\n", strings.Repeat(" ", col-1))
}

// lineCol converts a byte offset into a 1-based line/column pair.
func lineCol(src string, offset int) (line, col int) {
	line, col = 1, 1
	if offset > len(src) {
		offset = len(src)
	}
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
