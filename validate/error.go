// Package validate implements the Validator stage (spec.md §4.5): the
// twelve diagnostics run once type inference has produced every type it
// can, and before any transformation pass touches the tree.
package validate

import (
	"sort"

	"github.com/gogpu/shad/ast"
)

// Level is a validation message's severity, mirroring the reference
// compiler's Primary/Context distinction (spec.md §4.8, §9 point 2): a
// nested entry whose own level is <= its parent's is rendered as another
// primary annotation, not a secondary one.
type Level int

const (
	LevelPrimary Level = iota
	LevelContext
)

// Error is one validation diagnostic: a primary span plus zero or more
// nested entries carrying secondary spans and labels (e.g. "same item
// defined here"). Code holds the full source text of Path so a renderer
// can produce a snippet without re-reading the file.
type Error struct {
	Level   Level
	Message string
	Span    ast.Span
	Path    string
	Code    string
	Inner   []*Error
}

func (e *Error) Error() string {
	return e.Path + ": " + e.Message
}

// newError builds a primary diagnostic at node, with an optional primary
// label on the same node and a list of secondary (Context-level) spans
// elsewhere, following ValidationError::error in the reference compiler.
func newError(sources map[string]string, node *ast.Node, title, label string, secondary ...annotation) *Error {
	e := &Error{
		Level:   LevelPrimary,
		Message: title,
		Span:    node.Span,
		Path:    node.Path,
		Code:    sources[node.Path],
	}
	if label != "" {
		e.Inner = append(e.Inner, simple(sources, LevelPrimary, node, label))
	}
	for _, s := range secondary {
		e.Inner = append(e.Inner, simple(sources, LevelContext, s.node, s.label))
	}
	return e
}

type annotation struct {
	node  *ast.Node
	label string
}

func at(node *ast.Node, label string) annotation {
	return annotation{node: node, label: label}
}

func simple(sources map[string]string, level Level, node *ast.Node, label string) *Error {
	return &Error{
		Level:   level,
		Message: label,
		Span:    node.Span,
		Path:    node.Path,
		Code:    sources[node.Path],
	}
}

// Errors collects every validation diagnostic produced by one compilation
// (spec.md §7: a pass collects all errors of its kind before returning).
type Errors []*Error

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	return e[0].Error()
}

// Sort orders errors deterministically by (path, span start, message)
// (spec.md §4.8).
func (e Errors) Sort() {
	sort.Slice(e, func(i, j int) bool {
		a, b := e[i], e[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		return a.Message < b.Message
	})
}
