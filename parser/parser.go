package parser

import (
	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/internal/idalloc"
	"github.com/gogpu/shad/lexer"
)

// Parse lexes and parses one file's source into a Root ast.Node. ids must be
// a fresh *idalloc.FileRange reserved for this file immediately beforehand
// (spec.md §5); the caller is responsible for reserving file ranges in a
// deterministic order across a compilation.
func Parse(path, src string, ids *idalloc.FileRange) (*ast.Node, *Error) {
	toks, lexErr := lexer.New(path, src).Tokenize()
	if lexErr != nil {
		le := lexErr.(*lexer.Error)
		return nil, &Error{Path: le.Path, Offset: le.Offset, Expected: []string{le.Msg}}
	}
	c := newCtx(path, src, toks, ids)
	return parseRoot(c)
}

// ParseEmpty parses an empty source into a Root with no items: EOF-only
// input always succeeds.
func ParseEmpty(path string, ids *idalloc.FileRange) *ast.Node {
	n, _ := Parse(path, "", ids)
	return n
}
