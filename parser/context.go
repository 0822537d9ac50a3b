package parser

import (
	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/internal/idalloc"
	"github.com/gogpu/shad/token"
)

// ctx holds per-file parsing state: the token stream, current position, the
// id range reserved for this file, and the stack of ancestor ids pushed
// while descending into a sequence/repetition (spec.md §4.2).
type ctx struct {
	path      string
	src       string
	tokens    []token.Token
	pos       int
	ids       *idalloc.FileRange
	parentIDs []uint32
}

func newCtx(path, src string, tokens []token.Token, ids *idalloc.FileRange) *ctx {
	return &ctx{path: path, src: src, tokens: tokens, ids: ids}
}

func (c *ctx) peek() token.Token {
	return c.tokens[c.pos]
}

func (c *ctx) at(kind token.Kind) bool {
	return c.peek().Kind == kind
}

func (c *ctx) mark() int {
	return c.pos
}

func (c *ctx) reset(mark int) {
	c.pos = mark
}

// expect consumes the current token if it matches kind, else returns a
// non-forced *Error naming kind as the sole expectation.
func (c *ctx) expect(kind token.Kind) (token.Token, *Error) {
	tok := c.peek()
	if tok.Kind != kind {
		return token.Token{}, &Error{Path: c.path, Offset: tok.Span.Start, Expected: []string{kind.String()}}
	}
	c.pos++
	return tok, nil
}

// newNode starts a sequence/repetition node: allocates its id, pushes it
// onto the parent stack, and records the starting token offset. Callers
// must call finish to pop the stack and compute the final span.
func (c *ctx) newNode(kind ast.Kind) (*ast.Node, int, []uint32) {
	id := c.ids.Next()
	startOffset := c.peek().Span.Start
	parents := append(append([]uint32{}, c.parentIDs...))
	n := &ast.Node{
		ID:        id,
		ParentIDs: parents,
		Kind:      kind,
		Path:      c.path,
	}
	c.parentIDs = append(c.parentIDs, id)
	return n, startOffset, parents
}

// finish pops the parent stack pushed by newNode and fills in n's span and
// slice from startOffset to the current position.
func (c *ctx) finish(n *ast.Node, startOffset int) *ast.Node {
	c.parentIDs = c.parentIDs[:len(c.parentIDs)-1]
	endOffset := startOffset
	if c.pos > 0 {
		endOffset = c.tokens[c.pos-1].Span.End
	}
	n.Span = ast.Span{Start: startOffset, End: endOffset}
	if endOffset >= startOffset && endOffset <= len(c.src) {
		n.Slice = trimSlice(c.src[startOffset:endOffset])
	}
	return n
}

func trimSlice(s string) string {
	start, end := 0, len(s)
	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// leaf allocates and finishes a terminal (token-sized) node in one step.
func (c *ctx) leaf(kind ast.Kind, tok token.Token) *ast.Node {
	id := c.ids.Next()
	return &ast.Node{
		ID:        id,
		ParentIDs: append([]uint32{}, c.parentIDs...),
		Kind:      kind,
		Path:      c.path,
		Span:      ast.Span{Start: tok.Span.Start, End: tok.Span.End},
		Slice:     tok.Lexeme,
	}
}
