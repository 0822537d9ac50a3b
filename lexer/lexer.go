// Package lexer turns Shad source text into a token stream.
//
// Grounded on _examples/gogpu-naga/wgsl/lexer.go: a hand-rolled scanner over
// a byte string producing a flat []token.Token, byte offsets rather than a
// stream interface.
package lexer

import (
	"fmt"
	"strings"

	"github.com/gogpu/shad/token"
)

// Error is a lexical error: an unexpected byte at an offset.
type Error struct {
	Path   string
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Offset, e.Msg)
}

// stripComments blanks out `//` markers and everything after them on each
// line, replacing with spaces of equal length so later byte offsets line up
// with the original source (spec.md §4.1).
func stripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	lines := strings.SplitAfter(src, "\n")
	for _, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			// preserve the trailing newline (if any) that SplitAfter kept
			trailer := ""
			body := line
			if strings.HasSuffix(line, "\n") {
				trailer = "\n"
				body = line[:len(line)-1]
			}
			b.WriteString(body[:idx])
			b.WriteString(strings.Repeat(" ", len(body)-idx))
			b.WriteString(trailer)
		} else {
			b.WriteString(line)
		}
	}
	return b.String()
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Lexer scans one file's source into a token stream.
type Lexer struct {
	path   string
	src    string // comment-stripped
	pos    int
	tokens []token.Token
}

// New creates a Lexer for path/src. src is scanned for `//` comments up
// front; the stripped copy is used for tokenization but never returned to
// callers, so error spans always point into the original text.
func New(path, src string) *Lexer {
	return &Lexer{
		path: path,
		src:  stripComments(src),
	}
}

// Tokenize returns every token in source order, terminated by a single
// token.EOF. It returns the first unexpected byte as an *Error.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	for {
		l.skipSpaces()
		if l.pos >= len(l.src) {
			break
		}
		if err := l.scanOne(); err != nil {
			return nil, err
		}
	}
	l.tokens = append(l.tokens, token.Token{
		Kind: token.EOF,
		Span: token.Span{Path: l.path, Start: l.pos, End: l.pos},
	})
	return l.tokens, nil
}

func (l *Lexer) skipSpaces() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.pos++
		default:
			return
		}
	}
}

func (l *Lexer) emit(kind token.Kind, start int) {
	l.tokens = append(l.tokens, token.Token{
		Kind:   kind,
		Lexeme: l.src[start:l.pos],
		Span:   token.Span{Path: l.path, Start: start, End: l.pos},
	})
}

// followedByNonIdent reports whether the byte at pos (if any) cannot extend
// an identifier/number — the sole lookahead guard spec.md §4.1 requires so
// `return42` isn't read as `return` followed by `42`.
func (l *Lexer) followedByNonIdent(pos int) bool {
	if pos >= len(l.src) {
		return true
	}
	return !isIdentCont(l.src[pos])
}

func (l *Lexer) scanOne() error {
	start := l.pos
	b := l.src[l.pos]

	switch {
	case isIdentStart(b):
		l.pos++
		for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
			l.pos++
		}
		lexeme := l.src[start:l.pos]
		if kw, ok := token.Lookup(lexeme); ok {
			l.emit(kw, start)
		} else {
			l.emit(token.Ident, start)
		}
		return nil
	case isDigit(b):
		return l.scanNumber(start)
	case b == '"':
		return l.scanString(start)
	}

	switch b {
	case '+':
		l.pos++
		l.emit(token.Plus, start)
	case '-':
		l.pos++
		if l.peekIs('>') {
			l.pos++
			l.emit(token.Arrow, start)
		} else {
			l.emit(token.Minus, start)
		}
	case '*':
		l.pos++
		l.emit(token.Star, start)
	case '/':
		l.pos++
		l.emit(token.Slash, start)
	case '%':
		l.pos++
		l.emit(token.Percent, start)
	case '=':
		l.pos++
		if l.peekIs('=') {
			l.pos++
			l.emit(token.EqualEqual, start)
		} else {
			l.emit(token.Equal, start)
		}
	case '!':
		l.pos++
		if l.peekIs('=') {
			l.pos++
			l.emit(token.BangEqual, start)
		} else {
			l.emit(token.Bang, start)
		}
	case '<':
		l.pos++
		if l.peekIs('=') {
			l.pos++
			l.emit(token.LessEqual, start)
		} else {
			l.emit(token.Less, start)
		}
	case '>':
		l.pos++
		if l.peekIs('=') {
			l.pos++
			l.emit(token.GreaterEqual, start)
		} else {
			l.emit(token.Greater, start)
		}
	case '&':
		l.pos++
		if l.peekIs('&') {
			l.pos++
			l.emit(token.AmpAmp, start)
		} else {
			return l.unexpected(start)
		}
	case '|':
		l.pos++
		if l.peekIs('|') {
			l.pos++
			l.emit(token.PipePipe, start)
		} else {
			return l.unexpected(start)
		}
	case ',':
		l.pos++
		l.emit(token.Comma, start)
	case ';':
		l.pos++
		l.emit(token.Semicolon, start)
	case ':':
		l.pos++
		l.emit(token.Colon, start)
	case '.':
		l.pos++
		l.emit(token.Dot, start)
	case '~':
		l.pos++
		l.emit(token.Tilde, start)
	case '(':
		l.pos++
		l.emit(token.LeftParen, start)
	case ')':
		l.pos++
		l.emit(token.RightParen, start)
	case '{':
		l.pos++
		l.emit(token.LeftBrace, start)
	case '}':
		l.pos++
		l.emit(token.RightBrace, start)
	default:
		return l.unexpected(start)
	}
	return nil
}

func (l *Lexer) peekIs(b byte) bool {
	return l.pos < len(l.src) && l.src[l.pos] == b
}

func (l *Lexer) unexpected(start int) error {
	return &Error{Path: l.path, Offset: start, Msg: fmt.Sprintf("unexpected token %q", l.src[start:start+1])}
}

// scanNumber implements the three numeric literal grammars from spec.md
// §4.1: f32 `[0-9][0-9_]*\.([0-9][0-9_]*)?`, u32 `[0-9][0-9_]*u`, i32
// `[0-9][0-9_]*`.
func (l *Lexer) scanNumber(start int) error {
	l.pos++
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	if l.peekIs('.') {
		l.pos++
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
		if !l.followedByNonIdent(l.pos) {
			return l.unexpected(start)
		}
		l.emit(token.F32Literal, start)
		return nil
	}
	if l.peekIs('u') && l.followedByNonIdent(l.pos+1) {
		l.pos++
		l.emit(token.U32Literal, start)
		return nil
	}
	if !l.followedByNonIdent(l.pos) {
		return l.unexpected(start)
	}
	l.emit(token.I32Literal, start)
	return nil
}

func (l *Lexer) scanString(start int) error {
	l.pos++ // opening quote
	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return &Error{Path: l.path, Offset: start, Msg: "unterminated string literal"}
	}
	l.pos++ // closing quote
	l.emit(token.StringLiteral, start)
	return nil
}
