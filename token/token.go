// Package token defines the lexical tokens of the Shad language.
package token

// Kind identifies the lexical category of a Token.
type Kind uint8

const (
	EOF Kind = iota
	Error

	Ident
	F32Literal
	U32Literal
	I32Literal
	StringLiteral

	// Keywords
	Buf
	Fn
	Init
	Run
	Native
	Import
	Return
	Var
	Ref
	True
	False

	// Punctuation
	Plus
	Minus
	Star
	Slash
	Percent
	Equal
	EqualEqual
	BangEqual
	Less
	Greater
	LessEqual
	GreaterEqual
	AmpAmp
	PipePipe
	Bang
	Comma
	Semicolon
	Colon
	Dot
	Tilde
	Arrow
	LeftParen
	RightParen
	LeftBrace
	RightBrace
)

// keywords maps a reserved word's lexeme to its Kind.
var keywords = map[string]Kind{
	"buf":    Buf,
	"fn":     Fn,
	"init":   Init,
	"run":    Run,
	"native": Native,
	"import": Import,
	"return": Return,
	"var":    Var,
	"ref":    Ref,
	"true":   True,
	"false":  False,
}

// Lookup returns the keyword Kind for lexeme, and whether lexeme is reserved.
func Lookup(lexeme string) (Kind, bool) {
	k, ok := keywords[lexeme]
	return k, ok
}

// String returns a human-readable name for k, used in "expected <k>" diagnostics.
func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of file"
	case Error:
		return "invalid token"
	case Ident:
		return "identifier"
	case F32Literal:
		return "f32 literal"
	case U32Literal:
		return "u32 literal"
	case I32Literal:
		return "i32 literal"
	case StringLiteral:
		return "string literal"
	case Buf:
		return "`buf`"
	case Fn:
		return "`fn`"
	case Init:
		return "`init`"
	case Run:
		return "`run`"
	case Native:
		return "`native`"
	case Import:
		return "`import`"
	case Return:
		return "`return`"
	case Var:
		return "`var`"
	case Ref:
		return "`ref`"
	case True:
		return "`true`"
	case False:
		return "`false`"
	case Plus:
		return "`+`"
	case Minus:
		return "`-`"
	case Star:
		return "`*`"
	case Slash:
		return "`/`"
	case Percent:
		return "`%`"
	case Equal:
		return "`=`"
	case EqualEqual:
		return "`==`"
	case BangEqual:
		return "`!=`"
	case Less:
		return "`<`"
	case Greater:
		return "`>`"
	case LessEqual:
		return "`<=`"
	case GreaterEqual:
		return "`>=`"
	case AmpAmp:
		return "`&&`"
	case PipePipe:
		return "`||`"
	case Bang:
		return "`!`"
	case Comma:
		return "`,`"
	case Semicolon:
		return "`;`"
	case Colon:
		return "`:`"
	case Dot:
		return "`.`"
	case Tilde:
		return "`~`"
	case Arrow:
		return "`->`"
	case LeftParen:
		return "`(`"
	case RightParen:
		return "`)`"
	case LeftBrace:
		return "`{`"
	case RightBrace:
		return "`}`"
	default:
		return "unknown token"
	}
}

// BinaryOperators lists the token kinds valid as a binary operator, in the
// order the lexer / parser should recognize them.
var BinaryOperators = []Kind{
	Plus, Minus, Star, Slash, Percent,
	EqualEqual, BangEqual, Less, Greater, LessEqual, GreaterEqual,
	AmpAmp, PipePipe,
}

// Span is a byte range within one source file.
type Span struct {
	Path  string
	Start int
	End   int
}

// Token is one lexical unit produced by the lexer.
type Token struct {
	Kind   Kind
	Lexeme string
	Span   Span
}
