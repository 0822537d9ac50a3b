// Package resolve turns a reference node's own slice (and, for operators
// and calls, its arguments' already-inferred types) into a search key and
// a criteria list, then asks the index for the first matching candidate
// (spec.md §4.3 "Resolving a reference").
package resolve

import (
	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/index"
)

// fnCriteria matches both regular and native function declarations:
// functions may be referenced before their own definition, anywhere a
// lookup path reaches them.
func fnCriteria() []index.Criterion {
	return []index.Criterion{
		{Kind: ast.KindFnItem, CanBeAfter: true},
		{Kind: ast.KindNativeFnItem, CanBeAfter: true},
	}
}

// varCriteria matches buffers, which are all visible to one another and may
// be referenced before their own definition; var/ref definitions, which
// must precede their reference within the same file; and function
// parameters, which are
// visible to the whole body of the function that declares them (matched by
// a shared two-entry parent-id prefix: [root-file, owning fn item]) even
// though a parameter's own immediate parent is its FnSignature, a sibling
// of the function Block the reference sits inside.
func varCriteria() []index.Criterion {
	return []index.Criterion{
		{Kind: ast.KindBufferItem, CanBeAfter: true},
		{Kind: ast.KindVarDef},
		{Kind: ast.KindRefDef},
		{Kind: ast.KindFnParam, CanBeAfter: true, CommonParentCount: 2},
	}
}

// Ident resolves a bare identifier used in operand position to the
// variable definition it names. A node synthesized by a transform pass
// carries its target directly in Resolved, since it never existed when the
// index was built and so was never registered under any key.
func Ident(idx *index.Index, n *ast.Node) *ast.Node {
	if n.Resolved != nil {
		return n.Resolved
	}
	return idx.Search(index.VariableKey(n.Slice), varCriteria(), n.Path, n.ParentIDs)
}

// FnCall resolves a call (regular call, method/chain call, or type
// constructor -- all share the same "fn <name>(<arg types>)" keying) to
// the function or native function it targets. argTypes are the
// already-inferred types of the call's arguments, in order.
func FnCall(idx *index.Index, n *ast.Node, name string, argTypes []string) *ast.Node {
	return idx.Search(index.FunctionKey(name, argTypes), fnCriteria(), n.Path, n.ParentIDs)
}

// Operator resolves an "a <op> b" binary expression to the prelude (or
// user-defined) operator function backing it, e.g. "+" with two i32
// operands searches for "fn __add__(i32, i32)".
func Operator(idx *index.Index, n *ast.Node, opName string, lhsType, rhsType string) *ast.Node {
	return idx.Search(index.OperatorKey(opName, lhsType, rhsType), fnCriteria(), n.Path, n.ParentIDs)
}

// Unary resolves a unary expression ("-a" or "!a") to its prelude operator
// function, keyed by a single operand type.
func Unary(idx *index.Index, n *ast.Node, opName string, operandType string) *ast.Node {
	return idx.Search(index.FunctionKey(opName, []string{operandType}), fnCriteria(), n.Path, n.ParentIDs)
}

// OperatorName maps a lexeme (as produced by the parser for an operand's
// BinOp slice, or a unary operator) to the prelude function name
// convention (spec.md §4.3 example: "a + b" -> "fn __add__(...)").
func OperatorName(lexeme string) string {
	switch lexeme {
	case "+":
		return "__add__"
	case "-":
		return "__sub__"
	case "*":
		return "__mul__"
	case "/":
		return "__div__"
	case "%":
		return "__mod__"
	case "<":
		return "__lt__"
	case ">":
		return "__gt__"
	case "<=":
		return "__le__"
	case ">=":
		return "__ge__"
	case "==":
		return "__eq__"
	case "!=":
		return "__ne__"
	case "&&":
		return "__and__"
	case "||":
		return "__or__"
	default:
		return ""
	}
}

// UnaryOperatorName maps a unary operator lexeme to its prelude function
// name; unary minus is distinct from binary subtraction.
func UnaryOperatorName(lexeme string) string {
	switch lexeme {
	case "-":
		return "__neg__"
	case "!":
		return "__not__"
	default:
		return ""
	}
}
