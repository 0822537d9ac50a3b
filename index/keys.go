package index

import (
	"strings"

	"github.com/gogpu/shad/ast"
)

// VariableKey returns the structural key under which a buf/var/ref/param
// definition is registered and searched: "variable <name>" (spec.md §4.3).
func VariableKey(name string) string {
	return "variable " + name
}

// FunctionKey returns the structural key for a function signature, built
// from the function's name and the *textual* slices of its parameter
// types -- never resolved types, since the index is structural, not
// semantic (spec.md §4.3).
func FunctionKey(name string, paramTypeSlices []string) string {
	var b strings.Builder
	b.WriteString("fn ")
	b.WriteString(name)
	b.WriteByte('(')
	for i, t := range paramTypeSlices {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t)
	}
	b.WriteByte(')')
	return b.String()
}

// OperatorKey returns the key an "a <op> b" binary expression searches for:
// "fn __op__(<type a>, <type b>)".
func OperatorKey(opName string, lhsType, rhsType string) string {
	return FunctionKey(opName, []string{lhsType, rhsType})
}

// key returns the structural key a node registers under, or "" if the node
// kind does not declare one (spec.md §4.3).
func key(n *ast.Node) string {
	switch n.Kind {
	case ast.KindBufferItem:
		return VariableKey(n.Field("name").Slice)
	case ast.KindVarDef, ast.KindRefDef:
		return VariableKey(n.Field("name").Slice)
	case ast.KindFnParam:
		return VariableKey(n.Field("name").Slice)
	case ast.KindFnItem:
		sig := n.Field("signature")
		return FunctionKey(sig.Field("name").Slice, paramTypeSlices(sig))
	case ast.KindNativeFnItem:
		sig := n.Field("signature")
		return FunctionKey(sig.Field("name").Slice, paramTypeSlices(sig))
	default:
		return ""
	}
}

func paramTypeSlices(sig *ast.Node) []string {
	types := make([]string, 0, len(sig.Items))
	for _, p := range sig.Items {
		types = append(types, p.Field("type").Slice)
	}
	return types
}
