package transform

import (
	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/index"
	"github.com/gogpu/shad/resolve"
)

// TypeChecker is the narrow slice of *typecheck.Checker that Split and
// Inline need. It is declared here, rather than importing typecheck
// directly, because typecheck imports transform (for BuildTree) -- the
// dependency only runs one way.
type TypeChecker interface {
	ExprType(n *ast.Node) (string, bool)
}

// bodyOf returns the Block a top-level item executes, or nil for an import
// or buffer item.
func bodyOf(item *ast.Node) *ast.Node {
	switch item.Kind {
	case ast.KindFnItem, ast.KindInitItem, ast.KindRunItem:
		return item.Field("body")
	default:
		return nil
	}
}

// isRefReturning and isRefParam duplicate the identically named helpers in
// typecheck for the same reason TypeChecker exists above: transform cannot
// import typecheck.
func isRefReturning(fn *ast.Node) bool {
	rt := fn.Field("signature").Field("returnType")
	return rt != nil && rt.Op == "ref"
}

func isRefParam(param *ast.Node) bool {
	return param.Op == "ref"
}

// isInlineTarget reports whether calls to fn are eliminated by Inline: a
// `ref` return, or any `ref` parameter (spec.md §4.6b/c).
func isInlineTarget(fn *ast.Node) bool {
	if fn.Kind != ast.KindFnItem {
		return false
	}
	if isRefReturning(fn) {
		return true
	}
	for _, p := range fn.Field("signature").Items {
		if isRefParam(p) {
			return true
		}
	}
	return false
}

// resolveCall resolves a FnCall/MethodCall node to the function or native
// function it targets, or nil if any argument's type is not yet known.
func resolveCall(idx *index.Index, tc TypeChecker, n *ast.Node) *ast.Node {
	switch n.Kind {
	case ast.KindFnCall:
		argTypes, ok := callArgTypes(tc, n, nil)
		if !ok {
			return nil
		}
		return resolve.FnCall(idx, n, n.Field("name").Slice, argTypes)
	case ast.KindMethodCall:
		receiverType, ok := tc.ExprType(n.Field("receiver"))
		if !ok {
			return nil
		}
		argTypes, ok := callArgTypes(tc, n, []string{receiverType})
		if !ok {
			return nil
		}
		return resolve.FnCall(idx, n, n.Field("name").Slice, argTypes)
	default:
		return nil
	}
}

func callArgTypes(tc TypeChecker, n *ast.Node, lead []string) ([]string, bool) {
	types := append([]string{}, lead...)
	for i := 0; ; i++ {
		arg := n.Field(ast.ArgFieldName(i))
		if arg == nil {
			break
		}
		t, ok := tc.ExprType(arg)
		if !ok {
			return nil, false
		}
		types = append(types, t)
	}
	return types, true
}

// collectArgs returns a call's arguments in parameter order, with a method
// call's receiver prepended as argument 0 to match how UFCS binds it to the
// callee's first declared parameter.
func collectArgs(call *ast.Node) []*ast.Node {
	var args []*ast.Node
	if call.Kind == ast.KindMethodCall {
		args = append(args, call.Field("receiver"))
	}
	for i := 0; ; i++ {
		a := call.Field(ast.ArgFieldName(i))
		if a == nil {
			break
		}
		args = append(args, a)
	}
	return args
}

func cloneWithFreshID(n *ast.Node, ids IDAllocator) *ast.Node {
	return &ast.Node{
		ID:        ids.Next(),
		ParentIDs: n.ParentIDs,
		Kind:      n.Kind,
		Slice:     n.Slice,
		Path:      n.Path,
		Span:      n.Span,
		Op:        n.Op,
	}
}

// IDAllocator is the slice of *idalloc.Allocator Split and Inline need to
// mint ids for synthesized nodes, declared locally so this package does not
// have to import internal/idalloc just for one method's signature.
type IDAllocator interface {
	Next() uint32
}
