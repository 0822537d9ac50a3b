// Package typecheck computes the type of every typable AST node by a
// bottom-up pass that calls the resolver (spec.md §4.4), and runs the
// buffer fixed-point typing loop (spec.md §4.4 "Buffer typing").
package typecheck

import (
	"sort"

	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/index"
	"github.com/gogpu/shad/resolve"
	"github.com/gogpu/shad/transform"
)

// NoReturn is the sentinel type of expressions/statements that yield no
// value, distinct from "unknown" (spec.md §3, §4.4).
const NoReturn = "<no return>"

// Checker memoizes successfully computed expression types and holds the
// buffer-typing results (spec.md §5: "resolver memoized implicitly by
// reusing resolved sources during later passes" -- here the memoization
// is of the type itself, one layer up).
type Checker struct {
	idx  *index.Index
	buf  map[*ast.Node]string
	memo map[*ast.Node]string
}

// New creates a Checker over an already-built index.
func New(idx *index.Index) *Checker {
	return &Checker{idx: idx, buf: map[*ast.Node]string{}, memo: map[*ast.Node]string{}}
}

// TypeBuffers runs the fixed-point loop (spec.md §4.4): each iteration
// re-asks every untyped buffer for its initializer's type; the loop
// terminates when one iteration makes no progress. It returns the
// buffers that remain untyped at exit -- these are recursive and are
// reported by the validator, not here.
func (c *Checker) TypeBuffers() []*ast.Node {
	var buffers []*ast.Node
	for _, root := range c.idx.Roots() {
		for _, item := range root.Items {
			if item.Kind == ast.KindBufferItem {
				buffers = append(buffers, item)
			}
		}
	}
	sort.Slice(buffers, func(i, j int) bool { return buffers[i].ID < buffers[j].ID })

	for {
		progress := false
		for _, b := range buffers {
			if _, done := c.buf[b]; done {
				continue
			}
			if t, ok := c.ExprType(b.Field("value")); ok {
				c.buf[b] = t
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	var untyped []*ast.Node
	for _, b := range buffers {
		if _, ok := c.buf[b]; !ok {
			untyped = append(untyped, b)
		}
	}
	return untyped
}

// BufferType returns a buffer's type as computed by TypeBuffers, which
// must have been called first.
func (c *Checker) BufferType(buf *ast.Node) (string, bool) {
	t, ok := c.buf[buf]
	return t, ok
}

// ExprType computes n's type, or ok=false if it cannot yet be determined
// (an unresolved reference, or a buffer dependency not yet typed during
// the fixed-point loop -- both are legitimate "not yet" states, not
// necessarily permanent failures, so results are only cached on success).
func (c *Checker) ExprType(n *ast.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	if t, ok := c.memo[n]; ok {
		return t, true
	}
	t, ok := c.computeType(n)
	if ok {
		c.memo[n] = t
	}
	return t, ok
}

func (c *Checker) computeType(n *ast.Node) (string, bool) {
	switch n.Kind {
	case ast.KindBoolLit:
		return "bool", true
	case ast.KindF32Lit:
		return "f32", true
	case ast.KindU32Lit:
		return "u32", true
	case ast.KindI32Lit:
		return "i32", true
	case ast.KindIdent:
		src := resolve.Ident(c.idx, n)
		if src == nil {
			return "", false
		}
		return c.sourceType(src)
	case ast.KindUnaryExpr:
		operand := n.Field("operand")
		opType, ok := c.ExprType(operand)
		if !ok {
			return "", false
		}
		src := resolve.Unary(c.idx, n, resolve.UnaryOperatorName(n.Op), opType)
		if src == nil {
			return "", false
		}
		return c.sourceType(src)
	case ast.KindBinaryExpr:
		return c.typeOfTree(transform.BuildTree(n))
	case ast.KindTransformedExpr:
		left, lok := c.ExprType(n.Field("left"))
		right, rok := c.ExprType(n.Field("right"))
		if !lok || !rok {
			return "", false
		}
		src := resolve.Operator(c.idx, n, resolve.OperatorName(n.Op), left, right)
		if src == nil {
			return "", false
		}
		return c.sourceType(src)
	case ast.KindFnCall:
		argTypes, ok := c.callArgTypes(n, nil)
		if !ok {
			return "", false
		}
		src := resolve.FnCall(c.idx, n, n.Field("name").Slice, argTypes)
		if src == nil {
			return "", false
		}
		return c.sourceType(src)
	case ast.KindMethodCall:
		receiverType, ok := c.ExprType(n.Field("receiver"))
		if !ok {
			return "", false
		}
		argTypes, ok := c.callArgTypes(n, []string{receiverType})
		if !ok {
			return "", false
		}
		src := resolve.FnCall(c.idx, n, n.Field("name").Slice, argTypes)
		if src == nil {
			return "", false
		}
		return c.sourceType(src)
	default:
		return "", false
	}
}

// callArgTypes reads a call node's positional "arg0".."argN" fields in
// order, prepending lead (the method-call receiver type, or nil for a
// plain call).
func (c *Checker) callArgTypes(n *ast.Node, lead []string) ([]string, bool) {
	types := append([]string{}, lead...)
	for i := 0; ; i++ {
		arg := n.Field(argFieldName(i))
		if arg == nil {
			break
		}
		t, ok := c.ExprType(arg)
		if !ok {
			return nil, false
		}
		types = append(types, t)
	}
	return types, true
}

// ResolveCall returns the function or native function a call targets, or
// nil if any argument's type is not yet known. Exported for the emitter,
// which needs the same resolution typecheck performs internally but from
// outside the memoized type computation.
func (c *Checker) ResolveCall(n *ast.Node) *ast.Node {
	switch n.Kind {
	case ast.KindFnCall:
		argTypes, ok := c.callArgTypes(n, nil)
		if !ok {
			return nil
		}
		return resolve.FnCall(c.idx, n, n.Field("name").Slice, argTypes)
	case ast.KindMethodCall:
		receiverType, ok := c.ExprType(n.Field("receiver"))
		if !ok {
			return nil
		}
		argTypes, ok := c.callArgTypes(n, []string{receiverType})
		if !ok {
			return nil
		}
		return resolve.FnCall(c.idx, n, n.Field("name").Slice, argTypes)
	default:
		return nil
	}
}

func argFieldName(i int) string {
	names := []string{"arg0", "arg1", "arg2", "arg3", "arg4", "arg5", "arg6", "arg7", "arg8", "arg9"}
	if i < len(names) {
		return names[i]
	}
	return "argN"
}

func (c *Checker) typeOfTree(t *transform.BTree) (string, bool) {
	if t.Op == "" {
		return c.ExprType(t.Leaf)
	}
	left, lok := c.typeOfTree(t.Left)
	right, rok := c.typeOfTree(t.Right)
	if !lok || !rok {
		return "", false
	}
	src := resolve.Operator(c.idx, t.OpNode, resolve.OperatorName(t.Op), left, right)
	if src == nil {
		return "", false
	}
	return c.sourceType(src)
}

// sourceType returns the type a resolved definition node contributes to
// whatever referenced it.
func (c *Checker) sourceType(src *ast.Node) (string, bool) {
	switch src.Kind {
	case ast.KindBufferItem:
		return c.BufferType(src)
	case ast.KindVarDef, ast.KindRefDef:
		return c.ExprType(src.Field("value"))
	case ast.KindFnParam:
		return src.Field("type").Slice, true
	case ast.KindFnItem, ast.KindNativeFnItem:
		if rt := src.Field("signature").Field("returnType"); rt != nil {
			return rt.Slice, true
		}
		return NoReturn, true
	default:
		return "", false
	}
}

// IsRefReturning reports whether a resolved function (FnItem or
// NativeFnItem) declares a `ref` return type (spec.md §4.6b/c).
func IsRefReturning(fn *ast.Node) bool {
	rt := fn.Field("signature").Field("returnType")
	return rt != nil && rt.Op == "ref"
}

// IsRefParam reports whether a FnParam was declared with `ref`.
func IsRefParam(param *ast.Node) bool {
	return param.Op == "ref"
}
