package validate

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/index"
	"github.com/gogpu/shad/resolve"
	"github.com/gogpu/shad/transform"
	"github.com/gogpu/shad/typecheck"
)

// checker is the subset of typecheck.Checker validate depends on, kept
// narrow so tests can exercise validate against a stub.
type checker interface {
	ExprType(n *ast.Node) (string, bool)
	TypeBuffers() []*ast.Node
}

type validator struct {
	idx     *index.Index
	tc      checker
	sources map[string]string
	errs    Errors
}

// Validate runs the twelve diagnostics (spec.md §4.5) against an indexed
// tree. It calls tc.TypeBuffers itself, which yields the list of buffers
// left untyped and caches every buffer type for the passes that run after
// validation. sources maps each indexed path to its full source text,
// used only to populate diagnostic snippets.
func Validate(idx *index.Index, tc checker, sources map[string]string) Errors {
	v := &validator{idx: idx, tc: tc, sources: sources}

	untypedBuffers := map[*ast.Node]bool{}
	for _, b := range tc.TypeBuffers() {
		untypedBuffers[b] = true
	}

	var paths []string
	for p := range idx.Roots() {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		root := idx.Roots()[path]
		for _, item := range root.Items {
			v.checkItem(path, item, untypedBuffers)
		}
	}

	v.errs.Sort()
	return v.errs
}

func (v *validator) checkItem(path string, item *ast.Node, untypedBuffers map[*ast.Node]bool) {
	switch item.Kind {
	case ast.KindImport:
		v.checkImport(path, item)
	case ast.KindBufferItem:
		v.checkDuplicated(item)
		if untypedBuffers[item] {
			v.errs = append(v.errs, newError(v.sources, item,
				"item definition with circular dependency",
				"this item is directly or indirectly referring to itself"))
		}
		v.checkExpr(item.Field("value"))
		v.checkBufferType(item)
	case ast.KindInitItem, ast.KindRunItem:
		v.checkNonReturnBlock(item.Field("body"))
		v.checkBlock(item.Field("body"))
	case ast.KindNativeFnItem:
		v.checkDuplicated(item)
	case ast.KindFnItem:
		v.checkDuplicated(item)
		v.checkFn(item)
	}
}

// --- diagnostic 9: missing import target file ---

func (v *validator) checkImport(path string, imp *ast.Node) {
	target := v.idx.ResolveImport(path, imp)
	if v.idx.Root(target) == nil {
		v.errs = append(v.errs, newError(v.sources, imp,
			"imported file not found",
			"no file found at `"+target+"`"))
	}
}

// --- diagnostic 2: duplicate top-level items ---

func (v *validator) checkDuplicated(item *ast.Node) {
	key := v.idx.Key(item)
	if key == "" {
		return
	}
	root := v.idx.Root(item.Path)
	for _, other := range root.Items {
		if other.ID < item.ID && v.idx.Key(other) == key {
			v.errs = append(v.errs, newError(v.sources, item,
				key+" defined multiple times",
				"duplicated item",
				at(other, "same item defined here")))
			return
		}
	}
}

// --- buffer type shape ---

// checkBufferType rejects a buffer whose initializer resolves to anything
// but one of the four primitive types: composite (e.g. vector-constructor)
// byte layout is explicitly out of scope (SPEC_FULL.md §9 point 4).
func (v *validator) checkBufferType(buf *ast.Node) {
	t, ok := v.tc.ExprType(buf.Field("value"))
	if !ok || t == typecheck.NoReturn {
		return
	}
	switch t {
	case "i32", "u32", "f32", "bool":
		return
	}
	v.errs = append(v.errs, newError(v.sources, buf.Field("value"),
		"unsupported buffer type",
		"buffer initializer has type `"+t+"`, which has no defined storage layout"))
}

// --- function-specific checks: duplicate params, recursion, return shape ---

func (v *validator) checkFn(fn *ast.Node) {
	sig := fn.Field("signature")
	body := fn.Field("body")

	v.checkDuplicatedParams(sig.Items)

	if v.isFnRecursive(fn, map[*ast.Node]bool{}) {
		v.errs = append(v.errs, newError(v.sources, fn,
			"item definition with circular dependency",
			"this item is directly or indirectly referring to itself"))
	}

	returnType := sig.Field("returnType")
	lastStmt := lastStatement(body)
	if returnType != nil && (lastStmt == nil || lastStmt.Kind != ast.KindReturnStmt) {
		v.errs = append(v.errs, newError(v.sources, body,
			"missing return statement",
			"last statement should be a `return` statement",
			at(returnType, "the function has a return type")))
	}
	if returnType != nil && lastStmt != nil && lastStmt.Kind == ast.KindReturnStmt {
		expected := returnType.Slice
		actual, ok := v.tc.ExprType(lastStmt.Field("value"))
		if ok && actual != typecheck.NoReturn && actual != expected {
			v.errs = append(v.errs, newError(v.sources, lastStmt.Field("value"),
				"invalid returned type",
				"returned type is `"+actual+"`",
				at(returnType, "expected type is `"+expected+"`")))
		}
	}

	v.checkBlock(body)
}

func (v *validator) checkDuplicatedParams(params []*ast.Node) {
	for i, p1 := range params {
		for _, p2 := range params[i+1:] {
			if p1.Field("name").Slice == p2.Field("name").Slice {
				v.errs = append(v.errs, newError(v.sources, p2,
					"function parameter defined multiple times",
					"duplicated parameter name",
					at(p1, "same parameter name defined here")))
			}
		}
	}
}

// lastStatement returns a block's final direct statement, or nil for an
// empty block.
func lastStatement(block *ast.Node) *ast.Node {
	if len(block.Items) == 0 {
		return nil
	}
	return block.Items[len(block.Items)-1]
}

// --- diagnostics 7 & 8: return placement ---

func (v *validator) checkNonReturnBlock(block *ast.Node) {
	for _, stmt := range block.Items {
		if stmt.Kind == ast.KindReturnStmt {
			v.errs = append(v.errs, newError(v.sources, stmt,
				"`return` statement used outside a function",
				"not allowed statement"))
		}
	}
}

func (v *validator) checkBlock(block *ast.Node) {
	last := lastStatement(block)
	for _, stmt := range block.Items {
		if stmt.Kind == ast.KindReturnStmt && stmt != last {
			v.errs = append(v.errs, newError(v.sources, stmt,
				"`return` statement before end of the block",
				"only allowed at the end of a block"))
		}
	}
	for _, stmt := range block.Items {
		v.checkStmt(stmt)
	}
}

// --- per-statement checks: assignment type, expr-statement shape, exprs ---

func (v *validator) checkStmt(stmt *ast.Node) {
	switch stmt.Kind {
	case ast.KindVarDef, ast.KindRefDef:
		v.checkExpr(stmt.Field("value"))
	case ast.KindAssignment:
		v.checkExpr(stmt.Field("target"))
		v.checkExpr(stmt.Field("value"))
		v.checkAssignmentTypes(stmt)
	case ast.KindExprStmt:
		v.checkExpr(stmt.Field("value"))
		if k := stmt.Field("value").Kind; k != ast.KindFnCall && k != ast.KindMethodCall {
			v.errs = append(v.errs, newError(v.sources, stmt,
				"invalid statement",
				"this expression must be assigned to a variable"))
		}
	case ast.KindReturnStmt:
		v.checkExpr(stmt.Field("value"))
	}
}

// checkAssignmentTypes implements diagnostic 6 for assignments: both sides
// known, neither "<no return>", types must match (spec.md §4.5 point 6).
func (v *validator) checkAssignmentTypes(stmt *ast.Node) {
	target := stmt.Field("target")
	value := stmt.Field("value")
	leftType, lok := v.tc.ExprType(target)
	rightType, rok := v.tc.ExprType(value)
	if !lok || !rok {
		return
	}
	if leftType == typecheck.NoReturn || rightType == typecheck.NoReturn {
		return
	}
	if leftType != rightType {
		v.errs = append(v.errs, newError(v.sources, value,
			"invalid expression type",
			"expression type is `"+rightType+"`",
			at(target, "expected type is `"+leftType+"`")))
	}
}

// --- diagnostic 10: undefined references, one per sub-expression ---

// checkExpr walks an expression subtree and records an "undefined item"
// diagnostic at every reference that fails to resolve, independently of
// whether an enclosing reference's own resolution also fails (spec.md §4.5
// point 10; unlike typecheck.ExprType, which only reports "not yet typed"
// for the outermost caller, each failure here is surfaced on its own node).
func (v *validator) checkExpr(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindBoolLit, ast.KindF32Lit, ast.KindU32Lit, ast.KindI32Lit, ast.KindStringLit:
		v.checkLiteralRange(n)
	case ast.KindIdent:
		if resolve.Ident(v.idx, n) == nil {
			v.errs = append(v.errs, newError(v.sources, n,
				"undefined item",
				index.VariableKey(n.Slice)+" is undefined"))
		}
	case ast.KindUnaryExpr:
		operand := n.Field("operand")
		v.checkExpr(operand)
		if opType, ok := v.tc.ExprType(operand); ok {
			opName := resolve.UnaryOperatorName(n.Op)
			if resolve.Unary(v.idx, n, opName, opType) == nil {
				v.errs = append(v.errs, newError(v.sources, n,
					"undefined item",
					index.FunctionKey(opName, []string{opType})+" is undefined"))
			}
		}
	case ast.KindBinaryExpr:
		v.checkBinaryTree(transform.BuildTree(n))
	case ast.KindFnCall:
		v.checkCall(n, n.Field("name").Slice, nil)
	case ast.KindMethodCall:
		receiver := n.Field("receiver")
		v.checkExpr(receiver)
		if receiverType, ok := v.tc.ExprType(receiver); ok {
			v.checkCall(n, n.Field("name").Slice, []string{receiverType})
		}
	}
}

func (v *validator) checkLiteralRange(n *ast.Node) {
	slice := strings.ReplaceAll(n.Slice, "_", "")
	switch n.Kind {
	case ast.KindF32Lit:
		f, err := strconv.ParseFloat(slice, 32)
		if err != nil || math.IsInf(f, 0) {
			v.errs = append(v.errs, newError(v.sources, n,
				"out-of-range literal",
				"value does not fit in a `f32`"))
		}
	case ast.KindU32Lit:
		if _, err := strconv.ParseUint(strings.TrimSuffix(slice, "u"), 10, 32); err != nil {
			v.errs = append(v.errs, newError(v.sources, n,
				"out-of-range literal",
				"value does not fit in a `u32`"))
		}
	case ast.KindI32Lit:
		if _, err := strconv.ParseInt(slice, 10, 32); err != nil {
			v.errs = append(v.errs, newError(v.sources, n,
				"out-of-range literal",
				"value does not fit in a `i32`"))
		}
	}
}

func (v *validator) checkBinaryTree(t *transform.BTree) {
	if t.Op == "" {
		v.checkExpr(t.Leaf)
		return
	}
	v.checkBinaryTree(t.Left)
	v.checkBinaryTree(t.Right)
	leftType, lok := v.typeOfTree(t.Left)
	rightType, rok := v.typeOfTree(t.Right)
	if !lok || !rok {
		return
	}
	opName := resolve.OperatorName(t.Op)
	if resolve.Operator(v.idx, t.OpNode, opName, leftType, rightType) == nil {
		v.errs = append(v.errs, newError(v.sources, t.OpNode,
			"undefined item",
			index.FunctionKey(opName, []string{leftType, rightType})+" is undefined"))
	}
}

// typeOfTree mirrors typecheck.Checker's own precedence-tree typing, needed
// here because a BTree's interior nodes have no backing ast.Node to key a
// memo table on.
func (v *validator) typeOfTree(t *transform.BTree) (string, bool) {
	if t.Op == "" {
		return v.tc.ExprType(t.Leaf)
	}
	leftType, lok := v.typeOfTree(t.Left)
	rightType, rok := v.typeOfTree(t.Right)
	if !lok || !rok {
		return "", false
	}
	src := resolve.Operator(v.idx, t.OpNode, resolve.OperatorName(t.Op), leftType, rightType)
	if src == nil {
		return "", false
	}
	return fnReturnType(src)
}

func (v *validator) checkCall(n *ast.Node, name string, lead []string) {
	types := append([]string{}, lead...)
	ok := true
	for i := 0; ; i++ {
		arg := n.Field(argFieldName(i))
		if arg == nil {
			break
		}
		v.checkExpr(arg)
		t, argOK := v.tc.ExprType(arg)
		if !argOK {
			ok = false
			continue
		}
		types = append(types, t)
	}
	if !ok {
		return
	}
	if resolve.FnCall(v.idx, n, name, types) == nil {
		v.errs = append(v.errs, newError(v.sources, n,
			"undefined item",
			index.FunctionKey(name, types)+" is undefined"))
	}
}

func argFieldName(i int) string {
	names := []string{"arg0", "arg1", "arg2", "arg3", "arg4", "arg5", "arg6", "arg7", "arg8", "arg9"}
	if i < len(names) {
		return names[i]
	}
	return "argN"
}

// fnReturnType reads a resolved FnItem/NativeFnItem's declared return type
// directly, without the memoization ExprType provides for referring nodes:
// a resolve target is a definition, never itself a cached reference.
func fnReturnType(src *ast.Node) (string, bool) {
	if rt := src.Field("signature").Field("returnType"); rt != nil {
		return rt.Slice, true
	}
	return typecheck.NoReturn, true
}

// --- diagnostic 3 for functions: call-graph recursion ---

// isFnRecursive reports whether fn can reach itself through direct calls
// resolved from its own body (spec.md §4.5 point 3; buffers are instead
// caught by the fixed-point typing loop's leftover "untyped" set).
// NativeFnItem bodies are opaque string literals and never appear as a
// callee resolved from inside another function's body walk, so they need
// no entry here -- they are graph leaves by construction.
func (v *validator) isFnRecursive(fn *ast.Node, visiting map[*ast.Node]bool) bool {
	if visiting[fn] {
		return true
	}
	visiting[fn] = true
	defer delete(visiting, fn)

	found := false
	fn.Field("body").Walk(func(n *ast.Node) {
		if found {
			return
		}
		var callee *ast.Node
		switch n.Kind {
		case ast.KindFnCall:
			if types, ok := v.callArgTypes(n, nil); ok {
				callee = resolve.FnCall(v.idx, n, n.Field("name").Slice, types)
			}
		case ast.KindMethodCall:
			receiverType, ok := v.tc.ExprType(n.Field("receiver"))
			if !ok {
				return
			}
			if types, ok := v.callArgTypes(n, []string{receiverType}); ok {
				callee = resolve.FnCall(v.idx, n, n.Field("name").Slice, types)
			}
		default:
			return
		}
		if callee == nil || callee.Kind != ast.KindFnItem {
			return
		}
		if callee == fn || v.isFnRecursive(callee, visiting) {
			found = true
		}
	})
	return found
}

func (v *validator) callArgTypes(n *ast.Node, lead []string) ([]string, bool) {
	types := append([]string{}, lead...)
	for i := 0; ; i++ {
		arg := n.Field(argFieldName(i))
		if arg == nil {
			break
		}
		t, ok := v.tc.ExprType(arg)
		if !ok {
			return nil, false
		}
		types = append(types, t)
	}
	return types, true
}
