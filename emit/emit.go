// Package emit transpiles a validated, transformed AST into WGSL (spec.md
// §4.7). It runs last in the pipeline, after transform.Binary/Split/
// Inline/RefVar have eliminated every reference parameter and
// reference-returning call, so the only calls left to transpile are to
// regular or native functions.
package emit

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/index"
	"github.com/gogpu/shad/resolve"
	"github.com/gogpu/shad/typecheck"
)

// Shader is one WGSL compute shader the compiler produced, plus the buffer
// names it binds (in binding-index order).
type Shader struct {
	Name              string
	Code              string
	ReferencedBuffers []string
}

// BufferDescriptor describes one declared buffer (spec.md §3: `buffers:
// name->{size_bytes, type_name}`). Validate rejects any buffer whose type
// isn't one of the four 4-byte primitives (SPEC_FULL §9 #4), so SizeBytes
// is always 4 here.
type BufferDescriptor struct {
	SizeBytes int
	TypeName  string
}

// Program is the compiler's output (spec.md §3): every declared buffer's
// descriptor, the shaders that run once at startup (one per buffer plus
// one per `init` block, in a valid initialization order), and the shaders
// that run every frame (one per `run` block).
type Program struct {
	Buffers     map[string]BufferDescriptor
	InitShaders []Shader
	RunShaders  []Shader
}

// Emit builds the Program for an already-validated and transformed
// compilation. idx and tc must be the same index and checker used during
// validation; roots must have already gone through transform.Binary,
// transform.Split, transform.Inline, and transform.RefVar, in that order.
func Emit(idx *index.Index, tc *typecheck.Checker, roots map[string]*ast.Node) *Program {
	e := &emitter{idx: idx, tc: tc}

	var buffers []*ast.Node
	for _, root := range roots {
		for _, item := range root.Items {
			if item.Kind == ast.KindBufferItem {
				buffers = append(buffers, item)
			}
		}
	}
	sort.Slice(buffers, func(i, j int) bool { return buffers[i].ID < buffers[j].ID })

	directDeps := map[*ast.Node][]*ast.Node{}
	bufferFns := map[*ast.Node][]*ast.Node{}
	for _, b := range buffers {
		deps, fns := e.collectDeps(b.Field("value"))
		directDeps[b] = deps
		bufferFns[b] = fns
	}
	order := topoSort(buffers, directDeps)

	p := &Program{Buffers: map[string]BufferDescriptor{}}
	for _, b := range order {
		t, ok := e.tc.BufferType(b)
		if !ok {
			panic("shad: internal error: emit: untyped buffer reached emission")
		}
		p.Buffers[b.Field("name").Slice] = BufferDescriptor{SizeBytes: 4, TypeName: t}
	}

	for _, b := range order {
		bound := append(filterOrdered(order, directDeps[b]), b)
		preamble := e.preamble(bound, bufferFns[b])
		body := fmt.Sprintf("@compute @workgroup_size(1,1,1)\nfn main() { _%d = %s; }\n",
			b.ID, e.expr(b.Field("value")))
		refs := bufferNames(bound)
		p.InitShaders = append(p.InitShaders, Shader{
			Name:              "init:" + b.Field("name").Slice,
			Code:              preamble + body,
			ReferencedBuffers: refs,
		})
	}

	for _, root := range roots {
		for _, item := range root.Items {
			switch item.Kind {
			case ast.KindInitItem:
				p.InitShaders = append(p.InitShaders, e.blockShader("init", order, item.Field("body")))
			case ast.KindRunItem:
				p.RunShaders = append(p.RunShaders, e.blockShader("run", order, item.Field("body")))
			}
		}
	}

	return p
}

type emitter struct {
	idx *index.Index
	tc  *typecheck.Checker
}

func (e *emitter) blockShader(kind string, order []*ast.Node, body *ast.Node) Shader {
	deps, fns := e.collectDeps(body)
	ordered := filterOrdered(order, deps)
	preamble := e.preamble(ordered, fns)
	code := preamble + "@compute @workgroup_size(1,1,1)\nfn main() {\n" + e.block(body) + "}\n"
	return Shader{Name: kind, Code: code, ReferencedBuffers: bufferNames(ordered)}
}

// preamble emits storage bindings for deps (in order) followed by WGSL
// function definitions for fns, each with a lead-in block copying its
// parameters into mutable locals (spec.md §4.7).
func (e *emitter) preamble(deps []*ast.Node, fns []*ast.Node) string {
	var b strings.Builder
	for i, dep := range deps {
		t, ok := e.tc.BufferType(dep)
		if !ok {
			panic("shad: internal error: emit: untyped buffer reached emission")
		}
		fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, read_write> _%d: %s;\n", i, dep.ID, wgslType(t))
	}
	for _, fn := range fns {
		b.WriteString(e.fnDef(fn))
	}
	return b.String()
}

func (e *emitter) fnDef(fn *ast.Node) string {
	sig := fn.Field("signature")
	params := sig.Items

	var b strings.Builder
	fmt.Fprintf(&b, "fn _%d(", fn.ID)
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "_p%d: %s", p.ID, wgslType(p.Field("type").Slice))
	}
	b.WriteString(")")
	if rt := sig.Field("returnType"); rt != nil {
		fmt.Fprintf(&b, " -> %s", wgslType(rt.Slice))
	}
	b.WriteString(" {\n")
	for _, p := range params {
		fmt.Fprintf(&b, "var _%d: %s = _p%d;\n", p.ID, wgslType(p.Field("type").Slice), p.ID)
	}
	b.WriteString(e.block(fn.Field("body")))
	b.WriteString("}\n")
	return b.String()
}

func (e *emitter) block(body *ast.Node) string {
	var b strings.Builder
	for _, stmt := range body.Items {
		b.WriteString(e.stmt(stmt))
	}
	return b.String()
}

func (e *emitter) stmt(stmt *ast.Node) string {
	switch stmt.Kind {
	case ast.KindVarDef, ast.KindRefDef:
		t, ok := e.tc.ExprType(stmt.Field("value"))
		if !ok {
			panic("shad: internal error: emit: untyped local reached emission")
		}
		return fmt.Sprintf("var _%d: %s = %s;\n", stmt.ID, wgslType(t), e.expr(stmt.Field("value")))
	case ast.KindAssignment:
		return fmt.Sprintf("%s = %s;\n", e.expr(stmt.Field("target")), e.expr(stmt.Field("value")))
	case ast.KindReturnStmt:
		return fmt.Sprintf("return %s;\n", e.expr(stmt.Field("value")))
	case ast.KindExprStmt:
		return fmt.Sprintf("%s;\n", e.expr(stmt.Field("value")))
	default:
		panic("shad: internal error: emit: unknown statement kind reached emission")
	}
}

func (e *emitter) expr(n *ast.Node) string {
	switch n.Kind {
	case ast.KindBoolLit:
		return fmt.Sprintf("u32(%s)", n.Slice)
	case ast.KindF32Lit:
		return fmt.Sprintf("f32(%s)", stripLeadingZeros(n.Slice))
	case ast.KindU32Lit:
		return fmt.Sprintf("u32(%s)", stripLeadingZeros(strings.TrimSuffix(n.Slice, "u")))
	case ast.KindI32Lit:
		return fmt.Sprintf("i32(%s)", stripLeadingZeros(n.Slice))
	case ast.KindIdent:
		src := resolve.Ident(e.idx, n)
		if src == nil {
			panic("shad: internal error: emit: unresolved identifier reached emission")
		}
		return fmt.Sprintf("_%d", src.ID)
	case ast.KindUnaryExpr:
		operand := n.Field("operand")
		opType, ok := e.tc.ExprType(operand)
		if !ok {
			panic("shad: internal error: emit: untyped unary operand reached emission")
		}
		src := resolve.Unary(e.idx, n, resolve.UnaryOperatorName(n.Op), opType)
		if src == nil {
			panic("shad: internal error: emit: unresolved unary operator reached emission")
		}
		return e.call(src, []string{e.expr(operand)})
	case ast.KindBinaryExpr:
		return e.expr(n.EffectiveExpr())
	case ast.KindTransformedExpr:
		left, right := n.Field("left"), n.Field("right")
		leftType, lok := e.tc.ExprType(left)
		rightType, rok := e.tc.ExprType(right)
		if !lok || !rok {
			panic("shad: internal error: emit: untyped binary operand reached emission")
		}
		src := resolve.Operator(e.idx, n, resolve.OperatorName(n.Op), leftType, rightType)
		if src == nil {
			panic("shad: internal error: emit: unresolved operator reached emission")
		}
		return e.call(src, []string{e.expr(left), e.expr(right)})
	case ast.KindFnCall, ast.KindMethodCall:
		callee := e.tc.ResolveCall(n)
		if callee == nil {
			panic("shad: internal error: emit: unresolved call reached emission")
		}
		var args []string
		if n.Kind == ast.KindMethodCall {
			args = append(args, e.expr(n.Field("receiver")))
		}
		for i := 0; ; i++ {
			arg := n.Field(ast.ArgFieldName(i))
			if arg == nil {
				break
			}
			args = append(args, e.expr(arg))
		}
		return e.call(callee, args)
	default:
		panic("shad: internal error: emit: unknown expression kind reached emission")
	}
}

// call transpiles a resolved callee applied to already-transpiled args:
// a native function's body template with parameter names substituted, or
// an ordinary function call (spec.md §4.7).
func (e *emitter) call(callee *ast.Node, args []string) string {
	if callee.Kind == ast.KindNativeFnItem {
		return substituteNative(callee, args)
	}
	return fmt.Sprintf("_%d(%s)", callee.ID, strings.Join(args, ", "))
}

func substituteNative(native *ast.Node, args []string) string {
	params := native.Field("signature").Items
	body := native.Field("body").Slice
	body = strings.TrimPrefix(body, `"`)
	body = strings.TrimSuffix(body, `"`)

	names := make([]string, len(params))
	byName := map[string]string{}
	for i, p := range params {
		name := p.Field("name").Slice
		names[i] = regexp.QuoteMeta(name)
		byName[name] = args[i]
	}
	re := regexp.MustCompile(`\b(` + strings.Join(names, "|") + `)\b`)
	return re.ReplaceAllStringFunc(body, func(m string) string { return byName[m] })
}

// collectDeps returns, in discovery order, every buffer and every regular
// (non-native) function transitively reachable from n: a call's argument
// expressions, and the full body of any regular function it calls,
// recursively (spec.md §4.7 "transitively references").
func (e *emitter) collectDeps(n *ast.Node) (buffers []*ast.Node, fns []*ast.Node) {
	seenBuf := map[*ast.Node]bool{}
	seenFn := map[*ast.Node]bool{}
	e.walkDeps(n, seenBuf, seenFn, &buffers, &fns)
	return buffers, fns
}

func (e *emitter) walkDeps(n *ast.Node, seenBuf, seenFn map[*ast.Node]bool, buffers, fns *[]*ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindBlock:
		for _, stmt := range n.Items {
			e.walkDeps(stmt, seenBuf, seenFn, buffers, fns)
		}
	case ast.KindVarDef, ast.KindRefDef:
		e.walkDeps(n.Field("value"), seenBuf, seenFn, buffers, fns)
	case ast.KindAssignment:
		e.walkDeps(n.Field("target"), seenBuf, seenFn, buffers, fns)
		e.walkDeps(n.Field("value"), seenBuf, seenFn, buffers, fns)
	case ast.KindReturnStmt, ast.KindExprStmt:
		e.walkDeps(n.Field("value"), seenBuf, seenFn, buffers, fns)
	case ast.KindIdent:
		src := resolve.Ident(e.idx, n)
		if src != nil && src.Kind == ast.KindBufferItem && !seenBuf[src] {
			seenBuf[src] = true
			*buffers = append(*buffers, src)
		}
	case ast.KindUnaryExpr:
		e.walkDeps(n.Field("operand"), seenBuf, seenFn, buffers, fns)
	case ast.KindBinaryExpr:
		e.walkDeps(n.EffectiveExpr(), seenBuf, seenFn, buffers, fns)
	case ast.KindTransformedExpr:
		e.walkDeps(n.Field("left"), seenBuf, seenFn, buffers, fns)
		e.walkDeps(n.Field("right"), seenBuf, seenFn, buffers, fns)
	case ast.KindFnCall, ast.KindMethodCall:
		if n.Kind == ast.KindMethodCall {
			e.walkDeps(n.Field("receiver"), seenBuf, seenFn, buffers, fns)
		}
		for i := 0; ; i++ {
			arg := n.Field(ast.ArgFieldName(i))
			if arg == nil {
				break
			}
			e.walkDeps(arg, seenBuf, seenFn, buffers, fns)
		}
		callee := e.tc.ResolveCall(n)
		if callee != nil && callee.Kind == ast.KindFnItem && !seenFn[callee] {
			seenFn[callee] = true
			*fns = append(*fns, callee)
			e.walkDeps(callee.Field("body"), seenBuf, seenFn, buffers, fns)
		}
	}
}

// topoSort orders buffers so that every buffer in directDeps[b] precedes b,
// via DFS postorder (spec.md §4.7 "Buffer ordering"). A cycle is
// impossible: the validator rejects recursive buffers before emit runs.
func topoSort(buffers []*ast.Node, directDeps map[*ast.Node][]*ast.Node) []*ast.Node {
	visited := map[*ast.Node]bool{}
	var order []*ast.Node
	var visit func(*ast.Node)
	visit = func(b *ast.Node) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, dep := range directDeps[b] {
			visit(dep)
		}
		order = append(order, b)
	}
	for _, b := range buffers {
		visit(b)
	}
	return order
}

// filterOrdered returns the subset of order present in set, preserving
// order's sequence -- order is already a valid topological order for any
// subset of its elements.
func filterOrdered(order []*ast.Node, set []*ast.Node) []*ast.Node {
	want := map[*ast.Node]bool{}
	for _, n := range set {
		want[n] = true
	}
	var out []*ast.Node
	for _, n := range order {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}

func bufferNames(buffers []*ast.Node) []string {
	names := make([]string, len(buffers))
	for i, b := range buffers {
		names[i] = b.Field("name").Slice
	}
	return names
}

func wgslType(t string) string {
	switch t {
	case "bool":
		return "u32"
	case "vec2":
		return "vec2<f32>"
	case "vec3":
		return "vec3<f32>"
	case "vec4":
		return "vec4<f32>"
	default:
		return t
	}
}

func stripLeadingZeros(s string) string {
	s = strings.ReplaceAll(s, "_", "")
	dot := strings.IndexByte(s, '.')
	intPart, frac := s, ""
	if dot >= 0 {
		intPart, frac = s[:dot], s[dot:]
	}
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	return intPart + frac
}
