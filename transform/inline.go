package transform

import (
	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/index"
	"github.com/gogpu/shad/resolve"
)

// Inline eliminates every call to a reference-returning or reference-
// parameter function by splicing the callee's body into the caller, its
// final return's expression taking the call's place (spec.md §4.6c). It
// runs to a fixed point: a caller can itself become an inlining target only
// through a chain of calls, and the validator already forbids recursion,
// so the process terminates. It must run after Split.
func Inline(idx *index.Index, tc TypeChecker, ids IDAllocator, roots map[string]*ast.Node) {
	var bodies []*ast.Node
	for _, root := range roots {
		for _, item := range root.Items {
			if body := bodyOf(item); body != nil {
				bodies = append(bodies, body)
			}
		}
	}
	for {
		changed := false
		for _, body := range bodies {
			newItems, ch := inlineStatements(idx, tc, ids, body.Items)
			if ch {
				body.Items = newItems
				body.Order = append([]*ast.Node{}, newItems...)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}

func inlineStatements(idx *index.Index, tc TypeChecker, ids IDAllocator, stmts []*ast.Node) ([]*ast.Node, bool) {
	var out []*ast.Node
	changed := false
	for _, stmt := range stmts {
		lead, newStmt, ch := inlineStatement(idx, tc, ids, stmt)
		if ch {
			changed = true
		}
		out = append(out, lead...)
		if newStmt != nil {
			out = append(out, newStmt)
		}
	}
	return out, changed
}

func inlineStatement(idx *index.Index, tc TypeChecker, ids IDAllocator, stmt *ast.Node) ([]*ast.Node, *ast.Node, bool) {
	switch stmt.Kind {
	case ast.KindVarDef, ast.KindRefDef, ast.KindReturnStmt:
		if lead, newVal, ok := tryInlineValue(idx, tc, ids, stmt.Field("value")); ok {
			clone := cloneWithFreshID(stmt, ids)
			if n := stmt.Field("name"); n != nil {
				clone.SetField("name", n)
			}
			clone.SetField("value", newVal)
			return lead, clone, true
		}
	case ast.KindExprStmt:
		if lead, _, ok := tryInlineValue(idx, tc, ids, stmt.Field("value")); ok {
			// A bare expression statement only exists for its side effect;
			// the substituted return value itself is discarded.
			return lead, nil, true
		}
	case ast.KindAssignment:
		target := stmt.Field("target")
		if target.Kind == ast.KindFnCall || target.Kind == ast.KindMethodCall {
			if callee := resolveCall(idx, tc, target); callee != nil && isInlineTarget(callee) {
				lead, substituted := inlineCall(idx, ids, target, callee)
				clone := cloneWithFreshID(stmt, ids)
				clone.SetField("target", substituted)
				clone.SetField("value", stmt.Field("value"))
				return lead, clone, true
			}
		}
		if lead, newVal, ok := tryInlineValue(idx, tc, ids, stmt.Field("value")); ok {
			clone := cloneWithFreshID(stmt, ids)
			clone.SetField("target", stmt.Field("target"))
			clone.SetField("value", newVal)
			return lead, clone, true
		}
	}
	return nil, stmt, false
}

func tryInlineValue(idx *index.Index, tc TypeChecker, ids IDAllocator, value *ast.Node) ([]*ast.Node, *ast.Node, bool) {
	if value == nil || (value.Kind != ast.KindFnCall && value.Kind != ast.KindMethodCall) {
		return nil, nil, false
	}
	callee := resolveCall(idx, tc, value)
	if callee == nil || !isInlineTarget(callee) {
		return nil, nil, false
	}
	lead, substituted := inlineCall(idx, ids, value, callee)
	return lead, substituted, true
}

// inlineCall substitutes call's arguments for callee's parameters
// throughout a fresh-id copy of callee's body, returning every statement
// but the last as lead statements to splice before the call site, and the
// final return statement's (substituted) value as the call's replacement.
func inlineCall(idx *index.Index, ids IDAllocator, call *ast.Node, callee *ast.Node) ([]*ast.Node, *ast.Node) {
	params := callee.Field("signature").Items
	args := collectArgs(call)

	subst := map[*ast.Node]*ast.Node{}
	for i, p := range params {
		if i < len(args) {
			subst[p] = args[i]
		}
	}

	body := callee.Field("body").Items
	cloned := make([]*ast.Node, len(body))
	for i, s := range body {
		cloned[i] = substituteStmt(idx, ids, s, subst)
		if s.Kind == ast.KindVarDef || s.Kind == ast.KindRefDef {
			// A local declared inside this body must resolve, for every
			// later statement in this same clone, to a reference to its own
			// cloned copy -- not back to the original declaration (shared
			// by every other call site that inlines this same function).
			subst[s] = referenceTo(ids, cloned[i], cloned[i])
		}
	}
	last := cloned[len(cloned)-1]
	return cloned[:len(cloned)-1], last.Field("value")
}

func substituteStmt(idx *index.Index, ids IDAllocator, stmt *ast.Node, subst map[*ast.Node]*ast.Node) *ast.Node {
	clone := cloneWithFreshID(stmt, ids)
	switch stmt.Kind {
	case ast.KindVarDef, ast.KindRefDef:
		clone.SetField("name", stmt.Field("name"))
		clone.SetField("value", substituteExpr(idx, ids, stmt.Field("value"), subst))
	case ast.KindAssignment:
		clone.SetField("target", substituteExpr(idx, ids, stmt.Field("target"), subst))
		clone.SetField("value", substituteExpr(idx, ids, stmt.Field("value"), subst))
	case ast.KindReturnStmt, ast.KindExprStmt:
		clone.SetField("value", substituteExpr(idx, ids, stmt.Field("value"), subst))
	}
	return clone
}

func substituteExpr(idx *index.Index, ids IDAllocator, n *ast.Node, subst map[*ast.Node]*ast.Node) *ast.Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.KindIdent:
		if src := resolve.Ident(idx, n); src != nil {
			if repl, ok := subst[src]; ok {
				return repl
			}
		}
		return n
	case ast.KindUnaryExpr:
		clone := cloneWithFreshID(n, ids)
		clone.SetField("operand", substituteExpr(idx, ids, n.Field("operand"), subst))
		return clone
	case ast.KindBinaryExpr:
		if eff := n.EffectiveExpr(); eff != n {
			return substituteExpr(idx, ids, eff, subst)
		}
		clone := cloneWithFreshID(n, ids)
		for _, item := range n.Items {
			clone.AddItem(substituteExpr(idx, ids, item, subst))
		}
		return clone
	case ast.KindTransformedExpr:
		clone := cloneWithFreshID(n, ids)
		clone.SetField("left", substituteExpr(idx, ids, n.Field("left"), subst))
		clone.SetField("operator", n.Field("operator"))
		clone.SetField("right", substituteExpr(idx, ids, n.Field("right"), subst))
		return clone
	case ast.KindFnCall:
		clone := cloneWithFreshID(n, ids)
		clone.SetField("name", n.Field("name"))
		for i := 0; ; i++ {
			arg := n.Field(ast.ArgFieldName(i))
			if arg == nil {
				break
			}
			clone.SetField(ast.ArgFieldName(i), substituteExpr(idx, ids, arg, subst))
		}
		return clone
	case ast.KindMethodCall:
		clone := cloneWithFreshID(n, ids)
		clone.SetField("receiver", substituteExpr(idx, ids, n.Field("receiver"), subst))
		clone.SetField("name", n.Field("name"))
		for i := 0; ; i++ {
			arg := n.Field(ast.ArgFieldName(i))
			if arg == nil {
				break
			}
			clone.SetField(ast.ArgFieldName(i), substituteExpr(idx, ids, arg, subst))
		}
		return clone
	default:
		return n
	}
}
