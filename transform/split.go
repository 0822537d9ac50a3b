package transform

import (
	"fmt"

	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/index"
)

// Split hoists a value-parameter argument of a call slated for inlining
// into a fresh local variable, so Inline never duplicates a possibly
// side-effecting argument expression when it substitutes the callee's body
// into multiple places (spec.md §4.6b). It must run after Binary and
// before Inline.
//
// Scope: a call is only rewritten when it sits directly in one of a
// statement's own expression fields (a var/ref initializer, an
// assignment's target or value, a return value, or a bare expression
// statement), recursing into that call's own arguments for nested calls.
// A reference-returning call buried inside a larger arithmetic expression
// (e.g. "a + borrow()") is out of scope for this pass -- see DESIGN.md.
func Split(idx *index.Index, tc TypeChecker, ids IDAllocator, roots map[string]*ast.Node) {
	for _, root := range roots {
		for _, item := range root.Items {
			body := bodyOf(item)
			if body == nil {
				continue
			}
			body.Items = splitStatements(idx, tc, ids, body.Items)
			body.Order = append([]*ast.Node{}, body.Items...)
		}
	}
}

func splitStatements(idx *index.Index, tc TypeChecker, ids IDAllocator, stmts []*ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, stmt := range stmts {
		out = append(out, splitStatement(idx, tc, ids, stmt)...)
		out = append(out, stmt)
	}
	return out
}

func splitStatement(idx *index.Index, tc TypeChecker, ids IDAllocator, stmt *ast.Node) []*ast.Node {
	switch stmt.Kind {
	case ast.KindVarDef, ast.KindRefDef, ast.KindReturnStmt, ast.KindExprStmt:
		return splitField(idx, tc, ids, stmt, "value")
	case ast.KindAssignment:
		lead := splitField(idx, tc, ids, stmt, "target")
		return append(lead, splitField(idx, tc, ids, stmt, "value")...)
	default:
		return nil
	}
}

func splitField(idx *index.Index, tc TypeChecker, ids IDAllocator, stmt *ast.Node, field string) []*ast.Node {
	call := stmt.Field(field)
	if call == nil || (call.Kind != ast.KindFnCall && call.Kind != ast.KindMethodCall) {
		return nil
	}
	callee := resolveCall(idx, tc, call)
	if callee == nil || !isInlineTarget(callee) {
		return nil
	}
	lead, newCall := splitCall(idx, tc, ids, call, callee)
	stmt.ReplaceField(field, newCall)
	return lead
}

// splitCall hoists every value-parameter argument of call into a fresh
// local, recursing into any argument that is itself an inlinable call (and
// so on through that call's own arguments).
func splitCall(idx *index.Index, tc TypeChecker, ids IDAllocator, call *ast.Node, callee *ast.Node) ([]*ast.Node, *ast.Node) {
	params := callee.Field("signature").Items
	args := collectArgs(call)

	var lead []*ast.Node
	newArgs := make([]*ast.Node, len(args))
	for i, arg := range args {
		if arg.Kind == ast.KindFnCall || arg.Kind == ast.KindMethodCall {
			if nestedCallee := resolveCall(idx, tc, arg); nestedCallee != nil && isInlineTarget(nestedCallee) {
				nestedLead, nestedNewCall := splitCall(idx, tc, ids, arg, nestedCallee)
				lead = append(lead, nestedLead...)
				arg = nestedNewCall
			}
		}
		if i < len(params) && !isRefParam(params[i]) {
			local := hoistLocal(ids, call, arg)
			lead = append(lead, local)
			newArgs[i] = referenceTo(ids, call, local)
		} else {
			newArgs[i] = arg
		}
	}
	return lead, rebuildCall(call, newArgs)
}

func hoistLocal(ids IDAllocator, template *ast.Node, value *ast.Node) *ast.Node {
	nameID := ids.Next()
	name := &ast.Node{
		ID:        nameID,
		Kind:      ast.KindIdent,
		Slice:     fmt.Sprintf("_h%d", nameID),
		Path:      template.Path,
		Span:      template.Span,
		ParentIDs: template.ParentIDs,
	}
	v := &ast.Node{
		ID:        ids.Next(),
		Kind:      ast.KindVarDef,
		Path:      template.Path,
		Span:      template.Span,
		ParentIDs: template.ParentIDs,
	}
	v.SetField("name", name)
	v.SetField("value", value)
	return v
}

func referenceTo(ids IDAllocator, template *ast.Node, local *ast.Node) *ast.Node {
	return &ast.Node{
		ID:        ids.Next(),
		Kind:      ast.KindIdent,
		Slice:     local.Field("name").Slice,
		Path:      template.Path,
		Span:      template.Span,
		ParentIDs: template.ParentIDs,
		Resolved:  local,
	}
}

func rebuildCall(call *ast.Node, newArgs []*ast.Node) *ast.Node {
	clone := &ast.Node{
		ID:        call.ID,
		Kind:      call.Kind,
		Path:      call.Path,
		Span:      call.Span,
		ParentIDs: call.ParentIDs,
		Op:        call.Op,
	}
	i := 0
	if call.Kind == ast.KindMethodCall {
		clone.SetField("receiver", newArgs[0])
		clone.SetField("name", call.Field("name"))
		i = 1
	} else {
		clone.SetField("name", call.Field("name"))
	}
	for argIdx := 0; i < len(newArgs); i, argIdx = i+1, argIdx+1 {
		clone.SetField(ast.ArgFieldName(argIdx), newArgs[i])
	}
	return clone
}
