package transform

import (
	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/index"
)

// RefVar removes a `ref` local whose initializer is itself a reference
// expression (an identifier denoting some other place), replacing every
// later use of that local with the initializer directly; a `ref` local
// whose initializer is a computed value instead becomes an ordinary `var`
// (spec.md §4.6d). It must run after Inline, and processes one block in a
// single top-to-bottom pass: a local's elimination is recorded before its
// own later uses are reached, so chains of ref-to-ref aliasing collapse
// completely.
func RefVar(idx *index.Index, ids IDAllocator, roots map[string]*ast.Node) {
	for _, root := range roots {
		for _, item := range root.Items {
			body := bodyOf(item)
			if body == nil {
				continue
			}
			body.Items = refVarBlock(idx, ids, body.Items)
			body.Order = append([]*ast.Node{}, body.Items...)
		}
	}
}

func refVarBlock(idx *index.Index, ids IDAllocator, stmts []*ast.Node) []*ast.Node {
	subst := map[*ast.Node]*ast.Node{}
	var out []*ast.Node
	for _, stmt := range stmts {
		rewritten := substituteStmt(idx, ids, stmt, subst)
		if stmt.Kind == ast.KindRefDef {
			value := rewritten.Field("value")
			if value.Kind == ast.KindIdent {
				subst[stmt] = value
				continue
			}
			asVar := &ast.Node{
				ID:        rewritten.ID,
				Kind:      ast.KindVarDef,
				Path:      rewritten.Path,
				Span:      rewritten.Span,
				ParentIDs: rewritten.ParentIDs,
			}
			asVar.SetField("name", rewritten.Field("name"))
			asVar.SetField("value", value)
			out = append(out, asVar)
			continue
		}
		out = append(out, rewritten)
	}
	return out
}
