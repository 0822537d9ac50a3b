// Package transform implements the four source-to-source passes of
// spec.md §4.6: binary-operator restructuring, reference-parameter split,
// reference-function inlining, and reference-variable inlining. All four
// run only after validation has succeeded (spec.md §4.6 "Transformations
// are semantics-preserving given that the validator has accepted the
// program").
package transform

import "github.com/gogpu/shad/ast"

// BTree is a restructured binary-expression tree: either a leaf (Op == "")
// wrapping a non-binary operand, or an interior node recording the
// operator lexeme and the node it was parsed from. Exported so typecheck
// can compute the type of a not-yet-materialized chain using the exact
// same precedence logic the materialization pass uses.
type BTree struct {
	Op     string
	OpNode *ast.Node
	Left   *BTree
	Right  *BTree
	Leaf   *ast.Node
}

// precedence bands, loosest (lowest number) to tightest (spec.md §4.6a):
// ||, &&, comparisons, + -, * / %.
func precedence(op string) int {
	switch op {
	case "||":
		return 0
	case "&&":
		return 1
	case "<", ">", "<=", ">=", "==", "!=":
		return 2
	case "+", "-":
		return 3
	case "*", "/", "%":
		return 4
	default:
		return -1
	}
}

// BuildTree restructures a flat KindBinaryExpr chain (or, for anything
// else, a single leaf) into a BTree via precedence climbing, left-
// associative within one band. Nested parenthesized sub-expressions are
// themselves flat KindBinaryExpr nodes occupying an operand slot (the
// grammar has no separate "parenthesized" wrapper), so they dissolve
// straight into the same tree rather than remaining a distinct leaf.
func BuildTree(n *ast.Node) *BTree {
	if n == nil || n.Kind != ast.KindBinaryExpr {
		return &BTree{Leaf: n}
	}
	if len(n.Items) == 1 {
		return BuildTree(n.Items[0])
	}
	var operands, ops []*ast.Node
	for i, item := range n.Items {
		if i%2 == 0 {
			operands = append(operands, item)
		} else {
			ops = append(ops, item)
		}
	}
	pos := 0
	var climb func(minPrec int) *BTree
	climb = func(minPrec int) *BTree {
		left := BuildTree(operands[pos])
		pos++
		for pos-1 < len(ops) {
			op := ops[pos-1]
			p := precedence(op.Slice)
			if p < minPrec {
				break
			}
			right := climb(p + 1)
			left = &BTree{Op: op.Slice, OpNode: op, Left: left, Right: right}
		}
		return left
	}
	return climb(0)
}

// Binary walks every node reachable from root and, for each named field
// holding a flat KindBinaryExpr, restructures it and grafts the result
// onto the original via Transformed (spec.md §3 "Lifecycles": the
// original is left reachable but unused). A materialized node's id is
// the id of the operator it was built around (spec.md §4.6a); its
// ParentIDs/Path/Span are inherited from the flat chain it replaces,
// since that chain occupies the same structural position.
func Binary(root *ast.Node) {
	root.Walk(func(n *ast.Node) {
		for _, child := range n.Fields {
			if child.Kind == ast.KindBinaryExpr {
				child.Transformed = materialize(BuildTree(child), child)
			}
		}
	})
}

func materialize(t *BTree, flat *ast.Node) *ast.Node {
	if t.Op == "" {
		return t.Leaf
	}
	left := materialize(t.Left, flat)
	right := materialize(t.Right, flat)
	n := &ast.Node{
		ID:        t.OpNode.ID,
		ParentIDs: flat.ParentIDs,
		Kind:      ast.KindTransformedExpr,
		Path:      flat.Path,
		Span:      flat.Span,
		Op:        t.Op,
	}
	n.SetField("left", left)
	n.SetField("operator", t.OpNode)
	n.SetField("right", right)
	return n
}
