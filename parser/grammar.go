package parser

import (
	"fmt"

	"github.com/gogpu/shad/ast"
	"github.com/gogpu/shad/token"
)

// Each parseX function implements one grammar production from spec.md
// §4.2, one function per production as that section specifies. A function
// returns a non-forced *Error when a caller higher up (an enclosing
// alternation) may still backtrack and try a sibling production; once a
// production has consumed a token past its "forced" point (a keyword that
// uniquely identifies it), any subsequent failure is marked forced and must
// not be absorbed by backtracking -- this is what turns "`buf` not
// followed by an identifier" into a hard error instead of a silent
// fallthrough (spec.md §4.2).

// parseRoot ::= Item* EOF
func parseRoot(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindRoot)
	for !c.at(token.EOF) {
		item, err := parseItem(c)
		if err != nil {
			return nil, err
		}
		n.AddItem(item)
	}
	if _, err := c.expect(token.EOF); err != nil {
		return nil, err
	}
	return c.finish(n, start), nil
}

// parseItem ::= Import | Buffer | Init | Run | NativeFn | Fn
func parseItem(c *ctx) (*ast.Node, *Error) {
	switch c.peek().Kind {
	case token.Import:
		return parseImport(c)
	case token.Buf:
		return parseBuffer(c)
	case token.Init:
		return parseInit(c)
	case token.Run:
		return parseRun(c)
	case token.Native:
		return parseNativeFn(c)
	case token.Fn:
		return parseFn(c)
	default:
		return nil, &Error{
			Path:     c.path,
			Offset:   c.peek().Span.Start,
			Expected: []string{token.Import.String(), token.Buf.String(), token.Init.String(), token.Run.String(), token.Native.String(), token.Fn.String()},
		}
	}
}

// parseImport ::= "import" ( (Ident | "~") "." )* Ident ";"
func parseImport(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindImport)
	if _, err := c.expect(token.Import); err != nil {
		return nil, err
	}
	var segments []*ast.Node
	for {
		mark := c.mark()
		var seg *ast.Node
		if c.at(token.Tilde) {
			tok, _ := c.expect(token.Tilde)
			seg = c.leaf(ast.KindIdent, tok)
		} else if c.at(token.Ident) {
			tok, _ := c.expect(token.Ident)
			seg = c.leaf(ast.KindIdent, tok)
		} else {
			break
		}
		if !c.at(token.Dot) {
			c.reset(mark)
			break
		}
		c.expect(token.Dot)
		segments = append(segments, seg)
	}
	last, err := c.expect(token.Ident)
	if err != nil {
		err.forced = true
		return nil, err
	}
	segments = append(segments, c.leaf(ast.KindIdent, last))
	for i, seg := range segments {
		n.SetField(segmentFieldName(i), seg)
	}
	if _, err := c.expect(token.Semicolon); err != nil {
		err.forced = true
		return nil, err
	}
	return c.finish(n, start), nil
}

func segmentFieldName(i int) string {
	return fmt.Sprintf("seg%d", i)
}

// parseBuffer ::= "buf" Ident "=" TypedExpr ";"
func parseBuffer(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindBufferItem)
	c.expect(token.Buf)
	name, err := c.expect(token.Ident)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("name", c.leaf(ast.KindIdent, name))
	if _, err := c.expect(token.Equal); err != nil {
		err.forced = true
		return nil, err
	}
	expr, err := parseExpr(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("value", expr)
	if _, err := c.expect(token.Semicolon); err != nil {
		err.forced = true
		return nil, err
	}
	return c.finish(n, start), nil
}

// parseInit ::= "init" Block
func parseInit(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindInitItem)
	c.expect(token.Init)
	block, err := parseBlock(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("body", block)
	return c.finish(n, start), nil
}

// parseRun ::= "run" Block
func parseRun(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindRunItem)
	c.expect(token.Run)
	block, err := parseBlock(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("body", block)
	return c.finish(n, start), nil
}

// parseNativeFn ::= "native" FnSignature "=" StringLit ";"
func parseNativeFn(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindNativeFnItem)
	c.expect(token.Native)
	sig, err := parseFnSignature(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("signature", sig)
	if _, err := c.expect(token.Equal); err != nil {
		err.forced = true
		return nil, err
	}
	lit, err := c.expect(token.StringLiteral)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("body", c.leaf(ast.KindStringLit, lit))
	if _, err := c.expect(token.Semicolon); err != nil {
		err.forced = true
		return nil, err
	}
	return c.finish(n, start), nil
}

// parseFn ::= FnSignature Block
func parseFn(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindFnItem)
	sig, err := parseFnSignature(c)
	if err != nil {
		return nil, err
	}
	n.SetField("signature", sig)
	block, err := parseBlock(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("body", block)
	return c.finish(n, start), nil
}

// parseFnSignature ::= "fn" Ident "(" (FnParam ("," FnParam)* ","?)? ")" ("->" "ref"? Type)?
func parseFnSignature(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindFnSignature)
	if _, err := c.expect(token.Fn); err != nil {
		return nil, err
	}
	name, err := c.expect(token.Ident)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("name", c.leaf(ast.KindIdent, name))
	if _, err := c.expect(token.LeftParen); err != nil {
		err.forced = true
		return nil, err
	}
	for !c.at(token.RightParen) {
		param, err := parseFnParam(c)
		if err != nil {
			err.forced = true
			return nil, err
		}
		n.AddItem(param)
		if c.at(token.Comma) {
			c.expect(token.Comma)
			continue
		}
		break
	}
	if _, err := c.expect(token.RightParen); err != nil {
		err.forced = true
		return nil, err
	}
	if c.at(token.Arrow) {
		c.expect(token.Arrow)
		isRef := false
		if c.at(token.Ref) {
			c.expect(token.Ref)
			isRef = true
		}
		ty, err := parseType(c)
		if err != nil {
			err.forced = true
			return nil, err
		}
		if isRef {
			ty.Op = "ref"
		}
		n.SetField("returnType", ty)
	}
	return c.finish(n, start), nil
}

// parseFnParam ::= Ident ":" "ref"? Type
func parseFnParam(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindFnParam)
	name, err := c.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	n.SetField("name", c.leaf(ast.KindIdent, name))
	if _, err := c.expect(token.Colon); err != nil {
		err.forced = true
		return nil, err
	}
	isRef := false
	if c.at(token.Ref) {
		c.expect(token.Ref)
		isRef = true
	}
	ty, err := parseType(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	if isRef {
		n.Op = "ref"
	}
	n.SetField("type", ty)
	return c.finish(n, start), nil
}

// parseBlock ::= "{" Stmt* "}"
func parseBlock(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindBlock)
	if _, err := c.expect(token.LeftBrace); err != nil {
		return nil, err
	}
	for !c.at(token.RightBrace) {
		stmt, err := parseStmt(c)
		if err != nil {
			return nil, err
		}
		n.AddItem(stmt)
	}
	if _, err := c.expect(token.RightBrace); err != nil {
		err.forced = true
		return nil, err
	}
	return c.finish(n, start), nil
}

// parseStmt ::= VarDef | RefDef | Assignment | ExprStmt | Return
func parseStmt(c *ctx) (*ast.Node, *Error) {
	switch c.peek().Kind {
	case token.Var:
		return parseVarDef(c)
	case token.Ref:
		return parseRefDef(c)
	case token.Return:
		return parseReturn(c)
	case token.Ident:
		// Assignment and ExprStmt both may begin with an identifier;
		// the "=" immediately after it is the forced-error fork point.
		mark := c.mark()
		depth := len(c.parentIDs)
		if n, err := parseAssignment(c); err == nil {
			return n, nil
		} else if err.forced {
			return nil, err
		}
		c.reset(mark)
		c.parentIDs = c.parentIDs[:depth]
		return parseExprStmt(c)
	default:
		return parseExprStmt(c)
	}
}

// parseVarDef ::= "var" Ident "=" TypedExpr ";"
func parseVarDef(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindVarDef)
	c.expect(token.Var)
	name, err := c.expect(token.Ident)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("name", c.leaf(ast.KindIdent, name))
	if _, err := c.expect(token.Equal); err != nil {
		err.forced = true
		return nil, err
	}
	expr, err := parseExpr(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("value", expr)
	if _, err := c.expect(token.Semicolon); err != nil {
		err.forced = true
		return nil, err
	}
	return c.finish(n, start), nil
}

// parseRefDef ::= "ref" Ident "=" TypedExpr ";"
func parseRefDef(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindRefDef)
	c.expect(token.Ref)
	name, err := c.expect(token.Ident)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("name", c.leaf(ast.KindIdent, name))
	if _, err := c.expect(token.Equal); err != nil {
		err.forced = true
		return nil, err
	}
	expr, err := parseExpr(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("value", expr)
	if _, err := c.expect(token.Semicolon); err != nil {
		err.forced = true
		return nil, err
	}
	return c.finish(n, start), nil
}

// parseAssignment ::= VarIdent "=" TypedExpr ";"
func parseAssignment(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindAssignment)
	// the left-hand side of an assignment can itself be an inlinable
	// reference-returning call (spec.md scenario 4, `borrow() = 7;`), so it
	// parses as a full Operand rather than a bare identifier.
	target, err := parseOperand(c)
	if err != nil {
		return nil, err
	}
	n.SetField("target", target)
	if _, err := c.expect(token.Equal); err != nil {
		return nil, err // not forced: could be a bare ExprStmt
	}
	expr, err := parseExpr(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("value", expr)
	if _, err := c.expect(token.Semicolon); err != nil {
		err.forced = true
		return nil, err
	}
	return c.finish(n, start), nil
}

// parseReturn ::= "return" TypedExpr ";"
func parseReturn(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindReturnStmt)
	c.expect(token.Return)
	expr, err := parseExpr(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("value", expr)
	if _, err := c.expect(token.Semicolon); err != nil {
		err.forced = true
		return nil, err
	}
	return c.finish(n, start), nil
}

// parseExprStmt ::= Expr ";"
func parseExprStmt(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindExprStmt)
	expr, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	n.SetField("value", expr)
	if _, err := c.expect(token.Semicolon); err != nil {
		err.forced = true
		return nil, err
	}
	return c.finish(n, start), nil
}

// parseExpr ::= Operand (BinOp Operand)*
// Produces the flat KindBinaryExpr chain; transform.Binary restructures it
// into a priority tree later (spec.md §4.6a). If there is exactly one
// operand and no operator, the operand itself is returned unwrapped.
func parseExpr(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindBinaryExpr)
	first, err := parseOperand(c)
	if err != nil {
		return nil, err
	}
	n.AddItem(first)
	for isBinOp(c.peek().Kind) {
		opTok := c.peek()
		c.pos++
		operand, err := parseOperand(c)
		if err != nil {
			err.forced = true
			return nil, err
		}
		opNode := c.leaf(ast.KindIdent, opTok)
		n.AddItem(opNode)
		n.AddItem(operand)
	}
	if len(n.Items) == 1 {
		// n is discarded: pop it from the parent stack and drop its id from
		// the chains recorded under it while the operand was parsed.
		c.parentIDs = c.parentIDs[:len(c.parentIDs)-1]
		first.Walk(func(d *ast.Node) {
			kept := make([]uint32, 0, len(d.ParentIDs))
			for _, id := range d.ParentIDs {
				if id != n.ID {
					kept = append(kept, id)
				}
			}
			d.ParentIDs = kept
		})
		return first, nil
	}
	return c.finish(n, start), nil
}

func isBinOp(k token.Kind) bool {
	switch k {
	case token.Plus, token.Minus, token.Star, token.Slash, token.Percent,
		token.Less, token.Greater, token.LessEqual, token.GreaterEqual,
		token.EqualEqual, token.BangEqual, token.AmpAmp, token.PipePipe:
		return true
	default:
		return false
	}
}

// parseOperand ::= Unary | Prefix ("." Ident "(" Args? ")")*
func parseOperand(c *ctx) (*ast.Node, *Error) {
	if c.at(token.Minus) || c.at(token.Bang) {
		return parseUnary(c)
	}
	base, err := parsePrefix(c)
	if err != nil {
		return nil, err
	}
	for c.at(token.Dot) {
		mark := c.mark()
		c.expect(token.Dot)
		nameTok, err := c.expect(token.Ident)
		if err != nil {
			c.reset(mark)
			break
		}
		if _, err := c.expect(token.LeftParen); err != nil {
			c.reset(mark)
			break
		}
		call, start, _ := c.newNode(ast.KindMethodCall)
		call.SetField("receiver", base)
		call.SetField("name", c.leaf(ast.KindIdent, nameTok))
		if !c.at(token.RightParen) {
			args, err := parseArgs(c)
			if err != nil {
				err.forced = true
				return nil, err
			}
			for i, a := range args {
				call.SetField(argFieldName(i), a)
			}
		}
		if _, err := c.expect(token.RightParen); err != nil {
			err.forced = true
			return nil, err
		}
		base = c.finish(call, start)
	}
	return base, nil
}

// parseUnary ::= ("-" | "!") Operand
func parseUnary(c *ctx) (*ast.Node, *Error) {
	n, start, _ := c.newNode(ast.KindUnaryExpr)
	opTok := c.peek()
	c.pos++
	n.Op = opTok.Lexeme
	operand, err := parseOperand(c)
	if err != nil {
		err.forced = true
		return nil, err
	}
	n.SetField("operand", operand)
	return c.finish(n, start), nil
}

// parsePrefix ::= "true" | "false" | F32 | U32 | I32 | FnCall | VarIdent | "(" Expr ")"
func parsePrefix(c *ctx) (*ast.Node, *Error) {
	switch c.peek().Kind {
	case token.True:
		tok, _ := c.expect(token.True)
		return c.leaf(ast.KindBoolLit, tok), nil
	case token.False:
		tok, _ := c.expect(token.False)
		return c.leaf(ast.KindBoolLit, tok), nil
	case token.F32Literal:
		tok, _ := c.expect(token.F32Literal)
		return c.leaf(ast.KindF32Lit, tok), nil
	case token.U32Literal:
		tok, _ := c.expect(token.U32Literal)
		return c.leaf(ast.KindU32Lit, tok), nil
	case token.I32Literal:
		tok, _ := c.expect(token.I32Literal)
		return c.leaf(ast.KindI32Lit, tok), nil
	case token.LeftParen:
		c.expect(token.LeftParen)
		inner, err := parseExpr(c)
		if err != nil {
			err.forced = true
			return nil, err
		}
		if _, err := c.expect(token.RightParen); err != nil {
			err.forced = true
			return nil, err
		}
		return inner, nil
	case token.Ident:
		mark := c.mark()
		nameTok, _ := c.expect(token.Ident)
		if c.at(token.LeftParen) {
			c.expect(token.LeftParen)
			n, start, _ := c.newNode(ast.KindFnCall)
			n.SetField("name", c.leaf(ast.KindIdent, nameTok))
			if !c.at(token.RightParen) {
				args, err := parseArgs(c)
				if err != nil {
					err.forced = true
					return nil, err
				}
				for i, a := range args {
					n.SetField(argFieldName(i), a)
				}
			}
			if _, err := c.expect(token.RightParen); err != nil {
				err.forced = true
				return nil, err
			}
			return c.finish(n, start), nil
		}
		c.reset(mark)
		tok, _ := c.expect(token.Ident)
		return c.leaf(ast.KindIdent, tok), nil
	default:
		return nil, &Error{
			Path:   c.path,
			Offset: c.peek().Span.Start,
			Expected: []string{
				token.True.String(), token.False.String(), token.F32Literal.String(),
				token.U32Literal.String(), token.I32Literal.String(), token.Ident.String(),
				token.LeftParen.String(),
			},
		}
	}
}

func argFieldName(i int) string {
	return fmt.Sprintf("arg%d", i)
}

// parseArgs ::= Expr ("," Expr)* ","?
func parseArgs(c *ctx) ([]*ast.Node, *Error) {
	var args []*ast.Node
	first, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	args = append(args, first)
	for c.at(token.Comma) {
		c.expect(token.Comma)
		if c.at(token.RightParen) {
			break
		}
		next, err := parseExpr(c)
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	return args, nil
}

// parseType ::= Ident
func parseType(c *ctx) (*ast.Node, *Error) {
	tok, err := c.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	return c.leaf(ast.KindTypeRef, tok), nil
}
