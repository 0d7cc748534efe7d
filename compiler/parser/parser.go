// Package parser builds the syntax tree with a single-token-lookahead
// recursive descent over the lexer's token stream. Errors are reported
// to the diagnostic writer and recovered with panic-mode resync; a
// partial tree is still returned, ErrorCount signals failure.
package parser

import (
	"context"
	"fmt"
	"io"
	"os"

	"tlog.app/go/tlog"

	"github.com/cruxlang/crux/compiler/ast"
	"github.com/cruxlang/crux/compiler/lexer"
	"github.com/cruxlang/crux/compiler/token"
)

type (
	Parser struct {
		lex *lexer.Lexer
		b   *ast.Builder

		cur  token.Token
		prev token.Token

		ErrorCount int
		panicMode  bool

		errw io.Writer
	}
)

func New(lex *lexer.Lexer, b *ast.Builder) *Parser {
	p := &Parser{
		lex:  lex,
		b:    b,
		errw: os.Stderr,
	}

	p.cur = lex.Next()

	return p
}

// SetErrorWriter redirects diagnostics (stderr by default).
func (p *Parser) SetErrorWriter(w io.Writer) { p.errw = w }

// Parse consumes the whole token stream and returns the program node.
func (p *Parser) Parse(ctx context.Context) *ast.Node {
	tr := tlog.SpanFromContext(ctx)

	program := p.b.New(ast.Program)

	for !p.atEnd() {
		if p.panicMode {
			p.synchronize()
		}

		before := p.cur

		decl := p.parseDeclaration()
		program.AddChild(decl)

		// never loop on a token nothing consumed
		if p.cur == before && !p.atEnd() {
			p.advance()
		}
	}

	tr.Printw("parsed", "decls", len(program.Children), "errors", p.ErrorCount)

	return program
}

func (p *Parser) advance() {
	p.prev = p.cur
	p.cur = p.lex.Next()

	if p.cur.Kind == token.Invalid {
		p.errorAtCurrent("Invalid token")
	}
}

func (p *Parser) check(k token.Kind) bool {
	return p.cur.Kind == k
}

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}

	return false
}

func (p *Parser) matchAny(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.match(k) {
			return true
		}
	}

	return false
}

func (p *Parser) consume(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}

	p.errorAtCurrent(fmt.Sprintf("Expected %v, got %v", k, p.cur.Kind))

	return false
}

func (p *Parser) atEnd() bool {
	return p.cur.Kind == token.EOF
}

// Declarations

func (p *Parser) parseDeclaration() *ast.Node {
	switch {
	case p.match(token.Module):
		return p.parseModuleDecl()
	case p.match(token.Import):
		return p.parseImport()
	case p.match(token.Export):
		return p.parseExport()
	case p.match(token.Struct):
		return p.parseStructDecl()
	case p.match(token.Enum):
		return p.parseEnumDecl()
	case p.match(token.Union):
		return p.parseUnionDecl()
	}

	if token.IsTypeToken(p.cur.Kind) {
		// Speculate: "type ident (" is a function. The probe spans the
		// whole type (pointers included), so a two-token peek is not
		// enough; checkpointing the lexer is a value copy.
		cp := p.lex.Checkpoint()
		cur, prev := p.cur, p.prev

		isFunc := false

		if p.parseType() != nil && p.check(token.Ident) {
			p.advance()
			isFunc = p.check(token.LParen)
		}

		p.lex.Restore(cp)
		p.cur, p.prev = cur, prev

		if isFunc {
			return p.parseFunctionDecl()
		}

		return p.parseVarDecl()
	}

	return p.parseStatement()
}

func (p *Parser) parseVarDecl() *ast.Node {
	typeNode := p.parseType()
	if typeNode == nil {
		return nil
	}

	if !p.check(token.Ident) {
		p.errorAtCurrent("Expected variable name")
		return nil
	}

	decl := p.b.NewValue(ast.VarDecl, p.cur.Text)
	decl.Line, decl.Col = p.cur.Line, p.cur.Col
	p.advance()

	decl.AddChild(typeNode)

	if p.match(token.Assign) {
		decl.AddChild(p.parseExpression())
	}

	p.consume(token.Semicolon)

	return decl
}

func (p *Parser) parseFunctionDecl() *ast.Node {
	ret := p.parseType()
	if ret == nil {
		return nil
	}

	if !p.check(token.Ident) {
		p.errorAtCurrent("Expected function name")
		return nil
	}

	fn := p.b.NewValue(ast.Function, p.cur.Text)
	fn.Line, fn.Col = p.cur.Line, p.cur.Col
	p.advance()

	fn.AddChild(ret)

	p.consume(token.LParen)
	fn.AddChild(p.parseParamList())
	p.consume(token.RParen)

	p.consume(token.LBrace)
	fn.AddChild(p.parseBlock())

	return fn
}

func (p *Parser) parseParamList() *ast.Node {
	list := p.b.New(ast.ParamList)

	if p.check(token.RParen) {
		return list
	}

	for {
		typeNode := p.parseType()
		if typeNode == nil {
			break
		}

		name := ""
		if p.check(token.Ident) {
			name = p.cur.Text
			p.advance()
		}

		param := p.b.NewValue(ast.Param, name)
		param.AddChild(typeNode)
		list.AddChild(param)

		if !p.match(token.Comma) {
			break
		}
	}

	return list
}

func (p *Parser) parseStructDecl() *ast.Node {
	return p.parseFieldDecl(ast.Struct, "Expected struct name")
}

func (p *Parser) parseUnionDecl() *ast.Node {
	return p.parseFieldDecl(ast.Union, "Expected union name")
}

// parseFieldDecl parses "name { field-decls }" for structs and unions.
func (p *Parser) parseFieldDecl(k ast.Kind, missing string) *ast.Node {
	if !p.check(token.Ident) {
		p.errorAtCurrent(missing)
		return nil
	}

	n := p.b.NewValue(k, p.cur.Text)
	p.advance()

	p.consume(token.LBrace)

	for !p.check(token.RBrace) && !p.atEnd() {
		n.AddChild(p.parseVarDecl())
	}

	p.consume(token.RBrace)

	return n
}

func (p *Parser) parseEnumDecl() *ast.Node {
	if !p.check(token.Ident) {
		p.errorAtCurrent("Expected enum name")
		return nil
	}

	n := p.b.NewValue(ast.Enum, p.cur.Text)
	p.advance()

	p.consume(token.LBrace)

	for !p.check(token.RBrace) && !p.atEnd() {
		if !p.check(token.Ident) {
			p.errorAtCurrent("Expected enum value name")
			break
		}

		val := p.b.NewValue(ast.EnumValue, p.cur.Text)
		p.advance()

		if p.match(token.Assign) {
			val.AddChild(p.parseExpression())
		}

		n.AddChild(val)

		if !p.match(token.Comma) {
			break
		}
	}

	p.consume(token.RBrace)

	return n
}

func (p *Parser) parseModuleDecl() *ast.Node {
	if !p.check(token.Ident) {
		p.errorAtCurrent("Expected module name")
		return nil
	}

	n := p.b.NewValue(ast.Module, p.cur.Text)
	p.advance()

	p.consume(token.Semicolon)

	return n
}

func (p *Parser) parseImport() *ast.Node {
	if !p.check(token.String) && !p.check(token.Ident) {
		p.errorAtCurrent("Expected module name")
		return nil
	}

	n := p.b.NewValue(ast.Import, p.cur.Text)
	p.advance()

	p.consume(token.Semicolon)

	return n
}

func (p *Parser) parseExport() *ast.Node {
	n := p.b.New(ast.Export)
	n.AddChild(p.parseDeclaration())

	return n
}

// Types

func (p *Parser) parseType() *ast.Node {
	var typeNode *ast.Node

	switch {
	case token.IsPrimitiveType(p.cur.Kind), p.check(token.Ident):
		typeNode = p.b.NewValue(ast.Type, p.cur.Text)
		p.advance()

	case p.check(token.Struct), p.check(token.Enum), p.check(token.Union):
		name := p.cur.Text
		p.advance()

		if p.check(token.Ident) {
			name = name + " " + p.cur.Text
			p.advance()
		}

		typeNode = p.b.NewValue(ast.Type, name)

	default:
		p.errorAtCurrent("Expected type specifier")
		return nil
	}

	for p.match(token.Mul) {
		ptr := p.b.New(ast.PointerType)
		ptr.AddChild(typeNode)
		typeNode = ptr
	}

	return typeNode
}

// Statements

func (p *Parser) parseStatement() *ast.Node {
	switch {
	case p.match(token.If):
		return p.parseIf()
	case p.match(token.While):
		return p.parseWhile()
	case p.match(token.For):
		return p.parseFor()
	case p.match(token.Do):
		return p.parseDoWhile()
	case p.match(token.Switch):
		return p.parseSwitch()
	case p.match(token.Return):
		return p.parseReturn()
	case p.match(token.Break):
		p.consume(token.Semicolon)
		return p.b.New(ast.BreakStmt)
	case p.match(token.Continue):
		p.consume(token.Semicolon)
		return p.b.New(ast.ContinueStmt)
	case p.match(token.LBrace):
		return p.parseBlock()
	}

	return p.parseExprStmt()
}

// parseBlock parses statements up to the closing brace. The opening
// brace is already consumed.
func (p *Parser) parseBlock() *ast.Node {
	block := p.b.New(ast.Block)

	for !p.check(token.RBrace) && !p.atEnd() {
		before := p.cur

		stmt := p.parseDeclaration()
		block.AddChild(stmt)

		if p.cur == before && !p.atEnd() {
			p.advance()
		}
	}

	p.consume(token.RBrace)

	return block
}

func (p *Parser) parseIf() *ast.Node {
	p.consume(token.LParen)
	cond := p.parseExpression()
	p.consume(token.RParen)

	n := p.b.New(ast.IfStmt)
	n.AddChild(cond)
	n.AddChild(p.parseStatement())

	if p.match(token.Else) {
		n.AddChild(p.parseStatement())
	}

	return n
}

func (p *Parser) parseWhile() *ast.Node {
	p.consume(token.LParen)
	cond := p.parseExpression()
	p.consume(token.RParen)

	n := p.b.New(ast.WhileStmt)
	n.AddChild(cond)
	n.AddChild(p.parseStatement())

	return n
}

func (p *Parser) parseFor() *ast.Node {
	p.consume(token.LParen)

	n := p.b.New(ast.ForStmt)

	// init
	if !p.check(token.Semicolon) {
		if token.IsTypeToken(p.cur.Kind) {
			p.addClause(n, p.parseVarDecl())
		} else {
			p.addClause(n, p.parseExprStmt())
		}
	} else {
		p.consume(token.Semicolon)
		n.AddChild(p.b.New(ast.Empty))
	}

	// condition
	if !p.check(token.Semicolon) {
		p.addClause(n, p.parseExpression())
	} else {
		n.AddChild(p.b.New(ast.Empty))
	}
	p.consume(token.Semicolon)

	// step
	if !p.check(token.RParen) {
		p.addClause(n, p.parseExpression())
	} else {
		n.AddChild(p.b.New(ast.Empty))
	}
	p.consume(token.RParen)

	n.AddChild(p.parseStatement())

	return n
}

// addClause keeps for-clause positions stable when a clause fails to
// parse: a nil child would silently shift the rest.
func (p *Parser) addClause(n, clause *ast.Node) {
	if clause == nil {
		clause = p.b.New(ast.Empty)
	}

	n.AddChild(clause)
}

func (p *Parser) parseDoWhile() *ast.Node {
	body := p.parseStatement()

	p.consume(token.While)
	p.consume(token.LParen)
	cond := p.parseExpression()
	p.consume(token.RParen)
	p.consume(token.Semicolon)

	n := p.b.New(ast.DoWhileStmt)
	n.AddChild(body)
	n.AddChild(cond)

	return n
}

func (p *Parser) parseSwitch() *ast.Node {
	p.consume(token.LParen)
	scrutinee := p.parseExpression()
	p.consume(token.RParen)

	p.consume(token.LBrace)

	n := p.b.New(ast.SwitchStmt)
	n.AddChild(scrutinee)

	for !p.check(token.RBrace) && !p.atEnd() {
		switch {
		case p.match(token.Case):
			caseValue := p.parseExpression()
			p.consume(token.Colon)

			caseNode := p.b.New(ast.CaseStmt)
			p.addClause(caseNode, caseValue)

			p.parseCaseBody(caseNode, true)

			n.AddChild(caseNode)

		case p.match(token.Default):
			p.consume(token.Colon)

			defaultNode := p.b.New(ast.DefaultStmt)
			p.parseCaseBody(defaultNode, false)

			n.AddChild(defaultNode)

		default:
			p.errorAtCurrent("Expected 'case' or 'default'")
			p.consume(token.RBrace)

			return n
		}
	}

	p.consume(token.RBrace)

	return n
}

// parseCaseBody collects statements until the next case, default or
// closing brace. A break statement ends the collection but stays in
// the body so the emitter sees it.
func (p *Parser) parseCaseBody(n *ast.Node, stopAtDefault bool) {
	for !p.check(token.Case) && !p.check(token.RBrace) && !p.atEnd() {
		if stopAtDefault && p.check(token.Default) {
			return
		}

		before := p.cur

		stmt := p.parseStatement()
		n.AddChild(stmt)

		if stmt != nil && stmt.Kind == ast.BreakStmt {
			return
		}

		if p.cur == before && !p.atEnd() {
			p.advance()
		}
	}
}

func (p *Parser) parseReturn() *ast.Node {
	n := p.b.New(ast.ReturnStmt)

	if !p.check(token.Semicolon) {
		n.AddChild(p.parseExpression())
	}

	p.consume(token.Semicolon)

	return n
}

func (p *Parser) parseExprStmt() *ast.Node {
	expr := p.parseExpression()
	p.consume(token.Semicolon)

	n := p.b.New(ast.ExprStmt)
	n.AddChild(expr)

	return n
}

// Expressions, lowest to highest binding.

func (p *Parser) parseExpression() *ast.Node {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() *ast.Node {
	expr := p.parseTernary()

	if p.matchAny(token.Assign, token.PlusAssign, token.MinusAssign,
		token.MulAssign, token.DivAssign, token.ModAssign) {
		op := p.prev
		right := p.parseAssignment()

		n := p.b.NewValue(ast.Assign, op.Text)
		n.Line, n.Col = op.Line, op.Col
		n.AddChild(expr)
		n.AddChild(right)

		return n
	}

	return expr
}

func (p *Parser) parseTernary() *ast.Node {
	expr := p.parseLogicalOr()

	if p.match(token.Question) {
		thenExpr := p.parseExpression()
		p.consume(token.Colon)
		elseExpr := p.parseTernary()

		n := p.b.New(ast.Ternary)
		n.AddChild(expr)
		n.AddChild(thenExpr)
		n.AddChild(elseExpr)

		return n
	}

	return expr
}

// binary parses a left-associative run of the given operators.
func (p *Parser) binary(operand func() *ast.Node, kinds ...token.Kind) *ast.Node {
	expr := operand()

	for p.matchAny(kinds...) {
		op := p.prev
		right := operand()

		n := p.b.NewValue(ast.BinaryOp, op.Text)
		n.Line, n.Col = op.Line, op.Col
		n.AddChild(expr)
		n.AddChild(right)
		expr = n
	}

	return expr
}

func (p *Parser) parseLogicalOr() *ast.Node {
	return p.binary(p.parseLogicalAnd, token.OrOr)
}

func (p *Parser) parseLogicalAnd() *ast.Node {
	return p.binary(p.parseBitwiseOr, token.AndAnd)
}

func (p *Parser) parseBitwiseOr() *ast.Node {
	return p.binary(p.parseBitwiseXor, token.Or)
}

func (p *Parser) parseBitwiseXor() *ast.Node {
	return p.binary(p.parseBitwiseAnd, token.Xor)
}

func (p *Parser) parseBitwiseAnd() *ast.Node {
	return p.binary(p.parseEquality, token.And)
}

func (p *Parser) parseEquality() *ast.Node {
	return p.binary(p.parseRelational, token.Eq, token.NotEq)
}

func (p *Parser) parseRelational() *ast.Node {
	return p.binary(p.parseShift, token.Less, token.Greater, token.LessEq, token.GreaterEq)
}

func (p *Parser) parseShift() *ast.Node {
	return p.binary(p.parseAdditive, token.Shl, token.Shr)
}

func (p *Parser) parseAdditive() *ast.Node {
	return p.binary(p.parseMultiplicative, token.Plus, token.Minus)
}

func (p *Parser) parseMultiplicative() *ast.Node {
	return p.binary(p.parseUnary, token.Mul, token.Div, token.Mod)
}

func (p *Parser) parseUnary() *ast.Node {
	if p.matchAny(token.Not, token.Tilde, token.Minus, token.Plus,
		token.Mul, token.And, token.Inc, token.Dec) {
		op := p.prev

		n := p.b.NewValue(ast.UnaryOp, op.Text)
		n.Line, n.Col = op.Line, op.Col
		n.AddChild(p.parseUnary())

		return n
	}

	if p.match(token.Sizeof) {
		p.consume(token.LParen)
		expr := p.parseExpression()
		p.consume(token.RParen)

		n := p.b.New(ast.Sizeof)
		n.AddChild(expr)

		return n
	}

	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ast.Node {
	expr := p.parsePrimary()

	for {
		switch {
		case p.match(token.LBracket):
			index := p.parseExpression()
			p.consume(token.RBracket)

			n := p.b.New(ast.ArrayAccess)
			n.AddChild(expr)
			n.AddChild(index)
			expr = n

		case p.match(token.LParen):
			callee := ""
			if expr != nil {
				callee = expr.Value
			}

			call := p.b.NewValue(ast.Call, callee)

			if !p.check(token.RParen) {
				for {
					call.AddChild(p.parseExpression())

					if !p.match(token.Comma) {
						break
					}
				}
			}
			p.consume(token.RParen)

			// the identifier node is arena-owned, dropping it is free
			if expr != nil {
				expr.Free()
			}
			expr = call

		case p.match(token.Dot), p.match(token.Arrow):
			op := p.prev

			if !p.check(token.Ident) {
				p.errorAtCurrent("Expected member name")
				return expr
			}

			member := p.b.NewValue(ast.Ident, p.cur.Text)
			p.advance()

			n := p.b.NewValue(ast.MemberAccess, op.Text)
			n.AddChild(expr)
			n.AddChild(member)
			expr = n

		case p.match(token.Inc), p.match(token.Dec):
			n := p.b.NewValue(ast.PostfixOp, p.prev.Text)
			n.AddChild(expr)
			expr = n

		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() *ast.Node {
	switch {
	case p.match(token.True), p.match(token.False):
		return p.b.NewToken(ast.BoolLit, p.prev)

	case p.match(token.Null):
		return p.b.NewValue(ast.NullLit, "null")

	case p.match(token.Number):
		return p.b.NewToken(ast.NumberLit, p.prev)

	case p.match(token.Float):
		return p.b.NewToken(ast.FloatLit, p.prev)

	case p.match(token.String):
		return p.b.NewToken(ast.StringLit, p.prev)

	case p.match(token.Char):
		return p.b.NewToken(ast.CharLit, p.prev)

	case p.match(token.Ident):
		return p.b.NewToken(ast.Ident, p.prev)

	case p.match(token.LParen):
		expr := p.parseExpression()
		p.consume(token.RParen)

		return expr
	}

	p.errorAtCurrent("Expected expression")

	return nil
}

// Errors

func (p *Parser) errorAtCurrent(msg string) {
	if p.panicMode {
		return
	}

	p.panicMode = true
	p.ErrorCount++

	fmt.Fprintf(p.errw, "[Line %d, Column %d] Error", p.cur.Line, p.cur.Col)

	switch p.cur.Kind {
	case token.EOF:
		fmt.Fprint(p.errw, " at end")
	case token.Invalid:
		// already reported by the lexer
	default:
		fmt.Fprintf(p.errw, " at '%s'", p.cur.Text)
	}

	fmt.Fprintf(p.errw, ": %s\n", msg)
}

// synchronize skips to the next likely statement boundary: just past a
// semicolon or in front of a construct keyword.
func (p *Parser) synchronize() {
	p.panicMode = false

	for !p.atEnd() {
		if p.prev.Kind == token.Semicolon {
			return
		}

		switch p.cur.Kind {
		case token.Struct, token.Enum, token.Union,
			token.For, token.If, token.While, token.Return:
			return
		}

		p.advance()
	}
}
