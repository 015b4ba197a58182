package parser

import (
	"fmt"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/token"
)

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
			if !p.expectStatementEnd(nil) {
				p.skipToStatementBoundary()
			}
		} else {
			p.skipToStatementBoundary()
		}
		p.nextToken()
	}

	return program
}

// parseStatement dispatches on the leading token. Every statement parser
// returns with curToken on the last token of its construct; the caller
// advances past it.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.DEF:
		return p.parseDefStatement()
	case token.CLASS:
		return p.parseClassDeclaration()
	case token.INTERFACE:
		return p.parseInterfaceDeclaration()
	case token.MODULE:
		return p.parseModuleDeclaration()
	case token.INCLUDE:
		return p.parseIncludeStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.RAISE:
		return p.parseRaiseStatement()
	case token.BREAK:
		return &ast.BreakStatement{Token: p.curToken}
	case token.NEXT:
		return &ast.NextStatement{Token: p.curToken}
	default:
		return p.parseAssignOrExpressionStatement()
	}
}

// parseAssignOrExpressionStatement handles the three statement forms that
// start with an expression:
//
//	x: Integer = expr    annotated declaration
//	x = expr             assignment (also @iv, @@cv, arr[i])
//	expr                 bare expression statement
func (p *Parser) parseAssignOrExpressionStatement() ast.Statement {
	startToken := p.curToken

	// Annotated declaration: name ':' Type '=' expr
	if (p.curTokenIs(token.IDENT_LOWER) || p.curTokenIs(token.IVAR) || p.curTokenIs(token.CVAR)) &&
		p.peekTokenIs(token.COLON) {
		target := p.parseSimpleAssignTarget()
		p.nextToken() // on ':'
		p.nextToken() // first type token
		annotation := p.parseType()
		if annotation == nil {
			return nil
		}
		if !p.expectPeek(token.ASSIGN) {
			return nil
		}
		assignTok := p.curToken
		p.nextToken()
		p.skipNewlines()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		return &ast.AssignStatement{Token: assignTok, Target: target, TypeAnnotation: annotation, Value: value}
	}

	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	if p.peekTokenIs(token.ASSIGN) {
		if !isAssignable(expr) {
			p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
				diagnostics.ErrP001,
				p.peekToken,
				"invalid assignment target",
			))
			return nil
		}
		p.nextToken() // on '='
		assignTok := p.curToken
		p.nextToken()
		p.skipNewlines()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		return &ast.AssignStatement{Token: assignTok, Target: expr, Value: value}
	}

	return &ast.ExpressionStatement{Token: startToken, Expression: expr}
}

func (p *Parser) parseSimpleAssignTarget() ast.Expression {
	switch p.curToken.Type {
	case token.IVAR:
		return &ast.IVarExpression{Token: p.curToken, Name: p.curToken.Literal.(string)}
	case token.CVAR:
		return &ast.CVarExpression{Token: p.curToken, Name: p.curToken.Literal.(string)}
	default:
		return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal.(string)}
	}
}

func isAssignable(expr ast.Expression) bool {
	switch expr.(type) {
	case *ast.Identifier, *ast.IVarExpression, *ast.CVarExpression, *ast.IndexExpression:
		return true
	}
	return false
}

// parseDefStatement parses a full method definition:
//
//	def push(item: T): Nil ... end
//	def pair<K, V>(k: K, v: V): Array<K | V> ... end
func (p *Parser) parseDefStatement() *ast.DefStatement {
	ds := &ast.DefStatement{Token: p.curToken}
	if !p.parseDefHeader(ds) {
		return nil
	}
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	ds.Body = p.parseBlockBody(token.END)
	if !p.expectCur(token.END) {
		return nil
	}
	return ds
}

// parseDefHeader parses everything up to the body: name, type
// parameters, parameters and return annotation. Shared with interface
// signatures, which stop here.
func (p *Parser) parseDefHeader(ds *ast.DefStatement) bool {
	if !p.expectPeek(token.IDENT_LOWER) {
		return false
	}
	ds.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal.(string)}

	if p.peekTokenIs(token.LT) {
		ds.TypeParams = p.parseTypeParams()
		if ds.TypeParams == nil {
			return false
		}
	}

	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		ds.Params = p.parseParamList(token.RPAREN)
		if ds.Params == nil {
			return false
		}
	}

	if p.peekTokenIs(token.COLON) {
		p.nextToken() // on ':'
		p.nextToken() // first type token
		ds.ReturnType = p.parseType()
		if ds.ReturnType == nil {
			return false
		}
	}
	return true
}

// parseTypeParams parses <T, U: Comparable>. curToken must be just
// before the '<'.
func (p *Parser) parseTypeParams() []*ast.TypeParam {
	p.nextToken() // on '<'
	params := []*ast.TypeParam{}

	for {
		if !p.expectPeek(token.IDENT_UPPER) {
			return nil
		}
		tp := &ast.TypeParam{Token: p.curToken, Name: p.curToken.Literal.(string)}
		if p.peekTokenIs(token.COLON) {
			p.nextToken() // on ':'
			p.nextToken() // constraint type start
			tp.Constraint = p.parseType()
			if tp.Constraint == nil {
				return nil
			}
		}
		params = append(params, tp)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.GT) {
		return nil
	}
	return params
}

// parseParamList parses formal parameters up to the closing delimiter.
// curToken must be on the opening '(' or '|'. Annotations are optional.
func (p *Parser) parseParamList(closing token.TokenType) []*ast.Param {
	params := []*ast.Param{}

	if p.peekTokenIs(closing) {
		p.nextToken()
		return params
	}

	for {
		p.skipPeekNewlines()
		if !p.expectPeek(token.IDENT_LOWER) {
			return nil
		}
		param := &ast.Param{Token: p.curToken, Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal.(string)}}
		if p.peekTokenIs(token.COLON) {
			p.nextToken() // on ':'
			p.nextToken() // type start
			param.Type = p.parseType()
			if param.Type == nil {
				return nil
			}
		}
		params = append(params, param)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	p.skipPeekNewlines()
	if !p.expectPeek(closing) {
		return nil
	}
	return params
}

// parseClassDeclaration parses:
//
//	class Stack<T> ... end
//	class AdminUser < User implements Describable ... end
func (p *Parser) parseClassDeclaration() *ast.ClassDeclaration {
	cd := &ast.ClassDeclaration{Token: p.curToken}

	if !p.expectPeek(token.IDENT_UPPER) {
		return nil
	}
	cd.Name = &ast.ConstantRef{Token: p.curToken, Name: p.curToken.Literal.(string)}

	// `<` right after the name is generic parameters when a matching `>`
	// follows on the same line, otherwise a superclass clause.
	if p.peekTokenIs(token.LT) && p.looksLikeTypeArgs() {
		cd.TypeParams = p.parseTypeParams()
		if cd.TypeParams == nil {
			return nil
		}
	}

	if p.peekTokenIs(token.LT) {
		p.nextToken() // on '<'
		if !p.expectPeek(token.IDENT_UPPER) {
			return nil
		}
		cd.SuperClass = &ast.ConstantRef{Token: p.curToken, Name: p.curToken.Literal.(string)}
	}

	if p.peekTokenIs(token.IMPLEMENTS) {
		p.nextToken() // on 'implements'
		for {
			if !p.expectPeek(token.IDENT_UPPER) {
				return nil
			}
			ref := p.parseNamedTypeRef()
			if ref == nil {
				return nil
			}
			cd.Implements = append(cd.Implements, ref)
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
	}

	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	cd.Body = p.parseBlockBody(token.END)
	if !p.expectCur(token.END) {
		return nil
	}
	return cd
}

// parseNamedTypeRef parses Name or Name<Args> with curToken on the name.
func (p *Parser) parseNamedTypeRef() *ast.NamedType {
	nt := &ast.NamedType{Token: p.curToken, Name: p.curToken.Literal.(string)}
	if p.peekTokenIs(token.LT) {
		nt.Args = p.parseTypeArgList()
		if nt.Args == nil {
			return nil
		}
	}
	return nt
}

func (p *Parser) parseInterfaceDeclaration() *ast.InterfaceDeclaration {
	id := &ast.InterfaceDeclaration{Token: p.curToken}

	if !p.expectPeek(token.IDENT_UPPER) {
		return nil
	}
	id.Name = &ast.ConstantRef{Token: p.curToken, Name: p.curToken.Literal.(string)}

	if p.peekTokenIs(token.LT) {
		id.TypeParams = p.parseTypeParams()
		if id.TypeParams == nil {
			return nil
		}
	}

	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	p.nextToken()

	for {
		p.skipNewlines()
		if p.curTokenIs(token.END) || p.curTokenIs(token.EOF) {
			break
		}
		if !p.curTokenIs(token.DEF) {
			p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
				diagnostics.ErrP001,
				p.curToken,
				fmt.Sprintf("only method signatures are allowed in an interface body, got %s", describeToken(p.curToken)),
			))
			p.skipToStatementBoundary()
			p.nextToken()
			continue
		}
		sig := &ast.DefStatement{Token: p.curToken}
		if !p.parseDefHeader(sig) {
			p.skipToStatementBoundary()
			p.nextToken()
			continue
		}
		id.Methods = append(id.Methods, sig)
		if !p.expectStatementEnd([]token.TokenType{token.END}) {
			p.skipToStatementBoundary()
		}
		p.nextToken()
	}

	if !p.expectCur(token.END) {
		return nil
	}
	return id
}

func (p *Parser) parseModuleDeclaration() *ast.ModuleDeclaration {
	md := &ast.ModuleDeclaration{Token: p.curToken}

	if !p.expectPeek(token.IDENT_UPPER) {
		return nil
	}
	md.Name = &ast.ConstantRef{Token: p.curToken, Name: p.curToken.Literal.(string)}

	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	md.Body = p.parseBlockBody(token.END)
	if !p.expectCur(token.END) {
		return nil
	}
	return md
}

func (p *Parser) parseIncludeStatement() *ast.IncludeStatement {
	is := &ast.IncludeStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT_UPPER) {
		return nil
	}
	is.Module = &ast.ConstantRef{Token: p.curToken, Name: p.curToken.Literal.(string)}
	return is
}

func (p *Parser) parseWhileStatement() *ast.WhileStatement {
	ws := &ast.WhileStatement{Token: p.curToken}
	p.nextToken()
	ws.Condition = p.parseExpression(LOWEST)
	if ws.Condition == nil {
		return nil
	}
	if p.peekTokenIs(token.DO) {
		p.nextToken()
	}
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	ws.Body = p.parseBlockBody(token.END)
	if !p.expectCur(token.END) {
		return nil
	}
	return ws
}

// parseReturnStatement parses `return`, `return expr` and the guard
// clause forms `return expr if cond` / `return expr unless cond`.
func (p *Parser) parseReturnStatement() *ast.ReturnStatement {
	rs := &ast.ReturnStatement{Token: p.curToken}

	if !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.SEMICOLON) &&
		!p.peekTokenIs(token.EOF) && !p.peekTokenIs(token.END) &&
		!p.peekTokenIs(token.IF) && !p.peekTokenIs(token.UNLESS) {
		p.nextToken()
		rs.Value = p.parseExpression(LOWEST)
		if rs.Value == nil {
			return nil
		}
	}

	if p.peekTokenIs(token.IF) || p.peekTokenIs(token.UNLESS) {
		p.nextToken()
		rs.Unless = p.curTokenIs(token.UNLESS)
		p.nextToken()
		rs.Condition = p.parseExpression(LOWEST)
		if rs.Condition == nil {
			return nil
		}
	}

	return rs
}

func (p *Parser) parseRaiseStatement() *ast.RaiseStatement {
	rs := &ast.RaiseStatement{Token: p.curToken}

	if !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.SEMICOLON) &&
		!p.peekTokenIs(token.EOF) && !p.peekTokenIs(token.END) &&
		!p.peekTokenIs(token.IF) && !p.peekTokenIs(token.UNLESS) {
		p.nextToken()
		rs.Value = p.parseExpression(LOWEST)
		if rs.Value == nil {
			return nil
		}
	}

	if p.peekTokenIs(token.IF) || p.peekTokenIs(token.UNLESS) {
		p.nextToken()
		rs.Unless = p.curTokenIs(token.UNLESS)
		p.nextToken()
		rs.Condition = p.parseExpression(LOWEST)
		if rs.Condition == nil {
			return nil
		}
	}

	return rs
}

// parseBlockBody collects statements until one of the stop keywords (or
// EOF). It returns with curToken on the stop token.
func (p *Parser) parseBlockBody(stops ...token.TokenType) *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	for {
		p.skipNewlines()
		if p.curTokenIs(token.EOF) || tokenTypeIn(p.curToken.Type, stops) {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
			if !p.expectStatementEnd(stops) {
				p.skipToStatementBoundary()
			}
		} else {
			p.skipToStatementBoundary()
		}
		p.nextToken()
	}
	return block
}

func tokenTypeIn(t token.TokenType, set []token.TokenType) bool {
	for _, s := range set {
		if t == s {
			return true
		}
	}
	return false
}

// expectStatementEnd reports an error when the token after a finished
// statement is not a statement boundary. This catches two expressions
// sitting on one line, e.g. `puts "hi"` (argument lists need parens).
func (p *Parser) expectStatementEnd(stops []token.TokenType) bool {
	if p.peekTokenIs(token.NEWLINE) || p.peekTokenIs(token.SEMICOLON) || p.peekTokenIs(token.EOF) {
		return true
	}
	if tokenTypeIn(p.peekToken.Type, stops) {
		return true
	}
	p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
		diagnostics.ErrP001,
		p.peekToken,
		fmt.Sprintf("unexpected %s after the end of a statement", describeToken(p.peekToken)),
	))
	return false
}

// expectCur reports an error when curToken is not the given type. Used
// for closing keywords after a block body has been consumed.
func (p *Parser) expectCur(t token.TokenType) bool {
	if p.curTokenIs(t) {
		return true
	}
	p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
		diagnostics.ErrP002,
		p.curToken,
		fmt.Sprintf("expected %s, got %s instead", t, describeToken(p.curToken)),
	))
	return false
}

// skipPeekNewlines consumes newlines sitting in peek position, so lists
// can wrap lines after '(' and ','.
func (p *Parser) skipPeekNewlines() {
	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}
