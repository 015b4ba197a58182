package parser

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/token"
)

// parseIdentifierExpression parses a lowercase name. When the name is
// immediately followed by explicit type arguments (pair<String>(...)) it
// becomes a bare call; otherwise calls form through the '(' infix.
func (p *Parser) parseIdentifierExpression() ast.Expression {
	ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal.(string)}

	if p.peekTokenIs(token.LT) && p.looksLikeTypeArgs() {
		mc := &ast.MethodCall{Token: ident.Token, Method: ident}
		mc.TypeArgs = p.parseTypeArgList()
		if mc.TypeArgs == nil {
			return nil
		}
		// Explicit type arguments only make sense on a call.
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		mc.Args = p.parseExpressionList(token.RPAREN)
		if mc.Args == nil {
			return nil
		}
		if !p.parseTrailingBlock(mc) {
			return nil
		}
		return mc
	}

	return ident
}

// parseConstantRef parses an uppercase name, optionally with type
// arguments: User, Stack<String>.
func (p *Parser) parseConstantRef() ast.Expression {
	cr := &ast.ConstantRef{Token: p.curToken, Name: p.curToken.Literal.(string)}

	if p.peekTokenIs(token.LT) && p.looksLikeTypeArgs() {
		cr.TypeArgs = p.parseTypeArgList()
		if cr.TypeArgs == nil {
			return nil
		}
	}

	return cr
}

// parseMethodCall handles the '.' infix: recv.name, recv.name(args),
// recv.name<T>(args), with an optional trailing block.
func (p *Parser) parseMethodCall(left ast.Expression) ast.Expression {
	if !p.expectPeek(token.IDENT_LOWER) {
		return nil
	}
	mc := &ast.MethodCall{
		Token:    p.curToken,
		Receiver: left,
		Method:   &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal.(string)},
	}

	if p.peekTokenIs(token.LT) && p.looksLikeTypeArgs() {
		mc.TypeArgs = p.parseTypeArgList()
		if mc.TypeArgs == nil {
			return nil
		}
	}

	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		mc.Args = p.parseExpressionList(token.RPAREN)
		if mc.Args == nil {
			return nil
		}
	}

	if !p.parseTrailingBlock(mc) {
		return nil
	}
	return mc
}

// parseBareCall handles the '(' infix: name(args). Only a plain
// identifier can be called this way.
func (p *Parser) parseBareCall(left ast.Expression) ast.Expression {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
			diagnostics.ErrP001,
			p.curToken,
			"expected a method name before '('",
		))
		return nil
	}

	mc := &ast.MethodCall{Token: ident.Token, Method: ident}
	mc.Args = p.parseExpressionList(token.RPAREN)
	if mc.Args == nil {
		return nil
	}
	if !p.parseTrailingBlock(mc) {
		return nil
	}
	return mc
}

// parseTrailingBlock attaches `{ |x| ... }` or `do |x| ... end` to a
// call when one follows. Returns false only on a parse error.
func (p *Parser) parseTrailingBlock(mc *ast.MethodCall) bool {
	if !p.peekTokenIs(token.LBRACE) && !p.peekTokenIs(token.DO) {
		return true
	}
	p.nextToken()
	mc.Block = p.parseBlockLiteral()
	return mc.Block != nil
}

// parseBlockLiteral parses a block with curToken on '{' or 'do'.
func (p *Parser) parseBlockLiteral() *ast.BlockLiteral {
	bl := &ast.BlockLiteral{Token: p.curToken}

	var terminator token.TokenType = token.RBRACE
	if p.curTokenIs(token.DO) {
		terminator = token.END
	}

	if p.peekTokenIs(token.PIPE) {
		p.nextToken() // on '|'
		bl.Params = p.parseParamList(token.PIPE)
		if bl.Params == nil {
			return nil
		}
	}

	p.nextToken() // into the body
	bl.Body = p.parseBlockBody(terminator)
	if !p.expectCur(terminator) {
		return nil
	}
	return bl
}

// parseExpressionList parses a comma-separated list up to the closing
// delimiter, tolerating newlines after the opener and each comma.
// curToken must be on the opening delimiter. Returns a non-nil empty
// slice for an empty list and nil on a parse error.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}

	p.skipPeekNewlines()
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	for {
		p.skipPeekNewlines()
		p.nextToken()
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			return nil
		}
		list = append(list, expr)

		p.skipPeekNewlines()
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.skipPeekNewlines()
			if p.peekTokenIs(end) { // trailing comma
				break
			}
			continue
		}
		break
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}
