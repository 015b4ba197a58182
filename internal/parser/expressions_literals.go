package parser

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/token"
)

func (p *Parser) parseIntegerLiteral() ast.Expression {
	return &ast.IntegerLiteral{Token: p.curToken, Value: p.curToken.Literal.(int64)}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	return &ast.FloatLiteral{Token: p.curToken, Value: p.curToken.Literal.(float64)}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal.(string)}
}

func (p *Parser) parseSymbolLiteral() ast.Expression {
	return &ast.SymbolLiteral{Token: p.curToken, Value: p.curToken.Literal.(string)}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNilLiteral() ast.Expression {
	return &ast.NilLiteral{Token: p.curToken}
}

func (p *Parser) parseIVarExpression() ast.Expression {
	return &ast.IVarExpression{Token: p.curToken, Name: p.curToken.Literal.(string)}
}

func (p *Parser) parseCVarExpression() ast.Expression {
	return &ast.CVarExpression{Token: p.curToken, Name: p.curToken.Literal.(string)}
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	al := &ast.ArrayLiteral{Token: p.curToken}
	al.Elements = p.parseExpressionList(token.RBRACKET)
	if al.Elements == nil {
		return nil
	}
	return al
}

// parseHashLiteral parses {} with `key => value` pairs or the symbol-key
// shorthand `name: value`.
func (p *Parser) parseHashLiteral() ast.Expression {
	hl := &ast.HashLiteral{Token: p.curToken}

	p.skipPeekNewlines()
	if p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		return hl
	}

	for {
		p.skipPeekNewlines()
		p.nextToken() // key start

		var key ast.Expression
		if p.curTokenIs(token.IDENT_LOWER) && p.peekTokenIs(token.COLON) {
			key = &ast.SymbolLiteral{Token: p.curToken, Value: p.curToken.Literal.(string)}
			p.nextToken() // on ':'
		} else {
			key = p.parseExpression(LOWEST)
			if key == nil {
				return nil
			}
			if !p.expectPeek(token.HASHROCKET) {
				return nil
			}
		}

		p.nextToken() // value start
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		hl.Pairs = append(hl.Pairs, ast.HashPair{Key: key, Value: value})

		p.skipPeekNewlines()
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.skipPeekNewlines()
			if p.peekTokenIs(token.RBRACE) { // trailing comma
				break
			}
			continue
		}
		break
	}

	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return hl
}
