package parser

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/token"
)

// parseIfExpression parses if/elsif/else and unless. The chain of
// elsifs nests: each elsif becomes an IfExpression in the Alternative
// of the one before it, and the final `end` closes all of them.
func (p *Parser) parseIfExpression() ast.Expression {
	ie := &ast.IfExpression{Token: p.curToken, Unless: p.curTokenIs(token.UNLESS)}

	p.nextToken()
	ie.Condition = p.parseExpression(LOWEST)
	if ie.Condition == nil {
		return nil
	}

	if p.peekTokenIs(token.THEN) {
		p.nextToken() // on 'then'
	} else if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	p.nextToken() // first body token
	ie.Consequence = p.parseBlockBody(token.ELSIF, token.ELSE, token.END)

	switch p.curToken.Type {
	case token.ELSIF:
		nested := p.parseIfExpression()
		if nested == nil {
			return nil
		}
		ie.Alternative = &ast.BlockStatement{
			Token: nested.GetToken(),
			Statements: []ast.Statement{
				&ast.ExpressionStatement{Token: nested.GetToken(), Expression: nested},
			},
		}
	case token.ELSE:
		p.nextToken()
		ie.Alternative = p.parseBlockBody(token.END)
		if !p.expectCur(token.END) {
			return nil
		}
	case token.END:
		// no alternative
	default:
		p.expectCur(token.END)
		return nil
	}

	return ie
}

// parseCaseExpression parses case/when/else/end. Each when arm can
// match several expressions: `when 1, 2 then ...`.
func (p *Parser) parseCaseExpression() ast.Expression {
	ce := &ast.CaseExpression{Token: p.curToken}

	p.nextToken()
	ce.Subject = p.parseExpression(LOWEST)
	if ce.Subject == nil {
		return nil
	}
	if !p.expectPeek(token.NEWLINE) {
		return nil
	}
	p.nextToken()
	p.skipNewlines()

	for p.curTokenIs(token.WHEN) {
		wc := &ast.WhenClause{Token: p.curToken}
		p.nextToken()
		for {
			m := p.parseExpression(LOWEST)
			if m == nil {
				return nil
			}
			wc.Matches = append(wc.Matches, m)
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
				p.nextToken()
				continue
			}
			break
		}
		if p.peekTokenIs(token.THEN) {
			p.nextToken()
		}
		p.nextToken()
		wc.Body = p.parseBlockBody(token.WHEN, token.ELSE, token.END)
		ce.Whens = append(ce.Whens, wc)
	}

	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		ce.Alternative = p.parseBlockBody(token.END)
	}

	if !p.expectCur(token.END) {
		return nil
	}
	return ce
}
