package parser

import (
	"fmt"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/token"
)

// parseType parses a full type annotation with curToken on its first
// token: a single type or a `|` union of them.
func (p *Parser) parseType() ast.Type {
	first := p.parseNonUnionType()
	if first == nil {
		return nil
	}
	if !p.peekTokenIs(token.PIPE) {
		return first
	}

	ut := &ast.UnionType{Token: first.GetToken(), Types: []ast.Type{first}}
	for p.peekTokenIs(token.PIPE) {
		p.nextToken() // on '|'
		p.nextToken() // next member
		next := p.parseNonUnionType()
		if next == nil {
			return nil
		}
		ut.Types = append(ut.Types, next)
	}
	return ut
}

func (p *Parser) parseNonUnionType() ast.Type {
	switch p.curToken.Type {
	case token.IDENT_UPPER:
		nt := p.parseNamedTypeRef()
		if nt == nil {
			return nil
		}
		return nt
	case token.NIL:
		return &ast.NamedType{Token: p.curToken, Name: "Nil"}
	case token.STRING, token.INT, token.SYMBOL:
		return &ast.LiteralType{Token: p.curToken, Value: p.curToken.Literal}
	case token.TRUE, token.FALSE:
		return &ast.LiteralType{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
	case token.LBRACE:
		return p.parseStructuralType()
	case token.LPAREN:
		p.nextToken()
		t := p.parseType()
		if t == nil {
			return nil
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return t
	default:
		p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
			diagnostics.ErrP003,
			p.curToken,
			fmt.Sprintf("expected a type, got %s", describeToken(p.curToken)),
		))
		return nil
	}
}

// parseStructuralType parses an anonymous duck type:
//
//	{ def each(f: Proc<Integer, Nil>): Nil; def size(): Integer }
func (p *Parser) parseStructuralType() ast.Type {
	st := &ast.StructuralType{Token: p.curToken}
	p.nextToken()

	for {
		p.skipNewlines()
		if p.curTokenIs(token.RBRACE) || p.curTokenIs(token.EOF) {
			break
		}
		if !p.curTokenIs(token.DEF) {
			p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
				diagnostics.ErrP003,
				p.curToken,
				fmt.Sprintf("structural types contain method signatures, got %s", describeToken(p.curToken)),
			))
			return nil
		}

		member := &ast.StructMember{Token: p.curToken}
		if !p.expectPeek(token.IDENT_LOWER) {
			return nil
		}
		member.Name = p.curToken.Literal.(string)

		if p.peekTokenIs(token.LPAREN) {
			p.nextToken()
			member.Params = p.parseParamList(token.RPAREN)
			if member.Params == nil {
				return nil
			}
			for _, prm := range member.Params {
				if prm.Type == nil {
					p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(
						diagnostics.ErrP003,
						prm.Token,
						fmt.Sprintf("parameter '%s' in a structural member needs a type annotation", prm.Name.Value),
					))
					return nil
				}
			}
		}

		if p.peekTokenIs(token.COLON) {
			p.nextToken() // on ':'
			p.nextToken() // type start
			member.Return = p.parseType()
			if member.Return == nil {
				return nil
			}
		}

		st.Members = append(st.Members, member)
		p.nextToken()
	}

	if !p.expectCur(token.RBRACE) {
		return nil
	}
	return st
}

// parseTypeArgList parses <T, U> with curToken just before the '<'.
// Returns with curToken on the closing '>'.
func (p *Parser) parseTypeArgList() []ast.Type {
	p.nextToken() // on '<'
	args := []ast.Type{}

	for {
		p.nextToken()
		arg := p.parseType()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(token.GT) {
		return nil
	}
	return args
}

// looksLikeTypeArgs reports whether the '<' sitting in peek position
// opens a type argument list rather than a comparison: it scans ahead
// for a matching '>' on the same line, allowing only tokens that can
// appear inside type arguments. `Stack<String>` passes, `a < b` does
// not. The pathological `A < B > c` reads as type arguments; write it
// with parentheses.
func (p *Parser) looksLikeTypeArgs() bool {
	if !p.peekTokenIs(token.LT) {
		return false
	}
	depth := 0
	for i := 0; i < 64; i++ {
		var tok token.Token
		if i == 0 {
			tok = p.peekToken
		} else {
			tok = p.peekTokenAt(i - 1)
		}
		switch tok.Type {
		case token.LT:
			depth++
		case token.GT:
			depth--
			if depth == 0 {
				return true
			}
		case token.IDENT_UPPER, token.COMMA, token.PIPE, token.COLON, token.NIL,
			token.STRING, token.SYMBOL, token.INT, token.TRUE, token.FALSE:
			// plausible inside a type argument list; COLON covers
			// constrained parameter lists like Box<T: Comparable>
		default:
			return false
		}
	}
	return false
}
