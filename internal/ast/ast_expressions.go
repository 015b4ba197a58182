package ast

import (
	"github.com/trubylang/truby/internal/token"
)

// ArrayLiteral represents an array literal, e.g. [1, 2, 3]
type ArrayLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (al *ArrayLiteral) Accept(v Visitor)      { v.VisitArrayLiteral(al) }
func (al *ArrayLiteral) expressionNode()       {}
func (al *ArrayLiteral) TokenLiteral() string  { return al.Token.Lexeme }
func (al *ArrayLiteral) GetToken() token.Token { return al.Token }

// HashPair is one key => value entry of a hash literal. Order is
// preserved so diagnostics and codegen are deterministic.
type HashPair struct {
	Key   Expression
	Value Expression
}

// HashLiteral represents a hash literal, e.g. {"a" => 1, "b" => 2}
type HashLiteral struct {
	Token token.Token // the '{' token
	Pairs []HashPair
}

func (hl *HashLiteral) Accept(v Visitor)      { v.VisitHashLiteral(hl) }
func (hl *HashLiteral) expressionNode()       {}
func (hl *HashLiteral) TokenLiteral() string  { return hl.Token.Lexeme }
func (hl *HashLiteral) GetToken() token.Token { return hl.Token }

// RangeLiteral represents an inclusive range, e.g. 1..10
type RangeLiteral struct {
	Token token.Token // the '..' token
	Low   Expression
	High  Expression
}

func (rl *RangeLiteral) Accept(v Visitor)      { v.VisitRangeLiteral(rl) }
func (rl *RangeLiteral) expressionNode()       {}
func (rl *RangeLiteral) TokenLiteral() string  { return rl.Token.Lexeme }
func (rl *RangeLiteral) GetToken() token.Token { return rl.Token }

// PrefixExpression represents a prefix operator: !cond or -n.
type PrefixExpression struct {
	Token    token.Token // the operator token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) Accept(v Visitor)      { v.VisitPrefixExpression(pe) }
func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }

// InfixExpression represents a binary operator: a + b, x == y, p && q.
type InfixExpression struct {
	Token    token.Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) Accept(v Visitor)      { v.VisitInfixExpression(ie) }
func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }

// IndexExpression represents indexing, e.g. arr[i] or h[key]
type IndexExpression struct {
	Token    token.Token // the '[' token
	Receiver Expression
	Index    Expression
}

func (ie *IndexExpression) Accept(v Visitor)      { v.VisitIndexExpression(ie) }
func (ie *IndexExpression) expressionNode()       {}
func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IndexExpression) GetToken() token.Token { return ie.Token }

// MethodCall represents every call form:
//
//	puts(x)            bare call, Receiver is nil
//	user.name          dot call without arguments
//	list.push(1)       dot call with arguments
//	pair<String>(a, b) call with explicit type arguments
//	xs.map { |x| x }   call with a trailing block
//
// Method names may end in ? or !.
type MethodCall struct {
	Token    token.Token // the method name token
	Receiver Expression  // nil for bare calls
	Method   *Identifier
	TypeArgs []Type
	Args     []Expression
	Block    *BlockLiteral // nil when no block is attached
}

func (mc *MethodCall) Accept(v Visitor)      { v.VisitMethodCall(mc) }
func (mc *MethodCall) expressionNode()       {}
func (mc *MethodCall) TokenLiteral() string  { return mc.Token.Lexeme }
func (mc *MethodCall) GetToken() token.Token { return mc.Token }

// BlockLiteral is a block attached to a call: { |x| x * 2 } or
// do |x| ... end. Unannotated block parameters are checked against the
// expected Proc type at the call site.
type BlockLiteral struct {
	Token  token.Token // the '{' or 'do' token
	Params []*Param
	Body   *BlockStatement
}

func (bl *BlockLiteral) Accept(v Visitor)      { v.VisitBlockLiteral(bl) }
func (bl *BlockLiteral) expressionNode()       {}
func (bl *BlockLiteral) TokenLiteral() string  { return bl.Token.Lexeme }
func (bl *BlockLiteral) GetToken() token.Token { return bl.Token }

// IfExpression represents if/elsif/else and unless. An elsif chain is
// parsed as a nested IfExpression in Alternative. For unless, Unless
// is true and the branches swap roles during checking.
type IfExpression struct {
	Token       token.Token // the 'if' or 'unless' token
	Unless      bool
	Condition   Expression
	Consequence *BlockStatement
	Alternative *BlockStatement // nil when there is no else branch
}

func (ie *IfExpression) Accept(v Visitor)      { v.VisitIfExpression(ie) }
func (ie *IfExpression) expressionNode()       {}
func (ie *IfExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IfExpression) GetToken() token.Token { return ie.Token }

// WhenClause is one `when m1, m2 then body` arm of a case expression.
type WhenClause struct {
	Token   token.Token // the 'when' token
	Matches []Expression
	Body    *BlockStatement
}

func (wc *WhenClause) GetToken() token.Token {
	if wc == nil {
		return token.Token{}
	}
	return wc.Token
}

// CaseExpression represents case/when/else. When Subject is an
// identifier and the matches are class names or literals, each arm
// narrows the subject and later arms exclude earlier matches.
type CaseExpression struct {
	Token       token.Token // the 'case' token
	Subject     Expression
	Whens       []*WhenClause
	Alternative *BlockStatement // nil when there is no else arm
}

func (ce *CaseExpression) Accept(v Visitor)      { v.VisitCaseExpression(ce) }
func (ce *CaseExpression) expressionNode()       {}
func (ce *CaseExpression) TokenLiteral() string  { return ce.Token.Lexeme }
func (ce *CaseExpression) GetToken() token.Token { return ce.Token }
