package ast

import (
	"github.com/trubylang/truby/internal/token"
)

// TokenProvider is an interface for any AST node that can provide its primary token.
// This is useful for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	Accept(v Visitor)
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
	GetToken() token.Token
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
	GetToken() token.Token
}

// Visitor dispatches over every concrete node type. The code emitters
// implement it; the checker walks with type switches instead and never
// calls Accept.
type Visitor interface {
	VisitProgram(n *Program)
	VisitBlockStatement(n *BlockStatement)
	VisitExpressionStatement(n *ExpressionStatement)
	VisitAssignStatement(n *AssignStatement)
	VisitDefStatement(n *DefStatement)
	VisitClassDeclaration(n *ClassDeclaration)
	VisitInterfaceDeclaration(n *InterfaceDeclaration)
	VisitModuleDeclaration(n *ModuleDeclaration)
	VisitIncludeStatement(n *IncludeStatement)
	VisitWhileStatement(n *WhileStatement)
	VisitReturnStatement(n *ReturnStatement)
	VisitRaiseStatement(n *RaiseStatement)
	VisitBreakStatement(n *BreakStatement)
	VisitNextStatement(n *NextStatement)

	VisitIdentifier(n *Identifier)
	VisitConstantRef(n *ConstantRef)
	VisitIVarExpression(n *IVarExpression)
	VisitCVarExpression(n *CVarExpression)
	VisitIntegerLiteral(n *IntegerLiteral)
	VisitFloatLiteral(n *FloatLiteral)
	VisitStringLiteral(n *StringLiteral)
	VisitSymbolLiteral(n *SymbolLiteral)
	VisitBooleanLiteral(n *BooleanLiteral)
	VisitNilLiteral(n *NilLiteral)
	VisitArrayLiteral(n *ArrayLiteral)
	VisitHashLiteral(n *HashLiteral)
	VisitRangeLiteral(n *RangeLiteral)
	VisitPrefixExpression(n *PrefixExpression)
	VisitInfixExpression(n *InfixExpression)
	VisitIndexExpression(n *IndexExpression)
	VisitMethodCall(n *MethodCall)
	VisitBlockLiteral(n *BlockLiteral)
	VisitIfExpression(n *IfExpression)
	VisitCaseExpression(n *CaseExpression)

	VisitNamedType(n *NamedType)
	VisitUnionType(n *UnionType)
	VisitStructuralType(n *StructuralType)
	VisitLiteralType(n *LiteralType)
}

// Program is the root node of every AST our parser produces.
type Program struct {
	File       string // Source file path
	Statements []Statement
}

func (p *Program) Accept(v Visitor) { v.VisitProgram(p) }
func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

// Identifier represents a lowercase identifier: a local, parameter, or
// method name (method names may end in ? or !).
type Identifier struct {
	Token token.Token // the token.IDENT_LOWER token
	Value string
}

func (i *Identifier) Accept(v Visitor)     { v.VisitIdentifier(i) }
func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token {
	if i == nil {
		return token.Token{}
	}
	return i.Token
}

// ConstantRef references a class, module, or interface by name, optionally
// with explicit type arguments: Stack<String>.new.
type ConstantRef struct {
	Token    token.Token // the token.IDENT_UPPER token
	Name     string
	TypeArgs []Type
}

func (cr *ConstantRef) Accept(v Visitor)     { v.VisitConstantRef(cr) }
func (cr *ConstantRef) expressionNode()      {}
func (cr *ConstantRef) TokenLiteral() string { return cr.Token.Lexeme }
func (cr *ConstantRef) GetToken() token.Token {
	if cr == nil {
		return token.Token{}
	}
	return cr.Token
}

// IVarExpression is an instance variable reference: @count.
// Name holds the identifier without the @ sigil.
type IVarExpression struct {
	Token token.Token
	Name  string
}

func (iv *IVarExpression) Accept(v Visitor)     { v.VisitIVarExpression(iv) }
func (iv *IVarExpression) expressionNode()      {}
func (iv *IVarExpression) TokenLiteral() string { return iv.Token.Lexeme }
func (iv *IVarExpression) GetToken() token.Token {
	if iv == nil {
		return token.Token{}
	}
	return iv.Token
}

// CVarExpression is a class variable reference: @@registry.
// Name holds the identifier without the @@ sigil.
type CVarExpression struct {
	Token token.Token
	Name  string
}

func (cv *CVarExpression) Accept(v Visitor)     { v.VisitCVarExpression(cv) }
func (cv *CVarExpression) expressionNode()      {}
func (cv *CVarExpression) TokenLiteral() string { return cv.Token.Lexeme }
func (cv *CVarExpression) GetToken() token.Token {
	if cv == nil {
		return token.Token{}
	}
	return cv.Token
}

// IntegerLiteral represents an integer literal.
type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) Accept(v Visitor)     { v.VisitIntegerLiteral(il) }
func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Lexeme }
func (il *IntegerLiteral) GetToken() token.Token {
	if il == nil {
		return token.Token{}
	}
	return il.Token
}

// FloatLiteral represents a floating point literal.
type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) Accept(v Visitor)     { v.VisitFloatLiteral(fl) }
func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Lexeme }
func (fl *FloatLiteral) GetToken() token.Token {
	if fl == nil {
		return token.Token{}
	}
	return fl.Token
}

// StringLiteral represents a string, e.g. "hello"
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) Accept(v Visitor)     { v.VisitStringLiteral(sl) }
func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Lexeme }
func (sl *StringLiteral) GetToken() token.Token {
	if sl == nil {
		return token.Token{}
	}
	return sl.Token
}

// SymbolLiteral represents a symbol, e.g. :asc
// Value holds the name without the colon.
type SymbolLiteral struct {
	Token token.Token
	Value string
}

func (sl *SymbolLiteral) Accept(v Visitor)     { v.VisitSymbolLiteral(sl) }
func (sl *SymbolLiteral) expressionNode()      {}
func (sl *SymbolLiteral) TokenLiteral() string { return sl.Token.Lexeme }
func (sl *SymbolLiteral) GetToken() token.Token {
	if sl == nil {
		return token.Token{}
	}
	return sl.Token
}

// BooleanLiteral represents boolean literals true/false.
type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (b *BooleanLiteral) Accept(v Visitor)     { v.VisitBooleanLiteral(b) }
func (b *BooleanLiteral) expressionNode()      {}
func (b *BooleanLiteral) TokenLiteral() string { return b.Token.Lexeme }
func (b *BooleanLiteral) GetToken() token.Token {
	if b == nil {
		return token.Token{}
	}
	return b.Token
}

// NilLiteral represents the nil literal (the only value of type Nil).
type NilLiteral struct {
	Token token.Token
}

func (n *NilLiteral) Accept(v Visitor)     { v.VisitNilLiteral(n) }
func (n *NilLiteral) expressionNode()      {}
func (n *NilLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *NilLiteral) GetToken() token.Token {
	if n == nil {
		return token.Token{}
	}
	return n.Token
}
