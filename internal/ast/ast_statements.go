package ast

import (
	"github.com/trubylang/truby/internal/token"
)

// ExpressionStatement is a statement that consists of a single expression.
type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) Accept(v Visitor)      { v.VisitExpressionStatement(es) }
func (es *ExpressionStatement) statementNode()        {}
func (es *ExpressionStatement) TokenLiteral() string  { return es.Token.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token { return es.Token }

// BlockStatement is a sequence of statements, e.g. a def or class body.
// There is no brace/end token of its own; Token is the first token of
// the first statement (or the opening keyword for empty bodies).
type BlockStatement struct {
	Token      token.Token
	Statements []Statement
}

func (bs *BlockStatement) Accept(v Visitor)      { v.VisitBlockStatement(bs) }
func (bs *BlockStatement) statementNode()        {}
func (bs *BlockStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BlockStatement) GetToken() token.Token { return bs.Token }

// AssignStatement represents binding or re-binding a name:
//
//	x = expr
//	x: Type = expr
//	@count = expr
//	@@registry = expr
//	arr[i] = expr
//
// Target is an *Identifier, *IVarExpression, *CVarExpression or
// *IndexExpression. TypeAnnotation is non-nil only for the annotated
// declaration form, which is legal on identifiers and instance/class
// variables.
type AssignStatement struct {
	Token          token.Token // the '=' token
	Target         Expression
	TypeAnnotation Type
	Value          Expression
}

func (as *AssignStatement) Accept(v Visitor)      { v.VisitAssignStatement(as) }
func (as *AssignStatement) statementNode()        {}
func (as *AssignStatement) TokenLiteral() string  { return as.Token.Lexeme }
func (as *AssignStatement) GetToken() token.Token { return as.Token }

// Param is one formal parameter of a def or block: `name: Type` or bare
// `name`. A bare parameter in a def introduces an implicit type
// parameter for that position.
type Param struct {
	Token token.Token
	Name  *Identifier
	Type  Type // nil when unannotated
}

func (p *Param) GetToken() token.Token {
	if p == nil {
		return token.Token{}
	}
	return p.Token
}

// TypeParam is a declared generic parameter, e.g. T or T: Comparable.
type TypeParam struct {
	Token      token.Token
	Name       string
	Constraint Type // nil when unconstrained
}

func (tp *TypeParam) GetToken() token.Token {
	if tp == nil {
		return token.Token{}
	}
	return tp.Token
}

// DefStatement represents a method definition:
//
//	def name<T: Bound>(p: Type, q): ReturnType ... end
//
// ReturnType is nil when omitted; the checker then synthesizes it from
// the body. Body is nil for interface method signatures.
type DefStatement struct {
	Token      token.Token // the 'def' token
	Name       *Identifier
	TypeParams []*TypeParam
	Params     []*Param
	ReturnType Type
	Body       *BlockStatement
}

func (ds *DefStatement) Accept(v Visitor)      { v.VisitDefStatement(ds) }
func (ds *DefStatement) statementNode()        {}
func (ds *DefStatement) TokenLiteral() string  { return ds.Token.Lexeme }
func (ds *DefStatement) GetToken() token.Token { return ds.Token }

// ClassDeclaration represents a class definition:
//
//	class Stack<T> < Base implements Sized ... end
type ClassDeclaration struct {
	Token      token.Token // the 'class' token
	Name       *ConstantRef
	TypeParams []*TypeParam
	SuperClass *ConstantRef // nil when no superclass clause
	Implements []*NamedType
	Body       *BlockStatement
}

func (cd *ClassDeclaration) Accept(v Visitor)      { v.VisitClassDeclaration(cd) }
func (cd *ClassDeclaration) statementNode()        {}
func (cd *ClassDeclaration) TokenLiteral() string  { return cd.Token.Lexeme }
func (cd *ClassDeclaration) GetToken() token.Token { return cd.Token }

// InterfaceDeclaration represents an interface: a named bundle of
// method signatures. Methods have nil bodies.
type InterfaceDeclaration struct {
	Token      token.Token // the 'interface' token
	Name       *ConstantRef
	TypeParams []*TypeParam
	Methods    []*DefStatement
}

func (id *InterfaceDeclaration) Accept(v Visitor)      { v.VisitInterfaceDeclaration(id) }
func (id *InterfaceDeclaration) statementNode()        {}
func (id *InterfaceDeclaration) TokenLiteral() string  { return id.Token.Lexeme }
func (id *InterfaceDeclaration) GetToken() token.Token { return id.Token }

// ModuleDeclaration represents a mixin module definition.
type ModuleDeclaration struct {
	Token token.Token // the 'module' token
	Name  *ConstantRef
	Body  *BlockStatement
}

func (md *ModuleDeclaration) Accept(v Visitor)      { v.VisitModuleDeclaration(md) }
func (md *ModuleDeclaration) statementNode()        {}
func (md *ModuleDeclaration) TokenLiteral() string  { return md.Token.Lexeme }
func (md *ModuleDeclaration) GetToken() token.Token { return md.Token }

// IncludeStatement mixes a module's methods into the enclosing class.
type IncludeStatement struct {
	Token  token.Token // the 'include' token
	Module *ConstantRef
}

func (is *IncludeStatement) Accept(v Visitor)      { v.VisitIncludeStatement(is) }
func (is *IncludeStatement) statementNode()        {}
func (is *IncludeStatement) TokenLiteral() string  { return is.Token.Lexeme }
func (is *IncludeStatement) GetToken() token.Token { return is.Token }

// WhileStatement represents a while loop.
type WhileStatement struct {
	Token     token.Token // the 'while' token
	Condition Expression
	Body      *BlockStatement
}

func (ws *WhileStatement) Accept(v Visitor)      { v.VisitWhileStatement(ws) }
func (ws *WhileStatement) statementNode()        {}
func (ws *WhileStatement) TokenLiteral() string  { return ws.Token.Lexeme }
func (ws *WhileStatement) GetToken() token.Token { return ws.Token }

// ReturnStatement represents `return expr`, optionally guarded by a
// statement modifier: `return expr if cond` / `return expr unless cond`.
// Value may be nil (bare return, which returns Nil).
type ReturnStatement struct {
	Token     token.Token // the 'return' token
	Value     Expression
	Condition Expression // nil when unconditional
	Unless    bool       // modifier was 'unless' rather than 'if'
}

func (rs *ReturnStatement) Accept(v Visitor)      { v.VisitReturnStatement(rs) }
func (rs *ReturnStatement) statementNode()        {}
func (rs *ReturnStatement) TokenLiteral() string  { return rs.Token.Lexeme }
func (rs *ReturnStatement) GetToken() token.Token { return rs.Token }

// RaiseStatement represents `raise expr`, optionally with an if/unless
// modifier. A raised branch contributes no type to its join point.
type RaiseStatement struct {
	Token     token.Token // the 'raise' token
	Value     Expression
	Condition Expression // nil when unconditional
	Unless    bool
}

func (rs *RaiseStatement) Accept(v Visitor)      { v.VisitRaiseStatement(rs) }
func (rs *RaiseStatement) statementNode()        {}
func (rs *RaiseStatement) TokenLiteral() string  { return rs.Token.Lexeme }
func (rs *RaiseStatement) GetToken() token.Token { return rs.Token }

// BreakStatement exits the innermost while loop.
type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) Accept(v Visitor)      { v.VisitBreakStatement(bs) }
func (bs *BreakStatement) statementNode()        {}
func (bs *BreakStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BreakStatement) GetToken() token.Token { return bs.Token }

// NextStatement skips to the next iteration of the innermost while loop.
type NextStatement struct {
	Token token.Token
}

func (ns *NextStatement) Accept(v Visitor)      { v.VisitNextStatement(ns) }
func (ns *NextStatement) statementNode()        {}
func (ns *NextStatement) TokenLiteral() string  { return ns.Token.Lexeme }
func (ns *NextStatement) GetToken() token.Token { return ns.Token }
