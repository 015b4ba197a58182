package ast

import (
	"github.com/trubylang/truby/internal/token"
)

// --- Type Annotation Nodes ---

// Type represents a type annotation node in the AST.
// E.g., Integer, Array<String>, Integer | Nil, { def each(f: Proc<T, Nil>): Nil }
type Type interface {
	Node
	typeNode()
	GetToken() token.Token
}

// NamedType represents a named type like 'Integer', 'User', or a generic
// application like 'Array<String>'. Declared type parameters (T, U) also
// parse as NamedType; the checker resolves them against scope.
type NamedType struct {
	Token token.Token // The type's token, e.g., IDENT_UPPER
	Name  string
	Args  []Type
}

func (nt *NamedType) Accept(v Visitor)      { v.VisitNamedType(nt) }
func (nt *NamedType) typeNode()             {}
func (nt *NamedType) TokenLiteral() string  { return nt.Token.Lexeme }
func (nt *NamedType) GetToken() token.Token { return nt.Token }

// UnionType represents a union annotation, e.g. Integer | String | Nil
type UnionType struct {
	Token token.Token // the first type's token
	Types []Type      // the types in the union (at least 2)
}

func (ut *UnionType) Accept(v Visitor)      { v.VisitUnionType(ut) }
func (ut *UnionType) typeNode()             {}
func (ut *UnionType) TokenLiteral() string  { return ut.Token.Lexeme }
func (ut *UnionType) GetToken() token.Token { return ut.Token }

// StructMember is one method signature inside a structural type.
// Parameter annotations are mandatory here; the parser rejects bare names.
type StructMember struct {
	Token  token.Token // the 'def' token
	Name   string
	Params []*Param
	Return Type
}

func (sm *StructMember) GetToken() token.Token {
	if sm == nil {
		return token.Token{}
	}
	return sm.Token
}

// StructuralType represents an anonymous duck type:
//
//	{ def each(f: Proc<Integer, Nil>): Nil; def size(): Integer }
//
// A value conforms when it supplies at least these members.
type StructuralType struct {
	Token   token.Token // the '{' token
	Members []*StructMember
}

func (st *StructuralType) Accept(v Visitor)      { v.VisitStructuralType(st) }
func (st *StructuralType) typeNode()             {}
func (st *StructuralType) TokenLiteral() string  { return st.Token.Lexeme }
func (st *StructuralType) GetToken() token.Token { return st.Token }

// LiteralType represents a literal in type position, e.g. the members of
// "active" | "inactive" or :asc | :desc. Value holds the Go value of the
// literal: int64, string, or bool; symbols carry their name as a string
// with Token.Type distinguishing them.
type LiteralType struct {
	Token token.Token
	Value interface{}
}

func (lt *LiteralType) Accept(v Visitor)      { v.VisitLiteralType(lt) }
func (lt *LiteralType) typeNode()             {}
func (lt *LiteralType) TokenLiteral() string  { return lt.Token.Lexeme }
func (lt *LiteralType) GetToken() token.Token { return lt.Token }
