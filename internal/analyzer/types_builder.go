package analyzer

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/token"
	"github.com/trubylang/truby/internal/typesystem"
)

// buildType translates a parsed annotation into a checker type.
// Defects are reported against the annotation's own tokens and yield
// the poison type, so one bad annotation cannot cascade into the
// expressions it was meant to describe.
func (c *checker) buildType(node ast.Type) typesystem.Type {
	switch n := node.(type) {
	case *ast.NamedType:
		return c.buildNamedType(n)

	case *ast.UnionType:
		members := make([]typesystem.Type, 0, len(n.Types))
		for _, m := range n.Types {
			members = append(members, c.buildType(m))
		}
		return typesystem.NormalizeUnion(members)

	case *ast.StructuralType:
		return c.buildStructuralType(n)

	case *ast.LiteralType:
		return buildLiteralType(n)
	}
	return typesystem.ErrorType
}

func (c *checker) buildNamedType(n *ast.NamedType) typesystem.Type {
	// Type parameters shadow every other name while their declaration
	// is in scope.
	if tv, ok := c.tparams[n.Name]; ok {
		if len(n.Args) > 0 {
			c.addError(diagnostics.ErrT001, n.Token,
				"type parameter '%s' cannot take type arguments", n.Name)
			return typesystem.ErrorType
		}
		return tv
	}

	if n.Name == "Proc" {
		return c.buildProcType(n)
	}
	if n.Name == "Void" {
		if len(n.Args) > 0 {
			c.addError(diagnostics.ErrT001, n.Token, "'Void' does not take type arguments")
		}
		return typesystem.VoidType
	}

	args := make([]typesystem.Type, 0, len(n.Args))
	for _, a := range n.Args {
		args = append(args, c.buildType(a))
	}

	if arity, ok := c.reg.Builtin(n.Name); ok {
		if len(args) != arity {
			c.addError(diagnostics.ErrT001, n.Token,
				"wrong number of type arguments for %s (given %d, expected %d)",
				n.Name, len(args), arity)
			return typesystem.ErrorType
		}
		if arity == 0 {
			return typesystem.TCon{Name: n.Name}
		}
		return typesystem.TApp{Name: n.Name, Args: args}
	}

	if info, ok := c.reg.Classes[n.Name]; ok {
		c.checkTypeArgs(n, info.TypeParams, args)
		return typesystem.TClass{Name: n.Name, Args: args}
	}
	if info, ok := c.reg.Interfaces[n.Name]; ok {
		c.checkTypeArgs(n, info.TypeParams, args)
		return typesystem.TClass{Name: n.Name, Args: args}
	}
	if _, ok := c.reg.Modules[n.Name]; ok {
		if len(args) > 0 {
			c.addError(diagnostics.ErrT001, n.Token,
				"module '%s' does not take type arguments", n.Name)
		}
		return typesystem.TClass{Name: n.Name}
	}

	c.addError(diagnostics.ErrT002, n.Token, "unknown type '%s'", n.Name)
	return typesystem.ErrorType
}

// checkTypeArgs validates arity and declared bounds of an instantiation.
// The instantiation is still returned to the caller afterwards; reported
// arguments keep flowing so later uses resolve members normally.
func (c *checker) checkTypeArgs(n *ast.NamedType, params []typesystem.TVar, args []typesystem.Type) {
	if len(args) != len(params) {
		c.addError(diagnostics.ErrT001, n.Token,
			"wrong number of type arguments for %s (given %d, expected %d)",
			n.Name, len(args), len(params))
		return
	}
	for i, p := range params {
		if p.Constraint == nil {
			continue
		}
		if isErrorType(args[i]) {
			continue
		}
		if !typesystem.IsSubtype(args[i], p.Constraint, c.reg) {
			c.addError(diagnostics.ErrT004, n.Args[i].GetToken(),
				"type argument %s for %s does not satisfy constraint %s",
				args[i], p.Name, p.Constraint)
		}
	}
}

// buildProcType reads Proc<P1, ..., Pn, R>: the last argument is the
// return type, everything before it a parameter.
func (c *checker) buildProcType(n *ast.NamedType) typesystem.Type {
	if len(n.Args) == 0 {
		c.addError(diagnostics.ErrT001, n.Token,
			"Proc needs at least a return type, e.g. Proc<Void>")
		return typesystem.ErrorType
	}
	params := make([]typesystem.Type, 0, len(n.Args)-1)
	for _, a := range n.Args[:len(n.Args)-1] {
		params = append(params, c.buildType(a))
	}
	ret := c.buildType(n.Args[len(n.Args)-1])
	return typesystem.TProc{Params: params, Return: ret}
}

func (c *checker) buildStructuralType(n *ast.StructuralType) typesystem.Type {
	members := make([]typesystem.StructMember, 0, len(n.Members))
	for _, m := range n.Members {
		params := make([]typesystem.Type, 0, len(m.Params))
		for _, p := range m.Params {
			// The parser requires annotations on structural members;
			// a missing one here means it already reported P003.
			if p.Type == nil {
				params = append(params, typesystem.ErrorType)
				continue
			}
			params = append(params, c.buildType(p.Type))
		}
		ret := typesystem.Type(typesystem.VoidType)
		if m.Return != nil {
			ret = c.buildType(m.Return)
		}
		members = append(members, typesystem.StructMember{
			Name: m.Name,
			Sig:  typesystem.TProc{Params: params, Return: ret},
		})
	}
	return typesystem.TStruct{Members: members}
}

// buildLiteralType maps a literal annotation to its singleton type.
// The parser stores int64/string/bool values; symbols arrive as strings
// under a SYMBOL token.
func buildLiteralType(n *ast.LiteralType) typesystem.Type {
	switch v := n.Value.(type) {
	case int64:
		return typesystem.TLit{Value: v, Base: "Integer"}
	case string:
		if n.Token.Type == token.SYMBOL {
			return typesystem.TLit{Value: v, Base: "Symbol"}
		}
		return typesystem.TLit{Value: v, Base: "String"}
	case bool:
		return typesystem.TLit{Value: v, Base: "Bool"}
	}
	return typesystem.ErrorType
}
