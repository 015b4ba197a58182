package analyzer

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/symbols"
	"github.com/trubylang/truby/internal/typesystem"
)

// narrowCond applies the type facts a condition establishes when it
// evaluates the given way. positive means the condition held. Facts are
// written straight into the environment; callers snapshot and restore
// around branch arms.
func (c *checker) narrowCond(cond ast.Expression, positive bool) {
	switch e := cond.(type) {
	case *ast.Identifier:
		b, ok := c.env.Lookup(e.Value)
		if !ok {
			return
		}
		eff := b.Effective()
		if positive {
			c.env.Narrow(e.Value, typesystem.Subtract(eff, typesystem.NilType, c.reg))
		} else if !mentionsBool(eff) {
			// without a Bool in play, falsy means nil
			c.env.Narrow(e.Value, typesystem.Intersect(eff, typesystem.NilType, c.reg))
		}
	case *ast.PrefixExpression:
		if e.Operator == "!" {
			c.narrowCond(e.Right, !positive)
		}
	case *ast.InfixExpression:
		switch e.Operator {
		case "&&":
			if positive {
				c.narrowCond(e.Left, true)
				c.narrowCond(e.Right, true)
			} else {
				c.mergeNegative(e.Left, e.Right)
			}
		case "||":
			if positive {
				// either side may have held; no single fact survives
				return
			}
			c.narrowCond(e.Left, false)
			c.narrowCond(e.Right, false)
		case "==", "!=":
			pos := positive
			if e.Operator == "!=" {
				pos = !pos
			}
			c.narrowEquality(e, pos)
		}
	case *ast.MethodCall:
		c.narrowCall(e, positive)
	}
}

// narrowCall handles the two recognized test methods on a plain local:
// x.is_a?(Klass) and x.nil?.
func (c *checker) narrowCall(e *ast.MethodCall, positive bool) {
	id, ok := e.Receiver.(*ast.Identifier)
	if !ok {
		return
	}
	b, found := c.env.Lookup(id.Value)
	if !found {
		return
	}

	var guard typesystem.Type
	switch e.Method.Value {
	case "is_a?":
		if len(e.Args) != 1 {
			return
		}
		ref, ok := e.Args[0].(*ast.ConstantRef)
		if !ok {
			return
		}
		guard = c.guardTypeOf(ref)
		if guard == nil {
			return
		}
	case "nil?":
		if len(e.Args) != 0 {
			return
		}
		guard = typesystem.NilType
	default:
		return
	}

	if positive {
		c.env.Narrow(id.Value, typesystem.Intersect(b.Effective(), guard, c.reg))
	} else {
		c.env.Narrow(id.Value, typesystem.Subtract(b.Effective(), guard, c.reg))
	}
}

// narrowEquality pins a local compared against a literal. Equality with
// nil subtracts on the refuted side, which is what `if x != nil` is
// for; literal comparisons narrow literal unions such as :ok | :error.
func (c *checker) narrowEquality(e *ast.InfixExpression, positive bool) {
	id, other := equalityOperands(e)
	if id == nil || other == nil {
		return
	}
	b, ok := c.env.Lookup(id.Value)
	if !ok {
		return
	}
	var guard typesystem.Type
	if _, isNil := other.(*ast.NilLiteral); isNil {
		guard = typesystem.NilType
	} else if lit := literalTypeOf(other); lit != nil {
		guard = lit
	} else {
		return
	}
	if positive {
		c.env.Narrow(id.Value, typesystem.Intersect(b.Effective(), guard, c.reg))
	} else {
		c.env.Narrow(id.Value, typesystem.Subtract(b.Effective(), guard, c.reg))
	}
}

func equalityOperands(e *ast.InfixExpression) (*ast.Identifier, ast.Expression) {
	if id, ok := e.Left.(*ast.Identifier); ok {
		return id, e.Right
	}
	if id, ok := e.Right.(*ast.Identifier); ok {
		return id, e.Left
	}
	return nil, nil
}

// mergeNegative handles !(A && B): either conjunct may have failed, so
// only facts both refutations agree on survive, unioned per binding.
func (c *checker) mergeNegative(left, right ast.Expression) {
	lf := c.condFacts(left, false)
	rf := c.condFacts(right, false)
	for b, lt := range lf {
		rt, ok := rf[b]
		if !ok {
			continue
		}
		b.Narrowed = typesystem.NormalizeUnion([]typesystem.Type{lt, rt})
	}
}

// condFacts evaluates the narrowing a condition would apply and returns
// the changed bindings without keeping the mutation.
func (c *checker) condFacts(cond ast.Expression, positive bool) map[*symbols.Binding]typesystem.Type {
	snap := c.env.SnapshotNarrowing()
	c.narrowCond(cond, positive)
	facts := make(map[*symbols.Binding]typesystem.Type)
	for b, old := range snap {
		if b.Narrowed != nil && (old == nil || b.Narrowed.String() != old.String()) {
			facts[b] = b.Narrowed
		}
	}
	snap.Restore()
	return facts
}

// guardTypeOf resolves a constant used as a runtime type test. Generic
// containers yield a bare head, so x.is_a?(Array) matches any Array
// instantiation. Returns nil for names the registry does not know.
func (c *checker) guardTypeOf(ref *ast.ConstantRef) typesystem.Type {
	name := ref.Name
	if _, ok := c.reg.Classes[name]; ok {
		if len(ref.TypeArgs) > 0 {
			args := make([]typesystem.Type, len(ref.TypeArgs))
			for i, ta := range ref.TypeArgs {
				args[i] = c.buildType(ta)
			}
			return typesystem.TClass{Name: name, Args: args}
		}
		return typesystem.TClass{Name: name}
	}
	if _, ok := c.reg.Interfaces[name]; ok {
		return typesystem.TClass{Name: name}
	}
	if _, ok := c.reg.Modules[name]; ok {
		return typesystem.TClass{Name: name}
	}
	if arity, ok := c.reg.Builtin(name); ok {
		if arity > 0 {
			return typesystem.TApp{Name: name}
		}
		return typesystem.TCon{Name: name}
	}
	return nil
}

func mentionsBool(t typesystem.Type) bool {
	for _, m := range typesystem.Alternatives(t) {
		if con, ok := m.(typesystem.TCon); ok && con.Name == "Bool" {
			return true
		}
		if lit, ok := m.(typesystem.TLit); ok && lit.Base == "Bool" {
			return true
		}
	}
	return false
}
