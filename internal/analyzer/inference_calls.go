package analyzer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/symbols"
	"github.com/trubylang/truby/internal/token"
	"github.com/trubylang/truby/internal/typesystem"
)

// checkCall types a method call. Results are cached per node; a call
// can be revisited when a union receiver re-walks a block body or when
// demand-driven inference re-enters the enclosing statement.
func (c *checker) checkCall(n *ast.MethodCall) typesystem.Type {
	if t, ok := c.callCache[n]; ok {
		return t
	}
	t := c.checkCallUncached(n)
	c.callCache[n] = t
	return t
}

func (c *checker) checkCallUncached(n *ast.MethodCall) typesystem.Type {
	if ref, ok := n.Receiver.(*ast.ConstantRef); ok {
		return c.checkClassCall(n, ref)
	}
	if n.Receiver == nil {
		return c.checkBareCall(n)
	}

	recv := c.synthesize(n.Receiver)
	if n.Method.Value == "is_a?" {
		return c.checkIsA(n)
	}
	argTypes := c.synthesizeArgs(n.Args)
	return c.invoke(n.Method.Token, recv, n.Method.Value, n.Args, argTypes, n.TypeArgs, n.Block)
}

func (c *checker) synthesizeArgs(args []ast.Expression) []typesystem.Type {
	types := make([]typesystem.Type, len(args))
	for i, a := range args {
		types[i] = c.synthesize(a)
	}
	return types
}

// invoke resolves and solves one member call on an already-typed
// receiver. A union receiver dispatches member-wise: every member must
// respond, and the results join. argNodes parallel argTypes and supply
// precise error positions and literal retries; entries may be nil.
func (c *checker) invoke(tok token.Token, recv typesystem.Type, name string,
	argNodes []ast.Expression, argTypes []typesystem.Type,
	typeArgs []ast.Type, block *ast.BlockLiteral) typesystem.Type {

	if isErrorType(recv) {
		return typesystem.ErrorType
	}
	if u, ok := recv.(typesystem.TUnion); ok {
		parts := make([]typesystem.Type, 0, len(u.Types))
		for _, m := range u.Types {
			parts = append(parts, c.invokeOn(tok, m, recv, name, argNodes, argTypes, typeArgs, block))
		}
		return typesystem.NormalizeUnion(parts)
	}
	return c.invokeOn(tok, recv, recv, name, argNodes, argTypes, typeArgs, block)
}

func (c *checker) invokeOn(tok token.Token, member, full typesystem.Type, name string,
	argNodes []ast.Expression, argTypes []typesystem.Type,
	typeArgs []ast.Type, block *ast.BlockLiteral) typesystem.Type {

	if isErrorType(member) {
		return typesystem.ErrorType
	}
	sig, recvSub, ok := c.reg.Method(member, name)
	if !ok {
		if member.String() != full.String() {
			c.addError(diagnostics.ErrT002, tok,
				"undefined method '%s' for %s (receiver is %s)", name, member, full)
		} else {
			c.addError(diagnostics.ErrT002, tok, "undefined method '%s' for %s", name, member)
		}
		return typesystem.ErrorType
	}
	return c.applySig(tok, sig, recvSub, argNodes, argTypes, typeArgs, block)
}

// applySig solves a resolved signature against the call and returns the
// instantiated result type.
func (c *checker) applySig(tok token.Token, sig *symbols.MethodSig, recvSub typesystem.Subst,
	argNodes []ast.Expression, argTypes []typesystem.Type,
	typeArgs []ast.Type, block *ast.BlockLiteral) typesystem.Type {

	sub, ok := c.solveCall(tok, sig, recvSub, argNodes, argTypes, typeArgs, block)
	if !ok {
		return typesystem.ErrorType
	}
	ret := typesystem.Type(typesystem.VoidType)
	if sig.Return != nil {
		ret = sig.Return.Apply(sub)
	}
	return c.capEscapes(tok, sig.Name, ret)
}

// solveCall runs the argument solver for one call: explicit type
// arguments seed the substitution, positional arguments bind the rest,
// and a trailing block solves the final proc parameter. A hard shape
// mismatch (arity, missing block) returns ok=false; per-argument
// mismatches are reported and solving continues, so one bad argument
// does not hide the others.
func (c *checker) solveCall(tok token.Token, sig *symbols.MethodSig, recvSub typesystem.Subst,
	argNodes []ast.Expression, argTypes []typesystem.Type,
	typeArgs []ast.Type, block *ast.BlockLiteral) (typesystem.Subst, bool) {

	if !c.ensureReturn(tok, sig) {
		return nil, false
	}

	sub := make(typesystem.Subst, len(recvSub))
	for k, v := range recvSub {
		sub[k] = v
	}

	if len(typeArgs) > 0 {
		if len(typeArgs) != len(sig.TypeParams) {
			c.addError(diagnostics.ErrT001, tok,
				"wrong number of type arguments for '%s' (given %d, expected %d)",
				sig.Name, len(typeArgs), len(sig.TypeParams))
		} else {
			for i, ta := range typeArgs {
				t := c.buildType(ta)
				tp := sig.TypeParams[i]
				if tp.Constraint != nil && !isErrorType(t) && !typesystem.IsSubtype(t, tp.Constraint, c.reg) {
					c.addError(diagnostics.ErrT004, ta.GetToken(),
						"type argument %s for %s does not satisfy constraint %s",
						t, tp.Name, tp.Constraint)
				}
				sub[tp.Name] = t
			}
		}
	}

	// variables fixed by the receiver or by explicit type arguments are
	// not open for this call to rebind; applying the seed makes their
	// parameters ground so a bad argument reads as a plain mismatch
	seed := make(typesystem.Subst, len(sub))
	for k, v := range sub {
		seed[k] = v
	}

	params := sig.Params
	expectsBlock := false
	if len(params) > 0 {
		if _, ok := params[len(params)-1].Apply(sub).(typesystem.TProc); ok {
			expectsBlock = true
		}
	}
	if block != nil && !expectsBlock {
		c.addError(diagnostics.ErrT001, block.Token, "'%s' does not take a block", sig.Name)
		block = nil
	}

	fixed := params
	if expectsBlock {
		if block != nil {
			fixed = params[:len(params)-1]
		} else if len(argTypes) == len(params)-1 {
			// the proc parameter was neither a block nor a positional
			// argument
			c.addError(diagnostics.ErrT001, tok, "'%s' expects a block", sig.Name)
			return nil, false
		}
	}
	if len(argTypes) != len(fixed) {
		c.addError(diagnostics.ErrT001, tok,
			"wrong number of arguments for '%s' (given %d, expected %d)",
			sig.Name, len(argTypes), len(fixed))
		return nil, false
	}

	for i := range fixed {
		p := fixed[i].Apply(seed)
		at := argTypes[i]
		if isErrorType(at) {
			continue
		}
		next, err := typesystem.Unify(p, at, sub, c.reg)
		if err == nil {
			if bad := c.reboundRigid(sub, next); bad != "" {
				err = fmt.Errorf("cannot use %s where %s is expected", at, bad)
			} else {
				sub = next
				continue
			}
		}
		if i < len(argNodes) && argNodes[i] != nil {
			node := argNodes[i]
			if lit := literalTypeOf(node); lit != nil {
				if retried, err2 := typesystem.Unify(p, lit, sub, c.reg); err2 == nil && c.reboundRigid(sub, retried) == "" {
					sub = retried
					c.setType(node, lit)
					continue
				}
			}
			if adopted := emptyLiteralAs(node, p.Apply(sub), c.reg); adopted != nil {
				c.setType(node, adopted)
				continue
			}
		}
		c.reportUnifyError(err, c.argToken(tok, argNodes, i), sig.Name, i)
	}

	if block != nil && expectsBlock {
		if proc, ok := params[len(params)-1].Apply(sub).(typesystem.TProc); ok {
			sub = c.checkBlockLiteral(block, proc, sub)
		}
	}
	return sub, true
}

func (c *checker) argToken(tok token.Token, argNodes []ast.Expression, i int) token.Token {
	if i < len(argNodes) && argNodes[i] != nil {
		return argNodes[i].GetToken()
	}
	return tok
}

// reboundRigid reports the first variable a unification step rebound
// even though the enclosing declaration holds it rigid. Inside a
// generic class or method, T names one unknown type; an argument
// cannot widen it.
func (c *checker) reboundRigid(prev, next typesystem.Subst) string {
	for k, nv := range next {
		pv, ok := prev[k]
		if !ok {
			continue
		}
		tv, isVar := pv.(typesystem.TVar)
		if !isVar {
			continue
		}
		if _, rigid := c.tparams[tv.Name]; !rigid {
			continue
		}
		if nv.String() != pv.String() {
			return tv.Name
		}
	}
	return ""
}

func (c *checker) reportUnifyError(err error, tok token.Token, method string, i int) {
	var ce *typesystem.ConstraintError
	if errors.As(err, &ce) {
		c.addError(diagnostics.ErrT004, tok, "in call to '%s': %s", method, err)
		return
	}
	c.addError(diagnostics.ErrT001, tok, "argument %d of '%s': %s", i+1, method, err)
}

// ensureReturn makes sure the callee's return type is known before the
// call is typed, driving inference of unannotated defs on demand. A
// cycle back into a def whose return is currently being inferred cannot
// be resolved and needs an annotation.
func (c *checker) ensureReturn(tok token.Token, sig *symbols.MethodSig) bool {
	if sig.Return != nil {
		return true
	}
	site, ok := c.siteBySig[sig]
	if !ok {
		sig.Return = typesystem.VoidType
		return true
	}
	if c.inferring[site.def] {
		c.addError(diagnostics.ErrT006, tok,
			"cannot infer the return type of recursive method '%s'; annotate it", sig.Name)
		return false
	}
	c.checkDefBody(site.def)
	return sig.Return != nil
}

// capEscapes poisons type variables that would leak out of a call
// result. The enclosing declaration's own rigid parameters are not
// escapes; a generic method calling another generic legitimately keeps
// its variables in play.
func (c *checker) capEscapes(tok token.Token, method string, t typesystem.Type) typesystem.Type {
	free := t.FreeTypeVariables()
	if len(free) == 0 {
		return t
	}
	esc := typesystem.Subst{}
	for _, tv := range free {
		if _, rigid := c.tparams[tv.Name]; rigid {
			continue
		}
		c.addError(diagnostics.ErrT004, tok,
			"cannot infer type argument %s for '%s'; supply explicit type arguments", tv.Name, method)
		esc[tv.Name] = typesystem.ErrorType
	}
	if len(esc) == 0 {
		return t
	}
	return t.Apply(esc)
}

// checkBlockLiteral checks a block against the proc type of the
// callee's final parameter. Parameters take the proc's parameter types
// (an explicit annotation wins when the proc type fits it); the body
// runs in a child scope, and its tail value solves the proc's return,
// which is how map's element variable gets bound. break and next are
// legal inside a block.
func (c *checker) checkBlockLiteral(block *ast.BlockLiteral, proc typesystem.TProc, sub typesystem.Subst) typesystem.Subst {
	if len(block.Params) != len(proc.Params) {
		c.addError(diagnostics.ErrT001, block.Token,
			"block takes %d parameters, %d expected", len(block.Params), len(proc.Params))
		return sub
	}

	saved := c.env
	c.env = symbols.NewEnclosedEnvironment(saved, symbols.ScopeBlock)
	for i, p := range block.Params {
		pt := proc.Params[i].Apply(sub)
		if p.Type != nil {
			want := c.buildType(p.Type)
			if !isErrorType(want) && !isErrorType(pt) && !typesystem.IsSubtype(pt, want, c.reg) {
				c.addError(diagnostics.ErrT001, p.GetToken(),
					"block parameter '%s' is declared %s but receives %s", p.Name.Value, want, pt)
			}
			pt = want
		}
		if err := c.env.Declare(p.Name.Value, pt, p); err != nil {
			c.addError(diagnostics.ErrT003, p.Name.Token, "duplicate parameter '%s'", p.Name.Value)
			continue
		}
		c.setType(p.Name, pt)
	}

	// the block may run zero or many times: outer locals it assigns
	// widen back to their declared types, and its own locals stay
	// inside it
	outer := saved.SnapshotNarrowing()
	c.pushAssign()
	c.inLoop++
	c.loopBreak = append(c.loopBreak, false)
	tail, terminated := c.checkBlock(block.Body)
	c.loopBreak = c.loopBreak[:len(c.loopBreak)-1]
	c.inLoop--
	frame := c.popAssign()
	outer.Restore()
	for b := range frame {
		if _, ok := outer[b]; ok {
			b.Narrowed = nil
			c.recordBinding(b, b.Declared)
		}
	}
	c.env = saved

	if isVoid(proc.Return.Apply(sub)) || terminated || isErrorType(tail) {
		return sub
	}
	if next, err := typesystem.Unify(proc.Return, tail, sub, c.reg); err == nil && c.reboundRigid(sub, next) == "" {
		return next
	}
	if last := lastExprOf(block.Body); last != nil {
		if lit := literalTypeOf(last); lit != nil {
			if next, err := typesystem.Unify(proc.Return, lit, sub, c.reg); err == nil && c.reboundRigid(sub, next) == "" {
				c.setType(last, lit)
				return next
			}
		}
	}
	c.addError(diagnostics.ErrT001, blockTailToken(block),
		"block evaluates to %s where %s is expected", tail, proc.Return.Apply(sub))
	return sub
}

func blockTailToken(block *ast.BlockLiteral) token.Token {
	if block.Body != nil && len(block.Body.Statements) > 0 {
		return block.Body.Statements[len(block.Body.Statements)-1].GetToken()
	}
	return block.Token
}

// --- Class receivers ---

func (c *checker) checkClassCall(n *ast.MethodCall, ref *ast.ConstantRef) typesystem.Type {
	if n.Method.Value == "new" {
		return c.checkNew(n, ref)
	}
	c.synthesizeArgs(n.Args)
	if c.reg.TypeName(ref.Name) {
		c.addError(diagnostics.ErrT002, n.Method.Token,
			"undefined class method '%s' for %s", n.Method.Value, ref.Name)
	} else {
		c.addError(diagnostics.ErrT002, ref.Token, "unknown constant '%s'", ref.Name)
	}
	return typesystem.ErrorType
}

// checkNew types Klass.new and Klass<T>.new. Without explicit type
// arguments, a generic class's parameters are solved from the
// initialize arguments; when nothing binds them the call must spell
// them out.
func (c *checker) checkNew(n *ast.MethodCall, ref *ast.ConstantRef) typesystem.Type {
	name := ref.Name
	argTypes := c.synthesizeArgs(n.Args)

	info, ok := c.reg.Classes[name]
	if !ok {
		switch {
		case c.reg.Interfaces[name] != nil:
			c.addError(diagnostics.ErrT001, ref.Token, "cannot instantiate interface '%s'", name)
		case c.reg.Modules[name] != nil:
			c.addError(diagnostics.ErrT001, ref.Token, "cannot instantiate module '%s'", name)
		default:
			if _, builtin := c.reg.Builtin(name); builtin {
				c.addError(diagnostics.ErrT001, ref.Token, "use a literal to construct %s", name)
			} else {
				c.addError(diagnostics.ErrT002, ref.Token, "unknown class '%s'", name)
			}
		}
		return typesystem.ErrorType
	}

	if missing := c.reg.UnimplementedAbstract(name); len(missing) > 0 {
		c.addError(diagnostics.ErrT005, n.Token,
			"cannot instantiate '%s': abstract %s not implemented", name, methodList(missing))
	}

	var explicit []typesystem.Type
	if len(ref.TypeArgs) > 0 {
		if len(ref.TypeArgs) != len(info.TypeParams) {
			c.addError(diagnostics.ErrT001, ref.Token,
				"wrong number of type arguments for %s (given %d, expected %d)",
				name, len(ref.TypeArgs), len(info.TypeParams))
			return typesystem.ErrorType
		}
		for i, ta := range ref.TypeArgs {
			t := c.buildType(ta)
			tp := info.TypeParams[i]
			if tp.Constraint != nil && !isErrorType(t) && !typesystem.IsSubtype(t, tp.Constraint, c.reg) {
				c.addError(diagnostics.ErrT004, ta.GetToken(),
					"type argument %s for %s does not satisfy constraint %s", t, tp.Name, tp.Constraint)
			}
			explicit = append(explicit, t)
		}
	}

	// receiver for the initialize lookup: the explicit instantiation,
	// or the class over its own parameters so the solver binds them
	recvArgs := explicit
	if recvArgs == nil {
		for _, tv := range info.TypeParams {
			recvArgs = append(recvArgs, typesystem.Type(tv))
		}
	}
	recv := typesystem.TClass{Name: name, Args: recvArgs}
	c.setType(ref, recv)

	initSig, recvSub, hasInit := c.reg.Method(recv, "initialize")
	if hasInit {
		// identity entries for inferable parameters would make bindVar
		// fold fresh observations into a union with the variable
		// itself; drop them so initialize arguments bind T outright
		for k, v := range recvSub {
			tv, ok := v.(typesystem.TVar)
			if !ok || tv.Name != k {
				continue
			}
			if _, rigid := c.tparams[tv.Name]; !rigid {
				delete(recvSub, k)
			}
		}
	}
	if !hasInit {
		if len(n.Args) > 0 {
			c.addError(diagnostics.ErrT001, n.Token,
				"wrong number of arguments for 'new' (given %d, expected 0)", len(n.Args))
		}
		if n.Block != nil {
			c.addError(diagnostics.ErrT001, n.Block.Token, "'new' does not take a block")
		}
		if explicit == nil && len(info.TypeParams) > 0 {
			c.addError(diagnostics.ErrT004, n.Token,
				"cannot infer type arguments for %s; write %s<...>.new", name, name)
			return typesystem.ErrorType
		}
		result := typesystem.TClass{Name: name, Args: explicit}
		c.setType(ref, result)
		return result
	}

	if n.Block != nil {
		c.addError(diagnostics.ErrT001, n.Block.Token, "'new' does not take a block")
	}
	sub, solved := c.solveCall(n.Token, initSig, recvSub, n.Args, argTypes, nil, nil)
	if !solved {
		sub = typesystem.Subst{}
	}

	final := explicit
	if final == nil {
		for _, tp := range info.TypeParams {
			bound, ok := sub[tp.Name]
			if !ok {
				c.addError(diagnostics.ErrT004, n.Token,
					"cannot infer type argument %s for %s; write %s<...>.new", tp.Name, name, name)
				bound = typesystem.ErrorType
			}
			final = append(final, bound)
		}
	}
	result := typesystem.TClass{Name: name, Args: final}
	c.setType(ref, result)
	return result
}

func methodList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	if len(quoted) == 1 {
		return "method " + quoted[0]
	}
	return "methods " + strings.Join(quoted, ", ")
}

// --- Bare calls ---

func (c *checker) checkBareCall(n *ast.MethodCall) typesystem.Type {
	name := n.Method.Value

	// print builtins accept anything and return nil
	if name == "puts" || name == "print" || name == "p" {
		c.synthesizeArgs(n.Args)
		if n.Block != nil {
			c.addError(diagnostics.ErrT001, n.Block.Token, "'%s' does not take a block", name)
		}
		return typesystem.NilType
	}

	argTypes := c.synthesizeArgs(n.Args)
	if self := c.selfType(); self != nil {
		if sig, recvSub, ok := c.reg.Method(self, name); ok {
			return c.applySig(n.Method.Token, sig, recvSub, n.Args, argTypes, n.TypeArgs, n.Block)
		}
	}
	if c.module != nil {
		if sig, ok := c.module.Methods[name]; ok {
			return c.applySig(n.Method.Token, sig, typesystem.Subst{}, n.Args, argTypes, n.TypeArgs, n.Block)
		}
	}
	if sig, ok := c.globals[name]; ok {
		return c.applySig(n.Method.Token, sig, typesystem.Subst{}, n.Args, argTypes, n.TypeArgs, n.Block)
	}
	c.addError(diagnostics.ErrT002, n.Method.Token, "undefined method '%s'", name)
	return typesystem.ErrorType
}

// checkIsA validates the runtime class test; its argument position
// names a type rather than a value.
func (c *checker) checkIsA(n *ast.MethodCall) typesystem.Type {
	if len(n.Args) != 1 {
		c.addError(diagnostics.ErrT001, n.Method.Token, "is_a? takes exactly one class argument")
		c.synthesizeArgs(n.Args)
		return typesystem.BoolType
	}
	ref, ok := n.Args[0].(*ast.ConstantRef)
	if !ok {
		c.addError(diagnostics.ErrT001, n.Args[0].GetToken(), "is_a? expects a class name")
		c.synthesize(n.Args[0])
		return typesystem.BoolType
	}
	if g := c.guardTypeOf(ref); g != nil {
		c.setType(ref, g)
	} else {
		c.addError(diagnostics.ErrT002, ref.Token, "unknown type '%s'", ref.Name)
	}
	return typesystem.BoolType
}
