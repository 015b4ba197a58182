package analyzer

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/symbols"
	"github.com/trubylang/truby/internal/token"
	"github.com/trubylang/truby/internal/typesystem"
)

// checkProgram is the body pass. Top-level script statements run in the
// global scope; class, module and def bodies are entered as they
// appear. Unannotated defs called before their definition are checked
// on demand from the call site, so source order never matters.
func (c *checker) checkProgram(program *ast.Program) {
	c.env = symbols.NewEnvironment()
	for _, stmt := range program.Statements {
		c.checkStatement(stmt)
	}
}

// checkStatement checks one statement and reports the type it
// evaluates to plus whether it terminates the enclosing path
// (unconditional return, raise, break or next).
func (c *checker) checkStatement(stmt ast.Statement) (typesystem.Type, bool) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		switch e := s.Expression.(type) {
		case *ast.IfExpression:
			t, term := c.checkIf(e)
			c.setType(e, t)
			return t, term
		case *ast.CaseExpression:
			t, term := c.checkCase(e)
			c.setType(e, t)
			return t, term
		}
		return c.synthesize(s.Expression), false

	case *ast.AssignStatement:
		return c.checkAssign(s), false

	case *ast.ReturnStatement:
		return c.checkReturn(s)

	case *ast.RaiseStatement:
		return c.checkRaise(s)

	case *ast.WhileStatement:
		c.checkWhile(s)
		return typesystem.NilType, false

	case *ast.BreakStatement:
		if c.inLoop == 0 {
			c.addError(diagnostics.ErrT001, s.Token, "break outside of a loop")
			return typesystem.NilType, false
		}
		if len(c.loopBreak) > 0 {
			c.loopBreak[len(c.loopBreak)-1] = true
		}
		return typesystem.VoidType, true

	case *ast.NextStatement:
		if c.inLoop == 0 {
			c.addError(diagnostics.ErrT001, s.Token, "next outside of a loop")
			return typesystem.NilType, false
		}
		return typesystem.VoidType, true

	case *ast.DefStatement:
		// a def nested in another body defines a top-level method when
		// the enclosing body runs
		if _, ok := c.defSites[s]; !ok {
			c.declareGlobalDef(s)
		}
		c.checkDefBody(s)
		return typesystem.NilType, false

	case *ast.ClassDeclaration:
		c.checkClassBody(s)
		return typesystem.NilType, false

	case *ast.InterfaceDeclaration:
		if _, ok := c.reg.Interfaces[s.Name.Name]; !ok && !c.reg.TypeName(s.Name.Name) {
			c.addError(diagnostics.ErrT001, s.Token, "interface declarations must appear at the top level")
		}
		return typesystem.NilType, false

	case *ast.ModuleDeclaration:
		c.checkModuleBody(s)
		return typesystem.NilType, false

	case *ast.IncludeStatement:
		c.addError(diagnostics.ErrT001, s.Token, "include is only allowed inside a class body")
		return typesystem.NilType, false

	case *ast.BlockStatement:
		return c.checkBlock(s)
	}
	return typesystem.NilType, false
}

// checkBlock checks a statement sequence. Statements after a
// terminator are still checked for their own defects; they no longer
// contribute to the block's type.
func (c *checker) checkBlock(block *ast.BlockStatement) (typesystem.Type, bool) {
	if block == nil {
		return typesystem.NilType, false
	}
	tail := typesystem.Type(typesystem.NilType)
	terminated := false
	for _, stmt := range block.Statements {
		t, term := c.checkStatement(stmt)
		if terminated {
			continue
		}
		tail = t
		terminated = term
	}
	if terminated {
		return typesystem.VoidType, true
	}
	return tail, false
}

func (c *checker) checkClassBody(s *ast.ClassDeclaration) {
	info, ok := c.reg.Classes[s.Name.Name]
	if !ok || info.Node != ast.Node(s) {
		if !c.reg.TypeName(s.Name.Name) {
			c.addError(diagnostics.ErrT001, s.Token, "class declarations must appear at the top level")
		}
		return
	}
	if s.Body == nil {
		return
	}

	saved := c.save()
	c.class = info
	c.module = nil
	c.inDef = false
	c.env = symbols.NewEnclosedEnvironment(nil, symbols.ScopeClass)
	c.tparams = make(map[string]typesystem.TVar, len(info.TypeParams))
	for _, tv := range info.TypeParams {
		c.tparams[tv.Name] = tv
	}
	c.retDeclared = nil
	c.retTypes = nil
	c.assignLog = nil
	c.inLoop = 0
	c.loopBreak = nil

	for _, stmt := range s.Body.Statements {
		switch b := stmt.(type) {
		case *ast.DefStatement:
			c.checkDefBody(b)
		case *ast.IncludeStatement:
			_ = b // resolved in the declarations pass
		default:
			c.checkStatement(stmt)
		}
	}
	c.restore(saved)
}

func (c *checker) checkModuleBody(s *ast.ModuleDeclaration) {
	info, ok := c.reg.Modules[s.Name.Name]
	if !ok || info.Node != ast.Node(s) {
		if !c.reg.TypeName(s.Name.Name) {
			c.addError(diagnostics.ErrT001, s.Token, "module declarations must appear at the top level")
		}
		return
	}
	if s.Body == nil {
		return
	}

	saved := c.save()
	c.class = nil
	c.module = info
	c.inDef = false
	c.env = symbols.NewEnclosedEnvironment(nil, symbols.ScopeClass)
	c.tparams = make(map[string]typesystem.TVar)
	c.retDeclared = nil
	c.retTypes = nil
	c.assignLog = nil
	c.inLoop = 0
	c.loopBreak = nil

	for _, stmt := range s.Body.Statements {
		if ds, ok := stmt.(*ast.DefStatement); ok {
			c.checkDefBody(ds)
			continue
		}
		c.checkStatement(stmt)
	}
	c.restore(saved)
}

// checkDefBody checks one method or function body in a fresh scope.
// Bodies never close over surrounding locals; the parameters are the
// only starting bindings. It is safe to call out of source order --
// call sites demand it for unannotated callees -- and runs at most
// once per def.
func (c *checker) checkDefBody(def *ast.DefStatement) {
	site, ok := c.defSites[def]
	if !ok || c.checked[def] {
		return
	}
	c.checked[def] = true
	sig := site.sig

	saved := c.save()
	c.class = site.class
	c.module = site.module
	c.inDef = true
	c.env = symbols.NewEnclosedEnvironment(nil, symbols.ScopeMethod)
	c.tparams = make(map[string]typesystem.TVar)
	if site.class != nil {
		for _, tv := range site.class.TypeParams {
			c.tparams[tv.Name] = tv
		}
	}
	for _, tv := range sig.TypeParams {
		c.tparams[tv.Name] = tv
	}
	for i, p := range def.Params {
		if i >= len(sig.Params) {
			break
		}
		if err := c.env.Declare(p.Name.Value, sig.Params[i], p); err != nil {
			continue // duplicate parameter, already reported
		}
		c.setType(p.Name, sig.Params[i])
	}
	c.retDeclared = sig.Return
	c.retTypes = nil
	c.assignLog = nil
	c.inLoop = 0
	c.loopBreak = nil

	if sig.Return == nil {
		c.inferring[def] = true
	}

	tail := typesystem.Type(typesystem.NilType)
	terminated := false
	if def.Body != nil {
		tail, terminated = c.checkBlock(def.Body)
	}

	if sig.Return == nil {
		parts := append([]typesystem.Type{}, c.retTypes...)
		if !terminated {
			parts = append(parts, tail)
		}
		if len(parts) == 0 {
			sig.Return = typesystem.VoidType
		} else {
			sig.Return = typesystem.NormalizeUnion(parts)
		}
		delete(c.inferring, def)
	} else if !terminated && !isVoid(sig.Return) && !sig.Abstract {
		c.checkTailReturn(def, tail, sig.Return)
	}
	c.setType(def, sig.Proc())
	c.restore(saved)
}

// checkTailReturn validates the implicit return: the value of the last
// statement on a falling-through path must fit the declared type.
func (c *checker) checkTailReturn(def *ast.DefStatement, tail, want typesystem.Type) {
	if isErrorType(tail) || typesystem.IsSubtype(tail, want, c.reg) {
		return
	}
	if last := lastExprOf(def.Body); last != nil {
		if lit := literalTypeOf(last); lit != nil && typesystem.IsSubtype(lit, want, c.reg) {
			c.setType(last, lit)
			return
		}
	}
	c.addError(diagnostics.ErrT001, tailToken(def),
		"cannot return %s from a method declared %s", tail, want)
}

func lastExprOf(block *ast.BlockStatement) ast.Expression {
	if block == nil || len(block.Statements) == 0 {
		return nil
	}
	if es, ok := block.Statements[len(block.Statements)-1].(*ast.ExpressionStatement); ok {
		return es.Expression
	}
	return nil
}

func tailToken(def *ast.DefStatement) token.Token {
	if def.Body != nil && len(def.Body.Statements) > 0 {
		return def.Body.Statements[len(def.Body.Statements)-1].GetToken()
	}
	return def.Token
}

// --- Assignment ---

func (c *checker) checkAssign(s *ast.AssignStatement) typesystem.Type {
	switch target := s.Target.(type) {
	case *ast.Identifier:
		return c.assignLocal(s, target)
	case *ast.IVarExpression:
		return c.assignIVar(s, target)
	case *ast.CVarExpression:
		return c.assignCVar(s, target)
	case *ast.IndexExpression:
		return c.assignIndex(s, target)
	}
	c.addError(diagnostics.ErrT001, s.Token, "cannot assign to this expression")
	return typesystem.ErrorType
}

// assignLocal implements the three assignment forms on locals: an
// annotated declaration, a re-assignment of an existing binding, and a
// declaration-by-first-use. Re-assignment keeps the declared type and
// narrows the binding to the assigned value's type, so the checker
// tracks the value without forgetting what the variable may hold.
func (c *checker) assignLocal(s *ast.AssignStatement, target *ast.Identifier) typesystem.Type {
	if s.TypeAnnotation != nil {
		declared := c.buildType(s.TypeAnnotation)
		got := c.checkExpr(s.Value, declared)
		if err := c.env.Declare(target.Value, declared, s); err != nil {
			c.addError(diagnostics.ErrT003, target.Token,
				"'%s' is already declared in this scope", target.Value)
			if b, ok := c.env.Lookup(target.Value); ok {
				c.env.Widen(target.Value)
				c.recordBinding(b, b.Declared)
			}
		} else if b, ok := c.env.Lookup(target.Value); ok {
			c.recordBinding(b, declared)
		}
		c.setType(target, declared)
		return got
	}

	if b, ok := c.env.Lookup(target.Value); ok {
		got := c.checkExpr(s.Value, b.Declared)
		c.env.Widen(target.Value)
		if !isErrorType(got) && got.String() != b.Declared.String() {
			c.env.Narrow(target.Value, got)
		}
		c.recordBinding(b, b.Effective())
		c.setType(target, b.Effective())
		return got
	}

	got := c.synthesize(s.Value)
	if isVoid(got) {
		c.addError(diagnostics.ErrT001, s.Token,
			"cannot assign a Void value to '%s'", target.Value)
		got = typesystem.ErrorType
	}
	if err := c.env.Declare(target.Value, got, s); err == nil {
		if b, ok := c.env.Lookup(target.Value); ok {
			c.recordBinding(b, got)
		}
	}
	c.setType(target, got)
	return got
}

func (c *checker) assignIVar(s *ast.AssignStatement, target *ast.IVarExpression) typesystem.Type {
	if c.class == nil {
		c.addError(diagnostics.ErrT002, target.Token,
			"instance variable '@%s' outside of a class", target.Name)
		c.synthesize(s.Value)
		return typesystem.ErrorType
	}
	sites := c.ivarSites[c.class]

	if s.TypeAnnotation != nil {
		declared := c.buildType(s.TypeAnnotation)
		if sites != nil && sites[target.Name] != nil && sites[target.Name] != ast.Node(s) {
			c.addError(diagnostics.ErrT003, target.Token,
				"instance variable '@%s' is already declared", target.Name)
		}
		want, ok := c.class.IVars[target.Name]
		if !ok {
			want = declared
			c.class.IVars[target.Name] = declared
		}
		got := c.checkExpr(s.Value, want)
		c.setType(target, want)
		return got
	}

	if declared, ok := c.class.IVars[target.Name]; ok {
		got := c.checkExpr(s.Value, declared)
		c.setType(target, declared)
		return got
	}

	// first assignment declares the member with the inferred type
	got := c.synthesize(s.Value)
	if isVoid(got) {
		c.addError(diagnostics.ErrT001, s.Token,
			"cannot assign a Void value to '@%s'", target.Name)
		got = typesystem.ErrorType
	}
	c.class.IVars[target.Name] = got
	c.setType(target, got)
	return got
}

func (c *checker) assignCVar(s *ast.AssignStatement, target *ast.CVarExpression) typesystem.Type {
	if c.class == nil {
		c.addError(diagnostics.ErrT002, target.Token,
			"class variable '@@%s' outside of a class", target.Name)
		c.synthesize(s.Value)
		return typesystem.ErrorType
	}
	cv := c.class.ClassVars[target.Name]
	if cv == nil {
		cv = &symbols.ClassVar{Name: target.Name}
		c.class.ClassVars[target.Name] = cv
		cv.Mutations = append(cv.Mutations, s)
	}
	sites := c.cvarSites[c.class]

	if s.TypeAnnotation != nil {
		declared := c.buildType(s.TypeAnnotation)
		if sites != nil && sites[target.Name] != nil && sites[target.Name] != ast.Node(s) {
			c.addError(diagnostics.ErrT003, target.Token,
				"class variable '@@%s' is already declared", target.Name)
		}
		if cv.Type == nil {
			cv.Type = declared
		}
		got := c.checkExpr(s.Value, cv.Type)
		c.setType(target, cv.Type)
		return got
	}

	if cv.Type != nil {
		got := c.checkExpr(s.Value, cv.Type)
		c.setType(target, cv.Type)
		return got
	}

	got := c.synthesize(s.Value)
	if isVoid(got) {
		c.addError(diagnostics.ErrT001, s.Token,
			"cannot assign a Void value to '@@%s'", target.Name)
		got = typesystem.ErrorType
	}
	cv.Type = got
	c.setType(target, got)
	return got
}

// assignIndex dispatches arr[i] = v through the receiver's []= member,
// so element types are enforced by the same solver as ordinary calls.
func (c *checker) assignIndex(s *ast.AssignStatement, target *ast.IndexExpression) typesystem.Type {
	recv := c.synthesize(target.Receiver)
	idx := c.synthesize(target.Index)
	got := c.synthesize(s.Value)
	if s.TypeAnnotation != nil {
		c.addError(diagnostics.ErrT001, s.Token, "cannot annotate an index assignment")
	}
	t := c.invoke(s.Token, recv, "[]=",
		[]ast.Expression{target.Index, s.Value},
		[]typesystem.Type{idx, got}, nil, nil)
	c.setType(target, t)
	return got
}

// --- Return and raise ---

func (c *checker) checkReturn(s *ast.ReturnStatement) (typesystem.Type, bool) {
	if !c.inDef {
		c.addError(diagnostics.ErrT001, s.Token, "return outside of a method")
	}
	if s.Condition != nil {
		c.synthesize(s.Condition)
		snap := c.env.SnapshotNarrowing()
		c.narrowCond(s.Condition, !s.Unless)
		c.returnValue(s)
		snap.Restore()
		// the remainder of the block only runs when the modifier did
		// not fire, so it keeps the opposite facts
		c.narrowCond(s.Condition, s.Unless)
		return typesystem.NilType, false
	}
	c.returnValue(s)
	return typesystem.VoidType, true
}

func (c *checker) returnValue(s *ast.ReturnStatement) {
	var got typesystem.Type = typesystem.NilType
	if s.Value != nil {
		if c.retDeclared != nil && !isVoid(c.retDeclared) {
			got = c.checkExprMsg(s.Value, c.retDeclared,
				"cannot return %s from a method declared %s")
		} else {
			got = c.synthesize(s.Value)
		}
	} else if c.retDeclared != nil && !isVoid(c.retDeclared) &&
		!typesystem.IsSubtype(typesystem.NilType, c.retDeclared, c.reg) {
		c.addError(diagnostics.ErrT001, s.Token,
			"cannot return without a value from a method declared %s", c.retDeclared)
	}
	if c.retDeclared == nil {
		c.retTypes = append(c.retTypes, got)
	}
}

func (c *checker) checkRaise(s *ast.RaiseStatement) (typesystem.Type, bool) {
	if s.Condition != nil {
		c.synthesize(s.Condition)
		snap := c.env.SnapshotNarrowing()
		c.narrowCond(s.Condition, !s.Unless)
		c.raiseValue(s)
		snap.Restore()
		c.narrowCond(s.Condition, s.Unless)
		return typesystem.NilType, false
	}
	c.raiseValue(s)
	return typesystem.VoidType, true
}

// raiseValue accepts a String (wrapped in a RuntimeError at runtime),
// an error instance, or a bare error class name.
func (c *checker) raiseValue(s *ast.RaiseStatement) {
	if s.Value == nil {
		return
	}
	if ref, ok := s.Value.(*ast.ConstantRef); ok {
		if _, known := c.reg.Classes[ref.Name]; known {
			t := typesystem.TClass{Name: ref.Name}
			if !typesystem.IsSubtype(t, typesystem.TClass{Name: "StandardError"}, c.reg) {
				c.addError(diagnostics.ErrT001, ref.Token,
					"cannot raise '%s'; it is not an error class", ref.Name)
			}
			c.setType(ref, t)
			return
		}
		c.addError(diagnostics.ErrT002, ref.Token, "unknown class '%s'", ref.Name)
		return
	}
	got := c.synthesize(s.Value)
	if isErrorType(got) || c.isRaisable(got) {
		return
	}
	c.addError(diagnostics.ErrT001, s.Value.GetToken(),
		"cannot raise %s; raise a String or an error instance", got)
}

func (c *checker) isRaisable(t typesystem.Type) bool {
	switch v := t.(type) {
	case typesystem.TCon:
		return v.Name == "String"
	case typesystem.TLit:
		return v.Base == "String"
	case typesystem.TClass:
		return typesystem.IsSubtype(v, typesystem.TClass{Name: "StandardError"}, c.reg)
	case typesystem.TUnion:
		for _, m := range v.Types {
			if !c.isRaisable(m) {
				return false
			}
		}
		return true
	}
	return false
}

// --- Expressions ---

// synthesize computes the type of an expression bottom-up and records
// it in the annotated-AST map.
func (c *checker) synthesize(expr ast.Expression) typesystem.Type {
	if expr == nil {
		return typesystem.ErrorType
	}
	t := c.synthesizeExpr(expr)
	c.setType(expr, t)
	return t
}

// checkExpr checks an expression against an expected type. The
// expression is synthesized first; when that fails the subtype test, a
// literal is retried at its singleton type and an empty container
// literal adopts the expectation, which is what makes
// `s: "on" | "off" = "on"` and `xs: Array<Integer> = []` work.
func (c *checker) checkExpr(e ast.Expression, want typesystem.Type) typesystem.Type {
	return c.checkExprMsg(e, want, "cannot use %s where %s is expected")
}

func (c *checker) checkExprMsg(e ast.Expression, want typesystem.Type, format string) typesystem.Type {
	if want == nil {
		return c.synthesize(e)
	}
	got := c.synthesize(e)
	if isErrorType(got) || isErrorType(want) {
		return got
	}
	if typesystem.IsSubtype(got, want, c.reg) {
		return got
	}
	if lit := literalTypeOf(e); lit != nil && typesystem.IsSubtype(lit, want, c.reg) {
		c.setType(e, lit)
		return lit
	}
	if adopted := emptyLiteralAs(e, want, c.reg); adopted != nil {
		c.setType(e, adopted)
		return adopted
	}
	c.addError(diagnostics.ErrT001, e.GetToken(), format, got, want)
	return typesystem.ErrorType
}

// literalTypeOf gives the singleton type of a literal expression, nil
// for anything else.
func literalTypeOf(e ast.Expression) typesystem.Type {
	switch n := e.(type) {
	case *ast.IntegerLiteral:
		return typesystem.TLit{Value: n.Value, Base: "Integer"}
	case *ast.StringLiteral:
		return typesystem.TLit{Value: n.Value, Base: "String"}
	case *ast.SymbolLiteral:
		return typesystem.TLit{Value: n.Value, Base: "Symbol"}
	case *ast.BooleanLiteral:
		return typesystem.TLit{Value: n.Value, Base: "Bool"}
	}
	return nil
}

// emptyLiteralAs lets an empty [] or {} adopt a container expectation,
// including one member of an expected union.
func emptyLiteralAs(e ast.Expression, want typesystem.Type, r typesystem.Resolver) typesystem.Type {
	kind := ""
	switch n := e.(type) {
	case *ast.ArrayLiteral:
		if len(n.Elements) == 0 {
			kind = "Array"
		}
	case *ast.HashLiteral:
		if len(n.Pairs) == 0 {
			kind = "Hash"
		}
	}
	if kind == "" {
		return nil
	}
	for _, alt := range typesystem.Alternatives(want) {
		if app, ok := alt.(typesystem.TApp); ok && app.Name == kind {
			return app
		}
	}
	return nil
}

func (c *checker) synthesizeExpr(expr ast.Expression) typesystem.Type {
	switch n := expr.(type) {
	case *ast.IntegerLiteral:
		return typesystem.IntegerType
	case *ast.FloatLiteral:
		return typesystem.FloatType
	case *ast.StringLiteral:
		return typesystem.StringType
	case *ast.SymbolLiteral:
		return typesystem.SymbolType
	case *ast.BooleanLiteral:
		return typesystem.BoolType
	case *ast.NilLiteral:
		return typesystem.NilType

	case *ast.Identifier:
		return c.synthesizeIdentifier(n)
	case *ast.IVarExpression:
		return c.synthesizeIVar(n)
	case *ast.CVarExpression:
		return c.synthesizeCVar(n)
	case *ast.ConstantRef:
		return c.synthesizeConstantRef(n)

	case *ast.ArrayLiteral:
		return c.synthesizeArray(n)
	case *ast.HashLiteral:
		return c.synthesizeHash(n)
	case *ast.RangeLiteral:
		return c.synthesizeRange(n)

	case *ast.PrefixExpression:
		return c.synthesizePrefix(n)
	case *ast.InfixExpression:
		return c.synthesizeInfix(n)
	case *ast.IndexExpression:
		return c.synthesizeIndex(n)

	case *ast.MethodCall:
		return c.checkCall(n)

	case *ast.IfExpression:
		t, _ := c.checkIf(n)
		return t
	case *ast.CaseExpression:
		t, _ := c.checkCase(n)
		return t

	case *ast.BlockLiteral:
		c.addError(diagnostics.ErrT001, n.Token, "a block literal can only follow a method call")
		return typesystem.ErrorType
	}
	return typesystem.ErrorType
}

func (c *checker) synthesizeIdentifier(n *ast.Identifier) typesystem.Type {
	if t, ok := c.env.Resolve(n.Value); ok {
		return t
	}
	if t, ok := c.bareName(n); ok {
		return t
	}
	c.addError(diagnostics.ErrT002, n.Token, "undefined identifier '%s'", n.Value)
	return typesystem.ErrorType
}

// bareName resolves an identifier that is not a local: a zero-argument
// call on the enclosing class or module, or a top-level def.
func (c *checker) bareName(n *ast.Identifier) (typesystem.Type, bool) {
	if self := c.selfType(); self != nil {
		if sig, recvSub, ok := c.reg.Method(self, n.Value); ok {
			return c.applySig(n.Token, sig, recvSub, nil, nil, nil, nil), true
		}
	}
	if c.module != nil {
		if sig, ok := c.module.Methods[n.Value]; ok {
			return c.applySig(n.Token, sig, typesystem.Subst{}, nil, nil, nil, nil), true
		}
	}
	if sig, ok := c.globals[n.Value]; ok {
		return c.applySig(n.Token, sig, typesystem.Subst{}, nil, nil, nil, nil), true
	}
	return nil, false
}

func (c *checker) synthesizeIVar(n *ast.IVarExpression) typesystem.Type {
	if c.class == nil {
		c.addError(diagnostics.ErrT002, n.Token,
			"instance variable '@%s' outside of a class", n.Name)
		return typesystem.ErrorType
	}
	if t, ok := c.class.IVars[n.Name]; ok {
		return t
	}
	c.addError(diagnostics.ErrT002, n.Token, "undeclared instance variable '@%s'", n.Name)
	return typesystem.ErrorType
}

func (c *checker) synthesizeCVar(n *ast.CVarExpression) typesystem.Type {
	if c.class == nil {
		c.addError(diagnostics.ErrT002, n.Token,
			"class variable '@@%s' outside of a class", n.Name)
		return typesystem.ErrorType
	}
	if cv, ok := c.class.ClassVars[n.Name]; ok && cv.Type != nil {
		return cv.Type
	}
	c.addError(diagnostics.ErrT002, n.Token, "undeclared class variable '@@%s'", n.Name)
	return typesystem.ErrorType
}

func (c *checker) synthesizeConstantRef(n *ast.ConstantRef) typesystem.Type {
	if _, ok := c.reg.Classes[n.Name]; ok {
		c.addError(diagnostics.ErrT001, n.Token,
			"class '%s' cannot be used as a value; call '%s.new' to create an instance", n.Name, n.Name)
		return typesystem.ErrorType
	}
	if _, ok := c.reg.Interfaces[n.Name]; ok {
		c.addError(diagnostics.ErrT001, n.Token, "interface '%s' cannot be used as a value", n.Name)
		return typesystem.ErrorType
	}
	if _, ok := c.reg.Modules[n.Name]; ok {
		c.addError(diagnostics.ErrT001, n.Token, "module '%s' cannot be used as a value", n.Name)
		return typesystem.ErrorType
	}
	if _, ok := c.reg.Builtin(n.Name); ok {
		c.addError(diagnostics.ErrT001, n.Token, "type '%s' cannot be used as a value", n.Name)
		return typesystem.ErrorType
	}
	c.addError(diagnostics.ErrT002, n.Token, "unknown constant '%s'", n.Name)
	return typesystem.ErrorType
}

func (c *checker) synthesizeArray(n *ast.ArrayLiteral) typesystem.Type {
	if len(n.Elements) == 0 {
		// nothing to learn from; an annotated context replaces the
		// poison element via checkExpr
		return typesystem.TApp{Name: "Array", Args: []typesystem.Type{typesystem.ErrorType}}
	}
	elems := make([]typesystem.Type, 0, len(n.Elements))
	for _, e := range n.Elements {
		elems = append(elems, c.synthesize(e))
	}
	return typesystem.TApp{Name: "Array", Args: []typesystem.Type{typesystem.NormalizeUnion(elems)}}
}

func (c *checker) synthesizeHash(n *ast.HashLiteral) typesystem.Type {
	if len(n.Pairs) == 0 {
		return typesystem.TApp{Name: "Hash", Args: []typesystem.Type{typesystem.ErrorType, typesystem.ErrorType}}
	}
	keys := make([]typesystem.Type, 0, len(n.Pairs))
	vals := make([]typesystem.Type, 0, len(n.Pairs))
	for _, p := range n.Pairs {
		keys = append(keys, c.synthesize(p.Key))
		vals = append(vals, c.synthesize(p.Value))
	}
	return typesystem.TApp{Name: "Hash", Args: []typesystem.Type{
		typesystem.NormalizeUnion(keys),
		typesystem.NormalizeUnion(vals),
	}}
}

func (c *checker) synthesizeRange(n *ast.RangeLiteral) typesystem.Type {
	low := c.synthesize(n.Low)
	high := c.synthesize(n.High)
	if isErrorType(low) || isErrorType(high) {
		return typesystem.ErrorType
	}
	lk, hk := baseName(low), baseName(high)
	if lk == "" || lk != hk || (lk != "Integer" && lk != "Float" && lk != "String") {
		c.addError(diagnostics.ErrT001, n.Token,
			"range endpoints must share a numeric or String type, got %s and %s", low, high)
		return typesystem.ErrorType
	}
	return typesystem.TApp{Name: "Range", Args: []typesystem.Type{typesystem.TCon{Name: lk}}}
}

// baseName reduces a type to its primitive name for operator checks:
// literals report their base, everything non-primitive reports "".
func baseName(t typesystem.Type) string {
	switch v := t.(type) {
	case typesystem.TCon:
		return v.Name
	case typesystem.TLit:
		return v.Base
	}
	return ""
}

func (c *checker) synthesizePrefix(n *ast.PrefixExpression) typesystem.Type {
	right := c.synthesize(n.Right)
	switch n.Operator {
	case "!":
		return typesystem.BoolType
	case "-":
		if isErrorType(right) {
			return typesystem.ErrorType
		}
		switch baseName(right) {
		case "Integer":
			return typesystem.IntegerType
		case "Float":
			return typesystem.FloatType
		}
		c.addError(diagnostics.ErrT001, n.Token,
			"unary '-' needs a numeric operand, got %s", right)
		return typesystem.ErrorType
	}
	c.addError(diagnostics.ErrT001, n.Token, "unknown prefix operator '%s'", n.Operator)
	return typesystem.ErrorType
}

func (c *checker) synthesizeInfix(n *ast.InfixExpression) typesystem.Type {
	left := c.synthesize(n.Left)

	// the right operand of a short-circuit operator only evaluates when
	// the left already decided, so it is typed under the left's facts
	switch n.Operator {
	case "&&":
		snap := c.env.SnapshotNarrowing()
		c.narrowCond(n.Left, true)
		right := c.synthesize(n.Right)
		snap.Restore()
		if baseName(left) == "Bool" && baseName(right) == "Bool" {
			return typesystem.BoolType
		}
		return typesystem.NormalizeUnion([]typesystem.Type{left, right})

	case "||":
		snap := c.env.SnapshotNarrowing()
		c.narrowCond(n.Left, false)
		right := c.synthesize(n.Right)
		snap.Restore()
		if baseName(left) == "Bool" && baseName(right) == "Bool" {
			return typesystem.BoolType
		}
		// the left value only flows through when it is not nil
		return typesystem.NormalizeUnion([]typesystem.Type{
			typesystem.Subtract(left, typesystem.NilType, c.reg),
			right,
		})
	}

	right := c.synthesize(n.Right)
	if n.Operator == "==" || n.Operator == "!=" {
		return typesystem.BoolType
	}
	if isErrorType(left) || isErrorType(right) {
		return typesystem.ErrorType
	}
	lk, rk := baseName(left), baseName(right)

	switch n.Operator {
	case "+", "-", "*", "/", "%", "**":
		if lk == "Integer" && rk == "Integer" {
			return typesystem.IntegerType
		}
		if (lk == "Integer" || lk == "Float") && (rk == "Integer" || rk == "Float") {
			return typesystem.FloatType
		}
		if n.Operator == "+" {
			if lk == "String" && rk == "String" {
				return typesystem.StringType
			}
			if joined := addArrays(left, right); joined != nil {
				return joined
			}
		}

	case "<", ">", "<=", ">=":
		if (lk == "Integer" || lk == "Float") && (rk == "Integer" || rk == "Float") {
			return typesystem.BoolType
		}
		if lk == "String" && rk == "String" {
			return typesystem.BoolType
		}
	}

	c.addError(diagnostics.ErrT001, n.Token,
		"operator '%s' is not defined for %s and %s", n.Operator, left, right)
	return typesystem.ErrorType
}

// addArrays concatenates two array types, joining their element types.
func addArrays(left, right typesystem.Type) typesystem.Type {
	la, ok1 := left.(typesystem.TApp)
	ra, ok2 := right.(typesystem.TApp)
	if !ok1 || !ok2 || la.Name != "Array" || ra.Name != "Array" {
		return nil
	}
	if len(la.Args) != 1 || len(ra.Args) != 1 {
		return nil
	}
	elem := typesystem.NormalizeUnion([]typesystem.Type{la.Args[0], ra.Args[0]})
	return typesystem.TApp{Name: "Array", Args: []typesystem.Type{elem}}
}

func (c *checker) synthesizeIndex(n *ast.IndexExpression) typesystem.Type {
	recv := c.synthesize(n.Receiver)
	idx := c.synthesize(n.Index)
	return c.invoke(n.Token, recv, "[]",
		[]ast.Expression{n.Index}, []typesystem.Type{idx}, nil, nil)
}
