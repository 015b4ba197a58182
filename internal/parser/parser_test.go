package parser_test

import (
	"testing"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/lexer"
	"github.com/trubylang/truby/internal/parser"
	"github.com/trubylang/truby/internal/pipeline"
)

// parse is a test helper: lexes+parses input and fails on errors.
func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	ctx := &pipeline.PipelineContext{SourceCode: input}
	lp := &lexer.LexerProcessor{}
	ctx = lp.Process(ctx)
	pp := &parser.ParserProcessor{}
	ctx = pp.Process(ctx)
	if len(ctx.Errors) > 0 {
		for _, e := range ctx.Errors {
			t.Errorf("parse error: %s", e)
		}
		t.FailNow()
	}
	return ctx.AstRoot.(*ast.Program)
}

// stmtExpr extracts the expression from the nth ExpressionStatement.
func stmtExpr(t *testing.T, prog *ast.Program, idx int) ast.Expression {
	t.Helper()
	if idx >= len(prog.Statements) {
		t.Fatalf("expected at least %d statements, got %d", idx+1, len(prog.Statements))
	}
	es, ok := prog.Statements[idx].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("statement %d: expected ExpressionStatement, got %T", idx, prog.Statements[idx])
	}
	return es.Expression
}

// ---------- assignment ----------

func TestAssign_Simple(t *testing.T) {
	prog := parse(t, "x = 5")
	assign, ok := prog.Statements[0].(*ast.AssignStatement)
	if !ok {
		t.Fatalf("expected AssignStatement, got %T", prog.Statements[0])
	}
	target, ok := assign.Target.(*ast.Identifier)
	if !ok || target.Value != "x" {
		t.Fatalf("expected identifier target x, got %v", assign.Target)
	}
	if assign.TypeAnnotation != nil {
		t.Fatalf("expected no annotation, got %v", assign.TypeAnnotation)
	}
	lit, ok := assign.Value.(*ast.IntegerLiteral)
	if !ok || lit.Value != 5 {
		t.Fatalf("expected integer 5, got %v", assign.Value)
	}
}

func TestAssign_Annotated(t *testing.T) {
	prog := parse(t, "count: Integer = 0")
	assign := prog.Statements[0].(*ast.AssignStatement)
	nt, ok := assign.TypeAnnotation.(*ast.NamedType)
	if !ok || nt.Name != "Integer" {
		t.Fatalf("expected Integer annotation, got %v", assign.TypeAnnotation)
	}
}

func TestAssign_InstanceVariable(t *testing.T) {
	prog := parse(t, `@name: String = "anna"`)
	assign := prog.Statements[0].(*ast.AssignStatement)
	iv, ok := assign.Target.(*ast.IVarExpression)
	if !ok || iv.Name != "name" {
		t.Fatalf("expected @name target, got %v", assign.Target)
	}
	nt := assign.TypeAnnotation.(*ast.NamedType)
	if nt.Name != "String" {
		t.Fatalf("expected String annotation, got %s", nt.Name)
	}
}

func TestAssign_ClassVariable(t *testing.T) {
	prog := parse(t, "@@instances: Integer = 0")
	assign := prog.Statements[0].(*ast.AssignStatement)
	cv, ok := assign.Target.(*ast.CVarExpression)
	if !ok || cv.Name != "instances" {
		t.Fatalf("expected @@instances target, got %v", assign.Target)
	}
}

func TestAssign_IndexTarget(t *testing.T) {
	prog := parse(t, "counts[key] = 1")
	assign := prog.Statements[0].(*ast.AssignStatement)
	idx, ok := assign.Target.(*ast.IndexExpression)
	if !ok {
		t.Fatalf("expected IndexExpression target, got %T", assign.Target)
	}
	recv := idx.Receiver.(*ast.Identifier)
	if recv.Value != "counts" {
		t.Fatalf("expected counts receiver, got %s", recv.Value)
	}
}

func TestAssign_ValueOnNextLine(t *testing.T) {
	prog := parse(t, "x =\n    5 + 3")
	assign := prog.Statements[0].(*ast.AssignStatement)
	infix, ok := assign.Value.(*ast.InfixExpression)
	if !ok || infix.Operator != "+" {
		t.Fatalf("expected + infix value, got %v", assign.Value)
	}
}

func TestAssign_ContinuationAfterOperator(t *testing.T) {
	prog := parse(t, "x = 1 +\n    2")
	assign := prog.Statements[0].(*ast.AssignStatement)
	infix := assign.Value.(*ast.InfixExpression)
	if infix.Operator != "+" {
		t.Fatalf("expected +, got %s", infix.Operator)
	}
	right := infix.Right.(*ast.IntegerLiteral)
	if right.Value != 2 {
		t.Fatalf("expected 2 on the right, got %d", right.Value)
	}
}

// ---------- def ----------

func TestDef_ParamsAndReturn(t *testing.T) {
	prog := parse(t, "def add(a: Integer, b: Integer): Integer\n  return a + b\nend")
	def, ok := prog.Statements[0].(*ast.DefStatement)
	if !ok {
		t.Fatalf("expected DefStatement, got %T", prog.Statements[0])
	}
	if def.Name.Value != "add" {
		t.Fatalf("expected name add, got %s", def.Name.Value)
	}
	if len(def.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(def.Params))
	}
	p0 := def.Params[0]
	if p0.Name.Value != "a" {
		t.Fatalf("expected param a, got %s", p0.Name.Value)
	}
	if nt := p0.Type.(*ast.NamedType); nt.Name != "Integer" {
		t.Fatalf("expected Integer param type, got %s", nt.Name)
	}
	if nt := def.ReturnType.(*ast.NamedType); nt.Name != "Integer" {
		t.Fatalf("expected Integer return type, got %v", def.ReturnType)
	}
	ret, ok := def.Body.Statements[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("expected ReturnStatement body, got %T", def.Body.Statements[0])
	}
	if _, ok := ret.Value.(*ast.InfixExpression); !ok {
		t.Fatalf("expected infix return value, got %T", ret.Value)
	}
}

func TestDef_UnannotatedParams(t *testing.T) {
	prog := parse(t, "def first(xs)\n  xs\nend")
	def := prog.Statements[0].(*ast.DefStatement)
	if def.Params[0].Type != nil {
		t.Fatalf("expected unannotated param, got %v", def.Params[0].Type)
	}
	if def.ReturnType != nil {
		t.Fatalf("expected no return annotation, got %v", def.ReturnType)
	}
}

func TestDef_NoParams(t *testing.T) {
	prog := parse(t, "def reset(): Nil\nend")
	def := prog.Statements[0].(*ast.DefStatement)
	if len(def.Params) != 0 {
		t.Fatalf("expected 0 params, got %d", len(def.Params))
	}
	if len(def.Body.Statements) != 0 {
		t.Fatalf("expected empty body, got %d statements", len(def.Body.Statements))
	}
}

func TestDef_TypeParams(t *testing.T) {
	prog := parse(t, "def pair<K, V: Comparable>(k: K, v: V): Array<K>\nend")
	def := prog.Statements[0].(*ast.DefStatement)
	if len(def.TypeParams) != 2 {
		t.Fatalf("expected 2 type params, got %d", len(def.TypeParams))
	}
	if def.TypeParams[0].Name != "K" || def.TypeParams[0].Constraint != nil {
		t.Fatalf("expected unconstrained K, got %v", def.TypeParams[0])
	}
	c, ok := def.TypeParams[1].Constraint.(*ast.NamedType)
	if !ok || c.Name != "Comparable" {
		t.Fatalf("expected Comparable constraint on V, got %v", def.TypeParams[1].Constraint)
	}
	rt := def.ReturnType.(*ast.NamedType)
	if rt.Name != "Array" || len(rt.Args) != 1 {
		t.Fatalf("expected Array<K> return, got %v", def.ReturnType)
	}
}

func TestDef_MethodNameWithSuffix(t *testing.T) {
	prog := parse(t, "def empty?(): Bool\n  return true\nend")
	def := prog.Statements[0].(*ast.DefStatement)
	if def.Name.Value != "empty?" {
		t.Fatalf("expected name empty?, got %s", def.Name.Value)
	}
}

// ---------- return/raise ----------

func TestReturn_Bare(t *testing.T) {
	prog := parse(t, "def f(): Nil\n  return\nend")
	def := prog.Statements[0].(*ast.DefStatement)
	ret := def.Body.Statements[0].(*ast.ReturnStatement)
	if ret.Value != nil {
		t.Fatalf("expected bare return, got value %v", ret.Value)
	}
}

func TestReturn_GuardClause(t *testing.T) {
	prog := parse(t, "def f(x: String | Nil): String\n  return \"\" if x.nil?\n  return x\nend")
	def := prog.Statements[0].(*ast.DefStatement)
	ret := def.Body.Statements[0].(*ast.ReturnStatement)
	if ret.Condition == nil {
		t.Fatal("expected guard condition, got nil")
	}
	if ret.Unless {
		t.Fatal("expected if modifier, got unless")
	}
	cond, ok := ret.Condition.(*ast.MethodCall)
	if !ok || cond.Method.Value != "nil?" {
		t.Fatalf("expected x.nil? condition, got %v", ret.Condition)
	}
}

func TestReturn_UnlessModifier(t *testing.T) {
	prog := parse(t, "def f(ok: Bool): Integer\n  return 0 unless ok\n  return 1\nend")
	def := prog.Statements[0].(*ast.DefStatement)
	ret := def.Body.Statements[0].(*ast.ReturnStatement)
	if !ret.Unless {
		t.Fatal("expected unless modifier")
	}
}

func TestRaise_WithModifier(t *testing.T) {
	prog := parse(t, "def f(xs: Array<Integer>): Integer\n  raise \"empty\" if xs.empty?\n  return 1\nend")
	def := prog.Statements[0].(*ast.DefStatement)
	rs, ok := def.Body.Statements[0].(*ast.RaiseStatement)
	if !ok {
		t.Fatalf("expected RaiseStatement, got %T", def.Body.Statements[0])
	}
	if rs.Value == nil || rs.Condition == nil {
		t.Fatalf("expected raise value and condition, got %v / %v", rs.Value, rs.Condition)
	}
}

// ---------- class ----------

func TestClass_Empty(t *testing.T) {
	prog := parse(t, "class User\nend")
	cd, ok := prog.Statements[0].(*ast.ClassDeclaration)
	if !ok {
		t.Fatalf("expected ClassDeclaration, got %T", prog.Statements[0])
	}
	if cd.Name.Name != "User" {
		t.Fatalf("expected class User, got %s", cd.Name.Name)
	}
	if cd.SuperClass != nil || cd.TypeParams != nil || cd.Implements != nil {
		t.Fatal("expected a plain class")
	}
}

func TestClass_Generic(t *testing.T) {
	prog := parse(t, "class Stack<T>\n  def push(item: T): Nil\n  end\nend")
	cd := prog.Statements[0].(*ast.ClassDeclaration)
	if len(cd.TypeParams) != 1 || cd.TypeParams[0].Name != "T" {
		t.Fatalf("expected type param T, got %v", cd.TypeParams)
	}
	def := cd.Body.Statements[0].(*ast.DefStatement)
	pt := def.Params[0].Type.(*ast.NamedType)
	if pt.Name != "T" {
		t.Fatalf("expected param type T, got %s", pt.Name)
	}
}

func TestClass_Superclass(t *testing.T) {
	prog := parse(t, "class AdminUser < User\nend")
	cd := prog.Statements[0].(*ast.ClassDeclaration)
	if cd.SuperClass == nil || cd.SuperClass.Name != "User" {
		t.Fatalf("expected superclass User, got %v", cd.SuperClass)
	}
	if cd.TypeParams != nil {
		t.Fatalf("expected no type params, got %v", cd.TypeParams)
	}
}

func TestClass_Implements(t *testing.T) {
	prog := parse(t, "class Point implements Hashable, Describable\nend")
	cd := prog.Statements[0].(*ast.ClassDeclaration)
	if len(cd.Implements) != 2 {
		t.Fatalf("expected 2 interfaces, got %d", len(cd.Implements))
	}
	if cd.Implements[0].Name != "Hashable" || cd.Implements[1].Name != "Describable" {
		t.Fatalf("wrong interfaces: %v", cd.Implements)
	}
}

func TestClass_GenericWithSuperAndImplements(t *testing.T) {
	prog := parse(t, "class Box<T> < Container implements Stackable<T>\nend")
	cd := prog.Statements[0].(*ast.ClassDeclaration)
	if len(cd.TypeParams) != 1 {
		t.Fatalf("expected 1 type param, got %d", len(cd.TypeParams))
	}
	if cd.SuperClass == nil || cd.SuperClass.Name != "Container" {
		t.Fatalf("expected superclass Container, got %v", cd.SuperClass)
	}
	if len(cd.Implements) != 1 || len(cd.Implements[0].Args) != 1 {
		t.Fatalf("expected Stackable<T>, got %v", cd.Implements)
	}
}

func TestClass_ConstrainedTypeParam(t *testing.T) {
	prog := parse(t, "class Sorted<T: Comparable>\nend")
	cd := prog.Statements[0].(*ast.ClassDeclaration)
	c := cd.TypeParams[0].Constraint.(*ast.NamedType)
	if c.Name != "Comparable" {
		t.Fatalf("expected Comparable constraint, got %v", c)
	}
}

func TestClass_BodyWithStateAndInclude(t *testing.T) {
	input := `class Counter
  include Enumerable
  @count: Integer = 0

  def increment(): Nil
    @count = @count + 1
  end
end`
	prog := parse(t, input)
	cd := prog.Statements[0].(*ast.ClassDeclaration)
	if len(cd.Body.Statements) != 3 {
		t.Fatalf("expected 3 body statements, got %d", len(cd.Body.Statements))
	}
	inc, ok := cd.Body.Statements[0].(*ast.IncludeStatement)
	if !ok || inc.Module.Name != "Enumerable" {
		t.Fatalf("expected include Enumerable, got %v", cd.Body.Statements[0])
	}
	decl := cd.Body.Statements[1].(*ast.AssignStatement)
	if _, ok := decl.Target.(*ast.IVarExpression); !ok {
		t.Fatalf("expected ivar declaration, got %T", decl.Target)
	}
}

// ---------- interface ----------

func TestInterface_Signatures(t *testing.T) {
	input := `interface Comparable
  def compare(other: Comparable): Integer
  def equal?(other: Comparable): Bool
end`
	prog := parse(t, input)
	id, ok := prog.Statements[0].(*ast.InterfaceDeclaration)
	if !ok {
		t.Fatalf("expected InterfaceDeclaration, got %T", prog.Statements[0])
	}
	if len(id.Methods) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(id.Methods))
	}
	sig := id.Methods[0]
	if sig.Name.Value != "compare" {
		t.Fatalf("expected compare, got %s", sig.Name.Value)
	}
	if sig.Body != nil {
		t.Fatal("interface signatures must not carry bodies")
	}
	if nt := sig.ReturnType.(*ast.NamedType); nt.Name != "Integer" {
		t.Fatalf("expected Integer return, got %v", sig.ReturnType)
	}
}

func TestInterface_Generic(t *testing.T) {
	prog := parse(t, "interface Collection<T>\n  def add(item: T): Nil\nend")
	id := prog.Statements[0].(*ast.InterfaceDeclaration)
	if len(id.TypeParams) != 1 || id.TypeParams[0].Name != "T" {
		t.Fatalf("expected type param T, got %v", id.TypeParams)
	}
}

// ---------- module ----------

func TestModule_WithMethod(t *testing.T) {
	prog := parse(t, "module Greeting\n  def greet(): String\n    return \"hi\"\n  end\nend")
	md, ok := prog.Statements[0].(*ast.ModuleDeclaration)
	if !ok {
		t.Fatalf("expected ModuleDeclaration, got %T", prog.Statements[0])
	}
	if md.Name.Name != "Greeting" {
		t.Fatalf("expected module Greeting, got %s", md.Name.Name)
	}
	if _, ok := md.Body.Statements[0].(*ast.DefStatement); !ok {
		t.Fatalf("expected def in module body, got %T", md.Body.Statements[0])
	}
}

// ---------- while ----------

func TestWhile_Basic(t *testing.T) {
	prog := parse(t, "while n < 10\n  n = n + 1\nend")
	ws, ok := prog.Statements[0].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected WhileStatement, got %T", prog.Statements[0])
	}
	cond := ws.Condition.(*ast.InfixExpression)
	if cond.Operator != "<" {
		t.Fatalf("expected < condition, got %s", cond.Operator)
	}
	if len(ws.Body.Statements) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(ws.Body.Statements))
	}
}

func TestWhile_OptionalDo(t *testing.T) {
	prog := parse(t, "while true do\n  break\nend")
	ws := prog.Statements[0].(*ast.WhileStatement)
	if _, ok := ws.Body.Statements[0].(*ast.BreakStatement); !ok {
		t.Fatalf("expected break in body, got %T", ws.Body.Statements[0])
	}
}

func TestWhile_BreakAndNext(t *testing.T) {
	prog := parse(t, "while true\n  next\n  break\nend")
	ws := prog.Statements[0].(*ast.WhileStatement)
	if _, ok := ws.Body.Statements[0].(*ast.NextStatement); !ok {
		t.Fatalf("expected next, got %T", ws.Body.Statements[0])
	}
	if _, ok := ws.Body.Statements[1].(*ast.BreakStatement); !ok {
		t.Fatalf("expected break, got %T", ws.Body.Statements[1])
	}
}
