// Package prettyprinter renders a checked syntax tree back out as plain
// Ruby. Type annotations, interface declarations, generic parameter
// lists and implements clauses have no Ruby counterpart and are
// dropped; everything else keeps the shape the source had.
package prettyprinter

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/token"
)

// Operator precedence (higher = binds tighter). Mirrors the parser so
// that parentheses are reinserted only where the tree requires them.
var operatorPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3,
	"!=": 3,
	"<":  4,
	">":  4,
	"<=": 4,
	">=": 4,
	"+":  5,
	"-":  5,
	"*":  6,
	"/":  6,
	"%":  6,
	"**": 7,
}

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return 8 // default high precedence for unknown ops
}

// Right-associative operators
var rightAssoc = map[string]bool{
	"**": true,
}

type CodePrinter struct {
	buf    bytes.Buffer
	indent int
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

// Print renders a whole program as Ruby source.
func Print(program *ast.Program) string {
	p := NewCodePrinter()
	if program != nil {
		program.Accept(p)
	}
	return p.String()
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) writeln() {
	p.buf.WriteString("\n")
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("  ")
	}
}

// printExpr prints an expression, adding parentheses only if needed.
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int, isRight bool) {
	if expr == nil {
		p.write("<???>")
		return
	}
	infix, ok := expr.(*ast.InfixExpression)
	if !ok {
		expr.Accept(p)
		return
	}
	prec := getPrecedence(infix.Operator)
	needParens := prec < parentPrec
	// For same precedence, check associativity
	if prec == parentPrec {
		if isRight && !rightAssoc[infix.Operator] {
			needParens = true
		} else if !isRight && rightAssoc[infix.Operator] {
			needParens = true
		}
	}
	if needParens {
		p.write("(")
	}
	p.printExpr(infix.Left, prec, false)
	p.write(" " + infix.Operator + " ")
	p.printExpr(infix.Right, prec, true)
	if needParens {
		p.write(")")
	}
}

// printReceiver wraps operator expressions in parentheses: a method
// call binds tighter than any operator, so a tree with an operator
// receiver can only have come from parenthesized source.
func (p *CodePrinter) printReceiver(expr ast.Expression) {
	switch expr.(type) {
	case *ast.InfixExpression, *ast.PrefixExpression, *ast.RangeLiteral:
		p.write("(")
		expr.Accept(p)
		p.write(")")
	default:
		p.printExpr(expr, 0, false)
	}
}

// printStatements prints a statement list at the current indent,
// separating def/class/module declarations with blank lines.
func (p *CodePrinter) printStatements(stmts []ast.Statement) {
	first := true
	prevDecl := false
	for _, stmt := range stmts {
		if stmt == nil || isCheckerOnly(stmt) {
			continue
		}
		decl := isDeclForm(stmt)
		if !first && (decl || prevDecl) {
			p.writeln()
		}
		p.writeIndent()
		stmt.Accept(p)
		p.writeln()
		first = false
		prevDecl = decl
	}
}

// isCheckerOnly reports statements that exist only for the checker and
// vanish from the Ruby output.
func isCheckerOnly(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.InterfaceDeclaration)
	return ok
}

func isDeclForm(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.DefStatement, *ast.ClassDeclaration, *ast.ModuleDeclaration:
		return true
	}
	return false
}

func (p *CodePrinter) printBody(body *ast.BlockStatement) {
	p.indent++
	if body != nil {
		p.printStatements(body.Statements)
	}
	p.indent--
}

func (p *CodePrinter) printModifier(cond ast.Expression, unless bool) {
	if cond == nil {
		return
	}
	if unless {
		p.write(" unless ")
	} else {
		p.write(" if ")
	}
	p.printExpr(cond, 0, false)
}

func (p *CodePrinter) VisitProgram(n *ast.Program) {
	if n == nil {
		return
	}
	p.printStatements(n.Statements)
}

func (p *CodePrinter) VisitBlockStatement(n *ast.BlockStatement) {
	if n == nil {
		return
	}
	p.printStatements(n.Statements)
}

func (p *CodePrinter) VisitExpressionStatement(n *ast.ExpressionStatement) {
	if n == nil {
		return
	}
	p.printExpr(n.Expression, 0, false)
}

func (p *CodePrinter) VisitAssignStatement(n *ast.AssignStatement) {
	if n == nil {
		return
	}
	// The annotation, if any, is dropped: `x: Integer = 5` becomes `x = 5`.
	p.printExpr(n.Target, 0, false)
	p.write(" = ")
	p.printExpr(n.Value, 0, false)
}

func (p *CodePrinter) VisitDefStatement(n *ast.DefStatement) {
	if n == nil {
		return
	}
	p.write("def ")
	if n.Name != nil {
		p.write(n.Name.Value)
	} else {
		p.write("<???>")
	}
	if len(n.Params) > 0 {
		p.write("(")
		for i, param := range n.Params {
			if i > 0 {
				p.write(", ")
			}
			if param != nil && param.Name != nil {
				p.write(param.Name.Value)
			} else {
				p.write("<???>")
			}
		}
		p.write(")")
	}
	p.writeln()
	p.printBody(n.Body)
	p.writeIndent()
	p.write("end")
}

func (p *CodePrinter) VisitClassDeclaration(n *ast.ClassDeclaration) {
	if n == nil {
		return
	}
	p.write("class ")
	if n.Name != nil {
		p.write(n.Name.Name)
	} else {
		p.write("<???>")
	}
	if n.SuperClass != nil {
		p.write(" < ")
		p.write(n.SuperClass.Name)
	}
	p.writeln()
	p.printBody(n.Body)
	p.writeIndent()
	p.write("end")
}

// VisitInterfaceDeclaration emits nothing: interfaces exist only for
// the checker. printStatements skips them before indenting.
func (p *CodePrinter) VisitInterfaceDeclaration(n *ast.InterfaceDeclaration) {}

func (p *CodePrinter) VisitModuleDeclaration(n *ast.ModuleDeclaration) {
	if n == nil {
		return
	}
	p.write("module ")
	if n.Name != nil {
		p.write(n.Name.Name)
	} else {
		p.write("<???>")
	}
	p.writeln()
	p.printBody(n.Body)
	p.writeIndent()
	p.write("end")
}

func (p *CodePrinter) VisitIncludeStatement(n *ast.IncludeStatement) {
	if n == nil {
		return
	}
	p.write("include ")
	if n.Module != nil {
		p.write(n.Module.Name)
	} else {
		p.write("<???>")
	}
}

func (p *CodePrinter) VisitWhileStatement(n *ast.WhileStatement) {
	if n == nil {
		return
	}
	p.write("while ")
	p.printExpr(n.Condition, 0, false)
	p.writeln()
	p.printBody(n.Body)
	p.writeIndent()
	p.write("end")
}

func (p *CodePrinter) VisitReturnStatement(n *ast.ReturnStatement) {
	if n == nil {
		return
	}
	p.write("return")
	if n.Value != nil {
		p.write(" ")
		p.printExpr(n.Value, 0, false)
	}
	p.printModifier(n.Condition, n.Unless)
}

func (p *CodePrinter) VisitRaiseStatement(n *ast.RaiseStatement) {
	if n == nil {
		return
	}
	p.write("raise")
	if n.Value != nil {
		p.write(" ")
		p.printExpr(n.Value, 0, false)
	}
	p.printModifier(n.Condition, n.Unless)
}

func (p *CodePrinter) VisitBreakStatement(n *ast.BreakStatement) {
	p.write("break")
}

func (p *CodePrinter) VisitNextStatement(n *ast.NextStatement) {
	p.write("next")
}

func (p *CodePrinter) VisitIdentifier(n *ast.Identifier) {
	if n == nil {
		p.write("<???>")
		return
	}
	p.write(n.Value)
}

// VisitConstantRef prints the bare constant name; explicit type
// arguments like Stack<Integer>.new are erased.
func (p *CodePrinter) VisitConstantRef(n *ast.ConstantRef) {
	if n == nil {
		p.write("<???>")
		return
	}
	p.write(n.Name)
}

func (p *CodePrinter) VisitIVarExpression(n *ast.IVarExpression) {
	if n == nil {
		p.write("<???>")
		return
	}
	p.write("@" + n.Name)
}

func (p *CodePrinter) VisitCVarExpression(n *ast.CVarExpression) {
	if n == nil {
		p.write("<???>")
		return
	}
	p.write("@@" + n.Name)
}

func (p *CodePrinter) VisitIntegerLiteral(n *ast.IntegerLiteral) {
	p.write(strconv.FormatInt(n.Value, 10))
}

func (p *CodePrinter) VisitFloatLiteral(n *ast.FloatLiteral) {
	s := strconv.FormatFloat(n.Value, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0" // a bare integer form would change the literal's class
	}
	p.write(s)
}

func (p *CodePrinter) VisitStringLiteral(n *ast.StringLiteral) {
	p.write(strconv.Quote(n.Value))
}

func (p *CodePrinter) VisitSymbolLiteral(n *ast.SymbolLiteral) {
	p.write(":" + n.Value)
}

func (p *CodePrinter) VisitBooleanLiteral(n *ast.BooleanLiteral) {
	if n.Value {
		p.write("true")
	} else {
		p.write("false")
	}
}

func (p *CodePrinter) VisitNilLiteral(n *ast.NilLiteral) {
	p.write("nil")
}

func (p *CodePrinter) VisitArrayLiteral(n *ast.ArrayLiteral) {
	if n == nil {
		p.write("[]")
		return
	}
	p.write("[")
	for i, elem := range n.Elements {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(elem, 0, false)
	}
	p.write("]")
}

func (p *CodePrinter) VisitHashLiteral(n *ast.HashLiteral) {
	if n == nil || len(n.Pairs) == 0 {
		p.write("{}")
		return
	}
	p.write("{ ")
	for i, pair := range n.Pairs {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(pair.Key, 0, false)
		p.write(" => ")
		p.printExpr(pair.Value, 0, false)
	}
	p.write(" }")
}

func (p *CodePrinter) VisitRangeLiteral(n *ast.RangeLiteral) {
	if n == nil {
		p.write("<???>")
		return
	}
	p.printExpr(n.Low, 0, false)
	p.write("..")
	p.printExpr(n.High, 0, false)
}

func (p *CodePrinter) VisitPrefixExpression(n *ast.PrefixExpression) {
	if n == nil {
		p.write("<???>")
		return
	}
	p.write(n.Operator)
	switch n.Right.(type) {
	case *ast.InfixExpression, *ast.RangeLiteral:
		p.write("(")
		n.Right.Accept(p)
		p.write(")")
	default:
		p.printExpr(n.Right, 0, false)
	}
}

func (p *CodePrinter) VisitInfixExpression(n *ast.InfixExpression) {
	p.printExpr(n, 0, false)
}

func (p *CodePrinter) VisitIndexExpression(n *ast.IndexExpression) {
	if n == nil {
		p.write("<???>")
		return
	}
	p.printReceiver(n.Receiver)
	p.write("[")
	p.printExpr(n.Index, 0, false)
	p.write("]")
}

// VisitMethodCall prints `recv.name(args) block`. Zero-argument calls
// drop the parentheses; explicit type arguments are erased.
func (p *CodePrinter) VisitMethodCall(n *ast.MethodCall) {
	if n == nil {
		p.write("<???>")
		return
	}
	if n.Receiver != nil {
		p.printReceiver(n.Receiver)
		p.write(".")
	}
	if n.Method != nil {
		p.write(n.Method.Value)
	} else {
		p.write("<???>")
	}
	if len(n.Args) > 0 {
		p.write("(")
		for i, arg := range n.Args {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(arg, 0, false)
		}
		p.write(")")
	}
	if n.Block != nil {
		p.write(" ")
		n.Block.Accept(p)
	}
}

// inlineBlockExpr returns the single plain expression of a brace block,
// or nil when the block must print in do...end form.
func inlineBlockExpr(b *ast.BlockLiteral) ast.Expression {
	if b.Token.Type == token.DO || b.Body == nil || len(b.Body.Statements) != 1 {
		return nil
	}
	es, ok := b.Body.Statements[0].(*ast.ExpressionStatement)
	if !ok {
		return nil
	}
	switch es.Expression.(type) {
	case *ast.IfExpression, *ast.CaseExpression:
		return nil
	}
	return es.Expression
}

func (p *CodePrinter) VisitBlockLiteral(n *ast.BlockLiteral) {
	if n == nil {
		p.write("<???>")
		return
	}
	if expr := inlineBlockExpr(n); expr != nil {
		p.write("{ ")
		if len(n.Params) > 0 {
			p.writeBlockParams(n.Params)
			p.write(" ")
		}
		p.printExpr(expr, 0, false)
		p.write(" }")
		return
	}
	p.write("do")
	if len(n.Params) > 0 {
		p.write(" ")
		p.writeBlockParams(n.Params)
	}
	p.writeln()
	p.printBody(n.Body)
	p.writeIndent()
	p.write("end")
}

func (p *CodePrinter) writeBlockParams(params []*ast.Param) {
	p.write("|")
	for i, param := range params {
		if i > 0 {
			p.write(", ")
		}
		if param != nil && param.Name != nil {
			p.write(param.Name.Value)
		} else {
			p.write("<???>")
		}
	}
	p.write("|")
}

func (p *CodePrinter) VisitIfExpression(n *ast.IfExpression) {
	if n == nil {
		p.write("<???>")
		return
	}
	if n.Unless {
		p.write("unless ")
	} else {
		p.write("if ")
	}
	p.printExpr(n.Condition, 0, false)
	p.writeln()
	p.printBody(n.Consequence)
	// Ruby has no elsif after unless, so those chains stay nested.
	p.printElse(n.Alternative, !n.Unless)
	p.writeIndent()
	p.write("end")
}

// printElse prints the else branch, folding a lone nested if back into
// an elsif chain (which is how the parser represents one).
func (p *CodePrinter) printElse(alt *ast.BlockStatement, allowElsif bool) {
	if alt == nil {
		return
	}
	if allowElsif && len(alt.Statements) == 1 {
		if es, ok := alt.Statements[0].(*ast.ExpressionStatement); ok {
			if nested, ok := es.Expression.(*ast.IfExpression); ok && !nested.Unless {
				p.writeIndent()
				p.write("elsif ")
				p.printExpr(nested.Condition, 0, false)
				p.writeln()
				p.printBody(nested.Consequence)
				p.printElse(nested.Alternative, true)
				return
			}
		}
	}
	p.writeIndent()
	p.write("else")
	p.writeln()
	p.printBody(alt)
}

func (p *CodePrinter) VisitCaseExpression(n *ast.CaseExpression) {
	if n == nil {
		p.write("<???>")
		return
	}
	p.write("case")
	if n.Subject != nil {
		p.write(" ")
		p.printExpr(n.Subject, 0, false)
	}
	p.writeln()
	for _, when := range n.Whens {
		if when == nil {
			continue
		}
		p.writeIndent()
		p.write("when ")
		for i, match := range when.Matches {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(match, 0, false)
		}
		p.writeln()
		p.printBody(when.Body)
	}
	if n.Alternative != nil {
		p.writeIndent()
		p.write("else")
		p.writeln()
		p.printBody(n.Alternative)
	}
	p.writeIndent()
	p.write("end")
}

// Type annotation nodes never reach the Ruby output; the checker is
// their only consumer.
func (p *CodePrinter) VisitNamedType(n *ast.NamedType)           {}
func (p *CodePrinter) VisitUnionType(n *ast.UnionType)           {}
func (p *CodePrinter) VisitStructuralType(n *ast.StructuralType) {}
func (p *CodePrinter) VisitLiteralType(n *ast.LiteralType)       {}
