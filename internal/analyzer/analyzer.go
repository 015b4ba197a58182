package analyzer

import (
	"fmt"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/pipeline"
	"github.com/trubylang/truby/internal/symbols"
	"github.com/trubylang/truby/internal/token"
	"github.com/trubylang/truby/internal/typesystem"
)

// Analyzer type-checks one file's AST against the registry it was
// constructed with. A zero registry (fresh NewRegistry) gives the
// built-in prelude only; batch drivers pre-load signatures from other
// files before calling Analyze.
type Analyzer struct {
	c *checker
}

func New(reg *symbols.Registry) *Analyzer {
	return &Analyzer{c: newChecker(reg)}
}

// TypeMap returns the node-to-type annotations produced by Analyze.
func (a *Analyzer) TypeMap() map[ast.Node]typesystem.Type {
	return a.c.typeMap
}

// Summaries returns the declaration records produced by Analyze, in
// source order, for the signature emitter.
func (a *Analyzer) Summaries() []pipeline.DeclSummary {
	return a.c.Summaries()
}

// Analyze runs the three checking passes: declarations (names and
// signatures), bodies (inference and narrowing), then interface
// conformance, which compares against return types the body pass may
// have synthesized. Diagnostics come back ordered by position.
//
// A broken checker invariant surfaces as a panic carrying
// *typesystem.InvariantViolation; it is caught here and reported as a
// single internal error rather than crashing the process.
func (a *Analyzer) Analyze(program *ast.Program) (diags []*diagnostics.DiagnosticError) {
	c := a.c
	c.file = program.File

	defer func() {
		if r := recover(); r != nil {
			iv, ok := r.(*typesystem.InvariantViolation)
			if !ok {
				panic(r)
			}
			e := diagnostics.NewError(diagnostics.ErrI001, token.Token{}, iv.Error())
			e.File = c.file
			c.errors = append(c.errors, e)
			diagnostics.SortByPosition(c.errors)
			diags = c.errors
		}
	}()

	c.collectDeclarations(program)
	c.checkProgram(program)
	c.checkConformance()
	c.buildSummaries(program)

	diagnostics.SortByPosition(c.errors)
	return c.errors
}

// defSite ties a parsed def to the signature the declarations pass
// built for it and to the class or module that owns it, so call sites
// can trigger return-type inference out of source order.
type defSite struct {
	sig    *symbols.MethodSig
	class  *symbols.ClassInfo
	module *symbols.ModuleInfo
	def    *ast.DefStatement
}

// assignFrame records the most recent type assigned to each binding
// while one conditional arm is being checked. The join logic reads
// these to merge assignments across arms.
type assignFrame map[*symbols.Binding]typesystem.Type

// checker carries the mutable state of one Analyze run. The scope
// fields (env, class, module, tparams, retDeclared) are swapped in and
// out as the walk enters method bodies; checkDefBody saves and
// restores them, which is what makes demand-driven inference safe to
// trigger from the middle of another body.
type checker struct {
	reg  *symbols.Registry
	file string

	env     *symbols.Environment
	tparams map[string]typesystem.TVar

	class  *symbols.ClassInfo
	module *symbols.ModuleInfo
	inDef  bool

	retDeclared typesystem.Type
	retTypes    []typesystem.Type

	globals   map[string]*symbols.MethodSig
	defSites  map[*ast.DefStatement]*defSite
	siteBySig map[*symbols.MethodSig]*defSite

	inferring map[*ast.DefStatement]bool
	checked   map[*ast.DefStatement]bool

	ivarSites map[*symbols.ClassInfo]map[string]ast.Node
	cvarSites map[*symbols.ClassInfo]map[string]ast.Node

	typeMap   map[ast.Node]typesystem.Type
	callCache map[ast.Node]typesystem.Type
	summaries []pipeline.DeclSummary

	assignLog []assignFrame
	inLoop    int
	loopBreak []bool

	errors   []*diagnostics.DiagnosticError
	errorSet map[string]bool
}

func newChecker(reg *symbols.Registry) *checker {
	return &checker{
		reg:       reg,
		env:       symbols.NewEnvironment(),
		tparams:   make(map[string]typesystem.TVar),
		globals:   make(map[string]*symbols.MethodSig),
		defSites:  make(map[*ast.DefStatement]*defSite),
		siteBySig: make(map[*symbols.MethodSig]*defSite),
		inferring: make(map[*ast.DefStatement]bool),
		checked:   make(map[*ast.DefStatement]bool),
		ivarSites: make(map[*symbols.ClassInfo]map[string]ast.Node),
		cvarSites: make(map[*symbols.ClassInfo]map[string]ast.Node),
		typeMap:   make(map[ast.Node]typesystem.Type),
		callCache: make(map[ast.Node]typesystem.Type),
		errorSet:  make(map[string]bool),
	}
}

func (c *checker) Summaries() []pipeline.DeclSummary {
	return c.summaries
}

// addError records a diagnostic unless an identical position/code pair
// was already reported. Cascades from one defect tend to land on the
// same token, so the dedup keeps output readable.
func (c *checker) addError(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	key := fmt.Sprintf("%d:%d:%s", tok.Line, tok.Column, code)
	if c.errorSet[key] {
		return
	}
	c.errorSet[key] = true
	e := diagnostics.NewError(code, tok, fmt.Sprintf(format, args...))
	e.File = c.file
	c.errors = append(c.errors, e)
}

func (c *checker) setType(node ast.Node, t typesystem.Type) {
	if node == nil || t == nil {
		return
	}
	c.typeMap[node] = t
}

// checkerState is the scope context captured around a nested
// checkDefBody call.
type checkerState struct {
	env         *symbols.Environment
	tparams     map[string]typesystem.TVar
	class       *symbols.ClassInfo
	module      *symbols.ModuleInfo
	inDef       bool
	retDeclared typesystem.Type
	retTypes    []typesystem.Type
	assignLog   []assignFrame
	inLoop      int
	loopBreak   []bool
}

func (c *checker) save() checkerState {
	return checkerState{
		env:         c.env,
		tparams:     c.tparams,
		class:       c.class,
		module:      c.module,
		inDef:       c.inDef,
		retDeclared: c.retDeclared,
		retTypes:    c.retTypes,
		assignLog:   c.assignLog,
		inLoop:      c.inLoop,
		loopBreak:   c.loopBreak,
	}
}

func (c *checker) restore(st checkerState) {
	c.env = st.env
	c.tparams = st.tparams
	c.class = st.class
	c.module = st.module
	c.inDef = st.inDef
	c.retDeclared = st.retDeclared
	c.retTypes = st.retTypes
	c.assignLog = st.assignLog
	c.inLoop = st.inLoop
	c.loopBreak = st.loopBreak
}

// recordBinding notes that the innermost open conditional arm assigned
// t to b. No-op outside conditional arms.
func (c *checker) recordBinding(b *symbols.Binding, t typesystem.Type) {
	if len(c.assignLog) == 0 {
		return
	}
	c.assignLog[len(c.assignLog)-1][b] = t
}

func (c *checker) pushAssign() {
	c.assignLog = append(c.assignLog, make(assignFrame))
}

func (c *checker) popAssign() assignFrame {
	f := c.assignLog[len(c.assignLog)-1]
	c.assignLog = c.assignLog[:len(c.assignLog)-1]
	return f
}

// selfType is the instance type method bodies see: the enclosing class
// applied to its own type parameters, left rigid.
func (c *checker) selfType() typesystem.Type {
	if c.class == nil {
		return nil
	}
	var args []typesystem.Type
	for _, tv := range c.class.TypeParams {
		args = append(args, tv)
	}
	return typesystem.TClass{Name: c.class.Name, Args: args}
}

func isVoid(t typesystem.Type) bool {
	con, ok := t.(typesystem.TCon)
	return ok && con.Name == "Void"
}

func isNilType(t typesystem.Type) bool {
	con, ok := t.(typesystem.TCon)
	return ok && con.Name == "Nil"
}

func isErrorType(t typesystem.Type) bool {
	_, ok := t.(typesystem.TError)
	return ok
}

// nodeToken extracts a position from any node that carries one. The
// registry stores declaration sites as bare ast.Node.
func nodeToken(n ast.Node) token.Token {
	if tp, ok := n.(ast.TokenProvider); ok {
		return tp.GetToken()
	}
	return token.Token{}
}

// buildSummaries walks the top level once more after checking, when
// every synthesized return type is known, and records the declaration
// facts the .trbs emitter needs.
func (c *checker) buildSummaries(program *ast.Program) {
	for _, stmt := range program.Statements {
		switch s := stmt.(type) {
		case *ast.DefStatement:
			if site, ok := c.defSites[s]; ok && site.class == nil && site.module == nil {
				c.summaries = append(c.summaries, c.defSummary(site.sig, "", s))
			}
		case *ast.ClassDeclaration:
			info, ok := c.reg.Classes[s.Name.Name]
			if !ok || info.Node != ast.Node(s) {
				continue
			}
			c.summaries = append(c.summaries, typeSummary(info.Name, "class", info.TypeParams, s))
			for _, ds := range defsIn(s.Body) {
				if site, ok := c.defSites[ds]; ok {
					c.summaries = append(c.summaries, c.defSummary(site.sig, info.Name, ds))
				}
			}
		case *ast.InterfaceDeclaration:
			info, ok := c.reg.Interfaces[s.Name.Name]
			if !ok || info.Node != ast.Node(s) {
				continue
			}
			c.summaries = append(c.summaries, typeSummary(info.Name, "interface", info.TypeParams, s))
			for _, ds := range s.Methods {
				if sig, ok := info.Methods[ds.Name.Value]; ok {
					c.summaries = append(c.summaries, c.defSummary(sig, info.Name, ds))
				}
			}
		case *ast.ModuleDeclaration:
			info, ok := c.reg.Modules[s.Name.Name]
			if !ok || info.Node != ast.Node(s) {
				continue
			}
			c.summaries = append(c.summaries, typeSummary(info.Name, "module", nil, s))
			for _, ds := range defsIn(s.Body) {
				if site, ok := c.defSites[ds]; ok {
					c.summaries = append(c.summaries, c.defSummary(site.sig, info.Name, ds))
				}
			}
		}
	}
}

func (c *checker) defSummary(sig *symbols.MethodSig, owner string, node ast.Node) pipeline.DeclSummary {
	types := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		types[i] = p.String()
	}
	ret := "Void"
	if sig.Return != nil {
		ret = sig.Return.String()
	}
	return pipeline.DeclSummary{
		Name:       sig.Name,
		Kind:       "def",
		Owner:      owner,
		ParamNames: append([]string(nil), sig.ParamNames...),
		ParamTypes: types,
		ReturnType: ret,
		Line:       nodeToken(node).Line,
	}
}

// typeSummary records a class/interface/module header. Type parameter
// names ride in ParamNames and their rendered constraints in
// ParamTypes ("" for unconstrained), which is all the emitter needs to
// reprint the header.
func typeSummary(name, kind string, tparams []typesystem.TVar, node ast.Node) pipeline.DeclSummary {
	var pnames, ptypes []string
	for _, tv := range tparams {
		pnames = append(pnames, tv.Name)
		constraint := ""
		if tv.Constraint != nil {
			constraint = tv.Constraint.String()
		}
		ptypes = append(ptypes, constraint)
	}
	return pipeline.DeclSummary{
		Name:       name,
		Kind:       kind,
		ParamNames: pnames,
		ParamTypes: ptypes,
		Line:       nodeToken(node).Line,
	}
}

func defsIn(block *ast.BlockStatement) []*ast.DefStatement {
	if block == nil {
		return nil
	}
	var defs []*ast.DefStatement
	for _, stmt := range block.Statements {
		if ds, ok := stmt.(*ast.DefStatement); ok {
			defs = append(defs, ds)
		}
	}
	return defs
}
