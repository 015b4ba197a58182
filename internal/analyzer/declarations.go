package analyzer

import (
	"sort"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/symbols"
	"github.com/trubylang/truby/internal/typesystem"
)

// collectDeclarations registers every named type and signature before
// any body is checked, so bodies can reference declarations that appear
// later in the file. It runs in two phases: shells (names and type
// parameters) first, then signatures, supertypes and members, which may
// mention any declared name.
func (c *checker) collectDeclarations(program *ast.Program) {
	for _, stmt := range program.Statements {
		switch s := stmt.(type) {
		case *ast.ClassDeclaration:
			c.declareClass(s)
		case *ast.InterfaceDeclaration:
			c.declareInterface(s)
		case *ast.ModuleDeclaration:
			c.declareModule(s)
		}
	}
	for _, stmt := range program.Statements {
		switch s := stmt.(type) {
		case *ast.ClassDeclaration:
			c.fillClass(s)
		case *ast.InterfaceDeclaration:
			c.fillInterface(s)
		case *ast.ModuleDeclaration:
			c.fillModule(s)
		case *ast.DefStatement:
			c.declareGlobalDef(s)
		}
	}
	c.checkHierarchies()
}

// typeNameFree reports a T003 when name is already taken by another
// declaration or a built-in. First declaration wins; the second is
// reported and dropped.
func (c *checker) typeNameFree(name *ast.ConstantRef) bool {
	if _, ok := c.reg.Builtin(name.Name); ok || name.Name == "Void" || name.Name == "Proc" {
		c.addError(diagnostics.ErrT003, name.Token, "'%s' redeclares a built-in type", name.Name)
		return false
	}
	if !c.reg.TypeName(name.Name) {
		return true
	}
	c.addError(diagnostics.ErrT003, name.Token, "'%s' is already declared", name.Name)
	return false
}

func (c *checker) declareClass(s *ast.ClassDeclaration) {
	if !c.typeNameFree(s.Name) {
		return
	}
	info := &symbols.ClassInfo{
		Name:       s.Name.Name,
		TypeParams: c.declareTypeParams(s.TypeParams),
		Methods:    make(map[string]*symbols.MethodSig),
		IVars:      make(map[string]typesystem.Type),
		ClassVars:  make(map[string]*symbols.ClassVar),
		Node:       s,
	}
	c.reg.Classes[info.Name] = info
	c.ivarSites[info] = make(map[string]ast.Node)
	c.cvarSites[info] = make(map[string]ast.Node)
}

func (c *checker) declareInterface(s *ast.InterfaceDeclaration) {
	if !c.typeNameFree(s.Name) {
		return
	}
	c.reg.Interfaces[s.Name.Name] = &symbols.InterfaceInfo{
		Name:       s.Name.Name,
		TypeParams: c.declareTypeParams(s.TypeParams),
		Methods:    make(map[string]*symbols.MethodSig),
		Node:       s,
	}
}

func (c *checker) declareModule(s *ast.ModuleDeclaration) {
	if !c.typeNameFree(s.Name) {
		return
	}
	c.reg.Modules[s.Name.Name] = &symbols.ModuleInfo{
		Name:    s.Name.Name,
		Methods: make(map[string]*symbols.MethodSig),
		Node:    s,
	}
}

// declareTypeParams builds the rigid variables of a declaration header.
// Constraints are attached later, once every type name is known.
func (c *checker) declareTypeParams(params []*ast.TypeParam) []typesystem.TVar {
	var out []typesystem.TVar
	seen := make(map[string]bool, len(params))
	for _, tp := range params {
		if seen[tp.Name] {
			c.addError(diagnostics.ErrT003, tp.Token, "type parameter '%s' is already declared", tp.Name)
			continue
		}
		seen[tp.Name] = true
		out = append(out, typesystem.TVar{Name: tp.Name})
	}
	return out
}

// fillTypeParams resolves declared constraints into the shell variables,
// with the parameters themselves in scope.
func (c *checker) fillTypeParams(decls []*ast.TypeParam, vars []typesystem.TVar) {
	byName := make(map[string]*ast.TypeParam, len(decls))
	for _, tp := range decls {
		if _, ok := byName[tp.Name]; !ok {
			byName[tp.Name] = tp
		}
	}
	for i := range vars {
		decl := byName[vars[i].Name]
		if decl == nil || decl.Constraint == nil {
			continue
		}
		vars[i].Constraint = c.buildType(decl.Constraint)
		c.tparams[vars[i].Name] = vars[i]
	}
}

func (c *checker) fillClass(s *ast.ClassDeclaration) {
	info, ok := c.reg.Classes[s.Name.Name]
	if !ok || info.Node != ast.Node(s) {
		return
	}

	saved := c.tparams
	c.tparams = make(map[string]typesystem.TVar, len(info.TypeParams))
	for _, tv := range info.TypeParams {
		c.tparams[tv.Name] = tv
	}
	c.fillTypeParams(s.TypeParams, info.TypeParams)
	defer func() { c.tparams = saved }()

	if s.SuperClass != nil {
		c.fillSuper(info, s.SuperClass)
	}
	for _, ref := range s.Implements {
		c.fillImplements(info, ref)
	}

	if s.Body != nil {
		for _, stmt := range s.Body.Statements {
			switch b := stmt.(type) {
			case *ast.DefStatement:
				c.declareMethod(info, b)
			case *ast.IncludeStatement:
				c.fillInclude(info, b)
			}
		}
		c.scanMembers(info, s.Body)
	}
}

func (c *checker) fillSuper(info *symbols.ClassInfo, ref *ast.ConstantRef) {
	name := ref.Name
	if _, ok := c.reg.Classes[name]; ok {
		if name == info.Name {
			c.addError(diagnostics.ErrT001, ref.Token, "class '%s' cannot inherit from itself", name)
			return
		}
		info.Super = name
		return
	}
	if _, ok := c.reg.Interfaces[name]; ok {
		c.addError(diagnostics.ErrT001, ref.Token,
			"superclass of '%s' must be a class, '%s' is an interface", info.Name, name)
		return
	}
	if _, ok := c.reg.Modules[name]; ok {
		c.addError(diagnostics.ErrT001, ref.Token,
			"superclass of '%s' must be a class, '%s' is a module", info.Name, name)
		return
	}
	if _, ok := c.reg.Builtin(name); ok {
		c.addError(diagnostics.ErrT001, ref.Token, "cannot inherit from built-in type '%s'", name)
		return
	}
	c.addError(diagnostics.ErrT002, ref.Token, "unknown superclass '%s'", name)
}

func (c *checker) fillImplements(info *symbols.ClassInfo, ref *ast.NamedType) {
	if _, ok := c.reg.Interfaces[ref.Name]; !ok {
		if c.reg.TypeName(ref.Name) {
			c.addError(diagnostics.ErrT001, ref.Token, "'%s' in implements is not an interface", ref.Name)
		} else {
			c.addError(diagnostics.ErrT002, ref.Token, "unknown interface '%s'", ref.Name)
		}
		return
	}
	t := c.buildType(ref)
	iface, ok := t.(typesystem.TClass)
	if !ok {
		return
	}
	info.Interfaces = append(info.Interfaces, iface)
}

func (c *checker) fillInclude(info *symbols.ClassInfo, s *ast.IncludeStatement) {
	name := s.Module.Name
	if _, ok := c.reg.Modules[name]; !ok {
		if c.reg.TypeName(name) {
			c.addError(diagnostics.ErrT001, s.Module.Token, "can only include modules, '%s' is not one", name)
		} else {
			c.addError(diagnostics.ErrT002, s.Module.Token, "unknown module '%s'", name)
		}
		return
	}
	for _, existing := range info.Includes {
		if existing == name {
			c.addError(diagnostics.ErrT003, s.Module.Token,
				"module '%s' is already included in '%s'", name, info.Name)
			return
		}
	}
	info.Includes = append(info.Includes, name)
}

func (c *checker) declareMethod(info *symbols.ClassInfo, ds *ast.DefStatement) {
	name := ds.Name.Value
	if _, dup := info.Methods[name]; dup {
		c.addError(diagnostics.ErrT003, ds.Name.Token,
			"method '%s' is already defined in class '%s'", name, info.Name)
		return
	}
	sig := c.buildMethodSig(ds, false)
	sig.Abstract = isAbstractBody(ds.Body)
	info.Methods[name] = sig
	site := &defSite{sig: sig, class: info, def: ds}
	c.defSites[ds] = site
	c.siteBySig[sig] = site
}

func (c *checker) fillInterface(s *ast.InterfaceDeclaration) {
	info, ok := c.reg.Interfaces[s.Name.Name]
	if !ok || info.Node != ast.Node(s) {
		return
	}

	saved := c.tparams
	c.tparams = make(map[string]typesystem.TVar, len(info.TypeParams))
	for _, tv := range info.TypeParams {
		c.tparams[tv.Name] = tv
	}
	c.fillTypeParams(s.TypeParams, info.TypeParams)
	defer func() { c.tparams = saved }()

	for _, ds := range s.Methods {
		name := ds.Name.Value
		if _, dup := info.Methods[name]; dup {
			c.addError(diagnostics.ErrT003, ds.Name.Token,
				"method '%s' is already declared in interface '%s'", name, info.Name)
			continue
		}
		info.Methods[name] = c.buildMethodSig(ds, true)
	}
}

func (c *checker) fillModule(s *ast.ModuleDeclaration) {
	info, ok := c.reg.Modules[s.Name.Name]
	if !ok || info.Node != ast.Node(s) {
		return
	}
	if s.Body == nil {
		return
	}
	for _, stmt := range s.Body.Statements {
		switch b := stmt.(type) {
		case *ast.DefStatement:
			name := b.Name.Value
			if _, dup := info.Methods[name]; dup {
				c.addError(diagnostics.ErrT003, b.Name.Token,
					"method '%s' is already defined in module '%s'", name, info.Name)
				continue
			}
			sig := c.buildMethodSig(b, false)
			sig.Abstract = isAbstractBody(b.Body)
			info.Methods[name] = sig
			site := &defSite{sig: sig, module: info, def: b}
			c.defSites[b] = site
			c.siteBySig[sig] = site
		case *ast.IncludeStatement:
			c.addError(diagnostics.ErrT001, b.Token, "a module cannot include other modules")
		}
	}
}

func (c *checker) declareGlobalDef(ds *ast.DefStatement) {
	name := ds.Name.Value
	if _, dup := c.globals[name]; dup {
		c.addError(diagnostics.ErrT003, ds.Name.Token, "'%s' is already defined", name)
		return
	}
	sig := c.buildMethodSig(ds, false)
	c.globals[name] = sig
	site := &defSite{sig: sig, def: ds}
	c.defSites[ds] = site
	c.siteBySig[sig] = site
}

// buildMethodSig resolves one def header. A nil Return means the body
// pass must synthesize it; interface requirements, bodyless defs and
// initialize default to Void instead. Bare parameters become the
// method's own implicit type variables, named after the parameter.
func (c *checker) buildMethodSig(ds *ast.DefStatement, forInterface bool) *symbols.MethodSig {
	saved := c.tparams
	scope := make(map[string]typesystem.TVar, len(saved)+len(ds.TypeParams))
	for k, v := range saved {
		scope[k] = v
	}
	c.tparams = scope
	defer func() { c.tparams = saved }()

	var own []typesystem.TVar
	for _, tp := range ds.TypeParams {
		if _, dup := scope[tp.Name]; dup {
			c.addError(diagnostics.ErrT003, tp.Token, "type parameter '%s' is already declared", tp.Name)
			continue
		}
		tv := typesystem.TVar{Name: tp.Name}
		if tp.Constraint != nil {
			tv.Constraint = c.buildType(tp.Constraint)
		}
		scope[tp.Name] = tv
		own = append(own, tv)
	}

	seen := make(map[string]bool, len(ds.Params))
	var names []string
	var params []typesystem.Type
	for _, p := range ds.Params {
		pname := p.Name.Value
		if seen[pname] {
			c.addError(diagnostics.ErrT003, p.Name.Token, "duplicate parameter '%s'", pname)
		}
		seen[pname] = true

		var pt typesystem.Type
		if p.Type != nil {
			pt = c.buildType(p.Type)
		} else if existing, ok := scope[pname]; ok {
			pt = existing
		} else {
			tv := typesystem.TVar{Name: pname}
			scope[pname] = tv
			own = append(own, tv)
			pt = tv
		}
		names = append(names, pname)
		params = append(params, pt)
	}

	var ret typesystem.Type
	if ds.ReturnType != nil {
		ret = c.buildType(ds.ReturnType)
	} else if forInterface || ds.Body == nil || ds.Name.Value == "initialize" {
		ret = typesystem.VoidType
	}

	return &symbols.MethodSig{
		Name:       ds.Name.Value,
		TypeParams: own,
		ParamNames: names,
		Params:     params,
		Return:     ret,
		Node:       ds,
	}
}

// isAbstractBody recognizes the abstract-method convention: a body that
// is exactly one unconditional raise of NotImplementedError.
func isAbstractBody(body *ast.BlockStatement) bool {
	if body == nil || len(body.Statements) != 1 {
		return false
	}
	rs, ok := body.Statements[0].(*ast.RaiseStatement)
	if !ok || rs.Condition != nil {
		return false
	}
	switch v := rs.Value.(type) {
	case *ast.ConstantRef:
		return v.Name == "NotImplementedError"
	case *ast.MethodCall:
		ref, ok := v.Receiver.(*ast.ConstantRef)
		return ok && ref.Name == "NotImplementedError" && v.Method != nil && v.Method.Value == "new"
	}
	return false
}

// scanMembers walks a class body, including nested statements and def
// bodies, registering annotated instance and class variables and every
// class-variable mutation site. Registration up front is what lets one
// method read a member another method declares later in the file.
func (c *checker) scanMembers(info *symbols.ClassInfo, block *ast.BlockStatement) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		switch s := stmt.(type) {
		case *ast.AssignStatement:
			switch target := s.Target.(type) {
			case *ast.IVarExpression:
				c.scanIVar(info, s, target)
			case *ast.CVarExpression:
				c.scanCVar(info, s, target)
			}
		case *ast.DefStatement:
			c.scanMembers(info, s.Body)
		case *ast.WhileStatement:
			c.scanMembers(info, s.Body)
		case *ast.ExpressionStatement:
			switch e := s.Expression.(type) {
			case *ast.IfExpression:
				c.scanMembers(info, e.Consequence)
				c.scanMembers(info, e.Alternative)
			case *ast.CaseExpression:
				for _, w := range e.Whens {
					c.scanMembers(info, w.Body)
				}
				c.scanMembers(info, e.Alternative)
			}
		}
	}
}

func (c *checker) scanIVar(info *symbols.ClassInfo, s *ast.AssignStatement, target *ast.IVarExpression) {
	sites := c.ivarSites[info]
	if s.TypeAnnotation != nil {
		if _, declared := info.IVars[target.Name]; declared {
			c.addError(diagnostics.ErrT003, target.Token,
				"instance variable '@%s' is already declared", target.Name)
			return
		}
		info.IVars[target.Name] = c.buildType(s.TypeAnnotation)
		sites[target.Name] = s
		return
	}
	if _, declared := info.IVars[target.Name]; declared {
		return
	}
	if lt := literalPrimitive(s.Value); lt != nil {
		info.IVars[target.Name] = lt
		sites[target.Name] = s
	}
}

func (c *checker) scanCVar(info *symbols.ClassInfo, s *ast.AssignStatement, target *ast.CVarExpression) {
	cv := info.ClassVars[target.Name]
	if cv == nil {
		cv = &symbols.ClassVar{Name: target.Name}
		info.ClassVars[target.Name] = cv
	}
	cv.Mutations = append(cv.Mutations, s)

	sites := c.cvarSites[info]
	if s.TypeAnnotation != nil {
		if cv.Type != nil && sites[target.Name] != nil {
			c.addError(diagnostics.ErrT003, target.Token,
				"class variable '@@%s' is already declared", target.Name)
			return
		}
		cv.Type = c.buildType(s.TypeAnnotation)
		sites[target.Name] = s
		return
	}
	if cv.Type == nil {
		if lt := literalPrimitive(s.Value); lt != nil {
			cv.Type = lt
		}
	}
}

// literalPrimitive gives the primitive type of a simple literal
// initializer, or nil when the expression needs full inference.
func literalPrimitive(e ast.Expression) typesystem.Type {
	switch e.(type) {
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
	}
	return nil
}

// checkHierarchies rejects circular superclass chains after all supers
// are resolved. Registry walks guard against cycles themselves, so the
// broken chain is reported but left in place.
func (c *checker) checkHierarchies() {
	names := make([]string, 0, len(c.reg.Classes))
	for name := range c.reg.Classes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := c.reg.Classes[name]
		if info.Node == nil {
			continue
		}
		seen := map[string]bool{name: true}
		for cur := info.Super; cur != ""; {
			if seen[cur] {
				c.addError(diagnostics.ErrT001, nodeToken(info.Node),
					"circular superclass chain involving '%s'", name)
				break
			}
			seen[cur] = true
			next, ok := c.reg.Classes[cur]
			if !ok {
				break
			}
			cur = next.Super
		}
	}
}
