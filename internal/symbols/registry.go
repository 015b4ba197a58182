package symbols

import (
	"sort"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/typesystem"
)

// MethodSig describes one callable member: a def on a class or module,
// an interface requirement, or a built-in. Params are positional;
// TypeParams are the method's own generic parameters, left free until
// the call-site solver binds them.
type MethodSig struct {
	Name       string
	TypeParams []typesystem.TVar
	ParamNames []string
	Params     []typesystem.Type
	Return     typesystem.Type
	Abstract   bool
	Node       ast.Node
}

// Proc renders the signature as a proc type, with any receiver
// substitution already applied by the caller.
func (m *MethodSig) Proc() typesystem.TProc {
	return typesystem.TProc{Params: m.Params, Return: m.Return}
}

// ClassVar tracks one @@variable and every site that assigns it.
type ClassVar struct {
	Name      string
	Type      typesystem.Type
	Mutations []ast.Node
}

// ClassInfo is the checker's record of one class declaration.
type ClassInfo struct {
	Name       string
	TypeParams []typesystem.TVar
	Super      string // "" when the class has no superclass clause
	Interfaces []typesystem.TClass
	Includes   []string
	Methods    map[string]*MethodSig
	IVars      map[string]typesystem.Type
	ClassVars  map[string]*ClassVar
	Node       ast.Node
}

// InterfaceInfo is the checker's record of one interface declaration.
type InterfaceInfo struct {
	Name       string
	TypeParams []typesystem.TVar
	Methods    map[string]*MethodSig
	Node       ast.Node
}

// ModuleInfo is the checker's record of one mixin module.
type ModuleInfo struct {
	Name    string
	Methods map[string]*MethodSig
	Node    ast.Node
}

// builtinType holds the prelude signatures of one built-in, written in
// terms of its type parameters.
type builtinType struct {
	typeParams []typesystem.TVar
	methods    map[string]*MethodSig
}

// Registry is the per-run table of declared classes, interfaces and
// modules plus the built-in prelude. It implements typesystem.Resolver,
// which is how the subtype checker walks hierarchies and answers
// structural-conformance member lookups.
type Registry struct {
	Classes    map[string]*ClassInfo
	Interfaces map[string]*InterfaceInfo
	Modules    map[string]*ModuleInfo

	builtins  map[string]*builtinType
	universal map[string]*MethodSig
}

func NewRegistry() *Registry {
	r := &Registry{
		Classes:    make(map[string]*ClassInfo),
		Interfaces: make(map[string]*InterfaceInfo),
		Modules:    make(map[string]*ModuleInfo),
		builtins:   make(map[string]*builtinType),
		universal:  make(map[string]*MethodSig),
	}
	installPrelude(r)
	return r
}

// TypeName reports whether name refers to any declared or built-in
// type: class, interface, module, primitive or container.
func (r *Registry) TypeName(name string) bool {
	if _, ok := r.Classes[name]; ok {
		return true
	}
	if _, ok := r.Interfaces[name]; ok {
		return true
	}
	if _, ok := r.Modules[name]; ok {
		return true
	}
	_, ok := r.builtins[name]
	return ok
}

// Builtin reports whether name is a built-in container or primitive,
// and if so how many type parameters it takes.
func (r *Registry) Builtin(name string) (int, bool) {
	b, ok := r.builtins[name]
	if !ok {
		return 0, false
	}
	return len(b.typeParams), true
}

// SupersOf returns the instantiated direct supertypes of the named
// class: superclass, declared interfaces and included modules, with the
// class's type arguments substituted into interface instantiations.
func (r *Registry) SupersOf(name string, args []typesystem.Type) []typesystem.Type {
	info, ok := r.Classes[name]
	if !ok {
		return nil
	}
	sub := ParamSubst(info.TypeParams, args)

	var supers []typesystem.Type
	if info.Super != "" {
		supers = append(supers, typesystem.TClass{Name: info.Super})
	}
	for _, iface := range info.Interfaces {
		supers = append(supers, iface.Apply(sub))
	}
	for _, mod := range info.Includes {
		supers = append(supers, typesystem.TClass{Name: mod})
	}
	return supers
}

// MemberSignature resolves a method on a receiver type for structural
// conformance: the receiver's type arguments are substituted in, the
// method's own generic parameters stay free. Union receivers are
// handled member-wise by the subtype checker and never reach here.
func (r *Registry) MemberSignature(recv typesystem.Type, member string) (typesystem.TProc, bool) {
	sig, sub, ok := r.Method(recv, member)
	if !ok {
		return typesystem.TProc{}, false
	}
	return sig.Proc().Apply(sub).(typesystem.TProc), true
}

// Method finds the signature a receiver type responds to, along with
// the substitution that instantiates the receiver's type arguments.
// Lookup order for classes is own methods, included modules, then the
// superclass chain; every receiver falls back to the universal methods.
func (r *Registry) Method(recv typesystem.Type, name string) (*MethodSig, typesystem.Subst, bool) {
	switch t := recv.(type) {
	case typesystem.TCon:
		if b, ok := r.builtins[t.Name]; ok {
			if sig, ok := b.methods[name]; ok {
				return sig, typesystem.Subst{}, true
			}
		}

	case typesystem.TLit:
		return r.Method(typesystem.TCon{Name: t.Base}, name)

	case typesystem.TApp:
		if b, ok := r.builtins[t.Name]; ok {
			if sig, ok := b.methods[name]; ok {
				return sig, ParamSubst(b.typeParams, t.Args), true
			}
		}

	case typesystem.TClass:
		if sig, sub, ok := r.classMethod(t.Name, t.Args, name, make(map[string]bool)); ok {
			return sig, sub, true
		}
		if info, ok := r.Interfaces[t.Name]; ok {
			if sig, ok := info.Methods[name]; ok {
				return sig, ParamSubst(info.TypeParams, t.Args), true
			}
		}
		if info, ok := r.Modules[t.Name]; ok {
			if sig, ok := info.Methods[name]; ok {
				return sig, typesystem.Subst{}, true
			}
		}

	case typesystem.TVar:
		if t.Constraint != nil {
			return r.Method(t.Constraint, name)
		}

	case typesystem.TStruct:
		if proc, ok := t.Member(name); ok {
			return &MethodSig{Name: name, Params: proc.Params, Return: proc.Return}, typesystem.Subst{}, true
		}
	}

	if sig, ok := r.universal[name]; ok {
		return sig, typesystem.Subst{}, true
	}
	return nil, nil, false
}

func (r *Registry) classMethod(class string, args []typesystem.Type, name string, seen map[string]bool) (*MethodSig, typesystem.Subst, bool) {
	if seen[class] {
		return nil, nil, false
	}
	seen[class] = true

	info, ok := r.Classes[class]
	if !ok {
		return nil, nil, false
	}
	sub := ParamSubst(info.TypeParams, args)

	if sig, ok := info.Methods[name]; ok {
		return sig, sub, true
	}
	for _, mod := range info.Includes {
		if m, ok := r.Modules[mod]; ok {
			if sig, ok := m.Methods[name]; ok {
				return sig, sub, true
			}
		}
	}
	if info.Super != "" {
		return r.classMethod(info.Super, nil, name, seen)
	}
	return nil, nil, false
}

// UnimplementedAbstract lists the abstract members a class would leave
// without a concrete body, own declarations included, sorted by name.
// Instantiating such a class is a conformance error.
func (r *Registry) UnimplementedAbstract(class string) []string {
	state := make(map[string]bool)
	r.collectAbstract(class, state, make(map[string]bool))

	var missing []string
	for name, abstract := range state {
		if abstract {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// collectAbstract walks from the root of the hierarchy down so that a
// concrete override in a subclass clears an ancestor's abstract mark.
func (r *Registry) collectAbstract(class string, state map[string]bool, seen map[string]bool) {
	if seen[class] {
		return
	}
	seen[class] = true

	info, ok := r.Classes[class]
	if !ok {
		return
	}
	if info.Super != "" {
		r.collectAbstract(info.Super, state, seen)
	}
	for _, mod := range info.Includes {
		if m, ok := r.Modules[mod]; ok {
			for name, sig := range m.Methods {
				state[name] = sig.Abstract
			}
		}
	}
	for name, sig := range info.Methods {
		state[name] = sig.Abstract
	}
}

// ParamSubst binds declared type parameters to the supplied arguments.
// Extra parameters stay free, extra arguments are ignored; arity
// defects are reported where the type was written.
func ParamSubst(params []typesystem.TVar, args []typesystem.Type) typesystem.Subst {
	sub := make(typesystem.Subst)
	for i, p := range params {
		if i < len(args) {
			sub[p.Name] = args[i]
		}
	}
	return sub
}
