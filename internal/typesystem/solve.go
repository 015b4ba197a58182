package typesystem

import "fmt"

// Unify matches a declared parameter type against the type of the
// argument supplied for it, extending sub with the type variable
// bindings the match forces.
//
// A variable observed more than once accumulates a union of the observed
// types; when it declares a bound, every observation must satisfy the
// bound on its own. Unification never mutates sub, it returns the
// extended substitution.
func Unify(param, arg Type, sub Subst, r Resolver) (Subst, error) {
	switch p := param.(type) {
	case TVar:
		return bindVar(p, arg, sub, r)

	case TUnion:
		applied := p.Apply(sub)
		if IsSubtype(arg, applied, r) {
			return sub, nil
		}
		au, ok := applied.(TUnion)
		if !ok {
			return Unify(applied, arg, sub, r)
		}
		for _, m := range au.Types {
			if next, err := Unify(m, arg, sub, r); err == nil {
				return next, nil
			}
		}
		return nil, errMismatch(applied, arg)

	case TApp:
		if a, ok := arg.(TApp); ok && a.Name == p.Name && len(a.Args) == len(p.Args) {
			return unifyAll(p.Args, a.Args, sub, r)
		}

	case TClass:
		if a, ok := arg.(TClass); ok {
			if inst, found := findAncestor(a, p.Name, r); found && len(inst.Args) == len(p.Args) {
				return unifyAll(p.Args, inst.Args, sub, r)
			}
		}

	case TProc:
		if a, ok := arg.(TProc); ok && len(a.Params) == len(p.Params) {
			next, err := unifyAll(p.Params, a.Params, sub, r)
			if err != nil {
				return nil, err
			}
			return Unify(p.Return, a.Return, next, r)
		}
	}

	applied := param.Apply(sub)
	if IsSubtype(arg, applied, r) {
		return sub, nil
	}
	return nil, errMismatch(applied, arg)
}

func unifyAll(params, args []Type, sub Subst, r Resolver) (Subst, error) {
	next := sub
	for i := range params {
		var err error
		next, err = Unify(params[i], args[i], next, r)
		if err != nil {
			return nil, err
		}
	}
	return next, nil
}

func bindVar(v TVar, arg Type, sub Subst, r Resolver) (Subst, error) {
	if arg.String() == v.Name {
		return sub, nil
	}
	if occursIn(v.Name, arg) {
		return nil, errOccurs(v, arg)
	}
	if v.Constraint != nil && !IsSubtype(arg, v.Constraint, r) {
		return nil, NewConstraintError(v, arg)
	}
	next := make(Subst, len(sub)+1)
	for k, t := range sub {
		next[k] = t
	}
	if existing, ok := sub[v.Name]; ok {
		next[v.Name] = NormalizeUnion([]Type{existing, arg})
	} else {
		next[v.Name] = arg
	}
	return next, nil
}

// OccursCheck reports whether the named variable appears free in t,
// which would make a binding self-referential.
func OccursCheck(name string, t Type) bool {
	return occursIn(name, t)
}

func occursIn(name string, t Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if v.Name == name {
			return true
		}
	}
	return false
}

// findAncestor walks the nominal hierarchy of c breadth-first and
// returns the instantiation of the named class it reaches, if any.
func findAncestor(c TClass, name string, r Resolver) (TClass, bool) {
	if c.Name == name {
		return c, true
	}
	if r == nil {
		return TClass{}, false
	}
	seen := map[string]bool{c.Name: true}
	queue := r.SupersOf(c.Name, c.Args)
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		parent, ok := t.(TClass)
		if !ok {
			continue
		}
		if parent.Name == name {
			return parent, true
		}
		if seen[parent.Name] {
			continue
		}
		seen[parent.Name] = true
		queue = append(queue, r.SupersOf(parent.Name, parent.Args)...)
	}
	return TClass{}, false
}

func errMismatch(param, arg Type) error {
	return fmt.Errorf("cannot use %s where %s is expected", arg, param)
}

func errOccurs(v TVar, t Type) error {
	return fmt.Errorf("cannot bind %s to %s: the variable occurs in the type", v.Name, t)
}
