package typesystem

// Resolver supplies the declaration knowledge the pure type algebra does
// not carry: the nominal hierarchy and the members a type responds to.
// The symbol layer implements it; pure algebra tests pass nil and only
// exercise the rules that need no declarations.
type Resolver interface {
	// SupersOf returns the instantiated direct supertypes of the named
	// class: its superclass, its declared interfaces and its included
	// modules, with the class's own type arguments substituted in.
	SupersOf(name string, args []Type) []Type

	// MemberSignature resolves a method on a receiver type. It covers
	// both declared classes and built-in containers.
	MemberSignature(recv Type, member string) (TProc, bool)
}

// IsSubtype reports whether sub can be used where super is expected.
//
// The relation is reflexive, treats the poison type as compatible in both
// directions, admits a literal into its base primitive, and compares
// unions member-wise. Containers and class type arguments are covariant;
// proc parameters are contravariant and proc returns covariant. A
// structural expectation is met by any type whose members cover it.
func IsSubtype(sub, super Type, r Resolver) bool {
	return isSubtype(sub, super, r, make(map[string]bool))
}

func isSubtype(sub, super Type, r Resolver, visited map[string]bool) bool {
	if _, ok := sub.(TError); ok {
		return true
	}
	if _, ok := super.(TError); ok {
		return true
	}
	if sub.String() == super.String() {
		return true
	}

	// Hierarchies may be cyclic through bad input; assume the pending
	// pair holds rather than loop.
	key := sub.String() + " <: " + super.String()
	if visited[key] {
		return true
	}
	visited[key] = true

	if u, ok := sub.(TUnion); ok {
		for _, m := range u.Types {
			if !isSubtype(m, super, r, visited) {
				return false
			}
		}
		return true
	}
	if u, ok := super.(TUnion); ok {
		for _, m := range u.Types {
			if isSubtype(sub, m, r, visited) {
				return true
			}
		}
		return false
	}

	switch s := sub.(type) {
	case TCon:
		if sup, ok := super.(TStruct); ok {
			return conformsStructurally(sub, sup, r, visited)
		}
		return false

	case TLit:
		switch sup := super.(type) {
		case TCon:
			return s.Base == sup.Name
		case TStruct:
			return conformsStructurally(TCon{Name: s.Base}, sup, r, visited)
		}
		return false

	case TVar:
		// A bounded variable is usable wherever its bound is; an
		// unbounded one only matches itself, which equality covered.
		return s.Constraint != nil && isSubtype(s.Constraint, super, r, visited)

	case TApp:
		switch sup := super.(type) {
		case TApp:
			return s.Name == sup.Name && covariantArgs(s.Args, sup.Args, r, visited)
		case TStruct:
			return conformsStructurally(sub, sup, r, visited)
		}
		return false

	case TClass:
		switch sup := super.(type) {
		case TClass:
			if s.Name == sup.Name {
				return covariantArgs(s.Args, sup.Args, r, visited)
			}
			if r == nil {
				return false
			}
			for _, parent := range r.SupersOf(s.Name, s.Args) {
				if isSubtype(parent, super, r, visited) {
					return true
				}
			}
			return false
		case TStruct:
			return conformsStructurally(sub, sup, r, visited)
		}
		return false

	case TProc:
		sup, ok := super.(TProc)
		if !ok || len(s.Params) != len(sup.Params) {
			return false
		}
		for i := range s.Params {
			if !isSubtype(sup.Params[i], s.Params[i], r, visited) {
				return false
			}
		}
		return isSubtype(s.Return, sup.Return, r, visited)

	case TStruct:
		sup, ok := super.(TStruct)
		if !ok {
			return false
		}
		for _, want := range sup.Members {
			have, found := s.Member(want.Name)
			if !found || !isSubtype(have, want.Sig, r, visited) {
				return false
			}
		}
		return true
	}

	return false
}

func covariantArgs(sub, super []Type, r Resolver, visited map[string]bool) bool {
	if len(sub) != len(super) {
		return false
	}
	for i := range sub {
		if !isSubtype(sub[i], super[i], r, visited) {
			return false
		}
	}
	return true
}

func conformsStructurally(sub Type, want TStruct, r Resolver, visited map[string]bool) bool {
	if r == nil {
		return false
	}
	for _, m := range want.Members {
		have, found := r.MemberSignature(sub, m.Name)
		if !found || !isSubtype(have, m.Sig, r, visited) {
			return false
		}
	}
	return true
}
