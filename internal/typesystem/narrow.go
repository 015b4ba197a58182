package typesystem

// Alternatives returns the members of a union, or the type itself as a
// single-element slice when it is not a union.
func Alternatives(t Type) []Type {
	if u, ok := t.(TUnion); ok {
		return u.Types
	}
	return []Type{t}
}

// Intersect narrows declared to the part a passing runtime check for
// guard leaves possible: the union members the guard covers. When no
// declared member overlaps the guard, the guard itself is the result;
// the check passed at runtime, so the checker trusts it.
//
// Guards for generic classes usually arrive bare, as in is_a?(Array),
// and match any instantiation while keeping the member's own arguments.
func Intersect(declared, guard Type, r Resolver) Type {
	var kept []Type
	for _, m := range Alternatives(declared) {
		if covers(guard, m, r, make(map[string]bool)) {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return guard
	}
	return NormalizeUnion(kept)
}

// Subtract narrows declared to the part a failing runtime check for
// guard leaves possible: the union members the guard does not cover.
// When the guard covers everything the declared type is returned
// unchanged rather than producing an uninhabited type.
func Subtract(declared, guard Type, r Resolver) Type {
	members := Alternatives(declared)
	var kept []Type
	for _, m := range members {
		if !covers(guard, m, r, make(map[string]bool)) {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return declared
	}
	if len(kept) == len(members) {
		return declared
	}
	return NormalizeUnion(kept)
}

// covers reports whether a runtime test against guard succeeds for every
// value of type member. Bare generic names match any instantiation;
// everything else defers to the subtype relation.
func covers(guard, member Type, r Resolver, seen map[string]bool) bool {
	switch g := guard.(type) {
	case TApp:
		if len(g.Args) == 0 {
			m, ok := member.(TApp)
			return ok && m.Name == g.Name
		}
	case TClass:
		if len(g.Args) == 0 {
			m, ok := member.(TClass)
			if !ok {
				return false
			}
			if m.Name == g.Name {
				return true
			}
			if r == nil || seen[m.Name] {
				return false
			}
			seen[m.Name] = true
			for _, parent := range r.SupersOf(m.Name, m.Args) {
				if covers(guard, parent, r, seen) {
					return true
				}
			}
			return false
		}
	}
	return IsSubtype(member, guard, r)
}
