package typesystem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Type is the interface implemented by every type in the checker.
type Type interface {
	String() string
	Apply(s Subst) Type
	FreeTypeVariables() []TVar
}

// TCon is a primitive type constant: String, Integer, Float, Bool,
// Symbol, Nil or Void.
type TCon struct {
	Name string
}

func (t TCon) String() string {
	return t.Name
}

func (t TCon) Apply(s Subst) Type {
	return t
}

func (t TCon) FreeTypeVariables() []TVar {
	return nil
}

// TLit is a literal type: the singleton type of one value, such as "asc",
// 404, :desc or true. Base names the primitive the value belongs to, so
// :asc (Base "Symbol") and "asc" (Base "String") stay distinct.
type TLit struct {
	Value interface{}
	Base  string
}

func (t TLit) String() string {
	switch t.Base {
	case "String":
		return strconv.Quote(t.Value.(string))
	case "Symbol":
		return ":" + t.Value.(string)
	case "Integer":
		return strconv.FormatInt(t.Value.(int64), 10)
	case "Bool":
		if t.Value.(bool) {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%v", t.Value)
}

func (t TLit) Apply(s Subst) Type {
	return t
}

func (t TLit) FreeTypeVariables() []TVar {
	return nil
}

// TUnion is a set of at least two alternatives. Unions are only built
// through NormalizeUnion, which flattens, dedups and orders the members,
// so two equal unions always render to the same string.
type TUnion struct {
	Types []Type
}

func (t TUnion) String() string {
	parts := make([]string, len(t.Types))
	for i, m := range t.Types {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

func (t TUnion) Apply(s Subst) Type {
	applied := make([]Type, len(t.Types))
	for i, m := range t.Types {
		applied[i] = m.Apply(s)
	}
	return NormalizeUnion(applied)
}

func (t TUnion) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, m := range t.Types {
		vars = append(vars, m.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TApp is a parameterized built-in container: Array<Integer>,
// Hash<String, User>, Set<Symbol>, Range<Integer>.
type TApp struct {
	Name string
	Args []Type
}

func (t TApp) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	return t.Name + "<" + joinTypes(t.Args) + ">"
}

func (t TApp) Apply(s Subst) Type {
	return TApp{Name: t.Name, Args: applyAll(t.Args, s)}
}

func (t TApp) FreeTypeVariables() []TVar {
	return freeInAll(t.Args)
}

// TClass is a declared class, interface or module reference, with type
// arguments when the declaration is generic: User, Stack<Integer>.
type TClass struct {
	Name string
	Args []Type
}

func (t TClass) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	return t.Name + "<" + joinTypes(t.Args) + ">"
}

func (t TClass) Apply(s Subst) Type {
	return TClass{Name: t.Name, Args: applyAll(t.Args, s)}
}

func (t TClass) FreeTypeVariables() []TVar {
	return freeInAll(t.Args)
}

// TProc is a block or proc type. The surface syntax Proc<A, B, R> lists
// the parameter types first and the return type last.
type TProc struct {
	Params []Type
	Return Type
}

func (t TProc) String() string {
	parts := make([]string, 0, len(t.Params)+1)
	for _, p := range t.Params {
		parts = append(parts, p.String())
	}
	parts = append(parts, t.Return.String())
	return "Proc<" + strings.Join(parts, ", ") + ">"
}

func (t TProc) Apply(s Subst) Type {
	return TProc{Params: applyAll(t.Params, s), Return: t.Return.Apply(s)}
}

func (t TProc) FreeTypeVariables() []TVar {
	vars := freeInAll(t.Params)
	vars = append(vars, t.Return.FreeTypeVariables()...)
	return uniqueTVars(vars)
}

// StructMember is one required method of a structural type.
type StructMember struct {
	Name string
	Sig  TProc
}

// TStruct is an anonymous structural type: any value whose class provides
// all the listed members conforms, regardless of its nominal ancestry.
type TStruct struct {
	Members []StructMember
}

func (t TStruct) String() string {
	members := make([]StructMember, len(t.Members))
	copy(members, t.Members)
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = fmt.Sprintf("def %s(%s): %s", m.Name, joinTypes(m.Sig.Params), m.Sig.Return)
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func (t TStruct) Apply(s Subst) Type {
	members := make([]StructMember, len(t.Members))
	for i, m := range t.Members {
		members[i] = StructMember{Name: m.Name, Sig: m.Sig.Apply(s).(TProc)}
	}
	return TStruct{Members: members}
}

func (t TStruct) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, m := range t.Members {
		vars = append(vars, m.Sig.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// Member returns the named member signature, if present.
func (t TStruct) Member(name string) (TProc, bool) {
	for _, m := range t.Members {
		if m.Name == name {
			return m.Sig, true
		}
	}
	return TProc{}, false
}

// TVar is a type variable introduced by a generic declaration, optionally
// carrying a declared upper bound. Variables exist only while a generic
// signature is being solved; a fully checked program never retains one.
type TVar struct {
	Name       string
	Constraint Type
}

func (t TVar) String() string {
	return t.Name
}

func (t TVar) Apply(s Subst) Type {
	if replacement, ok := s[t.Name]; ok {
		return replacement
	}
	return t
}

func (t TVar) FreeTypeVariables() []TVar {
	return []TVar{t}
}

// TError is the poison type produced when checking fails. It is both a
// subtype and a supertype of every type, so one defect reports once
// instead of cascading through everything downstream of it.
type TError struct{}

func (t TError) String() string {
	return "<error>"
}

func (t TError) Apply(s Subst) Type {
	return t
}

func (t TError) FreeTypeVariables() []TVar {
	return nil
}

// Primitive constants shared across the checker.
var (
	StringType  = TCon{Name: "String"}
	IntegerType = TCon{Name: "Integer"}
	FloatType   = TCon{Name: "Float"}
	BoolType    = TCon{Name: "Bool"}
	SymbolType  = TCon{Name: "Symbol"}
	NilType     = TCon{Name: "Nil"}
	VoidType    = TCon{Name: "Void"}
	ErrorType   = TError{}
)

// Subst maps type variable names to types.
type Subst map[string]Type

// Compose applies s2 to the types in s and merges the two substitutions.
// Entries of s win on key collisions.
func (s Subst) Compose(s2 Subst) Subst {
	result := make(Subst)
	for k, v := range s2 {
		result[k] = v
	}
	for k, v := range s {
		result[k] = v.Apply(s2)
	}
	return result
}

// InvariantViolation reports a broken precondition inside the checker
// itself, such as an empty union. It is raised with panic and recovered
// at the file boundary, where it surfaces as an internal error.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string {
	return e.Msg
}

// NormalizeUnion builds the canonical form of a union:
//
//   - nested unions are flattened into one member set
//   - a union containing the poison type collapses to it
//   - a literal is dropped when its base primitive is also a member
//   - structurally equal members are deduplicated
//   - a single surviving member is returned bare, not wrapped
//   - members are ordered primitives first, then literals, then
//     composites, each group sorted by canonical rendering
//
// An empty member set has no meaning and raises an InvariantViolation.
func NormalizeUnion(types []Type) Type {
	flat := flattenUnion(types, nil)

	for _, t := range flat {
		if _, ok := t.(TError); ok {
			return TError{}
		}
	}

	prims := make(map[string]bool)
	for _, t := range flat {
		if c, ok := t.(TCon); ok {
			prims[c.Name] = true
		}
	}

	seen := make(map[string]bool)
	var kept []Type
	for _, t := range flat {
		if l, ok := t.(TLit); ok && prims[l.Base] {
			continue
		}
		key := t.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, t)
	}

	if len(kept) == 0 {
		panic(&InvariantViolation{Msg: "union normalized to zero members"})
	}
	if len(kept) == 1 {
		return kept[0]
	}

	sort.SliceStable(kept, func(i, j int) bool {
		ri, rj := unionRank(kept[i]), unionRank(kept[j])
		if ri != rj {
			return ri < rj
		}
		return kept[i].String() < kept[j].String()
	})
	return TUnion{Types: kept}
}

func flattenUnion(types []Type, out []Type) []Type {
	for _, t := range types {
		if u, ok := t.(TUnion); ok {
			out = flattenUnion(u.Types, out)
			continue
		}
		out = append(out, t)
	}
	return out
}

func unionRank(t Type) int {
	switch t.(type) {
	case TCon:
		return 0
	case TLit:
		return 1
	default:
		return 2
	}
}

func joinTypes(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func applyAll(types []Type, s Subst) []Type {
	applied := make([]Type, len(types))
	for i, t := range types {
		applied[i] = t.Apply(s)
	}
	return applied
}

func freeInAll(types []Type) []TVar {
	var vars []TVar
	for _, t := range types {
		vars = append(vars, t.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

func uniqueTVars(vars []TVar) []TVar {
	seen := make(map[string]bool)
	var result []TVar
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			result = append(result, v)
		}
	}
	return result
}
