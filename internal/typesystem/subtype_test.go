package typesystem

import (
	"testing"
)

// hierarchyResolver serves a fixed test hierarchy:
//
//	Admin < User < Entity
//	Box<T> implements Stackable<T>
//
// and gives User a structural surface of name(): String.
type hierarchyResolver struct{}

func (hierarchyResolver) SupersOf(name string, args []Type) []Type {
	switch name {
	case "Admin":
		return []Type{TClass{Name: "User"}}
	case "User":
		return []Type{TClass{Name: "Entity"}}
	case "Box":
		return []Type{TClass{Name: "Stackable", Args: args}}
	}
	return nil
}

func (hierarchyResolver) MemberSignature(recv Type, member string) (TProc, bool) {
	c, ok := recv.(TClass)
	if !ok {
		return TProc{}, false
	}
	if (c.Name == "User" || c.Name == "Admin") && member == "name" {
		return TProc{Return: StringType}, true
	}
	return TProc{}, false
}

func TestIsSubtype(t *testing.T) {
	strOrNil := NormalizeUnion([]Type{StringType, NilType})
	strIntNil := NormalizeUnion([]Type{StringType, IntegerType, NilType})

	tests := []struct {
		name  string
		sub   Type
		super Type
		want  bool
	}{
		{"reflexive primitive", StringType, StringType, true},
		{"reflexive container", TApp{Name: "Array", Args: []Type{IntegerType}}, TApp{Name: "Array", Args: []Type{IntegerType}}, true},
		{"reflexive union", strOrNil, strOrNil, true},
		{"distinct primitives", StringType, IntegerType, false},
		{"integer does not widen to float", IntegerType, FloatType, false},

		{"literal into its base", TLit{Value: "a", Base: "String"}, StringType, true},
		{"literal into another base", TLit{Value: "a", Base: "String"}, SymbolType, false},
		{"base not into literal", StringType, TLit{Value: "a", Base: "String"}, false},
		{"literal into union of base", TLit{Value: int64(1), Base: "Integer"}, strIntNil, true},

		{"member into union", StringType, strOrNil, true},
		{"non-member into union", IntegerType, strOrNil, false},
		{"union subset into union", strOrNil, strIntNil, true},
		{"union superset rejected", strIntNil, strOrNil, false},
		{"union into single type", NormalizeUnion([]Type{TLit{Value: "a", Base: "String"}, TLit{Value: "b", Base: "String"}}), StringType, true},

		{"poison absorbs as sub", ErrorType, StringType, true},
		{"poison absorbs as super", StringType, ErrorType, true},

		{
			"container argument covariance",
			TApp{Name: "Array", Args: []Type{IntegerType}},
			TApp{Name: "Array", Args: []Type{NormalizeUnion([]Type{IntegerType, NilType})}},
			true,
		},
		{
			"container argument widening rejected",
			TApp{Name: "Array", Args: []Type{NormalizeUnion([]Type{IntegerType, NilType})}},
			TApp{Name: "Array", Args: []Type{IntegerType}},
			false,
		},
		{
			"distinct containers",
			TApp{Name: "Array", Args: []Type{IntegerType}},
			TApp{Name: "Set", Args: []Type{IntegerType}},
			false,
		},

		{
			"proc parameters are contravariant",
			TProc{Params: []Type{NormalizeUnion([]Type{IntegerType, NilType})}, Return: StringType},
			TProc{Params: []Type{IntegerType}, Return: StringType},
			true,
		},
		{
			"proc parameter narrowing rejected",
			TProc{Params: []Type{IntegerType}, Return: StringType},
			TProc{Params: []Type{NormalizeUnion([]Type{IntegerType, NilType})}, Return: StringType},
			false,
		},
		{
			"proc return is covariant",
			TProc{Return: TLit{Value: "ok", Base: "String"}},
			TProc{Return: StringType},
			true,
		},
		{
			"proc arity mismatch",
			TProc{Params: []Type{IntegerType}, Return: StringType},
			TProc{Return: StringType},
			false,
		},

		{
			"bounded variable into its bound",
			TVar{Name: "T", Constraint: TClass{Name: "Entity"}},
			TClass{Name: "Entity"},
			true,
		},
		{
			"unbounded variable only matches itself",
			TVar{Name: "T"},
			StringType,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSubtype(tt.sub, tt.super, nil); got != tt.want {
				t.Errorf("IsSubtype(%s, %s) = %v, want %v", tt.sub, tt.super, got, tt.want)
			}
		})
	}
}

func TestIsSubtype_Nominal(t *testing.T) {
	r := hierarchyResolver{}

	tests := []struct {
		name  string
		sub   Type
		super Type
		want  bool
	}{
		{"direct superclass", TClass{Name: "Admin"}, TClass{Name: "User"}, true},
		{"transitive superclass", TClass{Name: "Admin"}, TClass{Name: "Entity"}, true},
		{"supertype is not a subtype", TClass{Name: "User"}, TClass{Name: "Admin"}, false},
		{"unrelated classes", TClass{Name: "User"}, TClass{Name: "Box", Args: []Type{IntegerType}}, false},
		{
			"interface instantiation through the hierarchy",
			TClass{Name: "Box", Args: []Type{IntegerType}},
			TClass{Name: "Stackable", Args: []Type{IntegerType}},
			true,
		},
		{
			"interface instantiation with the wrong argument",
			TClass{Name: "Box", Args: []Type{IntegerType}},
			TClass{Name: "Stackable", Args: []Type{StringType}},
			false,
		},
		{
			"class into union of classes",
			TClass{Name: "Admin"},
			NormalizeUnion([]Type{TClass{Name: "User"}, NilType}),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSubtype(tt.sub, tt.super, r); got != tt.want {
				t.Errorf("IsSubtype(%s, %s) = %v, want %v", tt.sub, tt.super, got, tt.want)
			}
		})
	}
}

func TestIsSubtype_Structural(t *testing.T) {
	r := hierarchyResolver{}
	named := TStruct{Members: []StructMember{
		{Name: "name", Sig: TProc{Return: StringType}},
	}}
	sized := TStruct{Members: []StructMember{
		{Name: "size", Sig: TProc{Return: IntegerType}},
	}}

	if !IsSubtype(TClass{Name: "User"}, named, r) {
		t.Errorf("User should satisfy %s", named)
	}
	if IsSubtype(TClass{Name: "User"}, sized, r) {
		t.Errorf("User should not satisfy %s", sized)
	}

	both := TStruct{Members: []StructMember{
		{Name: "name", Sig: TProc{Return: StringType}},
		{Name: "size", Sig: TProc{Return: IntegerType}},
	}}
	if !IsSubtype(both, named, nil) {
		t.Errorf("a wider structural type should satisfy a narrower one")
	}
	if IsSubtype(named, both, nil) {
		t.Errorf("a narrower structural type should not satisfy a wider one")
	}
	if IsSubtype(named, TClass{Name: "User"}, r) {
		t.Errorf("a structural type never satisfies a nominal expectation")
	}
}

func TestIsSubtype_Transitive(t *testing.T) {
	a := TLit{Value: "a", Base: "String"}
	b := StringType
	c := NormalizeUnion([]Type{StringType, NilType})

	if !IsSubtype(a, b, nil) || !IsSubtype(b, c, nil) {
		t.Fatalf("premise chain failed")
	}
	if !IsSubtype(a, c, nil) {
		t.Errorf("subtyping should be transitive: %s <: %s <: %s", a, b, c)
	}
}
