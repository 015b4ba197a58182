package symbols

import (
	"github.com/trubylang/truby/internal/typesystem"
)

// installPrelude fills the registry with the built-in types' method
// surface. Signatures for the containers are written in terms of their
// type parameters; Method substitutes the receiver's arguments in.
//
// is_a?, equality and the boolean operators are not listed here: the
// checker handles them directly because they drive narrowing.
func installPrelude(r *Registry) {
	str := typesystem.StringType
	intT := typesystem.IntegerType
	floatT := typesystem.FloatType
	boolT := typesystem.BoolType
	nilT := typesystem.NilType
	voidT := typesystem.VoidType

	T := typesystem.TVar{Name: "T"}
	U := typesystem.TVar{Name: "U"}
	K := typesystem.TVar{Name: "K"}
	V := typesystem.TVar{Name: "V"}
	tOrNil := typesystem.NormalizeUnion([]typesystem.Type{T, nilT})
	vOrNil := typesystem.NormalizeUnion([]typesystem.Type{V, nilT})
	arrT := typesystem.TApp{Name: "Array", Args: []typesystem.Type{T}}
	setT := typesystem.TApp{Name: "Set", Args: []typesystem.Type{T}}
	rangeT := typesystem.TApp{Name: "Range", Args: []typesystem.Type{T}}

	r.universal["to_s"] = sig("to_s", str)
	r.universal["nil?"] = sig("nil?", boolT)
	r.universal["inspect"] = sig("inspect", str)

	r.builtins["String"] = &builtinType{methods: methodMap(
		sig("length", intT),
		sig("size", intT),
		sig("empty?", boolT),
		sig("to_i", intT),
		sig("to_f", floatT),
		sig("upcase", str),
		sig("downcase", str),
		sig("strip", str),
		sig("include?", boolT, str),
		sig("start_with?", boolT, str),
		sig("end_with?", boolT, str),
		sig("[]", typesystem.NormalizeUnion([]typesystem.Type{str, nilT}), intT),
	)}

	r.builtins["Integer"] = &builtinType{methods: methodMap(
		sig("to_f", floatT),
		sig("abs", intT),
		sig("zero?", boolT),
		sig("succ", intT),
		sig("times", intT, typesystem.TProc{Params: []typesystem.Type{intT}, Return: voidT}),
	)}

	r.builtins["Float"] = &builtinType{methods: methodMap(
		sig("to_i", intT),
		sig("round", intT),
		sig("abs", floatT),
		sig("zero?", boolT),
	)}

	r.builtins["Bool"] = &builtinType{methods: methodMap()}
	r.builtins["Symbol"] = &builtinType{methods: methodMap()}
	r.builtins["Nil"] = &builtinType{methods: methodMap()}

	r.builtins["Array"] = &builtinType{
		typeParams: []typesystem.TVar{T},
		methods: methodMap(
			sig("first", tOrNil),
			sig("last", tOrNil),
			sig("pop", tOrNil),
			sig("push", arrT, T),
			sig("size", intT),
			sig("length", intT),
			sig("empty?", boolT),
			sig("include?", boolT, T),
			sig("join", str, str),
			sig("[]", tOrNil, intT),
			sig("[]=", T, intT, T),
			sig("each", arrT, typesystem.TProc{Params: []typesystem.Type{T}, Return: voidT}),
			gsig("map", []typesystem.TVar{U},
				typesystem.TApp{Name: "Array", Args: []typesystem.Type{U}},
				typesystem.TProc{Params: []typesystem.Type{T}, Return: U}),
			sig("select", arrT, typesystem.TProc{Params: []typesystem.Type{T}, Return: boolT}),
		),
	}

	r.builtins["Hash"] = &builtinType{
		typeParams: []typesystem.TVar{K, V},
		methods: methodMap(
			sig("[]", vOrNil, K),
			sig("[]=", V, K, V),
			sig("keys", typesystem.TApp{Name: "Array", Args: []typesystem.Type{K}}),
			sig("values", typesystem.TApp{Name: "Array", Args: []typesystem.Type{V}}),
			sig("size", intT),
			sig("length", intT),
			sig("empty?", boolT),
			sig("include?", boolT, K),
			sig("key?", boolT, K),
		),
	}

	r.builtins["Set"] = &builtinType{
		typeParams: []typesystem.TVar{T},
		methods: methodMap(
			sig("add", setT, T),
			sig("include?", boolT, T),
			sig("size", intT),
			sig("empty?", boolT),
			sig("each", setT, typesystem.TProc{Params: []typesystem.Type{T}, Return: voidT}),
		),
	}

	r.builtins["Range"] = &builtinType{
		typeParams: []typesystem.TVar{T},
		methods: methodMap(
			sig("each", rangeT, typesystem.TProc{Params: []typesystem.Type{T}, Return: voidT}),
			sig("to_a", arrT),
			sig("include?", boolT, T),
		),
	}

	installExceptions(r)
}

// installExceptions declares the minimal raisable class hierarchy so
// raise sites and rescue-less abstract markers resolve.
func installExceptions(r *Registry) {
	base := &ClassInfo{
		Name: "StandardError",
		Methods: map[string]*MethodSig{
			"initialize": sig("initialize", typesystem.VoidType, typesystem.StringType),
			"message":    sig("message", typesystem.StringType),
		},
		IVars:     map[string]typesystem.Type{},
		ClassVars: map[string]*ClassVar{},
	}
	r.Classes[base.Name] = base

	for _, name := range []string{"NotImplementedError", "ArgumentError", "RuntimeError", "TypeError"} {
		r.Classes[name] = &ClassInfo{
			Name:      name,
			Super:     "StandardError",
			Methods:   map[string]*MethodSig{},
			IVars:     map[string]typesystem.Type{},
			ClassVars: map[string]*ClassVar{},
		}
	}
}

func sig(name string, ret typesystem.Type, params ...typesystem.Type) *MethodSig {
	return &MethodSig{Name: name, Params: params, Return: ret}
}

func gsig(name string, typeParams []typesystem.TVar, ret typesystem.Type, params ...typesystem.Type) *MethodSig {
	return &MethodSig{Name: name, TypeParams: typeParams, Params: params, Return: ret}
}

func methodMap(sigs ...*MethodSig) map[string]*MethodSig {
	m := make(map[string]*MethodSig, len(sigs))
	for _, s := range sigs {
		m[s.Name] = s
	}
	return m
}
