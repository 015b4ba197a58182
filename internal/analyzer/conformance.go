package analyzer

import (
	"sort"

	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/symbols"
	"github.com/trubylang/truby/internal/token"
	"github.com/trubylang/truby/internal/typesystem"
)

// checkConformance verifies every class against the interfaces it
// declares. The check is structural over signatures: parameters are
// contravariant and returns covariant, with the interface's type
// parameters instantiated by the implements clause. Inherited and
// mixed-in methods count.
func (c *checker) checkConformance() {
	names := make([]string, 0, len(c.reg.Classes))
	for name := range c.reg.Classes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := c.reg.Classes[name]
		if info.Node == nil || len(info.Interfaces) == 0 {
			continue
		}
		selfT := c.classSelf(info)
		for _, iface := range info.Interfaces {
			c.checkInterfaceConformance(info, selfT, iface)
		}
	}
}

func (c *checker) classSelf(info *symbols.ClassInfo) typesystem.TClass {
	var args []typesystem.Type
	for _, tv := range info.TypeParams {
		args = append(args, typesystem.Type(tv))
	}
	return typesystem.TClass{Name: info.Name, Args: args}
}

func (c *checker) checkInterfaceConformance(info *symbols.ClassInfo, selfT typesystem.TClass, iface typesystem.TClass) {
	idef, ok := c.reg.Interfaces[iface.Name]
	if !ok {
		// already reported while resolving the implements clause
		return
	}
	isub := symbols.ParamSubst(idef.TypeParams, iface.Args)

	mnames := make([]string, 0, len(idef.Methods))
	for m := range idef.Methods {
		mnames = append(mnames, m)
	}
	sort.Strings(mnames)

	for _, mname := range mnames {
		want := idef.Methods[mname]
		impl, implSub, found := c.reg.Method(selfT, mname)
		if !found {
			c.addError(diagnostics.ErrT005, nodeToken(info.Node),
				"class '%s' does not implement '%s' required by interface '%s'",
				info.Name, mname, iface.Name)
			continue
		}
		tok := c.implToken(info, mname)
		if len(impl.Params) != len(want.Params) {
			c.addError(diagnostics.ErrT005, tok,
				"method '%s' of '%s' takes %d parameters, interface '%s' requires %d",
				mname, info.Name, len(impl.Params), iface.Name, len(want.Params))
			continue
		}
		for i := range want.Params {
			wp := want.Params[i].Apply(isub)
			ip := impl.Params[i].Apply(implSub)
			if !typesystem.IsSubtype(wp, ip, c.reg) {
				c.addError(diagnostics.ErrT005, tok,
					"method '%s' of '%s': parameter %d has type %s, cannot accept the %s required by interface '%s'",
					mname, info.Name, i+1, ip, wp, iface.Name)
			}
		}
		wantRet := retOrVoid(want).Apply(isub)
		implRet := retOrVoid(impl).Apply(implSub)
		if !isVoid(wantRet) && !typesystem.IsSubtype(implRet, wantRet, c.reg) {
			c.addError(diagnostics.ErrT005, tok,
				"method '%s' of '%s' returns %s, interface '%s' requires %s",
				mname, info.Name, implRet, iface.Name, wantRet)
		}
	}
}

// implToken points at the implementing def when the class declares it
// itself, else at the class header for inherited implementations.
func (c *checker) implToken(info *symbols.ClassInfo, mname string) token.Token {
	if own, ok := info.Methods[mname]; ok && own.Node != nil {
		return nodeToken(own.Node)
	}
	return nodeToken(info.Node)
}

func retOrVoid(sig *symbols.MethodSig) typesystem.Type {
	if sig.Return != nil {
		return sig.Return
	}
	return typesystem.VoidType
}
