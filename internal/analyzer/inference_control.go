package analyzer

import (
	"sort"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/symbols"
	"github.com/trubylang/truby/internal/typesystem"
)

// branchJoin merges the effects of mutually exclusive arms. Each arm
// sees the narrowing state from before the construct and leaves behind
// an exit state; afterwards every existing local holds the union of the
// exit states of the arms that fall through. Locals a branch introduces
// become visible afterwards with Nil added when some arm skipped the
// assignment.
type branchJoin struct {
	c     *checker
	snap  symbols.NarrowSnapshot
	known map[*symbols.Binding]bool
	arms  []joinArm
}

type joinArm struct {
	terminated bool
	// exit records the effective type of every pre-existing binding at
	// the end of the arm, assignments and narrowing folded in alike.
	exit     map[*symbols.Binding]typesystem.Type
	touched  map[*symbols.Binding]bool
	declared map[string]typesystem.Type
}

func (c *checker) beginBranches() *branchJoin {
	snap := c.env.SnapshotNarrowing()
	known := make(map[*symbols.Binding]bool, len(snap))
	for b := range snap {
		known[b] = true
	}
	return &branchJoin{c: c, snap: snap, known: known}
}

func (j *branchJoin) beginArm() {
	j.c.pushAssign()
}

// endArm closes the current arm: locals it declared are retracted so a
// sibling arm cannot see them, and the narrowing state rolls back to
// the join's entry point.
func (j *branchJoin) endArm(terminated bool) {
	frame := j.c.popAssign()
	arm := joinArm{
		terminated: terminated,
		exit:       make(map[*symbols.Binding]typesystem.Type, len(j.known)),
		touched:    make(map[*symbols.Binding]bool),
		declared:   make(map[string]typesystem.Type),
	}
	for b := range j.known {
		arm.exit[b] = b.Effective()
	}
	for b := range frame {
		if j.known[b] {
			arm.touched[b] = true
		} else {
			arm.declared[b.Name] = b.Declared
			j.c.env.Remove(b.Name)
		}
	}
	j.snap.Restore()
	j.arms = append(j.arms, arm)
}

func (j *branchJoin) merge() {
	var reachable []joinArm
	for _, arm := range j.arms {
		if !arm.terminated {
			reachable = append(reachable, arm)
		}
	}
	if len(reachable) == 0 {
		return
	}

	// a binding joins when some arm assigned it, or when an arm's exit
	// state differs from the entry state (a refuting condition with no
	// assignment at all, say)
	candidates := make(map[*symbols.Binding]bool)
	for _, arm := range reachable {
		for b := range arm.touched {
			candidates[b] = true
		}
		for b, t := range arm.exit {
			if t.String() != j.entryEffective(b).String() {
				candidates[b] = true
			}
		}
	}
	for b := range candidates {
		types := make([]typesystem.Type, 0, len(reachable))
		for _, arm := range reachable {
			types = append(types, arm.exit[b])
		}
		merged := typesystem.NormalizeUnion(types)
		if merged.String() == b.Declared.String() {
			b.Narrowed = nil
		} else {
			b.Narrowed = merged
		}
		j.c.recordBinding(b, merged)
	}

	perName := make(map[string][]typesystem.Type)
	for _, arm := range reachable {
		for name, t := range arm.declared {
			perName[name] = append(perName[name], t)
		}
	}
	names := make([]string, 0, len(perName))
	for name := range perName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		types := perName[name]
		if len(types) < len(reachable) {
			types = append(types, typesystem.NilType)
		}
		merged := typesystem.NormalizeUnion(types)
		if err := j.c.env.Declare(name, merged, nil); err != nil {
			continue
		}
		if b, ok := j.c.env.Lookup(name); ok {
			j.c.recordBinding(b, merged)
		}
	}
}

func (j *branchJoin) entryEffective(b *symbols.Binding) typesystem.Type {
	if t := j.snap[b]; t != nil {
		return t
	}
	return b.Declared
}

// checkIf types both arms under the condition's narrowing and joins
// them. When exactly one arm terminates, the other arm's facts survive
// the statement, which is what makes early-return guard clauses work.
func (c *checker) checkIf(n *ast.IfExpression) (typesystem.Type, bool) {
	c.synthesize(n.Condition)
	thenPos := !n.Unless

	j := c.beginBranches()

	j.beginArm()
	c.narrowCond(n.Condition, thenPos)
	thenT, thenTerm := c.checkBlock(n.Consequence)
	j.endArm(thenTerm)

	j.beginArm()
	c.narrowCond(n.Condition, !thenPos)
	elseT, elseTerm := typesystem.Type(typesystem.NilType), false
	if n.Alternative != nil {
		elseT, elseTerm = c.checkBlock(n.Alternative)
	}
	j.endArm(elseTerm)

	j.merge()

	switch {
	case thenTerm && elseTerm:
		return typesystem.VoidType, true
	case thenTerm:
		c.narrowCond(n.Condition, !thenPos)
		return elseT, false
	case elseTerm:
		c.narrowCond(n.Condition, thenPos)
		return thenT, false
	}
	return typesystem.NormalizeUnion([]typesystem.Type{thenT, elseT}), false
}

// checkCase types a when ladder. Class guards narrow the subject inside
// their arm and subtract from the domain the later arms and the else
// see; literal guards narrow without subtracting, since matching 1 does
// not exhaust Integer. Matching nil does exhaust Nil, so a nil arm
// subtracts too.
func (c *checker) checkCase(n *ast.CaseExpression) (typesystem.Type, bool) {
	subjType := c.synthesize(n.Subject)

	subjName := ""
	if id, ok := n.Subject.(*ast.Identifier); ok {
		if _, found := c.env.Lookup(id.Value); found {
			subjName = id.Value
		}
	}

	remaining := subjType
	j := c.beginBranches()
	var parts []typesystem.Type
	allTerm := true

	for _, when := range n.Whens {
		guard, subtracts := c.classifyMatches(when.Matches)
		j.beginArm()
		if subjName != "" && guard != nil {
			c.env.Narrow(subjName, typesystem.Intersect(remaining, guard, c.reg))
		}
		t, term := c.checkBlock(when.Body)
		j.endArm(term)
		if !term {
			parts = append(parts, t)
			allTerm = false
		}
		if guard != nil && subtracts {
			remaining = typesystem.Subtract(remaining, guard, c.reg)
		}
	}

	if n.Alternative != nil {
		j.beginArm()
		if subjName != "" {
			c.env.Narrow(subjName, remaining)
		}
		t, term := c.checkBlock(n.Alternative)
		j.endArm(term)
		if !term {
			parts = append(parts, t)
			allTerm = false
		}
	} else {
		// no else clause: the fall-through path still refutes the
		// class guards that were matched above
		j.beginArm()
		if subjName != "" {
			c.env.Narrow(subjName, remaining)
		}
		j.endArm(false)
		parts = append(parts, typesystem.NilType)
		allTerm = false
	}

	j.merge()

	if allTerm {
		return typesystem.VoidType, true
	}
	return typesystem.NormalizeUnion(parts), false
}

// classifyMatches turns one when clause's match list into a narrowing
// guard. The bool reports whether the guard exhausts what it matches
// and may be subtracted from the subject's remaining domain.
func (c *checker) classifyMatches(matches []ast.Expression) (typesystem.Type, bool) {
	if len(matches) == 0 {
		return nil, false
	}
	allRefs, allLits := true, true
	for _, m := range matches {
		switch m.(type) {
		case *ast.ConstantRef:
			allLits = false
		case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.StringLiteral,
			*ast.SymbolLiteral, *ast.BooleanLiteral, *ast.NilLiteral:
			allRefs = false
		default:
			allRefs, allLits = false, false
		}
	}
	switch {
	case allRefs:
		var parts []typesystem.Type
		for _, m := range matches {
			ref := m.(*ast.ConstantRef)
			if g := c.guardTypeOf(ref); g != nil {
				c.setType(ref, g)
				parts = append(parts, g)
			} else {
				c.addError(diagnostics.ErrT002, ref.GetToken(), "unknown type '%s'", ref.Name)
				parts = append(parts, typesystem.ErrorType)
			}
		}
		return typesystem.NormalizeUnion(parts), true
	case allLits:
		var parts []typesystem.Type
		for _, m := range matches {
			parts = append(parts, c.synthesize(m))
		}
		merged := typesystem.NormalizeUnion(parts)
		return merged, isNilType(merged)
	}
	if len(matches) == 1 {
		if rng, ok := matches[0].(*ast.RangeLiteral); ok {
			t := c.synthesize(rng)
			if app, ok := t.(typesystem.TApp); ok && len(app.Args) == 1 {
				return app.Args[0], false
			}
			return nil, false
		}
	}
	for _, m := range matches {
		c.synthesize(m)
	}
	return nil, false
}

// checkWhile types a loop body once under the condition's narrowing.
// The body may run zero or many times, so locals it assigns widen back
// to their declared types afterwards and locals it introduces pick up
// Nil. Without a break, falling out of the loop refutes the condition.
func (c *checker) checkWhile(s *ast.WhileStatement) {
	c.synthesize(s.Condition)

	snap := c.env.SnapshotNarrowing()
	known := make(map[*symbols.Binding]bool, len(snap))
	for b := range snap {
		known[b] = true
	}

	c.pushAssign()
	c.narrowCond(s.Condition, true)
	c.inLoop++
	c.loopBreak = append(c.loopBreak, false)
	c.checkBlock(s.Body)
	sawBreak := c.loopBreak[len(c.loopBreak)-1]
	c.loopBreak = c.loopBreak[:len(c.loopBreak)-1]
	c.inLoop--
	frame := c.popAssign()
	snap.Restore()

	for b := range frame {
		if known[b] {
			b.Narrowed = nil
			c.recordBinding(b, b.Declared)
			continue
		}
		declared := b.Declared
		node := b.Node
		c.env.Remove(b.Name)
		merged := typesystem.NormalizeUnion([]typesystem.Type{declared, typesystem.NilType})
		if err := c.env.Declare(b.Name, merged, node); err != nil {
			continue
		}
		if nb, ok := c.env.Lookup(b.Name); ok {
			c.recordBinding(nb, merged)
		}
	}

	if !sawBreak {
		c.narrowCond(s.Condition, false)
	}
}
