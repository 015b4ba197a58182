package symbols

import (
	"fmt"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/typesystem"
)

// ScopeKind tells what language construct opened a frame.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeClass
	ScopeMethod
	ScopeBlock
)

// Binding is one named slot in a frame. Declared never changes after
// declaration; Narrowed carries the flow-sensitive refinement and is
// nil when no guard currently applies.
type Binding struct {
	Name     string
	Declared typesystem.Type
	Narrowed typesystem.Type
	Node     ast.Node // declaration site
}

// Effective returns the narrowed type when one applies, else the
// declared type.
func (b *Binding) Effective() typesystem.Type {
	if b.Narrowed != nil {
		return b.Narrowed
	}
	return b.Declared
}

// DuplicateError reports a second declaration of a name in one frame.
type DuplicateError struct {
	Name string
	Prev *Binding
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("'%s' is already declared in this scope", e.Name)
}

// Environment is one frame of the lexical scope stack. Lookups walk
// outward through the parent chain; declarations always land in the
// innermost frame. Method bodies start a fresh chain, matching the host
// language's rule that defs do not close over surrounding locals, while
// blocks chain to their enclosing frame and do.
type Environment struct {
	bindings map[string]*Binding
	outer    *Environment
	kind     ScopeKind
}

func NewEnvironment() *Environment {
	return &Environment{bindings: make(map[string]*Binding), kind: ScopeGlobal}
}

func NewEnclosedEnvironment(outer *Environment, kind ScopeKind) *Environment {
	return &Environment{bindings: make(map[string]*Binding), outer: outer, kind: kind}
}

func (e *Environment) Kind() ScopeKind {
	return e.kind
}

func (e *Environment) Outer() *Environment {
	return e.outer
}

// Declare adds a new binding to this frame. Redeclaring a name this
// frame already owns fails; shadowing an outer frame's name does not.
func (e *Environment) Declare(name string, t typesystem.Type, node ast.Node) error {
	if prev, ok := e.bindings[name]; ok {
		return &DuplicateError{Name: name, Prev: prev}
	}
	e.bindings[name] = &Binding{Name: name, Declared: t, Node: node}
	return nil
}

// Lookup finds the binding for name, walking outward through parents.
func (e *Environment) Lookup(name string) (*Binding, bool) {
	for env := e; env != nil; env = env.outer {
		if b, ok := env.bindings[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Resolve returns the type name currently has: narrowed when a guard
// applies, declared otherwise.
func (e *Environment) Resolve(name string) (typesystem.Type, bool) {
	b, ok := e.Lookup(name)
	if !ok {
		return nil, false
	}
	return b.Effective(), true
}

// Narrow refines name in the frame that owns it. Guards never introduce
// bindings, so narrowing an unknown name is a no-op.
func (e *Environment) Narrow(name string, t typesystem.Type) {
	if b, ok := e.Lookup(name); ok {
		b.Narrowed = t
	}
}

// Widen drops any narrowing on name, used when an assignment replaces
// the value a guard reasoned about.
func (e *Environment) Widen(name string) {
	if b, ok := e.Lookup(name); ok {
		b.Narrowed = nil
	}
}

// Remove deletes name from the frame that owns it. The branch join
// logic uses this to retract locals one alternative introduced before
// checking the next, then re-declares the merged binding.
func (e *Environment) Remove(name string) {
	for env := e; env != nil; env = env.outer {
		if _, ok := env.bindings[name]; ok {
			delete(env.bindings, name)
			return
		}
	}
}

// NarrowSnapshot remembers the narrowed state of every visible binding
// so branch checking can roll back to it at a join point.
type NarrowSnapshot map[*Binding]typesystem.Type

// SnapshotNarrowing captures the current narrowing of every binding
// reachable from this frame. Shadowed bindings are captured too; they
// are distinct slots.
func (e *Environment) SnapshotNarrowing() NarrowSnapshot {
	snap := make(NarrowSnapshot)
	for env := e; env != nil; env = env.outer {
		for _, b := range env.bindings {
			if _, seen := snap[b]; !seen {
				snap[b] = b.Narrowed
			}
		}
	}
	return snap
}

// Restore puts every captured binding back to its snapshotted state.
func (s NarrowSnapshot) Restore() {
	for b, t := range s {
		b.Narrowed = t
	}
}
