// Package backend provides an interface for the emitters that run
// after a clean type check. This allows switching between the Ruby
// code generator and the signature writer.
package backend

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/pipeline"
	"github.com/trubylang/truby/internal/typesystem"
)

// Backend is the interface for emission backends.
type Backend interface {
	// Emit renders the checked program. The type map and declaration
	// summaries carry the checker's results; implementations use what
	// they need and ignore the rest.
	Emit(program *ast.Program, typeMap map[ast.Node]typesystem.Type, summaries []pipeline.DeclSummary) (string, error)

	// Name returns the backend name for display
	Name() string
}
