package backend

import (
	"errors"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/pipeline"
	"github.com/trubylang/truby/internal/prettyprinter"
	"github.com/trubylang/truby/internal/typesystem"
)

// RubyBackend emits plain Ruby source with every static-typing
// construct erased: annotations, interfaces, generic parameter lists,
// implements clauses and explicit type arguments all vanish.
type RubyBackend struct{}

func NewRubyBackend() *RubyBackend {
	return &RubyBackend{}
}

func (b *RubyBackend) Name() string { return "ruby" }

func (b *RubyBackend) Emit(program *ast.Program, _ map[ast.Node]typesystem.Type, _ []pipeline.DeclSummary) (string, error) {
	if program == nil {
		return "", errors.New("no program to emit")
	}
	return prettyprinter.Print(program), nil
}
