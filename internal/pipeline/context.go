package pipeline

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/token"
	"github.com/trubylang/truby/internal/typesystem"
)

// Processor is one pipeline stage. A processor reads what earlier stages
// put on the context, does its work, and returns the same context.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// DeclSummary is the per-declaration record handed to the signature
// emitter and the exported-signature cache: enough to render an external
// signature without re-checking the file.
type DeclSummary struct {
	Name       string
	Kind       string // "def", "class", "interface", "module"
	Owner      string // enclosing class/module name, "" at top level
	ParamNames []string
	ParamTypes []string // rendered type syntax
	ReturnType string   // rendered type syntax
	Line       int
}

// PipelineContext carries one file through the pipeline. Each stage fills
// in its own fields; Errors accumulates across stages.
type PipelineContext struct {
	SourceCode string
	FilePath   string

	TokenStream []token.Token
	AstRoot     ast.Node // *ast.Program

	// TypeMap is the annotated-AST output: every expression node mapped
	// to its resolved type.
	TypeMap map[ast.Node]typesystem.Type

	Summaries   []DeclSummary
	EmittedCode string

	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(sourceCode string) *PipelineContext {
	return &PipelineContext{
		SourceCode: sourceCode,
		Errors:     []*diagnostics.DiagnosticError{},
	}
}

// HasErrors reports whether any accumulated diagnostic is an error
// (warnings alone do not stop later stages).
func (ctx *PipelineContext) HasErrors() bool {
	for _, e := range ctx.Errors {
		if e.Severity == diagnostics.SeverityError {
			return true
		}
	}
	return false
}
