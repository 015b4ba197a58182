package analyzer

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/pipeline"
	"github.com/trubylang/truby/internal/symbols"
)

// TypeCheckProcessor runs the checker over the parsed program and
// leaves the type map and declaration summaries on the context for the
// emitters. It does nothing when an earlier stage already failed; type
// errors against a half-parsed tree are noise.
type TypeCheckProcessor struct{}

func NewTypeCheckProcessor() *TypeCheckProcessor {
	return &TypeCheckProcessor{}
}

func (p *TypeCheckProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.HasErrors() {
		return ctx
	}
	prog, ok := ctx.AstRoot.(*ast.Program)
	if !ok || prog == nil {
		return ctx
	}

	a := New(symbols.NewRegistry())
	diags := a.Analyze(prog)
	for _, d := range diags {
		if d.File == "" {
			d.File = ctx.FilePath
		}
		ctx.Errors = append(ctx.Errors, d)
	}
	ctx.TypeMap = a.TypeMap()
	ctx.Summaries = a.Summaries()
	return ctx
}
