package backend

import (
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/pipeline"
	"github.com/trubylang/truby/internal/token"
)

// CodegenProcessor implements pipeline.Step to run a Backend.
type CodegenProcessor struct {
	Backend Backend
}

// NewCodegenProcessor creates a new pipeline step for the given backend.
func NewCodegenProcessor(b Backend) *CodegenProcessor {
	return &CodegenProcessor{Backend: b}
}

func (p *CodegenProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't emit from a broken tree.
	if ctx.HasErrors() {
		return ctx
	}
	program, ok := ctx.AstRoot.(*ast.Program)
	if !ok || program == nil {
		return ctx
	}

	out, err := p.Backend.Emit(program, ctx.TypeMap, ctx.Summaries)
	if err != nil {
		// Emission runs only over checked trees, so a failure here is a
		// bug in the emitter rather than in the user's program.
		ctx.Errors = append(ctx.Errors, diagnostics.NewError(
			diagnostics.ErrI001,
			token.Token{},
			p.Backend.Name()+" backend: "+err.Error(),
		))
		return ctx
	}

	ctx.EmittedCode = out
	return ctx
}
