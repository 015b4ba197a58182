package lexer

import (
	"fmt"

	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/pipeline"
	"github.com/trubylang/truby/internal/token"
)

// LexerProcessor tokenizes SourceCode into TokenStream. Illegal tokens
// become diagnostics but stay in the stream so the parser can resync.
type LexerProcessor struct{}

func NewLexerProcessor() *LexerProcessor {
	return &LexerProcessor{}
}

func (p *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	l := New(ctx.SourceCode)

	tokens := make([]token.Token, 0, 256)
	for {
		tok := l.NextToken()
		if tok.Type == token.ILLEGAL {
			ctx.Errors = append(ctx.Errors, p.illegalTokenError(ctx.FilePath, tok))
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	ctx.TokenStream = tokens
	return ctx
}

func (p *LexerProcessor) illegalTokenError(file string, tok token.Token) *diagnostics.DiagnosticError {
	code := diagnostics.ErrL001
	msg := fmt.Sprintf("unexpected character %q", tok.Lexeme)
	if s, ok := tok.Literal.(string); ok && s != tok.Lexeme {
		// The lexer put a description in Literal (unterminated string,
		// integer overflow, bad sigil).
		msg = s
		if s == "unterminated string literal" {
			code = diagnostics.ErrL002
		}
	}
	err := diagnostics.NewError(code, tok, msg)
	err.File = file
	return err
}
