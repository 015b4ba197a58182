package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trubylang/truby/internal/analyzer"
	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/lexer"
	"github.com/trubylang/truby/internal/parser"
	"github.com/trubylang/truby/internal/pipeline"
)

func astProgram(t *testing.T, ctx *pipeline.PipelineContext) *ast.Program {
	t.Helper()
	program, ok := ctx.AstRoot.(*ast.Program)
	require.True(t, ok, "context should hold a parsed program")
	return program
}

// checkSource runs the front half of the pipeline and requires a clean
// result, so backend tests start from a checked context.
func checkSource(t *testing.T, input string) *pipeline.PipelineContext {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)
	ctx = lexer.NewLexerProcessor().Process(ctx)
	ctx = (&parser.ParserProcessor{}).Process(ctx)
	ctx = analyzer.NewTypeCheckProcessor().Process(ctx)
	require.Empty(t, ctx.Errors, "input should check cleanly")
	return ctx
}

func TestRubyBackend_EmitsPlainRuby(t *testing.T) {
	ctx := checkSource(t, `def shout(msg: String): String
  return msg.upcase
end

shout("hey")`)

	b := NewRubyBackend()
	out, err := b.Emit(astProgram(t, ctx), ctx.TypeMap, ctx.Summaries)
	require.NoError(t, err)
	assert.Equal(t, "def shout(msg)\n  return msg.upcase\nend\n\nshout(\"hey\")\n", out)
}

func TestRubyBackend_NilProgram(t *testing.T) {
	b := NewRubyBackend()
	_, err := b.Emit(nil, nil, nil)
	assert.Error(t, err)
	assert.Equal(t, "ruby", b.Name())
}

func TestSigBackend_TopLevelDefs(t *testing.T) {
	ctx := checkSource(t, `def shout(msg: String): String
  return msg.upcase
end

def blank
  nil
end`)

	b := NewSigBackend()
	out, err := b.Emit(nil, nil, ctx.Summaries)
	require.NoError(t, err)
	assert.Equal(t, "def shout: (String) -> String\ndef blank: () -> Nil\n", out)
	assert.Equal(t, "sig", b.Name())
}

func TestSigBackend_ClassAndInterfaceBlocks(t *testing.T) {
	ctx := checkSource(t, `interface Sized
  def size(): Integer
end

class Bag implements Sized
  def initialize(n: Integer)
    @n = n
  end

  def size(): Integer
    return @n
  end
end

class Sorted<T: Sized>
  def initialize(seed: T)
    @seed = seed
  end

  def first(): T
    return @seed
  end
end`)

	b := NewSigBackend()
	out, err := b.Emit(nil, nil, ctx.Summaries)
	require.NoError(t, err)

	want := `interface Sized
  def size: () -> Integer
end

class Bag
  def initialize: (Integer) -> Void
  def size: () -> Integer
end

class Sorted<T: Sized>
  def initialize: (T) -> Void
  def first: () -> T
end
`
	assert.Equal(t, want, out)
}

func TestSigBackend_EmptySummaries(t *testing.T) {
	b := NewSigBackend()
	out, err := b.Emit(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestCodegenProcessor_StoresEmittedCode(t *testing.T) {
	ctx := checkSource(t, `x: Integer = 1 + 2`)

	ctx = NewCodegenProcessor(NewRubyBackend()).Process(ctx)
	assert.Empty(t, ctx.Errors)
	assert.Equal(t, "x = 1 + 2\n", ctx.EmittedCode)
}

func TestCodegenProcessor_SkipsWhenCheckFailed(t *testing.T) {
	ctx := pipeline.NewPipelineContext(`x: Integer = "no"`)
	ctx = lexer.NewLexerProcessor().Process(ctx)
	ctx = (&parser.ParserProcessor{}).Process(ctx)
	ctx = analyzer.NewTypeCheckProcessor().Process(ctx)
	require.NotEmpty(t, ctx.Errors)
	before := len(ctx.Errors)

	ctx = NewCodegenProcessor(NewRubyBackend()).Process(ctx)
	assert.Empty(t, ctx.EmittedCode)
	assert.Len(t, ctx.Errors, before)
}
