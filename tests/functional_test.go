package tests

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/trubylang/truby/internal/analyzer"
	"github.com/trubylang/truby/internal/backend"
	"github.com/trubylang/truby/internal/config"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/lexer"
	"github.com/trubylang/truby/internal/parser"
	"github.com/trubylang/truby/internal/pipeline"
)

var update = flag.Bool("update", false, "rewrite the want files inside the fixture archives")

// TestFixtures runs every archive under testdata through the same
// pipelines the CLI assembles and compares the results against the
// archive's want files. An archive holds one source file plus:
//
//	check.want  expected diagnostics, one per line; empty when clean
//	build.want  expected Ruby output (only present for clean programs)
//	sig.want    expected signature listing (same condition)
//
// Run with -update to regenerate the want files in place.
func TestFixtures(t *testing.T) {
	archives, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatalf("globbing testdata: %v", err)
	}
	if len(archives) == 0 {
		t.Fatal("no fixture archives under testdata")
	}

	for _, path := range archives {
		path := path
		name := strings.TrimSuffix(filepath.Base(path), ".txtar")
		t.Run(name, func(t *testing.T) {
			runArchive(t, path)
		})
	}
}

func runArchive(t *testing.T, path string) {
	ar, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}

	var source *txtar.File
	wants := make(map[string]*txtar.File)
	for i := range ar.Files {
		f := &ar.Files[i]
		switch {
		case config.HasSourceExt(f.Name):
			if source != nil {
				t.Fatalf("%s: more than one source file", path)
			}
			source = f
		case strings.HasSuffix(f.Name, ".want"):
			wants[f.Name] = f
		default:
			t.Fatalf("%s: unexpected file %q in archive", path, f.Name)
		}
	}
	if source == nil {
		t.Fatalf("%s: no source file in archive", path)
	}
	if _, ok := wants["check.want"]; !ok {
		t.Fatalf("%s: archive has no check.want", path)
	}

	got := make(map[string]string)

	check := runSource(source, nil)
	got["check.want"] = renderDiagnostics(check.Errors)
	clean := !check.HasErrors()

	if _, ok := wants["build.want"]; ok {
		if !clean {
			t.Fatalf("%s: build.want present but the check reports errors", path)
		}
		got["build.want"] = runSource(source, backend.NewCodegenProcessor(backend.NewRubyBackend())).EmittedCode
	}
	if _, ok := wants["sig.want"]; ok {
		if !clean {
			t.Fatalf("%s: sig.want present but the check reports errors", path)
		}
		got["sig.want"] = runSource(source, backend.NewCodegenProcessor(backend.NewSigBackend())).EmittedCode
	}

	if *update {
		for name, f := range wants {
			f.Data = []byte(got[name])
		}
		if err := os.WriteFile(path, txtar.Format(ar), 0o644); err != nil {
			t.Fatalf("rewriting %s: %v", path, err)
		}
		return
	}

	for name, f := range wants {
		want := strings.TrimRight(string(f.Data), "\n")
		have := strings.TrimRight(got[name], "\n")
		if have != want {
			t.Errorf("%s: %s mismatch:\n--- want ---\n%s\n--- got ---\n%s", path, name, want, have)
		}
	}
}

// runSource pushes one source file through lex, parse and check, plus an
// optional emitter stage, exactly as the CLI would.
func runSource(f *txtar.File, emit pipeline.Processor) *pipeline.PipelineContext {
	ctx := pipeline.NewPipelineContext(string(f.Data))
	ctx.FilePath = f.Name
	stages := []pipeline.Processor{
		lexer.NewLexerProcessor(),
		&parser.ParserProcessor{},
		analyzer.NewTypeCheckProcessor(),
	}
	if emit != nil {
		stages = append(stages, emit)
	}
	return pipeline.New(stages...).Run(ctx)
}

func renderDiagnostics(errs []*diagnostics.DiagnosticError) string {
	diagnostics.SortByPosition(errs)
	var sb strings.Builder
	for _, e := range errs {
		sb.WriteString(e.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}
