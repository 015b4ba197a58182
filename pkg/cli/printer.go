package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/trubylang/truby/internal/diagnostics"
)

var (
	errorStyle = color.New(color.FgRed, color.Bold)
	warnStyle  = color.New(color.FgYellow)
)

// useColor reports whether w is a terminal that should receive colored
// output. NO_COLOR always wins.
func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printDiagnostics renders diagnostics one per line in source-position
// order, the contract being `file:line:col: severity[CODE]: message`.
func printDiagnostics(w io.Writer, diags []*diagnostics.DiagnosticError) {
	diagnostics.SortByPosition(diags)
	colored := useColor(w)
	for _, d := range diags {
		if !colored {
			fmt.Fprintln(w, d.Error())
			continue
		}
		if d.Severity == diagnostics.SeverityError {
			errorStyle.Fprintln(w, d.Error())
		} else {
			warnStyle.Fprintln(w, d.Error())
		}
	}
}
