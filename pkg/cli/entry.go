// Package cli implements the truby command line tool: type checking,
// Ruby emission and signature listings over .trb sources, plus a watch
// mode that re-checks files as they change.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/trubylang/truby/internal/config"
)

func Run() {
	// Catch panics and show a short report: an escaped panic is a bug
	// in the checker, never in the user's program.
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get the stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug in truby. Please report it.")
			os.Exit(1)
		}
	}()

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "check":
		runCommand(modeCheck, os.Args[2:])
	case "build":
		runCommand(modeBuild, os.Args[2:])
	case "sig":
		runCommand(modeSig, os.Args[2:])
	case "version", "-v", "-version", "--version":
		fmt.Println("truby " + config.Version)
	case "help", "-h", "-help", "--help":
		printUsage(os.Stdout)
	default:
		// A bare source file is shorthand for check.
		if config.HasSourceExt(os.Args[1]) {
			runCommand(modeCheck, os.Args[1:])
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: truby <command> [flags] [path...]

Commands:
  check    type-check sources and print diagnostics
  build    type-check, then write the Ruby translation (%s files)
  sig      type-check, then write signature listings (%s files)
  version  print the tool version
  help     show this message

Flags:
  -o <dir>      output root for build/sig (relative to the project root)
  -w, --watch   keep running and re-check files as they change
  --no-cache    skip the exported-signature cache

Paths may be %s files or directories. With no paths, the src roots from
%s apply; with piped stdin and no paths, the input is read from stdin.
`, config.RubyFileExt, config.SigFileExt, config.SourceFileExt, config.ConfigFileName)
}
