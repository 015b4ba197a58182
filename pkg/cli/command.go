package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/trubylang/truby/internal/analyzer"
	"github.com/trubylang/truby/internal/backend"
	"github.com/trubylang/truby/internal/config"
	"github.com/trubylang/truby/internal/diagnostics"
	"github.com/trubylang/truby/internal/lexer"
	"github.com/trubylang/truby/internal/parser"
	"github.com/trubylang/truby/internal/pipeline"
	"github.com/trubylang/truby/internal/sigcache"
	"github.com/trubylang/truby/internal/watch"
)

// runMode selects what happens after a clean check.
type runMode int

const (
	modeCheck runMode = iota
	modeBuild
	modeSig
)

type options struct {
	paths   []string
	outDir  string
	watch   bool
	noCache bool
}

func parseOptions(args []string) (options, error) {
	var opts options
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("-o requires a directory argument")
			}
			opts.outDir = args[i+1]
			i++
		case "-w", "--watch":
			opts.watch = true
		case "--no-cache":
			opts.noCache = true
		default:
			if strings.HasPrefix(args[i], "-") {
				return opts, fmt.Errorf("unknown flag: %s", args[i])
			}
			opts.paths = append(opts.paths, args[i])
		}
	}
	return opts, nil
}

func runCommand(mode runMode, args []string) {
	opts, err := parseOptions(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cfg, err := loadProject()
	if err != nil {
		printConfigError(err)
		os.Exit(1)
	}
	applyOverrides(cfg, opts, mode)

	if opts.watch {
		watchLoop(cfg, opts, mode)
		return
	}

	if len(opts.paths) == 0 && stdinIsPiped() {
		if !runStdin(mode) {
			os.Exit(1)
		}
		return
	}

	files, err := collectSources(cfg, opts.paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No source files found")
		os.Exit(1)
	}

	r := newRunner(cfg, opts, mode)
	ok := r.runAll(files)
	r.close()
	if !ok {
		os.Exit(1)
	}
}

// loadProject finds and loads truby.yaml relative to the working
// directory. A missing config is not an error: defaults apply.
func loadProject() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Default(), nil
	}
	found, err := config.FindConfig(cwd)
	if err != nil || found == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(found)
}

// printConfigError renders a config failure with the diagnostic code
// taxonomy. Config errors carry no source position, so there is no
// file:line:col prefix.
func printConfigError(err error) {
	code := diagnostics.ErrC001
	var verr *config.VersionError
	if errors.As(err, &verr) {
		code = diagnostics.ErrC002
	}
	line := fmt.Sprintf("%s[%s]: %s", diagnostics.SeverityError, code, err.Error())
	if useColor(os.Stderr) {
		errorStyle.Fprintln(os.Stderr, line)
	} else {
		fmt.Fprintln(os.Stderr, line)
	}
}

func applyOverrides(cfg *config.Config, opts options, mode runMode) {
	if opts.outDir == "" {
		return
	}
	if mode == modeSig {
		cfg.Sig = opts.outDir
	} else {
		cfg.Out = opts.outDir
	}
}

func stdinIsPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// runStdin checks a single anonymous input; build and sig write their
// result to stdout instead of a file.
func runStdin(mode runMode) bool {
	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stdin: %s\n", err)
		return false
	}

	ctx := pipeline.NewPipelineContext(string(source))
	final := buildPipeline(mode).Run(ctx)

	printDiagnostics(os.Stderr, final.Errors)
	if final.HasErrors() {
		return false
	}
	if mode != modeCheck {
		fmt.Print(final.EmittedCode)
	}
	return true
}

// collectSources expands the given files and directories (or the
// config's src roots when none are given) into a sorted list of source
// files. Dot-directories are skipped.
func collectSources(cfg *config.Config, argPaths []string) ([]string, error) {
	roots := argPaths
	if len(roots) == 0 {
		roots = cfg.SrcRoots()
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !config.HasSourceExt(root) {
				return nil, fmt.Errorf("%s is not a %s file", root, config.SourceFileExt)
			}
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if name := d.Name(); name != "." && strings.HasPrefix(name, ".") && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if config.HasSourceExt(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// runner executes one command over a set of files, holding the
// signature cache open for the whole run.
type runner struct {
	cfg   *config.Config
	mode  runMode
	cache *sigcache.Cache
}

func newRunner(cfg *config.Config, opts options, mode runMode) *runner {
	r := &runner{cfg: cfg, mode: mode}
	r.reopenCache(opts)
	return r
}

func (r *runner) reopenCache(opts options) {
	r.close()
	if !r.cfg.Cache || opts.noCache {
		return
	}
	c, err := sigcache.Open(r.cfg.CacheDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: signature cache disabled: %s\n", err)
		return
	}
	r.cache = c
}

func (r *runner) close() {
	if r.cache != nil {
		r.cache.Close()
		r.cache = nil
	}
}

// runAll checks every file, reporting whether all came back clean.
func (r *runner) runAll(files []string) bool {
	clean := true
	for _, f := range files {
		if !r.runFile(f) {
			clean = false
		}
	}
	return clean
}

func (r *runner) runFile(path string) bool {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %s\n", path, err)
		return false
	}
	digest := sigcache.Digest(source)

	// Ruby emission is not cached, so build always runs the pipeline.
	if r.cache != nil && r.mode != modeBuild {
		if decls, ok := r.cache.Lookup(path, digest); ok {
			if r.mode == modeSig {
				return r.writeCachedListing(path, decls)
			}
			return true
		}
	}

	ctx := pipeline.NewPipelineContext(string(source))
	ctx.FilePath = path
	final := buildPipeline(r.mode).Run(ctx)

	printDiagnostics(os.Stderr, final.Errors)
	if final.HasErrors() {
		return false
	}

	if r.cache != nil {
		if err := r.cache.Store(path, digest, final.Summaries); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache store for %s failed: %s\n", path, err)
		}
	}

	switch r.mode {
	case modeBuild:
		return writeOutput(path, r.cfg.OutPath(path), final.EmittedCode)
	case modeSig:
		return writeOutput(path, r.cfg.SigPath(path), final.EmittedCode)
	}
	return true
}

// writeCachedListing renders a signature file from cached summaries,
// skipping the pipeline entirely.
func (r *runner) writeCachedListing(path string, decls []pipeline.DeclSummary) bool {
	out, err := backend.NewSigBackend().Emit(nil, nil, decls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering cached signatures for %s: %s\n", path, err)
		return false
	}
	return writeOutput(path, r.cfg.SigPath(path), out)
}

func writeOutput(srcPath, outPath, content string) bool {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %s\n", dir, err)
			return false
		}
	}
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %s\n", outPath, err)
		return false
	}
	fmt.Printf("%s -> %s\n", srcPath, outPath)
	return true
}

func buildPipeline(mode runMode) *pipeline.Pipeline {
	stages := []pipeline.Processor{
		lexer.NewLexerProcessor(),
		&parser.ParserProcessor{},
		analyzer.NewTypeCheckProcessor(),
	}
	switch mode {
	case modeBuild:
		stages = append(stages, backend.NewCodegenProcessor(backend.NewRubyBackend()))
	case modeSig:
		stages = append(stages, backend.NewCodegenProcessor(backend.NewSigBackend()))
	}
	return pipeline.New(stages...)
}

// watchLoop runs a full pass, then stays resident re-checking whatever
// changes until interrupted.
func watchLoop(cfg *config.Config, opts options, mode runMode) {
	roots := watchRoots(cfg, opts.paths)
	w, err := watch.New(roots, watch.DefaultDebounce)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot watch %s: %s\n", strings.Join(roots, ", "), err)
		os.Exit(1)
	}
	defer w.Close()

	r := newRunner(cfg, opts, mode)
	defer r.close()

	if files, err := collectSources(cfg, opts.paths); err == nil {
		r.runAll(files)
	}
	fmt.Printf("Watching %s for changes...\n", strings.Join(roots, ", "))

	err = w.Run(func(changed []string) {
		fmt.Printf("\n=== %s: %d change(s) ===\n", time.Now().Format("15:04:05"), len(changed))
		r.handleChanges(changed, opts)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Watch error: %s\n", err)
		os.Exit(1)
	}
}

// watchRoots maps the command's paths to directories the watcher can
// register: a directory stands for itself, a file for its parent. The
// config file's directory is included so edits to it are seen.
func watchRoots(cfg *config.Config, argPaths []string) []string {
	paths := argPaths
	if len(paths) == 0 {
		paths = cfg.SrcRoots()
	}
	if cfg.Path != "" {
		paths = append(paths, filepath.Dir(cfg.Path))
	}

	seen := make(map[string]struct{})
	var roots []string
	for _, p := range paths {
		root := p
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			root = filepath.Dir(p)
		}
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	return roots
}

// handleChanges processes one debounced batch: config edits reload the
// project, changed sources are invalidated and re-checked, removed
// sources just drop their cache rows.
func (r *runner) handleChanges(changed []string, opts options) {
	var files []string
	reload := false
	for _, p := range changed {
		if base := filepath.Base(p); base == config.ConfigFileName || base == "truby.yml" {
			reload = true
			continue
		}
		files = append(files, p)
	}

	if reload {
		cfg, err := loadProject()
		if err != nil {
			printConfigError(err)
		} else {
			applyOverrides(cfg, opts, r.mode)
			r.cfg = cfg
			r.reopenCache(opts)
			fmt.Println("Reloaded " + config.ConfigFileName)
		}
	}

	for _, p := range files {
		if _, err := os.Stat(p); err != nil {
			if r.cache != nil {
				r.cache.Invalidate(p)
			}
			fmt.Printf("%s removed\n", p)
			continue
		}
		if r.cache != nil {
			r.cache.Invalidate(p)
		}
		r.runFile(p)
	}
}
