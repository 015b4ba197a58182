// Package config holds the tool constants and the truby.yaml project
// configuration.
//
// A project file is optional: `truby check file.trb` works without one.
// When present it pins the tool version range, names the source roots,
// and configures output directories and the exported-signature cache.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level truby.yaml configuration.
type Config struct {
	// Requires is a semver constraint the tool version must satisfy
	// (e.g. ">= 0.4", "~0.4.1"). Empty means any version.
	Requires string `yaml:"requires,omitempty"`

	// Src lists the source roots scanned by directory commands.
	// Defaults to ["."] if omitted.
	Src []string `yaml:"src,omitempty"`

	// Out is the root directory for emitted .rb files.
	// Empty means emit next to the source file.
	Out string `yaml:"out,omitempty"`

	// Sig is the root directory for emitted .trbs signature files.
	// Empty means emit next to the source file.
	Sig string `yaml:"sig,omitempty"`

	// Cache enables the exported-signature cache under .truby/.
	Cache bool `yaml:"cache,omitempty"`

	// Path is where the config was loaded from, "" for built-in
	// defaults. Output roots resolve relative to its directory.
	Path string `yaml:"-"`
}

// VersionError reports a requires constraint the running tool does not
// satisfy.
type VersionError struct {
	Path       string
	Constraint string
	Version    string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: truby %s does not satisfy required version %q",
		e.Path, e.Version, e.Constraint)
}

// LoadConfig reads and parses a truby.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses truby.yaml content from bytes. Unknown keys are
// rejected so typos fail loudly. The path argument is used only for
// error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		// An empty file is a valid config: all defaults.
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Path = path
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for truby.yaml starting from dir and walking up
// to parent directories, similar to how .gitignore is found.
// Returns the path to the config file and nil error if found,
// or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		// Also check truby.yml (common alternative)
		candidate = filepath.Join(dir, "truby.yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors, including the
// tool-version constraint.
func (c *Config) validate(path string) error {
	if c.Requires != "" {
		constraint, err := semver.NewConstraint(c.Requires)
		if err != nil {
			return fmt.Errorf("%s: invalid requires constraint %q: %w", path, c.Requires, err)
		}
		current, err := semver.NewVersion(Version)
		if err != nil {
			return fmt.Errorf("parsing tool version %q: %w", Version, err)
		}
		if !constraint.Check(current) {
			return &VersionError{Path: path, Constraint: c.Requires, Version: Version}
		}
	}

	for i, root := range c.Src {
		if root == "" {
			return fmt.Errorf("%s: src[%d] is empty", path, i)
		}
	}

	return nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	if len(c.Src) == 0 {
		c.Src = []string{"."}
	}
}

// Default returns the configuration used when no truby.yaml is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// baseDir is the directory output roots and the cache resolve against.
func (c *Config) baseDir() string {
	if c.Path == "" {
		return "."
	}
	return filepath.Dir(c.Path)
}

// SrcRoots returns the configured source roots resolved against the
// config file's directory.
func (c *Config) SrcRoots() []string {
	roots := make([]string, 0, len(c.Src))
	for _, s := range c.Src {
		roots = append(roots, filepath.Join(c.baseDir(), s))
	}
	return roots
}

// OutPath returns where the emitted Ruby for srcFile goes: under Out,
// mirroring the layout below the matching src root, or beside the
// source when no out root is configured.
func (c *Config) OutPath(srcFile string) string {
	return c.rebase(srcFile, c.Out, RubyFileExt)
}

// SigPath returns where the signature listing for srcFile goes.
func (c *Config) SigPath(srcFile string) string {
	return c.rebase(srcFile, c.Sig, SigFileExt)
}

func (c *Config) rebase(srcFile, outRoot, newExt string) string {
	renamed := TrimSourceExt(srcFile) + newExt
	if outRoot == "" {
		return renamed
	}
	target := filepath.Join(c.baseDir(), outRoot)
	for _, src := range c.Src {
		srcRoot := filepath.Join(c.baseDir(), src)
		rel, err := filepath.Rel(srcRoot, renamed)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.Join(target, rel)
		}
	}
	return filepath.Join(target, filepath.Base(renamed))
}

// CacheDir returns the directory holding the exported-signature cache.
func (c *Config) CacheDir() string {
	return filepath.Join(c.baseDir(), CacheDirName)
}
