package config

// Version is the tool version reported by `truby version` and checked
// against a project's `requires` constraint.
const Version = "0.4.2"

const SourceFileExt = ".trb"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".trb", ".truby"}

const (
	// RubyFileExt is the extension of emitted host-language files.
	RubyFileExt = ".rb"

	// SigFileExt is the extension of emitted signature files.
	SigFileExt = ".trbs"

	// ConfigFileName is the project configuration file name.
	ConfigFileName = "truby.yaml"

	// CacheDirName is the per-project cache directory.
	CacheDirName = ".truby"
)

// HasSourceExt reports whether path ends in a recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// TrimSourceExt removes a recognized source extension from name, if present.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
