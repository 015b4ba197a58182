package backend

import (
	"strings"

	"github.com/trubylang/truby/internal/ast"
	"github.com/trubylang/truby/internal/pipeline"
	"github.com/trubylang/truby/internal/typesystem"
)

// SigBackend renders the checker's declaration summaries as a signature
// listing: one `def name: (T1, T2) -> R` line per method, grouped under
// class/interface/module blocks. The program itself is not consulted;
// everything comes from the summaries.
type SigBackend struct{}

func NewSigBackend() *SigBackend {
	return &SigBackend{}
}

func (b *SigBackend) Name() string { return "sig" }

func (b *SigBackend) Emit(_ *ast.Program, _ map[ast.Node]typesystem.Type, summaries []pipeline.DeclSummary) (string, error) {
	// Split member methods from top-level entries; owners are unique, so
	// a name-keyed map is enough to reunite them.
	members := make(map[string][]pipeline.DeclSummary)
	var tops []pipeline.DeclSummary
	for _, s := range summaries {
		if s.Kind == "def" && s.Owner != "" {
			members[s.Owner] = append(members[s.Owner], s)
			continue
		}
		tops = append(tops, s)
	}

	var sb strings.Builder
	first := true
	prevBlock := false
	for _, s := range tops {
		isBlock := s.Kind != "def"
		if !first && (isBlock || prevBlock) {
			sb.WriteString("\n")
		}
		if s.Kind == "def" {
			sb.WriteString(defLine(s))
			sb.WriteString("\n")
		} else {
			sb.WriteString(typeHeader(s))
			sb.WriteString("\n")
			for _, m := range members[s.Name] {
				sb.WriteString("  ")
				sb.WriteString(defLine(m))
				sb.WriteString("\n")
			}
			sb.WriteString("end\n")
		}
		first = false
		prevBlock = isBlock
	}
	return sb.String(), nil
}

// defLine renders one method signature: `def push: (T) -> Nil`.
func defLine(s pipeline.DeclSummary) string {
	return "def " + s.Name + ": (" + strings.Join(s.ParamTypes, ", ") + ") -> " + s.ReturnType
}

// typeHeader renders a class/interface/module opener with its type
// parameters, e.g. `class Sorted<T: Comparable>`. For type summaries
// ParamNames holds the parameter names and ParamTypes the rendered
// constraints, empty when unconstrained.
func typeHeader(s pipeline.DeclSummary) string {
	h := s.Kind + " " + s.Name
	if len(s.ParamNames) == 0 {
		return h
	}
	parts := make([]string, len(s.ParamNames))
	for i, name := range s.ParamNames {
		if i < len(s.ParamTypes) && s.ParamTypes[i] != "" {
			parts[i] = name + ": " + s.ParamTypes[i]
		} else {
			parts[i] = name
		}
	}
	return h + "<" + strings.Join(parts, ", ") + ">"
}
