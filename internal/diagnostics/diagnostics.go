package diagnostics

import (
	"fmt"
	"sort"

	"github.com/trubylang/truby/internal/token"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// DiagnosticError is one positional diagnostic. It is a plain value:
// rendering (color, grouping) happens at the CLI boundary.
type DiagnosticError struct {
	File     string
	Token    token.Token
	Code     ErrorCode
	Message  string
	Severity Severity
}

func (e *DiagnosticError) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: %s[%s]: %s",
		file, e.Token.Line, e.Token.Column, e.Severity, e.Code, e.Message)
}

// Kind returns the taxonomy name for the diagnostic's code,
// e.g. "TypeMismatchError" for T001.
func (e *DiagnosticError) Kind() string {
	return KindOf(e.Code)
}

func NewError(code ErrorCode, tok token.Token, message string) *DiagnosticError {
	return &DiagnosticError{Token: tok, Code: code, Message: message, Severity: SeverityError}
}

func NewWarning(code ErrorCode, tok token.Token, message string) *DiagnosticError {
	return &DiagnosticError{Token: tok, Code: code, Message: message, Severity: SeverityWarning}
}

// SortByPosition orders diagnostics by (file, line, column). The checker
// reports everything found in one pass, so a stable position order is the
// contract consumers rely on.
func SortByPosition(errs []*DiagnosticError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].File != errs[j].File {
			return errs[i].File < errs[j].File
		}
		if errs[i].Token.Line != errs[j].Token.Line {
			return errs[i].Token.Line < errs[j].Token.Line
		}
		return errs[i].Token.Column < errs[j].Token.Column
	})
}
