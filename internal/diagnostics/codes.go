package diagnostics

type ErrorCode string

// Error codes, grouped by the stage that raises them. The letter names the
// stage (L lexer, P parser, T type checker, C config, I internal); consumers
// should match on codes, not message text.
const (
	// Lexer
	ErrL001 ErrorCode = "L001" // illegal character
	ErrL002 ErrorCode = "L002" // unterminated string literal

	// Parser
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // expected a specific token
	ErrP003 ErrorCode = "P003" // malformed type annotation
	ErrP004 ErrorCode = "P004" // expression nesting too deep
	ErrP005 ErrorCode = "P005" // unparsable literal value

	// Type checker
	ErrT001 ErrorCode = "T001" // type mismatch
	ErrT002 ErrorCode = "T002" // unknown identifier
	ErrT003 ErrorCode = "T003" // duplicate declaration
	ErrT004 ErrorCode = "T004" // unresolved generic constraint
	ErrT005 ErrorCode = "T005" // interface conformance failure
	ErrT006 ErrorCode = "T006" // recursive inference without annotation

	// Project config
	ErrC001 ErrorCode = "C001" // config file unreadable or invalid
	ErrC002 ErrorCode = "C002" // tool version outside the required range

	// Internal (fatal; indicates a bug in the checker, not in user code)
	ErrI001 ErrorCode = "I001"
)

var kindNames = map[ErrorCode]string{
	ErrL001: "LexError",
	ErrL002: "LexError",
	ErrP001: "ParseError",
	ErrP002: "ParseError",
	ErrP003: "ParseError",
	ErrP004: "ParseError",
	ErrP005: "ParseError",
	ErrT001: "TypeMismatchError",
	ErrT002: "UnknownIdentifierError",
	ErrT003: "DuplicateDeclarationError",
	ErrT004: "UnresolvedGenericConstraintError",
	ErrT005: "InterfaceConformanceError",
	ErrT006: "RecursiveInferenceError",
	ErrC001: "ConfigError",
	ErrC002: "ConfigError",
	ErrI001: "InternalInvariantError",
}

// KindOf returns the taxonomy name for a code, or "UnknownError" for codes
// outside the table (kept total so rendering never fails).
func KindOf(code ErrorCode) string {
	if name, ok := kindNames[code]; ok {
		return name
	}
	return "UnknownError"
}
