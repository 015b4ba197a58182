package token

import "unicode"

type TokenType string

// Token is a single lexical unit with its source position.
// Lexeme is the exact source text; Literal is the decoded value:
// string contents without quotes, symbol name without the colon,
// int64 for INT, float64 for FLOAT.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	NEWLINE = "NEWLINE"

	// Identifiers and literals
	IDENT_LOWER = "IDENT_LOWER" // value, to_i, empty?
	IDENT_UPPER = "IDENT_UPPER" // String, Stack, HttpError
	IVAR        = "IVAR"        // @count
	CVAR        = "CVAR"        // @@registry
	INT         = "INT"
	FLOAT       = "FLOAT"
	STRING      = "STRING"
	SYMBOL      = "SYMBOL" // :asc

	// Operators
	ASSIGN     = "="
	PLUS       = "+"
	MINUS      = "-"
	ASTERISK   = "*"
	SLASH      = "/"
	PERCENT    = "%"
	POWER      = "**"
	EQ         = "=="
	NOT_EQ     = "!="
	LT         = "<"
	GT         = ">"
	LTE        = "<="
	GTE        = ">="
	AND        = "&&"
	OR         = "||"
	BANG       = "!"
	PIPE       = "|"
	DOT        = "."
	DOT_DOT    = ".."
	HASHROCKET = "=>"

	// Delimiters
	COMMA     = ","
	COLON     = ":"
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACKET  = "["
	RBRACKET  = "]"
	LBRACE    = "{"
	RBRACE    = "}"

	// Keywords
	DEF        = "DEF"
	END        = "END"
	CLASS      = "CLASS"
	MODULE     = "MODULE"
	INTERFACE  = "INTERFACE"
	IMPLEMENTS = "IMPLEMENTS"
	INCLUDE    = "INCLUDE"
	IF         = "IF"
	ELSIF      = "ELSIF"
	ELSE       = "ELSE"
	UNLESS     = "UNLESS"
	WHILE      = "WHILE"
	CASE       = "CASE"
	WHEN       = "WHEN"
	THEN       = "THEN"
	RETURN     = "RETURN"
	RAISE      = "RAISE"
	BREAK      = "BREAK"
	NEXT       = "NEXT"
	DO         = "DO"
	TRUE       = "TRUE"
	FALSE      = "FALSE"
	NIL        = "NIL"
)

var keywords = map[string]TokenType{
	"def":        DEF,
	"end":        END,
	"class":      CLASS,
	"module":     MODULE,
	"interface":  INTERFACE,
	"implements": IMPLEMENTS,
	"include":    INCLUDE,
	"if":         IF,
	"elsif":      ELSIF,
	"else":       ELSE,
	"unless":     UNLESS,
	"while":      WHILE,
	"case":       CASE,
	"when":       WHEN,
	"then":       THEN,
	"return":     RETURN,
	"raise":      RAISE,
	"break":      BREAK,
	"next":       NEXT,
	"do":         DO,
	"true":       TRUE,
	"false":      FALSE,
	"nil":        NIL,
}

// LookupIdent maps an identifier to its keyword token type, or to
// IDENT_UPPER/IDENT_LOWER based on the first rune. Constants and class
// names are uppercase; locals and method names are lowercase.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	for _, r := range ident {
		if unicode.IsUpper(r) {
			return IDENT_UPPER
		}
		break
	}
	return IDENT_LOWER
}
