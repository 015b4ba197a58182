package lexer

import (
	"testing"

	"github.com/trubylang/truby/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `x: Integer = 5
def size?(s: String): Integer
  s.length
end
status = :active
xs.map { |n| n * 2 }
h = { "a" => 1 }
@count = 0
@@registry = []
r = 1..10
ok = a != b && !c || d == 2.5
`

	tests := []struct {
		expectedType   token.TokenType
		expectedLexeme string
	}{
		{token.IDENT_LOWER, "x"},
		{token.COLON, ":"},
		{token.IDENT_UPPER, "Integer"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.NEWLINE, "\n"},

		{token.DEF, "def"},
		{token.IDENT_LOWER, "size?"},
		{token.LPAREN, "("},
		{token.IDENT_LOWER, "s"},
		{token.COLON, ":"},
		{token.IDENT_UPPER, "String"},
		{token.RPAREN, ")"},
		{token.COLON, ":"},
		{token.IDENT_UPPER, "Integer"},
		{token.NEWLINE, "\n"},
		{token.IDENT_LOWER, "s"},
		{token.DOT, "."},
		{token.IDENT_LOWER, "length"},
		{token.NEWLINE, "\n"},
		{token.END, "end"},
		{token.NEWLINE, "\n"},

		{token.IDENT_LOWER, "status"},
		{token.ASSIGN, "="},
		{token.SYMBOL, ":active"},
		{token.NEWLINE, "\n"},

		{token.IDENT_LOWER, "xs"},
		{token.DOT, "."},
		{token.IDENT_LOWER, "map"},
		{token.LBRACE, "{"},
		{token.PIPE, "|"},
		{token.IDENT_LOWER, "n"},
		{token.PIPE, "|"},
		{token.IDENT_LOWER, "n"},
		{token.ASTERISK, "*"},
		{token.INT, "2"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},

		{token.IDENT_LOWER, "h"},
		{token.ASSIGN, "="},
		{token.LBRACE, "{"},
		{token.STRING, `"a"`},
		{token.HASHROCKET, "=>"},
		{token.INT, "1"},
		{token.RBRACE, "}"},
		{token.NEWLINE, "\n"},

		{token.IVAR, "@count"},
		{token.ASSIGN, "="},
		{token.INT, "0"},
		{token.NEWLINE, "\n"},

		{token.CVAR, "@@registry"},
		{token.ASSIGN, "="},
		{token.LBRACKET, "["},
		{token.RBRACKET, "]"},
		{token.NEWLINE, "\n"},

		{token.IDENT_LOWER, "r"},
		{token.ASSIGN, "="},
		{token.INT, "1"},
		{token.DOT_DOT, ".."},
		{token.INT, "10"},
		{token.NEWLINE, "\n"},

		{token.IDENT_LOWER, "ok"},
		{token.ASSIGN, "="},
		{token.IDENT_LOWER, "a"},
		{token.NOT_EQ, "!="},
		{token.IDENT_LOWER, "b"},
		{token.AND, "&&"},
		{token.BANG, "!"},
		{token.IDENT_LOWER, "c"},
		{token.OR, "||"},
		{token.IDENT_LOWER, "d"},
		{token.EQ, "=="},
		{token.FLOAT, "2.5"},
		{token.NEWLINE, "\n"},

		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong type. expected=%q, got=%q (lexeme=%q)",
				i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - wrong lexeme. expected=%q, got=%q",
				i, tt.expectedLexeme, tok.Lexeme)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := "def end class module interface implements include if elsif else unless while case when then return raise break next do true false nil"
	expected := []token.TokenType{
		token.DEF, token.END, token.CLASS, token.MODULE, token.INTERFACE,
		token.IMPLEMENTS, token.INCLUDE, token.IF, token.ELSIF, token.ELSE,
		token.UNLESS, token.WHILE, token.CASE, token.WHEN, token.THEN,
		token.RETURN, token.RAISE, token.BREAK, token.NEXT, token.DO,
		token.TRUE, token.FALSE, token.NIL,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("keyword[%d]: expected %q, got %q (%q)", i, want, tok.Type, tok.Lexeme)
		}
	}
	if tok := l.NextToken(); tok.Type != token.EOF {
		t.Fatalf("expected EOF, got %q", tok.Type)
	}
}

func TestMethodNameSuffixes(t *testing.T) {
	// empty? and save! keep their suffix; != must still split.
	l := New("empty? save! a!=b n?")
	expected := []struct {
		typ    token.TokenType
		lexeme string
	}{
		{token.IDENT_LOWER, "empty?"},
		{token.IDENT_LOWER, "save!"},
		{token.IDENT_LOWER, "a"},
		{token.NOT_EQ, "!="},
		{token.IDENT_LOWER, "b"},
		{token.IDENT_LOWER, "n?"},
		{token.EOF, ""},
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ || tok.Lexeme != want.lexeme {
			t.Fatalf("[%d] expected (%q %q), got (%q %q)", i, want.typ, want.lexeme, tok.Type, tok.Lexeme)
		}
	}
}

func TestSymbolVersusColon(t *testing.T) {
	// ':' immediately followed by an identifier char starts a symbol;
	// annotations are written with a space after the colon.
	l := New("x: Integer = :asc")
	expected := []struct {
		typ    token.TokenType
		lexeme string
	}{
		{token.IDENT_LOWER, "x"},
		{token.COLON, ":"},
		{token.IDENT_UPPER, "Integer"},
		{token.ASSIGN, "="},
		{token.SYMBOL, ":asc"},
		{token.EOF, ""},
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ || tok.Lexeme != want.lexeme {
			t.Fatalf("[%d] expected (%q %q), got (%q %q)", i, want.typ, want.lexeme, tok.Type, tok.Lexeme)
		}
	}
}

func TestSymbolLiteralValue(t *testing.T) {
	l := New(":desc")
	tok := l.NextToken()
	if tok.Type != token.SYMBOL {
		t.Fatalf("expected SYMBOL, got %q", tok.Type)
	}
	if lit, ok := tok.Literal.(string); !ok || lit != "desc" {
		t.Errorf("symbol literal: expected %q, got %v", "desc", tok.Literal)
	}
}

func TestComments(t *testing.T) {
	input := "a = 1 # trailing comment\n# full line\nb = 2"
	l := New(input)
	expected := []token.TokenType{
		token.IDENT_LOWER, token.ASSIGN, token.INT, token.NEWLINE,
		token.NEWLINE,
		token.IDENT_LOWER, token.ASSIGN, token.INT,
		token.EOF,
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("[%d] expected %q, got %q (%q)", i, want, tok.Type, tok.Lexeme)
		}
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	input := "a = 1\n  b = 2"
	l := New(input)

	a := l.NextToken()
	if a.Line != 1 || a.Column != 1 {
		t.Errorf("a: expected 1:1, got %d:%d", a.Line, a.Column)
	}
	l.NextToken() // =
	l.NextToken() // 1
	l.NextToken() // newline
	b := l.NextToken()
	if b.Line != 2 || b.Column != 3 {
		t.Errorf("b: expected 2:3, got %d:%d", b.Line, b.Column)
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb" 'c\nd'`)

	dq := l.NextToken()
	if dq.Type != token.STRING {
		t.Fatalf("expected STRING, got %q", dq.Type)
	}
	if lit := dq.Literal.(string); lit != "a\nb" {
		t.Errorf("double-quoted: expected %q, got %q", "a\nb", lit)
	}

	sq := l.NextToken()
	if sq.Type != token.STRING {
		t.Fatalf("expected STRING, got %q", sq.Type)
	}
	if lit := sq.Literal.(string); lit != `c\nd` {
		t.Errorf("single-quoted keeps backslash: expected %q, got %q", `c\nd`, lit)
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`a = "oops`)
	l.NextToken() // a
	l.NextToken() // =
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %q", tok.Type)
	}
	if msg, ok := tok.Literal.(string); !ok || msg != "unterminated string literal" {
		t.Errorf("expected diagnostic message, got %v", tok.Literal)
	}
}

func TestNumericLiterals(t *testing.T) {
	l := New("1_000 3.14 2_5.5_0")

	n := l.NextToken()
	if n.Type != token.INT || n.Literal.(int64) != 1000 {
		t.Errorf("expected INT 1000, got %q %v", n.Type, n.Literal)
	}
	f := l.NextToken()
	if f.Type != token.FLOAT || f.Literal.(float64) != 3.14 {
		t.Errorf("expected FLOAT 3.14, got %q %v", f.Type, f.Literal)
	}
	u := l.NextToken()
	if u.Type != token.FLOAT || u.Literal.(float64) != 25.5 {
		t.Errorf("expected FLOAT 25.5, got %q %v", u.Type, u.Literal)
	}
}

func TestIllegalSigil(t *testing.T) {
	l := New("@ x")
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL for bare @, got %q", tok.Type)
	}
}
