package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/trubylang/truby/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.position = l.readPosition
		l.readPosition += w
		l.column++
		return
	}

	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	switch l.ch {
	case '\n':
		tok = newToken(token.NEWLINE, l.ch, l.line, l.column)
	case '=':
		// =, ==, =>
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Lexeme: "==", Literal: "==", Line: l.line, Column: l.column}
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = token.Token{Type: token.HASHROCKET, Lexeme: "=>", Literal: "=>", Line: l.line, Column: l.column}
		} else {
			tok = newToken(token.ASSIGN, l.ch, l.line, l.column)
		}
	case '+':
		tok = newToken(token.PLUS, l.ch, l.line, l.column)
	case '-':
		tok = newToken(token.MINUS, l.ch, l.line, l.column)
	case '/':
		tok = newToken(token.SLASH, l.ch, l.line, l.column)
	case '!':
		if l.peekChar() == '=' {
			ch := l.ch
			l.readChar()
			literal := string(ch) + string(l.ch)
			tok = token.Token{Type: token.NOT_EQ, Lexeme: literal, Literal: literal, Line: l.line, Column: l.column}
		} else {
			tok = newToken(token.BANG, l.ch, l.line, l.column)
		}
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			tok = token.Token{Type: token.POWER, Lexeme: "**", Literal: "**", Line: l.line, Column: l.column}
		} else {
			tok = newToken(token.ASTERISK, l.ch, l.line, l.column)
		}
	case '%':
		tok = newToken(token.PERCENT, l.ch, l.line, l.column)
	case '.':
		if l.peekChar() == '.' {
			l.readChar()
			literal := ".."
			tok = token.Token{Type: token.DOT_DOT, Lexeme: literal, Literal: literal, Line: l.line, Column: l.column}
		} else {
			tok = newToken(token.DOT, l.ch, l.line, l.column)
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LTE, Lexeme: "<=", Literal: "<=", Line: l.line, Column: l.column}
		} else {
			tok = newToken(token.LT, l.ch, l.line, l.column)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GTE, Lexeme: ">=", Literal: ">=", Line: l.line, Column: l.column}
		} else {
			tok = newToken(token.GT, l.ch, l.line, l.column)
		}
	case '(':
		tok = newToken(token.LPAREN, l.ch, l.line, l.column)
	case ')':
		tok = newToken(token.RPAREN, l.ch, l.line, l.column)
	case ',':
		tok = newToken(token.COMMA, l.ch, l.line, l.column)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, l.line, l.column)
	case ':':
		// A colon immediately followed by an identifier character starts a
		// symbol (:asc, :empty?). Anything else is a bare colon, as in
		// annotations written `x: Integer`.
		if isLetter(l.peekChar()) {
			return l.readSymbol()
		}
		tok = newToken(token.COLON, l.ch, l.line, l.column)
	case '|':
		if l.peekChar() == '|' {
			ch := l.ch
			l.readChar()
			literal := string(ch) + string(l.ch)
			tok = token.Token{Type: token.OR, Lexeme: literal, Literal: literal, Line: l.line, Column: l.column}
		} else {
			tok = newToken(token.PIPE, l.ch, l.line, l.column)
		}
	case '&':
		if l.peekChar() == '&' {
			ch := l.ch
			l.readChar()
			literal := string(ch) + string(l.ch)
			tok = token.Token{Type: token.AND, Lexeme: literal, Literal: literal, Line: l.line, Column: l.column}
		} else {
			tok = newToken(token.ILLEGAL, l.ch, l.line, l.column)
		}
	case '@':
		return l.readVariableSigil()
	case '{':
		tok = newToken(token.LBRACE, l.ch, l.line, l.column)
	case '}':
		tok = newToken(token.RBRACE, l.ch, l.line, l.column)
	case '[':
		tok = newToken(token.LBRACKET, l.ch, l.line, l.column)
	case ']':
		tok = newToken(token.RBRACKET, l.ch, l.line, l.column)
	case '"':
		startLine, startCol := l.line, l.column
		content, terminated := l.readString('"')
		if !terminated {
			return token.Token{Type: token.ILLEGAL, Lexeme: content, Literal: "unterminated string literal", Line: startLine, Column: startCol}
		}
		tok.Type = token.STRING
		tok.Literal = content
		tok.Lexeme = fmt.Sprintf("%q", content)
		tok.Line = startLine
		tok.Column = startCol
	case '\'':
		startLine, startCol := l.line, l.column
		content, terminated := l.readString('\'')
		if !terminated {
			return token.Token{Type: token.ILLEGAL, Lexeme: content, Literal: "unterminated string literal", Line: startLine, Column: startCol}
		}
		tok.Type = token.STRING
		tok.Literal = content
		tok.Lexeme = fmt.Sprintf("%q", content)
		tok.Line = startLine
		tok.Column = startCol
	case 0:
		tok.Lexeme = ""
		tok.Type = token.EOF
		tok.Line = l.line
		tok.Column = l.column
	default:
		if isLetter(l.ch) {
			startLine, startCol := l.line, l.column
			lexeme := l.readIdentifier()
			tok.Lexeme = lexeme
			tok.Type = token.LookupIdent(lexeme)
			tok.Literal = lexeme
			tok.Line = startLine
			tok.Column = startCol
			return tok
		} else if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = newToken(token.ILLEGAL, l.ch, l.line, l.column)
	}

	l.readChar()
	return tok
}

// readString reads a quoted string up to the matching quote. Double
// quotes process the usual escapes; single quotes only \' and \\.
// Returns false when the input ends before the closing quote.
func (l *Lexer) readString(quote rune) (string, bool) {
	var result []byte
	buf := make([]byte, 4)

	for {
		l.readChar()
		if l.ch == 0 {
			return string(result), false
		}
		if l.ch == quote {
			return string(result), true
		}

		if l.ch == '\\' {
			l.readChar()
			if l.ch == 0 {
				return string(result), false
			}
			if quote == '\'' {
				switch l.ch {
				case '\'', '\\':
					result = append(result, byte(l.ch))
				default:
					result = append(result, '\\')
					n := utf8.EncodeRune(buf, l.ch)
					result = append(result, buf[:n]...)
				}
				continue
			}
			switch l.ch {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			case '0':
				result = append(result, 0)
			case '\\':
				result = append(result, '\\')
			case '"':
				result = append(result, '"')
			default:
				// Unknown escape - keep both
				result = append(result, '\\')
				n := utf8.EncodeRune(buf, l.ch)
				result = append(result, buf[:n]...)
			}
			continue
		}

		n := utf8.EncodeRune(buf, l.ch)
		result = append(result, buf[:n]...)
	}
}

// readSymbol consumes :name. The current char is the colon; the literal
// holds the bare name. Symbols share the ?/! suffix rule with methods.
func (l *Lexer) readSymbol() token.Token {
	startLine, startCol := l.line, l.column
	l.readChar() // consume ':'
	name := l.readIdentifier()
	return token.Token{Type: token.SYMBOL, Lexeme: ":" + name, Literal: name, Line: startLine, Column: startCol}
}

// readVariableSigil consumes @name or @@name. A sigil without a
// following identifier is illegal.
func (l *Lexer) readVariableSigil() token.Token {
	startLine, startCol := l.line, l.column
	sigil := "@"
	l.readChar() // consume '@'
	tokType := token.TokenType(token.IVAR)
	if l.ch == '@' {
		sigil = "@@"
		tokType = token.CVAR
		l.readChar()
	}
	if !isLetter(l.ch) {
		return token.Token{Type: token.ILLEGAL, Lexeme: sigil, Literal: "expected identifier after " + sigil, Line: startLine, Column: startCol}
	}
	name := l.readIdentifier()
	return token.Token{Type: tokType, Lexeme: sigil + name, Literal: name, Line: startLine, Column: startCol}
}

// readIdentifier reads a name plus an optional trailing ? or !. The
// suffix stays with the name (empty?, save!) unless the next char is
// '=', so `x != y` still lexes as x, !=, y.
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	if (l.ch == '?' || l.ch == '!') && l.peekChar() != '=' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() token.Token {
	startLine, startCol := l.line, l.column
	position := l.position
	isFloat := false

	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // .
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}

	lexeme := l.input[position:l.position]
	literalText := strings.ReplaceAll(lexeme, "_", "")

	if isFloat {
		val, err := strconv.ParseFloat(literalText, 64)
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: err.Error(), Line: startLine, Column: startCol}
		}
		return token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
	}

	val, err := strconv.ParseInt(literalText, 10, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "integer overflow", Line: startLine, Column: startCol}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func newToken(tokenType token.TokenType, ch rune, line, col int) token.Token {
	literal := string(ch)
	return token.Token{Type: tokenType, Lexeme: literal, Literal: literal, Line: line, Column: col}
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		// Comments run from # to end of line; the NEWLINE itself is
		// still emitted as a token.
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}
