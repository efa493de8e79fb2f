// Package lexer converts source text into a stream of tokens.
package lexer

import (
	"fmt"
	"strconv"

	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/internal/token"
)

// Lexer produces tokens from an input string. Spaces, tabs and carriage
// returns separate tokens; newlines are significant and produce NEWLINE
// tokens. A '#' starts a comment that runs to the end of the line.
type Lexer struct {
	input  string
	pos    int
	line   int
	column int
}

// New returns a Lexer for the given input.
func New(input string) *Lexer {
	return &Lexer{input: input}
}

// Next returns the next token. After the input is exhausted every call
// returns an EOF token.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespace()
	start := l.position()
	if l.pos >= len(l.input) {
		return token.Token{Type: token.EOF, StartPosition: start, EndPosition: start}, nil
	}
	ch := l.input[l.pos]
	switch {
	case ch == '\n':
		l.advance()
		return l.token(token.NEWLINE, start), nil
	case ch == '+':
		l.advance()
		return l.token(token.PLUS, start), nil
	case ch == '-':
		l.advance()
		return l.token(token.MINUS, start), nil
	case ch == '*':
		l.advance()
		return l.token(token.ASTERISK, start), nil
	case ch == '%':
		l.advance()
		return l.token(token.MOD, start), nil
	case ch == '/':
		l.advance()
		if l.peek() == '/' {
			l.advance()
			return l.token(token.DOUBLE_SLASH, start), nil
		}
		return l.token(token.SLASH, start), nil
	case ch == '(':
		l.advance()
		return l.token(token.LPAREN, start), nil
	case ch == ')':
		l.advance()
		return l.token(token.RPAREN, start), nil
	case ch == ':':
		l.advance()
		return l.token(token.COLON, start), nil
	case ch == ',':
		l.advance()
		return l.token(token.COMMA, start), nil
	case ch == '=':
		l.advance()
		return l.token(token.ASSIGN, start), nil
	case isDigit(ch):
		return l.readInteger(start)
	case isLetter(ch):
		for l.pos < len(l.input) && (isLetter(l.peek()) || isDigit(l.peek())) {
			l.advance()
		}
		tok := l.token(token.IDENT, start)
		tok.Type = token.LookupIdentifier(tok.Literal)
		return tok, nil
	default:
		return token.Token{}, &errz.LexError{
			Message:  fmt.Sprintf("Unexpected character '%s'", l.currentRune()),
			Location: errz.SourceLocation{Line: start.LineNumber(), Column: start.ColumnNumber()},
			Cause:    errz.ErrInvalidCharacter,
		}
	}
}

// Tokenize lexes the entire input. The returned slice always ends with an
// EOF token.
func Tokenize(input string) ([]token.Token, error) {
	l := New(input)
	var tokens []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) readInteger(start token.Position) (token.Token, error) {
	for l.pos < len(l.input) && isDigit(l.peek()) {
		l.advance()
	}
	tok := l.token(token.INT, start)
	if _, err := strconv.ParseInt(tok.Literal, 10, 64); err != nil {
		return token.Token{}, &errz.LexError{
			Message:  fmt.Sprintf("Integer literal '%s' is too large (exceeds i64 range)", tok.Literal),
			Location: errz.SourceLocation{Line: start.LineNumber(), Column: start.ColumnNumber()},
			Cause:    errz.ErrIntegerLiteral,
		}
	}
	return tok, nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\r':
			l.advance()
		case '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) advance() {
	if l.input[l.pos] == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	l.pos++
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) currentRune() string {
	for _, r := range l.input[l.pos:] {
		return string(r)
	}
	return ""
}

func (l *Lexer) position() token.Position {
	return token.Position{Char: l.pos, Line: l.line, Column: l.column}
}

func (l *Lexer) token(t token.Type, start token.Position) token.Token {
	return token.Token{
		Type:          t,
		Literal:       l.input[start.Char:l.pos],
		StartPosition: start,
		EndPosition:   l.position(),
	}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}
