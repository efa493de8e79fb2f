// Package token defines language keywords and tokens used when lexing source code.
package token

// Type describes the type of a token as a string.
type Type string

// Position points to a particular location in an input string.
type Position struct {
	Char   int // byte offset within the input
	Line   int // 0-indexed line number
	Column int // 0-indexed column number
}

// LineNumber returns the 1-indexed line number for this position in the input.
func (p Position) LineNumber() int {
	return p.Line + 1
}

// ColumnNumber returns the 1-indexed column number for this position in the input.
func (p Position) ColumnNumber() int {
	return p.Column + 1
}

// Advance returns a new Position advanced by n bytes on the same line.
func (p Position) Advance(n int) Position {
	return Position{Char: p.Char + n, Line: p.Line, Column: p.Column + n}
}

// Token represents one token lexed from the input source code.
type Token struct {
	Type          Type
	Literal       string
	StartPosition Position
	EndPosition   Position
}

// Token types
const (
	ASSIGN       Type = "="
	ASTERISK     Type = "*"
	COLON        Type = ":"
	COMMA        Type = ","
	DEF          Type = "DEF"
	DOUBLE_SLASH Type = "//"
	EOF          Type = "EOF"
	IDENT        Type = "IDENT"
	INT          Type = "INT"
	LPAREN       Type = "("
	MINUS        Type = "-"
	MOD          Type = "%"
	NEWLINE      Type = "NEWLINE"
	PLUS         Type = "+"
	PRINT        Type = "PRINT"
	RETURN       Type = "RETURN"
	RPAREN       Type = ")"
	SLASH        Type = "/"
)

// Reserved keywords
var keywords = map[string]Type{
	"def":    DEF,
	"print":  PRINT,
	"return": RETURN,
}

// LookupIdentifier returns the keyword type for identifier, or IDENT if it
// is not a keyword.
func LookupIdentifier(identifier string) Type {
	if tok, ok := keywords[identifier]; ok {
		return tok
	}
	return IDENT
}

// Describe returns a human readable name for a token type, as used in
// parser error messages.
func Describe(t Type) string {
	switch t {
	case INT:
		return "integer"
	case IDENT:
		return "identifier"
	case NEWLINE:
		return "newline"
	case EOF:
		return "end of input"
	case DEF:
		return "'def'"
	case PRINT:
		return "'print'"
	case RETURN:
		return "'return'"
	default:
		return "'" + string(t) + "'"
	}
}
