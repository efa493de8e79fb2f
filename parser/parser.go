// Package parser is used to generate the abstract syntax tree (AST) for a program.
//
// The grammar is line oriented. A program is a sequence of statements, each
// ending at a newline or the end of input:
//
//	def name(params):      function definition; the body is either one
//	    statements...      statement after the colon or the following lines
//	                       indented past the column of "def"
//	return [expr]
//	print(expr)
//	name = expr
//	expr
//
// Expressions are parsed by precedence climbing with "+" and "-" binding
// looser than "*", "/", "//" and "%", all left associative. Unary "+" and
// "-" bind tighter than any binary operator.
package parser

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/pyreg/ast"
	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/internal/lexer"
	"github.com/deepnoodle-ai/pyreg/internal/token"
)

type (
	prefixParseFn func() (ast.Expr, error)
	infixParseFn  func(ast.Expr) (ast.Expr, error)
)

// Parse the provided input as source code and return the AST. Lexing errors
// are returned as *errz.LexError and syntax errors as *errz.ParseError.
func Parse(ctx context.Context, input string, options ...Option) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		return nil, err
	}
	return New(tokens, options...).Parse(ctx)
}

// Option is a configuration function for a Parser.
type Option func(*Parser)

// WithMaxDepth sets the maximum nesting depth for the parser.
// This prevents stack overflow on deeply nested input.
// The default is 500.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// DefaultMaxDepth is the default maximum nesting depth for parsing.
const DefaultMaxDepth = 500

// Parser object
type Parser struct {
	// the Context supplied in the Parse() call
	ctx context.Context

	// tokens is the complete token stream, ending with EOF.
	tokens []token.Token
	pos    int

	// curToken holds the token currently being examined.
	curToken token.Token

	// peekToken holds the token after curToken.
	peekToken token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn

	// Current recursion depth
	depth int

	// Maximum allowed recursion depth
	maxDepth int
}

// New returns a Parser for the given token stream, which must end with an
// EOF token as produced by lexer.Tokenize.
func New(tokens []token.Token, options ...Option) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	p := &Parser{
		tokens:         tokens,
		pos:            -1,
		prefixParseFns: map[token.Type]prefixParseFn{},
		infixParseFns:  map[token.Type]infixParseFn{},
		maxDepth:       DefaultMaxDepth,
	}
	for _, opt := range options {
		opt(p)
	}

	p.nextToken() // makes curToken=token[0], peekToken=token[1]

	p.prefixParseFns[token.INT] = p.parseInt
	p.prefixParseFns[token.IDENT] = p.parseIdent
	p.prefixParseFns[token.LPAREN] = p.parseGroupedExpr
	p.prefixParseFns[token.MINUS] = p.parsePrefixExpr
	p.prefixParseFns[token.PLUS] = p.parsePrefixExpr

	p.infixParseFns[token.PLUS] = p.parseInfixExpr
	p.infixParseFns[token.MINUS] = p.parseInfixExpr
	p.infixParseFns[token.ASTERISK] = p.parseInfixExpr
	p.infixParseFns[token.SLASH] = p.parseInfixExpr
	p.infixParseFns[token.DOUBLE_SLASH] = p.parseInfixExpr
	p.infixParseFns[token.MOD] = p.parseInfixExpr
	return p
}

// nextToken advances curToken and peekToken. At the end of the stream both
// remain EOF.
func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.curToken = p.tokens[p.pos]
	if p.pos+1 < len(p.tokens) {
		p.peekToken = p.tokens[p.pos+1]
	} else {
		p.peekToken = p.tokens[len(p.tokens)-1]
	}
}

// Parse the program. The first syntax error stops parsing and is returned.
func (p *Parser) Parse(ctx context.Context) (*ast.Program, error) {
	p.ctx = ctx
	program := &ast.Program{}
	p.skipNewlines()
	for !p.curTokenIs(token.EOF) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		program.Stmts = append(program.Stmts, stmt)
		p.skipNewlines()
	}
	return program, nil
}

func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken.Type == t
}

func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

// expect consumes curToken if it has the given type. Otherwise it returns an
// error of the form "Expected <type> in <context>".
func (p *Parser) expect(t token.Type, context string) (token.Token, error) {
	tok := p.curToken
	if tok.Type != t {
		return tok, p.errorAt(tok, token.Describe(t), "Expected %s in %s", token.Describe(t), context)
	}
	p.nextToken()
	return tok, nil
}

func (p *Parser) errorAt(tok token.Token, expected, format string, args ...any) *errz.ParseError {
	return &errz.ParseError{
		Message: fmt.Sprintf(format, args...),
		Location: errz.SourceLocation{
			Line:   tok.StartPosition.LineNumber(),
			Column: tok.StartPosition.ColumnNumber(),
		},
		Found:    tok.Literal,
		Expected: expected,
	}
}
