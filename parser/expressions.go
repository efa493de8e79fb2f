package parser

import (
	"strconv"

	"github.com/deepnoodle-ai/pyreg/ast"
	"github.com/deepnoodle-ai/pyreg/internal/token"
	"github.com/deepnoodle-ai/pyreg/op"
)

var binaryOps = map[token.Type]op.BinaryOpType{
	token.PLUS:         op.Add,
	token.MINUS:        op.Subtract,
	token.ASTERISK:     op.Multiply,
	token.SLASH:        op.Divide,
	token.DOUBLE_SLASH: op.FloorDivide,
	token.MOD:          op.Modulo,
}

// parseExpression parses an expression starting at curToken. On return
// curToken is the first token after the expression.
func (p *Parser) parseExpression(precedence int) (ast.Expr, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, p.errorAt(p.curToken, "", "Maximum nesting depth exceeded")
	}
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		return nil, p.errorAt(p.curToken, "integer, identifier or '('", "Expected expression")
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}
	for precedence < p.curPrecedence() {
		infix := p.infixParseFns[p.curToken.Type]
		if infix == nil {
			break
		}
		if left, err = infix(left); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseInt() (ast.Expr, error) {
	tok := p.curToken
	value, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		return nil, p.errorAt(tok, "valid integer", "Integer literal '%s' is too large", tok.Literal)
	}
	p.nextToken()
	return &ast.Int{ValuePos: tok.StartPosition, Literal: tok.Literal, Value: value}, nil
}

func (p *Parser) parseIdent() (ast.Expr, error) {
	tok := p.curToken
	p.nextToken()
	ident := &ast.Ident{NamePos: tok.StartPosition, Name: tok.Literal}
	if p.curTokenIs(token.LPAREN) {
		return p.parseCall(ident)
	}
	return ident, nil
}

func (p *Parser) parseCall(fun *ast.Ident) (ast.Expr, error) {
	lparen, err := p.expect(token.LPAREN, "function call")
	if err != nil {
		return nil, err
	}
	call := &ast.Call{Fun: fun, Lparen: lparen.StartPosition}
	if !p.curTokenIs(token.RPAREN) {
		for {
			arg, err := p.parseExpression(LOWEST)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if !p.curTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}
	rparen, err := p.expect(token.RPAREN, "function call")
	if err != nil {
		return nil, err
	}
	call.Rparen = rparen.StartPosition
	return call, nil
}

func (p *Parser) parseGroupedExpr() (ast.Expr, error) {
	p.nextToken()
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, "parenthesized expression"); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) parsePrefixExpr() (ast.Expr, error) {
	tok := p.curToken
	unop := op.Negate
	if tok.Type == token.PLUS {
		unop = op.Identity
	}
	p.nextToken()
	operand, err := p.parseExpression(PREFIX)
	if err != nil {
		return nil, err
	}
	return &ast.Prefix{OpPos: tok.StartPosition, Op: unop, X: operand}, nil
}

func (p *Parser) parseInfixExpr(left ast.Expr) (ast.Expr, error) {
	tok := p.curToken
	precedence := p.curPrecedence()
	p.nextToken()
	right, err := p.parseExpression(precedence)
	if err != nil {
		return nil, err
	}
	return &ast.Infix{X: left, OpPos: tok.StartPosition, Op: binaryOps[tok.Type], Y: right}, nil
}
